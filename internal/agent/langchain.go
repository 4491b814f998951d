package agent

import (
	"context"
	"fmt"
	"strings"

	"agent-chat/internal/history"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
)

// LangChainAgent talks to an OpenAI-compatible endpoint directly instead of
// going through the agent service.
type LangChainAgent struct {
	llm    llms.Model
	logger *zap.Logger
}

func NewLangChainAgent(baseURL, token, model string, logger *zap.Logger) (*LangChainAgent, error) {
	opts := []openai.Option{openai.WithToken(token)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize openai client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LangChainAgent{llm: llm, logger: logger}, nil
}

func (a *LangChainAgent) Send(ctx context.Context, req Request) (string, error) {
	content := buildMessages(req)
	resp, err := a.llm.GenerateContent(ctx, content, llms.WithTemperature(req.Temperature))
	if err != nil {
		a.logger.Warn("completion failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return NoResponse, nil
	}
	return checkReply(resp.Choices[0].Content)
}

func buildMessages(req Request) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(req.History)+1)
	for _, m := range req.History {
		role := schema.ChatMessageTypeHuman
		if m.Sender == history.SenderAgent {
			role = schema.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Text))
	}

	parts := make([]llms.ContentPart, 0, len(req.Attachments)+1)
	var notes []string
	for _, att := range req.Attachments {
		if att.IsImage() {
			parts = append(parts, llms.ImageURLPart(att.DataURL))
			continue
		}
		notes = append(notes, "[attachment: "+att.Filename+"]")
	}
	query := req.Query
	if len(notes) > 0 {
		query = strings.Join(notes, "\n") + "\n" + query
	}
	parts = append(parts, llms.TextPart(query))
	out = append(out, llms.MessageContent{Role: schema.ChatMessageTypeHuman, Parts: parts})
	return out
}
