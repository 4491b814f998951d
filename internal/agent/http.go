package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agent-chat/internal/history"

	"go.uber.org/zap"
)

type HTTPAgent struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

type messageRequest struct {
	SessionID   string               `json:"session_id"`
	Query       string               `json:"query"`
	Model       string               `json:"model"`
	Temperature float64              `json:"temperature"`
	Attachments []history.Attachment `json:"attachments"`
}

type messageResponse struct {
	Response *string `json:"response"`
}

func NewHTTPAgent(endpoint string, timeout time.Duration, logger *zap.Logger) (*HTTPAgent, error) {
	endpoint = strings.TrimSpace(endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid agent endpoint %q", endpoint)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPAgent{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}, nil
}

func (a *HTTPAgent) Send(ctx context.Context, req Request) (string, error) {
	attachments := req.Attachments
	if attachments == nil {
		attachments = []history.Attachment{}
	}
	body, err := json.Marshal(messageRequest{
		SessionID:   req.SessionID,
		Query:       req.Query,
		Model:       req.Model,
		Temperature: req.Temperature,
		Attachments: attachments,
	})
	if err != nil {
		return "", fmt.Errorf("encode agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build agent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Warn("agent request failed", zap.String("session_id", req.SessionID), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	a.logger.Debug("agent replied",
		zap.String("session_id", req.SessionID),
		zap.Int("status", resp.StatusCode),
		zap.Int("attachments", len(attachments)),
		zap.Duration("elapsed", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode reply: %v", ErrUnavailable, err)
	}
	if payload.Response == nil {
		return NoResponse, nil
	}
	return checkReply(*payload.Response)
}
