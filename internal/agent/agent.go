// Package agent sends chat messages to the remote agent and returns its reply.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agent-chat/internal/history"

	"go.uber.org/zap"
)

var (
	// ErrAccessDenied marks replies the agent refused; they are shown to the
	// user but never stored.
	ErrAccessDenied = errors.New("access denied")
	ErrUnavailable  = errors.New("agent unavailable")
)

const (
	DefaultModel = "gemini"
	DefaultStyle = StyleBalanced

	StyleCreative = "creative"
	StyleBalanced = "balanced"
	StylePrecise  = "precise"

	NoResponse = "No response from agent."
)

const (
	BackendHTTP   = "http"
	BackendOpenAI = "openai"
)

type Request struct {
	SessionID   string
	Query       string
	Model       string
	Temperature float64
	Attachments []history.Attachment
	// History holds the session's earlier messages for backends that do not
	// keep server-side memory.
	History []history.Message
}

type Agent interface {
	Send(ctx context.Context, req Request) (string, error)
}

type Config struct {
	Backend  string
	Endpoint string
	BaseURL  string
	Token    string
	Model    string
	Timeout  time.Duration
}

func New(cfg Config, logger *zap.Logger) (Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendHTTP:
		return NewHTTPAgent(cfg.Endpoint, cfg.Timeout, logger)
	case BackendOpenAI:
		return NewLangChainAgent(cfg.BaseURL, cfg.Token, cfg.Model, logger)
	default:
		return nil, fmt.Errorf("unknown agent backend %q", cfg.Backend)
	}
}

// Temperature maps a response style to the sampling temperature sent with a
// request. Unknown styles are treated as balanced.
func Temperature(style string) float64 {
	switch strings.ToLower(strings.TrimSpace(style)) {
	case StyleCreative:
		return 0.9
	case StylePrecise:
		return 0.2
	default:
		return 0.6
	}
}

func Styles() []string {
	return []string{StyleBalanced, StyleCreative, StylePrecise}
}

func checkReply(reply string) (string, error) {
	if strings.HasPrefix(reply, "Access denied") {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, reply)
	}
	return reply, nil
}
