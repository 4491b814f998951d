// Package chat owns the client state: which session is active, the files
// staged for the next message and the model settings sent with it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agent-chat/internal/agent"
	"agent-chat/internal/history"

	"go.uber.org/zap"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoAttachment = errors.New("no such attachment")
)

// UnreachableText is shown in the thread when the agent cannot be reached.
// It is never stored.
const UnreachableText = "Failed to reach agent."

type Store interface {
	Create(ctx context.Context, session history.Session) error
	Update(ctx context.Context, id string, fn func(*history.Session) error) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (history.Session, error)
	List(ctx context.Context) ([]history.Session, error)
	Search(ctx context.Context, query string, limit int) ([]history.Session, error)
}

type Options struct {
	Model string
	Style string
	Now   func() time.Time
}

type Manager struct {
	mu       sync.Mutex
	store    Store
	agent    agent.Agent
	logger   *zap.Logger
	now      func() time.Time
	activeID string
	pending  []history.Attachment
	model    string
	style    string
}

// Outgoing is the snapshot of a posted user message that Dispatch sends.
type Outgoing struct {
	SessionID   string
	Query       string
	Model       string
	Style       string
	Attachments []history.Attachment
	History     []history.Message
}

func NewManager(st Store, ag agent.Agent, logger *zap.Logger, opts Options) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Model == "" {
		opts.Model = agent.DefaultModel
	}
	if opts.Style == "" {
		opts.Style = agent.DefaultStyle
	}
	return &Manager{
		store:  st,
		agent:  ag,
		logger: logger,
		now:    opts.Now,
		model:  opts.Model,
		style:  opts.Style,
	}
}

// Load activates the most recently created session, or starts a new one when
// there is no history yet.
func (m *Manager) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}
	if len(sessions) == 0 {
		_, err := m.newChatLocked(ctx)
		return err
	}
	m.activeID = sessions[len(sessions)-1].ID
	return nil
}

func (m *Manager) NewChat(ctx context.Context) (history.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newChatLocked(ctx)
}

func (m *Manager) newChatLocked(ctx context.Context) (history.Session, error) {
	session := history.NewSession(m.now())
	if err := m.store.Create(ctx, session); err != nil {
		return history.Session{}, fmt.Errorf("create session: %w", err)
	}
	m.activeID = session.ID
	m.logger.Debug("session created", zap.String("session_id", session.ID))
	return session, nil
}

func (m *Manager) Select(ctx context.Context, id string) (history.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, err := m.store.Get(ctx, id)
	if err != nil {
		return history.Session{}, err
	}
	m.activeID = session.ID
	return session, nil
}

// Active returns the active session with its messages. ok is false when no
// session is active.
func (m *Manager) Active(ctx context.Context) (session history.Session, ok bool, err error) {
	id := m.ActiveID()
	if id == "" {
		return history.Session{}, false, nil
	}
	session, err = m.store.Get(ctx, id)
	if err != nil {
		return history.Session{}, false, err
	}
	return session, true, nil
}

func (m *Manager) ActiveID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Rename sets a session's title. A blank title leaves it unchanged.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	return m.store.Update(ctx, id, func(s *history.Session) error {
		s.Title = title
		return nil
	})
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	if m.activeID == id {
		m.activeID = ""
	}
	m.logger.Debug("session deleted", zap.String("session_id", id))
	return nil
}

func (m *Manager) Sessions(ctx context.Context) ([]history.Session, error) {
	return m.store.List(ctx)
}

func (m *Manager) Grouped(ctx context.Context) ([]history.Bucket, error) {
	sessions, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return history.Group(sessions, m.now()), nil
}

// Search groups the sessions matching query; a blank query groups them all.
func (m *Manager) Search(ctx context.Context, query string) ([]history.Bucket, error) {
	sessions, err := m.store.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	return history.Group(sessions, m.now()), nil
}

func (m *Manager) Attach(a history.Attachment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, a)
}

func (m *Manager) Detach(i int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.pending) {
		return ErrNoAttachment
	}
	m.pending = append(m.pending[:i:i], m.pending[i+1:]...)
	return nil
}

func (m *Manager) Pending() []history.Attachment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Attachment(nil), m.pending...)
}

func (m *Manager) Model() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

func (m *Manager) Style() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.style
}

func (m *Manager) SetModel(model string) {
	model = strings.TrimSpace(model)
	if model == "" {
		return
	}
	m.mu.Lock()
	m.model = model
	m.mu.Unlock()
}

func (m *Manager) SetStyle(style string) {
	style = strings.TrimSpace(style)
	if style == "" {
		return
	}
	m.mu.Lock()
	m.style = style
	m.mu.Unlock()
}

// Post stores the user's message in the active session, starting one if
// needed, and returns what should be sent to the agent.
func (m *Manager) Post(ctx context.Context, text string) (Outgoing, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outgoing{}, ErrEmptyMessage
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeID == "" {
		if _, err := m.newChatLocked(ctx); err != nil {
			return Outgoing{}, err
		}
	}

	out := Outgoing{
		SessionID:   m.activeID,
		Query:       text,
		Model:       m.model,
		Style:       m.style,
		Attachments: append([]history.Attachment(nil), m.pending...),
	}
	err := m.store.Update(ctx, m.activeID, func(s *history.Session) error {
		out.History = append([]history.Message(nil), s.Messages...)
		if len(s.Messages) == 0 {
			s.Title = history.TitleFromMessage(text)
		}
		s.Messages = append(s.Messages, history.Message{
			Sender:    history.SenderUser,
			Text:      text,
			Timestamp: m.now(),
		})
		return nil
	})
	if err != nil {
		return Outgoing{}, fmt.Errorf("store user message: %w", err)
	}
	return out, nil
}

// Dispatch sends a posted message to the agent and stores the reply. Refused
// or failed requests store nothing and keep the staged attachments.
func (m *Manager) Dispatch(ctx context.Context, out Outgoing) (history.Message, error) {
	reply, err := m.agent.Send(ctx, agent.Request{
		SessionID:   out.SessionID,
		Query:       out.Query,
		Model:       out.Model,
		Temperature: agent.Temperature(out.Style),
		Attachments: out.Attachments,
		History:     out.History,
	})
	if err != nil {
		m.logger.Warn("agent send failed", zap.String("session_id", out.SessionID), zap.Error(err))
		return history.Message{}, err
	}

	msg := history.Message{
		Sender:    history.SenderAgent,
		Text:      reply,
		Timestamp: m.now(),
		Model:     out.Model,
		Style:     out.Style,
	}
	err = m.store.Update(ctx, out.SessionID, func(s *history.Session) error {
		s.Messages = append(s.Messages, msg)
		return nil
	})
	if err != nil {
		return history.Message{}, fmt.Errorf("store agent reply: %w", err)
	}

	m.mu.Lock()
	m.pending = dropSent(m.pending, out.Attachments)
	m.mu.Unlock()
	return msg, nil
}

func (m *Manager) Send(ctx context.Context, text string) (history.Message, error) {
	out, err := m.Post(ctx, text)
	if err != nil {
		return history.Message{}, err
	}
	return m.Dispatch(ctx, out)
}

// dropSent removes each sent attachment from pending once, keeping anything
// staged while the request was in flight.
func dropSent(pending, sent []history.Attachment) []history.Attachment {
	out := append([]history.Attachment(nil), pending...)
	for _, a := range sent {
		for i := range out {
			if out[i] == a {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}
