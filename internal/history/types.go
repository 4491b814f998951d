package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

type Session struct {
	ID           string
	Title        string
	StartedAt    time.Time
	Messages     []Message
	MessageCount int
}

type Message struct {
	Sender    Sender
	Text      string
	Timestamp time.Time
	Model     string
	Style     string
}

// Attachment is a file staged for the next outgoing message. The JSON shape
// is the agent endpoint's wire format.
type Attachment struct {
	Filename string `json:"filename"`
	DataURL  string `json:"dataUrl"`
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.DataURL, "data:image")
}

func NewSession(now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		Title:     DefaultTitle(now),
		StartedAt: now,
	}
}

func (s Session) Count() int {
	if len(s.Messages) > s.MessageCount {
		return len(s.Messages)
	}
	return s.MessageCount
}

// LastReply returns the index of the newest agent message, or -1.
func (s Session) LastReply() int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Sender == SenderAgent {
			return i
		}
	}
	return -1
}

func (m Message) Tag() string {
	if m.Model == "" && m.Style == "" {
		return ""
	}
	return m.Model + "/" + m.Style
}
