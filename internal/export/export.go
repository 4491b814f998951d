package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"agent-chat/internal/history"
	"agent-chat/internal/sniff"
)

const maxDuplicateNames = 1000

type Exporter struct {
	dir string
}

func New(dir string) (*Exporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("export directory is required")
	}
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve cwd: %w", err)
		}
		dir = filepath.Join(cwd, dir)
	}
	return &Exporter{dir: dir}, nil
}

func (e *Exporter) Dir() string { return e.dir }

// SaveResponse writes a sniffed reply as response.<ext>. Existing files are
// never overwritten; later downloads become "response (1).<ext>" and so on.
func (e *Exporter) SaveResponse(res sniff.Result) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	return writeUnique(e.dir, "response", res.Ext, res.Data)
}

func (e *Exporter) ExportSession(session history.Session) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	body := BuildTranscriptMarkdown(session.Messages)
	md := BuildSessionMarkdown(session, body, time.Now().UTC())
	return writeUnique(e.dir, safeFileName(session.Title), "md", []byte(md))
}

func writeUnique(dir, base, ext string, data []byte) (string, error) {
	for n := 0; n < maxDuplicateNames; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		if ext != "" {
			name += "." + ext
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("close %s: %w", name, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s.%s in %s", base, ext, dir)
}

func BuildTranscriptMarkdown(messages []history.Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := strings.TrimSpace(m.Text)
		if content == "" {
			continue
		}

		switch m.Sender {
		case history.SenderUser:
			b.WriteString("## You\n\n")
			b.WriteString(content + "\n\n")
		default:
			header := "## Agent"
			if tag := m.Tag(); tag != "" {
				header += " (" + tag + ")"
			}
			b.WriteString(header + "\n\n")
			b.WriteString(renderReply(content))
		}
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func renderReply(content string) string {
	res, err := sniff.Sniff(content)
	if err != nil {
		return "```text\n" + content + "\n```\n\n"
	}
	switch res.Kind {
	case sniff.KindBinary:
		return fmt.Sprintf("_[%s reply, %d bytes]_\n\n", res.MIME, len(res.Data))
	case sniff.KindXML, sniff.KindJSON, sniff.KindCSV:
		return "```" + res.Ext + "\n" + content + "\n```\n\n"
	default:
		return content + "\n\n"
	}
}

func BuildSessionMarkdown(session history.Session, transcript string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# " + safeValue(session.Title) + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("session_id: " + safeValue(session.ID) + "\n")
	b.WriteString("started: " + session.StartedAt.Format(time.RFC3339) + "\n")
	b.WriteString(fmt.Sprintf("message_count: %d\n", session.Count()))
	b.WriteString("```\n\n")
	b.WriteString(transcript)
	if !strings.HasSuffix(transcript, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "...")
	if s == "" {
		return "session"
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
