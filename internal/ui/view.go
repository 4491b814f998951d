package ui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"agent-chat/internal/history"
	"agent-chat/internal/sniff"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const maxDisplayChars = 200_000

// renderTranscript lays out a session's messages for the viewport. offsets
// holds the first line of each message so a selected reply can be scrolled
// into view.
func renderTranscript(session history.Session, selected, width int, failure string) (string, []int) {
	if width < 20 {
		width = 20
	}
	body := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	offsets := make([]int, len(session.Messages))
	line := 0
	write := func(s string) {
		b.WriteString(s)
		line += strings.Count(s, "\n")
	}

	if len(session.Messages) == 0 {
		write(hintStyle.Render("Say hello to start the conversation.") + "\n")
	}

	for i, m := range session.Messages {
		offsets[i] = line
		write(messageHeader(m, i == selected) + "\n")
		write(body.Render(displayText(m)) + "\n\n")
	}
	if failure != "" {
		write(errorLineStyle.Render(failure) + "\n")
	}
	return b.String(), offsets
}

func messageHeader(m history.Message, selected bool) string {
	when := ""
	if !m.Timestamp.IsZero() {
		when = m.Timestamp.Format("Jan 2 15:04")
	}
	if m.Sender == history.SenderUser {
		return userHeaderStyle.Render("You") + " " + timeStyle.Render(when)
	}

	marker := "  "
	if selected {
		marker = selectedMarkerStyle.Render("▶ ")
	}
	parts := []string{agentHeaderStyle.Render("Agent"), timeStyle.Render(when)}
	if tag := m.Tag(); tag != "" {
		parts = append(parts, tagStyle.Render(tag))
	}
	if kind := replyKind(m.Text); kind != "" {
		parts = append(parts, kindStyle.Render("["+kind+"]"))
	}
	return marker + strings.Join(parts, " ")
}

// replyKind labels structured replies; plain text gets no label.
func replyKind(text string) string {
	res, err := sniff.Sniff(text)
	if err != nil {
		return "invalid data"
	}
	if res.Kind == sniff.KindText {
		return ""
	}
	if res.Kind == sniff.KindBinary {
		return res.Ext
	}
	return string(res.Kind)
}

func displayText(m history.Message) string {
	text := strings.TrimSpace(m.Text)
	if m.Sender == history.SenderAgent {
		if res, err := sniff.Sniff(text); err == nil && res.Kind == sniff.KindBinary {
			return hintStyle.Render(fmt.Sprintf("%s, %d bytes. ctrl+s saves it as %s.", res.MIME, len(res.Data), res.Filename()))
		}
	}
	return clipForDisplay(text, maxDisplayChars)
}

// clipForDisplay cuts text to at most limit bytes on a rune boundary.
func clipForDisplay(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n... [truncated for display; ctrl+s saves the full reply] ..."
}

func attachmentLine(pending []history.Attachment, width int) string {
	if len(pending) == 0 {
		return ""
	}
	names := make([]string, 0, len(pending))
	for _, a := range pending {
		names = append(names, a.Filename)
	}
	line := fmt.Sprintf("attached (%d): %s", len(pending), strings.Join(names, ", "))
	return hintStyle.Render(ansi.Truncate(line, width, "…"))
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if ansi.StringWidth(s) <= n {
		return s
	}
	return ansi.Truncate(s, n, "...")
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
	bucketStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("244"))
	selectedRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("39"))
	activeRowStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	countStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	userHeaderStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	agentHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	timeStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	tagStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	kindStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	selectedMarkerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	hintStyle           = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
	errorLineStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	promptStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}
