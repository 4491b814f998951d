package ui

import (
	"fmt"
	"io"
	"strings"

	"agent-chat/internal/history"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
)

type headerItem struct {
	label string
}

func (h headerItem) FilterValue() string { return "" }

type sessionItem struct {
	s      history.Session
	active bool
}

func (i sessionItem) FilterValue() string {
	return strings.ToLower(i.s.Title)
}

// sidebarItems flattens buckets into list rows, a header before each bucket.
func sidebarItems(buckets []history.Bucket, activeID string) []list.Item {
	items := make([]list.Item, 0, 64)
	for _, b := range buckets {
		items = append(items, headerItem{label: b.Label})
		for _, s := range b.Sessions {
			items = append(items, sessionItem{s: s, active: s.ID == activeID})
		}
	}
	return items
}

// nextSelectable returns the closest session row from idx in direction dir,
// trying the other direction when none is found. It returns -1 when items
// holds no sessions.
func nextSelectable(items []list.Item, idx, dir int) int {
	if dir == 0 {
		dir = 1
	}
	for _, d := range []int{dir, -dir} {
		for i := idx; i >= 0 && i < len(items); i += d {
			if _, ok := items[i].(sessionItem); ok {
				return i
			}
		}
	}
	return -1
}

func indexOfSession(items []list.Item, id string) int {
	for i, it := range items {
		if s, ok := it.(sessionItem); ok && s.s.ID == id {
			return i
		}
	}
	return -1
}

type sidebarDelegate struct{}

func (d sidebarDelegate) Height() int                             { return 1 }
func (d sidebarDelegate) Spacing() int                            { return 0 }
func (d sidebarDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d sidebarDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	width := m.Width()
	if width <= 0 {
		width = 30
	}

	switch it := item.(type) {
	case headerItem:
		fmt.Fprint(w, bucketStyle.Render(ansi.Truncate(it.label, width, "…")))
	case sessionItem:
		marker := "  "
		if it.active {
			marker = "● "
		}
		count := fmt.Sprintf(" %d", it.s.Count())
		avail := width - ansi.StringWidth(marker) - ansi.StringWidth(count)
		if avail < 1 {
			avail = 1
		}
		title := ansi.Truncate(it.s.Title, avail, "…")
		line := marker + title + countStyle.Render(count)
		if index == m.Index() {
			fmt.Fprint(w, selectedRowStyle.Render(line))
			return
		}
		if it.active {
			fmt.Fprint(w, activeRowStyle.Render(line))
			return
		}
		fmt.Fprint(w, line)
	}
}
