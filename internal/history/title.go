package history

import (
	"fmt"
	"strings"
	"time"
)

const titleRunes = 30

func DefaultTitle(t time.Time) string {
	return fmt.Sprintf("New Chat at %d:%02d", t.Hour(), t.Minute())
}

// TitleFromMessage derives a sidebar title from the first user message.
func TitleFromMessage(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	r := []rune(text)
	if len(r) <= titleRunes {
		return text
	}
	return string(r[:titleRunes]) + "..."
}
