// Package attach turns local files into data-URL attachments.
package attach

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"agent-chat/internal/history"

	"github.com/gabriel-vasile/mimetype"
)

// MaxSize caps attachments so a stray large file does not end up inlined in
// every request body.
const MaxSize = 20 << 20

var ErrTooLarge = errors.New("attachment too large")

func FromFile(path string) (history.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return history.Attachment{}, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return history.Attachment{}, fmt.Errorf("attachment %s is a directory", path)
	}
	if info.Size() > MaxSize {
		return history.Attachment{}, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, filepath.Base(path), info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return history.Attachment{}, fmt.Errorf("read attachment: %w", err)
	}
	return FromBytes(filepath.Base(path), data), nil
}

func FromBytes(filename string, data []byte) history.Attachment {
	return history.Attachment{
		Filename: filename,
		DataURL:  "data:" + DetectMIME(filename, data) + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}

// DetectMIME prefers the extension, then content sniffing.
func DetectMIME(filename string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt
		}
	}
	if len(data) == 0 {
		return "application/octet-stream"
	}
	if mt, _, err := mime.ParseMediaType(mimetype.Detect(data).String()); err == nil {
		return mt
	}
	return "application/octet-stream"
}
