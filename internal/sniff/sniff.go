// Package sniff classifies an agent reply by its content so it can be saved
// with a sensible file extension and MIME type.
package sniff

import (
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

type Kind string

const (
	KindXML    Kind = "xml"
	KindJSON   Kind = "json"
	KindCSV    Kind = "csv"
	KindText   Kind = "txt"
	KindBinary Kind = "binary"
)

var ErrMalformedPayload = errors.New("malformed base64 payload")

var dataURLRe = regexp.MustCompile(`^data:(.+);base64,(.+)$`)

var extByMIME = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"audio/mpeg": "mp3",
	"audio/wav":  "wav",
	"video/mp4":  "mp4",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
}

const binaryExt = "bin"

type Result struct {
	Kind Kind
	Ext  string
	MIME string
	// Data is the downloadable content: decoded bytes for data URLs, the
	// trimmed text otherwise.
	Data []byte
	// Text is the trimmed input, used for clipboard copies.
	Text string
}

func (r Result) Filename() string {
	return "response." + r.Ext
}

// Sniff classifies raw. A base64 data URL always wins over the text formats,
// even when the same string would also pass as XML or JSON.
func Sniff(raw string) (Result, error) {
	text := strings.TrimSpace(raw)

	if m := dataURLRe.FindStringSubmatch(text); m != nil {
		data, err := decodeBase64(m[2])
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		ext, ok := extByMIME[m[1]]
		if !ok {
			ext = binaryExt
		}
		return Result{Kind: KindBinary, Ext: ext, MIME: m[1], Data: data, Text: text}, nil
	}

	res := Result{Kind: KindText, Ext: "txt", MIME: "text/plain", Data: []byte(text), Text: text}
	switch {
	case strings.HasPrefix(text, "<?xml") || strings.Contains(text, "</"):
		res.Kind, res.Ext, res.MIME = KindXML, "xml", "application/xml"
	case strings.HasPrefix(text, "{") || strings.HasPrefix(text, "["):
		res.Kind, res.Ext, res.MIME = KindJSON, "json", "application/json"
	case looksLikeCSV(text):
		res.Kind, res.Ext, res.MIME = KindCSV, "csv", "text/csv"
	}
	return res, nil
}

func looksLikeCSV(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 || !strings.Contains(lines[0], ",") {
		return false
	}
	fields := strings.Count(lines[0], ",")
	for _, line := range lines[1:] {
		if strings.Count(line, ",") != fields {
			return false
		}
	}
	return true
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			return -1
		}
		return r
	}, payload)
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}
