// Package docsniff identifies knowledge document types from content rather
// than trusting the declared Content-Type.
package docsniff

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"
)

type DocType string

const (
	TypePDF      DocType = "pdf"
	TypeJSON     DocType = "json"
	TypeCSV      DocType = "csv"
	TypeMarkdown DocType = "markdown"
	TypeText     DocType = "text"
)

var ErrUnknownType = errors.New("unknown document type")

type Result struct {
	Type DocType
	MIME string
	Ext  string
}

func Detect(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrUnknownType
	}

	if isPDF(data) {
		return Result{Type: TypePDF, MIME: "application/pdf", Ext: "pdf"}, nil
	}
	if isJSON(data) {
		return Result{Type: TypeJSON, MIME: "application/json", Ext: "json"}, nil
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return Result{}, ErrUnknownType
	}
	if looksLikeCSV(data) {
		return Result{Type: TypeCSV, MIME: "text/csv", Ext: "csv"}, nil
	}
	if looksLikeMarkdown(data) {
		return Result{Type: TypeMarkdown, MIME: "text/markdown", Ext: "md"}, nil
	}
	return Result{Type: TypeText, MIME: "text/plain", Ext: "txt"}, nil
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}

func isJSON(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid(trimmed)
}

func looksLikeCSV(data []byte) bool {
	head := string(data)
	if idx := strings.IndexByte(head, '\n'); idx >= 0 {
		head = head[:idx]
	}
	return strings.Count(head, ",") >= 2 && !strings.ContainsAny(head, "#*`")
}

func looksLikeMarkdown(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	for _, prefix := range []string{"# ", "## ", "- ", "* ", "> ", "```"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return strings.Contains(trimmed, "\n# ") || strings.Contains(trimmed, "\n## ")
}

// Compatible reports whether a declared MIME type agrees with the detected
// one. Plain-text subtypes are interchangeable: browsers routinely declare
// markdown and CSV as text/plain.
func Compatible(declared, detected string) bool {
	if declared == detected {
		return true
	}
	textual := map[string]bool{
		"text/plain":    true,
		"text/markdown": true,
		"text/csv":      true,
	}
	if textual[declared] && textual[detected] {
		return true
	}
	// A declared octet-stream says nothing either way.
	return declared == "application/octet-stream"
}

func MimeTypeFromHTTP(header http.Header) string {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		return ""
	}
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return strings.TrimSpace(contentType)
}
