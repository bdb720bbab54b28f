package normalisers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

var extMIME = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".json":     "application/json",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".pdf":      "application/pdf",
	".eml":      "message/rfc822",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// DetectMIME returns the MIME type for path, using the extension first and
// sniffing content when the extension is unknown.
func DetectMIME(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if m, ok := extMIME[ext]; ok {
		return m
	}
	if m := mime.TypeByExtension(ext); m != "" {
		return BaseMIME(m)
	}
	return BaseMIME(http.DetectContentType(content))
}

// BaseMIME strips parameters: "text/html; charset=utf-8" becomes "text/html".
func BaseMIME(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
