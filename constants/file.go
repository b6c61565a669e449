package constants

import "strings"

// Format is the coarse content family used to pick a text extractor.
type Format string

const (
	FormatText  Format = "TEXT"
	FormatHTML  Format = "HTML"
	FormatPDF   Format = "PDF"
	FormatOther Format = "OTHER"
)

// FileTypes holds the allowed values for the format column of document.
var FileTypes = []string{string(FormatText), string(FormatHTML), string(FormatPDF), string(FormatOther)}

var extToMime = map[string]string{
	"txt":  "text/plain",
	"text": "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"html": "text/html",
	"htm":  "text/html",
	"json": "application/json",
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MimeForExt guesses a mime type from an extension; unknown extensions map to octet-stream.
func MimeForExt(ext string) string {
	if m, ok := extToMime[NormalizeExt(ext)]; ok {
		return m
	}
	return "application/octet-stream"
}

// FormatForMime classifies a mime type. Parameters such as "; charset=utf-8" are ignored.
func FormatForMime(mime string) Format {
	m := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch {
	case m == "text/html", m == "application/xhtml+xml":
		return FormatHTML
	case strings.HasPrefix(m, "text/"), m == "application/json", m == "application/xml":
		return FormatText
	case m == "application/pdf":
		return FormatPDF
	default:
		return FormatOther
	}
}

// AllowedExtensions are the file extensions accepted for directory ingest.
var AllowedExtensions = map[string]struct{}{
	"txt":  {},
	"text": {},
	"md":   {},
	"pdf":  {},
	"html": {},
	"htm":  {},
}
