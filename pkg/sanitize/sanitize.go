package sanitize

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// MessageContent normalizes outgoing message text: trims surrounding
// whitespace and strips non-printing control characters. Newlines and
// tabs survive.
func MessageContent(content string) string {
	content = controlChars.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

// Filename strips path components and control characters from an upload
// filename so the multipart part name is a bare, printable base name
func Filename(filename string) string {
	filename = strings.TrimSpace(filename)
	if i := strings.LastIndexAny(filename, `/\`); i >= 0 {
		filename = filename[i+1:]
	}
	filename = controlChars.ReplaceAllString(filename, "")
	filename = strings.ReplaceAll(filename, "..", "")
	if filename == "" {
		filename = "upload"
	}
	return filename
}
