package sanitize

import (
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// Filename sanitizes an uploaded file name: strips directory components,
// path traversal attempts, and control characters. Returns "file" when
// nothing survives.
func Filename(filename string) string {
	filename = strings.TrimSpace(filename)

	// Keep only the last path element, whichever separator the client used
	if idx := strings.LastIndexAny(filename, `/\`); idx >= 0 {
		filename = filename[idx+1:]
	}

	filename = strings.ReplaceAll(filename, "..", "")
	filename = controlChars.ReplaceAllString(filename, "")
	filename = strings.TrimSpace(filename)

	if filename == "" || filename == "." {
		return "file"
	}
	return filename
}

// Username sanitizes a username: trims whitespace and removes everything
// except alphanumerics, underscore, hyphen and dot.
func Username(username string) string {
	username = strings.TrimSpace(username)
	return regexp.MustCompile(`[^a-zA-Z0-9_.-]`).ReplaceAllString(username, "")
}

// Email sanitizes an email address for storage and comparison
func Email(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	return regexp.MustCompile(`[<>;\\]`).ReplaceAllString(email, "")
}
