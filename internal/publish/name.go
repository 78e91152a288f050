package publish

import (
	"strings"
	"unicode"
)

// unsafe holds the characters that cannot appear in file or git branch names.
const unsafe = "`/\\:*?\"<>|.[]~^@{}"

// Sanitize derives the file and branch identifier of a dataset name:
// lowercase, trimmed, with every run of unsafe characters, whitespace or
// control characters replaced by one underscore. A result made only of underscores is empty.
func Sanitize(name string) string {
	var b strings.Builder
	inRun := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsSpace(r) || unicode.IsControl(r) || strings.ContainsRune(unsafe, r) {
			if !inRun {
				b.WriteByte('_')
			}
			inRun = true
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	id := b.String()
	if strings.Trim(id, "_") == "" {
		return ""
	}
	return id
}

// BranchName returns the pull request branch for a sanitized id.
func BranchName(id string) string {
	return "add-" + id
}
