package assistant

import (
	"regexp"
	"strings"
)

var (
	reasoningRe = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// stripReasoning removes reasoning markup some models emit before their
// visible answer and tidies the leftover whitespace.
func stripReasoning(text string) string {
	if text == "" {
		return ""
	}
	out := reasoningRe.ReplaceAllString(text, "\n\n")
	out = blankRunsRe.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}
