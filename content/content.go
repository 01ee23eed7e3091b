package content

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	policy = bluemonday.UGCPolicy()
	md     = goldmark.New()
)

// Sanitize removes unsafe HTML from the input string using a strict policy.
// It is applied to message text before it is sent or rendered.
func Sanitize(input string) string {
	return policy.Sanitize(input)
}

// Render converts message text from markdown to sanitized HTML for
// presentation embedding.
func Render(input string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(input), &buf); err != nil {
		return "", fmt.Errorf("failed to render message text: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}
