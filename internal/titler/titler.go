// Package titler names quick-capture notes that arrive without a title.
package titler

import (
	"context"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength = 60
	DefaultTitle   = "Untitled note"
)

type Titler interface {
	SuggestTitle(ctx context.Context, content string) string
}

// SimpleTitler uses the first non-empty line of the content.
type SimpleTitler struct {
	maxLength int
}

func NewSimpleTitler(maxLength int) *SimpleTitler {
	if maxLength <= 0 {
		maxLength = MaxTitleLength
	}
	return &SimpleTitler{maxLength: maxLength}
}

func (t *SimpleTitler) SuggestTitle(ctx context.Context, content string) string {
	for _, line := range strings.Split(content, "\n") {
		if title := clean(line, t.maxLength); title != "" {
			return title
		}
	}
	return DefaultTitle
}

// clean collapses whitespace, strips wrapping quotes and markdown heading
// marks, and cuts the result to max runes on a word boundary when possible.
func clean(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimLeft(s, "# ")
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)[:max]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > max/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
