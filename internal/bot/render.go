package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/scribly/internal/models"
	"github.com/xaenox/scribly/internal/notes"
)

const maxPreview = 200

var errNoTitle = errors.New("note has no title")

// escapeMarkdown escapes special characters for MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

// formatNote renders one note. A positive pos is shown as the note's number
// in the current list.
func formatNote(pos int, n models.Note) string {
	visibility := "🔒 private"
	if n.IsPublic {
		visibility = "🌐 public"
	}

	var sb strings.Builder
	if pos > 0 {
		sb.WriteString(escapeMarkdown(fmt.Sprintf("%d. ", pos)))
	}
	sb.WriteString("*" + escapeMarkdown(n.Title) + "*")
	sb.WriteString(" " + escapeMarkdown(visibility) + "\n")
	if content := preview(n.Content); content != "" {
		sb.WriteString(escapeMarkdown(content) + "\n")
	}
	sb.WriteString("id: `" + escapeMarkdown(n.ID) + "`")
	return sb.String()
}

func formatView(view notes.View, query string) string {
	var sb strings.Builder

	if query == "" {
		sb.WriteString(fmt.Sprintf("*Your notes* \\(%d\\)\n", len(view.Notes)))
	} else {
		sb.WriteString(fmt.Sprintf("*Notes matching* _%s_ \\(%d\\)\n", escapeMarkdown(query), len(view.Notes)))
		if len(view.Suggestions) > 0 {
			quoted := make([]string, len(view.Suggestions))
			for i, s := range view.Suggestions {
				quoted[i] = "`" + escapeMarkdown(s) + "`"
			}
			sb.WriteString("Suggestions: " + strings.Join(quoted, ", ") + "\n")
		}
	}

	if len(view.Notes) == 0 {
		if query == "" {
			sb.WriteString("\nNo notes yet\\. Send me some text to create one\\.")
		} else {
			sb.WriteString("\nNothing found\\.")
		}
		return sb.String()
	}

	for i, n := range view.Notes {
		sb.WriteString("\n" + formatNote(i+1, n) + "\n")
	}
	return sb.String()
}

func preview(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= maxPreview {
		return string(runes)
	}
	return string(runes[:maxPreview]) + "…"
}

// parseDraft reads "<title> | <content> | public|private" on top of base.
// Empty parts keep base's values; a trailing visibility word is optional and
// the content is kept as typed, pipes included.
func parseDraft(args string, base models.Draft) (models.Draft, error) {
	draft := base

	title, content, _ := strings.Cut(args, "|")
	if before, last, found := cutLast(content, "|"); found {
		switch strings.ToLower(strings.TrimSpace(last)) {
		case "public":
			draft.IsPublic = true
			content = before
		case "private":
			draft.IsPublic = false
			content = before
		}
	}

	if title = strings.TrimSpace(title); title != "" {
		draft.Title = title
	}
	if content = strings.TrimSpace(content); content != "" {
		draft.Content = content
	}

	if draft.Title == "" {
		return models.Draft{}, errNoTitle
	}
	return draft, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
