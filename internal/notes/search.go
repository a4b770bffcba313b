package notes

import (
	"strings"

	"github.com/xaenox/scribly/internal/models"
)

// MaxSuggestions caps the suggestion list shown under the search box.
const MaxSuggestions = 5

// View is what a host renders for the current collection and query.
type View struct {
	Notes       []models.Note
	Suggestions []string
}

// Derive recomputes both views. Hosts call it whenever the collection or the
// query changes.
func Derive(notes []models.Note, query string) View {
	return View{
		Notes:       Filter(notes, query),
		Suggestions: Suggest(notes, query, MaxSuggestions),
	}
}

// Filter returns the notes whose title or content contains query, ignoring
// case. An empty query matches everything.
func Filter(notes []models.Note, query string) []models.Note {
	if query == "" {
		out := make([]models.Note, len(notes))
		copy(out, notes)
		return out
	}

	q := strings.ToLower(query)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if matches(n, q) {
			out = append(out, n)
		}
	}
	return out
}

// Suggest returns up to limit distinct titles of matching notes in the order
// they appear in the collection.
func Suggest(notes []models.Note, query string, limit int) []string {
	if query == "" || limit <= 0 {
		return []string{}
	}

	q := strings.ToLower(query)
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	for _, n := range notes {
		if !matches(n, q) {
			continue
		}
		if _, dup := seen[n.Title]; dup {
			continue
		}
		seen[n.Title] = struct{}{}
		out = append(out, n.Title)
		if len(out) == limit {
			break
		}
	}
	return out
}

// q must already be lower-cased.
func matches(n models.Note, q string) bool {
	return strings.Contains(strings.ToLower(n.Title), q) ||
		strings.Contains(strings.ToLower(n.Content), q)
}
