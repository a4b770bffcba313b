package notes

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/xaenox/scribly/internal/models"
)

func TestFilter(t *testing.T) {
	collection := []models.Note{
		{ID: "1", Title: "Grocery List", Content: "milk eggs"},
		{ID: "2", Title: "Ideas", Content: "buy a GROCERY bag"},
		{ID: "3", Title: "Travel", Content: "passport"},
	}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "empty query keeps everything", query: "", want: []string{"1", "2", "3"}},
		{name: "title match ignores case", query: "groc", want: []string{"1", "2"}},
		{name: "content match", query: "passport", want: []string{"3"}},
		{name: "no match", query: "zebra", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(collection, tt.query)))
		})
	}
}

func TestSuggest(t *testing.T) {
	collection := []models.Note{
		{ID: "1", Title: "Plan"},
		{ID: "2", Title: "plan b"},
		{ID: "3", Title: "Plan"},
		{ID: "4", Title: "Planet"},
		{ID: "5", Title: "Plans"},
		{ID: "6", Title: "Planning"},
		{ID: "7", Title: "Planner"},
		{ID: "8", Title: "Other", Content: "no plan here"},
	}

	assert.Equal(t, []string{}, Suggest(collection, "", MaxSuggestions))
	assert.Equal(t,
		[]string{"Plan", "plan b", "Planet", "Plans", "Planning"},
		Suggest(collection, "PLAN", MaxSuggestions))
	assert.Equal(t, []string{"Other"}, Suggest(collection, "here", MaxSuggestions))
}

func TestDeriveGroceryScenario(t *testing.T) {
	collection := []models.Note{
		{ID: "1", Title: "Grocery List", Content: "milk eggs", IsPublic: false},
	}

	view := Derive(collection, "groc")

	assert.Equal(t, collection, view.Notes)
	assert.Equal(t, []string{"Grocery List"}, view.Suggestions)
}

func genNotes() *rapid.Generator[[]models.Note] {
	titles := rapid.SampledFrom([]string{"Alpha", "alpha", "Beta", "Gamma", "Delta", "Epsilon", "Zeta", "Eta"})
	return rapid.Custom(func(t *rapid.T) []models.Note {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		out := make([]models.Note, n)
		for i := range out {
			out[i] = models.Note{
				ID:      fmt.Sprint(i),
				Title:   titles.Draw(t, "title"),
				Content: rapid.StringMatching(`[a-e ]{0,8}`).Draw(t, "content"),
			}
		}
		return out
	})
}

func TestFilterEmptyQueryIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		collection := genNotes().Draw(t, "notes")
		got := Filter(collection, "")
		if len(got) != len(collection) {
			t.Fatalf("got %d notes, want %d", len(got), len(collection))
		}
		for i := range got {
			if got[i] != collection[i] {
				t.Fatalf("note %d changed: %v != %v", i, got[i], collection[i])
			}
		}
	})
}

func TestSuggestBoundedAndDistinct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		collection := genNotes().Draw(t, "notes")
		query := rapid.StringMatching(`[a-eA-E]{0,3}`).Draw(t, "query")

		got := Suggest(collection, query, MaxSuggestions)
		if len(got) > MaxSuggestions {
			t.Fatalf("got %d suggestions", len(got))
		}
		seen := map[string]bool{}
		for _, s := range got {
			if seen[s] {
				t.Fatalf("duplicate suggestion %q in %v", s, got)
			}
			seen[s] = true
		}
	})
}
