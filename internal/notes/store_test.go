package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/xaenox/scribly/internal/models"
)

func note(id, title string) models.Note {
	return models.Note{ID: id, Title: title}
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestStoreReplaceAll(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(note("old", "Old")))

	err := s.ReplaceAll([]models.Note{
		note("1", "One"),
		note("", "No id"),
		note("2", "Two"),
		note("1", "One again"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, ids(s.Notes()))
	got, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, "One", got.Title)
}

func TestStoreInsert(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(note("1", "One")))
	require.NoError(t, s.Insert(note("2", "Two")))

	assert.ErrorIs(t, s.Insert(note("1", "Dup")), ErrDuplicateID)
	assert.ErrorIs(t, s.Insert(note("", "Nothing")), ErrMissingID)
	assert.Equal(t, []string{"1", "2"}, ids(s.Notes()))
}

func TestStoreReplaceKeepsPosition(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.ReplaceAll([]models.Note{note("a", "A"), note("b", "B"), note("c", "C")}))

	require.NoError(t, s.Replace("b", models.Note{ID: "ignored", Title: "B2", Content: "body"}))

	got := s.Notes()
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
	assert.Equal(t, "B2", got[1].Title)
	assert.Equal(t, "body", got[1].Content)

	assert.ErrorIs(t, s.Replace("zzz", note("zzz", "Z")), ErrNotFound)
	assert.Equal(t, 3, s.Len())
}

func TestStoreRemove(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.ReplaceAll([]models.Note{note("a", "A"), note("b", "B")}))

	removed, err := s.Remove("a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove("a")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []string{"b"}, ids(s.Notes()))
}

func TestStoreClosedRejectsMutations(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(note("a", "A")))
	s.Close()

	assert.False(t, s.Live())
	assert.Equal(t, 0, s.Len())
	assert.ErrorIs(t, s.Insert(note("b", "B")), ErrClosed)
	assert.ErrorIs(t, s.Replace("a", note("a", "A2")), ErrClosed)
	assert.ErrorIs(t, s.ReplaceAll([]models.Note{note("c", "C")}), ErrClosed)
	_, err := s.Remove("a")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStoreNotesReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Insert(note("a", "A")))

	got := s.Notes()
	got[0].Title = "mutated"

	stored, _ := s.Get("a")
	assert.Equal(t, "A", stored.Title)
}

func TestStoreIDsStayUnique(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		idGen := rapid.SampledFrom([]string{"1", "2", "3", "4", "5"})

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := idGen.Draw(t, "id")
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_ = s.Insert(note(id, "t"+id))
			case 1:
				before := ids(s.Notes())
				if err := s.Replace(id, note(id, "r"+id)); err == nil {
					if !assert.ObjectsAreEqual(before, ids(s.Notes())) {
						t.Fatalf("replace moved %s: %v -> %v", id, before, ids(s.Notes()))
					}
				}
			case 2:
				_, _ = s.Remove(id)
			case 3:
				batch := rapid.SliceOfN(idGen, 0, 8).Draw(t, "batch")
				notes := make([]models.Note, len(batch))
				for j, b := range batch {
					notes[j] = note(b, "b"+b)
				}
				_ = s.ReplaceAll(notes)
			}

			seen := map[string]bool{}
			for _, n := range s.Notes() {
				if n.ID == "" || seen[n.ID] {
					t.Fatalf("store holds invalid or duplicate id %q: %v", n.ID, ids(s.Notes()))
				}
				seen[n.ID] = true
			}
		}
	})
}
