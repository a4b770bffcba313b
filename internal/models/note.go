package models

// Note is a persisted title/content/visibility record. ID is assigned by the
// remote service and is empty until a create has been confirmed.
type Note struct {
	ID       string `json:"id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

// Draft is unsaved form state. An empty EditingID means the draft is a
// pending creation.
type Draft struct {
	Title     string `json:"title" validate:"required,max=200"`
	Content   string `json:"content"`
	IsPublic  bool   `json:"isPublic"`
	EditingID string `json:"-"`
}

// DraftFrom loads an existing note into the form for editing.
func DraftFrom(n Note) Draft {
	return Draft{
		Title:     n.Title,
		Content:   n.Content,
		IsPublic:  n.IsPublic,
		EditingID: n.ID,
	}
}

// Editing reports whether the draft is bound to an existing note.
func (d Draft) Editing() bool {
	return d.EditingID != ""
}

// Note returns the note the draft would become under the given id.
func (d Draft) Note(id string) Note {
	return Note{
		ID:       id,
		Title:    d.Title,
		Content:  d.Content,
		IsPublic: d.IsPublic,
	}
}
