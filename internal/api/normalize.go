package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/xaenox/scribly/internal/models"
)

// Envelope keys, tried in order.
var (
	listKeys  = []string{"notes", "data"}
	noteKeys  = []string{"note", "data"}
	tokenKeys = []string{"token", "accessToken"}
)

var errEmptyPayload = errors.New("empty payload")

var validate = validator.New()

// wireNote accepts both id spellings the service has used.
type wireNote struct {
	MongoID  string `json:"_id"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsPublic bool   `json:"isPublic"`
}

func (w wireNote) note() models.Note {
	id := w.MongoID
	if id == "" {
		id = w.ID
	}
	return models.Note{ID: id, Title: w.Title, Content: w.Content, IsPublic: w.IsPublic}
}

// decodeNoteList finds the note array in a list response: the payload
// itself, then under "notes", then under "data" (which may hold "notes").
func decodeNoteList(body []byte) ([]models.Note, error) {
	raw, err := findArray(body, 2)
	if err != nil {
		return nil, err
	}

	var wire []wireNote
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("decoding notes: %w", err)
	}
	out := make([]models.Note, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.note())
	}
	return out, nil
}

func findArray(body []byte, depth int) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyPayload
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	empty := false
	if depth > 0 {
		for _, key := range listKeys {
			v, ok := obj[key]
			if !ok {
				continue
			}
			if isNull(v) {
				// an empty collection serialized from a nil slice
				empty = true
				continue
			}
			if raw, err := findArray(v, depth-1); err == nil {
				return raw, nil
			}
		}
	}
	if empty {
		return json.RawMessage("[]"), nil
	}
	return nil, errors.New("no note list in payload")
}

// decodeNote unwraps a single-note response: "note", then "data", then the
// payload itself. The result is not validated.
func decodeNote(body []byte) (models.Note, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return models.Note{}, errEmptyPayload
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return models.Note{}, fmt.Errorf("decoding payload: %w", err)
	}

	raw := json.RawMessage(trimmed)
	for _, key := range noteKeys {
		if v, ok := obj[key]; ok && isObject(v) {
			raw = v
			break
		}
	}

	var w wireNote
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Note{}, fmt.Errorf("decoding note: %w", err)
	}
	return w.note(), nil
}

// validNote checks the fields every stored note must carry.
func validNote(n models.Note) error {
	return validate.Struct(n)
}

// ValidateDraft rejects drafts the service would refuse anyway.
func ValidateDraft(d models.Draft) error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			switch verrs[0].Tag() {
			case "required":
				return errors.New("a note needs a title")
			case "max":
				return fmt.Errorf("title is too long (max %s characters)", verrs[0].Param())
			}
		}
		return err
	}
	return nil
}

// decodeToken extracts the credential from a login response body.
func decodeToken(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return ""
	}
	for _, key := range tokenKeys {
		var s string
		if v, ok := obj[key]; ok && json.Unmarshal(v, &s) == nil && s != "" {
			return s
		}
	}
	if data, ok := obj["data"]; ok && isObject(data) {
		return decodeToken(data)
	}
	return ""
}

// decodeMessage pulls a human readable error out of a failure body.
func decodeMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
