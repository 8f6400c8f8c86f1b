package progress

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrImportFormat reports a progress document that cannot be read.
var ErrImportFormat = errors.New("invalid progress document")

// Document is the persisted, imported and exported shape of a Progress.
type Document struct {
	When     *time.Time
	Approved []string
	Taking   []string
}

// NewDocument snapshots p. A nil when leaves the timestamp out.
func NewDocument(p Progress, when *time.Time) Document {
	return Document{When: when, Approved: p.Approved(), Taking: p.Taking()}
}

// Progress converts the document back into a Progress.
func (d Document) Progress() Progress {
	return New(d.Approved, d.Taking)
}

type documentJSON struct {
	When     *time.Time `json:"when,omitempty"`
	Approved []string   `json:"aprobadas"`
	Taking   []string   `json:"cursando"`
}

// MarshalJSON writes the document with the field names existing exports
// use: when, aprobadas, cursando.
func (d Document) MarshalJSON() ([]byte, error) {
	out := documentJSON{When: d.When, Approved: d.Approved, Taking: d.Taking}
	if out.Approved == nil {
		out.Approved = []string{}
	}
	if out.Taking == nil {
		out.Taking = []string{}
	}
	return json.Marshal(out)
}

var (
	approvedKeys = []string{"aprobadas", "approved"}
	takingKeys   = []string{"cursando", "taking"}
)

// UnmarshalJSON accepts both the Spanish and English list names. Missing
// lists are empty; a list that is not an array of strings is an error.
func (d *Document) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return errors.New("document is null")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var doc Document
	var err error
	if doc.Approved, err = idList(raw, approvedKeys); err != nil {
		return err
	}
	if doc.Taking, err = idList(raw, takingKeys); err != nil {
		return err
	}
	if w, ok := raw["when"]; ok {
		var when time.Time
		if json.Unmarshal(w, &when) == nil {
			doc.When = &when
		}
	}
	*d = doc
	return nil
}

func idList(raw map[string]json.RawMessage, keys []string) ([]string, error) {
	for _, key := range keys {
		msg, ok := raw[key]
		if !ok || bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var ids []string
		if err := json.Unmarshal(msg, &ids); err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return ids, nil
	}
	return nil, nil
}

// ParseDocument decodes a progress document. Errors wrap ErrImportFormat.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrImportFormat, err)
	}
	return doc, nil
}
