package store

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrMissingID = errors.New("document has no id")

// DocumentID reads the "id" field of a document. Numeric ids are
// returned in their literal form.
func DocumentID(doc json.RawMessage) (string, error) {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(doc, &head); err != nil {
		return "", err
	}
	raw := strings.TrimSpace(string(head.ID))
	if raw == "" || raw == "null" {
		return "", ErrMissingID
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(head.ID, &s); err != nil {
			return "", err
		}
		if s == "" {
			return "", ErrMissingID
		}
		return s, nil
	}
	return raw, nil
}
