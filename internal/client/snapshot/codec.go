// Package snapshot converts the in-memory document collection to and from
// its durable projection. Display refs never cross the boundary, and every
// status except error comes back as restoring.
package snapshot

import (
	"encoding/json"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// ToSnapshot strips the handle-derived display ref from every record.
func ToSnapshot(c models.Collection) models.Collection {
	out := c.Clone()
	for _, d := range out.Files {
		if d != nil {
			d.DisplayRef = ""
		}
	}
	return out
}

// FromSnapshot prepares a decoded collection for restoration: display refs
// are cleared and anything not confirmed broken must prove itself again.
func FromSnapshot(raw models.Collection) models.Collection {
	out := raw.Clone()
	for id, d := range out.Files {
		if d == nil {
			delete(out.Files, id)
			continue
		}
		d.DisplayRef = ""
		if d.Status != models.StatusError {
			d.Status = models.StatusRestoring
		}
	}
	if _, ok := out.Files[out.ActiveDocumentID]; !ok {
		out.ActiveDocumentID = ""
	}
	return out
}

func Encode(c models.Collection) ([]byte, error) {
	return json.Marshal(ToSnapshot(c))
}

// Decode reports false when nothing usable was stored; callers start from an
// empty collection in that case.
func Decode(b []byte) (models.Collection, bool) {
	if len(b) == 0 {
		return models.NewCollection(), false
	}
	var raw models.Collection
	if err := json.Unmarshal(b, &raw); err != nil {
		return models.NewCollection(), false
	}
	return FromSnapshot(raw), true
}

func EncodeConversations(c models.Conversations) ([]byte, error) {
	if c == nil {
		c = models.Conversations{}
	}
	return json.Marshal(c)
}

// DecodeConversations never fails; bad input yields an empty mapping.
func DecodeConversations(b []byte) models.Conversations {
	out := models.Conversations{}
	if len(b) == 0 {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil || out == nil {
		return models.Conversations{}
	}
	return out
}
