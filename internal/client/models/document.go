// Package models defines client-side data models shared by the docvault
// storage, lifecycle and chat layers.
package models

import (
	"encoding/json"
	"errors"
)

// DocumentStatus is the lifecycle state of one imported document.
type DocumentStatus string

const (
	StatusUploading  DocumentStatus = "uploading"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusError      DocumentStatus = "error"
	StatusRestoring  DocumentStatus = "restoring"
)

// transitions lists every legal status change. Anything absent is rejected.
var transitions = map[DocumentStatus][]DocumentStatus{
	StatusUploading:  {StatusProcessing, StatusError},
	StatusProcessing: {StatusReady, StatusError},
	StatusRestoring:  {StatusReady, StatusProcessing, StatusUploading, StatusError},
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to DocumentStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s. ready and error are
// terminal for a given id absent user action.
func (s DocumentStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// HasHandle reports whether a document in this status owns a live handle.
func (s DocumentStatus) HasHandle() bool {
	switch s {
	case StatusUploading, StatusProcessing, StatusReady:
		return true
	default:
		return false
	}
}

// DocumentMetadata is what the extractor learned about a PDF. Optional
// string fields are nil when the document does not carry them.
type DocumentMetadata struct {
	Title        *string `json:"title"`
	Author       *string `json:"author"`
	Subject      *string `json:"subject"`
	Keywords     *string `json:"keywords"`
	Creator      *string `json:"creator"`
	Producer     *string `json:"producer"`
	CreationDate *string `json:"creationDate"`
	ModDate      *string `json:"modDate"`
	PDFVersion   *string `json:"pdfVersion"`
	PageCount    int     `json:"pageCount"`
	FileSize     int64   `json:"fileSize"`
}

// Document is one imported file. DisplayRef is derived from the live handle
// held by the handle registry and is never meaningful across restarts.
type Document struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Size        int64             `json:"size"`
	PageCount   int               `json:"pageCount"`
	DisplayRef  string            `json:"objectUrl"`
	Status      DocumentStatus    `json:"status"`
	Metadata    *DocumentMetadata `json:"metadata"`
	Error       string            `json:"error,omitempty"`
	IsCorrupted bool              `json:"isCorrupted"`
	UploadedAt  int64             `json:"uploadedAt"`
}

// Clone returns a deep copy so callers never alias store-owned state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.Metadata != nil {
		m := *d.Metadata
		c.Metadata = &m
	}
	return &c
}

// Collection is the full set of known documents plus the active selection.
// An empty ActiveDocumentID means nothing is selected.
type Collection struct {
	Files            map[string]*Document
	ActiveDocumentID string
}

func NewCollection() Collection {
	return Collection{Files: make(map[string]*Document)}
}

// Clone deep-copies the collection.
func (c Collection) Clone() Collection {
	out := Collection{Files: make(map[string]*Document, len(c.Files)), ActiveDocumentID: c.ActiveDocumentID}
	for id, d := range c.Files {
		out.Files[id] = d.Clone()
	}
	return out
}

var errMissingFiles = errors.New("collection: missing files")

type collectionJSON struct {
	Files            map[string]*Document `json:"files"`
	ActiveDocumentID *string              `json:"activeDocumentId"`
}

// MarshalJSON writes an empty active id as JSON null.
func (c Collection) MarshalJSON() ([]byte, error) {
	a := collectionJSON{Files: c.Files}
	if a.Files == nil {
		a.Files = map[string]*Document{}
	}
	if c.ActiveDocumentID != "" {
		id := c.ActiveDocumentID
		a.ActiveDocumentID = &id
	}
	return json.Marshal(a)
}

func (c *Collection) UnmarshalJSON(b []byte) error {
	var a collectionJSON
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	if a.Files == nil {
		return errMissingFiles
	}
	c.Files = a.Files
	c.ActiveDocumentID = ""
	if a.ActiveDocumentID != nil {
		c.ActiveDocumentID = *a.ActiveDocumentID
	}
	return nil
}

// BlobEnvelope is the durable form of a document's binary content.
type BlobEnvelope struct {
	Name         string
	Type         string
	LastModified int64
	Buffer       []byte
}
