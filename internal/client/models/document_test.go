package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to DocumentStatus
		want     bool
	}{
		{StatusUploading, StatusProcessing, true},
		{StatusProcessing, StatusReady, true},
		{StatusProcessing, StatusError, true},
		{StatusRestoring, StatusReady, true},
		{StatusRestoring, StatusUploading, true},
		{StatusRestoring, StatusError, true},
		{StatusReady, StatusProcessing, false},
		{StatusError, StatusReady, false},
		{StatusUploading, StatusReady, false},
		{StatusReady, StatusRestoring, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestDocumentStatus_TerminalAndHandle(t *testing.T) {
	assert.True(t, StatusReady.Terminal())
	assert.True(t, StatusError.Terminal())
	assert.False(t, StatusRestoring.Terminal())

	assert.True(t, StatusUploading.HasHandle())
	assert.True(t, StatusReady.HasHandle())
	assert.False(t, StatusRestoring.HasHandle())
	assert.False(t, StatusError.HasHandle())
}

func TestDocument_CloneIsDeep(t *testing.T) {
	title := "Report"
	d := &Document{ID: "a", Metadata: &DocumentMetadata{Title: &title, PageCount: 3}}
	c := d.Clone()
	c.Metadata.PageCount = 9
	assert.Equal(t, 3, d.Metadata.PageCount)
	assert.Nil(t, (*Document)(nil).Clone())
}

func TestCollection_JSONNullActive(t *testing.T) {
	b, err := json.Marshal(NewCollection())
	require.NoError(t, err)
	assert.JSONEq(t, `{"files":{},"activeDocumentId":null}`, string(b))

	var c Collection
	require.NoError(t, json.Unmarshal([]byte(`{"files":{"x":{"id":"x","status":"ready"}},"activeDocumentId":"x"}`), &c))
	assert.Equal(t, "x", c.ActiveDocumentID)
	assert.Equal(t, StatusReady, c.Files["x"].Status)

	require.Error(t, json.Unmarshal([]byte(`{"activeDocumentId":null}`), &c))
}
