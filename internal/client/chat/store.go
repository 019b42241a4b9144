// Package chat holds per-document conversations and simulates a streamed
// assistant answer for each question.
package chat

import (
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
)

// Store owns conversations and the single in-flight streaming state.
type Store struct {
	mu         sync.Mutex
	convs      models.Conversations
	streaming  models.StreamingState
	active     bool
	errorDocID string
	onChange   func(models.Conversations)
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{convs: models.Conversations{}, now: time.Now}
}

// SetOnChange registers a hook fired with a copy of the conversations after
// every change to them. Streaming progress does not fire it.
func (s *Store) SetOnChange(fn func(models.Conversations)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load replaces all conversations; streaming state starts empty.
func (s *Store) Load(c models.Conversations) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = cloneConvs(c)
	s.streaming = models.StreamingState{}
	s.active = false
	s.errorDocID = ""
}

func cloneConvs(c models.Conversations) models.Conversations {
	out := make(models.Conversations, len(c))
	for id, msgs := range c {
		out[id] = append([]models.Message(nil), msgs...)
	}
	return out
}

func (s *Store) changedLocked() {
	if s.onChange != nil {
		s.onChange(cloneConvs(s.convs))
	}
}

func (s *Store) AddUserMessage(docID string, m models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[docID] = append(s.convs[docID], m)
	s.errorDocID = ""
	s.changedLocked()
}

func (s *Store) StartStreaming(docID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = models.StreamingState{DocID: docID, MessageID: messageID}
	s.active = true
	s.errorDocID = ""
}

// Append adds a chunk to the in-flight answer. Chunks for any other
// message are dropped.
func (s *Store) Append(messageID, chunk string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.streaming.MessageID != messageID {
		return false
	}
	s.streaming.Content += chunk
	return true
}

// Finalize commits the streamed answer. Empty content is discarded.
func (s *Store) Finalize(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || s.streaming.MessageID != messageID {
		return
	}
	st := s.streaming
	s.streaming = models.StreamingState{}
	s.active = false
	if st.DocID == "" || st.Content == "" {
		return
	}
	s.convs[st.DocID] = append(s.convs[st.DocID], models.Message{
		ID:        st.MessageID,
		Role:      models.RoleAssistant,
		Content:   st.Content,
		Timestamp: s.now().UnixMilli(),
	})
	s.changedLocked()
}

// Cancel discards the partial answer.
func (s *Store) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = models.StreamingState{}
	s.active = false
}

// Discard is Cancel limited to one message.
func (s *Store) Discard(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streaming.MessageID == messageID {
		s.streaming = models.StreamingState{}
		s.active = false
	}
}

func (s *Store) SetStreamingError(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = models.StreamingState{}
	s.active = false
	s.errorDocID = docID
}

// ClearConversation empties one document's history and stops a stream
// targeting it.
func (s *Store) ClearConversation(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[docID] = []models.Message{}
	if s.streaming.DocID == docID {
		s.streaming = models.StreamingState{}
		s.active = false
	}
	s.changedLocked()
}

// Drop removes a document's conversation entirely.
func (s *Store) Drop(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[docID]; !ok {
		return
	}
	delete(s.convs, docID)
	s.changedLocked()
}

func (s *Store) ClearError() {
	s.mu.Lock()
	s.errorDocID = ""
	s.mu.Unlock()
}

func (s *Store) Messages(docID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.convs[docID]...)
}

func (s *Store) Conversations() models.Conversations {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConvs(s.convs)
}

// Streaming returns the in-flight state and whether anything is streaming.
func (s *Store) Streaming() (models.StreamingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming, s.active
}

func (s *Store) ErrorDocID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorDocID
}
