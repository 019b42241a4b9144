package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/docvault/internal/client/models"
	"github.com/dmitrijs2005/docvault/internal/client/retry"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrEmptyQuestion = errors.New("empty question")
	ErrAborted       = errors.New("response aborted")
)

// Querier asks the backend about a document.
type Querier interface {
	Query(ctx context.Context, accessToken, docID, question string) (string, error)
}

// Doer runs an authenticated call, refreshing credentials as needed.
type Doer interface {
	Do(ctx context.Context, call retry.Call) error
}

type Service struct {
	store    *Store
	streamer *Streamer
	querier  Querier
	doer     Doer
	log      logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	current string
}

func NewService(store *Store, streamer *Streamer, querier Querier, doer Doer, log logging.Logger) *Service {
	return &Service{store: store, streamer: streamer, querier: querier, doer: doer, log: log, now: time.Now}
}

// Send records question, fetches an answer and streams it into the store.
// onChunk, if set, sees every chunk as it arrives. The call returns once the
// answer is committed, the query fails or the response is aborted.
func (s *Service) Send(ctx context.Context, docID, question string, onChunk func(string)) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}

	s.store.AddUserMessage(docID, models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   question,
		Timestamp: s.now().UnixMilli(),
	})

	messageID := uuid.NewString()
	s.store.StartStreaming(docID, messageID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.swapCancel(messageID, cancel)
	defer s.clearCancel(messageID)

	var answer string
	err := s.doer.Do(ctx, func(ctx context.Context, token string) error {
		var qerr error
		answer, qerr = s.querier.Query(ctx, token, docID, question)
		return qerr
	})
	if err != nil {
		if ctx.Err() != nil {
			s.store.Discard(messageID)
			return ErrAborted
		}
		s.log.Error(ctx, "query failed", "doc_id", docID, "err", err)
		s.store.SetStreamingError(docID)
		return fmt.Errorf("query: %w", err)
	}

	for chunk := range s.streamer.Stream(ctx, answer) {
		if ctx.Err() != nil {
			break
		}
		if !s.store.Append(messageID, chunk) {
			cancel()
			break
		}
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if ctx.Err() != nil {
		s.store.Discard(messageID)
		return ErrAborted
	}

	s.store.Finalize(messageID)
	return nil
}

// swapCancel makes messageID the current answer, stopping any older one.
func (s *Service) swapCancel(messageID string, cancel context.CancelFunc) {
	s.mu.Lock()
	prev := s.cancel
	s.cancel, s.current = cancel, messageID
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

func (s *Service) clearCancel(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == messageID {
		s.cancel, s.current = nil, ""
	}
}

// Abort stops the in-flight answer. Nothing partial is committed.
func (s *Service) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel, s.current = nil, ""
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.store.Cancel()
}
