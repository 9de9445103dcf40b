package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	appoutbox "valikoo/internal/app/outbox"
)

// OutboxStore keeps pending events in memory until a worker drains them.
type OutboxStore struct {
	mu   sync.Mutex
	docs []*appoutbox.EventDocument
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) Append(ctx context.Context, doc *appoutbox.EventDocument) error {
	if doc == nil || doc.ID == "" {
		return errors.New("outbox: event id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copyDoc := *doc
	s.docs = append(s.docs, &copyDoc)
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*appoutbox.EventDocument, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.Status != appoutbox.StatusPending && doc.Status != appoutbox.StatusFailed {
			continue
		}
		if !doc.NextAttempt.IsZero() && doc.NextAttempt.After(now) {
			continue
		}
		if doc.ClaimedBy != "" {
			continue
		}
		doc.ClaimedBy = workerID
		doc.Attempts++
		copyDoc := *doc
		return &copyDoc, nil
	}
	return nil, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.ID == id {
			doc.Status = appoutbox.StatusSent
			doc.ClaimedBy = ""
			return nil
		}
	}
	return errors.New("outbox: event not found")
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.ID == id {
			doc.Status = appoutbox.StatusFailed
			doc.NextAttempt = retryAt
			doc.LastError = reason
			doc.ClaimedBy = ""
			return nil
		}
	}
	return errors.New("outbox: event not found")
}

var _ appoutbox.Store = (*OutboxStore)(nil)
