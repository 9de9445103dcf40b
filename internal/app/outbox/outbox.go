package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// EventDocument is one domain event waiting to be published.
type EventDocument struct {
	ID          string
	Name        string
	Aggregate   string
	Payload     []byte
	Headers     map[string]string
	OccurredAt  time.Time
	Attempts    int
	Status      string
	NextAttempt time.Time
	LastError   string
	ClaimedBy   string
}

// Store persists outbox events. Claim hands one due pending event to a worker
// at a time.
type Store interface {
	Append(ctx context.Context, doc *EventDocument) error
	Claim(ctx context.Context, workerID string) (*EventDocument, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error
}

// Appender records domain events after the triggering write commits. Failures
// are logged, never propagated: event publishing must not fail the request.
type Appender struct {
	Store  Store
	Logger *slog.Logger
}

func (a *Appender) Record(ctx context.Context, name, aggregate string, data any) {
	if a == nil || a.Store == nil {
		return
	}
	payload, err := json.Marshal(data)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Warn("outbox encode failed", "event", name, "error", err)
		}
		return
	}
	doc := &EventDocument{
		ID:         uuid.NewString(),
		Name:       name,
		Aggregate:  aggregate,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
		Status:     StatusPending,
	}
	if err := a.Store.Append(ctx, doc); err != nil && a.Logger != nil {
		a.Logger.Warn("outbox append failed", "event", name, "error", err)
	}
}
