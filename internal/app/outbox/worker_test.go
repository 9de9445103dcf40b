package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubStore struct {
	docs []*EventDocument
}

func (s *stubStore) Append(ctx context.Context, doc *EventDocument) error {
	s.docs = append(s.docs, doc)
	return nil
}

func (s *stubStore) Claim(ctx context.Context, workerID string) (*EventDocument, error) {
	now := time.Now()
	for _, doc := range s.docs {
		if doc.Status == StatusSent || doc.ClaimedBy != "" {
			continue
		}
		if !doc.NextAttempt.IsZero() && doc.NextAttempt.After(now) {
			continue
		}
		doc.ClaimedBy = workerID
		doc.Attempts++
		return doc, nil
	}
	return nil, nil
}

func (s *stubStore) MarkSent(ctx context.Context, id string) error {
	for _, doc := range s.docs {
		if doc.ID == id {
			doc.Status = StatusSent
			doc.ClaimedBy = ""
			return nil
		}
	}
	return errors.New("not found")
}

func (s *stubStore) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	for _, doc := range s.docs {
		if doc.ID == id {
			doc.Status = StatusFailed
			doc.NextAttempt = retryAt
			doc.LastError = reason
			doc.ClaimedBy = ""
			return nil
		}
	}
	return errors.New("not found")
}

type stubProducer struct {
	topics   []string
	keys     []string
	payloads [][]byte
	headers  []map[string]string
	err      error
}

func (p *stubProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, payload)
	p.headers = append(p.headers, headers)
	return nil
}

func pendingEvent(id, name string) *EventDocument {
	return &EventDocument{
		ID:         id,
		Name:       name,
		Aggregate:  "conversation:conv-1",
		Payload:    []byte(`{"id":"m-1","content":"hi"}`),
		OccurredAt: time.Now().UTC(),
		Status:     StatusPending,
	}
}

func TestWorkerPublishesAndMarksSent(t *testing.T) {
	store := &stubStore{}
	require.NoError(t, store.Append(context.Background(), pendingEvent("evt-1", "chat.message_sent")))

	producer := &stubProducer{}
	w := &Worker{Store: store, Producer: producer, ID: "worker-1", Source: "app://valikoo-test"}

	require.NoError(t, w.processOnce(context.Background()))

	require.Equal(t, []string{"chat.events.v1"}, producer.topics)
	require.Equal(t, []string{"conversation:conv-1"}, producer.keys)
	require.Equal(t, StatusSent, store.docs[0].Status)

	var envelope map[string]any
	require.NoError(t, json.Unmarshal(producer.payloads[0], &envelope))
	require.Equal(t, "1.0", envelope["specversion"])
	require.Equal(t, "chat.message_sent.v1", envelope["type"])
	require.Equal(t, "app://valikoo-test", envelope["source"])
	data, ok := envelope["data"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "hi", data["content"])
	require.Equal(t, "application/cloudevents+json", producer.headers[0]["content-type"])
}

func TestWorkerTopicPrefix(t *testing.T) {
	store := &stubStore{}
	require.NoError(t, store.Append(context.Background(), pendingEvent("evt-1", "product.created")))

	producer := &stubProducer{}
	w := &Worker{Store: store, Producer: producer, ID: "worker-1", TopicPrefix: "valikoo."}

	require.NoError(t, w.processOnce(context.Background()))
	require.Equal(t, []string{"valikoo.product.events.v1"}, producer.topics)
}

func TestWorkerRetriesWithBackoff(t *testing.T) {
	store := &stubStore{}
	require.NoError(t, store.Append(context.Background(), pendingEvent("evt-1", "product.created")))

	producer := &stubProducer{err: errors.New("broker unavailable")}
	w := &Worker{
		Store:    store,
		Producer: producer,
		ID:       "worker-1",
		Backoff:  []time.Duration{time.Minute, 5 * time.Minute},
	}

	require.NoError(t, w.processOnce(context.Background()))

	doc := store.docs[0]
	require.Equal(t, StatusFailed, doc.Status)
	require.Equal(t, 1, doc.Attempts)
	require.Contains(t, doc.LastError, "broker unavailable")
	require.True(t, doc.NextAttempt.After(time.Now()))

	// Not due yet: nothing to claim, nothing published.
	require.NoError(t, w.processOnce(context.Background()))
	require.Empty(t, producer.topics)

	// Once due, a healthy broker drains it.
	doc.NextAttempt = time.Now().Add(-time.Second)
	producer.err = nil
	require.NoError(t, w.processOnce(context.Background()))
	require.Equal(t, StatusSent, doc.Status)
	require.Equal(t, 2, doc.Attempts)
}

func TestWorkerEmptyStoreIsNoop(t *testing.T) {
	w := &Worker{Store: &stubStore{}, Producer: &stubProducer{}, ID: "worker-1"}
	require.NoError(t, w.processOnce(context.Background()))
}

func TestWorkerRunRequiresDependencies(t *testing.T) {
	w := &Worker{}
	require.ErrorIs(t, w.Run(context.Background()), ErrWorkerNotConfigured)
}

func TestAppenderRecordsEvent(t *testing.T) {
	store := &stubStore{}
	a := &Appender{Store: store}

	a.Record(context.Background(), "chat.message_sent", "conversation:conv-9", map[string]string{"id": "m-9"})

	require.Len(t, store.docs, 1)
	doc := store.docs[0]
	require.Equal(t, "chat.message_sent", doc.Name)
	require.Equal(t, "conversation:conv-9", doc.Aggregate)
	require.Equal(t, StatusPending, doc.Status)
	require.NotEmpty(t, doc.ID)
	require.JSONEq(t, `{"id":"m-9"}`, string(doc.Payload))
}
