package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainrequest "valikoo/internal/domain/request"
)

func seedRequest(t *testing.T, repo *RequestRepository, id, buyerID, travelerID, status string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, repo.Save(context.Background(), &domainrequest.Request{
		ID:         id,
		ProductID:  "prod-1",
		BuyerID:    buyerID,
		TravelerID: travelerID,
		Quantity:   1,
		Status:     status,
		CreatedAt:  createdAt,
	}))
}

func TestRequestListEitherSide(t *testing.T) {
	repo := NewRequestRepository()
	now := time.Now().UTC()
	seedRequest(t, repo, "req-1", "alice", "bob", domainrequest.StatusPending, now)
	seedRequest(t, repo, "req-2", "carol", "alice", domainrequest.StatusPending, now.Add(time.Minute))
	seedRequest(t, repo, "req-3", "carol", "bob", domainrequest.StatusPending, now.Add(2*time.Minute))

	// Alice is buyer on req-1 and traveler on req-2.
	out, err := repo.List(context.Background(), domainrequest.Filter{BuyerID: "alice", TravelerID: "alice"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	// Newest first.
	require.Equal(t, "req-2", out[0].ID)
	require.Equal(t, "req-1", out[1].ID)

	out, err = repo.List(context.Background(), domainrequest.Filter{BuyerID: "carol"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	count, err := repo.Count(context.Background(), domainrequest.Filter{TravelerID: "bob", Status: domainrequest.StatusPending})
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRequestRespondTransitions(t *testing.T) {
	repo := NewRequestRepository()
	now := time.Now().UTC()
	seedRequest(t, repo, "req-1", "alice", "bob", domainrequest.StatusPending, now)

	req, err := repo.ByID(context.Background(), "req-1")
	require.NoError(t, err)

	require.ErrorIs(t, req.Respond("mallory", domainrequest.StatusAccepted, now), domainrequest.ErrNotTraveler)
	require.ErrorIs(t, req.Respond("bob", "bogus", now), domainrequest.ErrInvalidStatus)

	require.NoError(t, req.Respond("bob", domainrequest.StatusAccepted, now))
	require.Equal(t, domainrequest.StatusAccepted, req.Status)
	require.False(t, req.RespondedAt.IsZero())

	require.NoError(t, repo.Save(context.Background(), req))
	stored, err := repo.ByID(context.Background(), "req-1")
	require.NoError(t, err)
	require.Equal(t, domainrequest.StatusAccepted, stored.Status)
}
