package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(id string) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:             id,
		Title:          "Annual audit",
		Status:         models.OpenRequest,
		CreatorID:      "seeker-1",
		OrganizationID: "org-1",
		CreatedAt:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemoryRepository_SaveServiceRequestVersions(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()

	sr := newRequest("sr-1")
	require.NoError(t, repo.SaveServiceRequest(ctx, sr))
	assert.Equal(t, 1, sr.Version)

	dup := newRequest("sr-1")
	err := repo.SaveServiceRequest(ctx, dup)
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	first, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)
	second, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)

	first.Title = "Audit FY2025"
	require.NoError(t, repo.SaveServiceRequest(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Title = "Stale write"
	err = repo.SaveServiceRequest(ctx, second)
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	stored, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)
	assert.Equal(t, "Audit FY2025", stored.Title)

	_, err = repo.GetServiceRequest(ctx, "missing")
	assert.True(t, models.IsNotFound(err))
}

func TestMemoryRepository_ReadsReturnCopies(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()

	sr := newRequest("sr-1")
	sr.ServiceTypes = []string{"audit"}
	require.NoError(t, repo.SaveServiceRequest(ctx, sr))

	got, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)
	got.ServiceTypes[0] = "tax"

	again, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit"}, again.ServiceTypes)
}

func TestMemoryRepository_InTxRollsBackOnError(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()
	require.NoError(t, repo.SaveServiceRequest(ctx, newRequest("sr-1")))

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(ctx context.Context, tx Repository) error {
		sr, err := tx.GetServiceRequest(ctx, "sr-1")
		if err != nil {
			return err
		}
		sr.Status = models.CancelledRequest
		if err := tx.SaveServiceRequest(ctx, sr); err != nil {
			return err
		}
		if err := tx.SaveBid(ctx, &models.Bid{ID: "bid-1", ServiceRequestID: "sr-1"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	sr, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)
	assert.Equal(t, models.OpenRequest, sr.Status)
	assert.Equal(t, 1, sr.Version)

	_, err = repo.GetBid(ctx, "bid-1")
	assert.True(t, models.IsNotFound(err))
}

func TestMemoryRepository_InTxCommits(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()
	require.NoError(t, repo.SaveServiceRequest(ctx, newRequest("sr-1")))

	err := repo.InTx(ctx, func(ctx context.Context, tx Repository) error {
		sr, err := tx.GetServiceRequest(ctx, "sr-1")
		if err != nil {
			return err
		}
		sr.Status = models.AwardedRequest
		sr.WinningBidID = "bid-1"
		if err := tx.SaveServiceRequest(ctx, sr); err != nil {
			return err
		}
		return tx.SaveBid(ctx, &models.Bid{ID: "bid-1", ServiceRequestID: "sr-1", Status: models.AcceptedBid, IsWinningBid: true})
	})
	require.NoError(t, err)

	sr, err := repo.GetServiceRequest(ctx, "sr-1")
	require.NoError(t, err)
	assert.Equal(t, models.AwardedRequest, sr.Status)
	bid, err := repo.GetBid(ctx, "bid-1")
	require.NoError(t, err)
	assert.True(t, bid.IsWinningBid)
}

func TestMemoryRepository_SingleWinnerPerRequest(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()

	require.NoError(t, repo.SaveBid(ctx, &models.Bid{ID: "bid-1", ServiceRequestID: "sr-1", IsWinningBid: true}))
	require.NoError(t, repo.SaveBid(ctx, &models.Bid{ID: "bid-3", ServiceRequestID: "sr-2", IsWinningBid: true}))

	err := repo.SaveBid(ctx, &models.Bid{ID: "bid-2", ServiceRequestID: "sr-1", IsWinningBid: true})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	bids, err := repo.ListBidsByRequest(ctx, "sr-1")
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, "bid-1", bids[0].ID)
}

func TestMemoryRepository_NegotiationInputs(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	thread := &models.NegotiationThread{ID: "th-1", BidID: "bid-1", ServiceRequestID: "sr-1", Status: models.ActiveThread}
	require.NoError(t, repo.SaveNegotiationThread(ctx, thread))

	err := repo.SaveNegotiationThread(ctx, &models.NegotiationThread{ID: "th-2", BidID: "bid-1"})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	stale := *thread
	require.NoError(t, repo.AppendNegotiationInput(ctx, thread, models.NegotiationInput{SenderID: "seeker-1", Timestamp: at, Message: "first"}))
	require.NoError(t, repo.AppendNegotiationInput(ctx, thread, models.NegotiationInput{SenderID: "provider-1", Timestamp: at.Add(time.Minute), Message: "second"}))

	err = repo.AppendNegotiationInput(ctx, &stale, models.NegotiationInput{SenderID: "seeker-1", Timestamp: at, Message: "lost"})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	stored, err := repo.GetNegotiationThreadByBid(ctx, "bid-1")
	require.NoError(t, err)
	require.Len(t, stored.Inputs, 2)
	assert.Equal(t, 1, stored.Inputs[0].Seq)
	assert.Equal(t, 2, stored.Inputs[1].Seq)
	assert.True(t, stored.LastActivity.Equal(at.Add(time.Minute)))

	require.NoError(t, repo.SaveNegotiationThread(ctx, &models.NegotiationThread{ID: "th-3", BidID: "bid-3", ServiceRequestID: "sr-2", Status: models.ActiveThread}))
	byRequest, err := repo.ListNegotiationThreadsByRequest(ctx, "sr-1")
	require.NoError(t, err)
	require.Len(t, byRequest, 1)
	assert.Equal(t, "th-1", byRequest[0].ID)
	assert.Len(t, byRequest[0].Inputs, 2)
}

func TestMemoryRepository_Allocations(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()

	empty, err := repo.ListAllocations(ctx, "sr-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, repo.AppendAllocation(ctx, &models.AllocationRecord{ID: "a-1", ServiceRequestID: "sr-1", NewAssignee: "m-1"}))
	require.NoError(t, repo.AppendAllocation(ctx, &models.AllocationRecord{ID: "a-2", ServiceRequestID: "sr-1", PreviousAssignee: "m-1", NewAssignee: "m-2"}))

	history, err := repo.ListAllocations(ctx, "sr-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a-1", history[0].ID)
	assert.Equal(t, "a-2", history[1].ID)
}

func TestMemoryRepository_TimeoutWhileLocked(t *testing.T) {
	repo := NewMemoryRepository(50 * time.Millisecond)
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = repo.InTx(ctx, func(ctx context.Context, tx Repository) error {
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := repo.GetServiceRequest(ctx, "sr-1")
	close(release)
	<-done

	er, ok := models.AsErrorResponse(err)
	require.True(t, ok)
	assert.Equal(t, models.KindTimeout, er.Kind)
}

func TestMemoryRepository_CancelledContext(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.InTx(ctx, func(ctx context.Context, tx Repository) error {
		_, err := tx.GetServiceRequest(ctx, "sr-1")
		return err
	})
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestMemoryRepository_ListBidsByRequests(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveBid(ctx, &models.Bid{ID: "bid-2", ServiceRequestID: "sr-2", CreatedAt: at.Add(time.Minute)}))
	require.NoError(t, repo.SaveBid(ctx, &models.Bid{ID: "bid-1", ServiceRequestID: "sr-1", CreatedAt: at}))
	require.NoError(t, repo.SaveBid(ctx, &models.Bid{ID: "bid-3", ServiceRequestID: "sr-3", CreatedAt: at}))

	bids, err := repo.ListBidsByRequests(ctx, []string{"sr-1", "sr-2"})
	require.NoError(t, err)
	require.Len(t, bids, 2)
	assert.Equal(t, "bid-1", bids[0].ID)
	assert.Equal(t, "bid-2", bids[1].ID)

	none, err := repo.ListBidsByRequests(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryRepository_ListServiceRequestsCreatedRange(t *testing.T) {
	repo := NewMemoryRepository(time.Second)
	ctx := context.Background()

	for i, id := range []string{"sr-1", "sr-2", "sr-3"} {
		sr := newRequest(id)
		sr.CreatedAt = sr.CreatedAt.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repo.SaveServiceRequest(ctx, sr))
	}

	from := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	to := from
	out, err := repo.ListServiceRequests(ctx, RequestQuery{CreatedFrom: &from, CreatedTo: &to})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "sr-2", out[0].ID)
}
