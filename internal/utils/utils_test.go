package utils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOnConflict(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), func() error {
		calls++
		if calls < 3 {
			return models.NewConflictError("bid", "bid-1", calls)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryOnConflict_GivesUp(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), func() error {
		calls++
		return models.NewConflictError("bid", "bid-1", calls)
	})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)
	assert.Equal(t, DefaultMaxRetries+1, calls)
}

func TestRetryOnConflict_OtherErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := RetryOnConflict(context.Background(), func() error {
		calls++
		return models.NewValidationError("bad input")
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	boom := errors.New("boom")
	err := WithRetries(ctx, func() error {
		calls++
		return boom
	}, 5, func(error) bool { return true })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestSequenceGenerator(t *testing.T) {
	g := &SequenceGenerator{Prefix: "id-"}
	assert.Equal(t, "id-1", g.NewID())
	assert.Equal(t, "id-2", g.NewID())

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "SRN-20260302-00000003", g.NewReference("SRN", at))
}

func TestUUIDGenerator(t *testing.T) {
	var g UUIDGenerator
	a, b := g.NewID(), g.NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)

	ref := g.NewReference("BID", time.Date(2026, 3, 2, 23, 0, 0, 0, time.FixedZone("x", -3*3600)))
	assert.True(t, strings.HasPrefix(ref, "BID-20260303-"), ref)
	assert.Len(t, ref, len("BID-20260303-")+8)
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)
	assert.Equal(t, start, c.Now())
	c.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), c.Now())
	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestParseLimitOffset(t *testing.T) {
	limit, offset, err := ParseLimitOffset("", "")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
	assert.Equal(t, 0, offset)

	limit, offset, err = ParseLimitOffset("20", "40")
	require.NoError(t, err)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)

	for _, tc := range [][2]string{{"0", ""}, {"51", ""}, {"abc", ""}, {"", "-1"}, {"", "x"}} {
		_, _, err := ParseLimitOffset(tc[0], tc[1])
		assert.Error(t, err, "limit=%q offset=%q", tc[0], tc[1])
	}
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Dedupe([]string{"a", "", "b", "a"}))
	assert.Empty(t, Dedupe(nil))
}

func TestSendError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendError(rec, models.NewTransitionError("bid", "bid-1", models.RejectedBid, models.AcceptedBid,
		[]models.BidStatus{models.SubmittedBid}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{
		"kind": "InvalidTransition",
		"reason": "bid bid-1: cannot move from REJECTED to ACCEPTED (allowed from: SUBMITTED)",
		"currentState": "REJECTED",
		"attemptedState": "ACCEPTED",
		"expectedStates": ["SUBMITTED"]
	}`, rec.Body.String())
}
