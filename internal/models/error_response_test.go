package models

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse_KindMatching(t *testing.T) {
	err := fmt.Errorf("accept bid bid-1: %w", NewConflictError("bid", "bid-1", 3))

	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.NotErrorIs(t, err, ErrNotFound)

	er, ok := AsErrorResponse(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, er.StatusCode)
	assert.Equal(t, KindConcurrencyConflict, er.Kind)

	_, ok = AsErrorResponse(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestNewErrorResponse_KindFromStatus(t *testing.T) {
	cases := map[int]ErrorKind{
		http.StatusBadRequest:         KindValidation,
		http.StatusUnauthorized:       KindUnauthorized,
		http.StatusForbidden:          KindUnauthorized,
		http.StatusNotFound:           KindNotFound,
		http.StatusConflict:           KindConcurrencyConflict,
		http.StatusServiceUnavailable: KindTimeout,
	}
	for status, kind := range cases {
		assert.Equal(t, kind, NewErrorResponse(status, "x").Kind, "status %d", status)
	}
}

func TestNewTransitionError(t *testing.T) {
	er := NewTransitionError("service request", "sr-1", OpenRequest, InProgressRequest, []RequestStatus{WorkOrderIssuedRequest})
	assert.Equal(t, KindInvalidTransition, er.Kind)
	assert.Equal(t, "OPEN", er.CurrentState)
	assert.Equal(t, "IN_PROGRESS", er.AttemptedState)
	assert.Equal(t, []string{"WORK_ORDER_ISSUED"}, er.ExpectedStates)
	assert.True(t, IsNotFound(NewNotFoundError("bid", "x")))
	assert.Equal(t, "ValidationError", (&ErrorResponse{Kind: KindValidation}).Error())
}
