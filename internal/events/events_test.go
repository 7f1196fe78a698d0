package events

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(log.New(&buf, "", 0))

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	err := pub.Publish(context.Background(),
		New(RequestPublished, "sr-1", "sr-1", "seeker-1", "OPEN", at),
		New(BidSubmitted, "b-1", "sr-1", "provider-1", "SUBMITTED", at))
	assert.NoError(t, err)
	assert.Equal(t,
		"event request.published aggregate=sr-1 request=sr-1 status=OPEN\n"+
			"event bid.submitted aggregate=b-1 request=sr-1 status=SUBMITTED\n",
		buf.String())
	assert.NoError(t, pub.Close())
}

func TestLogPublisher_NilLogger(t *testing.T) {
	pub := &LogPublisher{}
	assert.NoError(t, pub.Publish(context.Background(), New(QueryPosted, "q-1", "sr-1", "", "", time.Now())))
}

func TestNew(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	e := New(RequestAwarded, "sr-1", "sr-1", "seeker-1", "AWARDED", at)
	assert.Equal(t, 1, e.V)
	assert.Equal(t, RequestAwarded, e.Type)
	assert.Equal(t, at, e.OccurredAt)
}
