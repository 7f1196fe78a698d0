package events

import (
	"context"
	"log"
	"time"
)

// Type - тип доменного события.
type Type string

const (
	RequestCreated        Type = "request.created"
	RequestPublished      Type = "request.published"
	RequestUpdated        Type = "request.updated"
	RequestExpired        Type = "request.expired"
	RequestExtended       Type = "request.extended"
	RequestCancelled      Type = "request.cancelled"
	RequestClosed         Type = "request.closed"
	RequestAwarded        Type = "request.awarded"
	RequestProgressed     Type = "request.progressed"
	RequestNotInterested  Type = "request.not_interested"
	RequestAllocated      Type = "request.allocated"
	BidSubmitted          Type = "bid.submitted"
	BidStatusChanged      Type = "bid.status_changed"
	NegotiationStarted    Type = "negotiation.started"
	NegotiationInputAdded Type = "negotiation.input_added"
	NegotiationCompleted  Type = "negotiation.completed"
	QueryPosted           Type = "query.posted"
)

// Event - сообщение о свершившемся изменении. Публикуется после фиксации транзакции.
type Event struct {
	V                int       `json:"v"`
	Type             Type      `json:"type"`
	AggregateID      string    `json:"aggregateId"`
	ServiceRequestID string    `json:"serviceRequestId"`
	ActorID          string    `json:"actorId,omitempty"`
	Status           string    `json:"status,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// New создает событие текущей версии формата.
func New(t Type, aggregateID, requestID, actorID, status string, at time.Time) Event {
	return Event{
		V:                1,
		Type:             t,
		AggregateID:      aggregateID,
		ServiceRequestID: requestID,
		ActorID:          actorID,
		Status:           status,
		OccurredAt:       at,
	}
}

// Publisher - получатель доменных событий.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
	Close() error
}

// LogPublisher пишет события в лог. Используется, когда брокер не настроен.
type LogPublisher struct {
	Logger *log.Logger
}

// NewLogPublisher создает публикатор в лог.
func NewLogPublisher(logger *log.Logger) *LogPublisher {
	return &LogPublisher{Logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, events ...Event) error {
	if p.Logger == nil {
		return nil
	}
	for _, e := range events {
		p.Logger.Printf("event %s aggregate=%s request=%s status=%s", e.Type, e.AggregateID, e.ServiceRequestID, e.Status)
	}
	return nil
}

func (p *LogPublisher) Close() error { return nil }
