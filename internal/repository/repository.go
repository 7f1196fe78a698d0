package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
)

// DefaultTimeout ограничивает каждое обращение к хранилищу.
const DefaultTimeout = 5 * time.Second

// RequestQuery - грубый отбор заявок, который выполняет хранилище.
// Тонкие фильтры ленты применяет сервис представлений.
type RequestQuery struct {
	CreatorID      string                 // заявки автора...
	OrganizationID string                 // ...или его организации
	Statuses       []models.RequestStatus // пусто - любые
	ExcludeDrafts  bool
	DeadlineBefore *time.Time
	CreatedFrom    *time.Time // включительно
	CreatedTo      *time.Time // включительно
}

// ServiceRequestRepository - интерфейс для работы с заявками.
type ServiceRequestRepository interface {
	GetServiceRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
	ListServiceRequests(ctx context.Context, q RequestQuery) ([]models.ServiceRequest, error)
	// SaveServiceRequest вставляет заявку с Version == 0, иначе обновляет её,
	// только если версия в хранилище совпадает. Version увеличивается на единицу.
	SaveServiceRequest(ctx context.Context, sr *models.ServiceRequest) error
}

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	GetBid(ctx context.Context, id string) (*models.Bid, error)
	ListBidsByRequest(ctx context.Context, requestID string) ([]models.Bid, error)
	// ListBidsByRequests возвращает предложения сразу по нескольким заявкам одним запросом.
	ListBidsByRequests(ctx context.Context, requestIDs []string) ([]models.Bid, error)
	SaveBid(ctx context.Context, bid *models.Bid) error
}

// NegotiationRepository - интерфейс для работы с переговорами.
type NegotiationRepository interface {
	GetNegotiationThread(ctx context.Context, id string) (*models.NegotiationThread, error)
	GetNegotiationThreadByBid(ctx context.Context, bidID string) (*models.NegotiationThread, error)
	ListNegotiationThreadsByRequest(ctx context.Context, requestID string) ([]models.NegotiationThread, error)
	// SaveNegotiationThread сохраняет заголовок переговоров (статус), не трогая ходы.
	SaveNegotiationThread(ctx context.Context, thread *models.NegotiationThread) error
	// AppendNegotiationInput дописывает ход с номером len(Inputs)+1. Если другой ход
	// успел записаться раньше, возвращается ConcurrencyConflict.
	AppendNegotiationInput(ctx context.Context, thread *models.NegotiationThread, input models.NegotiationInput) error
}

// QueryRepository - интерфейс для работы с вопросами и ответами.
type QueryRepository interface {
	GetQuery(ctx context.Context, id string) (*models.QueryClarification, error)
	ListQueriesByRequest(ctx context.Context, requestID string) ([]models.QueryClarification, error)
	CreateQuery(ctx context.Context, q *models.QueryClarification) error
}

// AllocationRepository - интерфейс для журнала назначений.
type AllocationRepository interface {
	AppendAllocation(ctx context.Context, rec *models.AllocationRecord) error
	ListAllocations(ctx context.Context, requestID string) ([]models.AllocationRecord, error)
}

// Repository объединяет хранилища всех агрегатов.
type Repository interface {
	ServiceRequestRepository
	BidRepository
	NegotiationRepository
	QueryRepository
	AllocationRepository

	// InTx выполняет fn атомарно: либо применяются все записи, либо ни одной.
	// Внутри fn нужно пользоваться только переданным repo.
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// mapContextError превращает истёкший контекст в Timeout.
func mapContextError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewTimeoutError(op)
	}
	return err
}
