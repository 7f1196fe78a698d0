package repository

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
)

type memoryState struct {
	requests    map[string]models.ServiceRequest
	bids        map[string]models.Bid
	threads     map[string]models.NegotiationThread
	queries     map[string]models.QueryClarification
	allocations map[string][]models.AllocationRecord
}

func newMemoryState() *memoryState {
	return &memoryState{
		requests:    make(map[string]models.ServiceRequest),
		bids:        make(map[string]models.Bid),
		threads:     make(map[string]models.NegotiationThread),
		queries:     make(map[string]models.QueryClarification),
		allocations: make(map[string][]models.AllocationRecord),
	}
}

// snapshot копирует карты; значения копируются при чтении и записи, поэтому
// поверхностной копии достаточно.
func (s *memoryState) snapshot() *memoryState {
	return &memoryState{
		requests:    maps.Clone(s.requests),
		bids:        maps.Clone(s.bids),
		threads:     maps.Clone(s.threads),
		queries:     maps.Clone(s.queries),
		allocations: maps.Clone(s.allocations),
	}
}

// MemoryRepository - реализация Repository в памяти процесса.
// Все записи сериализуются одним семафором; транзакция работает на снимке
// состояния и подменяет его целиком при успешном завершении.
type MemoryRepository struct {
	sem     chan struct{}
	timeout time.Duration
	state   *memoryState
}

// NewMemoryRepository создает пустое хранилище в памяти.
func NewMemoryRepository(timeout time.Duration) *MemoryRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &MemoryRepository{
		sem:     make(chan struct{}, 1),
		timeout: timeout,
		state:   newMemoryState(),
	}
}

func (r *MemoryRepository) acquire(ctx context.Context, op string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	select {
	case r.sem <- struct{}{}:
		return func() { <-r.sem }, nil
	case <-ctx.Done():
		return nil, mapContextError(op, ctx.Err())
	}
}

func (r *MemoryRepository) with(ctx context.Context, op string, fn func(tx *memoryTx) error) error {
	release, err := r.acquire(ctx, op)
	if err != nil {
		return err
	}
	defer release()
	return fn(&memoryTx{st: r.state})
}

// InTx выполняет fn на снимке состояния и применяет его, если fn завершилась без ошибки.
func (r *MemoryRepository) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	release, err := r.acquire(ctx, "transaction")
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx := &memoryTx{st: r.state.snapshot()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return mapContextError("transaction commit", err)
	}
	r.state = tx.st
	return nil
}

func (r *MemoryRepository) GetServiceRequest(ctx context.Context, id string) (sr *models.ServiceRequest, err error) {
	err = r.with(ctx, "get service request", func(tx *memoryTx) error {
		sr, err = tx.GetServiceRequest(ctx, id)
		return err
	})
	return sr, err
}

func (r *MemoryRepository) ListServiceRequests(ctx context.Context, q RequestQuery) (out []models.ServiceRequest, err error) {
	err = r.with(ctx, "list service requests", func(tx *memoryTx) error {
		out, err = tx.ListServiceRequests(ctx, q)
		return err
	})
	return out, err
}

func (r *MemoryRepository) SaveServiceRequest(ctx context.Context, sr *models.ServiceRequest) error {
	return r.with(ctx, "save service request", func(tx *memoryTx) error {
		return tx.SaveServiceRequest(ctx, sr)
	})
}

func (r *MemoryRepository) GetBid(ctx context.Context, id string) (bid *models.Bid, err error) {
	err = r.with(ctx, "get bid", func(tx *memoryTx) error {
		bid, err = tx.GetBid(ctx, id)
		return err
	})
	return bid, err
}

func (r *MemoryRepository) ListBidsByRequest(ctx context.Context, requestID string) (out []models.Bid, err error) {
	err = r.with(ctx, "list bids", func(tx *memoryTx) error {
		out, err = tx.ListBidsByRequest(ctx, requestID)
		return err
	})
	return out, err
}

func (r *MemoryRepository) ListBidsByRequests(ctx context.Context, requestIDs []string) (out []models.Bid, err error) {
	err = r.with(ctx, "list bids", func(tx *memoryTx) error {
		out, err = tx.ListBidsByRequests(ctx, requestIDs)
		return err
	})
	return out, err
}

func (r *MemoryRepository) SaveBid(ctx context.Context, bid *models.Bid) error {
	return r.with(ctx, "save bid", func(tx *memoryTx) error {
		return tx.SaveBid(ctx, bid)
	})
}

func (r *MemoryRepository) GetNegotiationThread(ctx context.Context, id string) (t *models.NegotiationThread, err error) {
	err = r.with(ctx, "get negotiation thread", func(tx *memoryTx) error {
		t, err = tx.GetNegotiationThread(ctx, id)
		return err
	})
	return t, err
}

func (r *MemoryRepository) GetNegotiationThreadByBid(ctx context.Context, bidID string) (t *models.NegotiationThread, err error) {
	err = r.with(ctx, "get negotiation thread by bid", func(tx *memoryTx) error {
		t, err = tx.GetNegotiationThreadByBid(ctx, bidID)
		return err
	})
	return t, err
}

func (r *MemoryRepository) ListNegotiationThreadsByRequest(ctx context.Context, requestID string) (out []models.NegotiationThread, err error) {
	err = r.with(ctx, "list negotiation threads", func(tx *memoryTx) error {
		out, err = tx.ListNegotiationThreadsByRequest(ctx, requestID)
		return err
	})
	return out, err
}

func (r *MemoryRepository) SaveNegotiationThread(ctx context.Context, thread *models.NegotiationThread) error {
	return r.with(ctx, "save negotiation thread", func(tx *memoryTx) error {
		return tx.SaveNegotiationThread(ctx, thread)
	})
}

func (r *MemoryRepository) AppendNegotiationInput(ctx context.Context, thread *models.NegotiationThread, input models.NegotiationInput) error {
	return r.with(ctx, "append negotiation input", func(tx *memoryTx) error {
		return tx.AppendNegotiationInput(ctx, thread, input)
	})
}

func (r *MemoryRepository) GetQuery(ctx context.Context, id string) (q *models.QueryClarification, err error) {
	err = r.with(ctx, "get query", func(tx *memoryTx) error {
		q, err = tx.GetQuery(ctx, id)
		return err
	})
	return q, err
}

func (r *MemoryRepository) ListQueriesByRequest(ctx context.Context, requestID string) (out []models.QueryClarification, err error) {
	err = r.with(ctx, "list queries", func(tx *memoryTx) error {
		out, err = tx.ListQueriesByRequest(ctx, requestID)
		return err
	})
	return out, err
}

func (r *MemoryRepository) CreateQuery(ctx context.Context, q *models.QueryClarification) error {
	return r.with(ctx, "create query", func(tx *memoryTx) error {
		return tx.CreateQuery(ctx, q)
	})
}

func (r *MemoryRepository) AppendAllocation(ctx context.Context, rec *models.AllocationRecord) error {
	return r.with(ctx, "append allocation", func(tx *memoryTx) error {
		return tx.AppendAllocation(ctx, rec)
	})
}

func (r *MemoryRepository) ListAllocations(ctx context.Context, requestID string) (out []models.AllocationRecord, err error) {
	err = r.with(ctx, "list allocations", func(tx *memoryTx) error {
		out, err = tx.ListAllocations(ctx, requestID)
		return err
	})
	return out, err
}

// memoryTx работает с состоянием без блокировок: блокировку держит вызывающий.
type memoryTx struct {
	st *memoryState
}

func (tx *memoryTx) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return fn(ctx, tx)
}

func (tx *memoryTx) GetServiceRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("get service request", err)
	}
	sr, ok := tx.st.requests[id]
	if !ok {
		return nil, models.NewNotFoundError("service request", id)
	}
	c := sr.Clone()
	return &c, nil
}

func (tx *memoryTx) ListServiceRequests(ctx context.Context, q RequestQuery) ([]models.ServiceRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("list service requests", err)
	}
	var out []models.ServiceRequest
	for _, sr := range tx.st.requests {
		if q.CreatorID != "" || q.OrganizationID != "" {
			own := q.CreatorID != "" && sr.CreatorID == q.CreatorID
			org := q.OrganizationID != "" && sr.OrganizationID == q.OrganizationID
			if !own && !org {
				continue
			}
		}
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, sr.Status) {
			continue
		}
		if q.ExcludeDrafts && sr.Status == models.DraftRequest {
			continue
		}
		if q.DeadlineBefore != nil && (sr.Deadline.IsZero() || !sr.Deadline.Before(*q.DeadlineBefore)) {
			continue
		}
		if q.CreatedFrom != nil && sr.CreatedAt.Before(*q.CreatedFrom) {
			continue
		}
		if q.CreatedTo != nil && sr.CreatedAt.After(*q.CreatedTo) {
			continue
		}
		out = append(out, sr.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memoryTx) SaveServiceRequest(ctx context.Context, sr *models.ServiceRequest) error {
	if err := ctx.Err(); err != nil {
		return mapContextError("save service request", err)
	}
	if sr.Version == 0 {
		if _, exists := tx.st.requests[sr.ID]; exists {
			return models.NewConflictError("service request", sr.ID, 0)
		}
		sr.Version = 1
		tx.st.requests[sr.ID] = sr.Clone()
		return nil
	}
	cur, ok := tx.st.requests[sr.ID]
	if !ok {
		return models.NewNotFoundError("service request", sr.ID)
	}
	if cur.Version != sr.Version {
		return models.NewConflictError("service request", sr.ID, sr.Version)
	}
	sr.Version++
	tx.st.requests[sr.ID] = sr.Clone()
	return nil
}

func (tx *memoryTx) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("get bid", err)
	}
	bid, ok := tx.st.bids[id]
	if !ok {
		return nil, models.NewNotFoundError("bid", id)
	}
	c := bid.Clone()
	return &c, nil
}

func (tx *memoryTx) ListBidsByRequest(ctx context.Context, requestID string) ([]models.Bid, error) {
	return tx.ListBidsByRequests(ctx, []string{requestID})
}

func (tx *memoryTx) ListBidsByRequests(ctx context.Context, requestIDs []string) ([]models.Bid, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("list bids", err)
	}
	var out []models.Bid
	for _, bid := range tx.st.bids {
		if slices.Contains(requestIDs, bid.ServiceRequestID) {
			out = append(out, bid.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memoryTx) SaveBid(ctx context.Context, bid *models.Bid) error {
	if err := ctx.Err(); err != nil {
		return mapContextError("save bid", err)
	}
	if bid.IsWinningBid {
		// Аналог уникального индекса bid_one_winner.
		for id, other := range tx.st.bids {
			if id != bid.ID && other.ServiceRequestID == bid.ServiceRequestID && other.IsWinningBid {
				return models.NewConflictError("bid", bid.ID, bid.Version)
			}
		}
	}
	if bid.Version == 0 {
		if _, exists := tx.st.bids[bid.ID]; exists {
			return models.NewConflictError("bid", bid.ID, 0)
		}
		bid.Version = 1
		tx.st.bids[bid.ID] = bid.Clone()
		return nil
	}
	cur, ok := tx.st.bids[bid.ID]
	if !ok {
		return models.NewNotFoundError("bid", bid.ID)
	}
	if cur.Version != bid.Version {
		return models.NewConflictError("bid", bid.ID, bid.Version)
	}
	bid.Version++
	tx.st.bids[bid.ID] = bid.Clone()
	return nil
}

func (tx *memoryTx) GetNegotiationThread(ctx context.Context, id string) (*models.NegotiationThread, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("get negotiation thread", err)
	}
	t, ok := tx.st.threads[id]
	if !ok {
		return nil, models.NewNotFoundError("negotiation thread", id)
	}
	c := t.Clone()
	return &c, nil
}

func (tx *memoryTx) GetNegotiationThreadByBid(ctx context.Context, bidID string) (*models.NegotiationThread, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("get negotiation thread by bid", err)
	}
	for _, t := range tx.st.threads {
		if t.BidID == bidID {
			c := t.Clone()
			return &c, nil
		}
	}
	return nil, models.NewNotFoundError("negotiation thread for bid", bidID)
}

func (tx *memoryTx) ListNegotiationThreadsByRequest(ctx context.Context, requestID string) ([]models.NegotiationThread, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("list negotiation threads", err)
	}
	var out []models.NegotiationThread
	for _, t := range tx.st.threads {
		if t.ServiceRequestID == requestID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (tx *memoryTx) SaveNegotiationThread(ctx context.Context, thread *models.NegotiationThread) error {
	if err := ctx.Err(); err != nil {
		return mapContextError("save negotiation thread", err)
	}
	if thread.Version == 0 {
		if _, exists := tx.st.threads[thread.ID]; exists {
			return models.NewConflictError("negotiation thread", thread.ID, 0)
		}
		for _, t := range tx.st.threads {
			if t.BidID == thread.BidID {
				return models.NewConflictError("negotiation thread for bid", thread.BidID, 0)
			}
		}
		thread.Version = 1
		tx.st.threads[thread.ID] = thread.Clone()
		return nil
	}
	cur, ok := tx.st.threads[thread.ID]
	if !ok {
		return models.NewNotFoundError("negotiation thread", thread.ID)
	}
	if cur.Version != thread.Version {
		return models.NewConflictError("negotiation thread", thread.ID, thread.Version)
	}
	next := thread.Clone()
	next.Inputs = cur.Clone().Inputs
	next.LastActivity = cur.LastActivity
	next.Version++
	tx.st.threads[thread.ID] = next
	*thread = next.Clone()
	return nil
}

func (tx *memoryTx) AppendNegotiationInput(ctx context.Context, thread *models.NegotiationThread, input models.NegotiationInput) error {
	if err := ctx.Err(); err != nil {
		return mapContextError("append negotiation input", err)
	}
	cur, ok := tx.st.threads[thread.ID]
	if !ok {
		return models.NewNotFoundError("negotiation thread", thread.ID)
	}
	if cur.Version != thread.Version {
		return models.NewConflictError("negotiation thread", thread.ID, thread.Version)
	}
	next := cur.Clone()
	input.Seq = len(next.Inputs) + 1
	next.Inputs = append(next.Inputs, input)
	next.LastActivity = input.Timestamp
	next.Version++
	tx.st.threads[thread.ID] = next
	*thread = next.Clone()
	return nil
}

func (tx *memoryTx) GetQuery(ctx context.Context, id string) (*models.QueryClarification, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("get query", err)
	}
	q, ok := tx.st.queries[id]
	if !ok {
		return nil, models.NewNotFoundError("query", id)
	}
	c := q.Clone()
	return &c, nil
}

func (tx *memoryTx) ListQueriesByRequest(ctx context.Context, requestID string) ([]models.QueryClarification, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("list queries", err)
	}
	var out []models.QueryClarification
	for _, q := range tx.st.queries {
		if q.ServiceRequestID == requestID {
			out = append(out, q.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memoryTx) CreateQuery(ctx context.Context, q *models.QueryClarification) error {
	if err := ctx.Err(); err != nil {
		return mapContextError("create query", err)
	}
	if _, exists := tx.st.queries[q.ID]; exists {
		return models.NewConflictError("query", q.ID, 0)
	}
	tx.st.queries[q.ID] = q.Clone()
	return nil
}

func (tx *memoryTx) AppendAllocation(ctx context.Context, rec *models.AllocationRecord) error {
	if err := ctx.Err(); err != nil {
		return mapContextError("append allocation", err)
	}
	history := slices.Clone(tx.st.allocations[rec.ServiceRequestID])
	tx.st.allocations[rec.ServiceRequestID] = append(history, *rec)
	return nil
}

func (tx *memoryTx) ListAllocations(ctx context.Context, requestID string) ([]models.AllocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapContextError("list allocations", err)
	}
	return slices.Clone(tx.st.allocations[requestID]), nil
}
