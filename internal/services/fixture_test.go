package services

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

var (
	seeker    = models.Principal{ID: "seeker-1", Role: models.Seeker, OrganizationID: "org-1"}
	colleague = models.Principal{ID: "seeker-2", Role: models.Seeker, OrganizationID: "org-1"}
	outsider  = models.Principal{ID: "seeker-3", Role: models.Seeker, OrganizationID: "org-2"}
	provider1 = models.Principal{ID: "provider-1", Role: models.Provider}
	provider2 = models.Principal{ID: "provider-2", Role: models.Provider}
	provider3 = models.Principal{ID: "provider-3", Role: models.Provider}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	clock *utils.FakeClock
	repo  *repository.MemoryRepository
	pub   *recordingPublisher

	requests     *RequestService
	bids         *BidService
	negotiations *NegotiationService
	queries      *QueryService
	views        *OpportunityService
	allocations  *AllocationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := utils.NewFakeClock(t0)
	repo := repository.NewMemoryRepository(time.Second)
	pub := &recordingPublisher{}
	deps := Dependencies{
		Repo:   repo,
		Clock:  clock,
		IDs:    &utils.SequenceGenerator{Prefix: "id-"},
		Events: pub,
		Logger: log.New(io.Discard, "", 0),
	}
	return &fixture{
		t:            t,
		ctx:          context.Background(),
		clock:        clock,
		repo:         repo,
		pub:          pub,
		requests:     NewRequestService(deps, DefaultAwardWindow),
		bids:         NewBidService(deps),
		negotiations: NewNegotiationService(deps),
		queries:      NewQueryService(deps),
		views:        NewOpportunityService(deps),
		allocations:  NewAllocationService(deps),
	}
}

func auditDraft(title string) models.ServiceRequestDraft {
	return models.ServiceRequestDraft{
		Title:                  title,
		Description:            "Statutory audit for FY2025",
		ProfessionalCategories: []string{"accounting"},
		ServiceTypes:           []string{"audit"},
		ScopeOfWork:            "Audit of the consolidated statements",
		Budget:                 ptr(models.DefinedBudget(50000, 90000)),
		PreferredLocations:     []string{"Berlin"},
		Deadline:               t0.Add(7 * 24 * time.Hour),
	}
}

// openRequest создаёт и публикует заявку; время сдвигается, чтобы порядок создания был однозначным.
func (f *fixture) openRequest(draft models.ServiceRequestDraft) *models.ServiceRequest {
	f.t.Helper()
	f.clock.Advance(time.Minute)
	sr, err := f.requests.Create(f.ctx, seeker, draft)
	require.NoError(f.t, err)
	sr, err = f.requests.Publish(f.ctx, seeker, sr.ID)
	require.NoError(f.t, err)
	return sr
}

func lumpSum(fee int64) models.Financials {
	return models.Financials{
		ProfessionalFee: fee,
		PlatformFee:     1000,
		Tax:             500,
		TotalBidAmount:  fee + 1500,
		Payment:         models.PaymentStructure{Kind: models.LumpSum},
	}
}

func bidRequest(requestID string, fee int64) models.BidRequest {
	return models.BidRequest{
		ServiceRequestID: requestID,
		Provider:         models.ProviderSnapshot{Name: "Audit Partners", Rating: 4.7, CompletedProjects: 12},
		Financials:       lumpSum(fee),
		DeliveryDate:     t0.Add(30 * 24 * time.Hour),
	}
}

func (f *fixture) submit(p models.Principal, requestID string, fee int64) *models.Bid {
	f.t.Helper()
	f.clock.Advance(time.Minute)
	bid, err := f.bids.Submit(f.ctx, p, bidRequest(requestID, fee))
	require.NoError(f.t, err)
	return bid
}

func (f *fixture) storedRequest(id string) *models.ServiceRequest {
	f.t.Helper()
	sr, err := f.repo.GetServiceRequest(f.ctx, id)
	require.NoError(f.t, err)
	return sr
}

func (f *fixture) storedBid(id string) *models.Bid {
	f.t.Helper()
	bid, err := f.repo.GetBid(f.ctx, id)
	require.NoError(f.t, err)
	return bid
}

func requireKind(t *testing.T, err error, kind models.ErrorKind) *models.ErrorResponse {
	t.Helper()
	require.Error(t, err)
	er, ok := models.AsErrorResponse(err)
	require.True(t, ok, "expected ErrorResponse, got %v", err)
	require.Equal(t, kind, er.Kind, er.Message)
	return er
}
