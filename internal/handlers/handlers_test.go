package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/handlers"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/router"
	"github.com/senyabanana/procurement-service/internal/services"
	"github.com/senyabanana/procurement-service/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type user struct {
	id, role, org string
}

var (
	seeker   = user{id: "seeker-1", role: "seeker", org: "org-1"}
	provider = user{id: "provider-1", role: "PROVIDER"}
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	deps := services.Dependencies{
		Repo:   repository.NewMemoryRepository(time.Second),
		Clock:  utils.NewFakeClock(now),
		IDs:    &utils.SequenceGenerator{Prefix: "id-"},
		Events: events.NewLogPublisher(nil),
		Logger: logger,
	}
	h := router.Handlers{
		Requests:     handlers.NewRequestHandler(services.NewRequestService(deps, services.DefaultAwardWindow), services.NewOpportunityService(deps), logger, time.Second),
		Bids:         handlers.NewBidHandler(services.NewBidService(deps), logger, time.Second),
		Negotiations: handlers.NewNegotiationHandler(services.NewNegotiationService(deps), logger, time.Second),
		Queries:      handlers.NewQueryHandler(services.NewQueryService(deps), logger, time.Second),
		Allocations:  handlers.NewAllocationHandler(services.NewAllocationService(deps), logger, time.Second),
	}
	srv := httptest.NewServer(router.InitRoutes(h))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, u *user, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if u != nil {
		req.Header.Set(handlers.HeaderUserID, u.id)
		req.Header.Set(handlers.HeaderUserRole, u.role)
		req.Header.Set(handlers.HeaderOrganizationID, u.org)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeAs[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func openRequest(t *testing.T, srv *httptest.Server) models.ServiceRequest {
	t.Helper()
	draft := models.ServiceRequestDraft{
		Title:        "Annual audit",
		Description:  "Statutory audit for FY2025",
		ServiceTypes: []string{"audit"},
		Deadline:     now.Add(7 * 24 * time.Hour),
	}
	resp, data := call(t, srv, &seeker, http.MethodPost, "/api/requests", draft)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	sr := decodeAs[models.ServiceRequest](t, data)

	resp, data = call(t, srv, &seeker, http.MethodPut, "/api/requests/"+sr.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	return decodeAs[models.ServiceRequest](t, data)
}

func submitBid(t *testing.T, srv *httptest.Server, requestID string) models.Bid {
	t.Helper()
	req := models.BidRequest{
		ServiceRequestID: requestID,
		Provider:         models.ProviderSnapshot{Name: "Audit Partners"},
		Financials: models.Financials{
			ProfessionalFee: 70000,
			TotalBidAmount:  70000,
			Payment:         models.PaymentStructure{Kind: models.LumpSum},
		},
		DeliveryDate: now.Add(30 * 24 * time.Hour),
	}
	resp, data := call(t, srv, &provider, http.MethodPost, "/api/bids", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	return decodeAs[models.Bid](t, data)
}

func TestPing(t *testing.T) {
	srv := newServer(t)
	resp, data := call(t, srv, nil, http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(data))
}

func TestMissingPrincipal(t *testing.T) {
	srv := newServer(t)
	resp, data := call(t, srv, nil, http.MethodGet, "/api/requests", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	er := decodeAs[models.ErrorResponse](t, data)
	assert.Equal(t, models.KindUnauthorized, er.Kind)

	resp, _ = call(t, srv, &user{id: "x", role: "admin"}, http.MethodGet, "/api/requests", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBidLifecycleOverHTTP(t *testing.T) {
	srv := newServer(t)
	sr := openRequest(t, srv)
	assert.Equal(t, models.OpenRequest, sr.Status)

	bid := submitBid(t, srv, sr.ID)
	assert.Equal(t, models.SubmittedBid, bid.Status)

	resp, data := call(t, srv, &seeker, http.MethodGet, "/api/requests/"+sr.ID+"/bids", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeAs[[]models.Bid](t, data), 1)

	resp, data = call(t, srv, &provider, http.MethodPut, "/api/bids/"+bid.ID+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.KindUnauthorized, decodeAs[models.ErrorResponse](t, data).Kind)

	resp, data = call(t, srv, &seeker, http.MethodPut, "/api/bids/"+bid.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	accepted := decodeAs[models.Bid](t, data)
	assert.Equal(t, models.AcceptedBid, accepted.Status)
	assert.True(t, accepted.IsWinningBid)

	resp, data = call(t, srv, &seeker, http.MethodPut, "/api/bids/"+bid.ID+"/reject", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	er := decodeAs[models.ErrorResponse](t, data)
	assert.Equal(t, models.KindInvalidTransition, er.Kind)
	assert.Equal(t, "ACCEPTED", er.CurrentState)
	assert.Equal(t, "REJECTED", er.AttemptedState)
	assert.Equal(t, []string{"SUBMITTED", "UNDER_REVIEW", "UNDER_NEGOTIATION"}, er.ExpectedStates)

	resp, data = call(t, srv, &seeker, http.MethodPut, "/api/requests/"+sr.ID+"/work-order", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, models.WorkOrderIssuedRequest, decodeAs[models.ServiceRequest](t, data).Status)
}

func TestErrorKinds(t *testing.T) {
	srv := newServer(t)
	sr := openRequest(t, srv)

	resp, data := call(t, srv, &seeker, http.MethodPost, "/api/requests", "{broken")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.KindValidation, decodeAs[models.ErrorResponse](t, data).Kind)

	resp, data = call(t, srv, &seeker, http.MethodGet, "/api/bids/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.KindNotFound, decodeAs[models.ErrorResponse](t, data).Kind)

	resp, data = call(t, srv, &seeker, http.MethodPut, "/api/requests/"+sr.ID+"/extend", map[string]any{"days": 0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.KindValidation, decodeAs[models.ErrorResponse](t, data).Kind)

	resp, _ = call(t, srv, &provider, http.MethodGet, "/api/opportunities?limit=100", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, srv, &provider, http.MethodGet, "/api/opportunities?createdFrom=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = call(t, srv, &seeker, http.MethodDelete, "/api/requests/"+sr.ID, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestOpportunitiesOverHTTP(t *testing.T) {
	srv := newServer(t)
	sr := openRequest(t, srv)

	resp, data := call(t, srv, &provider, http.MethodGet, "/api/opportunities?status=open&limit=10", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	page := decodeAs[models.Page[models.Opportunity]](t, data)
	require.Len(t, page.Items, 1)
	assert.Equal(t, sr.ID, page.Items[0].ID)
	assert.Equal(t, 10, page.Limit)

	resp, data = call(t, srv, &provider, http.MethodPut, "/api/requests/"+sr.ID+"/not-interested", map[string]string{"reason": "busy"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = call(t, srv, &provider, http.MethodGet, "/api/opportunities?status=NOT_INTERESTED", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	page = decodeAs[models.Page[models.Opportunity]](t, data)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.NotInterestedRequest, page.Items[0].Status)
}

func TestQueriesOverHTTP(t *testing.T) {
	srv := newServer(t)
	sr := openRequest(t, srv)
	submitBid(t, srv, sr.ID)

	resp, data := call(t, srv, &seeker, http.MethodPost, "/api/requests/"+sr.ID+"/queries",
		models.QueryRequest{Message: "Can you start in April?", Recipients: []string{provider.id}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	q := decodeAs[models.QueryClarification](t, data)

	resp, data = call(t, srv, &provider, http.MethodPost, "/api/queries/"+q.ID+"/replies", map[string]string{"message": "Yes"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = call(t, srv, &provider, http.MethodGet, "/api/requests/"+sr.ID+"/queries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	tree := decodeAs[[]models.QueryClarification](t, data)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Responses, 1)
	assert.Equal(t, "Yes", tree[0].Responses[0].Message)
}

func TestNegotiationOverHTTP(t *testing.T) {
	srv := newServer(t)
	sr := openRequest(t, srv)
	bid := submitBid(t, srv, sr.ID)

	resp, data := call(t, srv, &seeker, http.MethodPost, "/api/bids/"+bid.ID+"/negotiation",
		map[string]any{"reasons": []string{"PRICING"}, "message": "Could you do 60k?"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	thread := decodeAs[models.NegotiationThread](t, data)
	require.Len(t, thread.Inputs, 1)

	fee := int64(65000)
	resp, data = call(t, srv, &provider, http.MethodPost, "/api/negotiations/"+thread.ID+"/inputs", models.NegotiationInputRequest{
		Reason:          models.ReasonPricing,
		ProposedChanges: models.ProposedChanges{ProfessionalFee: &fee},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = call(t, srv, &seeker, http.MethodGet, "/api/bids/"+bid.ID+"/negotiation", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	thread = decodeAs[models.NegotiationThread](t, data)
	assert.Len(t, thread.Inputs, 2)
}

func TestAllocationsOverHTTP(t *testing.T) {
	srv := newServer(t)
	a := openRequest(t, srv)
	b := openRequest(t, srv)

	resp, data := call(t, srv, &seeker, http.MethodPut, "/api/requests/"+b.ID+"/allocation", map[string]string{"teamMemberId": "member-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	resp, data = call(t, srv, &seeker, http.MethodPost, "/api/allocations/bulk", []models.AllocationRequest{
		{ServiceRequestID: a.ID, TeamMemberID: "member-1"},
		{ServiceRequestID: b.ID, TeamMemberID: "member-1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	bulk := decodeAs[handlers.BulkAllocationResponse](t, data)
	require.Len(t, bulk.Allocations, 1)
	assert.Equal(t, a.ID, bulk.Allocations[0].ServiceRequestID)
	assert.Len(t, bulk.Failures, 1)

	resp, data = call(t, srv, &seeker, http.MethodPost, "/api/allocations/bulk", []models.AllocationRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))

	resp, data = call(t, srv, &seeker, http.MethodGet, "/api/requests/"+b.ID+"/allocations", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Len(t, decodeAs[[]models.AllocationRecord](t, data), 1)
}
