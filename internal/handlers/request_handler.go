package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
)

type RequestHandler struct {
	base
	Service *services.RequestService
	Views   *services.OpportunityService
}

// NewRequestHandler создает новый экземпляр RequestHandler.
func NewRequestHandler(service *services.RequestService, views *services.OpportunityService, logger *log.Logger, timeout time.Duration) *RequestHandler {
	return &RequestHandler{
		base:    newBase(logger, timeout),
		Service: service,
		Views:   views,
	}
}

type reasonBody struct {
	Reason string `json:"reason"`
}

type extendBody struct {
	Days   int    `json:"days"`
	Reason string `json:"reason"`
}

// CreateServiceRequest обрабатывает POST запрос к /api/requests
func (h *RequestHandler) CreateServiceRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to create service request")
		return
	}
	var draft models.ServiceRequestDraft
	if err := decode(r, &draft); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	sr, err := h.Service.Create(ctx, p, draft)
	if err != nil {
		h.fail(w, err, "failed to create service request")
		return
	}
	h.respond(w, http.StatusOK, sr)
}

// ListServiceRequests обрабатывает GET запрос к /api/requests
func (h *RequestHandler) ListServiceRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to list service requests")
		return
	}
	filter, page, err := parseListFilter(r)
	if err != nil {
		h.fail(w, err, "failed to list service requests")
		return
	}

	result, err := h.Views.ListServiceRequests(ctx, p, filter, page)
	if err != nil {
		h.fail(w, err, "failed to list service requests")
		return
	}
	h.respond(w, http.StatusOK, result)
}

// ListOpportunities обрабатывает GET запрос к /api/opportunities
func (h *RequestHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to list opportunities")
		return
	}
	filter, page, err := parseListFilter(r)
	if err != nil {
		h.fail(w, err, "failed to list opportunities")
		return
	}

	result, err := h.Views.ListOpportunities(ctx, p, filter, page)
	if err != nil {
		h.fail(w, err, "failed to list opportunities")
		return
	}
	h.respond(w, http.StatusOK, result)
}

// GetServiceRequest обрабатывает GET запрос к /api/requests/{id}
func (h *RequestHandler) GetServiceRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to get service request")
		return
	}

	sr, err := h.Service.Get(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "failed to get service request")
		return
	}
	h.respond(w, http.StatusOK, sr)
}

// UpdateServiceRequest обрабатывает PATCH запрос к /api/requests/{id}
func (h *RequestHandler) UpdateServiceRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to update service request")
		return
	}
	var patch models.ServiceRequestPatch
	if err := decode(r, &patch); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	sr, err := h.Service.Update(ctx, p, r.PathValue("id"), patch)
	if err != nil {
		h.fail(w, err, "failed to update service request")
		return
	}
	h.respond(w, http.StatusOK, sr)
}

// PublishServiceRequest обрабатывает PUT запрос к /api/requests/{id}/publish
func (h *RequestHandler) PublishServiceRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to publish service request", h.Service.Publish)
}

// IssueWorkOrder обрабатывает PUT запрос к /api/requests/{id}/work-order
func (h *RequestHandler) IssueWorkOrder(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to issue work order", h.Service.IssueWorkOrder)
}

// StartWork обрабатывает PUT запрос к /api/requests/{id}/start
func (h *RequestHandler) StartWork(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to start work", h.Service.StartWork)
}

// CompleteServiceRequest обрабатывает PUT запрос к /api/requests/{id}/complete
func (h *RequestHandler) CompleteServiceRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "failed to complete service request", h.Service.Complete)
}

// CancelServiceRequest обрабатывает PUT запрос к /api/requests/{id}/cancel
func (h *RequestHandler) CancelServiceRequest(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, "failed to cancel service request", h.Service.Cancel)
}

// CloseServiceRequest обрабатывает PUT запрос к /api/requests/{id}/close
func (h *RequestHandler) CloseServiceRequest(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, "failed to close service request", h.Service.Close)
}

// MarkNotInterested обрабатывает PUT запрос к /api/requests/{id}/not-interested
func (h *RequestHandler) MarkNotInterested(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, "failed to mark service request as not interested", h.Service.MarkNotInterested)
}

// ExtendDeadline обрабатывает PUT запрос к /api/requests/{id}/extend
func (h *RequestHandler) ExtendDeadline(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to extend deadline")
		return
	}
	var body extendBody
	if err := decode(r, &body); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	sr, err := h.Service.Extend(ctx, p, r.PathValue("id"), body.Days, body.Reason)
	if err != nil {
		h.fail(w, err, "failed to extend deadline")
		return
	}
	h.respond(w, http.StatusOK, sr)
}

type requestTransition func(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error)

type requestTransitionWithReason func(ctx context.Context, p models.Principal, id, reason string) (*models.ServiceRequest, error)

func (h *RequestHandler) transition(w http.ResponseWriter, r *http.Request, fallback string, fn requestTransition) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, fallback)
		return
	}

	sr, err := fn(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, fallback)
		return
	}
	h.respond(w, http.StatusOK, sr)
}

// withReason читает необязательное тело {"reason": ...}; пустое тело допустимо.
func (h *RequestHandler) withReason(w http.ResponseWriter, r *http.Request, fallback string, fn requestTransitionWithReason) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, fallback)
		return
	}
	var body reasonBody
	if err := decodeOptional(r, &body); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	sr, err := fn(ctx, p, r.PathValue("id"), body.Reason)
	if err != nil {
		h.fail(w, err, fallback)
		return
	}
	h.respond(w, http.StatusOK, sr)
}
