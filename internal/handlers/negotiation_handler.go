package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
)

type NegotiationHandler struct {
	base
	Service *services.NegotiationService
}

// NewNegotiationHandler создает новый экземпляр NegotiationHandler.
func NewNegotiationHandler(service *services.NegotiationService, logger *log.Logger, timeout time.Duration) *NegotiationHandler {
	return &NegotiationHandler{
		base:    newBase(logger, timeout),
		Service: service,
	}
}

type initiateBody struct {
	Reasons []models.NegotiationReason `json:"reasons"`
	Message string                     `json:"message"`
}

// InitiateNegotiation обрабатывает POST запрос к /api/bids/{id}/negotiation
func (h *NegotiationHandler) InitiateNegotiation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to initiate negotiation")
		return
	}
	var body initiateBody
	if err := decode(r, &body); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	thread, err := h.Service.Initiate(ctx, p, r.PathValue("id"), body.Reasons, body.Message)
	if err != nil {
		h.fail(w, err, "failed to initiate negotiation")
		return
	}
	h.respond(w, http.StatusOK, thread)
}

// GetNegotiationByBid обрабатывает GET запрос к /api/bids/{id}/negotiation
func (h *NegotiationHandler) GetNegotiationByBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to get negotiation")
		return
	}

	thread, err := h.Service.GetByBid(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "failed to get negotiation")
		return
	}
	h.respond(w, http.StatusOK, thread)
}

// GetNegotiation обрабатывает GET запрос к /api/negotiations/{id}
func (h *NegotiationHandler) GetNegotiation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to get negotiation")
		return
	}

	thread, err := h.Service.Get(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "failed to get negotiation")
		return
	}
	h.respond(w, http.StatusOK, thread)
}

// SubmitNegotiationInput обрабатывает POST запрос к /api/negotiations/{id}/inputs
func (h *NegotiationHandler) SubmitNegotiationInput(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to submit negotiation input")
		return
	}
	var req models.NegotiationInputRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	thread, err := h.Service.SubmitInput(ctx, p, r.PathValue("id"), req)
	if err != nil {
		h.fail(w, err, "failed to submit negotiation input")
		return
	}
	h.respond(w, http.StatusOK, thread)
}
