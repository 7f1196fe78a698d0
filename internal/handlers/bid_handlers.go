package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
)

type BidHandler struct {
	base
	Service *services.BidService
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *log.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		base:    newBase(logger, timeout),
		Service: service,
	}
}

// SubmitBid обрабатывает POST запрос к /api/bids. С ?draft=true предложение сохраняется черновиком.
func (h *BidHandler) SubmitBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to submit bid")
		return
	}
	draft := false
	if v := r.URL.Query().Get("draft"); v != "" {
		draft, err = strconv.ParseBool(v)
		if err != nil {
			h.fail(w, models.NewErrorResponse(http.StatusBadRequest, "invalid draft parameter"), "failed to submit bid")
			return
		}
	}
	var req models.BidRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	var bid *models.Bid
	if draft {
		bid, err = h.Service.SaveDraft(ctx, p, req)
	} else {
		bid, err = h.Service.Submit(ctx, p, req)
	}
	if err != nil {
		h.fail(w, err, "failed to submit bid")
		return
	}
	h.respond(w, http.StatusOK, bid)
}

// GetBid обрабатывает GET запрос к /api/bids/{id}
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	h.bidAction(w, r, "failed to get bid", h.Service.Get)
}

// ListBids обрабатывает GET запрос к /api/requests/{id}/bids
func (h *BidHandler) ListBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to list bids")
		return
	}

	bids, err := h.Service.ListForRequest(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "failed to list bids")
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	h.respond(w, http.StatusOK, bids)
}

// SubmitDraftBid обрабатывает PUT запрос к /api/bids/{id}/submit
func (h *BidHandler) SubmitDraftBid(w http.ResponseWriter, r *http.Request) {
	h.bidAction(w, r, "failed to submit bid", h.Service.SubmitDraft)
}

// ReviewBid обрабатывает PUT запрос к /api/bids/{id}/review
func (h *BidHandler) ReviewBid(w http.ResponseWriter, r *http.Request) {
	h.bidAction(w, r, "failed to review bid", h.Service.Review)
}

// AcceptBid обрабатывает PUT запрос к /api/bids/{id}/accept
func (h *BidHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	h.bidAction(w, r, "failed to accept bid", h.Service.Accept)
}

// RejectBid обрабатывает PUT запрос к /api/bids/{id}/reject
func (h *BidHandler) RejectBid(w http.ResponseWriter, r *http.Request) {
	h.bidAction(w, r, "failed to reject bid", h.Service.Reject)
}

// WithdrawBid обрабатывает PUT запрос к /api/bids/{id}/withdraw
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	h.bidAction(w, r, "failed to withdraw bid", h.Service.Withdraw)
}

type bidOperation func(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error)

func (h *BidHandler) bidAction(w http.ResponseWriter, r *http.Request, fallback string, fn bidOperation) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, fallback)
		return
	}

	bid, err := fn(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, fallback)
		return
	}
	h.respond(w, http.StatusOK, bid)
}
