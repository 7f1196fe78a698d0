package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
)

type QueryHandler struct {
	base
	Service *services.QueryService
}

// NewQueryHandler создает новый экземпляр QueryHandler.
func NewQueryHandler(service *services.QueryService, logger *log.Logger, timeout time.Duration) *QueryHandler {
	return &QueryHandler{
		base:    newBase(logger, timeout),
		Service: service,
	}
}

type replyBody struct {
	Message string `json:"message"`
}

// PostQuery обрабатывает POST запрос к /api/requests/{id}/queries
func (h *QueryHandler) PostQuery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to post query")
		return
	}
	var req models.QueryRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	q, err := h.Service.PostQuery(ctx, p, r.PathValue("id"), req)
	if err != nil {
		h.fail(w, err, "failed to post query")
		return
	}
	h.respond(w, http.StatusOK, q)
}

// PostReply обрабатывает POST запрос к /api/queries/{id}/replies
func (h *QueryHandler) PostReply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to post reply")
		return
	}
	var body replyBody
	if err := decode(r, &body); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	reply, err := h.Service.PostReply(ctx, p, r.PathValue("id"), body.Message)
	if err != nil {
		h.fail(w, err, "failed to post reply")
		return
	}
	h.respond(w, http.StatusOK, reply)
}

// GetQueries обрабатывает GET запрос к /api/requests/{id}/queries
func (h *QueryHandler) GetQueries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to get queries")
		return
	}

	queries, err := h.Service.GetQueries(ctx, p, r.PathValue("id"), r.URL.Query().Get("bidId"))
	if err != nil {
		h.fail(w, err, "failed to get queries")
		return
	}
	if queries == nil {
		queries = []models.QueryClarification{}
	}
	h.respond(w, http.StatusOK, queries)
}

// GetBidQueries обрабатывает GET запрос к /api/bids/{id}/queries
func (h *QueryHandler) GetBidQueries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to get queries")
		return
	}

	queries, err := h.Service.GetQueriesForBid(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "failed to get queries")
		return
	}
	if queries == nil {
		queries = []models.QueryClarification{}
	}
	h.respond(w, http.StatusOK, queries)
}
