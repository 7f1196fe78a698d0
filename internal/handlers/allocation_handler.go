package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/services"
)

type AllocationHandler struct {
	base
	Service *services.AllocationService
}

// NewAllocationHandler создает новый экземпляр AllocationHandler.
func NewAllocationHandler(service *services.AllocationService, logger *log.Logger, timeout time.Duration) *AllocationHandler {
	return &AllocationHandler{
		base:    newBase(logger, timeout),
		Service: service,
	}
}

type allocateBody struct {
	TeamMemberID string `json:"teamMemberId"`
	Reason       string `json:"reason"`
}

// BulkAllocationResponse - результат пакетного назначения: успешные записи и ошибки по остальным.
type BulkAllocationResponse struct {
	Allocations []models.AllocationRecord `json:"allocations"`
	Failures    []string                  `json:"failures,omitempty"`
}

// Allocate обрабатывает PUT запрос к /api/requests/{id}/allocation
func (h *AllocationHandler) Allocate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to allocate service request")
		return
	}
	var body allocateBody
	if err := decode(r, &body); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	rec, err := h.Service.Allocate(ctx, p, models.AllocationRequest{
		ServiceRequestID: r.PathValue("id"),
		TeamMemberID:     body.TeamMemberID,
		Reason:           body.Reason,
	})
	if err != nil {
		h.fail(w, err, "failed to allocate service request")
		return
	}
	h.respond(w, http.StatusOK, rec)
}

// BulkAllocate обрабатывает POST запрос к /api/allocations/bulk. Частичный
// успех возвращается со статусом 200 и списком ошибок.
func (h *AllocationHandler) BulkAllocate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to allocate service requests")
		return
	}
	var items []models.AllocationRequest
	if err := decode(r, &items); err != nil {
		h.fail(w, err, "invalid request body")
		return
	}

	records, err := h.Service.BulkAllocate(ctx, p, items)
	if err != nil && records == nil {
		h.fail(w, err, "failed to allocate service requests")
		return
	}

	resp := BulkAllocationResponse{Allocations: records}
	if err != nil {
		h.Logger.Println(err)
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				resp.Failures = append(resp.Failures, e.Error())
			}
		} else {
			resp.Failures = []string{err.Error()}
		}
	}
	h.respond(w, http.StatusOK, resp)
}

// AllocationHistory обрабатывает GET запрос к /api/requests/{id}/allocations
func (h *AllocationHandler) AllocationHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	p, err := principal(r)
	if err != nil {
		h.fail(w, err, "failed to get allocation history")
		return
	}

	history, err := h.Service.History(ctx, p, r.PathValue("id"))
	if err != nil {
		h.fail(w, err, "failed to get allocation history")
		return
	}
	h.respond(w, http.StatusOK, history)
}
