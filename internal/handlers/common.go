package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// Заголовки, которыми шлюз передаёт аутентифицированного пользователя.
const (
	HeaderUserID         = "X-User-Id"
	HeaderUserRole       = "X-User-Role"
	HeaderOrganizationID = "X-Organization-Id"
)

// DefaultTimeout ограничивает обработку одного запроса.
const DefaultTimeout = 5 * time.Second

type base struct {
	Logger  *log.Logger
	Timeout time.Duration
}

func newBase(logger *log.Logger, timeout time.Duration) base {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return base{Logger: logger, Timeout: timeout}
}

func (h *base) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.Timeout)
}

// principal достаёт пользователя из заголовков запроса.
func principal(r *http.Request) (models.Principal, error) {
	p := models.Principal{
		ID:             strings.TrimSpace(r.Header.Get(HeaderUserID)),
		Role:           models.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))),
		OrganizationID: strings.TrimSpace(r.Header.Get(HeaderOrganizationID)),
	}
	if p.ID == "" {
		return p, models.NewErrorResponse(http.StatusUnauthorized, "missing "+HeaderUserID+" header")
	}
	if !p.Role.Valid() {
		return p, models.NewErrorResponse(http.StatusUnauthorized, "missing or invalid "+HeaderUserRole+" header")
	}
	return p, nil
}

// fail отправляет ошибку сервиса клиенту вместе с текущим и ожидаемыми состояниями.
func (h *base) fail(w http.ResponseWriter, err error, fallback string) {
	h.Logger.Println(err)
	if errorResponse, ok := models.AsErrorResponse(err); ok {
		utils.SendError(w, errorResponse)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		utils.SendError(w, models.NewTimeoutError("request"))
		return
	}
	utils.SendErrorResponse(w, http.StatusInternalServerError, fallback)
}

func (h *base) respond(w http.ResponseWriter, statusCode int, payload any) {
	if err := utils.SendJSON(w, statusCode, payload); err != nil {
		h.Logger.Println(err)
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// decodeOptional разбирает тело, если оно есть.
func decodeOptional(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return models.NewErrorResponse(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// parseListFilter читает фильтры и страницу ленты из строки запроса.
func parseListFilter(r *http.Request) (models.ListFilter, models.Pagination, error) {
	q := r.URL.Query()

	limit, offset, err := utils.ParseLimitOffset(q.Get("limit"), q.Get("offset"))
	if err != nil {
		return models.ListFilter{}, models.Pagination{}, models.NewErrorResponse(http.StatusBadRequest, err.Error())
	}

	filter := models.ListFilter{
		Search:       q.Get("search"),
		ServiceTypes: q["service_type"],
		SortBy:       models.SortKey(q.Get("sortBy")),
		Order:        models.SortOrder(strings.ToLower(q.Get("order"))),
	}
	for _, st := range q["status"] {
		filter.Statuses = append(filter.Statuses, models.RequestStatus(strings.ToUpper(st)))
	}
	if v := q.Get("createdFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, models.Pagination{}, models.NewErrorResponse(http.StatusBadRequest, "invalid createdFrom, RFC3339 expected")
		}
		filter.CreatedFrom = &t
	}
	if v := q.Get("createdTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, models.Pagination{}, models.NewErrorResponse(http.StatusBadRequest, "invalid createdTo, RFC3339 expected")
		}
		filter.CreatedTo = &t
	}
	return filter, models.Pagination{Limit: limit, Offset: offset}, nil
}
