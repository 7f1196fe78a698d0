package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

const (
	DefaultPageLimit = 5
	MaxPageLimit     = 50
)

type OpportunityService struct {
	core
}

// NewOpportunityService создает новый экземпляр OpportunityService.
func NewOpportunityService(deps Dependencies) *OpportunityService {
	return &OpportunityService{core: newCore(deps)}
}

// ListServiceRequests возвращает заявки заказчика (и его организации) вместе со всеми поданными предложениями.
func (s *OpportunityService) ListServiceRequests(ctx context.Context, p models.Principal, filter models.ListFilter, page models.Pagination) (*models.Page[models.SeekerRequestView], error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	page, err := normalizeFilter(&filter, page)
	if err != nil {
		return nil, err
	}

	requests, err := s.Repo.ListServiceRequests(ctx, repository.RequestQuery{
		CreatorID:      p.ID,
		OrganizationID: p.OrganizationID,
		CreatedFrom:    filter.CreatedFrom,
		CreatedTo:      filter.CreatedTo,
	})
	if err != nil {
		return nil, wrap("list service requests of", p.ID, err)
	}

	now := s.now()
	var rows []listRow
	for i := range requests {
		sr := displayStatus(&requests[i], now)
		if !matchFilter(sr, sr.Status, filter) {
			continue
		}
		rows = append(rows, listRow{sr: sr, status: sr.Status})
	}
	sortRows(rows, filter)

	result := &models.Page[models.SeekerRequestView]{Items: []models.SeekerRequestView{}, Total: len(rows), Limit: page.Limit, Offset: page.Offset}
	pageRows := paginate(rows, page)
	ids := make([]string, 0, len(pageRows))
	for _, row := range pageRows {
		ids = append(ids, row.sr.ID)
	}
	bidsByRequest, err := s.bidsByRequest(ctx, ids)
	if err != nil {
		return nil, wrap("list service requests of", p.ID, err)
	}
	for _, row := range pageRows {
		view := models.SeekerRequestView{ServiceRequest: *row.sr, Bids: []models.Bid{}}
		for _, bid := range bidsByRequest[row.sr.ID] {
			if bid.Status != models.DraftBid {
				view.Bids = append(view.Bids, bid)
			}
		}
		result.Items = append(result.Items, view)
	}
	return result, nil
}

// ListOpportunities возвращает ленту исполнителя: опубликованные заявки, на которые он
// может подать предложение, и заявки, в которых он уже участвует. Статус в ленте -
// с точки зрения исполнителя.
func (s *OpportunityService) ListOpportunities(ctx context.Context, p models.Principal, filter models.ListFilter, page models.Pagination) (*models.Page[models.Opportunity], error) {
	if err := requireProvider(p); err != nil {
		return nil, err
	}
	page, err := normalizeFilter(&filter, page)
	if err != nil {
		return nil, err
	}

	requests, err := s.Repo.ListServiceRequests(ctx, repository.RequestQuery{
		ExcludeDrafts: true,
		CreatedFrom:   filter.CreatedFrom,
		CreatedTo:     filter.CreatedTo,
	})
	if err != nil {
		return nil, wrap("list opportunities for", p.ID, err)
	}
	ids := make([]string, 0, len(requests))
	for _, sr := range requests {
		ids = append(ids, sr.ID)
	}
	bidsByRequest, err := s.bidsByRequest(ctx, ids)
	if err != nil {
		return nil, wrap("list opportunities for", p.ID, err)
	}

	now := s.now()
	var rows []listRow
	for i := range requests {
		sr := displayStatus(&requests[i], now)
		bids := bidsByRequest[sr.ID]

		var mine *models.Bid
		count := 0
		for j := range bids {
			bid := &bids[j]
			if bid.Status != models.DraftBid {
				count++
			}
			if bid.ProviderID == p.ID && (mine == nil || liveBid(bid) || bid.IsWinningBid) {
				mine = bid
			}
		}
		_, notInterested := sr.NotInterestedBy(p.ID)
		invited := sr.IsInvited(p.ID)

		if sr.InviteOnly() && !invited && mine == nil {
			continue
		}
		if !sr.Status.AcceptsBids() && !invited && mine == nil && !notInterested {
			continue
		}

		status := providerStatus(sr, mine, p.ID)
		if !matchFilter(sr, status, filter) {
			continue
		}
		rows = append(rows, listRow{sr: sr, status: status, mine: mine, bidCount: count})
	}
	sortRows(rows, filter)

	result := &models.Page[models.Opportunity]{Items: []models.Opportunity{}, Total: len(rows), Limit: page.Limit, Offset: page.Offset}
	for _, row := range paginate(rows, page) {
		result.Items = append(result.Items, toOpportunity(row, p.ID))
	}
	return result, nil
}

// bidsByRequest загружает предложения по набору заявок одним обращением к хранилищу.
func (s *OpportunityService) bidsByRequest(ctx context.Context, ids []string) (map[string][]models.Bid, error) {
	out := make(map[string][]models.Bid, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	bids, err := s.Repo.ListBidsByRequests(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, bid := range bids {
		out[bid.ServiceRequestID] = append(out[bid.ServiceRequestID], bid)
	}
	return out, nil
}

// providerStatus выводит статус заявки с точки зрения исполнителя.
func providerStatus(sr *models.ServiceRequest, mine *models.Bid, providerID string) models.RequestStatus {
	if mine != nil && mine.IsWinningBid {
		if sr.MissedReason == models.MissedWonButNoWorkOrder {
			return models.WonButNoWorkOrderRequest
		}
		return sr.Status
	}
	if _, ok := sr.NotInterestedBy(providerID); ok {
		return models.NotInterestedRequest
	}
	if sr.WinningBidID != "" {
		return models.AwardedToAnotherRequest
	}
	if sr.MissedReason != "" && sr.MissedReason != models.MissedWonButNoWorkOrder {
		return sr.MissedReason.ProviderStatus()
	}
	return sr.Status
}

func toOpportunity(row listRow, providerID string) models.Opportunity {
	sr := row.sr
	o := models.Opportunity{
		ID:                     sr.ID,
		SRN:                    sr.SRN,
		Title:                  sr.Title,
		Description:            sr.Description,
		ProfessionalCategories: sr.ProfessionalCategories,
		ServiceTypes:           sr.ServiceTypes,
		ScopeOfWork:            sr.ScopeOfWork,
		Budget:                 sr.Budget,
		Documents:              sr.Documents,
		Questionnaire:          sr.Questionnaire,
		RequiredBy:             sr.RequiredBy,
		PreferredLocations:     sr.PreferredLocations,
		Deadline:               sr.Deadline,
		CreatedAt:              sr.CreatedAt,
		Status:                 row.status,
		IsInvited:              sr.IsInvited(providerID),
		BidCount:               row.bidCount,
	}
	if row.mine != nil {
		o.MyBid = &models.BidSummary{
			ID:             row.mine.ID,
			Reference:      row.mine.Reference,
			Status:         row.mine.Status,
			TotalBidAmount: row.mine.Financials.TotalBidAmount,
			IsWinningBid:   row.mine.IsWinningBid,
		}
	}
	return o
}

type listRow struct {
	sr       *models.ServiceRequest
	status   models.RequestStatus
	mine     *models.Bid
	bidCount int
}

// normalizeFilter проверяет фильтр и параметры страницы, подставляя значения по умолчанию.
func normalizeFilter(filter *models.ListFilter, page models.Pagination) (models.Pagination, error) {
	if filter.SortBy == "" {
		filter.SortBy = models.SortByCreatedAt
	}
	if !filter.SortBy.Valid() {
		return page, models.NewValidationError("unsupported sort key: %s", filter.SortBy)
	}
	if filter.Order == "" {
		filter.Order = models.Desc
	}
	if filter.Order != models.Asc && filter.Order != models.Desc {
		return page, models.NewValidationError("unsupported sort order: %s", filter.Order)
	}
	for _, st := range filter.Statuses {
		if !st.Valid() && st != models.AwardedToAnotherRequest && st != models.WonButNoWorkOrderRequest && st != models.NotInterestedRequest {
			return page, models.NewValidationError("unsupported status: %s", st)
		}
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedTo.Before(*filter.CreatedFrom) {
		return page, models.NewValidationError("createdTo cannot be earlier than createdFrom")
	}

	if page.Limit == 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit < 0 || page.Limit > MaxPageLimit {
		return page, models.NewValidationError("invalid limit parameter, must be a positive integer [0:%d]", MaxPageLimit)
	}
	if page.Offset < 0 {
		return page, models.NewValidationError("invalid offset parameter, must be a non-negative integer")
	}
	return page, nil
}

func matchFilter(sr *models.ServiceRequest, status models.RequestStatus, filter models.ListFilter) bool {
	if len(filter.Statuses) > 0 && !utils.Contains(filter.Statuses, status) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(filter.Search)); q != "" {
		if !strings.Contains(strings.ToLower(sr.Title), q) &&
			!strings.Contains(strings.ToLower(sr.Description), q) &&
			!strings.Contains(strings.ToLower(sr.SRN), q) {
			return false
		}
	}
	if filter.CreatedFrom != nil && sr.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && sr.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	if len(filter.ServiceTypes) > 0 {
		found := false
		for _, t := range filter.ServiceTypes {
			for _, have := range sr.ServiceTypes {
				if strings.EqualFold(t, have) {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// sortRows упорядочивает по выбранному ключу; при равенстве - по ID, чтобы
// страницы не "плыли" при параллельных вставках.
func sortRows(rows []listRow, filter models.ListFilter) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].sr, rows[j].sr
		c := compareBy(a, b, filter.SortBy)
		if c == 0 {
			return a.ID < b.ID
		}
		if filter.Order == models.Asc {
			return c < 0
		}
		return c > 0
	})
}

func compareBy(a, b *models.ServiceRequest, key models.SortKey) int {
	switch key {
	case models.SortByDeadline:
		return compareTime(a.Deadline, b.Deadline)
	case models.SortByTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case models.SortByBudget:
		return compareInt(budgetKey(a.Budget), budgetKey(b.Budget))
	default:
		return compareTime(a.CreatedAt, b.CreatedAt)
	}
}

// budgetKey - неопределённый бюджет считается меньше любого заданного.
func budgetKey(b models.Budget) int64 {
	if b.Kind != models.BudgetDefined {
		return -1
	}
	return b.Max
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func paginate(rows []listRow, page models.Pagination) []listRow {
	if page.Offset >= len(rows) {
		return nil
	}
	end := page.Offset + page.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[page.Offset:end]
}
