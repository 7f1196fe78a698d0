package models

import "time"

type (
	SortKey   string // Поле сортировки ленты
	SortOrder string // Направление сортировки
)

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByDeadline  SortKey = "deadline"
	SortByTitle     SortKey = "title"
	SortByBudget    SortKey = "budget"

	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Valid проверяет поле сортировки.
func (k SortKey) Valid() bool {
	switch k {
	case SortByCreatedAt, SortByDeadline, SortByTitle, SortByBudget:
		return true
	default:
		return false
	}
}

// ListFilter - фильтры ленты заявок.
type ListFilter struct {
	Statuses     []RequestStatus `json:"statuses,omitempty"`
	Search       string          `json:"search,omitempty"`
	CreatedFrom  *time.Time      `json:"createdFrom,omitempty"`
	CreatedTo    *time.Time      `json:"createdTo,omitempty"`
	ServiceTypes []string        `json:"serviceTypes,omitempty"`
	SortBy       SortKey         `json:"sortBy,omitempty"`
	Order        SortOrder       `json:"order,omitempty"`
}

// Pagination - параметры страницы.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Page - страница результатов.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// SeekerRequestView - заявка заказчика со всеми предложениями.
type SeekerRequestView struct {
	ServiceRequest
	Bids []Bid `json:"bids"`
}

// BidSummary - сведения о собственном предложении исполнителя.
type BidSummary struct {
	ID             string    `json:"id"`
	Reference      string    `json:"reference"`
	Status         BidStatus `json:"status"`
	TotalBidAmount int64     `json:"totalBidAmount"`
	IsWinningBid   bool      `json:"isWinningBid"`
}

// Opportunity - заявка в ленте исполнителя. Не содержит чужих предложений,
// списка приглашённых, назначенного сотрудника и внутренних заметок.
type Opportunity struct {
	ID                     string              `json:"id"`
	SRN                    string              `json:"srn"`
	Title                  string              `json:"title"`
	Description            string              `json:"description"`
	ProfessionalCategories []string            `json:"professionalCategories"`
	ServiceTypes           []string            `json:"serviceTypes"`
	ScopeOfWork            string              `json:"scopeOfWork"`
	Budget                 Budget              `json:"budget"`
	Documents              []Document          `json:"documents"`
	Questionnaire          []QuestionnaireItem `json:"questionnaire"`
	RequiredBy             *time.Time          `json:"requiredBy,omitempty"`
	PreferredLocations     []string            `json:"preferredLocations"`
	Deadline               time.Time           `json:"deadline"`
	CreatedAt              time.Time           `json:"createdAt"`
	Status                 RequestStatus       `json:"status"`
	IsInvited              bool                `json:"isInvited"`
	BidCount               int                 `json:"bidCount"`
	MyBid                  *BidSummary         `json:"myBid,omitempty"`
}
