package models

import (
	"slices"
	"time"
)

type (
	RequestStatus string // Статус заявки на услугу
	MissedReason  string // Причина, по которой исполнитель не получил заказ
	BudgetKind    string // Вид бюджета заявки
)

const (
	DraftRequest                RequestStatus = "DRAFT"
	OpenRequest                 RequestStatus = "OPEN"
	BidReceivedRequest          RequestStatus = "BID_RECEIVED"
	AwardedRequest              RequestStatus = "AWARDED"
	WorkOrderIssuedRequest      RequestStatus = "WORK_ORDER_ISSUED"
	InProgressRequest           RequestStatus = "IN_PROGRESS"
	CompletedRequest            RequestStatus = "COMPLETED"
	ClosedRequest               RequestStatus = "CLOSED"
	CancelledRequest            RequestStatus = "CANCELLED"
	ExpiredRequest              RequestStatus = "EXPIRED"
	SubmissionTimePassedRequest RequestStatus = "SUBMISSION_TIME_PASSED"

	// Статусы, видимые только исполнителю в ленте возможностей.
	AwardedToAnotherRequest  RequestStatus = "AWARDED_TO_ANOTHER"
	WonButNoWorkOrderRequest RequestStatus = "WON_BUT_NO_WORK_ORDER"
	NotInterestedRequest     RequestStatus = "NOT_INTERESTED"
)

const (
	MissedAwardedToAnother     MissedReason = "awarded_to_another"
	MissedSubmissionTimePassed MissedReason = "submission_time_passed"
	MissedWonButNoWorkOrder    MissedReason = "won_but_no_work_order"
	MissedNotInterested        MissedReason = "not_interested"
)

const (
	BudgetDefined  BudgetKind = "defined"
	BudgetNotClear BudgetKind = "not_clear"
)

// Valid проверяет, что статус заявки входит в перечисление хранимых статусов.
func (s RequestStatus) Valid() bool {
	switch s {
	case DraftRequest, OpenRequest, BidReceivedRequest, AwardedRequest, WorkOrderIssuedRequest,
		InProgressRequest, CompletedRequest, ClosedRequest, CancelledRequest, ExpiredRequest,
		SubmissionTimePassedRequest:
		return true
	default:
		return false
	}
}

// Terminal сообщает, является ли статус конечным.
func (s RequestStatus) Terminal() bool {
	switch s {
	case CompletedRequest, ClosedRequest, CancelledRequest:
		return true
	default:
		return false
	}
}

// AcceptsBids сообщает, можно ли подавать предложения в этом статусе.
func (s RequestStatus) AcceptsBids() bool {
	return s == OpenRequest || s == BidReceivedRequest
}

// Awarded сообщает, выбран ли победитель.
func (s RequestStatus) Awarded() bool {
	switch s {
	case AwardedRequest, WorkOrderIssuedRequest, InProgressRequest, CompletedRequest:
		return true
	default:
		return false
	}
}

// Valid проверяет причину промаха.
func (r MissedReason) Valid() bool {
	switch r {
	case MissedAwardedToAnother, MissedSubmissionTimePassed, MissedWonButNoWorkOrder, MissedNotInterested:
		return true
	default:
		return false
	}
}

// ProviderStatus отображает причину промаха в статус ленты исполнителя.
func (r MissedReason) ProviderStatus() RequestStatus {
	switch r {
	case MissedAwardedToAnother:
		return AwardedToAnotherRequest
	case MissedSubmissionTimePassed:
		return SubmissionTimePassedRequest
	case MissedWonButNoWorkOrder:
		return WonButNoWorkOrderRequest
	case MissedNotInterested:
		return NotInterestedRequest
	}
	return ""
}

// Budget - бюджет заявки: либо диапазон, либо "не определён".
type Budget struct {
	Kind BudgetKind `json:"kind"`
	Min  int64      `json:"min,omitempty"`
	Max  int64      `json:"max,omitempty"`
}

// DefinedBudget создаёт бюджет с диапазоном.
func DefinedBudget(min, max int64) Budget {
	return Budget{Kind: BudgetDefined, Min: min, Max: max}
}

// UnclearBudget создаёт неопределённый бюджет.
func UnclearBudget() Budget {
	return Budget{Kind: BudgetNotClear}
}

// Document - ссылка на приложенный документ. Само хранение файлов вне сервиса.
type Document struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

// QuestionnaireItem - вопрос анкеты заявки.
type QuestionnaireItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
	Required bool   `json:"required"`
	Skipped  bool   `json:"skipped"`
}

// NotInterestedMark - отметка исполнителя "не интересно".
type NotInterestedMark struct {
	ProviderID string    `json:"providerId"`
	Reason     string    `json:"reason,omitempty"`
	MarkedAt   time.Time `json:"markedAt"`
}

// AuditNote - запись журнала заявки (продление, отмена, закрытие).
type AuditNote struct {
	Action   string    `json:"action"`
	Reason   string    `json:"reason,omitempty"`
	ActorID  string    `json:"actorId"`
	RecordAt time.Time `json:"recordedAt"`
}

// ServiceRequest представляет модель заявки на услугу.
type ServiceRequest struct {
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
	InvitedProviderIDs     []string            `json:"invitedProviderIds"`
	Status                 RequestStatus       `json:"status"`
	CreatorID              string              `json:"creatorId"`
	OrganizationID         string              `json:"organizationId,omitempty"`
	CreatedAt              time.Time           `json:"createdAt"`
	UpdatedAt              time.Time           `json:"updatedAt"`
	Deadline               time.Time           `json:"deadline"`
	WinningBidID           string              `json:"winningBidId,omitempty"`
	AwardedAmount          int64               `json:"awardedAmount,omitempty"`
	AwardedDate            *time.Time          `json:"awardedDate,omitempty"`
	CurrentAssignee        string              `json:"currentAssignee,omitempty"`
	MissedReason           MissedReason        `json:"missedReason,omitempty"`
	NotInterested          []NotInterestedMark `json:"notInterested,omitempty"`
	Notes                  []AuditNote         `json:"notes,omitempty"`
	Version                int                 `json:"version"`
}

// ServiceRequestDraft представляет структуру запроса для создания заявки.
type ServiceRequestDraft struct {
	Title                  string              `json:"title"`
	Description            string              `json:"description"`
	ProfessionalCategories []string            `json:"professionalCategories"`
	ServiceTypes           []string            `json:"serviceTypes"`
	ScopeOfWork            string              `json:"scopeOfWork"`
	Budget                 *Budget             `json:"budget,omitempty"`
	Documents              []Document          `json:"documents"`
	Questionnaire          []QuestionnaireItem `json:"questionnaire"`
	RequiredBy             *time.Time          `json:"requiredBy,omitempty"`
	PreferredLocations     []string            `json:"preferredLocations"`
	InvitedProviderIDs     []string            `json:"invitedProviderIds"`
	Deadline               time.Time           `json:"deadline"`
}

// ServiceRequestPatch - частичное изменение заявки; nil означает "не менять".
type ServiceRequestPatch struct {
	Title                  *string             `json:"title,omitempty"`
	Description            *string             `json:"description,omitempty"`
	ProfessionalCategories []string            `json:"professionalCategories,omitempty"`
	ServiceTypes           []string            `json:"serviceTypes,omitempty"`
	ScopeOfWork            *string             `json:"scopeOfWork,omitempty"`
	Budget                 *Budget             `json:"budget,omitempty"`
	Documents              []Document          `json:"documents,omitempty"`
	Questionnaire          []QuestionnaireItem `json:"questionnaire,omitempty"`
	RequiredBy             *time.Time          `json:"requiredBy,omitempty"`
	PreferredLocations     []string            `json:"preferredLocations,omitempty"`
	InvitedProviderIDs     []string            `json:"invitedProviderIds,omitempty"`
	Deadline               *time.Time          `json:"deadline,omitempty"`

	// Version, если задана, должна совпадать с текущей версией заявки.
	Version *int `json:"version,omitempty"`
}

// IsInvited сообщает, приглашён ли исполнитель в заявку.
func (sr *ServiceRequest) IsInvited(providerID string) bool {
	return slices.Contains(sr.InvitedProviderIDs, providerID)
}

// InviteOnly сообщает, ограничен ли круг исполнителей приглашениями.
func (sr *ServiceRequest) InviteOnly() bool {
	return len(sr.InvitedProviderIDs) > 0
}

// OwnedBy сообщает, может ли заказчик управлять заявкой.
func (sr *ServiceRequest) OwnedBy(p Principal) bool {
	if !p.IsSeeker() {
		return false
	}
	if sr.CreatorID == p.ID {
		return true
	}
	return sr.OrganizationID != "" && sr.OrganizationID == p.OrganizationID
}

// NotInterestedBy возвращает отметку исполнителя, если она есть.
func (sr *ServiceRequest) NotInterestedBy(providerID string) (NotInterestedMark, bool) {
	for _, m := range sr.NotInterested {
		if m.ProviderID == providerID {
			return m, true
		}
	}
	return NotInterestedMark{}, false
}

// Clone возвращает глубокую копию заявки.
func (sr ServiceRequest) Clone() ServiceRequest {
	c := sr
	c.ProfessionalCategories = slices.Clone(sr.ProfessionalCategories)
	c.ServiceTypes = slices.Clone(sr.ServiceTypes)
	c.Documents = slices.Clone(sr.Documents)
	c.Questionnaire = slices.Clone(sr.Questionnaire)
	c.PreferredLocations = slices.Clone(sr.PreferredLocations)
	c.InvitedProviderIDs = slices.Clone(sr.InvitedProviderIDs)
	c.NotInterested = slices.Clone(sr.NotInterested)
	c.Notes = slices.Clone(sr.Notes)
	if sr.RequiredBy != nil {
		t := *sr.RequiredBy
		c.RequiredBy = &t
	}
	if sr.AwardedDate != nil {
		t := *sr.AwardedDate
		c.AwardedDate = &t
	}
	return c
}
