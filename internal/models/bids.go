package models

import (
	"math"
	"slices"
	"time"
)

type (
	BidStatus   string // Статус предложения
	PaymentKind string // Схема оплаты
)

const (
	DraftBid            BidStatus = "DRAFT"
	SubmittedBid        BidStatus = "SUBMITTED"
	UnderReviewBid      BidStatus = "UNDER_REVIEW"
	UnderNegotiationBid BidStatus = "UNDER_NEGOTIATION"
	AcceptedBid         BidStatus = "ACCEPTED"
	RejectedBid         BidStatus = "REJECTED"
	WithdrawnBid        BidStatus = "WITHDRAWN"

	LumpSum    PaymentKind = "lump_sum"
	Milestones PaymentKind = "milestones"
	Retainer   PaymentKind = "retainer"
)

// Valid проверяет, что статус предложения известен.
func (s BidStatus) Valid() bool {
	switch s {
	case DraftBid, SubmittedBid, UnderReviewBid, UnderNegotiationBid, AcceptedBid, RejectedBid, WithdrawnBid:
		return true
	default:
		return false
	}
}

// Terminal сообщает, что предложение больше не меняется.
func (s BidStatus) Terminal() bool {
	return s == AcceptedBid || s == RejectedBid || s == WithdrawnBid
}

// Valid проверяет схему оплаты.
func (k PaymentKind) Valid() bool {
	switch k {
	case LumpSum, Milestones, Retainer:
		return true
	default:
		return false
	}
}

// Milestone - этап оплаты.
type Milestone struct {
	Label   string    `json:"label"`
	Amount  int64     `json:"amount"`
	DueDate time.Time `json:"dueDate"`
}

// PaymentStructure - схема оплаты: единовременно, по этапам или абонентская.
// Этапы заполняются только для Milestones.
type PaymentStructure struct {
	Kind       PaymentKind `json:"kind"`
	Milestones []Milestone `json:"milestones,omitempty"`
}

// Reimbursement - возмещаемый расход.
type Reimbursement struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// Financials - финансовая часть предложения.
type Financials struct {
	ProfessionalFee int64            `json:"professionalFee"`
	PlatformFee     int64            `json:"platformFee"`
	Tax             int64            `json:"tax"`
	Reimbursements  []Reimbursement  `json:"reimbursements"`
	TotalBidAmount  int64            `json:"totalBidAmount"`
	Payment         PaymentStructure `json:"payment"`
}

// ComputedTotal считает итоговую сумму по составляющим. ok == false, если
// сумма не помещается в int64.
func (f Financials) ComputedTotal() (total int64, ok bool) {
	if f.Payment.Kind == Milestones {
		for _, m := range f.Payment.Milestones {
			if total, ok = addAmount(total, m.Amount); !ok {
				return 0, false
			}
		}
		return total, true
	}
	for _, v := range []int64{f.ProfessionalFee, f.PlatformFee, f.Tax} {
		if total, ok = addAmount(total, v); !ok {
			return 0, false
		}
	}
	for _, r := range f.Reimbursements {
		if total, ok = addAmount(total, r.Amount); !ok {
			return 0, false
		}
	}
	return total, true
}

// addAmount складывает неотрицательные суммы с проверкой переполнения.
func addAmount(a, b int64) (int64, bool) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// ProviderSnapshot - профиль исполнителя на момент подачи предложения.
type ProviderSnapshot struct {
	Name              string   `json:"name"`
	Rating            float64  `json:"rating"`
	CompletedProjects int      `json:"completedProjects"`
	Expertise         []string `json:"expertise"`
	Location          string   `json:"location"`
}

// Bid представляет модель предложения.
type Bid struct {
	ID                  string           `json:"id"`
	Reference           string           `json:"reference"`
	ServiceRequestID    string           `json:"serviceRequestId"`
	ProviderID          string           `json:"providerId"`
	Provider            ProviderSnapshot `json:"provider"`
	Financials          Financials       `json:"financials"`
	DeliveryDate        time.Time        `json:"deliveryDate"`
	AdditionalInput     string           `json:"additionalInput,omitempty"`
	Documents           []Document       `json:"documents"`
	Status              BidStatus        `json:"status"`
	IsInvited           bool             `json:"isInvited"`
	IsWinningBid        bool             `json:"isWinningBid"`
	AwardedAmount       int64            `json:"awardedAmount,omitempty"`
	NeedsReconciliation bool             `json:"needsReconciliation,omitempty"`
	NegotiationThreadID string           `json:"negotiationThreadId,omitempty"`
	SubmittedAt         *time.Time       `json:"submittedAt,omitempty"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	Version             int              `json:"version"`
}

// BidRequest представляет структуру запроса для создания предложения.
type BidRequest struct {
	ServiceRequestID string           `json:"serviceRequestId"`
	Provider         ProviderSnapshot `json:"provider"`
	Financials       Financials       `json:"financials"`
	DeliveryDate     time.Time        `json:"deliveryDate"`
	AdditionalInput  string           `json:"additionalInput"`
	Documents        []Document       `json:"documents"`
}

// Clone возвращает глубокую копию предложения.
func (b Bid) Clone() Bid {
	c := b
	c.Provider.Expertise = slices.Clone(b.Provider.Expertise)
	c.Financials.Reimbursements = slices.Clone(b.Financials.Reimbursements)
	c.Financials.Payment.Milestones = slices.Clone(b.Financials.Payment.Milestones)
	c.Documents = slices.Clone(b.Documents)
	if b.SubmittedAt != nil {
		t := *b.SubmittedAt
		c.SubmittedAt = &t
	}
	return c
}
