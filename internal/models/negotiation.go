package models

import (
	"slices"
	"time"
)

type (
	NegotiationReason string // Предмет переговоров
	ThreadStatus      string // Статус переговоров
)

const (
	ReasonPricing       NegotiationReason = "PRICING"
	ReasonTimeline      NegotiationReason = "TIMELINE"
	ReasonScope         NegotiationReason = "SCOPE"
	ReasonFeeAdjustment NegotiationReason = "FEE_ADJUSTMENT"
	ReasonPaymentTerms  NegotiationReason = "PAYMENT_TERMS"
	ReasonOther         NegotiationReason = "OTHER"

	ActiveThread    ThreadStatus = "active"
	CompletedThread ThreadStatus = "completed"
)

// Valid проверяет предмет переговоров.
func (r NegotiationReason) Valid() bool {
	switch r {
	case ReasonPricing, ReasonTimeline, ReasonScope, ReasonFeeAdjustment, ReasonPaymentTerms, ReasonOther:
		return true
	default:
		return false
	}
}

// ProposedChanges - предлагаемые изменения полей предложения. Носят рекомендательный
// характер и к предложению автоматически не применяются.
type ProposedChanges struct {
	ProfessionalFee *int64      `json:"professionalFee,omitempty"`
	DeliveryDate    *time.Time  `json:"deliveryDate,omitempty"`
	Milestones      []Milestone `json:"milestones,omitempty"`
	AdditionalScope *string     `json:"additionalScope,omitempty"`
}

// Empty сообщает, что изменений не предложено.
func (c ProposedChanges) Empty() bool {
	return c.ProfessionalFee == nil && c.DeliveryDate == nil && c.Milestones == nil && c.AdditionalScope == nil
}

// NegotiationInput - один ход в переговорах.
type NegotiationInput struct {
	Seq             int               `json:"seq"`
	SenderID        string            `json:"senderId"`
	SenderRole      Role              `json:"senderRole"`
	Timestamp       time.Time         `json:"timestamp"`
	Reason          NegotiationReason `json:"reason"`
	Message         string            `json:"message"`
	ProposedChanges ProposedChanges   `json:"proposedChanges"`
	FinalAcceptance bool              `json:"finalAcceptance"`
}

// NegotiationInputRequest - ход, присланный клиентом.
type NegotiationInputRequest struct {
	Reason          NegotiationReason `json:"reason"`
	Message         string            `json:"message"`
	ProposedChanges ProposedChanges   `json:"proposedChanges"`
	FinalAcceptance bool              `json:"finalAcceptance"`
}

// NegotiationThread представляет переговоры по одному предложению.
type NegotiationThread struct {
	ID               string              `json:"id"`
	BidID            string              `json:"bidId"`
	ServiceRequestID string              `json:"serviceRequestId"`
	InitiatorID      string              `json:"initiatorId"`
	InitiatorRole    Role                `json:"initiatorRole"`
	Reasons          []NegotiationReason `json:"reasons"`
	Status           ThreadStatus        `json:"status"`
	Inputs           []NegotiationInput  `json:"inputs"`
	LastActivity     time.Time           `json:"lastActivity"`
	CreatedAt        time.Time           `json:"createdAt"`
	Version          int                 `json:"version"`
}

// HasFinalAcceptance сообщает, прислала ли одна из сторон финальное согласие.
func (t *NegotiationThread) HasFinalAcceptance() bool {
	for _, in := range t.Inputs {
		if in.FinalAcceptance {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию переговоров.
func (t NegotiationThread) Clone() NegotiationThread {
	c := t
	c.Reasons = slices.Clone(t.Reasons)
	c.Inputs = make([]NegotiationInput, len(t.Inputs))
	for i, in := range t.Inputs {
		c.Inputs[i] = in.clone()
	}
	return c
}

func (in NegotiationInput) clone() NegotiationInput {
	c := in
	c.ProposedChanges.Milestones = slices.Clone(in.ProposedChanges.Milestones)
	if in.ProposedChanges.ProfessionalFee != nil {
		v := *in.ProposedChanges.ProfessionalFee
		c.ProposedChanges.ProfessionalFee = &v
	}
	if in.ProposedChanges.DeliveryDate != nil {
		v := *in.ProposedChanges.DeliveryDate
		c.ProposedChanges.DeliveryDate = &v
	}
	if in.ProposedChanges.AdditionalScope != nil {
		v := *in.ProposedChanges.AdditionalScope
		c.ProposedChanges.AdditionalScope = &v
	}
	return c
}
