package models

import (
	"slices"
	"time"
)

// QueryClarification - вопрос или ответ по заявке. Хранится плоско (ParentID, RootID),
// отдаётся деревом через Responses.
type QueryClarification struct {
	ID               string               `json:"id"`
	ServiceRequestID string               `json:"serviceRequestId"`
	BidID            string               `json:"bidId,omitempty"`
	ParentID         string               `json:"parentId,omitempty"`
	RootID           string               `json:"rootId"`
	SenderID         string               `json:"senderId"`
	SenderRole       Role                 `json:"senderRole"`
	Message          string               `json:"message"`
	IsPublic         bool                 `json:"isPublic"`
	Recipients       []string             `json:"recipients,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	Responses        []QueryClarification `json:"responses"`
}

// QueryRequest представляет структуру запроса для нового вопроса.
type QueryRequest struct {
	BidID      string   `json:"bidId,omitempty"`
	Message    string   `json:"message"`
	IsPublic   bool     `json:"isPublic"`
	Recipients []string `json:"recipients,omitempty"`
}

// IsRoot сообщает, что узел - корневой вопрос.
func (q *QueryClarification) IsRoot() bool {
	return q.ParentID == ""
}

// Clone возвращает копию узла без ответов.
func (q QueryClarification) Clone() QueryClarification {
	c := q
	c.Recipients = slices.Clone(q.Recipients)
	c.Responses = nil
	return c
}
