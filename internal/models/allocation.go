package models

import "time"

// AllocationRecord - запись журнала назначений сотрудника на заявку.
type AllocationRecord struct {
	ID               string    `json:"id"`
	ServiceRequestID string    `json:"serviceRequestId"`
	PreviousAssignee string    `json:"previousAssignee,omitempty"`
	NewAssignee      string    `json:"newAssignee"`
	AllocatedBy      string    `json:"allocatedBy"`
	AllocatedAt      time.Time `json:"allocatedAt"`
	Reason           string    `json:"reason,omitempty"`
}

// AllocationRequest - одно назначение, в том числе в пакетном режиме.
type AllocationRequest struct {
	ServiceRequestID string `json:"serviceRequestId"`
	TeamMemberID     string `json:"teamMemberId"`
	Reason           string `json:"reason,omitempty"`
}
