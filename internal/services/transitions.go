package services

import (
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// Переходы заявки. Всё, чего нет в таблице, запрещено.
var allowedRequestTransition = map[models.RequestStatus][]models.RequestStatus{
	models.DraftRequest: {models.OpenRequest, models.CancelledRequest},
	models.OpenRequest: {
		models.BidReceivedRequest, models.AwardedRequest, models.SubmissionTimePassedRequest,
		models.ClosedRequest, models.CancelledRequest,
	},
	models.BidReceivedRequest: {
		models.AwardedRequest, models.SubmissionTimePassedRequest,
		models.ClosedRequest, models.CancelledRequest,
	},
	models.SubmissionTimePassedRequest: {
		models.AwardedRequest, models.ExpiredRequest, models.OpenRequest, models.BidReceivedRequest,
		models.ClosedRequest, models.CancelledRequest,
	},
	models.ExpiredRequest: {
		models.OpenRequest, models.BidReceivedRequest, models.ClosedRequest, models.CancelledRequest,
	},
	models.AwardedRequest:         {models.WorkOrderIssuedRequest, models.ClosedRequest, models.CancelledRequest},
	models.WorkOrderIssuedRequest: {models.InProgressRequest, models.CancelledRequest},
	models.InProgressRequest:      {models.CompletedRequest, models.CancelledRequest},
	models.CompletedRequest:       {},
	models.ClosedRequest:          {},
	models.CancelledRequest:       {},
}

var requestStatusOrder = []models.RequestStatus{
	models.DraftRequest, models.OpenRequest, models.BidReceivedRequest, models.SubmissionTimePassedRequest,
	models.ExpiredRequest, models.AwardedRequest, models.WorkOrderIssuedRequest, models.InProgressRequest,
	models.CompletedRequest, models.ClosedRequest, models.CancelledRequest,
}

// Операции, не меняющие статус, но допустимые только в части статусов.
var (
	updatableRequestStatuses  = []models.RequestStatus{models.DraftRequest, models.OpenRequest, models.BidReceivedRequest}
	extendableRequestStatuses = []models.RequestStatus{
		models.OpenRequest, models.BidReceivedRequest, models.SubmissionTimePassedRequest, models.ExpiredRequest,
	}
)

// Переходы предложения.
var allowedBidTransition = map[models.BidStatus][]models.BidStatus{
	models.DraftBid: {models.SubmittedBid, models.WithdrawnBid},
	models.SubmittedBid: {
		models.UnderReviewBid, models.UnderNegotiationBid, models.AcceptedBid, models.RejectedBid, models.WithdrawnBid,
	},
	models.UnderReviewBid: {
		models.UnderNegotiationBid, models.AcceptedBid, models.RejectedBid, models.WithdrawnBid,
	},
	models.UnderNegotiationBid: {
		models.UnderReviewBid, models.AcceptedBid, models.RejectedBid, models.WithdrawnBid,
	},
	models.AcceptedBid:  {},
	models.RejectedBid:  {},
	models.WithdrawnBid: {},
}

var bidStatusOrder = []models.BidStatus{
	models.DraftBid, models.SubmittedBid, models.UnderReviewBid, models.UnderNegotiationBid,
	models.AcceptedBid, models.RejectedBid, models.WithdrawnBid,
}

// checkRequestTransition проверяет переход заявки и описывает ошибку
// списком статусов, из которых переход возможен.
func checkRequestTransition(sr *models.ServiceRequest, to models.RequestStatus) error {
	if utils.Contains(allowedRequestTransition[sr.Status], to) {
		return nil
	}
	var expected []models.RequestStatus
	for _, from := range requestStatusOrder {
		if utils.Contains(allowedRequestTransition[from], to) {
			expected = append(expected, from)
		}
	}
	return models.NewTransitionError("service request", sr.ID, sr.Status, to, expected)
}

// checkRequestIn проверяет, что операция без смены статуса допустима.
func checkRequestIn(sr *models.ServiceRequest, allowed []models.RequestStatus) error {
	if utils.Contains(allowed, sr.Status) {
		return nil
	}
	return models.NewTransitionError("service request", sr.ID, sr.Status, sr.Status, allowed)
}

func checkBidTransition(bid *models.Bid, to models.BidStatus) error {
	if utils.Contains(allowedBidTransition[bid.Status], to) {
		return nil
	}
	var expected []models.BidStatus
	for _, from := range bidStatusOrder {
		if utils.Contains(allowedBidTransition[from], to) {
			expected = append(expected, from)
		}
	}
	return models.NewTransitionError("bid", bid.ID, bid.Status, to, expected)
}

// displayStatus возвращает заявку такой, какой её нужно показать сейчас:
// открытая заявка с истёкшим сроком видна как SUBMISSION_TIME_PASSED.
// В хранилище она переводится фоновой задачей.
func displayStatus(sr *models.ServiceRequest, now time.Time) *models.ServiceRequest {
	if sr.Status.AcceptsBids() && now.After(sr.Deadline) {
		sr.Status = models.SubmissionTimePassedRequest
		sr.MissedReason = models.MissedSubmissionTimePassed
	}
	return sr
}

// liveBid сообщает, участвует ли предложение в отборе.
func liveBid(bid *models.Bid) bool {
	switch bid.Status {
	case models.SubmittedBid, models.UnderReviewBid, models.UnderNegotiationBid:
		return true
	default:
		return false
	}
}
