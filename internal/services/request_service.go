package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

// DefaultAwardWindow - сколько заявка ждёт выбора победителя после окончания приёма предложений.
const DefaultAwardWindow = 14 * 24 * time.Hour

// MaxExtensionDays ограничивает одно продление срока.
const MaxExtensionDays = 365

type RequestService struct {
	core
	AwardWindow time.Duration
}

// NewRequestService создаёт новый экземпляр RequestService.
func NewRequestService(deps Dependencies, awardWindow time.Duration) *RequestService {
	if awardWindow <= 0 {
		awardWindow = DefaultAwardWindow
	}
	return &RequestService{core: newCore(deps), AwardWindow: awardWindow}
}

// Create создаёт черновик заявки.
func (s *RequestService) Create(ctx context.Context, p models.Principal, draft models.ServiceRequestDraft) (*models.ServiceRequest, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}

	now := s.now()
	sr := &models.ServiceRequest{
		ID:                     s.ids.NewID(),
		SRN:                    s.ids.NewReference("SRN", now),
		Title:                  strings.TrimSpace(draft.Title),
		Description:            draft.Description,
		ProfessionalCategories: dedupeOrNil(draft.ProfessionalCategories),
		ServiceTypes:           dedupeOrNil(draft.ServiceTypes),
		ScopeOfWork:            draft.ScopeOfWork,
		Budget:                 models.UnclearBudget(),
		Documents:              draft.Documents,
		Questionnaire:          draft.Questionnaire,
		RequiredBy:             draft.RequiredBy,
		PreferredLocations:     dedupeOrNil(draft.PreferredLocations),
		InvitedProviderIDs:     dedupeOrNil(draft.InvitedProviderIDs),
		Status:                 models.DraftRequest,
		CreatorID:              p.ID,
		OrganizationID:         p.OrganizationID,
		CreatedAt:              now,
		UpdatedAt:              now,
		Deadline:               draft.Deadline,
	}
	if draft.Budget != nil {
		sr.Budget = *draft.Budget
	}
	if err := validateRequestFields(sr); err != nil {
		return nil, err
	}

	if err := s.Repo.SaveServiceRequest(ctx, sr); err != nil {
		return nil, wrap("create service request", sr.ID, err)
	}
	s.publish(ctx, events.New(events.RequestCreated, sr.ID, sr.ID, p.ID, string(sr.Status), now))
	return sr, nil
}

// Get возвращает заявку. Просроченная открытая заявка отдаётся со статусом
// SUBMISSION_TIME_PASSED, даже если фоновая задача её ещё не перевела.
func (s *RequestService) Get(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, id)
	if err != nil {
		return nil, wrap("get service request", id, err)
	}

	if p.IsSeeker() {
		if !sr.OwnedBy(p) {
			return nil, models.NewUnauthorizedError("you are not authorized to view service request %s", id)
		}
		return displayStatus(sr, s.now()), nil
	}

	ok, err := providerCanSee(ctx, s.Repo, sr, p.ID)
	if err != nil {
		return nil, wrap("get service request", id, err)
	}
	if !ok {
		return nil, models.NewUnauthorizedError("you are not authorized to view service request %s", id)
	}
	return providerProjection(displayStatus(sr, s.now()), p.ID), nil
}

// Update применяет частичное изменение к заявке, пока та не ушла дальше приёма предложений.
func (s *RequestService) Update(ctx context.Context, p models.Principal, id string, patch models.ServiceRequestPatch) (*models.ServiceRequest, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, id)
	if err != nil {
		return nil, wrap("update service request", id, err)
	}
	if err := requireOwner(sr, p); err != nil {
		return nil, err
	}
	if patch.Version != nil && *patch.Version != sr.Version {
		return nil, models.NewConflictError("service request", id, *patch.Version)
	}

	now := s.now()
	shown := displayStatus(ptr(sr.Clone()), now)
	if err := checkRequestIn(shown, updatableRequestStatuses); err != nil {
		return nil, err
	}

	applyPatch(sr, patch)
	if patch.Deadline != nil && sr.Status != models.DraftRequest && !patch.Deadline.After(now) {
		return nil, models.NewValidationError("deadline of a published service request must be in the future")
	}
	if err := validateRequestFields(sr); err != nil {
		return nil, err
	}
	sr.UpdatedAt = now

	if err := s.Repo.SaveServiceRequest(ctx, sr); err != nil {
		return nil, wrap("update service request", id, err)
	}
	s.publish(ctx, events.New(events.RequestUpdated, sr.ID, sr.ID, p.ID, string(sr.Status), now))
	return sr, nil
}

// Publish открывает заявку для предложений.
func (s *RequestService) Publish(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, id)
	if err != nil {
		return nil, wrap("publish service request", id, err)
	}
	if err := requireOwner(sr, p); err != nil {
		return nil, err
	}
	if err := checkRequestTransition(sr, models.OpenRequest); err != nil {
		return nil, err
	}

	now := s.now()
	if err := validatePublishable(sr, now); err != nil {
		return nil, err
	}
	sr.Status = models.OpenRequest
	sr.UpdatedAt = now

	if err := s.Repo.SaveServiceRequest(ctx, sr); err != nil {
		return nil, wrap("publish service request", id, err)
	}
	s.publish(ctx, events.New(events.RequestPublished, sr.ID, sr.ID, p.ID, string(sr.Status), now))
	return sr, nil
}

// ReceiveBid отмечает получение первого предложения. Повторный вызов ничего не меняет.
func (s *RequestService) ReceiveBid(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var sr *models.ServiceRequest
	err := utils.RetryOnConflict(ctx, func() error {
		var err error
		sr, err = s.Repo.GetServiceRequest(ctx, id)
		if err != nil {
			return err
		}
		changed, err := receiveBid(sr, s.now())
		if err != nil || !changed {
			return err
		}
		return s.Repo.SaveServiceRequest(ctx, sr)
	})
	if err != nil {
		return nil, wrap("receive bid for service request", id, err)
	}
	return sr, nil
}

// receiveBid переводит OPEN в BID_RECEIVED. Возвращает false, если статус уже BID_RECEIVED.
func receiveBid(sr *models.ServiceRequest, now time.Time) (bool, error) {
	if sr.Status == models.BidReceivedRequest {
		return false, nil
	}
	if err := checkRequestTransition(sr, models.BidReceivedRequest); err != nil {
		return false, err
	}
	sr.Status = models.BidReceivedRequest
	sr.UpdatedAt = now
	return true, nil
}

// AwardBid выбирает победителя заявки через принятие предложения.
func (s *RequestService) AwardBid(ctx context.Context, p models.Principal, id, bidID string) (*models.Bid, error) {
	return s.acceptBid(ctx, p, bidID, id)
}

// awardRequest записывает победителя в заявку.
func awardRequest(sr *models.ServiceRequest, bid *models.Bid, now time.Time) error {
	if err := checkRequestTransition(sr, models.AwardedRequest); err != nil {
		return err
	}
	sr.Status = models.AwardedRequest
	sr.WinningBidID = bid.ID
	sr.AwardedAmount = bid.Financials.TotalBidAmount
	sr.AwardedDate = &now
	sr.MissedReason = ""
	sr.UpdatedAt = now
	return nil
}

// Expire закрывает приём предложений по заявке с истёкшим сроком.
func (s *RequestService) Expire(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var sr *models.ServiceRequest
	err := utils.RetryOnConflict(ctx, func() error {
		var err error
		sr, err = s.Repo.GetServiceRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := checkRequestTransition(sr, models.SubmissionTimePassedRequest); err != nil {
			return err
		}
		now := s.now()
		if !now.After(sr.Deadline) {
			return models.NewValidationError("deadline of service request %s has not passed yet", id)
		}
		sr.Status = models.SubmissionTimePassedRequest
		sr.MissedReason = models.MissedSubmissionTimePassed
		sr.UpdatedAt = now
		return s.Repo.SaveServiceRequest(ctx, sr)
	})
	if err != nil {
		return nil, wrap("expire service request", id, err)
	}
	s.publish(ctx, events.New(events.RequestExpired, sr.ID, sr.ID, "", string(sr.Status), sr.UpdatedAt))
	return sr, nil
}

// ExpireOverdue - фоновый проход по срокам: просроченные открытые заявки переходят
// в SUBMISSION_TIME_PASSED, а заявки без победителя после окна выбора - в EXPIRED.
// Возвращает число изменённых заявок.
func (s *RequestService) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	var errs []error
	changed := 0

	overdue, err := s.Repo.ListServiceRequests(ctx, repository.RequestQuery{
		Statuses:       []models.RequestStatus{models.OpenRequest, models.BidReceivedRequest},
		DeadlineBefore: &now,
	})
	if err != nil {
		return 0, wrap("list overdue service requests", "", err)
	}
	for _, sr := range overdue {
		if _, err := s.Expire(ctx, sr.ID); err != nil {
			if skippable(err) {
				s.logger.Printf("skip expiry of service request %s: %v", sr.ID, err)
				continue
			}
			errs = append(errs, err)
			continue
		}
		changed++
	}

	cutoff := now.Add(-s.AwardWindow)
	stale, err := s.Repo.ListServiceRequests(ctx, repository.RequestQuery{
		Statuses:       []models.RequestStatus{models.SubmissionTimePassedRequest},
		DeadlineBefore: &cutoff,
	})
	if err != nil {
		return changed, errors.Join(append(errs, wrap("list stale service requests", "", err))...)
	}
	for _, sr := range stale {
		if err := s.finalizeExpiry(ctx, sr.ID, cutoff); err != nil {
			if skippable(err) {
				s.logger.Printf("skip final expiry of service request %s: %v", sr.ID, err)
				continue
			}
			errs = append(errs, err)
			continue
		}
		changed++
	}
	return changed, errors.Join(errs...)
}

func (s *RequestService) finalizeExpiry(ctx context.Context, id string, cutoff time.Time) error {
	var sr *models.ServiceRequest
	err := utils.RetryOnConflict(ctx, func() error {
		var err error
		sr, err = s.Repo.GetServiceRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := checkRequestTransition(sr, models.ExpiredRequest); err != nil {
			return err
		}
		if !sr.Deadline.Before(cutoff) {
			return models.NewValidationError("award window of service request %s is still open", id)
		}
		sr.Status = models.ExpiredRequest
		sr.UpdatedAt = s.now()
		return s.Repo.SaveServiceRequest(ctx, sr)
	})
	if err != nil {
		return wrap("expire service request", id, err)
	}
	s.publish(ctx, events.New(events.RequestExpired, sr.ID, sr.ID, "", string(sr.Status), sr.UpdatedAt))
	return nil
}

// skippable - заявку изменили параллельно, фоновый проход её пропускает.
func skippable(err error) bool {
	return errors.Is(err, models.ErrConcurrencyConflict) ||
		errors.Is(err, models.ErrInvalidTransition) ||
		errors.Is(err, models.ErrValidation)
}

// Extend продлевает срок приёма предложений на days дней. Если срок уже истёк,
// продление отсчитывается от текущего момента и заявка снова открывается.
func (s *RequestService) Extend(ctx context.Context, p models.Principal, id string, days int, reason string) (*models.ServiceRequest, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	if days < 1 || days > MaxExtensionDays {
		return nil, models.NewValidationError("extension must be between 1 and %d days", MaxExtensionDays)
	}

	var sr *models.ServiceRequest
	err := s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		var err error
		sr, err = repo.GetServiceRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(sr, p); err != nil {
			return err
		}
		if err := checkRequestIn(sr, extendableRequestStatuses); err != nil {
			return err
		}

		now := s.now()
		base := sr.Deadline
		if base.Before(now) {
			base = now
		}
		sr.Deadline = base.AddDate(0, 0, days)

		if !sr.Status.AcceptsBids() {
			bids, err := repo.ListBidsByRequest(ctx, id)
			if err != nil {
				return err
			}
			next := models.OpenRequest
			for i := range bids {
				if liveBid(&bids[i]) {
					next = models.BidReceivedRequest
					break
				}
			}
			if err := checkRequestTransition(sr, next); err != nil {
				return err
			}
			sr.Status = next
		}
		sr.MissedReason = ""
		sr.Notes = append(sr.Notes, models.AuditNote{Action: "extend", Reason: reason, ActorID: p.ID, RecordAt: now})
		sr.UpdatedAt = now
		return repo.SaveServiceRequest(ctx, sr)
	})
	if err != nil {
		return nil, wrap("extend service request", id, err)
	}
	s.publish(ctx, events.New(events.RequestExtended, sr.ID, sr.ID, p.ID, string(sr.Status), sr.UpdatedAt))
	return sr, nil
}

// Cancel отменяет заявку из любого незавершённого статуса. Предложения,
// которые ещё участвуют в отборе, отклоняются.
func (s *RequestService) Cancel(ctx context.Context, p models.Principal, id, reason string) (*models.ServiceRequest, error) {
	return s.terminate(ctx, p, id, reason, models.CancelledRequest, events.RequestCancelled)
}

// Close закрывает заявку без продолжения. Закрытие после выбора победителя
// означает, что заказ так и не был выдан.
func (s *RequestService) Close(ctx context.Context, p models.Principal, id, reason string) (*models.ServiceRequest, error) {
	return s.terminate(ctx, p, id, reason, models.ClosedRequest, events.RequestClosed)
}

// terminate переводит заявку в CANCELLED или CLOSED. Принятое предложение
// остаётся ACCEPTED и после этого: оно фиксирует, кого выбрали, а причина
// (won_but_no_work_order) хранится в заявке. Это единственный случай, когда
// ACCEPTED-предложение висит на заявке в конечном статусе.
func (s *RequestService) terminate(ctx context.Context, p models.Principal, id, reason string, to models.RequestStatus, evt events.Type) (*models.ServiceRequest, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, models.NewValidationError("reason is required")
	}

	var (
		sr      *models.ServiceRequest
		changed []models.Bid
	)
	err := s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		var err error
		changed = nil
		sr, err = repo.GetServiceRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(sr, p); err != nil {
			return err
		}
		if err := checkRequestTransition(sr, to); err != nil {
			return err
		}

		now := s.now()
		if to == models.ClosedRequest && sr.Status == models.AwardedRequest {
			sr.MissedReason = models.MissedWonButNoWorkOrder
		}
		sr.Status = to
		sr.Notes = append(sr.Notes, models.AuditNote{Action: strings.ToLower(string(to)), Reason: reason, ActorID: p.ID, RecordAt: now})
		sr.UpdatedAt = now
		if err := repo.SaveServiceRequest(ctx, sr); err != nil {
			return err
		}

		bids, err := repo.ListBidsByRequest(ctx, id)
		if err != nil {
			return err
		}
		for i := range bids {
			bid := &bids[i]
			if !liveBid(bid) {
				continue
			}
			bid.Status = models.RejectedBid
			bid.NeedsReconciliation = false
			bid.UpdatedAt = now
			if err := repo.SaveBid(ctx, bid); err != nil {
				return err
			}
			changed = append(changed, *bid)
		}
		return nil
	})
	if err != nil {
		return nil, wrap(strings.ToLower(string(to))+" service request", id, err)
	}

	evts := []events.Event{events.New(evt, sr.ID, sr.ID, p.ID, string(sr.Status), sr.UpdatedAt)}
	for _, bid := range changed {
		evts = append(evts, events.New(events.BidStatusChanged, bid.ID, sr.ID, p.ID, string(bid.Status), bid.UpdatedAt))
	}
	s.publish(ctx, evts...)
	return sr, nil
}

// IssueWorkOrder фиксирует выдачу заказа победителю.
func (s *RequestService) IssueWorkOrder(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error) {
	return s.advance(ctx, p, id, models.WorkOrderIssuedRequest)
}

// StartWork отмечает начало работ.
func (s *RequestService) StartWork(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error) {
	return s.advance(ctx, p, id, models.InProgressRequest)
}

// Complete завершает заявку.
func (s *RequestService) Complete(ctx context.Context, p models.Principal, id string) (*models.ServiceRequest, error) {
	return s.advance(ctx, p, id, models.CompletedRequest)
}

func (s *RequestService) advance(ctx context.Context, p models.Principal, id string, to models.RequestStatus) (*models.ServiceRequest, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, id)
	if err != nil {
		return nil, wrap("advance service request", id, err)
	}
	if err := requireOwner(sr, p); err != nil {
		return nil, err
	}
	if err := checkRequestTransition(sr, to); err != nil {
		return nil, err
	}
	sr.Status = to
	sr.UpdatedAt = s.now()
	if err := s.Repo.SaveServiceRequest(ctx, sr); err != nil {
		return nil, wrap("advance service request", id, err)
	}
	s.publish(ctx, events.New(events.RequestProgressed, sr.ID, sr.ID, p.ID, string(sr.Status), sr.UpdatedAt))
	return sr, nil
}

// MarkNotInterested запоминает, что исполнитель не будет участвовать в заявке.
func (s *RequestService) MarkNotInterested(ctx context.Context, p models.Principal, id, reason string) (*models.ServiceRequest, error) {
	if err := requireProvider(p); err != nil {
		return nil, err
	}

	var sr *models.ServiceRequest
	err := utils.RetryOnConflict(ctx, func() error {
		var err error
		sr, err = s.Repo.GetServiceRequest(ctx, id)
		if err != nil {
			return err
		}
		ok, err := providerCanSee(ctx, s.Repo, sr, p.ID)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewUnauthorizedError("you are not authorized to view service request %s", id)
		}

		now := s.now()
		mark := models.NotInterestedMark{ProviderID: p.ID, Reason: reason, MarkedAt: now}
		replaced := false
		for i := range sr.NotInterested {
			if sr.NotInterested[i].ProviderID == p.ID {
				sr.NotInterested[i] = mark
				replaced = true
			}
		}
		if !replaced {
			sr.NotInterested = append(sr.NotInterested, mark)
		}
		sr.UpdatedAt = now
		return s.Repo.SaveServiceRequest(ctx, sr)
	})
	if err != nil {
		return nil, wrap("mark service request not interested", id, err)
	}
	s.publish(ctx, events.New(events.RequestNotInterested, sr.ID, sr.ID, p.ID, string(models.NotInterestedRequest), sr.UpdatedAt))
	return providerProjection(displayStatus(sr, s.now()), p.ID), nil
}

// providerCanSee проверяет, доступна ли опубликованная заявка исполнителю:
// заявка открыта всем, исполнитель приглашён или уже подавал предложение.
func providerCanSee(ctx context.Context, repo repository.Repository, sr *models.ServiceRequest, providerID string) (bool, error) {
	if sr.Status == models.DraftRequest {
		return false, nil
	}
	if !sr.InviteOnly() || sr.IsInvited(providerID) {
		return true, nil
	}
	bids, err := repo.ListBidsByRequest(ctx, sr.ID)
	if err != nil {
		return false, err
	}
	for _, bid := range bids {
		if bid.ProviderID == providerID {
			return true, nil
		}
	}
	return false, nil
}

// providerProjection убирает из заявки то, что исполнителю видеть не положено.
func providerProjection(sr *models.ServiceRequest, providerID string) *models.ServiceRequest {
	sr.InvitedProviderIDs = nil
	sr.CurrentAssignee = ""
	sr.Notes = nil
	if mark, ok := sr.NotInterestedBy(providerID); ok {
		sr.NotInterested = []models.NotInterestedMark{mark}
	} else {
		sr.NotInterested = nil
	}
	return sr
}

func applyPatch(sr *models.ServiceRequest, patch models.ServiceRequestPatch) {
	if patch.Title != nil {
		sr.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		sr.Description = *patch.Description
	}
	if patch.ProfessionalCategories != nil {
		sr.ProfessionalCategories = dedupeOrNil(patch.ProfessionalCategories)
	}
	if patch.ServiceTypes != nil {
		sr.ServiceTypes = dedupeOrNil(patch.ServiceTypes)
	}
	if patch.ScopeOfWork != nil {
		sr.ScopeOfWork = *patch.ScopeOfWork
	}
	if patch.Budget != nil {
		sr.Budget = *patch.Budget
	}
	if patch.Documents != nil {
		sr.Documents = patch.Documents
	}
	if patch.Questionnaire != nil {
		sr.Questionnaire = patch.Questionnaire
	}
	if patch.RequiredBy != nil {
		sr.RequiredBy = patch.RequiredBy
	}
	if patch.PreferredLocations != nil {
		sr.PreferredLocations = dedupeOrNil(patch.PreferredLocations)
	}
	if patch.InvitedProviderIDs != nil {
		sr.InvitedProviderIDs = dedupeOrNil(patch.InvitedProviderIDs)
	}
	if patch.Deadline != nil {
		sr.Deadline = *patch.Deadline
	}
}

// validateRequestFields проверяет поля, заполненные на любом этапе: пустое допустимо,
// заполненное должно быть корректным.
func validateRequestFields(sr *models.ServiceRequest) error {
	switch sr.Budget.Kind {
	case models.BudgetNotClear:
	case models.BudgetDefined:
		if sr.Budget.Min < 0 || sr.Budget.Max <= 0 || sr.Budget.Min > sr.Budget.Max {
			return models.NewValidationError("budget range must satisfy 0 <= min <= max and max > 0")
		}
	default:
		return models.NewValidationError("unsupported budget kind: %s", sr.Budget.Kind)
	}
	for i, doc := range sr.Documents {
		if doc.Name == "" || doc.URL == "" {
			return models.NewValidationError("document %d must have a name and a url", i)
		}
	}
	for i, item := range sr.Questionnaire {
		if strings.TrimSpace(item.Question) == "" {
			return models.NewValidationError("questionnaire item %d has no question", i)
		}
		if item.Required && item.Skipped {
			return models.NewValidationError("questionnaire item %d is required and cannot be skipped", i)
		}
	}
	if sr.RequiredBy != nil && !sr.Deadline.IsZero() && sr.RequiredBy.Before(sr.Deadline) {
		return models.NewValidationError("required-by date cannot be earlier than the submission deadline")
	}
	return nil
}

// validatePublishable проверяет, что заявку можно показывать исполнителям.
func validatePublishable(sr *models.ServiceRequest, now time.Time) error {
	var missing []string
	if sr.Title == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(sr.Description) == "" {
		missing = append(missing, "description")
	}
	if len(sr.ServiceTypes) == 0 {
		missing = append(missing, "serviceTypes")
	}
	if sr.Deadline.IsZero() {
		missing = append(missing, "deadline")
	}
	if len(missing) > 0 {
		return models.NewValidationError("missing required fields: %s", strings.Join(missing, ", "))
	}
	if !sr.Deadline.After(now) {
		return models.NewValidationError("deadline must be in the future")
	}
	for i, item := range sr.Questionnaire {
		if item.Required && strings.TrimSpace(item.Answer) == "" {
			return models.NewValidationError("questionnaire item %d is required and has no answer", i)
		}
	}
	return validateRequestFields(sr)
}

func dedupeOrNil(values []string) []string {
	if values == nil {
		return nil
	}
	return utils.Dedupe(values)
}

func ptr[T any](v T) *T {
	return &v
}
