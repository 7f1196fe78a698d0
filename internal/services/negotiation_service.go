package services

import (
	"context"
	"slices"
	"strings"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

type NegotiationService struct {
	core
}

// NewNegotiationService создает новый экземпляр NegotiationService.
func NewNegotiationService(deps Dependencies) *NegotiationService {
	return &NegotiationService{core: newCore(deps)}
}

// Initiate открывает переговоры по предложению. Повторный вызов по тому же
// предложению возвращает существующие переговоры и снова переводит предложение
// в UNDER_NEGOTIATION.
func (s *NegotiationService) Initiate(ctx context.Context, p models.Principal, bidID string, reasons []models.NegotiationReason, message string) (*models.NegotiationThread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if len(reasons) == 0 {
		return nil, models.NewValidationError("at least one negotiation reason is required")
	}
	var uniq []models.NegotiationReason
	for _, r := range reasons {
		if !r.Valid() {
			return nil, models.NewValidationError("unsupported negotiation reason: %s", r)
		}
		if !slices.Contains(uniq, r) {
			uniq = append(uniq, r)
		}
	}

	var (
		thread  *models.NegotiationThread
		bid     *models.Bid
		created bool
	)
	err := utils.RetryOnConflict(ctx, func() error {
		return s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
			var err error
			created = false
			bid, err = repo.GetBid(ctx, bidID)
			if err != nil {
				return err
			}
			sr, err := repo.GetServiceRequest(ctx, bid.ServiceRequestID)
			if err != nil {
				return err
			}
			if err := authorizeParty(sr, bid, p); err != nil {
				return err
			}
			if bid.Status == models.DraftBid {
				return models.NewNotFoundError("bid", bidID)
			}
			if err := checkBidTransition(bid, models.UnderNegotiationBid); err != nil {
				return err
			}

			now := s.now()
			thread, err = repo.GetNegotiationThreadByBid(ctx, bid.ID)
			switch {
			case err == nil:
				for _, r := range uniq {
					if !slices.Contains(thread.Reasons, r) {
						thread.Reasons = append(thread.Reasons, r)
					}
				}
				if err := repo.SaveNegotiationThread(ctx, thread); err != nil {
					return err
				}
			case models.IsNotFound(err):
				thread = &models.NegotiationThread{
					ID:               s.ids.NewID(),
					BidID:            bid.ID,
					ServiceRequestID: bid.ServiceRequestID,
					InitiatorID:      p.ID,
					InitiatorRole:    p.Role,
					Reasons:          uniq,
					Status:           models.ActiveThread,
					LastActivity:     now,
					CreatedAt:        now,
				}
				if err := repo.SaveNegotiationThread(ctx, thread); err != nil {
					return err
				}
				created = true
			default:
				return err
			}

			if strings.TrimSpace(message) != "" {
				input := models.NegotiationInput{
					SenderID:   p.ID,
					SenderRole: p.Role,
					Timestamp:  laterOf(now, thread.LastActivity),
					Reason:     uniq[0],
					Message:    message,
				}
				if err := repo.AppendNegotiationInput(ctx, thread, input); err != nil {
					return err
				}
			}

			bid.Status = models.UnderNegotiationBid
			bid.NegotiationThreadID = thread.ID
			bid.UpdatedAt = now
			return repo.SaveBid(ctx, bid)
		})
	})
	if err != nil {
		return nil, wrap("initiate negotiation for bid", bidID, err)
	}

	evts := []events.Event{events.New(events.BidStatusChanged, bid.ID, bid.ServiceRequestID, p.ID, string(bid.Status), bid.UpdatedAt)}
	if created {
		evts = append(evts, events.New(events.NegotiationStarted, thread.ID, thread.ServiceRequestID, p.ID, string(thread.Status), thread.CreatedAt))
	}
	s.publish(ctx, evts...)
	return thread, nil
}

// SubmitInput дописывает ход в переговоры. Время хода не меньше времени
// предыдущего; при параллельной записи ход повторяется с новым номером.
// Предложенные изменения к предложению не применяются.
func (s *NegotiationService) SubmitInput(ctx context.Context, p models.Principal, threadID string, req models.NegotiationInputRequest) (*models.NegotiationThread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if !req.Reason.Valid() {
		return nil, models.NewValidationError("unsupported negotiation reason: %q", req.Reason)
	}
	if strings.TrimSpace(req.Message) == "" && req.ProposedChanges.Empty() && !req.FinalAcceptance {
		return nil, models.NewValidationError("input must carry a message, proposed changes or a final acceptance")
	}
	if fee := req.ProposedChanges.ProfessionalFee; fee != nil && *fee < 0 {
		return nil, models.NewValidationError("proposed professional fee cannot be negative")
	}
	for i, m := range req.ProposedChanges.Milestones {
		if strings.TrimSpace(m.Label) == "" || m.Amount <= 0 {
			return nil, models.NewValidationError("proposed milestone %d must have a label and a positive amount", i)
		}
	}

	var (
		thread    *models.NegotiationThread
		completed bool
	)
	err := utils.RetryOnConflict(ctx, func() error {
		return s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
			var err error
			completed = false
			thread, err = repo.GetNegotiationThread(ctx, threadID)
			if err != nil {
				return err
			}
			bid, err := repo.GetBid(ctx, thread.BidID)
			if err != nil {
				return err
			}
			sr, err := repo.GetServiceRequest(ctx, thread.ServiceRequestID)
			if err != nil {
				return err
			}
			if err := authorizeParty(sr, bid, p); err != nil {
				return err
			}
			if thread.Status != models.ActiveThread {
				return models.NewTransitionError("negotiation thread", thread.ID, thread.Status, models.ActiveThread,
					[]models.ThreadStatus{models.ActiveThread})
			}
			// После принятия предложения допускается только финальное согласие:
			// оно и завершает переговоры.
			if bid.Status.Terminal() && !(bid.Status == models.AcceptedBid && req.FinalAcceptance) {
				return models.NewTransitionError("bid", bid.ID, bid.Status, models.UnderNegotiationBid,
					[]models.BidStatus{models.SubmittedBid, models.UnderReviewBid, models.UnderNegotiationBid})
			}

			input := models.NegotiationInput{
				SenderID:        p.ID,
				SenderRole:      p.Role,
				Timestamp:       laterOf(s.now(), thread.LastActivity),
				Reason:          req.Reason,
				Message:         req.Message,
				ProposedChanges: req.ProposedChanges,
				FinalAcceptance: req.FinalAcceptance,
			}
			if err := repo.AppendNegotiationInput(ctx, thread, input); err != nil {
				return err
			}

			if bid.Status == models.AcceptedBid && thread.HasFinalAcceptance() {
				thread.Status = models.CompletedThread
				if err := repo.SaveNegotiationThread(ctx, thread); err != nil {
					return err
				}
				completed = true
			}
			return nil
		})
	})
	if err != nil {
		return nil, wrap("submit negotiation input to thread", threadID, err)
	}

	evts := []events.Event{events.New(events.NegotiationInputAdded, thread.ID, thread.ServiceRequestID, p.ID, string(thread.Status), thread.LastActivity)}
	if completed {
		evts = append(evts, events.New(events.NegotiationCompleted, thread.ID, thread.ServiceRequestID, p.ID, string(thread.Status), thread.LastActivity))
	}
	s.publish(ctx, evts...)
	return thread, nil
}

// Get возвращает переговоры участнику.
func (s *NegotiationService) Get(ctx context.Context, p models.Principal, threadID string) (*models.NegotiationThread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	thread, err := s.Repo.GetNegotiationThread(ctx, threadID)
	if err != nil {
		return nil, wrap("get negotiation thread", threadID, err)
	}
	if err := s.authorizeThread(ctx, thread, p); err != nil {
		return nil, err
	}
	return thread, nil
}

// GetByBid возвращает переговоры по предложению.
func (s *NegotiationService) GetByBid(ctx context.Context, p models.Principal, bidID string) (*models.NegotiationThread, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	thread, err := s.Repo.GetNegotiationThreadByBid(ctx, bidID)
	if err != nil {
		return nil, wrap("get negotiation thread for bid", bidID, err)
	}
	if err := s.authorizeThread(ctx, thread, p); err != nil {
		return nil, err
	}
	return thread, nil
}

func (s *NegotiationService) authorizeThread(ctx context.Context, thread *models.NegotiationThread, p models.Principal) error {
	bid, err := s.Repo.GetBid(ctx, thread.BidID)
	if err != nil {
		return wrap("get negotiation thread", thread.ID, err)
	}
	sr, err := s.Repo.GetServiceRequest(ctx, thread.ServiceRequestID)
	if err != nil {
		return wrap("get negotiation thread", thread.ID, err)
	}
	return authorizeParty(sr, bid, p)
}

// authorizeParty - в переговорах участвуют только заказчик заявки и автор предложения.
func authorizeParty(sr *models.ServiceRequest, bid *models.Bid, p models.Principal) error {
	if p.IsProvider() && bid.ProviderID == p.ID {
		return nil
	}
	if p.IsSeeker() && sr.OwnedBy(p) {
		return nil
	}
	return models.NewUnauthorizedError("only the seeker of service request %s and the author of bid %s may negotiate", sr.ID, bid.ID)
}
