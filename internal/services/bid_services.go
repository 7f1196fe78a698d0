package services

import (
	"context"
	"strings"
	"time"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

type BidService struct {
	core
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(deps Dependencies) *BidService {
	return &BidService{core: newCore(deps)}
}

// Submit подаёт новое предложение и отмечает получение предложения в заявке.
func (s *BidService) Submit(ctx context.Context, p models.Principal, req models.BidRequest) (*models.Bid, error) {
	return s.create(ctx, p, req, models.SubmittedBid)
}

// SaveDraft сохраняет предложение, не подавая его. Итоговая сумма пока не сверяется.
func (s *BidService) SaveDraft(ctx context.Context, p models.Principal, req models.BidRequest) (*models.Bid, error) {
	return s.create(ctx, p, req, models.DraftBid)
}

func (s *BidService) create(ctx context.Context, p models.Principal, req models.BidRequest, status models.BidStatus) (*models.Bid, error) {
	if err := requireProvider(p); err != nil {
		return nil, err
	}
	if req.ServiceRequestID == "" {
		return nil, models.NewValidationError("serviceRequestId is required")
	}
	if err := validateFinancials(req.Financials, status == models.SubmittedBid); err != nil {
		return nil, err
	}
	if req.DeliveryDate.IsZero() {
		return nil, models.NewValidationError("deliveryDate is required")
	}
	for i, doc := range req.Documents {
		if doc.Name == "" || doc.URL == "" {
			return nil, models.NewValidationError("document %d must have a name and a url", i)
		}
	}

	var (
		bid         *models.Bid
		sr          *models.ServiceRequest
		requestMove bool
	)
	err := utils.RetryOnConflict(ctx, func() error {
		return s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
			var err error
			sr, err = repo.GetServiceRequest(ctx, req.ServiceRequestID)
			if err != nil {
				return err
			}
			now := s.now()
			if err := checkAcceptingBids(sr, now); err != nil {
				return err
			}
			if sr.InviteOnly() && !sr.IsInvited(p.ID) {
				return models.NewUnauthorizedError("service request %s accepts bids from invited providers only", sr.ID)
			}
			if err := ensureNoActiveBid(ctx, repo, sr.ID, p.ID, ""); err != nil {
				return err
			}

			bid = &models.Bid{
				ID:               s.ids.NewID(),
				Reference:        s.ids.NewReference("BID", now),
				ServiceRequestID: sr.ID,
				ProviderID:       p.ID,
				Provider:         req.Provider,
				Financials:       req.Financials,
				DeliveryDate:     req.DeliveryDate,
				AdditionalInput:  req.AdditionalInput,
				Documents:        req.Documents,
				Status:           status,
				IsInvited:        sr.IsInvited(p.ID),
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if status == models.SubmittedBid {
				bid.SubmittedAt = &now
			}
			if err := repo.SaveBid(ctx, bid); err != nil {
				return err
			}
			if status != models.SubmittedBid {
				return nil
			}
			requestMove, err = receiveBid(sr, now)
			if err != nil {
				return err
			}
			// Версия заявки меняется при каждой подаче: так подача и принятие
			// другого предложения не проходят одновременно.
			sr.UpdatedAt = now
			return repo.SaveServiceRequest(ctx, sr)
		})
	})
	if err != nil {
		return nil, wrap("submit bid for service request", req.ServiceRequestID, err)
	}

	if status == models.SubmittedBid {
		evts := []events.Event{events.New(events.BidSubmitted, bid.ID, sr.ID, p.ID, string(bid.Status), bid.UpdatedAt)}
		if requestMove {
			evts = append(evts, events.New(events.RequestUpdated, sr.ID, sr.ID, p.ID, string(sr.Status), sr.UpdatedAt))
		}
		s.publish(ctx, evts...)
	}
	return bid, nil
}

// SubmitDraft подаёт ранее сохранённый черновик.
func (s *BidService) SubmitDraft(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error) {
	if err := requireProvider(p); err != nil {
		return nil, err
	}

	var (
		bid *models.Bid
		sr  *models.ServiceRequest
	)
	err := utils.RetryOnConflict(ctx, func() error {
		return s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
			var err error
			bid, err = repo.GetBid(ctx, bidID)
			if err != nil {
				return err
			}
			if bid.ProviderID != p.ID {
				return models.NewUnauthorizedError("you are not the owner of bid %s", bidID)
			}
			if err := checkBidTransition(bid, models.SubmittedBid); err != nil {
				return err
			}
			if err := validateFinancials(bid.Financials, true); err != nil {
				return err
			}

			sr, err = repo.GetServiceRequest(ctx, bid.ServiceRequestID)
			if err != nil {
				return err
			}
			now := s.now()
			if err := checkAcceptingBids(sr, now); err != nil {
				return err
			}
			if sr.InviteOnly() && !sr.IsInvited(p.ID) {
				return models.NewUnauthorizedError("service request %s accepts bids from invited providers only", sr.ID)
			}
			if err := ensureNoActiveBid(ctx, repo, sr.ID, p.ID, bid.ID); err != nil {
				return err
			}

			bid.Status = models.SubmittedBid
			bid.IsInvited = sr.IsInvited(p.ID)
			bid.SubmittedAt = &now
			bid.UpdatedAt = now
			if err := repo.SaveBid(ctx, bid); err != nil {
				return err
			}
			if _, err := receiveBid(sr, now); err != nil {
				return err
			}
			sr.UpdatedAt = now
			return repo.SaveServiceRequest(ctx, sr)
		})
	})
	if err != nil {
		return nil, wrap("submit bid", bidID, err)
	}
	s.publish(ctx, events.New(events.BidSubmitted, bid.ID, sr.ID, p.ID, string(bid.Status), bid.UpdatedAt))
	return bid, nil
}

// Get возвращает предложение владельцу или заказчику заявки.
func (s *BidService) Get(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	bid, err := s.Repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, wrap("get bid", bidID, err)
	}
	if p.IsProvider() {
		if bid.ProviderID != p.ID {
			return nil, models.NewUnauthorizedError("you are not authorized to view bid %s", bidID)
		}
		return bid, nil
	}

	sr, err := s.Repo.GetServiceRequest(ctx, bid.ServiceRequestID)
	if err != nil {
		return nil, wrap("get bid", bidID, err)
	}
	if !sr.OwnedBy(p) {
		return nil, models.NewUnauthorizedError("you are not authorized to view bid %s", bidID)
	}
	if bid.Status == models.DraftBid {
		return nil, models.NewNotFoundError("bid", bidID)
	}
	return bid, nil
}

// ListForRequest возвращает предложения по заявке: заказчику - все поданные,
// исполнителю - только свои.
func (s *BidService) ListForRequest(ctx context.Context, p models.Principal, requestID string) ([]models.Bid, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, wrap("list bids for service request", requestID, err)
	}
	if p.IsSeeker() && !sr.OwnedBy(p) {
		return nil, models.NewUnauthorizedError("you are not authorized to view bids of service request %s", requestID)
	}

	bids, err := s.Repo.ListBidsByRequest(ctx, requestID)
	if err != nil {
		return nil, wrap("list bids for service request", requestID, err)
	}
	out := make([]models.Bid, 0, len(bids))
	for _, bid := range bids {
		if p.IsProvider() && bid.ProviderID != p.ID {
			continue
		}
		if p.IsSeeker() && bid.Status == models.DraftBid {
			continue
		}
		out = append(out, bid)
	}
	return out, nil
}

// Review берёт предложение на рассмотрение.
func (s *BidService) Review(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error) {
	return s.seekerDecision(ctx, p, bidID, models.UnderReviewBid)
}

// Reject отклоняет предложение.
func (s *BidService) Reject(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error) {
	return s.seekerDecision(ctx, p, bidID, models.RejectedBid)
}

func (s *BidService) seekerDecision(ctx context.Context, p models.Principal, bidID string, to models.BidStatus) (*models.Bid, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	bid, err := s.Repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, wrap("update bid", bidID, err)
	}
	sr, err := s.Repo.GetServiceRequest(ctx, bid.ServiceRequestID)
	if err != nil {
		return nil, wrap("update bid", bidID, err)
	}
	if err := requireOwner(sr, p); err != nil {
		return nil, err
	}
	if bid.Status == models.DraftBid {
		return nil, models.NewNotFoundError("bid", bidID)
	}
	if err := checkBidTransition(bid, to); err != nil {
		return nil, err
	}

	bid.Status = to
	if to.Terminal() {
		bid.NeedsReconciliation = false
	}
	bid.UpdatedAt = s.now()
	if err := s.Repo.SaveBid(ctx, bid); err != nil {
		return nil, wrap("update bid", bidID, err)
	}
	s.publish(ctx, events.New(events.BidStatusChanged, bid.ID, bid.ServiceRequestID, p.ID, string(bid.Status), bid.UpdatedAt))
	return bid, nil
}

// Withdraw отзывает предложение. Доступно только исполнителю-владельцу и необратимо.
func (s *BidService) Withdraw(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error) {
	if err := requireProvider(p); err != nil {
		return nil, err
	}
	bid, err := s.Repo.GetBid(ctx, bidID)
	if err != nil {
		return nil, wrap("withdraw bid", bidID, err)
	}
	if bid.ProviderID != p.ID {
		return nil, models.NewUnauthorizedError("you are not the owner of bid %s", bidID)
	}
	if err := checkBidTransition(bid, models.WithdrawnBid); err != nil {
		return nil, err
	}

	bid.Status = models.WithdrawnBid
	bid.NeedsReconciliation = false
	bid.UpdatedAt = s.now()
	if err := s.Repo.SaveBid(ctx, bid); err != nil {
		return nil, wrap("withdraw bid", bidID, err)
	}
	s.publish(ctx, events.New(events.BidStatusChanged, bid.ID, bid.ServiceRequestID, p.ID, string(bid.Status), bid.UpdatedAt))
	return bid, nil
}

// Accept принимает предложение. Всё выполняется одной транзакцией по заявке:
// предложение становится победителем, конкурирующие поданные предложения
// отклоняются, заявка переходит в AWARDED. Предложения с активными переговорами
// не отклоняются, а помечаются для ручного разбора.
func (s *BidService) Accept(ctx context.Context, p models.Principal, bidID string) (*models.Bid, error) {
	return s.acceptBid(ctx, p, bidID, "")
}

func (c *core) acceptBid(ctx context.Context, p models.Principal, bidID, requestID string) (*models.Bid, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}

	var (
		bid     *models.Bid
		sr      *models.ServiceRequest
		changed []models.Bid
		thread  *models.NegotiationThread
	)
	err := c.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		var err error
		changed, thread = nil, nil
		bid, err = repo.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		if requestID != "" && bid.ServiceRequestID != requestID {
			return models.NewValidationError("bid %s does not belong to service request %s", bidID, requestID)
		}
		sr, err = repo.GetServiceRequest(ctx, bid.ServiceRequestID)
		if err != nil {
			return err
		}
		if err := requireOwner(sr, p); err != nil {
			return err
		}
		if bid.Status == models.DraftBid {
			return models.NewNotFoundError("bid", bidID)
		}
		if err := checkBidTransition(bid, models.AcceptedBid); err != nil {
			return err
		}

		now := c.now()
		if err := awardRequest(sr, bid, now); err != nil {
			return err
		}
		// Заявка сохраняется первой: параллельное принятие другого предложения
		// упрётся в её версию.
		if err := repo.SaveServiceRequest(ctx, sr); err != nil {
			return err
		}

		siblings, err := repo.ListBidsByRequest(ctx, sr.ID)
		if err != nil {
			return err
		}
		negotiating, err := activeThreadsByBid(ctx, repo, sr.ID)
		if err != nil {
			return err
		}
		for i := range siblings {
			other := &siblings[i]
			if other.ID == bid.ID {
				continue
			}
			switch other.Status {
			case models.SubmittedBid, models.UnderReviewBid:
				other.Status = models.RejectedBid
			case models.UnderNegotiationBid:
				if negotiating[other.ID] {
					other.NeedsReconciliation = true
				} else {
					other.Status = models.RejectedBid
				}
			default:
				continue
			}
			other.UpdatedAt = now
			if err := repo.SaveBid(ctx, other); err != nil {
				return err
			}
			changed = append(changed, *other)
		}

		bid.Status = models.AcceptedBid
		bid.IsWinningBid = true
		bid.AwardedAmount = bid.Financials.TotalBidAmount
		bid.NeedsReconciliation = false
		bid.UpdatedAt = now
		if err := repo.SaveBid(ctx, bid); err != nil {
			return err
		}

		thread, err = completeThreadOnAccept(ctx, repo, bid)
		return err
	})
	if err != nil {
		return nil, wrap("accept bid", bidID, err)
	}

	evts := []events.Event{
		events.New(events.BidStatusChanged, bid.ID, sr.ID, p.ID, string(bid.Status), bid.UpdatedAt),
		events.New(events.RequestAwarded, sr.ID, sr.ID, p.ID, string(sr.Status), sr.UpdatedAt),
	}
	for _, other := range changed {
		evts = append(evts, events.New(events.BidStatusChanged, other.ID, sr.ID, p.ID, string(other.Status), other.UpdatedAt))
	}
	if thread != nil {
		evts = append(evts, events.New(events.NegotiationCompleted, thread.ID, sr.ID, p.ID, string(thread.Status), bid.UpdatedAt))
	}
	c.publish(ctx, evts...)
	return bid, nil
}

// activeThreadsByBid отмечает предложения заявки, по которым идут переговоры.
func activeThreadsByBid(ctx context.Context, repo repository.Repository, requestID string) (map[string]bool, error) {
	threads, err := repo.ListNegotiationThreadsByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(threads))
	for _, t := range threads {
		if t.Status == models.ActiveThread {
			active[t.BidID] = true
		}
	}
	return active, nil
}

// completeThreadOnAccept завершает переговоры принятого предложения, если одна
// из сторон уже прислала финальное согласие.
func completeThreadOnAccept(ctx context.Context, repo repository.Repository, bid *models.Bid) (*models.NegotiationThread, error) {
	if bid.NegotiationThreadID == "" {
		return nil, nil
	}
	thread, err := repo.GetNegotiationThread(ctx, bid.NegotiationThreadID)
	if err != nil {
		return nil, err
	}
	if thread.Status != models.ActiveThread || !thread.HasFinalAcceptance() {
		return nil, nil
	}
	thread.Status = models.CompletedThread
	if err := repo.SaveNegotiationThread(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// checkAcceptingBids проверяет, что заявка принимает предложения прямо сейчас.
func checkAcceptingBids(sr *models.ServiceRequest, now time.Time) error {
	shown := displayStatus(ptr(sr.Clone()), now)
	if shown.Status.AcceptsBids() {
		return nil
	}
	return models.NewTransitionError("service request", sr.ID, shown.Status, models.BidReceivedRequest,
		[]models.RequestStatus{models.OpenRequest, models.BidReceivedRequest})
}

// ensureNoActiveBid - у исполнителя не больше одного действующего предложения на заявку.
func ensureNoActiveBid(ctx context.Context, repo repository.Repository, requestID, providerID, exceptID string) error {
	bids, err := repo.ListBidsByRequest(ctx, requestID)
	if err != nil {
		return err
	}
	for _, other := range bids {
		if other.ID == exceptID || other.ProviderID != providerID {
			continue
		}
		if other.Status != models.WithdrawnBid && other.Status != models.RejectedBid {
			return models.NewValidationError("provider already has bid %s (%s) on service request %s", other.ID, other.Status, requestID)
		}
	}
	return nil
}

// validateFinancials проверяет суммы. Для поданного предложения итог обязан
// совпадать с суммой составляющих (или этапов при оплате по этапам).
func validateFinancials(f models.Financials, strict bool) error {
	if !f.Payment.Kind.Valid() {
		return models.NewValidationError("unsupported payment structure: %q", f.Payment.Kind)
	}
	if f.ProfessionalFee < 0 || f.PlatformFee < 0 || f.Tax < 0 || f.TotalBidAmount < 0 {
		return models.NewValidationError("amounts cannot be negative")
	}
	for i, r := range f.Reimbursements {
		if r.Amount < 0 || strings.TrimSpace(r.Description) == "" {
			return models.NewValidationError("reimbursement %d must have a description and a non-negative amount", i)
		}
	}
	switch f.Payment.Kind {
	case models.Milestones:
		if strict && len(f.Payment.Milestones) == 0 {
			return models.NewValidationError("milestone payment requires at least one milestone")
		}
		for i, m := range f.Payment.Milestones {
			if strings.TrimSpace(m.Label) == "" || m.Amount <= 0 || m.DueDate.IsZero() {
				return models.NewValidationError("milestone %d must have a label, a positive amount and a due date", i)
			}
		}
	default:
		if len(f.Payment.Milestones) > 0 {
			return models.NewValidationError("milestones are allowed only for milestone payment")
		}
	}
	if !strict {
		return nil
	}
	expected, ok := f.ComputedTotal()
	if !ok {
		return models.NewValidationError("itemized amounts exceed the supported range")
	}
	if f.TotalBidAmount != expected {
		return models.NewValidationError("totalBidAmount %d does not match itemized total %d", f.TotalBidAmount, expected)
	}
	if f.TotalBidAmount <= 0 {
		return models.NewValidationError("totalBidAmount must be positive")
	}
	return nil
}
