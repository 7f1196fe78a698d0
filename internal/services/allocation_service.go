package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/procurement-service/internal/events"
	"github.com/senyabanana/procurement-service/internal/models"
	"github.com/senyabanana/procurement-service/internal/repository"
	"github.com/senyabanana/procurement-service/internal/utils"
)

type AllocationService struct {
	core
}

// NewAllocationService создает новый экземпляр AllocationService.
func NewAllocationService(deps Dependencies) *AllocationService {
	return &AllocationService{core: newCore(deps)}
}

// Allocate назначает сотрудника организации ответственным за заявку и
// дописывает запись в журнал назначений.
func (s *AllocationService) Allocate(ctx context.Context, p models.Principal, req models.AllocationRequest) (*models.AllocationRecord, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	if err := validateAllocation(req); err != nil {
		return nil, err
	}

	var rec *models.AllocationRecord
	err := utils.RetryOnConflict(ctx, func() error {
		return s.Repo.InTx(ctx, func(ctx context.Context, repo repository.Repository) error {
			sr, err := repo.GetServiceRequest(ctx, req.ServiceRequestID)
			if err != nil {
				return err
			}
			if err := requireOwner(sr, p); err != nil {
				return err
			}
			if sr.CurrentAssignee == req.TeamMemberID {
				return models.NewValidationError("%s is already assigned to service request %s", req.TeamMemberID, sr.ID)
			}

			now := s.now()
			rec = &models.AllocationRecord{
				ID:               s.ids.NewID(),
				ServiceRequestID: sr.ID,
				PreviousAssignee: sr.CurrentAssignee,
				NewAssignee:      req.TeamMemberID,
				AllocatedBy:      p.ID,
				AllocatedAt:      now,
				Reason:           req.Reason,
			}
			sr.CurrentAssignee = req.TeamMemberID
			sr.UpdatedAt = now
			if err := repo.SaveServiceRequest(ctx, sr); err != nil {
				return err
			}
			return repo.AppendAllocation(ctx, rec)
		})
	})
	if err != nil {
		return nil, wrap("allocate service request", req.ServiceRequestID, err)
	}
	s.publish(ctx, events.New(events.RequestAllocated, rec.ServiceRequestID, rec.ServiceRequestID, p.ID, rec.NewAssignee, rec.AllocatedAt))
	return rec, nil
}

// BulkAllocate проверяет все назначения, затем применяет каждое отдельно.
// Возвращает записанные назначения и объединённую ошибку по неудавшимся.
func (s *AllocationService) BulkAllocate(ctx context.Context, p models.Principal, items []models.AllocationRequest) ([]models.AllocationRecord, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, models.NewValidationError("at least one allocation is required")
	}
	var invalid []string
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		if err := validateAllocation(item); err != nil {
			invalid = append(invalid, fmt.Sprintf("item %d: %s", i, err.Error()))
			continue
		}
		if seen[item.ServiceRequestID] {
			invalid = append(invalid, fmt.Sprintf("item %d: service request %s is listed twice", i, item.ServiceRequestID))
		}
		seen[item.ServiceRequestID] = true
	}
	if len(invalid) > 0 {
		return nil, models.NewValidationError("invalid allocations: %s", strings.Join(invalid, "; "))
	}

	records := make([]models.AllocationRecord, 0, len(items))
	var errs []error
	for _, item := range items {
		rec, err := s.Allocate(ctx, p, item)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, *rec)
	}
	return records, errors.Join(errs...)
}

// History возвращает журнал назначений по заявке в порядке записи.
func (s *AllocationService) History(ctx context.Context, p models.Principal, requestID string) ([]models.AllocationRecord, error) {
	if err := requireSeeker(p); err != nil {
		return nil, err
	}
	sr, err := s.Repo.GetServiceRequest(ctx, requestID)
	if err != nil {
		return nil, wrap("allocation history of service request", requestID, err)
	}
	if err := requireOwner(sr, p); err != nil {
		return nil, err
	}
	history, err := s.Repo.ListAllocations(ctx, requestID)
	if err != nil {
		return nil, wrap("allocation history of service request", requestID, err)
	}
	if history == nil {
		history = []models.AllocationRecord{}
	}
	return history, nil
}

func validateAllocation(req models.AllocationRequest) error {
	if req.ServiceRequestID == "" || strings.TrimSpace(req.TeamMemberID) == "" {
		return models.NewValidationError("serviceRequestId and teamMemberId are required")
	}
	return nil
}
