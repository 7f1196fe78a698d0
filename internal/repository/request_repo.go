package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, srn, title, description, professional_categories, service_types, scope_of_work,
	budget, documents, questionnaire, required_by, preferred_locations, invited_provider_ids, status,
	creator_id, organization_id, created_at, updated_at, deadline, winning_bid_id, awarded_amount,
	awarded_date, current_assignee, missed_reason, not_interested, notes, version`

func scanServiceRequest(row pgx.Row) (*models.ServiceRequest, error) {
	var sr models.ServiceRequest
	err := row.Scan(
		&sr.ID,
		&sr.SRN,
		&sr.Title,
		&sr.Description,
		&sr.ProfessionalCategories,
		&sr.ServiceTypes,
		&sr.ScopeOfWork,
		&sr.Budget,
		&sr.Documents,
		&sr.Questionnaire,
		&sr.RequiredBy,
		&sr.PreferredLocations,
		&sr.InvitedProviderIDs,
		&sr.Status,
		&sr.CreatorID,
		&sr.OrganizationID,
		&sr.CreatedAt,
		&sr.UpdatedAt,
		&sr.Deadline,
		&sr.WinningBidID,
		&sr.AwardedAmount,
		&sr.AwardedDate,
		&sr.CurrentAssignee,
		&sr.MissedReason,
		&sr.NotInterested,
		&sr.Notes,
		&sr.Version,
	)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

// GetServiceRequest возвращает заявку по ID.
func (r *PostgresRepository) GetServiceRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM service_request WHERE id = $1`
	sr, err := scanServiceRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.mapError("get service request", "service request", id, err)
	}
	return sr, nil
}

// ListServiceRequests возвращает заявки по грубому фильтру.
func (r *PostgresRepository) ListServiceRequests(ctx context.Context, q RequestQuery) ([]models.ServiceRequest, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + requestColumns + ` FROM service_request`
	var filters []string
	var args []interface{}
	argIndex := 1

	switch {
	case q.CreatorID != "" && q.OrganizationID != "":
		filters = append(filters, fmt.Sprintf("(creator_id = $%d OR organization_id = $%d)", argIndex, argIndex+1))
		args = append(args, q.CreatorID, q.OrganizationID)
		argIndex += 2
	case q.CreatorID != "":
		filters = append(filters, fmt.Sprintf("creator_id = $%d", argIndex))
		args = append(args, q.CreatorID)
		argIndex++
	case q.OrganizationID != "":
		filters = append(filters, fmt.Sprintf("organization_id = $%d", argIndex))
		args = append(args, q.OrganizationID)
		argIndex++
	}

	if len(q.Statuses) > 0 {
		statuses := make([]string, 0, len(q.Statuses))
		for _, s := range q.Statuses {
			statuses = append(statuses, string(s))
		}
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, statuses)
		argIndex++
	}

	if q.ExcludeDrafts {
		filters = append(filters, fmt.Sprintf("status <> $%d", argIndex))
		args = append(args, models.DraftRequest)
		argIndex++
	}

	if q.DeadlineBefore != nil {
		filters = append(filters, fmt.Sprintf("deadline < $%d", argIndex))
		args = append(args, *q.DeadlineBefore)
		argIndex++
	}

	if q.CreatedFrom != nil {
		filters = append(filters, fmt.Sprintf("created_at >= $%d", argIndex))
		args = append(args, *q.CreatedFrom)
		argIndex++
	}

	if q.CreatedTo != nil {
		filters = append(filters, fmt.Sprintf("created_at <= $%d", argIndex))
		args = append(args, *q.CreatedTo)
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapError("list service requests", "service request", "", err)
	}
	defer rows.Close()

	var requests []models.ServiceRequest
	for rows.Next() {
		sr, err := scanServiceRequest(rows)
		if err != nil {
			return nil, r.mapError("scan service request", "service request", "", err)
		}
		requests = append(requests, *sr)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("list service requests", "service request", "", err)
	}
	return requests, nil
}

// SaveServiceRequest создаёт заявку или обновляет её с проверкой версии.
func (r *PostgresRepository) SaveServiceRequest(ctx context.Context, sr *models.ServiceRequest) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if sr.Version == 0 {
		insertQuery := `INSERT INTO service_request (` + requestColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			        $21, $22, $23, $24, $25, $26, 1)`
		_, err := r.db.Exec(ctx, insertQuery, requestArgs(sr)...)
		if err != nil {
			return r.mapError("insert service request", "service request", sr.ID, err)
		}
		sr.Version = 1
		return nil
	}

	updateQuery := `
		UPDATE service_request SET
			srn = $2, title = $3, description = $4, professional_categories = $5, service_types = $6,
			scope_of_work = $7, budget = $8, documents = $9, questionnaire = $10, required_by = $11,
			preferred_locations = $12, invited_provider_ids = $13, status = $14, creator_id = $15,
			organization_id = $16, created_at = $17, updated_at = $18, deadline = $19, winning_bid_id = $20,
			awarded_amount = $21, awarded_date = $22, current_assignee = $23, missed_reason = $24,
			not_interested = $25, notes = $26, version = version + 1
		WHERE id = $1 AND version = $27`
	args := append(requestArgs(sr), sr.Version)
	tag, err := r.db.Exec(ctx, updateQuery, args...)
	if err != nil {
		return r.mapError("update service request", "service request", sr.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "service_request", "service request", sr.ID, sr.Version)
	}
	sr.Version++
	return nil
}

func requestArgs(sr *models.ServiceRequest) []interface{} {
	return []interface{}{
		sr.ID,
		sr.SRN,
		sr.Title,
		sr.Description,
		sr.ProfessionalCategories,
		sr.ServiceTypes,
		sr.ScopeOfWork,
		sr.Budget,
		sr.Documents,
		sr.Questionnaire,
		sr.RequiredBy,
		sr.PreferredLocations,
		sr.InvitedProviderIDs,
		sr.Status,
		sr.CreatorID,
		sr.OrganizationID,
		sr.CreatedAt,
		sr.UpdatedAt,
		sr.Deadline,
		sr.WinningBidID,
		sr.AwardedAmount,
		sr.AwardedDate,
		sr.CurrentAssignee,
		sr.MissedReason,
		sr.NotInterested,
		sr.Notes,
	}
}

// missingOrStale различает отсутствие строки и устаревшую версию после UPDATE без изменений.
func (r *PostgresRepository) missingOrStale(ctx context.Context, table, entity, id string, version int) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return r.mapError("check "+entity, entity, id, err)
	}
	if !exists {
		return models.NewNotFoundError(entity, id)
	}
	return models.NewConflictError(entity, id, version)
}
