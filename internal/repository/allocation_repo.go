package repository

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/models"
)

// AppendAllocation дописывает запись в журнал назначений.
func (r *PostgresRepository) AppendAllocation(ctx context.Context, rec *models.AllocationRecord) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	insertQuery := `
		INSERT INTO allocation_record (id, service_request_id, previous_assignee, new_assignee, allocated_by, allocated_at, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(
		ctx,
		insertQuery,
		rec.ID,
		rec.ServiceRequestID,
		rec.PreviousAssignee,
		rec.NewAssignee,
		rec.AllocatedBy,
		rec.AllocatedAt,
		rec.Reason)
	if err != nil {
		return r.mapError("insert allocation", "allocation", rec.ID, err)
	}
	return nil
}

// ListAllocations возвращает журнал назначений по заявке.
func (r *PostgresRepository) ListAllocations(ctx context.Context, requestID string) ([]models.AllocationRecord, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, service_request_id, previous_assignee, new_assignee, allocated_by, allocated_at, reason
		FROM allocation_record WHERE service_request_id = $1 ORDER BY allocated_at, id`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, r.mapError("list allocations", "allocation", "", err)
	}
	defer rows.Close()

	var out []models.AllocationRecord
	for rows.Next() {
		var rec models.AllocationRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.ServiceRequestID,
			&rec.PreviousAssignee,
			&rec.NewAssignee,
			&rec.AllocatedBy,
			&rec.AllocatedAt,
			&rec.Reason); err != nil {
			return nil, r.mapError("scan allocation", "allocation", "", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("list allocations", "allocation", "", err)
	}
	return out, nil
}
