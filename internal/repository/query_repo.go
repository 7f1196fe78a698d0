package repository

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
)

const queryColumns = `id, service_request_id, bid_id, parent_id, root_id, sender_id, sender_role,
	message, is_public, recipients, created_at`

func scanQuery(row pgx.Row) (*models.QueryClarification, error) {
	var q models.QueryClarification
	err := row.Scan(
		&q.ID,
		&q.ServiceRequestID,
		&q.BidID,
		&q.ParentID,
		&q.RootID,
		&q.SenderID,
		&q.SenderRole,
		&q.Message,
		&q.IsPublic,
		&q.Recipients,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetQuery возвращает вопрос или ответ по ID.
func (r *PostgresRepository) GetQuery(ctx context.Context, id string) (*models.QueryClarification, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + queryColumns + ` FROM query_clarification WHERE id = $1`
	q, err := scanQuery(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.mapError("get query", "query", id, err)
	}
	return q, nil
}

// ListQueriesByRequest возвращает все вопросы и ответы по заявке в порядке создания.
func (r *PostgresRepository) ListQueriesByRequest(ctx context.Context, requestID string) ([]models.QueryClarification, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + queryColumns + ` FROM query_clarification WHERE service_request_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, r.mapError("list queries", "query", "", err)
	}
	defer rows.Close()

	var out []models.QueryClarification
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, r.mapError("scan query", "query", "", err)
		}
		out = append(out, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("list queries", "query", "", err)
	}
	return out, nil
}

// CreateQuery сохраняет новый вопрос или ответ. Записи неизменяемы.
func (r *PostgresRepository) CreateQuery(ctx context.Context, q *models.QueryClarification) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	insertQuery := `INSERT INTO query_clarification (` + queryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.Exec(
		ctx,
		insertQuery,
		q.ID,
		q.ServiceRequestID,
		q.BidID,
		q.ParentID,
		q.RootID,
		q.SenderID,
		q.SenderRole,
		q.Message,
		q.IsPublic,
		q.Recipients,
		q.CreatedAt)
	if err != nil {
		return r.mapError("insert query", "query", q.ID, err)
	}
	return nil
}
