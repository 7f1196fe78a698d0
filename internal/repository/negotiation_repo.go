package repository

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
)

const threadColumns = `id, bid_id, service_request_id, initiator_id, initiator_role, reasons, status,
	last_activity, created_at, version`

func scanThread(row pgx.Row) (*models.NegotiationThread, error) {
	var t models.NegotiationThread
	err := row.Scan(
		&t.ID,
		&t.BidID,
		&t.ServiceRequestID,
		&t.InitiatorID,
		&t.InitiatorRole,
		&t.Reasons,
		&t.Status,
		&t.LastActivity,
		&t.CreatedAt,
		&t.Version,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) loadInputs(ctx context.Context, t *models.NegotiationThread) error {
	query := `
		SELECT seq, sender_id, sender_role, ts, reason, message, proposed_changes, final_acceptance
		FROM negotiation_input WHERE thread_id = $1 ORDER BY seq`
	rows, err := r.db.Query(ctx, query, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	t.Inputs = nil
	for rows.Next() {
		var in models.NegotiationInput
		if err := rows.Scan(
			&in.Seq,
			&in.SenderID,
			&in.SenderRole,
			&in.Timestamp,
			&in.Reason,
			&in.Message,
			&in.ProposedChanges,
			&in.FinalAcceptance); err != nil {
			return err
		}
		t.Inputs = append(t.Inputs, in)
	}
	return rows.Err()
}

// GetNegotiationThread возвращает переговоры вместе с ходами.
func (r *PostgresRepository) GetNegotiationThread(ctx context.Context, id string) (*models.NegotiationThread, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + threadColumns + ` FROM negotiation_thread WHERE id = $1`
	t, err := scanThread(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.mapError("get negotiation thread", "negotiation thread", id, err)
	}
	if err := r.loadInputs(ctx, t); err != nil {
		return nil, r.mapError("load negotiation inputs", "negotiation thread", id, err)
	}
	return t, nil
}

// GetNegotiationThreadByBid возвращает переговоры по предложению.
func (r *PostgresRepository) GetNegotiationThreadByBid(ctx context.Context, bidID string) (*models.NegotiationThread, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + threadColumns + ` FROM negotiation_thread WHERE bid_id = $1`
	t, err := scanThread(r.db.QueryRow(ctx, query, bidID))
	if err != nil {
		return nil, r.mapError("get negotiation thread by bid", "negotiation thread for bid", bidID, err)
	}
	if err := r.loadInputs(ctx, t); err != nil {
		return nil, r.mapError("load negotiation inputs", "negotiation thread", t.ID, err)
	}
	return t, nil
}

// ListNegotiationThreadsByRequest возвращает все переговоры по заявке.
func (r *PostgresRepository) ListNegotiationThreadsByRequest(ctx context.Context, requestID string) ([]models.NegotiationThread, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + threadColumns + ` FROM negotiation_thread WHERE service_request_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, r.mapError("list negotiation threads", "negotiation thread", "", err)
	}

	var threads []models.NegotiationThread
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			rows.Close()
			return nil, r.mapError("scan negotiation thread", "negotiation thread", "", err)
		}
		threads = append(threads, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, r.mapError("list negotiation threads", "negotiation thread", "", err)
	}

	for i := range threads {
		if err := r.loadInputs(ctx, &threads[i]); err != nil {
			return nil, r.mapError("load negotiation inputs", "negotiation thread", threads[i].ID, err)
		}
	}
	return threads, nil
}

// SaveNegotiationThread создаёт переговоры или обновляет их статус с проверкой версии.
func (r *PostgresRepository) SaveNegotiationThread(ctx context.Context, thread *models.NegotiationThread) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if thread.Version == 0 {
		insertQuery := `INSERT INTO negotiation_thread (` + threadColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)`
		_, err := r.db.Exec(
			ctx,
			insertQuery,
			thread.ID,
			thread.BidID,
			thread.ServiceRequestID,
			thread.InitiatorID,
			thread.InitiatorRole,
			thread.Reasons,
			thread.Status,
			thread.LastActivity,
			thread.CreatedAt)
		if err != nil {
			return r.mapError("insert negotiation thread", "negotiation thread", thread.ID, err)
		}
		thread.Version = 1
		return nil
	}

	updateQuery := `UPDATE negotiation_thread SET status = $2, reasons = $3, version = version + 1
	                WHERE id = $1 AND version = $4`
	tag, err := r.db.Exec(ctx, updateQuery, thread.ID, thread.Status, thread.Reasons, thread.Version)
	if err != nil {
		return r.mapError("update negotiation thread", "negotiation thread", thread.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "negotiation_thread", "negotiation thread", thread.ID, thread.Version)
	}
	thread.Version++
	return nil
}

// AppendNegotiationInput дописывает ход. Номер хода совпадает с версией заголовка,
// поэтому параллельная запись упрётся либо в версию, либо в первичный ключ.
func (r *PostgresRepository) AppendNegotiationInput(ctx context.Context, thread *models.NegotiationThread, input models.NegotiationInput) error {
	return r.InTx(ctx, func(ctx context.Context, repo Repository) error {
		tx := repo.(*PostgresRepository)
		ctx, cancel := tx.withTimeout(ctx)
		defer cancel()

		updateQuery := `UPDATE negotiation_thread SET last_activity = $2, version = version + 1
		                WHERE id = $1 AND version = $3`
		tag, err := tx.db.Exec(ctx, updateQuery, thread.ID, input.Timestamp, thread.Version)
		if err != nil {
			return tx.mapError("update negotiation thread", "negotiation thread", thread.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return tx.missingOrStale(ctx, "negotiation_thread", "negotiation thread", thread.ID, thread.Version)
		}

		input.Seq = len(thread.Inputs) + 1
		insertQuery := `
			INSERT INTO negotiation_input (thread_id, seq, sender_id, sender_role, ts, reason, message, proposed_changes, final_acceptance)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err = tx.db.Exec(
			ctx,
			insertQuery,
			thread.ID,
			input.Seq,
			input.SenderID,
			input.SenderRole,
			input.Timestamp,
			input.Reason,
			input.Message,
			input.ProposedChanges,
			input.FinalAcceptance)
		if err != nil {
			return tx.mapError("insert negotiation input", "negotiation thread", thread.ID, err)
		}

		thread.Inputs = append(thread.Inputs, input)
		thread.LastActivity = input.Timestamp
		thread.Version++
		return nil
	})
}
