package repository

import (
	"context"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
)

const bidColumns = `id, reference, service_request_id, provider_id, provider, financials, delivery_date,
	additional_input, documents, status, is_invited, is_winning_bid, awarded_amount, needs_reconciliation,
	negotiation_thread_id, submitted_at, created_at, updated_at, version`

func scanBid(row pgx.Row) (*models.Bid, error) {
	var bid models.Bid
	err := row.Scan(
		&bid.ID,
		&bid.Reference,
		&bid.ServiceRequestID,
		&bid.ProviderID,
		&bid.Provider,
		&bid.Financials,
		&bid.DeliveryDate,
		&bid.AdditionalInput,
		&bid.Documents,
		&bid.Status,
		&bid.IsInvited,
		&bid.IsWinningBid,
		&bid.AwardedAmount,
		&bid.NeedsReconciliation,
		&bid.NegotiationThreadID,
		&bid.SubmittedAt,
		&bid.CreatedAt,
		&bid.UpdatedAt,
		&bid.Version,
	)
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// GetBid возвращает предложение по ID.
func (r *PostgresRepository) GetBid(ctx context.Context, id string) (*models.Bid, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + bidColumns + ` FROM bid WHERE id = $1`
	bid, err := scanBid(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, r.mapError("get bid", "bid", id, err)
	}
	return bid, nil
}

// ListBidsByRequest возвращает список предложений по заявке.
func (r *PostgresRepository) ListBidsByRequest(ctx context.Context, requestID string) ([]models.Bid, error) {
	return r.listBids(ctx, `WHERE service_request_id = $1`, requestID)
}

// ListBidsByRequests возвращает предложения по набору заявок.
func (r *PostgresRepository) ListBidsByRequests(ctx context.Context, requestIDs []string) ([]models.Bid, error) {
	if len(requestIDs) == 0 {
		return nil, nil
	}
	return r.listBids(ctx, `WHERE service_request_id = ANY($1)`, requestIDs)
}

func (r *PostgresRepository) listBids(ctx context.Context, where string, args ...any) ([]models.Bid, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + bidColumns + ` FROM bid ` + where + ` ORDER BY created_at, id`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapError("list bids", "bid", "", err)
	}
	defer rows.Close()

	var bids []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, r.mapError("scan bid", "bid", "", err)
		}
		bids = append(bids, *bid)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapError("list bids", "bid", "", err)
	}
	return bids, nil
}

// SaveBid создаёт предложение или обновляет его с проверкой версии.
func (r *PostgresRepository) SaveBid(ctx context.Context, bid *models.Bid) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	if bid.Version == 0 {
		insertQuery := `INSERT INTO bid (` + bidColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1)`
		_, err := r.db.Exec(ctx, insertQuery, bidArgs(bid)...)
		if err != nil {
			return r.mapError("insert bid", "bid", bid.ID, err)
		}
		bid.Version = 1
		return nil
	}

	updateQuery := `
		UPDATE bid SET
			reference = $2, service_request_id = $3, provider_id = $4, provider = $5, financials = $6,
			delivery_date = $7, additional_input = $8, documents = $9, status = $10, is_invited = $11,
			is_winning_bid = $12, awarded_amount = $13, needs_reconciliation = $14, negotiation_thread_id = $15,
			submitted_at = $16, created_at = $17, updated_at = $18, version = version + 1
		WHERE id = $1 AND version = $19`
	args := append(bidArgs(bid), bid.Version)
	tag, err := r.db.Exec(ctx, updateQuery, args...)
	if err != nil {
		return r.mapError("update bid", "bid", bid.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "bid", "bid", bid.ID, bid.Version)
	}
	bid.Version++
	return nil
}

func bidArgs(bid *models.Bid) []interface{} {
	return []interface{}{
		bid.ID,
		bid.Reference,
		bid.ServiceRequestID,
		bid.ProviderID,
		bid.Provider,
		bid.Financials,
		bid.DeliveryDate,
		bid.AdditionalInput,
		bid.Documents,
		bid.Status,
		bid.IsInvited,
		bid.IsWinningBid,
		bid.AwardedAmount,
		bid.NeedsReconciliation,
		bid.NegotiationThreadID,
		bid.SubmittedAt,
		bid.CreatedAt,
		bid.UpdatedAt,
	}
}
