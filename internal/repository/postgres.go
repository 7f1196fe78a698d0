package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier - общее у пула и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository - реализация Repository для базы данных.
type PostgresRepository struct {
	pool    *pgxpool.Pool
	db      querier
	timeout time.Duration
}

// NewPostgresRepository создает новый экземпляр PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool, timeout time.Duration) *PostgresRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PostgresRepository{pool: pool, db: pool, timeout: timeout}
}

// InTx выполняет fn в одной транзакции базы данных.
func (r *PostgresRepository) InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	if r.pool == nil {
		// Уже внутри транзакции.
		return fn(ctx, r)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return r.mapError("begin transaction", "", "", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	if err := fn(ctx, &PostgresRepository{db: tx, timeout: r.timeout}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return r.mapError("commit transaction", "", "", err)
	}
	return nil
}

func (r *PostgresRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// mapError переводит ошибки драйвера в таксономию сервиса.
func (r *PostgresRepository) mapError(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewNotFoundError(entity, id)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return mapContextError(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return models.NewConflictError(entity, id, 0)
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return models.NewConflictError(entity, id, 0)
		case "57014": // query_canceled (statement_timeout)
			return models.NewTimeoutError(op)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
