package utils

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/procurement-service/internal/models"
)

// Operation - действие, которое можно повторить.
type Operation func() error

// IsRetryable решает, стоит ли повторять действие после ошибки.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// RetryOnConflict повторяет действие при конфликте версий агрегата.
func RetryOnConflict(ctx context.Context, op Operation) error {
	return WithRetries(ctx, op, DefaultMaxRetries, IsConflict)
}

// WithRetries выполняет действие до maxRetries+1 раз с нарастающей паузой.
func WithRetries(ctx context.Context, op Operation, maxRetries int, retryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(10*(attempt+1)) * time.Millisecond):
		}
	}
	return err
}

// IsConflict проверяет, что ошибка - конфликт версий.
func IsConflict(err error) bool {
	return errors.Is(err, models.ErrConcurrencyConflict)
}
