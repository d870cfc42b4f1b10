package importer

import (
	"context"
	"errors"
	"time"

	"github.com/stockpro/importer-api/internal/domain"
)

// retryDo ejecuta fn con reintentos y backoff exponencial acotado. Solo
// reintenta fallas transitorias (contención de locks, I/O); los errores de
// dominio tipados son permanentes y se devuelven de inmediato.
func retryDo(ctx context.Context, attempts int, initialBackoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := initialBackoff
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
		}
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return err
}

// isRetryable clasifica el error: los tipos del dominio describen datos, no
// infraestructura, y reintentarlos no cambia nada.
func isRetryable(err error) bool {
	var (
		parseErr      *domain.ParseError
		validationErr *domain.ValidationError
		stockErr      *domain.InsufficientStockError
		movementErr   *domain.InvalidMovementError
		duplicateErr  *domain.DuplicateImportError
	)
	switch {
	case errors.As(err, &parseErr),
		errors.As(err, &validationErr),
		errors.As(err, &stockErr),
		errors.As(err, &movementErr),
		errors.As(err, &duplicateErr):
		return false
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrDuplicate),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrInvalidInput):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
