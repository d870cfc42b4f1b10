package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stockpro/importer-api/internal/domain"
)

func TestRetryDo_TransitoriaReintentaHastaExito(t *testing.T) {
	calls := 0
	err := retryDo(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("deadlock detected")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDo_AgotaIntentosYDevuelveLaUltimaFalla(t *testing.T) {
	calls := 0
	transient := errors.New("connection reset")
	err := retryDo(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return transient
	})
	assert.ErrorIs(t, err, transient)
	assert.Equal(t, 3, calls)
}

func TestRetryDo_ErrorDeDominioEsPermanente(t *testing.T) {
	// Los errores tipados describen datos: reintentar no cambia el resultado.
	permanent := []error{
		&domain.ParseError{Msg: "XML malformado"},
		&domain.ValidationError{Msg: "SKU vacío"},
		&domain.DuplicateImportError{DocKey: "abc"},
		domain.ErrNotFound,
		domain.ErrConflict,
	}
	for _, cause := range permanent {
		calls := 0
		err := retryDo(context.Background(), 5, time.Millisecond, func() error {
			calls++
			return cause
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls, "%v no debe reintentarse", cause)
	}
}

func TestRetryDo_ErrorEnvueltoSigueSiendoPermanente(t *testing.T) {
	calls := 0
	wrapped := fmt.Errorf("procesar lote: %w", &domain.InsufficientStockError{SKU: "A1"})
	err := retryDo(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return wrapped
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryDo_ContextoCanceladoCortaLaEspera(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryDo(ctx, 3, time.Hour, func() error {
		calls++
		return errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "con el contexto cancelado no hay segundo intento")
}

func TestRetryDo_MenosDeUnIntentoEjecutaUno(t *testing.T) {
	calls := 0
	err := retryDo(context.Background(), 0, time.Millisecond, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
