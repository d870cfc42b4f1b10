package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// ParseError indica un documento fuente malformado (XML/CSV/XLSX). El batch
// completo falla; nunca hay commit parcial del documento.
type ParseError struct {
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("documento inválido: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("documento inválido: %s", e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError indica una fila con datos inválidos. La fila se omite y se
// registra en el log del batch; el procesamiento continúa.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// InsufficientStockError indica una salida mayor al stock disponible.
// Incluye la cantidad disponible para construir un mensaje accionable.
type InsufficientStockError struct {
	SKU       string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %s, solicitado %s",
		e.SKU, e.Available.String(), e.Requested.String())
}

// InvalidMovementError indica un movimiento de inventario con tipo o cantidad inválidos.
type InvalidMovementError struct {
	Type   string
	Reason string
}

func (e *InvalidMovementError) Error() string {
	return fmt.Sprintf("movimiento %s inválido: %s", e.Type, e.Reason)
}

// DuplicateImportError indica que el documento ya fue importado (dedup por
// clave de documento o por hash de contenido).
type DuplicateImportError struct {
	DocKey     string
	ImportedAt time.Time
}

func (e *DuplicateImportError) Error() string {
	return fmt.Sprintf("el documento %s ya fue importado el %s",
		e.DocKey, e.ImportedAt.Format("2006-01-02 15:04"))
}
