package repository

import "github.com/stockpro/importer-api/internal/domain/entity"

// StockMovementRepository libro de movimientos (append-only: sin Update ni Delete
// individuales; la reversión de un batch pasa por DeleteByBatch dentro del caso
// de uso de reversión, nunca por fuera).
type StockMovementRepository interface {
	Create(m *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)
	ListByTarget(tenantID string, productID, variantID *string, limit, offset int) ([]*entity.StockMovement, error)
	ListByBatch(tenantID, batchID string) ([]*entity.StockMovement, error)
	DeleteByBatch(tenantID, batchID string) error
}
