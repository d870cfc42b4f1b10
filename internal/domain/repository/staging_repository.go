package repository

import "github.com/stockpro/importer-api/internal/domain/entity"

// StagedItemRepository cola de curaduría.
type StagedItemRepository interface {
	Create(it *entity.StagedItem) error
	GetByID(id string) (*entity.StagedItem, error)
	// GetForUpdate bloquea la fila para evitar doble aprobación concurrente.
	GetForUpdate(id string) (*entity.StagedItem, error)
	Update(it *entity.StagedItem) error
	ListPending(tenantID string, limit, offset int) ([]*entity.StagedItem, error)
	ListByBatch(tenantID, batchID string) ([]*entity.StagedItem, error)
	CountPending(tenantID string) (int, error)
	DeleteByBatch(tenantID, batchID string) error
}
