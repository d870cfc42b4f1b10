package repository

import "github.com/stockpro/importer-api/internal/domain/entity"

// ImportBatchRepository batches de importación.
type ImportBatchRepository interface {
	Create(b *entity.ImportBatch) error
	GetByID(id string) (*entity.ImportBatch, error)
	Update(b *entity.ImportBatch) error
	// FindByNfeKey dedup por clave de acceso de la NF-e; (nil, nil) si no existe.
	FindByNfeKey(tenantID, nfeKey string) (*entity.ImportBatch, error)
	ListByTenant(tenantID string, limit, offset int) ([]*entity.ImportBatch, error)
	Delete(id string) error
}

// ImportLogRepository registro de idempotencia por documento importado.
type ImportLogRepository interface {
	Create(l *entity.ImportLog) error
	// FindByKey devuelve el registro o (nil, nil); clave: import_<tenant>_<hash>.
	FindByKey(key string) (*entity.ImportLog, error)
	// DeleteByKey libera la clave al revertir un batch, habilitando la reimportación.
	DeleteByKey(key string) error
}
