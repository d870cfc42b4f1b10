package repository

import "github.com/stockpro/importer-api/internal/domain/entity"

// CategoryRepository categorías por tenant.
type CategoryRepository interface {
	GetOrCreate(tenantID, name string) (*entity.Category, error)
	// ListNames nombres existentes del tenant, para el diccionario del clasificador.
	ListNames(tenantID string, limit int) ([]string, error)
}

// BrandRepository marcas por tenant.
type BrandRepository interface {
	GetOrCreate(tenantID, name string) (*entity.Brand, error)
	ListNames(tenantID string, limit int) ([]string, error)
}
