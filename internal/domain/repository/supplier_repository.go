package repository

import "github.com/stockpro/importer-api/internal/domain/entity"

// SupplierRepository proveedores por tenant, identificados por CNPJ normalizado.
type SupplierRepository interface {
	Create(s *entity.Supplier) error
	GetByID(id string) (*entity.Supplier, error)
	GetByCNPJ(tenantID, cnpj string) (*entity.Supplier, error)
	Update(s *entity.Supplier) error
}

// SupplierMappingRepository mapeos aprendidos (tenant, proveedor, SKU) → catálogo.
type SupplierMappingRepository interface {
	// Find devuelve el mapeo o (nil, nil) si el SKU del proveedor aún no se conoce.
	Find(tenantID, supplierID, supplierSKU string) (*entity.SupplierMapping, error)
	// Upsert crea el mapeo o actualiza último costo, fecha y acumulado de compras.
	Upsert(m *entity.SupplierMapping) error
	ListBySupplier(tenantID, supplierID string, limit, offset int) ([]*entity.SupplierMapping, error)
}
