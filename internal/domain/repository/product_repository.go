package repository

import (
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain/entity"
)

// ProductRepository puerto de persistencia para productos del catálogo.
// Los métodos Get* devuelven (nil, nil) cuando no hay fila.
type ProductRepository interface {
	Create(p *entity.Product) error
	GetByID(id string) (*entity.Product, error)
	GetByTenantAndSKU(tenantID, sku string) (*entity.Product, error)
	// GetByBarcode busca un producto SIMPLE activo por código de barras.
	GetByBarcode(tenantID, barcode string) (*entity.Product, error)
	// FindVariableByName busca un producto VARIABLE activo por nombre exacto (case-insensitive).
	FindVariableByName(tenantID, name string) (*entity.Product, error)
	// ListVariableByTenant lista productos VARIABLE activos (para el match difuso de nombre).
	ListVariableByTenant(tenantID string, limit int) ([]*entity.Product, error)
	// ListActive lista productos activos, los más recientes primero (contexto para la IA).
	ListActive(tenantID string, limit int) ([]*entity.Product, error)
	Update(p *entity.Product) error
	// GetForUpdate bloquea la fila (SELECT FOR UPDATE) para el read-modify-write del ledger.
	GetForUpdate(id string) (*entity.Product, error)
	// UpdateStockAndCost escribe los campos cacheados; solo el ledger debe llamarlo.
	UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error
}

// VariantRepository puerto de persistencia para variantes.
type VariantRepository interface {
	Create(v *entity.ProductVariant) error
	GetByID(id string) (*entity.ProductVariant, error)
	GetByTenantAndSKU(tenantID, sku string) (*entity.ProductVariant, error)
	GetByBarcode(tenantID, barcode string) (*entity.ProductVariant, error)
	// FindByParentAndAttribute busca una variante activa del padre cuyo valor de
	// atributo coincida (case-insensitive). Para resolver agrupamientos IA.
	FindByParentAndAttribute(productID, attributeName, attributeValue string) (*entity.ProductVariant, error)
	ListByProduct(productID string) ([]*entity.ProductVariant, error)
	Update(v *entity.ProductVariant) error
	GetForUpdate(id string) (*entity.ProductVariant, error)
	UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error
}
