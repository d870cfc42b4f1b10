package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, tenant_id, sku, name, description, type, barcode, category_id, brand_id, uom,
	current_stock, avg_unit_cost, sale_price, minimum_stock, active, attributes, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto. Stock y costo promedio inician en 0.
func (r *ProductRepo) Create(product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(context.Background(), query,
		product.ID, product.TenantID, product.SKU, product.Name, product.Description,
		product.Type, product.Barcode, product.CategoryID, product.BrandID, product.UOM,
		product.CurrentStock, product.AvgUnitCost, product.SalePrice, product.MinimumStock,
		product.Active, product.Attributes, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.one(query, id)
}

// GetByTenantAndSKU obtiene un producto por tenant y SKU.
func (r *ProductRepo) GetByTenantAndSKU(tenantID, sku string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND sku = $2`
	return r.one(query, tenantID, sku)
}

// GetByBarcode busca un producto SIMPLE activo por código de barras.
func (r *ProductRepo) GetByBarcode(tenantID, barcode string) (*entity.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE tenant_id = $1 AND barcode = $2 AND type = 'SIMPLE' AND active`
	return r.one(query, tenantID, barcode)
}

// FindVariableByName busca un producto VARIABLE activo por nombre exacto (case-insensitive).
func (r *ProductRepo) FindVariableByName(tenantID, name string) (*entity.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE tenant_id = $1 AND lower(name) = lower($2) AND type = 'VARIABLE' AND active`
	return r.one(query, tenantID, name)
}

// ListVariableByTenant lista productos VARIABLE activos (para el match difuso de nombre).
func (r *ProductRepo) ListVariableByTenant(tenantID string, limit int) ([]*entity.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE tenant_id = $1 AND type = 'VARIABLE' AND active
		ORDER BY created_at DESC LIMIT $2`
	return r.list(query, tenantID, limit)
}

// ListActive lista productos activos, los más recientes primero.
func (r *ProductRepo) ListActive(tenantID string, limit int) ([]*entity.Product, error) {
	query := `
		SELECT ` + productColumns + ` FROM products
		WHERE tenant_id = $1 AND active
		ORDER BY created_at DESC LIMIT $2`
	return r.list(query, tenantID, limit)
}

// Update actualiza datos descriptivos. Stock y costo promedio no se tocan acá:
// solo UpdateStockAndCost, siempre desde el libro de movimientos.
func (r *ProductRepo) Update(product *entity.Product) error {
	query := `
		UPDATE products SET name = $2, description = $3, barcode = NULLIF($4, ''), category_id = $5,
			brand_id = $6, uom = $7, sale_price = $8, minimum_stock = $9, active = $10,
			attributes = $11, updated_at = $12
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		product.ID, product.Name, product.Description, product.Barcode, product.CategoryID,
		product.BrandID, product.UOM, product.SalePrice, product.MinimumStock, product.Active,
		product.Attributes, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

// GetForUpdate obtiene el producto y bloquea la fila (SELECT FOR UPDATE).
func (r *ProductRepo) GetForUpdate(id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`
	return r.one(query, id)
}

// UpdateStockAndCost escribe los campos cacheados de stock; solo el ledger debe llamarlo.
func (r *ProductRepo) UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE products SET current_stock = $2, avg_unit_cost = $3, updated_at = now() WHERE id = $1`,
		id, stock, avgCost,
	)
	if err != nil {
		return fmt.Errorf("update product stock: %w", err)
	}
	return nil
}

func (r *ProductRepo) one(query string, args ...any) (*entity.Product, error) {
	var p entity.Product
	var barcode *string
	err := r.q.QueryRow(context.Background(), query, args...).Scan(
		&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Description, &p.Type, &barcode,
		&p.CategoryID, &p.BrandID, &p.UOM, &p.CurrentStock, &p.AvgUnitCost,
		&p.SalePrice, &p.MinimumStock, &p.Active, &p.Attributes, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if barcode != nil {
		p.Barcode = *barcode
	}
	return &p, nil
}

func (r *ProductRepo) list(query string, args ...any) ([]*entity.Product, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		var p entity.Product
		var barcode *string
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.SKU, &p.Name, &p.Description, &p.Type, &barcode,
			&p.CategoryID, &p.BrandID, &p.UOM, &p.CurrentStock, &p.AvgUnitCost,
			&p.SalePrice, &p.MinimumStock, &p.Active, &p.Attributes, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if barcode != nil {
			p.Barcode = *barcode
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
