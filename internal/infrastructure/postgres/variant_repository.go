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

var _ repository.VariantRepository = (*VariantRepo)(nil)

const variantColumns = `id, tenant_id, product_id, sku, name, barcode, attribute_name, attribute_value,
	current_stock, avg_unit_cost, sale_price, active, created_at, updated_at`

// VariantRepo implementación de VariantRepository sobre PostgreSQL (usable con pool o tx).
type VariantRepo struct {
	q Querier
}

// NewVariantRepository construye el adaptador. Pasar pool o tx (Querier).
func NewVariantRepository(q Querier) *VariantRepo {
	return &VariantRepo{q: q}
}

// Create persiste una nueva variante.
func (r *VariantRepo) Create(v *entity.ProductVariant) error {
	query := `
		INSERT INTO product_variants (` + variantColumns + `)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := r.q.Exec(context.Background(), query,
		v.ID, v.TenantID, v.ProductID, v.SKU, v.Name, v.Barcode,
		v.AttributeName, v.AttributeValue, v.CurrentStock, v.AvgUnitCost,
		v.SalePrice, v.Active, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// GetByID obtiene una variante por ID.
func (r *VariantRepo) GetByID(id string) (*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1`
	return r.one(query, id)
}

// GetByTenantAndSKU obtiene una variante por tenant y SKU.
func (r *VariantRepo) GetByTenantAndSKU(tenantID, sku string) (*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE tenant_id = $1 AND sku = $2`
	return r.one(query, tenantID, sku)
}

// GetByBarcode busca una variante activa por código de barras.
func (r *VariantRepo) GetByBarcode(tenantID, barcode string) (*entity.ProductVariant, error) {
	query := `
		SELECT ` + variantColumns + ` FROM product_variants
		WHERE tenant_id = $1 AND barcode = $2 AND active`
	return r.one(query, tenantID, barcode)
}

// FindByParentAndAttribute busca una variante activa del padre por valor de
// atributo (case-insensitive).
func (r *VariantRepo) FindByParentAndAttribute(productID, attributeName, attributeValue string) (*entity.ProductVariant, error) {
	query := `
		SELECT ` + variantColumns + ` FROM product_variants
		WHERE product_id = $1 AND lower(attribute_name) = lower($2)
		  AND lower(attribute_value) = lower($3) AND active`
	return r.one(query, productID, attributeName, attributeValue)
}

// ListByProduct lista las variantes de un producto.
func (r *VariantRepo) ListByProduct(productID string) ([]*entity.ProductVariant, error) {
	query := `
		SELECT ` + variantColumns + ` FROM product_variants
		WHERE product_id = $1 ORDER BY attribute_value`
	rows, err := r.q.Query(context.Background(), query, productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()
	var list []*entity.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Update actualiza datos descriptivos; stock y costo solo vía UpdateStockAndCost.
func (r *VariantRepo) Update(v *entity.ProductVariant) error {
	query := `
		UPDATE product_variants SET name = $2, barcode = NULLIF($3, ''), attribute_name = $4,
			attribute_value = $5, sale_price = $6, active = $7, updated_at = $8
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		v.ID, v.Name, v.Barcode, v.AttributeName, v.AttributeValue, v.SalePrice, v.Active, v.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update variant: %w", err)
	}
	return nil
}

// GetForUpdate obtiene la variante y bloquea la fila (SELECT FOR UPDATE).
func (r *VariantRepo) GetForUpdate(id string) (*entity.ProductVariant, error) {
	query := `SELECT ` + variantColumns + ` FROM product_variants WHERE id = $1 FOR UPDATE`
	return r.one(query, id)
}

// UpdateStockAndCost escribe los campos cacheados de stock; solo el ledger debe llamarlo.
func (r *VariantRepo) UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error {
	_, err := r.q.Exec(context.Background(),
		`UPDATE product_variants SET current_stock = $2, avg_unit_cost = $3, updated_at = now() WHERE id = $1`,
		id, stock, avgCost,
	)
	if err != nil {
		return fmt.Errorf("update variant stock: %w", err)
	}
	return nil
}

func (r *VariantRepo) one(query string, args ...any) (*entity.ProductVariant, error) {
	v, err := scanVariant(r.q.QueryRow(context.Background(), query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func scanVariant(row pgxScanner) (*entity.ProductVariant, error) {
	var v entity.ProductVariant
	var barcode *string
	err := row.Scan(
		&v.ID, &v.TenantID, &v.ProductID, &v.SKU, &v.Name, &barcode,
		&v.AttributeName, &v.AttributeValue, &v.CurrentStock, &v.AvgUnitCost,
		&v.SalePrice, &v.Active, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan variant: %w", err)
	}
	if barcode != nil {
		v.Barcode = *barcode
	}
	return &v, nil
}

// pgxScanner abstrae pgx.Row y pgx.Rows para reutilizar scanVariant.
type pgxScanner interface {
	Scan(dest ...any) error
}
