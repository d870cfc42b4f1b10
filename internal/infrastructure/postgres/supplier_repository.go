package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.SupplierRepository = (*SupplierRepo)(nil)
var _ repository.SupplierMappingRepository = (*SupplierMappingRepo)(nil)

const supplierColumns = `id, tenant_id, cnpj, name, trade_name, state_registration, address, city, state,
	active, created_at, updated_at`

// SupplierRepo implementación de SupplierRepository sobre PostgreSQL (usable con pool o tx).
type SupplierRepo struct {
	q Querier
}

// NewSupplierRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSupplierRepository(q Querier) *SupplierRepo {
	return &SupplierRepo{q: q}
}

// Create persiste un proveedor nuevo.
func (r *SupplierRepo) Create(s *entity.Supplier) error {
	query := `
		INSERT INTO suppliers (` + supplierColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(context.Background(), query,
		s.ID, s.TenantID, s.CNPJ, s.Name, s.TradeName, s.StateRegistration,
		s.Address, s.City, s.State, s.Active, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

// GetByID obtiene un proveedor por ID.
func (r *SupplierRepo) GetByID(id string) (*entity.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`
	return r.one(query, id)
}

// GetByCNPJ obtiene un proveedor por tenant y CNPJ normalizado.
func (r *SupplierRepo) GetByCNPJ(tenantID, cnpj string) (*entity.Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE tenant_id = $1 AND cnpj = $2`
	return r.one(query, tenantID, cnpj)
}

// Update actualiza un proveedor existente.
func (r *SupplierRepo) Update(s *entity.Supplier) error {
	query := `
		UPDATE suppliers SET name = $2, trade_name = $3, state_registration = $4, address = $5,
			city = $6, state = $7, active = $8, updated_at = $9
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		s.ID, s.Name, s.TradeName, s.StateRegistration, s.Address, s.City, s.State, s.Active, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	return nil
}

func (r *SupplierRepo) one(query string, args ...any) (*entity.Supplier, error) {
	var s entity.Supplier
	err := r.q.QueryRow(context.Background(), query, args...).Scan(
		&s.ID, &s.TenantID, &s.CNPJ, &s.Name, &s.TradeName, &s.StateRegistration,
		&s.Address, &s.City, &s.State, &s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier: %w", err)
	}
	return &s, nil
}

const mappingColumns = `id, tenant_id, supplier_id, supplier_sku, supplier_barcode, supplier_description,
	product_id, variant_id, uom, conversion_factor, last_cost, total_purchased, last_purchase_at,
	created_at, updated_at`

// SupplierMappingRepo implementación de SupplierMappingRepository sobre PostgreSQL.
type SupplierMappingRepo struct {
	q Querier
}

// NewSupplierMappingRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSupplierMappingRepository(q Querier) *SupplierMappingRepo {
	return &SupplierMappingRepo{q: q}
}

// Find devuelve el mapeo o (nil, nil) si el SKU del proveedor aún no se conoce.
func (r *SupplierMappingRepo) Find(tenantID, supplierID, supplierSKU string) (*entity.SupplierMapping, error) {
	query := `
		SELECT ` + mappingColumns + ` FROM supplier_mappings
		WHERE tenant_id = $1 AND supplier_id = $2 AND supplier_sku = $3`
	var m entity.SupplierMapping
	err := r.q.QueryRow(context.Background(), query, tenantID, supplierID, supplierSKU).Scan(
		&m.ID, &m.TenantID, &m.SupplierID, &m.SupplierSKU, &m.SupplierBarcode, &m.SupplierDescription,
		&m.ProductID, &m.VariantID, &m.UOM, &m.ConversionFactor, &m.LastCost, &m.TotalPurchased,
		&m.LastPurchaseAt, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get supplier mapping: %w", err)
	}
	return &m, nil
}

// Upsert crea el mapeo o actualiza target, último costo, fecha y acumulado de compras.
func (r *SupplierMappingRepo) Upsert(m *entity.SupplierMapping) error {
	query := `
		INSERT INTO supplier_mappings (` + mappingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (tenant_id, supplier_id, supplier_sku)
		DO UPDATE SET
			supplier_barcode = EXCLUDED.supplier_barcode,
			supplier_description = EXCLUDED.supplier_description,
			product_id = EXCLUDED.product_id,
			variant_id = EXCLUDED.variant_id,
			uom = EXCLUDED.uom,
			last_cost = EXCLUDED.last_cost,
			total_purchased = supplier_mappings.total_purchased + EXCLUDED.total_purchased,
			last_purchase_at = EXCLUDED.last_purchase_at,
			updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.TenantID, m.SupplierID, m.SupplierSKU, m.SupplierBarcode, m.SupplierDescription,
		m.ProductID, m.VariantID, m.UOM, m.ConversionFactor, m.LastCost, m.TotalPurchased,
		m.LastPurchaseAt, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert supplier mapping: %w", err)
	}
	return nil
}

// ListBySupplier lista los mapeos de un proveedor con paginación.
func (r *SupplierMappingRepo) ListBySupplier(tenantID, supplierID string, limit, offset int) ([]*entity.SupplierMapping, error) {
	query := `
		SELECT ` + mappingColumns + ` FROM supplier_mappings
		WHERE tenant_id = $1 AND supplier_id = $2
		ORDER BY updated_at DESC LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query, tenantID, supplierID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list supplier mappings: %w", err)
	}
	defer rows.Close()
	var list []*entity.SupplierMapping
	for rows.Next() {
		var m entity.SupplierMapping
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.SupplierID, &m.SupplierSKU, &m.SupplierBarcode, &m.SupplierDescription,
			&m.ProductID, &m.VariantID, &m.UOM, &m.ConversionFactor, &m.LastCost, &m.TotalPurchased,
			&m.LastPurchaseAt, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan supplier mapping: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
