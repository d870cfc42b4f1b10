package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.StagedItemRepository = (*StagedItemRepo)(nil)

const stagedColumns = `id, tenant_id, batch_id, supplier_id, supplier_sku, barcode, raw_description,
	ncm, cfop, uom, quantity, unit_cost,
	suggested_name, suggested_category, suggested_brand, suggested_attributes,
	match_level, match_type, confidence, match_logic, candidate_product_id, candidate_variant_id,
	needs_review, status, error_msg, resolved_product_id, resolved_variant_id, resolved_by, resolved_at,
	source, source_doc, created_at, updated_at`

// StagedItemRepo implementación de StagedItemRepository sobre PostgreSQL (usable con pool o tx).
type StagedItemRepo struct {
	q Querier
}

// NewStagedItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStagedItemRepository(q Querier) *StagedItemRepo {
	return &StagedItemRepo{q: q}
}

// Create persiste un ítem en la cola de curaduría.
func (r *StagedItemRepo) Create(it *entity.StagedItem) error {
	query := `
		INSERT INTO staged_items (` + stagedColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)`
	_, err := r.q.Exec(context.Background(), query,
		it.ID, it.TenantID, it.BatchID, it.SupplierID, it.SupplierSKU, it.Barcode, it.RawDescription,
		it.NCM, it.CFOP, it.UOM, it.Quantity, it.UnitCost,
		it.SuggestedName, it.SuggestedCategory, it.SuggestedBrand, it.SuggestedAttributes,
		it.MatchLevel, it.MatchType, it.Confidence, it.MatchLogic, it.CandidateProductID, it.CandidateVariantID,
		it.NeedsReview, it.Status, it.ErrorMsg, it.ResolvedProductID, it.ResolvedVariantID, it.ResolvedBy, it.ResolvedAt,
		it.Source, it.SourceDoc, it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staged item: %w", err)
	}
	return nil
}

// GetByID obtiene un ítem por ID.
func (r *StagedItemRepo) GetByID(id string) (*entity.StagedItem, error) {
	query := `SELECT ` + stagedColumns + ` FROM staged_items WHERE id = $1`
	return r.one(query, id)
}

// GetForUpdate obtiene el ítem y bloquea la fila para evitar doble aprobación concurrente.
func (r *StagedItemRepo) GetForUpdate(id string) (*entity.StagedItem, error) {
	query := `SELECT ` + stagedColumns + ` FROM staged_items WHERE id = $1 FOR UPDATE`
	return r.one(query, id)
}

// Update actualiza estado y resolución de un ítem.
func (r *StagedItemRepo) Update(it *entity.StagedItem) error {
	query := `
		UPDATE staged_items SET status = $2, error_msg = $3, resolved_product_id = $4,
			resolved_variant_id = $5, resolved_by = $6, resolved_at = $7, updated_at = $8
		WHERE id = $1`
	_, err := r.q.Exec(context.Background(), query,
		it.ID, it.Status, it.ErrorMsg, it.ResolvedProductID, it.ResolvedVariantID,
		it.ResolvedBy, it.ResolvedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update staged item: %w", err)
	}
	return nil
}

// ListPending lista ítems PENDING del tenant con paginación (los más antiguos primero).
func (r *StagedItemRepo) ListPending(tenantID string, limit, offset int) ([]*entity.StagedItem, error) {
	query := `
		SELECT ` + stagedColumns + ` FROM staged_items
		WHERE tenant_id = $1 AND status = 'PENDING'
		ORDER BY created_at LIMIT $2 OFFSET $3`
	return r.list(query, tenantID, limit, offset)
}

// ListByBatch lista todos los ítems staged de un batch.
func (r *StagedItemRepo) ListByBatch(tenantID, batchID string) ([]*entity.StagedItem, error) {
	query := `
		SELECT ` + stagedColumns + ` FROM staged_items
		WHERE tenant_id = $1 AND batch_id = $2
		ORDER BY created_at`
	return r.list(query, tenantID, batchID)
}

// CountPending cuenta los ítems PENDING del tenant.
func (r *StagedItemRepo) CountPending(tenantID string) (int, error) {
	var count int
	err := r.q.QueryRow(context.Background(),
		`SELECT count(*) FROM staged_items WHERE tenant_id = $1 AND status = 'PENDING'`,
		tenantID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending staged items: %w", err)
	}
	return count, nil
}

// DeleteByBatch borra los ítems staged de un batch (solo la reversión lo usa).
func (r *StagedItemRepo) DeleteByBatch(tenantID, batchID string) error {
	_, err := r.q.Exec(context.Background(),
		`DELETE FROM staged_items WHERE tenant_id = $1 AND batch_id = $2`,
		tenantID, batchID,
	)
	if err != nil {
		return fmt.Errorf("delete staged items by batch: %w", err)
	}
	return nil
}

func (r *StagedItemRepo) one(query string, args ...any) (*entity.StagedItem, error) {
	it, err := scanStagedItem(r.q.QueryRow(context.Background(), query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return it, nil
}

func (r *StagedItemRepo) list(query string, args ...any) ([]*entity.StagedItem, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staged items: %w", err)
	}
	defer rows.Close()
	var list []*entity.StagedItem
	for rows.Next() {
		it, err := scanStagedItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, it)
	}
	return list, rows.Err()
}

func scanStagedItem(row pgxScanner) (*entity.StagedItem, error) {
	var it entity.StagedItem
	err := row.Scan(
		&it.ID, &it.TenantID, &it.BatchID, &it.SupplierID, &it.SupplierSKU, &it.Barcode, &it.RawDescription,
		&it.NCM, &it.CFOP, &it.UOM, &it.Quantity, &it.UnitCost,
		&it.SuggestedName, &it.SuggestedCategory, &it.SuggestedBrand, &it.SuggestedAttributes,
		&it.MatchLevel, &it.MatchType, &it.Confidence, &it.MatchLogic, &it.CandidateProductID, &it.CandidateVariantID,
		&it.NeedsReview, &it.Status, &it.ErrorMsg, &it.ResolvedProductID, &it.ResolvedVariantID, &it.ResolvedBy, &it.ResolvedAt,
		&it.Source, &it.SourceDoc, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan staged item: %w", err)
	}
	return &it, nil
}
