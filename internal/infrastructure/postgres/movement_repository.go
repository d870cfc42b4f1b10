package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, tenant_id, product_id, variant_id, type, quantity, unit_cost, total_cost,
	balance_after, source, source_doc, batch_id, note, created_by, created_at`

// StockMovementRepo implementación de StockMovementRepository sobre PostgreSQL.
// El libro es append-only: no hay Update ni Delete individuales.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste un asiento del libro.
func (r *StockMovementRepo) Create(m *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(context.Background(), query,
		m.ID, m.TenantID, m.ProductID, m.VariantID, m.Type, m.Quantity, m.UnitCost, m.TotalCost,
		m.BalanceAfter, m.Source, m.SourceDoc, m.BatchID, m.Note, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un asiento por ID.
func (r *StockMovementRepo) GetByID(id string) (*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE id = $1`
	var m entity.StockMovement
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&m.ID, &m.TenantID, &m.ProductID, &m.VariantID, &m.Type, &m.Quantity, &m.UnitCost, &m.TotalCost,
		&m.BalanceAfter, &m.Source, &m.SourceDoc, &m.BatchID, &m.Note, &m.CreatedBy, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock movement: %w", err)
	}
	return &m, nil
}

// ListByTarget lista los asientos de un producto o variante, los más recientes primero.
func (r *StockMovementRepo) ListByTarget(tenantID string, productID, variantID *string, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM stock_movements
		WHERE tenant_id = $1
		  AND ($2::text IS NULL OR product_id = $2)
		  AND ($3::text IS NULL OR variant_id = $3)
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`
	return r.list(query, tenantID, productID, variantID, limit, offset)
}

// ListByBatch lista los asientos creados por un batch de importación.
func (r *StockMovementRepo) ListByBatch(tenantID, batchID string) ([]*entity.StockMovement, error) {
	query := `
		SELECT ` + movementColumns + ` FROM stock_movements
		WHERE tenant_id = $1 AND batch_id = $2
		ORDER BY created_at`
	return r.list(query, tenantID, batchID)
}

// DeleteByBatch borra los asientos de un batch. Solo el caso de uso de
// reversión debe llamarlo, dentro de la misma tx que deshace el stock.
func (r *StockMovementRepo) DeleteByBatch(tenantID, batchID string) error {
	_, err := r.q.Exec(context.Background(),
		`DELETE FROM stock_movements WHERE tenant_id = $1 AND batch_id = $2`,
		tenantID, batchID,
	)
	if err != nil {
		return fmt.Errorf("delete movements by batch: %w", err)
	}
	return nil
}

func (r *StockMovementRepo) list(query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.ProductID, &m.VariantID, &m.Type, &m.Quantity, &m.UnitCost, &m.TotalCost,
			&m.BalanceAfter, &m.Source, &m.SourceDoc, &m.BatchID, &m.Note, &m.CreatedBy, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
