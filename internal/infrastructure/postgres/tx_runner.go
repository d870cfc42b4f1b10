package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/staging"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner and staging.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)
var _ staging.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción con los repos del libro de inventario y hace
// Commit o Rollback según el resultado de fn.
func (r *TxRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	movRepo := NewStockMovementRepository(tx)
	productRepo := NewProductRepository(tx)
	variantRepo := NewVariantRepository(tx)

	if err := fn(movRepo, productRepo, variantRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// RunStaging inicia una transacción con el juego completo de repos que una
// aprobación de curaduría puede tocar (catálogo, taxonomía, libro y mapeos).
func (r *TxRunner) RunStaging(ctx context.Context, fn func(
	stagedRepo repository.StagedItemRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	movRepo repository.StockMovementRepository,
	mappingRepo repository.SupplierMappingRepository,
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stagedRepo := NewStagedItemRepository(tx)
	productRepo := NewProductRepository(tx)
	variantRepo := NewVariantRepository(tx)
	movRepo := NewStockMovementRepository(tx)
	mappingRepo := NewSupplierMappingRepository(tx)
	categoryRepo := NewCategoryRepository(tx)
	brandRepo := NewBrandRepository(tx)

	if err := fn(stagedRepo, productRepo, variantRepo, movRepo, mappingRepo, categoryRepo, brandRepo); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
