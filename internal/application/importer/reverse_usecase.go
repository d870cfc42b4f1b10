package importer

import (
	"context"
	"fmt"

	"github.com/stockpro/importer-api/internal/application/staging"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
	"github.com/stockpro/importer-api/pkg/logger"
)

// ReversalUseCase deshace un batch completo: resta el stock que sus movimientos
// sumaron, borra movimientos e ítems staged, y libera la clave de idempotencia
// para que el documento pueda reimportarse.
//
// Solo se revierten batches cuyos movimientos son todos IN (lo único que crean
// las importaciones). Si el batch incluye otros tipos fue intervenido por fuera
// y la reversión automática ya no es segura. El costo promedio no se restaura:
// el promedio anterior a la importación es irrecuperable una vez mezclado.
type ReversalUseCase struct {
	txRunner     staging.TxRunner
	batchRepo    repository.ImportBatchRepository
	logRepo      repository.ImportLogRepository
	settingsRepo repository.TenantSettingsRepository
	log          *logger.Logger
}

// NewReversalUseCase construye el caso de uso.
func NewReversalUseCase(
	txRunner staging.TxRunner,
	batchRepo repository.ImportBatchRepository,
	logRepo repository.ImportLogRepository,
	settingsRepo repository.TenantSettingsRepository,
	log *logger.Logger,
) *ReversalUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &ReversalUseCase{
		txRunner:     txRunner,
		batchRepo:    batchRepo,
		logRepo:      logRepo,
		settingsRepo: settingsRepo,
		log:          log,
	}
}

// ReverseBatch revierte el batch y lo elimina. Un batch aún en proceso no se
// puede revertir (ErrConflict); tampoco uno cuya reversión dejaría stock
// negativo, salvo que el tenant lo permita.
func (uc *ReversalUseCase) ReverseBatch(ctx context.Context, tenantID, batchID string) error {
	batch, err := uc.batchRepo.GetByID(batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return domain.ErrNotFound
	}
	if batch.TenantID != tenantID {
		return domain.ErrForbidden
	}
	switch batch.Status {
	case entity.BatchStatusCompleted, entity.BatchStatusPartial, entity.BatchStatusPendingReview, entity.BatchStatusError:
	default:
		return domain.ErrConflict
	}

	settings, err := uc.settingsRepo.GetOrDefault(tenantID)
	if err != nil {
		return err
	}

	err = uc.txRunner.RunStaging(ctx, func(
		stagedRepo repository.StagedItemRepository,
		productRepo repository.ProductRepository,
		variantRepo repository.VariantRepository,
		movRepo repository.StockMovementRepository,
		_ repository.SupplierMappingRepository,
		_ repository.CategoryRepository,
		_ repository.BrandRepository,
	) error {
		movements, err := movRepo.ListByBatch(tenantID, batchID)
		if err != nil {
			return err
		}
		for _, mov := range movements {
			if mov.Type != entity.MovementTypeIN {
				return domain.ErrConflict
			}
		}

		for _, mov := range movements {
			if err := reverseMovement(productRepo, variantRepo, mov, settings.AllowNegativeStock); err != nil {
				return fmt.Errorf("revertir movimiento %s: %w", mov.ID, err)
			}
		}

		if err := movRepo.DeleteByBatch(tenantID, batchID); err != nil {
			return err
		}
		return stagedRepo.DeleteByBatch(tenantID, batchID)
	})
	if err != nil {
		return err
	}

	if err := uc.logRepo.DeleteByKey(idempotencyKey(tenantID, batch.ContentHash)); err != nil {
		uc.log.Warn().Err(err).Str("batch_id", batchID).Msg("importer: no se pudo liberar la clave de idempotencia")
	}
	uc.log.Info().Str("batch_id", batchID).Str("tenant_id", tenantID).Msg("importer: batch revertido")
	return uc.batchRepo.Delete(batchID)
}

// reverseMovement resta del target la cantidad que el IN sumó, con lock de fila.
func reverseMovement(
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	mov *entity.StockMovement,
	allowNegative bool,
) error {
	if mov.VariantID != nil {
		v, err := variantRepo.GetForUpdate(*mov.VariantID)
		if err != nil {
			return err
		}
		if v == nil {
			return domain.ErrNotFound
		}
		newStock := v.CurrentStock.Sub(mov.Quantity)
		if newStock.IsNegative() && !allowNegative {
			return &domain.InsufficientStockError{SKU: v.SKU, Available: v.CurrentStock, Requested: mov.Quantity}
		}
		return variantRepo.UpdateStockAndCost(v.ID, newStock, v.AvgUnitCost)
	}

	p, err := productRepo.GetForUpdate(*mov.ProductID)
	if err != nil {
		return err
	}
	if p == nil {
		return domain.ErrNotFound
	}
	newStock := p.CurrentStock.Sub(mov.Quantity)
	if newStock.IsNegative() && !allowNegative {
		return &domain.InsufficientStockError{SKU: p.SKU, Available: p.CurrentStock, Requested: mov.Quantity}
	}
	return productRepo.UpdateStockAndCost(p.ID, newStock, p.AvgUnitCost)
}
