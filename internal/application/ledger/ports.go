package ledger

import (
	"context"

	"github.com/stockpro/importer-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad entre el asiento del
// movimiento y la actualización de los campos cacheados del target.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		variantRepo repository.VariantRepository,
	) error) error
}
