package staging

import (
	"context"

	"github.com/stockpro/importer-api/internal/domain/repository"
)

// TxRunner transacción con el juego completo de repositorios que una
// aprobación puede tocar: ítem staged, catálogo, taxonomía, libro y mapeos.
type TxRunner interface {
	RunStaging(ctx context.Context, fn func(
		stagedRepo repository.StagedItemRepository,
		productRepo repository.ProductRepository,
		variantRepo repository.VariantRepository,
		movRepo repository.StockMovementRepository,
		mappingRepo repository.SupplierMappingRepository,
		categoryRepo repository.CategoryRepository,
		brandRepo repository.BrandRepository,
	) error) error
}
