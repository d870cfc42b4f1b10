package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/parser"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/nfe"
	"github.com/stockpro/importer-api/internal/domain/repository"
	"github.com/stockpro/importer-api/pkg/logger"
)

// CatalogImportUseCase importación determinística de catálogos CSV/XLSX:
// upsert por (tenant, SKU), sin pasar por el matcher. El stock inicial solo se
// aplica al crear el producto, vía movimiento IN; reimportar el archivo
// actualiza datos descriptivos pero nunca vuelve a tocar el stock.
type CatalogImportUseCase struct {
	parser       *parser.CatalogParser
	ledger       *ledger.UseCase
	batchRepo    repository.ImportBatchRepository
	logRepo      repository.ImportLogRepository
	productRepo  repository.ProductRepository
	variantRepo  repository.VariantRepository
	categoryRepo repository.CategoryRepository
	brandRepo    repository.BrandRepository
	log          *logger.Logger
}

// NewCatalogImportUseCase construye el caso de uso.
func NewCatalogImportUseCase(
	catalogParser *parser.CatalogParser,
	ledgerUC *ledger.UseCase,
	batchRepo repository.ImportBatchRepository,
	logRepo repository.ImportLogRepository,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
	log *logger.Logger,
) *CatalogImportUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CatalogImportUseCase{
		parser:       catalogParser,
		ledger:       ledgerUC,
		batchRepo:    batchRepo,
		logRepo:      logRepo,
		productRepo:  productRepo,
		variantRepo:  variantRepo,
		categoryRepo: categoryRepo,
		brandRepo:    brandRepo,
		log:          log,
	}
}

// Import procesa un catálogo. source debe ser entity.BatchSourceCSV o
// entity.BatchSourceXLSX; las filas se procesan en dos pasadas (productos antes
// que variantes) para que una fila VARIANT pueda referenciar a un padre
// declarado más abajo en el mismo archivo.
func (uc *CatalogImportUseCase) Import(ctx context.Context, tenantID, userID, fileName, source string, content []byte) (*entity.ImportBatch, error) {
	contentHash := hashContent(content)
	idemKey := idempotencyKey(tenantID, contentHash)

	if existing, err := uc.logRepo.FindByKey(idemKey); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &domain.DuplicateImportError{DocKey: fileName, ImportedAt: existing.CreatedAt}
	}

	now := time.Now()
	batch := &entity.ImportBatch{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		Source:      source,
		FileName:    fileName,
		ContentHash: contentHash,
		Status:      entity.BatchStatusPending,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.batchRepo.Create(batch); err != nil {
		return nil, err
	}

	rows, err := uc.parseRows(source, content)
	if err != nil {
		uc.failCatalogBatch(batch, err)
		return batch, err
	}

	batch.TotalRows = len(rows)
	batch.Status = entity.BatchStatusProcessing
	batch.UpdatedAt = time.Now()
	if err := uc.batchRepo.Update(batch); err != nil {
		return nil, err
	}

	// Primera pasada: SIMPLE y VARIABLE. Segunda: VARIANT, con todos los padres
	// ya resueltos.
	for _, pass := range [][]string{
		{parser.RowTypeSimple, parser.RowTypeVariable},
		{parser.RowTypeVariant},
	} {
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				batch.UpdatedAt = time.Now()
				_ = uc.batchRepo.Update(batch)
				return batch, err
			}
			if !contains(pass, row.Type) {
				continue
			}
			if err := uc.upsertRow(ctx, batch, row); err != nil {
				uc.recordRowError(batch, row.Line, err)
			} else {
				batch.SuccessCount++
			}
			batch.ProcessedRows++
			batch.UpdatedAt = time.Now()
			if err := uc.batchRepo.Update(batch); err != nil {
				return batch, err
			}
		}
	}

	// Filas de tipo desconocido cuentan como error, no como omisión silenciosa.
	for _, row := range rows {
		if row.Type != parser.RowTypeSimple && row.Type != parser.RowTypeVariable && row.Type != parser.RowTypeVariant {
			uc.recordRowError(batch, row.Line, &domain.ValidationError{
				Msg: fmt.Sprintf("tipo de fila desconocido: %s", row.Type),
			})
			batch.ProcessedRows++
		}
	}

	if err := uc.finalizeCatalog(batch); err != nil {
		return batch, err
	}
	return batch, nil
}

func (uc *CatalogImportUseCase) parseRows(source string, content []byte) ([]parser.CatalogRow, error) {
	switch source {
	case entity.BatchSourceCSV:
		return uc.parser.ParseCSV(strings.NewReader(string(content)))
	case entity.BatchSourceXLSX:
		return uc.parser.ParseXLSX(content)
	default:
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("origen de catálogo desconocido: %s", source)}
	}
}

func (uc *CatalogImportUseCase) upsertRow(ctx context.Context, batch *entity.ImportBatch, row parser.CatalogRow) error {
	if row.SKU == "" || row.Name == "" {
		return &domain.ValidationError{Msg: "sku y name son obligatorios"}
	}
	if row.Type == parser.RowTypeVariant {
		return uc.upsertVariant(ctx, batch, row)
	}
	return uc.upsertProduct(ctx, batch, row)
}

func (uc *CatalogImportUseCase) upsertProduct(ctx context.Context, batch *entity.ImportBatch, row parser.CatalogRow) error {
	existing, err := uc.productRepo.GetByTenantAndSKU(batch.TenantID, row.SKU)
	if err != nil {
		return err
	}

	if row.Barcode != "" {
		if err := uc.checkBarcodeFree(batch.TenantID, row.Barcode, existing); err != nil {
			return err
		}
	}

	categoryID, brandID, err := uc.resolveTaxonomy(batch.TenantID, row)
	if err != nil {
		return err
	}

	now := time.Now()
	if existing != nil {
		if existing.Type != row.Type {
			return &domain.ValidationError{
				Msg: fmt.Sprintf("el SKU %s ya existe con tipo %s, no puede cambiar a %s", row.SKU, existing.Type, row.Type),
			}
		}
		existing.Name = row.Name
		if row.Barcode != "" {
			existing.Barcode = row.Barcode
		}
		if categoryID != nil {
			existing.CategoryID = categoryID
		}
		if brandID != nil {
			existing.BrandID = brandID
		}
		if row.UOM != "" {
			existing.UOM = nfe.NormalizeUOM(row.UOM)
		}
		if row.SalePrice != nil {
			existing.SalePrice = *row.SalePrice
		}
		if row.MinimumStock != nil {
			existing.MinimumStock = *row.MinimumStock
		}
		if attrs := marshalAttributes(row.Attributes); attrs != nil {
			existing.Attributes = attrs
		}
		existing.UpdatedAt = now
		return uc.productRepo.Update(existing)
	}

	product := &entity.Product{
		ID:         uuid.New().String(),
		TenantID:   batch.TenantID,
		SKU:        row.SKU,
		Name:       row.Name,
		Type:       row.Type,
		CategoryID: categoryID,
		BrandID:    brandID,
		UOM:        nfe.NormalizeUOM(row.UOM),
		Active:     true,
		Attributes: marshalAttributes(row.Attributes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	// El código de barras identifica un ítem vendible concreto: solo SIMPLE.
	if row.Type == parser.RowTypeSimple {
		product.Barcode = row.Barcode
	}
	if row.SalePrice != nil {
		product.SalePrice = *row.SalePrice
	}
	if row.MinimumStock != nil {
		product.MinimumStock = *row.MinimumStock
	}
	if err := uc.productRepo.Create(product); err != nil {
		return err
	}

	if row.Type == parser.RowTypeSimple {
		return uc.applyInitialStock(ctx, batch, row, product.ID, "")
	}
	return nil
}

func (uc *CatalogImportUseCase) upsertVariant(ctx context.Context, batch *entity.ImportBatch, row parser.CatalogRow) error {
	if row.ParentSKU == "" {
		return &domain.ValidationError{Msg: "fila VARIANT sin SKU de padre (use VARIANT:<sku>)"}
	}
	parent, err := uc.productRepo.GetByTenantAndSKU(batch.TenantID, row.ParentSKU)
	if err != nil {
		return err
	}
	if parent == nil {
		return &domain.ValidationError{Msg: fmt.Sprintf("producto padre %s no encontrado", row.ParentSKU)}
	}
	if parent.Type != entity.ProductTypeVariable {
		return &domain.ValidationError{Msg: fmt.Sprintf("el padre %s no es VARIABLE", row.ParentSKU)}
	}

	attrName, attrValue := variantAxis(row.Attributes)
	if attrName == "" {
		return &domain.ValidationError{Msg: "fila VARIANT sin columna attr_* con el eje de variación"}
	}

	existing, err := uc.variantRepo.GetByTenantAndSKU(batch.TenantID, row.SKU)
	if err != nil {
		return err
	}
	if row.Barcode != "" {
		if err := uc.checkVariantBarcodeFree(batch.TenantID, row.Barcode, existing); err != nil {
			return err
		}
	}

	now := time.Now()
	if existing != nil {
		if existing.ProductID != parent.ID {
			return &domain.ValidationError{
				Msg: fmt.Sprintf("la variante %s pertenece a otro producto", row.SKU),
			}
		}
		existing.Name = row.Name
		existing.AttributeName = attrName
		existing.AttributeValue = attrValue
		if row.Barcode != "" {
			existing.Barcode = row.Barcode
		}
		if row.SalePrice != nil {
			existing.SalePrice = *row.SalePrice
		}
		existing.UpdatedAt = now
		return uc.variantRepo.Update(existing)
	}

	variant := &entity.ProductVariant{
		ID:             uuid.New().String(),
		TenantID:       batch.TenantID,
		ProductID:      parent.ID,
		SKU:            row.SKU,
		Name:           row.Name,
		Barcode:        row.Barcode,
		AttributeName:  attrName,
		AttributeValue: attrValue,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if row.SalePrice != nil {
		variant.SalePrice = *row.SalePrice
	}
	if err := uc.variantRepo.Create(variant); err != nil {
		return err
	}
	return uc.applyInitialStock(ctx, batch, row, "", variant.ID)
}

// applyInitialStock asienta el stock inicial de una fila recién creada como
// movimiento IN. Stock ausente, vacío o cero no genera asiento.
func (uc *CatalogImportUseCase) applyInitialStock(ctx context.Context, batch *entity.ImportBatch, row parser.CatalogRow, productID, variantID string) error {
	if row.Stock == nil || !row.Stock.GreaterThan(decimal.Zero) {
		return nil
	}
	cost := decimal.Zero
	if row.Cost != nil {
		cost = *row.Cost
	}
	source := entity.MovementSourceCSV
	_, err := uc.ledger.Commit(ctx, ledger.MovementInput{
		TenantID:  batch.TenantID,
		UserID:    batch.CreatedBy,
		ProductID: productID,
		VariantID: variantID,
		Type:      entity.MovementTypeIN,
		Quantity:  *row.Stock,
		UnitCost:  &cost,
		Source:    source,
		SourceDoc: batch.FileName,
		BatchID:   &batch.ID,
		Note:      fmt.Sprintf("stock inicial del catálogo, fila %d", row.Line),
	})
	return err
}

func (uc *CatalogImportUseCase) resolveTaxonomy(tenantID string, row parser.CatalogRow) (categoryID, brandID *string, err error) {
	if row.CategoryName != "" {
		cat, err := uc.categoryRepo.GetOrCreate(tenantID, row.CategoryName)
		if err != nil {
			return nil, nil, err
		}
		categoryID = &cat.ID
	}
	if row.BrandName != "" {
		brand, err := uc.brandRepo.GetOrCreate(tenantID, row.BrandName)
		if err != nil {
			return nil, nil, err
		}
		brandID = &brand.ID
	}
	return categoryID, brandID, nil
}

// checkBarcodeFree el código de barras es único por tenant entre productos y
// variantes activos.
func (uc *CatalogImportUseCase) checkBarcodeFree(tenantID, barcode string, self *entity.Product) error {
	if p, err := uc.productRepo.GetByBarcode(tenantID, barcode); err != nil {
		return err
	} else if p != nil && (self == nil || p.ID != self.ID) {
		return &domain.ValidationError{
			Msg: fmt.Sprintf("el código de barras %s ya pertenece al SKU %s", barcode, p.SKU),
		}
	}
	if v, err := uc.variantRepo.GetByBarcode(tenantID, barcode); err != nil {
		return err
	} else if v != nil {
		return &domain.ValidationError{
			Msg: fmt.Sprintf("el código de barras %s ya pertenece a la variante %s", barcode, v.SKU),
		}
	}
	return nil
}

func (uc *CatalogImportUseCase) checkVariantBarcodeFree(tenantID, barcode string, self *entity.ProductVariant) error {
	if p, err := uc.productRepo.GetByBarcode(tenantID, barcode); err != nil {
		return err
	} else if p != nil {
		return &domain.ValidationError{
			Msg: fmt.Sprintf("el código de barras %s ya pertenece al SKU %s", barcode, p.SKU),
		}
	}
	if v, err := uc.variantRepo.GetByBarcode(tenantID, barcode); err != nil {
		return err
	} else if v != nil && (self == nil || v.ID != self.ID) {
		return &domain.ValidationError{
			Msg: fmt.Sprintf("el código de barras %s ya pertenece a la variante %s", barcode, v.SKU),
		}
	}
	return nil
}

func (uc *CatalogImportUseCase) finalizeCatalog(batch *entity.ImportBatch) error {
	now := time.Now()
	if batch.ErrorCount > 0 {
		batch.Status = entity.BatchStatusPartial
	} else {
		batch.Status = entity.BatchStatusCompleted
	}
	batch.CompletedAt = &now
	batch.UpdatedAt = now
	if err := uc.batchRepo.Update(batch); err != nil {
		return err
	}
	return uc.logRepo.Create(&entity.ImportLog{
		ID:          uuid.New().String(),
		TenantID:    batch.TenantID,
		Key:         idempotencyKey(batch.TenantID, batch.ContentHash),
		ContentHash: batch.ContentHash,
		BatchID:     batch.ID,
		CreatedAt:   now,
	})
}

func (uc *CatalogImportUseCase) failCatalogBatch(batch *entity.ImportBatch, cause error) {
	now := time.Now()
	batch.Status = entity.BatchStatusError
	batch.Errors = append(batch.Errors, cause.Error())
	batch.CompletedAt = &now
	batch.UpdatedAt = now
	if err := uc.batchRepo.Update(batch); err != nil {
		uc.log.Error().Err(err).Str("batch_id", batch.ID).Msg("importer: no se pudo marcar el batch ERROR")
	}
}

func (uc *CatalogImportUseCase) recordRowError(batch *entity.ImportBatch, line int, cause error) {
	batch.ErrorCount++
	batch.Errors = append(batch.Errors, fmt.Sprintf("fila %d: %v", line, cause))
}

// variantAxis primer atributo attr_* de la fila, prefiriendo los ejes usuales.
func variantAxis(attrs map[string]string) (name, value string) {
	preferred := []struct {
		canonical string
		keys      []string
	}{
		{"Cor", []string{"Cor", "cor", "color", "Color"}},
		{"Tamanho", []string{"Tamanho", "tamanho", "Talle", "talle", "size", "Size"}},
		{"Medida", []string{"Medida", "medida"}},
	}
	for _, p := range preferred {
		for _, k := range p.keys {
			if v, ok := attrs[k]; ok {
				return p.canonical, v
			}
		}
	}
	for k, v := range attrs {
		return k, v
	}
	return "", ""
}

func marshalAttributes(attrs map[string]string) json.RawMessage {
	if len(attrs) == 0 {
		return nil
	}
	raw, _ := json.Marshal(attrs)
	return raw
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
