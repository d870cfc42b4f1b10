// Package importer orquesta la importación de documentos: NF-e XML y catálogos
// CSV/XLSX. Dos fases por batch: matching concurrente por ítem (la IA corre
// aquí, antes de cualquier lock) y commits secuenciales al libro.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/application/parser"
	"github.com/stockpro/importer-api/internal/application/staging"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/nfe"
	"github.com/stockpro/importer-api/internal/domain/repository"
	"github.com/stockpro/importer-api/pkg/brdoc"
	"github.com/stockpro/importer-api/pkg/logger"
)

// Options parámetros de procesamiento del importador.
type Options struct {
	Workers        int           // workers concurrentes de la fase de matching
	MaxRetries     int           // reintentos por fila ante fallas transitorias
	InitialBackoff time.Duration // backoff inicial (exponencial)
}

func (o Options) normalized() Options {
	if o.Workers < 1 {
		o.Workers = 4
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 3
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = time.Second
	}
	return o
}

// NfeImportUseCase importación de NF-e con deduplicación de documento,
// alta automática de proveedor y matching por niveles.
type NfeImportUseCase struct {
	parser       *parser.NfeParser
	matcher      *matcher.Matcher
	ledger       *ledger.UseCase
	batchRepo    repository.ImportBatchRepository
	logRepo      repository.ImportLogRepository
	supplierRepo repository.SupplierRepository
	mappingRepo  repository.SupplierMappingRepository
	stagedRepo   repository.StagedItemRepository
	settingsRepo repository.TenantSettingsRepository
	opts         Options
	log          *logger.Logger
}

// NewNfeImportUseCase construye el caso de uso.
func NewNfeImportUseCase(
	nfeParser *parser.NfeParser,
	m *matcher.Matcher,
	ledgerUC *ledger.UseCase,
	batchRepo repository.ImportBatchRepository,
	logRepo repository.ImportLogRepository,
	supplierRepo repository.SupplierRepository,
	mappingRepo repository.SupplierMappingRepository,
	stagedRepo repository.StagedItemRepository,
	settingsRepo repository.TenantSettingsRepository,
	opts Options,
	log *logger.Logger,
) *NfeImportUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &NfeImportUseCase{
		parser:       nfeParser,
		matcher:      m,
		ledger:       ledgerUC,
		batchRepo:    batchRepo,
		logRepo:      logRepo,
		supplierRepo: supplierRepo,
		mappingRepo:  mappingRepo,
		stagedRepo:   stagedRepo,
		settingsRepo: settingsRepo,
		opts:         opts.normalized(),
		log:          log,
	}
}

// Import procesa una NF-e completa. Reenviar un archivo ya importado con éxito
// es un no-op que corta con DuplicateImportError y la fecha original.
func (uc *NfeImportUseCase) Import(ctx context.Context, tenantID, userID, fileName string, xmlContent []byte) (*entity.ImportBatch, error) {
	contentHash := hashContent(xmlContent)
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
		Source:      entity.BatchSourceNFE,
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

	doc, err := uc.parser.Parse(xmlContent)
	if err != nil {
		uc.failBatch(batch, err)
		return batch, err
	}

	// Dedup por clave de acceso: la misma NF-e re-exportada con bytes distintos
	// (espaciado, encoding) no debe importarse dos veces.
	if doc.Key != "" {
		prior, err := uc.batchRepo.FindByNfeKey(tenantID, doc.Key)
		if err != nil {
			return nil, err
		}
		if prior != nil && prior.ID != batch.ID && prior.Status != entity.BatchStatusError {
			dup := &domain.DuplicateImportError{DocKey: doc.Key, ImportedAt: prior.CreatedAt}
			uc.failBatch(batch, dup)
			return batch, dup
		}
		key := doc.Key
		batch.NfeKey = &key
	}

	supplier, err := uc.ensureSupplier(tenantID, doc.Emitter)
	if err != nil {
		uc.failBatch(batch, err)
		return batch, err
	}
	if supplier != nil {
		id := supplier.ID
		batch.SupplierID = &id
	}

	batch.TotalRows = len(doc.Items)
	batch.Status = entity.BatchStatusProcessing
	batch.UpdatedAt = time.Now()
	if err := uc.batchRepo.Update(batch); err != nil {
		return nil, err
	}

	if err := uc.processItems(ctx, batch, doc, supplier, 0); err != nil {
		return batch, err
	}
	return batch, nil
}

// Resume continúa un batch interrumpido desde ProcessedRows, sin reprocesar
// filas ya confirmadas. El contenido debe ser el mismo archivo (se verifica el
// hash).
func (uc *NfeImportUseCase) Resume(ctx context.Context, tenantID, batchID string, xmlContent []byte) (*entity.ImportBatch, error) {
	batch, err := uc.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, domain.ErrNotFound
	}
	if batch.TenantID != tenantID {
		return nil, domain.ErrForbidden
	}
	if batch.Status != entity.BatchStatusProcessing && batch.Status != entity.BatchStatusPending {
		return nil, domain.ErrConflict
	}
	if hashContent(xmlContent) != batch.ContentHash {
		return nil, &domain.ValidationError{Msg: "el contenido no corresponde al batch a reanudar"}
	}

	doc, err := uc.parser.Parse(xmlContent)
	if err != nil {
		uc.failBatch(batch, err)
		return batch, err
	}
	var supplier *entity.Supplier
	if batch.SupplierID != nil {
		supplier, err = uc.supplierRepo.GetByID(*batch.SupplierID)
		if err != nil {
			return nil, err
		}
	}
	if err := uc.processItems(ctx, batch, doc, supplier, batch.ProcessedRows); err != nil {
		return batch, err
	}
	return batch, nil
}

// processItems fase 1 (matching concurrente) + fase 2 (commits secuenciales).
func (uc *NfeImportUseCase) processItems(
	ctx context.Context,
	batch *entity.ImportBatch,
	doc *nfe.Document,
	supplier *entity.Supplier,
	startRow int,
) error {
	settings, err := uc.settingsRepo.GetOrDefault(batch.TenantID)
	if err != nil {
		return err
	}

	items := doc.Items
	if startRow > len(items) {
		startRow = len(items)
	}
	pending := items[startRow:]

	// Fase 1: matching concurrente. Las llamadas a IA ocurren acá, nunca con
	// locks de fila tomados.
	type matchOutcome struct {
		result *matcher.Result
		err    error
	}
	outcomes := make([]matchOutcome, len(pending))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < uc.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := uc.matcher.Match(ctx, pending[i], batch.TenantID, supplier, settings)
				outcomes[i] = matchOutcome{result: res, err: err}
			}
		}()
	}
	for i := range pending {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Fase 2: commits secuenciales fila a fila; ProcessedRows avanza tras cada
	// fila y es el punto de reanudación.
	for i, item := range pending {
		if err := ctx.Err(); err != nil {
			// Cancelación: el batch queda PROCESSING y reanudable.
			batch.UpdatedAt = time.Now()
			_ = uc.batchRepo.Update(batch)
			return err
		}

		outcome := outcomes[i]
		if outcome.err != nil {
			uc.recordRowError(batch, item.LineNumber, outcome.err)
		} else {
			uc.commitOrStage(ctx, batch, doc, item, outcome.result, supplier, settings)
		}

		batch.ProcessedRows = startRow + i + 1
		batch.UpdatedAt = time.Now()
		if err := uc.batchRepo.Update(batch); err != nil {
			return err
		}
	}

	return uc.finalize(batch)
}

// commitOrStage aplica la política de auto-commit: confirma al libro o stagea.
func (uc *NfeImportUseCase) commitOrStage(
	ctx context.Context,
	batch *entity.ImportBatch,
	doc *nfe.Document,
	item nfe.Item,
	res *matcher.Result,
	supplier *entity.Supplier,
	settings *entity.TenantSettings,
) {
	if staging.AutoCommit(res, settings) {
		if !item.Quantity.GreaterThan(decimal.Zero) {
			uc.recordRowError(batch, item.LineNumber, &domain.ValidationError{
				Msg: fmt.Sprintf("cantidad inválida: %s", item.Quantity.String()),
			})
			return
		}
		if err := uc.commitItem(ctx, batch, doc, item, res, supplier); err != nil {
			uc.recordRowError(batch, item.LineNumber, err)
			return
		}
		batch.SuccessCount++
		return
	}

	var supplierID *string
	if supplier != nil {
		id := supplier.ID
		supplierID = &id
	}
	staged := staging.BuildStagedItem(batch.TenantID, item, res, &batch.ID, supplierID, entity.MovementSourceNFE, doc.Key)
	if err := uc.stagedRepo.Create(staged); err != nil {
		uc.recordRowError(batch, item.LineNumber, err)
		return
	}
	batch.PendingCount++
}

// commitItem movimiento IN + aprendizaje del mapeo, con reintentos ante fallas
// transitorias (contención de locks).
func (uc *NfeImportUseCase) commitItem(
	ctx context.Context,
	batch *entity.ImportBatch,
	doc *nfe.Document,
	item nfe.Item,
	res *matcher.Result,
	supplier *entity.Supplier,
) error {
	unitCost := item.UnitCost
	input := ledger.MovementInput{
		TenantID:  batch.TenantID,
		UserID:    batch.CreatedBy,
		Type:      entity.MovementTypeIN,
		Quantity:  item.Quantity,
		UnitCost:  &unitCost,
		Source:    entity.MovementSourceNFE,
		SourceDoc: doc.Key,
		BatchID:   &batch.ID,
		Note:      fmt.Sprintf("NF-e %s ítem %d", doc.Number, item.LineNumber),
	}
	if res.Variant != nil {
		input.VariantID = res.Variant.ID
	} else {
		input.ProductID = res.Product.ID
	}

	if err := retryDo(ctx, uc.opts.MaxRetries, uc.opts.InitialBackoff, func() error {
		_, err := uc.ledger.Commit(ctx, input)
		return err
	}); err != nil {
		return err
	}

	if supplier != nil && item.SupplierSKU != "" {
		now := time.Now()
		m := &entity.SupplierMapping{
			ID:                  uuid.New().String(),
			TenantID:            batch.TenantID,
			SupplierID:          supplier.ID,
			SupplierSKU:         item.SupplierSKU,
			SupplierDescription: truncate(item.Description, 120),
			UOM:                 nfe.NormalizeUOM(item.UOM),
			ConversionFactor:    decimal.NewFromInt(1),
			LastCost:            item.UnitCost,
			TotalPurchased:      item.Quantity,
			LastPurchaseAt:      &now,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if res.Variant != nil {
			id := res.Variant.ID
			m.VariantID = &id
		}
		if res.Product != nil {
			id := res.Product.ID
			m.ProductID = &id
		}
		if item.HasValidBarcode() {
			m.SupplierBarcode = item.Barcode
		}
		if err := uc.mappingRepo.Upsert(m); err != nil {
			// El movimiento ya está asentado: perder el aprendizaje no es fatal.
			uc.log.Warn().Err(err).Str("sku", item.SupplierSKU).Msg("importer: no se pudo guardar el mapeo de proveedor")
		}
	}
	return nil
}

// ensureSupplier busca el proveedor por CNPJ normalizado y lo crea si no existe.
func (uc *NfeImportUseCase) ensureSupplier(tenantID string, emitter nfe.Party) (*entity.Supplier, error) {
	cnpj := brdoc.NormalizeCNPJ(emitter.CNPJ)
	if cnpj == "" {
		return nil, nil
	}
	existing, err := uc.supplierRepo.GetByCNPJ(tenantID, cnpj)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	if !brdoc.IsValidCNPJ(cnpj) {
		uc.log.Warn().Str("cnpj", cnpj).Msg("importer: CNPJ con dígito verificador inválido, se crea igual")
	}

	now := time.Now()
	supplier := &entity.Supplier{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		CNPJ:              cnpj,
		Name:              emitter.Name,
		TradeName:         emitter.TradeName,
		StateRegistration: emitter.StateRegistration,
		Address:           emitter.Address,
		City:              emitter.City,
		State:             emitter.State,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.supplierRepo.Create(supplier); err != nil {
		// Carrera con otra importación concurrente del mismo proveedor.
		if err == domain.ErrDuplicate {
			return uc.supplierRepo.GetByCNPJ(tenantID, cnpj)
		}
		return nil, err
	}
	return supplier, nil
}

// finalize estado final y registro de idempotencia.
func (uc *NfeImportUseCase) finalize(batch *entity.ImportBatch) error {
	now := time.Now()
	switch {
	case batch.PendingCount > 0:
		batch.Status = entity.BatchStatusPendingReview
		batch.Errors = append(batch.Errors, fmt.Sprintf("%d ítems esperando asociación manual", batch.PendingCount))
	case batch.ErrorCount > 0:
		batch.Status = entity.BatchStatusPartial
	default:
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

func (uc *NfeImportUseCase) failBatch(batch *entity.ImportBatch, cause error) {
	now := time.Now()
	batch.Status = entity.BatchStatusError
	batch.Errors = append(batch.Errors, cause.Error())
	batch.CompletedAt = &now
	batch.UpdatedAt = now
	if err := uc.batchRepo.Update(batch); err != nil {
		uc.log.Error().Err(err).Str("batch_id", batch.ID).Msg("importer: no se pudo marcar el batch ERROR")
	}
}

func (uc *NfeImportUseCase) recordRowError(batch *entity.ImportBatch, line int, cause error) {
	batch.ErrorCount++
	batch.Errors = append(batch.Errors, fmt.Sprintf("ítem %d: %v", line, cause))
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func idempotencyKey(tenantID, contentHash string) string {
	return fmt.Sprintf("import_%s_%s", tenantID, contentHash)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
