// Package staging implementa la cola de curaduría: ítems importados que no
// alcanzaron los criterios de auto-commit esperan aquí la decisión del
// operador, que los vincula al catálogo o da de alta productos nuevos.
package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/nfe"
	"github.com/stockpro/importer-api/internal/domain/repository"
	"github.com/stockpro/importer-api/pkg/logger"
)

// Tipos de resolución de una aprobación.
const (
	ResolutionLinkProduct    = "LINK_PRODUCT"    // vincular a producto SIMPLE existente
	ResolutionLinkVariant    = "LINK_VARIANT"    // vincular a variante existente
	ResolutionCreateSimple   = "CREATE_SIMPLE"   // alta de producto SIMPLE
	ResolutionCreateVariable = "CREATE_VARIABLE" // alta de padre VARIABLE + primera variante
	ResolutionAddVariant     = "ADD_VARIANT"     // nueva variante de un VARIABLE existente
)

// Resolution decisión del operador sobre un ítem staged. Los campos de alta
// (SKU, Name, ...) son opcionales: vacíos toman el valor sugerido por el matcher.
type Resolution struct {
	Kind           string
	ProductID      string // target de LINK_PRODUCT, o padre de ADD_VARIANT
	VariantID      string // target de LINK_VARIANT
	SKU            string
	Name           string
	Barcode        string
	UOM            string
	CategoryName   string
	BrandName      string
	AttributeName  string
	AttributeValue string
	SalePrice      *decimal.Decimal
}

// BulkResult resumen de una operación masiva: las fallas por ítem se acumulan
// sin abortar el resto.
type BulkResult struct {
	Processed int
	Succeeded int
	Failed    int
	Errors    []string
}

// UseCase operaciones de la cola de curaduría.
type UseCase struct {
	txRunner   TxRunner
	stagedRepo repository.StagedItemRepository
	ledger     *ledger.UseCase
	log        *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner TxRunner, stagedRepo repository.StagedItemRepository, ledgerUC *ledger.UseCase, log *logger.Logger) *UseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &UseCase{txRunner: txRunner, stagedRepo: stagedRepo, ledger: ledgerUC, log: log}
}

// BuildStagedItem arma el ítem de curaduría a partir de la fila cruda y el
// resultado del matcher.
func BuildStagedItem(
	tenantID string,
	item nfe.Item,
	res *matcher.Result,
	batchID, supplierID *string,
	source, sourceDoc string,
) *entity.StagedItem {
	now := time.Now()
	staged := &entity.StagedItem{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		BatchID:        batchID,
		SupplierID:     supplierID,
		SupplierSKU:    item.SupplierSKU,
		RawDescription: item.Description,
		NCM:            item.NCM,
		CFOP:           item.CFOP,
		UOM:            nfe.NormalizeUOM(item.UOM),
		Quantity:       item.Quantity,
		UnitCost:       item.UnitCost,
		Status:         entity.StagedStatusPending,
		Source:         source,
		SourceDoc:      sourceDoc,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if item.HasValidBarcode() {
		staged.Barcode = item.Barcode
	}
	if res != nil {
		staged.SuggestedName = res.Suggestion.Name
		staged.SuggestedCategory = res.Suggestion.Category
		staged.SuggestedBrand = res.Suggestion.Brand
		staged.MatchLevel = res.Level
		staged.MatchType = res.Suggestion.MatchType
		staged.Confidence = res.Confidence
		staged.MatchLogic = res.Logic
		staged.NeedsReview = res.NeedsReview
		if len(res.Suggestion.Attributes) > 0 {
			raw, _ := json.Marshal(res.Suggestion.Attributes)
			staged.SuggestedAttributes = raw
		}
		if res.Product != nil {
			id := res.Product.ID
			staged.CandidateProductID = &id
		}
		if res.Variant != nil {
			id := res.Variant.ID
			staged.CandidateVariantID = &id
		}
		if staged.CandidateProductID == nil && res.Suggestion.MatchedProductID != "" {
			id := res.Suggestion.MatchedProductID
			staged.CandidateProductID = &id
		}
	}
	if staged.SuggestedName == "" {
		staged.SuggestedName = item.Description
	}
	return staged
}

// Create persiste un ítem en la cola.
func (uc *UseCase) Create(it *entity.StagedItem) error {
	return uc.stagedRepo.Create(it)
}

// ListPending lista los ítems pendientes del tenant.
func (uc *UseCase) ListPending(tenantID string, limit, offset int) ([]*entity.StagedItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return uc.stagedRepo.ListPending(tenantID, limit, offset)
}

// Approve resuelve un ítem: crea o vincula el target, registra exactamente un
// movimiento IN (omitido si la cantidad es cero, caso de borradores vía API),
// aprende el mapeo de proveedor y marca el ítem DONE. Re-aprobar un ítem DONE
// devuelve ErrConflict: protección idempotente contra commits duplicados.
func (uc *UseCase) Approve(ctx context.Context, tenantID, userID, stagedID string, res Resolution) (*entity.StagedItem, error) {
	var approved *entity.StagedItem
	err := uc.txRunner.RunStaging(ctx, func(
		stagedRepo repository.StagedItemRepository,
		productRepo repository.ProductRepository,
		variantRepo repository.VariantRepository,
		movRepo repository.StockMovementRepository,
		mappingRepo repository.SupplierMappingRepository,
		categoryRepo repository.CategoryRepository,
		brandRepo repository.BrandRepository,
	) error {
		staged, err := stagedRepo.GetForUpdate(stagedID)
		if err != nil {
			return err
		}
		if staged == nil {
			return domain.ErrNotFound
		}
		if staged.TenantID != tenantID {
			return domain.ErrForbidden
		}
		if staged.Status == entity.StagedStatusDone || staged.Status == entity.StagedStatusRejected {
			return domain.ErrConflict
		}

		product, variant, err := uc.resolveTarget(staged, res, productRepo, variantRepo, categoryRepo, brandRepo)
		if err != nil {
			return err
		}

		// Exactamente un movimiento por aprobación; cantidad cero no mueve stock.
		if staged.Quantity.GreaterThan(decimal.Zero) {
			unitCost := staged.UnitCost
			input := ledger.MovementInput{
				TenantID:  tenantID,
				UserID:    userID,
				Type:      entity.MovementTypeIN,
				Quantity:  staged.Quantity,
				UnitCost:  &unitCost,
				Source:    staged.Source,
				SourceDoc: staged.SourceDoc,
				BatchID:   staged.BatchID,
				Note:      fmt.Sprintf("aprobación de ítem staged %s", staged.ID),
			}
			if variant != nil {
				input.VariantID = variant.ID
			} else {
				input.ProductID = product.ID
			}
			if _, err := uc.ledger.CommitInTx(movRepo, productRepo, variantRepo, input); err != nil {
				return err
			}
		}

		if staged.SupplierID != nil && staged.SupplierSKU != "" {
			if err := learnMapping(mappingRepo, staged, product, variant); err != nil {
				return err
			}
		}

		now := time.Now()
		staged.Status = entity.StagedStatusDone
		staged.ErrorMsg = ""
		staged.ResolvedBy = userID
		staged.ResolvedAt = &now
		staged.UpdatedAt = now
		if product != nil {
			id := product.ID
			staged.ResolvedProductID = &id
		}
		if variant != nil {
			id := variant.ID
			staged.ResolvedVariantID = &id
		}
		if err := stagedRepo.Update(staged); err != nil {
			return err
		}
		approved = staged
		return nil
	})
	if err != nil {
		uc.markError(stagedID, tenantID, err)
		return nil, err
	}
	return approved, nil
}

// Reject marca el ítem REJECTED sin efectos sobre el libro.
func (uc *UseCase) Reject(ctx context.Context, tenantID, userID, stagedID string) error {
	return uc.txRunner.RunStaging(ctx, func(
		stagedRepo repository.StagedItemRepository,
		_ repository.ProductRepository,
		_ repository.VariantRepository,
		_ repository.StockMovementRepository,
		_ repository.SupplierMappingRepository,
		_ repository.CategoryRepository,
		_ repository.BrandRepository,
	) error {
		staged, err := stagedRepo.GetForUpdate(stagedID)
		if err != nil {
			return err
		}
		if staged == nil {
			return domain.ErrNotFound
		}
		if staged.TenantID != tenantID {
			return domain.ErrForbidden
		}
		if staged.Status == entity.StagedStatusDone {
			return domain.ErrConflict
		}
		now := time.Now()
		staged.Status = entity.StagedStatusRejected
		staged.ResolvedBy = userID
		staged.ResolvedAt = &now
		staged.UpdatedAt = now
		return stagedRepo.Update(staged)
	})
}

// BulkApprove aprueba ítem por ítem con la resolución automática derivada de la
// sugerencia de cada uno. La falla de un ítem se registra y no aborta el resto.
func (uc *UseCase) BulkApprove(ctx context.Context, tenantID, userID string, ids []string) BulkResult {
	result := BulkResult{}
	for _, id := range ids {
		result.Processed++
		staged, err := uc.stagedRepo.GetByID(id)
		if err != nil || staged == nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no encontrado", id))
			continue
		}
		if _, err := uc.Approve(ctx, tenantID, userID, id, autoResolution(staged)); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Succeeded++
	}
	return result
}

// BulkReject rechaza ítem por ítem con aislamiento de fallas.
func (uc *UseCase) BulkReject(ctx context.Context, tenantID, userID string, ids []string) BulkResult {
	result := BulkResult{}
	for _, id := range ids {
		result.Processed++
		if err := uc.Reject(ctx, tenantID, userID, id); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		result.Succeeded++
	}
	return result
}

// DraftInput alta de borrador vía API: entra a la cola con cantidad cero y
// confianza media; al aprobarse no genera movimiento.
type DraftInput struct {
	Description string
	SKU         string
	Barcode     string
	UOM         string
}

// StageDraft crea un borrador en la cola desde la API.
func (uc *UseCase) StageDraft(tenantID, userID string, input DraftInput) (*entity.StagedItem, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, &domain.ValidationError{Msg: "la descripción es obligatoria"}
	}
	now := time.Now()
	staged := &entity.StagedItem{
		ID:             uuid.New().String(),
		TenantID:       tenantID,
		SupplierSKU:    input.SKU,
		Barcode:        input.Barcode,
		RawDescription: input.Description,
		UOM:            nfe.NormalizeUOM(input.UOM),
		Quantity:       decimal.Zero,
		UnitCost:       decimal.Zero,
		SuggestedName:  input.Description,
		MatchLevel:     matcher.LevelNone,
		Confidence:     decimal.NewFromFloat(0.5),
		Status:         entity.StagedStatusPending,
		Source:         entity.MovementSourceAPI,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.stagedRepo.Create(staged); err != nil {
		return nil, err
	}
	return staged, nil
}

// resolveTarget materializa la resolución: carga targets existentes o crea los
// registros nuevos que la decisión pida.
func (uc *UseCase) resolveTarget(
	staged *entity.StagedItem,
	res Resolution,
	productRepo repository.ProductRepository,
	variantRepo repository.VariantRepository,
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
) (*entity.Product, *entity.ProductVariant, error) {
	switch res.Kind {
	case ResolutionLinkProduct:
		p, err := productRepo.GetByID(res.ProductID)
		if err != nil {
			return nil, nil, err
		}
		if p == nil || p.TenantID != staged.TenantID {
			return nil, nil, domain.ErrNotFound
		}
		if p.Type == entity.ProductTypeVariable {
			return nil, nil, &domain.ValidationError{Msg: "un producto VARIABLE no recibe stock directo: vincule una variante"}
		}
		return p, nil, nil

	case ResolutionLinkVariant:
		v, err := variantRepo.GetByID(res.VariantID)
		if err != nil {
			return nil, nil, err
		}
		if v == nil || v.TenantID != staged.TenantID {
			return nil, nil, domain.ErrNotFound
		}
		p, err := productRepo.GetByID(v.ProductID)
		if err != nil {
			return nil, nil, err
		}
		return p, v, nil

	case ResolutionCreateSimple:
		p, err := uc.createProduct(staged, res, entity.ProductTypeSimple, productRepo, categoryRepo, brandRepo)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil

	case ResolutionCreateVariable:
		p, err := uc.createProduct(staged, res, entity.ProductTypeVariable, productRepo, categoryRepo, brandRepo)
		if err != nil {
			return nil, nil, err
		}
		v, err := uc.createVariant(staged, res, p, variantRepo)
		if err != nil {
			return nil, nil, err
		}
		return p, v, nil

	case ResolutionAddVariant:
		parentID := res.ProductID
		if parentID == "" && staged.CandidateProductID != nil {
			parentID = *staged.CandidateProductID
		}
		p, err := productRepo.GetByID(parentID)
		if err != nil {
			return nil, nil, err
		}
		if p == nil || p.TenantID != staged.TenantID {
			return nil, nil, domain.ErrNotFound
		}
		if p.Type != entity.ProductTypeVariable {
			return nil, nil, &domain.ValidationError{Msg: "el padre de una variante debe ser VARIABLE"}
		}
		v, err := uc.createVariant(staged, res, p, variantRepo)
		if err != nil {
			return nil, nil, err
		}
		return p, v, nil

	default:
		return nil, nil, &domain.ValidationError{Msg: fmt.Sprintf("resolución desconocida: %s", res.Kind)}
	}
}

func (uc *UseCase) createProduct(
	staged *entity.StagedItem,
	res Resolution,
	productType string,
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	brandRepo repository.BrandRepository,
) (*entity.Product, error) {
	now := time.Now()
	p := &entity.Product{
		ID:          uuid.New().String(),
		TenantID:    staged.TenantID,
		SKU:         firstNonEmpty(res.SKU, staged.SupplierSKU, "IMP-"+uuid.New().String()[:8]),
		Name:        firstNonEmpty(res.Name, staged.SuggestedName, staged.RawDescription),
		Description: staged.RawDescription,
		Type:        productType,
		UOM:         firstNonEmpty(res.UOM, staged.UOM, "UN"),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// El código de barras vive en la variante cuando el producto es VARIABLE.
	if productType == entity.ProductTypeSimple {
		p.Barcode = firstNonEmpty(res.Barcode, staged.Barcode)
	}
	if res.SalePrice != nil {
		p.SalePrice = *res.SalePrice
	}

	if name := firstNonEmpty(res.CategoryName, staged.SuggestedCategory); name != "" {
		cat, err := categoryRepo.GetOrCreate(staged.TenantID, name)
		if err != nil {
			return nil, err
		}
		p.CategoryID = &cat.ID
	}
	if name := firstNonEmpty(res.BrandName, staged.SuggestedBrand); name != "" {
		brand, err := brandRepo.GetOrCreate(staged.TenantID, name)
		if err != nil {
			return nil, err
		}
		p.BrandID = &brand.ID
	}
	if len(staged.SuggestedAttributes) > 0 && productType == entity.ProductTypeSimple {
		p.Attributes = staged.SuggestedAttributes
	}

	if err := productRepo.Create(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *UseCase) createVariant(
	staged *entity.StagedItem,
	res Resolution,
	parent *entity.Product,
	variantRepo repository.VariantRepository,
) (*entity.ProductVariant, error) {
	attrName, attrValue := res.AttributeName, res.AttributeValue
	if attrName == "" || attrValue == "" {
		attrName, attrValue = firstSuggestedAttribute(staged)
	}
	if attrName == "" || attrValue == "" {
		return nil, &domain.ValidationError{Msg: "la variante requiere atributo y valor (ej. Cor: Azul)"}
	}

	now := time.Now()
	v := &entity.ProductVariant{
		ID:             uuid.New().String(),
		TenantID:       staged.TenantID,
		ProductID:      parent.ID,
		SKU:            firstNonEmpty(res.SKU, staged.SupplierSKU, parent.SKU+"-"+uuid.New().String()[:4]),
		Name:           fmt.Sprintf("%s - %s", parent.Name, attrValue),
		Barcode:        firstNonEmpty(res.Barcode, staged.Barcode),
		AttributeName:  attrName,
		AttributeValue: attrValue,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if res.SalePrice != nil {
		v.SalePrice = *res.SalePrice
	}
	if err := variantRepo.Create(v); err != nil {
		return nil, err
	}
	return v, nil
}

// learnMapping registra o refresca el mapeo proveedor→catálogo que alimentará
// el nivel SILVER de las próximas importaciones.
func learnMapping(
	mappingRepo repository.SupplierMappingRepository,
	staged *entity.StagedItem,
	product *entity.Product,
	variant *entity.ProductVariant,
) error {
	now := time.Now()
	m := &entity.SupplierMapping{
		ID:                  uuid.New().String(),
		TenantID:            staged.TenantID,
		SupplierID:          *staged.SupplierID,
		SupplierSKU:         staged.SupplierSKU,
		SupplierBarcode:     staged.Barcode,
		SupplierDescription: truncate(staged.RawDescription, 120),
		UOM:                 staged.UOM,
		ConversionFactor:    decimal.NewFromInt(1),
		LastCost:            staged.UnitCost,
		TotalPurchased:      staged.Quantity,
		LastPurchaseAt:      &now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if product != nil {
		id := product.ID
		m.ProductID = &id
	}
	if variant != nil {
		id := variant.ID
		m.VariantID = &id
	}
	return mappingRepo.Upsert(m)
}

// markError persiste el estado ERROR fuera de la transacción fallida (mejor esfuerzo).
func (uc *UseCase) markError(stagedID, tenantID string, cause error) {
	staged, err := uc.stagedRepo.GetByID(stagedID)
	if err != nil || staged == nil || staged.TenantID != tenantID {
		return
	}
	if staged.Status != entity.StagedStatusPending && staged.Status != entity.StagedStatusProcessing {
		return
	}
	staged.Status = entity.StagedStatusError
	staged.ErrorMsg = cause.Error()
	staged.UpdatedAt = time.Now()
	if err := uc.stagedRepo.Update(staged); err != nil {
		uc.log.Warn().Err(err).Str("staged_id", stagedID).Msg("staging: no se pudo marcar ERROR")
	}
}

// autoResolution deriva la resolución implícita de la sugerencia del ítem, para
// aprobaciones masivas sin decisión explícita del operador.
func autoResolution(staged *entity.StagedItem) Resolution {
	switch {
	case staged.CandidateVariantID != nil:
		return Resolution{Kind: ResolutionLinkVariant, VariantID: *staged.CandidateVariantID}
	case staged.CandidateProductID != nil && staged.MatchType == "VARIANT_OF":
		return Resolution{Kind: ResolutionAddVariant, ProductID: *staged.CandidateProductID}
	case staged.CandidateProductID != nil:
		return Resolution{Kind: ResolutionLinkProduct, ProductID: *staged.CandidateProductID}
	case staged.MatchType == "VARIANT_OF":
		return Resolution{Kind: ResolutionCreateVariable}
	default:
		return Resolution{Kind: ResolutionCreateSimple}
	}
}

func firstSuggestedAttribute(staged *entity.StagedItem) (string, string) {
	if len(staged.SuggestedAttributes) == 0 {
		return "", ""
	}
	var attrs map[string]string
	if err := json.Unmarshal(staged.SuggestedAttributes, &attrs); err != nil {
		return "", ""
	}
	// Preferir los ejes de variación clásicos antes que medidas sueltas.
	for _, key := range []string{"Cor", "Tamanho"} {
		if v, ok := attrs[key]; ok && v != "" {
			return key, v
		}
	}
	for k, v := range attrs {
		if v != "" {
			return k, v
		}
	}
	return "", ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
