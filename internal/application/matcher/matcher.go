// Package matcher implementa el motor de deduplicación de productos: la única
// puerta de entrada de ítems importados (NF-e, CSV, alta manual) hacia el
// catálogo. Pipeline por niveles con corte temprano; el orden es una jerarquía
// de confianza deliberada y no debe reordenarse.
package matcher

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/application/classifier"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/nfe"
	"github.com/stockpro/importer-api/internal/domain/repository"
	"github.com/stockpro/importer-api/pkg/logger"
)

var (
	confidenceGold   = decimal.NewFromInt(1)
	confidenceSilver = decimal.NewFromFloat(0.95)
	confidenceBronze = decimal.NewFromFloat(0.70)
)

// Matcher resuelve ítems contra el catálogo del tenant.
type Matcher struct {
	products   repository.ProductRepository
	variants   repository.VariantRepository
	mappings   repository.SupplierMappingRepository
	classifier *classifier.Classifier
	enhancer   *Enhancer // nil si la IA está deshabilitada globalmente
	log        *logger.Logger
}

// New construye el matcher. enhancer puede ser nil.
func New(
	products repository.ProductRepository,
	variants repository.VariantRepository,
	mappings repository.SupplierMappingRepository,
	cls *classifier.Classifier,
	enhancer *Enhancer,
	log *logger.Logger,
) *Matcher {
	if log == nil {
		log = logger.Nop()
	}
	return &Matcher{
		products:   products,
		variants:   variants,
		mappings:   mappings,
		classifier: cls,
		enhancer:   enhancer,
		log:        log,
	}
}

// Match evalúa los niveles en orden fijo:
//
//	1. GOLD   — código de barras válido contra variante o producto SIMPLE activo.
//	2. SILVER — mapeo aprendido (tenant, proveedor, SKU del proveedor).
//	3. SILVER — agrupamiento IA pre-calculado (GroupHint): padre por nombre
//	            exacto y luego difuso, variante por valor de atributo.
//	4. BRONZE — SKU del proveedor coincide con un SKU interno del catálogo.
//	5. NONE   — análisis local (nunca vincula) y, si hay IA disponible y la
//	            política lo permite, un intento de mejora cuya confianza debe
//	            superar a la local para ser adoptado.
//
// Cualquier falla del adaptador IA degrada en silencio al resultado local.
func (m *Matcher) Match(
	ctx context.Context,
	item nfe.Item,
	tenantID string,
	supplier *entity.Supplier,
	settings *entity.TenantSettings,
) (*Result, error) {
	if settings == nil {
		settings = entity.DefaultSettings(tenantID)
	}

	// Nivel 1: código de barras
	if res, err := m.directMatch(item, tenantID); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	// Nivel 2: mapeo aprendido
	if res, err := m.learnedMatch(item, tenantID, supplier); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	// Nivel 3: agrupamiento IA pre-calculado
	if item.GroupHint != nil {
		return m.groupMatch(item, tenantID, settings)
	}

	// Nivel 4: SKU interno
	if res, err := m.skuMatch(item, tenantID); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	// Nivel 5: análisis local + mejora IA opcional
	parsed := m.localParse(item, tenantID)
	if m.enhancer != nil && settings.AIEnabled {
		if enhanced := m.tryEnhance(ctx, item, tenantID, parsed); enhanced != nil {
			return enhanced, nil
		}
	}
	return parsed, nil
}

// directMatch busca por código de barras, variantes primero: un GTIN de
// variante es más específico que el del producto padre.
func (m *Matcher) directMatch(item nfe.Item, tenantID string) (*Result, error) {
	if !item.HasValidBarcode() {
		return nil, nil
	}
	v, err := m.variants.GetByBarcode(tenantID, item.Barcode)
	if err != nil {
		return nil, fmt.Errorf("match directo por variante: %w", err)
	}
	if v != nil {
		p, err := m.products.GetByID(v.ProductID)
		if err != nil {
			return nil, fmt.Errorf("cargar padre de variante: %w", err)
		}
		return &Result{
			Level:      LevelGold,
			Action:     ActionDirect,
			Confidence: confidenceGold,
			Product:    p,
			Variant:    v,
			Logic:      fmt.Sprintf("match exacto por EAN %s (variante %s)", item.Barcode, v.SKU),
		}, nil
	}

	p, err := m.products.GetByBarcode(tenantID, item.Barcode)
	if err != nil {
		return nil, fmt.Errorf("match directo por producto: %w", err)
	}
	if p != nil {
		return &Result{
			Level:      LevelGold,
			Action:     ActionDirect,
			Confidence: confidenceGold,
			Product:    p,
			Logic:      fmt.Sprintf("match exacto por EAN %s (%s)", item.Barcode, p.SKU),
		}, nil
	}
	return nil, nil
}

// learnedMatch reutiliza un mapeo ya resuelto en importaciones anteriores.
func (m *Matcher) learnedMatch(item nfe.Item, tenantID string, supplier *entity.Supplier) (*Result, error) {
	if supplier == nil || item.SupplierSKU == "" {
		return nil, nil
	}
	mapping, err := m.mappings.Find(tenantID, supplier.ID, item.SupplierSKU)
	if err != nil {
		return nil, fmt.Errorf("buscar mapeo de proveedor: %w", err)
	}
	if mapping == nil {
		return nil, nil
	}

	var product *entity.Product
	var variant *entity.ProductVariant
	if mapping.VariantID != nil {
		variant, err = m.variants.GetByID(*mapping.VariantID)
		if err != nil {
			return nil, err
		}
	}
	if mapping.ProductID != nil {
		product, err = m.products.GetByID(*mapping.ProductID)
		if err != nil {
			return nil, err
		}
	}
	if product == nil && variant == nil {
		return nil, nil
	}

	target := ""
	if variant != nil {
		target = variant.Name
	} else {
		target = product.Name
	}
	return &Result{
		Level:      LevelSilver,
		Action:     ActionLearned,
		Confidence: confidenceSilver,
		Product:    product,
		Variant:    variant,
		Logic:      fmt.Sprintf("mapeo histórico: %s → %s", item.SupplierSKU, target),
	}, nil
}

// groupMatch resuelve un GroupHint: padre por nombre exacto y, si falla, difuso
// por proporción de palabras compartidas (umbral configurable por tenant). Un
// match difuso se marca NeedsReview para no auto-commitear agrupamientos
// potencialmente erróneos.
func (m *Matcher) groupMatch(item nfe.Item, tenantID string, settings *entity.TenantSettings) (*Result, error) {
	hint := item.GroupHint
	if hint.ParentName == "" {
		// Agrupamiento sin nombre de padre: degradar al análisis local.
		return m.localParse(item, tenantID), nil
	}
	attrName := hint.AttributeName
	if attrName == "" {
		attrName = "Cor"
	}

	parent, err := m.products.FindVariableByName(tenantID, hint.ParentName)
	if err != nil {
		return nil, fmt.Errorf("buscar padre por nombre: %w", err)
	}
	fuzzy := false
	if parent == nil {
		parent, err = m.fuzzyParent(tenantID, hint.ParentName, settings.NameSimilarityThreshold)
		if err != nil {
			return nil, err
		}
		fuzzy = parent != nil
	}

	var variant *entity.ProductVariant
	if parent != nil {
		variant, err = m.variants.FindByParentAndAttribute(parent.ID, attrName, hint.AttributeValue)
		if err != nil {
			return nil, fmt.Errorf("buscar variante por atributo: %w", err)
		}
	}

	logic := fmt.Sprintf("agrupamiento IA: %s (%s: %s)", hint.ParentName, attrName, hint.AttributeValue)
	switch {
	case variant != nil:
		logic += " | variante existente encontrada"
	case parent != nil && fuzzy:
		logic += fmt.Sprintf(" | padre por similitud de nombre (%s), variación nueva", parent.Name)
	case parent != nil:
		logic += " | padre encontrado, variación nueva"
	default:
		logic += " | requiere alta de padre y variación"
	}

	return &Result{
		Level:      LevelSilver,
		Action:     ActionAIGroupMatch,
		Confidence: confidenceSilver,
		Product:    parent,
		Variant:    variant,
		Logic:      logic,
		Suggestion: Suggestion{
			Name:       hint.ParentName,
			Attributes: map[string]string{attrName: hint.AttributeValue},
			MatchType:  classifier.MatchTypeVariantOf,
			UOM:        nfe.NormalizeUOM(item.UOM),
		},
		NeedsReview: fuzzy,
	}, nil
}

// fuzzyParent mejor candidato VARIABLE cuya similitud de nombre alcance el umbral.
func (m *Matcher) fuzzyParent(tenantID, name string, threshold decimal.Decimal) (*entity.Product, error) {
	candidates, err := m.products.ListVariableByTenant(tenantID, 200)
	if err != nil {
		return nil, fmt.Errorf("listar candidatos para match difuso: %w", err)
	}
	var best *entity.Product
	bestScore := decimal.Zero
	for _, c := range candidates {
		score := nameSimilarity(name, c.Name)
		if score.GreaterThanOrEqual(threshold) && score.GreaterThan(bestScore) {
			best = c
			bestScore = score
		}
	}
	return best, nil
}

// skuMatch último nivel vinculante: el cProd del proveedor coincide con un SKU
// interno. Confianza baja a propósito: SKUs de proveedores distintos chocan.
func (m *Matcher) skuMatch(item nfe.Item, tenantID string) (*Result, error) {
	if item.SupplierSKU == "" {
		return nil, nil
	}
	p, err := m.products.GetByTenantAndSKU(tenantID, item.SupplierSKU)
	if err != nil {
		return nil, fmt.Errorf("match por sku interno: %w", err)
	}
	if p == nil || !p.Active {
		return nil, nil
	}
	return &Result{
		Level:      LevelBronze,
		Action:     ActionSKU,
		Confidence: confidenceBronze,
		Product:    p,
		Logic:      fmt.Sprintf("SKU del proveedor coincide con SKU interno %s", p.SKU),
	}, nil
}

// localParse clasificación heurística: nunca vincula, solo propone.
func (m *Matcher) localParse(item nfe.Item, tenantID string) *Result {
	cls := m.classifier.Classify(item.Description, tenantID)
	return &Result{
		Level:      LevelNone,
		Action:     ActionParsed,
		Confidence: cls.Confidence,
		Logic:      cls.Summary(),
		Suggestion: Suggestion{
			Name:       cls.SuggestedName,
			Brand:      cls.DetectedBrand,
			Category:   cls.DetectedCategory,
			Attributes: cls.Attributes,
			MatchType:  cls.MatchType,
			UOM:        nfe.NormalizeUOM(item.UOM),
		},
	}
}

// tryEnhance pide a la IA una propuesta y la adopta solo si supera la confianza
// local. Devuelve nil ante cualquier falla o respuesta no superadora.
func (m *Matcher) tryEnhance(ctx context.Context, item nfe.Item, tenantID string, parsed *Result) *Result {
	candidates, err := m.products.ListActive(tenantID, 15)
	if err != nil {
		m.log.Warn().Err(err).Msg("matcher: no se pudieron listar candidatos para la IA")
		return nil
	}
	enhanced, err := m.enhancer.Enhance(ctx, item, candidates, parsed)
	if err != nil {
		m.log.Warn().Err(err).Str("sku", item.SupplierSKU).Msg("matcher: mejora IA falló, se usa análisis local")
		return nil
	}
	return enhanced
}
