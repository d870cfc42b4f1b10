package matcher_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stockpro/importer-api/internal/application/classifier"
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/nfe"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria de los puertos de persistencia
// ──────────────────────────────────────────────────────────────────────────────

type fakeProducts struct {
	items []*entity.Product
}

func (f *fakeProducts) Create(p *entity.Product) error { f.items = append(f.items, p); return nil }

func (f *fakeProducts) GetByID(id string) (*entity.Product, error) {
	for _, p := range f.items {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) GetByTenantAndSKU(tenantID, sku string) (*entity.Product, error) {
	for _, p := range f.items {
		if p.TenantID == tenantID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) GetByBarcode(tenantID, barcode string) (*entity.Product, error) {
	for _, p := range f.items {
		if p.TenantID == tenantID && p.Barcode == barcode && p.Type == entity.ProductTypeSimple && p.Active {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) FindVariableByName(tenantID, name string) (*entity.Product, error) {
	for _, p := range f.items {
		if p.TenantID == tenantID && p.Type == entity.ProductTypeVariable && p.Active &&
			strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProducts) ListVariableByTenant(tenantID string, limit int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range f.items {
		if p.TenantID == tenantID && p.Type == entity.ProductTypeVariable && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) ListActive(tenantID string, limit int) ([]*entity.Product, error) {
	var out []*entity.Product
	for _, p := range f.items {
		if p.TenantID == tenantID && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) Update(p *entity.Product) error             { return nil }
func (f *fakeProducts) GetForUpdate(id string) (*entity.Product, error) { return f.GetByID(id) }
func (f *fakeProducts) UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error {
	return nil
}

type fakeVariants struct {
	items []*entity.ProductVariant
}

func (f *fakeVariants) Create(v *entity.ProductVariant) error { f.items = append(f.items, v); return nil }

func (f *fakeVariants) GetByID(id string) (*entity.ProductVariant, error) {
	for _, v := range f.items {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVariants) GetByTenantAndSKU(tenantID, sku string) (*entity.ProductVariant, error) {
	for _, v := range f.items {
		if v.TenantID == tenantID && v.SKU == sku {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVariants) GetByBarcode(tenantID, barcode string) (*entity.ProductVariant, error) {
	for _, v := range f.items {
		if v.TenantID == tenantID && v.Barcode == barcode && v.Active {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVariants) FindByParentAndAttribute(productID, attributeName, attributeValue string) (*entity.ProductVariant, error) {
	for _, v := range f.items {
		if v.ProductID == productID && v.Active &&
			strings.EqualFold(v.AttributeName, attributeName) &&
			strings.EqualFold(v.AttributeValue, attributeValue) {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVariants) ListByProduct(productID string) ([]*entity.ProductVariant, error) {
	var out []*entity.ProductVariant
	for _, v := range f.items {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVariants) Update(v *entity.ProductVariant) error { return nil }
func (f *fakeVariants) GetForUpdate(id string) (*entity.ProductVariant, error) {
	return f.GetByID(id)
}
func (f *fakeVariants) UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error {
	return nil
}

type fakeMappings struct {
	items []*entity.SupplierMapping
}

func (f *fakeMappings) Find(tenantID, supplierID, supplierSKU string) (*entity.SupplierMapping, error) {
	for _, m := range f.items {
		if m.TenantID == tenantID && m.SupplierID == supplierID && m.SupplierSKU == supplierSKU {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMappings) Upsert(m *entity.SupplierMapping) error { f.items = append(f.items, m); return nil }

func (f *fakeMappings) ListBySupplier(tenantID, supplierID string, limit, offset int) ([]*entity.SupplierMapping, error) {
	return f.items, nil
}

// stubAI servicio de completado con respuesta fija o error.
type stubAI struct {
	response string
	err      error
	called   bool
}

func (s *stubAI) Name() string { return "stub" }
func (s *stubAI) Complete(ctx context.Context, systemPrompt, userPrompt, schemaHint string) (string, error) {
	s.called = true
	return s.response, s.err
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado
// ──────────────────────────────────────────────────────────────────────────────

const tenant = "tenant-1"

type world struct {
	products *fakeProducts
	variants *fakeVariants
	mappings *fakeMappings
}

func newWorld() *world {
	return &world{products: &fakeProducts{}, variants: &fakeVariants{}, mappings: &fakeMappings{}}
}

func (w *world) matcher(enh *matcher.Enhancer) *matcher.Matcher {
	cls := classifier.New(classifier.DefaultKnowledgeBase(), nil)
	return matcher.New(w.products, w.variants, w.mappings, cls, enh, nil)
}

func simpleProduct(id, sku, name, barcode string) *entity.Product {
	return &entity.Product{
		ID: id, TenantID: tenant, SKU: sku, Name: name, Barcode: barcode,
		Type: entity.ProductTypeSimple, Active: true,
	}
}

func variableProduct(id, sku, name string) *entity.Product {
	return &entity.Product{
		ID: id, TenantID: tenant, SKU: sku, Name: name,
		Type: entity.ProductTypeVariable, Active: true,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Nivel GOLD — código de barras
// ──────────────────────────────────────────────────────────────────────────────

func TestMatch_GoldPorBarcodeDeVariante(t *testing.T) {
	w := newWorld()
	w.products.Create(variableProduct("p1", "FEL-001", "Feltro Santa Fe"))
	w.variants.Create(&entity.ProductVariant{
		ID: "v1", TenantID: tenant, ProductID: "p1", SKU: "FEL-001-AZ",
		Barcode: "7891234567895", AttributeName: "Cor", AttributeValue: "Azul", Active: true,
	})

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Barcode: "7891234567895", Description: "FELTRO AZUL",
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelGold, res.Level)
	assert.Equal(t, matcher.ActionDirect, res.Action)
	require.NotNil(t, res.Variant, "el barcode de variante debe vincular la variante")
	assert.Equal(t, "v1", res.Variant.ID)
	require.NotNil(t, res.Product, "el padre debe venir cargado junto con la variante")
	assert.Equal(t, "p1", res.Product.ID)
	assert.True(t, decimal.NewFromInt(1).Equal(res.Confidence))
}

func TestMatch_GoldPorBarcodeDeProductoSimple(t *testing.T) {
	w := newWorld()
	w.products.Create(simpleProduct("p2", "CAD-010", "Caderno Tilibra", "7899876543210"))

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Barcode: "7899876543210", Description: "CADERNO 96 FLS",
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelGold, res.Level)
	assert.Equal(t, "p2", res.Product.ID)
	assert.Nil(t, res.Variant)
}

func TestMatch_BarcodePlaceholderNoVincula(t *testing.T) {
	w := newWorld()
	// Producto con barcode placeholder registrado por error: jamás debe matchear.
	w.products.Create(simpleProduct("p3", "X-1", "Produto Genérico", "SEM GTIN"))

	for _, ean := range []string{"SEM GTIN", "0000000000000", "0", "", "1234567"} {
		res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
			Barcode: ean, Description: "PRODUTO QUALQUER",
		}, tenant, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, matcher.LevelNone, res.Level,
			"el EAN %q no es un GTIN utilizable y no debe producir match directo", ean)
	}
}

func TestMatch_BarcodeGanaAMapeoContradictorio(t *testing.T) {
	// El GTIN es evidencia física; un mapeo aprendido que apunta a otro producto
	// es evidencia histórica. Ante el conflicto, la jerarquía de niveles decide.
	w := newWorld()
	w.products.Create(simpleProduct("p-gold", "FLT-AZ", "Feltro Azul", "7893791143468"))
	w.products.Create(simpleProduct("p-silver", "FLT-VM", "Feltro Vermelho", ""))
	silverID := "p-silver"
	w.mappings.Upsert(&entity.SupplierMapping{
		TenantID: tenant, SupplierID: "sup-1", SupplierSKU: "PROV-01", ProductID: &silverID,
	})
	supplier := &entity.Supplier{ID: "sup-1", TenantID: tenant}

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		SupplierSKU: "PROV-01", Barcode: "7893791143468", Description: "FELTRO AZUL",
	}, tenant, supplier, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelGold, res.Level)
	assert.Equal(t, "p-gold", res.Product.ID,
		"con barcode válido el mapeo aprendido ni siquiera se consulta")
	assert.True(t, decimal.NewFromInt(1).Equal(res.Confidence))
}

// ──────────────────────────────────────────────────────────────────────────────
// Nivel SILVER — mapeo aprendido
// ──────────────────────────────────────────────────────────────────────────────

func TestMatch_SilverPorMapeoAprendido(t *testing.T) {
	w := newWorld()
	w.products.Create(simpleProduct("p1", "LIN-020", "Linha Corrente 500m", ""))
	productID := "p1"
	w.mappings.Upsert(&entity.SupplierMapping{
		TenantID: tenant, SupplierID: "sup-1", SupplierSKU: "ABC-999", ProductID: &productID,
	})
	supplier := &entity.Supplier{ID: "sup-1", TenantID: tenant}

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		SupplierSKU: "ABC-999", Description: "LINHA P/ COSTURA",
	}, tenant, supplier, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelSilver, res.Level)
	assert.Equal(t, matcher.ActionLearned, res.Action)
	assert.Equal(t, "p1", res.Product.ID)
	assert.True(t, decimal.NewFromFloat(0.95).Equal(res.Confidence))
}

func TestMatch_SinProveedorNoConsultaMapeos(t *testing.T) {
	w := newWorld()
	productID := "p1"
	w.mappings.Upsert(&entity.SupplierMapping{
		TenantID: tenant, SupplierID: "sup-1", SupplierSKU: "ABC-999", ProductID: &productID,
	})

	// Mismo SKU pero sin proveedor (importación de catálogo): el mapeo no aplica.
	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		SupplierSKU: "ABC-999", Description: "LINHA P/ COSTURA",
	}, tenant, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, matcher.LevelNone, res.Level)
}

// ──────────────────────────────────────────────────────────────────────────────
// Nivel SILVER — agrupamiento IA (GroupHint)
// ──────────────────────────────────────────────────────────────────────────────

func TestMatch_GroupHintConPadreYVarianteExistentes(t *testing.T) {
	w := newWorld()
	w.products.Create(variableProduct("p1", "FEL-001", "Feltro Santa Fe"))
	w.variants.Create(&entity.ProductVariant{
		ID: "v1", TenantID: tenant, ProductID: "p1",
		AttributeName: "Cor", AttributeValue: "Azul", Active: true,
	})

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Description: "FELTRO SANTA FE AZUL",
		GroupHint:   &nfe.GroupHint{ParentName: "Feltro Santa Fe", AttributeName: "Cor", AttributeValue: "Azul"},
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelSilver, res.Level)
	assert.Equal(t, matcher.ActionAIGroupMatch, res.Action)
	assert.Equal(t, "p1", res.Product.ID)
	require.NotNil(t, res.Variant)
	assert.Equal(t, "v1", res.Variant.ID)
	assert.False(t, res.NeedsReview, "match exacto de padre no exige revisión")
}

func TestMatch_GroupHintPadrePorSimilitudMarcaRevision(t *testing.T) {
	w := newWorld()
	w.products.Create(variableProduct("p1", "FEL-001", "Feltro Santa Fe"))

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Description: "FELTRO SANTA FE ESPECIAL VERMELHO",
		// 3 de 4 palabras compartidas = 0.75 ≥ umbral por defecto 0.70
		GroupHint: &nfe.GroupHint{ParentName: "Feltro Santa Fé Especial", AttributeValue: "Vermelho"},
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelSilver, res.Level)
	require.NotNil(t, res.Product, "el padre debe resolverse por similitud de nombre")
	assert.Equal(t, "p1", res.Product.ID)
	assert.Nil(t, res.Variant)
	assert.True(t, res.NeedsReview, "un padre resuelto por similitud exige revisión humana")
	assert.Equal(t, "Vermelho", res.Suggestion.Attributes["Cor"])
}

func TestMatch_GroupHintSinPadreEnCatalogo(t *testing.T) {
	w := newWorld()

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Description: "LA COLORIDA ROSA",
		GroupHint:   &nfe.GroupHint{ParentName: "Lã Colorida", AttributeValue: "Rosa"},
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelSilver, res.Level)
	assert.Nil(t, res.Product)
	assert.Nil(t, res.Variant)
	assert.False(t, res.IsMatched())
	assert.Equal(t, "Lã Colorida", res.Suggestion.Name,
		"sin padre en catálogo la sugerencia propone el alta del padre")
	assert.Equal(t, "Rosa", res.Suggestion.Attributes["Cor"],
		"sin eje explícito el atributo por defecto es Cor")
}

func TestMatch_GroupHintSinNombreDegradaALocal(t *testing.T) {
	w := newWorld()
	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Description: "TECIDO OXFORD AZUL",
		GroupHint:   &nfe.GroupHint{AttributeValue: "Azul"},
	}, tenant, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, matcher.LevelNone, res.Level)
	assert.Equal(t, matcher.ActionParsed, res.Action)
}

// ──────────────────────────────────────────────────────────────────────────────
// Nivel BRONZE — SKU interno
// ──────────────────────────────────────────────────────────────────────────────

func TestMatch_BronzePorSkuInterno(t *testing.T) {
	w := newWorld()
	w.products.Create(simpleProduct("p1", "ZIP-15", "Zíper 15cm", ""))

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		SupplierSKU: "ZIP-15", Description: "ZIPER NYLON 15",
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelBronze, res.Level)
	assert.Equal(t, matcher.ActionSKU, res.Action)
	assert.Equal(t, "p1", res.Product.ID)
	assert.True(t, decimal.NewFromFloat(0.70).Equal(res.Confidence),
		"la coincidencia de SKU tiene confianza baja a propósito")
}

func TestMatch_BronzeIgnoraProductoInactivo(t *testing.T) {
	w := newWorld()
	inactive := simpleProduct("p1", "ZIP-15", "Zíper 15cm", "")
	inactive.Active = false
	w.products.Create(inactive)

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		SupplierSKU: "ZIP-15", Description: "ZIPER NYLON 15",
	}, tenant, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, matcher.LevelNone, res.Level)
}

// ──────────────────────────────────────────────────────────────────────────────
// Nivel NONE — análisis local y mejora IA
// ──────────────────────────────────────────────────────────────────────────────

func TestMatch_SinMatchProponeAnalisisLocal(t *testing.T) {
	w := newWorld()

	res, err := w.matcher(nil).Match(context.Background(), nfe.Item{
		Description: "TECIDO TRICOLINE AZUL 1,50M", UOM: "MT",
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.LevelNone, res.Level)
	assert.Equal(t, matcher.ActionParsed, res.Action)
	assert.False(t, res.IsMatched())
	assert.Equal(t, "Tecidos", res.Suggestion.Category)
	assert.Equal(t, "Azul", res.Suggestion.Attributes["Cor"])
	assert.Equal(t, "M", res.Suggestion.UOM, "la unidad comercial debe llegar normalizada")
	assert.Equal(t, classifier.MatchTypeVariantOf, res.Suggestion.MatchType)
}

func TestMatch_IAAdoptadaSoloSiSuperaConfianzaLocal(t *testing.T) {
	w := newWorld()
	ai := &stubAI{response: `{"match_type":"NEW","suggested_name":"Parafuso Sextavado 10mm","confidence":0.8,"logic":"nome técnico padronizado"}`}
	enh := matcher.NewEnhancer(ai, 0, nil)

	res, err := w.matcher(enh).Match(context.Background(), nfe.Item{
		Description: "PRODUTO XYZ 9Q", // análisis local casi nulo (0.30)
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.True(t, ai.called)
	assert.Equal(t, matcher.ActionAISuggestion, res.Action)
	assert.Equal(t, "Parafuso Sextavado 10mm", res.Suggestion.Name)
	assert.True(t, decimal.NewFromFloat(0.8).Equal(res.Confidence))
	assert.Contains(t, res.Logic, "IA:")
}

func TestMatch_IANoSuperadoraSeDescarta(t *testing.T) {
	w := newWorld()
	ai := &stubAI{response: `{"confidence":0.1,"logic":"baixa certeza"}`}
	enh := matcher.NewEnhancer(ai, 0, nil)

	res, err := w.matcher(enh).Match(context.Background(), nfe.Item{
		Description: "TECIDO OXFORD AZUL", // local: 0.55
	}, tenant, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, matcher.ActionParsed, res.Action,
		"una respuesta IA con menor confianza que el análisis local se descarta")
}

func TestMatch_FallaDeIADegradaEnSilencio(t *testing.T) {
	w := newWorld()
	ai := &stubAI{err: errors.New("api caída")}
	enh := matcher.NewEnhancer(ai, 0, nil)

	res, err := w.matcher(enh).Match(context.Background(), nfe.Item{
		Description: "TECIDO OXFORD AZUL",
	}, tenant, nil, nil)
	require.NoError(t, err, "la falla del proveedor IA nunca aborta la importación")
	assert.Equal(t, matcher.ActionParsed, res.Action)
}

func TestMatch_PoliticaDeshabilitaIA(t *testing.T) {
	w := newWorld()
	ai := &stubAI{response: `{"confidence":0.99}`}
	enh := matcher.NewEnhancer(ai, 0, nil)

	settings := entity.DefaultSettings(tenant)
	settings.AIEnabled = false

	res, err := w.matcher(enh).Match(context.Background(), nfe.Item{
		Description: "TECIDO OXFORD AZUL",
	}, tenant, nil, settings)
	require.NoError(t, err)

	assert.False(t, ai.called, "con AIEnabled=false el adaptador IA no debe invocarse")
	assert.Equal(t, matcher.ActionParsed, res.Action)
}
