package importer_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stockpro/importer-api/internal/application/classifier"
	"github.com/stockpro/importer-api/internal/application/importer"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/application/parser"
	"github.com/stockpro/importer-api/internal/application/staging"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ──────────────────────────────────────────────────────────────────────────────

type memBatches struct {
	byID    map[string]*entity.ImportBatch
	created int
}

func (m *memBatches) Create(b *entity.ImportBatch) error {
	m.byID[b.ID] = b
	m.created++
	return nil
}
func (m *memBatches) GetByID(id string) (*entity.ImportBatch, error) { return m.byID[id], nil }
func (m *memBatches) Update(b *entity.ImportBatch) error             { m.byID[b.ID] = b; return nil }
func (m *memBatches) FindByNfeKey(tenantID, nfeKey string) (*entity.ImportBatch, error) {
	for _, b := range m.byID {
		if b.TenantID == tenantID && b.NfeKey != nil && *b.NfeKey == nfeKey {
			return b, nil
		}
	}
	return nil, nil
}
func (m *memBatches) ListByTenant(string, int, int) ([]*entity.ImportBatch, error) {
	return nil, nil
}
func (m *memBatches) Delete(id string) error { delete(m.byID, id); return nil }

type memLogs struct {
	byKey map[string]*entity.ImportLog
}

func (m *memLogs) Create(l *entity.ImportLog) error { m.byKey[l.Key] = l; return nil }
func (m *memLogs) FindByKey(key string) (*entity.ImportLog, error) {
	return m.byKey[key], nil
}
func (m *memLogs) DeleteByKey(key string) error { delete(m.byKey, key); return nil }

type memSuppliers struct {
	byID map[string]*entity.Supplier
}

func (m *memSuppliers) Create(s *entity.Supplier) error { m.byID[s.ID] = s; return nil }
func (m *memSuppliers) GetByID(id string) (*entity.Supplier, error) {
	return m.byID[id], nil
}
func (m *memSuppliers) GetByCNPJ(tenantID, cnpj string) (*entity.Supplier, error) {
	for _, s := range m.byID {
		if s.TenantID == tenantID && s.CNPJ == cnpj {
			return s, nil
		}
	}
	return nil, nil
}
func (m *memSuppliers) Update(*entity.Supplier) error { return nil }

type memMappings struct {
	items []*entity.SupplierMapping
}

func (m *memMappings) Find(tenantID, supplierID, supplierSKU string) (*entity.SupplierMapping, error) {
	for _, mp := range m.items {
		if mp.TenantID == tenantID && mp.SupplierID == supplierID && mp.SupplierSKU == supplierSKU {
			return mp, nil
		}
	}
	return nil, nil
}
func (m *memMappings) Upsert(mp *entity.SupplierMapping) error {
	for i, prev := range m.items {
		if prev.TenantID == mp.TenantID && prev.SupplierID == mp.SupplierID && prev.SupplierSKU == mp.SupplierSKU {
			m.items[i] = mp
			return nil
		}
	}
	m.items = append(m.items, mp)
	return nil
}
func (m *memMappings) ListBySupplier(string, string, int, int) ([]*entity.SupplierMapping, error) {
	return nil, nil
}

type memProducts struct {
	byID map[string]*entity.Product
}

func (m *memProducts) Create(p *entity.Product) error { m.byID[p.ID] = p; return nil }
func (m *memProducts) GetByID(id string) (*entity.Product, error) {
	return m.byID[id], nil
}
func (m *memProducts) GetByTenantAndSKU(tenantID, sku string) (*entity.Product, error) {
	for _, p := range m.byID {
		if p.TenantID == tenantID && p.SKU == sku {
			return p, nil
		}
	}
	return nil, nil
}
func (m *memProducts) GetByBarcode(tenantID, barcode string) (*entity.Product, error) {
	for _, p := range m.byID {
		if p.TenantID == tenantID && p.Barcode == barcode && p.Active {
			return p, nil
		}
	}
	return nil, nil
}
func (m *memProducts) FindVariableByName(string, string) (*entity.Product, error)  { return nil, nil }
func (m *memProducts) ListVariableByTenant(string, int) ([]*entity.Product, error) { return nil, nil }
func (m *memProducts) ListActive(string, int) ([]*entity.Product, error)           { return nil, nil }
func (m *memProducts) Update(*entity.Product) error                                { return nil }
func (m *memProducts) GetForUpdate(id string) (*entity.Product, error)             { return m.byID[id], nil }
func (m *memProducts) UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error {
	p := m.byID[id]
	p.CurrentStock = stock
	p.AvgUnitCost = avgCost
	return nil
}

type memVariants struct {
	byID map[string]*entity.ProductVariant
}

func (m *memVariants) Create(v *entity.ProductVariant) error { m.byID[v.ID] = v; return nil }
func (m *memVariants) GetByID(id string) (*entity.ProductVariant, error) {
	return m.byID[id], nil
}
func (m *memVariants) GetByTenantAndSKU(string, string) (*entity.ProductVariant, error) {
	return nil, nil
}
func (m *memVariants) GetByBarcode(tenantID, barcode string) (*entity.ProductVariant, error) {
	for _, v := range m.byID {
		if v.TenantID == tenantID && v.Barcode == barcode && v.Active {
			return v, nil
		}
	}
	return nil, nil
}
func (m *memVariants) FindByParentAndAttribute(string, string, string) (*entity.ProductVariant, error) {
	return nil, nil
}
func (m *memVariants) ListByProduct(string) ([]*entity.ProductVariant, error) { return nil, nil }
func (m *memVariants) Update(*entity.ProductVariant) error                    { return nil }
func (m *memVariants) GetForUpdate(id string) (*entity.ProductVariant, error) {
	return m.byID[id], nil
}
func (m *memVariants) UpdateStockAndCost(id string, stock, avgCost decimal.Decimal) error {
	v := m.byID[id]
	v.CurrentStock = stock
	v.AvgUnitCost = avgCost
	return nil
}

type memMovements struct {
	created []*entity.StockMovement
}

func (m *memMovements) Create(mov *entity.StockMovement) error {
	m.created = append(m.created, mov)
	return nil
}
func (m *memMovements) GetByID(string) (*entity.StockMovement, error) { return nil, nil }
func (m *memMovements) ListByTarget(string, *string, *string, int, int) ([]*entity.StockMovement, error) {
	return nil, nil
}
func (m *memMovements) ListByBatch(string, string) ([]*entity.StockMovement, error) { return nil, nil }
func (m *memMovements) DeleteByBatch(string, string) error                          { return nil }

type memStaged struct {
	byID map[string]*entity.StagedItem
}

func (m *memStaged) Create(it *entity.StagedItem) error { m.byID[it.ID] = it; return nil }
func (m *memStaged) GetByID(id string) (*entity.StagedItem, error) {
	return m.byID[id], nil
}
func (m *memStaged) GetForUpdate(id string) (*entity.StagedItem, error) { return m.byID[id], nil }
func (m *memStaged) Update(it *entity.StagedItem) error                 { m.byID[it.ID] = it; return nil }
func (m *memStaged) ListPending(string, int, int) ([]*entity.StagedItem, error) {
	return nil, nil
}
func (m *memStaged) ListByBatch(string, string) ([]*entity.StagedItem, error) { return nil, nil }
func (m *memStaged) CountPending(string) (int, error)                         { return 0, nil }
func (m *memStaged) DeleteByBatch(string, string) error                       { return nil }

type memSettings struct {
	settings *entity.TenantSettings
}

func (m *memSettings) GetOrDefault(tenantID string) (*entity.TenantSettings, error) {
	if m.settings != nil {
		return m.settings, nil
	}
	return entity.DefaultSettings(tenantID), nil
}
func (m *memSettings) Save(s *entity.TenantSettings) error { m.settings = s; return nil }

type memTaxonomy struct{}

func (memTaxonomy) GetOrCreate(tenantID, name string) (*entity.Category, error) {
	return &entity.Category{ID: "cat-" + name, TenantID: tenantID, Name: name}, nil
}
func (memTaxonomy) ListNames(string, int) ([]string, error) { return nil, nil }

type memBrands struct{}

func (memBrands) GetOrCreate(tenantID, name string) (*entity.Brand, error) {
	return &entity.Brand{ID: "brand-" + name, TenantID: tenantID, Name: name}, nil
}
func (memBrands) ListNames(string, int) ([]string, error) { return nil, nil }

type ledgerTx struct {
	movements *memMovements
	products  *memProducts
	variants  *memVariants
}

func (t *ledgerTx) Run(ctx context.Context, fn func(
	repository.StockMovementRepository,
	repository.ProductRepository,
	repository.VariantRepository,
) error) error {
	return fn(t.movements, t.products, t.variants)
}

type stagingTx struct {
	staged    *memStaged
	products  *memProducts
	variants  *memVariants
	movements *memMovements
	mappings  *memMappings
}

func (t *stagingTx) RunStaging(ctx context.Context, fn func(
	repository.StagedItemRepository,
	repository.ProductRepository,
	repository.VariantRepository,
	repository.StockMovementRepository,
	repository.SupplierMappingRepository,
	repository.CategoryRepository,
	repository.BrandRepository,
) error) error {
	return fn(t.staged, t.products, t.variants, t.movements, t.mappings, memTaxonomy{}, memBrands{})
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado
// ──────────────────────────────────────────────────────────────────────────────

const (
	tenant  = "tenant-1"
	user    = "user-1"
	nfeKey  = "35240111222333000181550010000012341000012349"
	nfeKey2 = "35240111222333000181550010000056781000056789"
	goldEAN = "7893791143468"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

type world struct {
	uc        *importer.NfeImportUseCase
	stagingUC *staging.UseCase
	batches   *memBatches
	logs      *memLogs
	suppliers *memSuppliers
	mappings  *memMappings
	products  *memProducts
	variants  *memVariants
	movements *memMovements
	staged    *memStaged
}

func newWorld() *world {
	w := &world{
		batches:   &memBatches{byID: map[string]*entity.ImportBatch{}},
		logs:      &memLogs{byKey: map[string]*entity.ImportLog{}},
		suppliers: &memSuppliers{byID: map[string]*entity.Supplier{}},
		mappings:  &memMappings{},
		products:  &memProducts{byID: map[string]*entity.Product{}},
		variants:  &memVariants{byID: map[string]*entity.ProductVariant{}},
		movements: &memMovements{},
		staged:    &memStaged{byID: map[string]*entity.StagedItem{}},
	}

	cls := classifier.New(classifier.DefaultKnowledgeBase(), nil)
	m := matcher.New(w.products, w.variants, w.mappings, cls, nil, nil)
	ledgerUC := ledger.NewUseCase(&ledgerTx{movements: w.movements, products: w.products, variants: w.variants})

	w.uc = importer.NewNfeImportUseCase(
		parser.NewNfeParser(), m, ledgerUC,
		w.batches, w.logs, w.suppliers, w.mappings, w.staged,
		&memSettings{},
		importer.Options{Workers: 2, MaxRetries: 1, InitialBackoff: time.Millisecond},
		nil,
	)
	w.stagingUC = staging.NewUseCase(
		&stagingTx{staged: w.staged, products: w.products, variants: w.variants, movements: w.movements, mappings: w.mappings},
		w.staged, ledgerUC, nil,
	)
	return w
}

func (w *world) catalogProduct(id, sku, barcode string) *entity.Product {
	p := &entity.Product{
		ID: id, TenantID: tenant, SKU: sku, Name: "Feltro Santa Fe Azul",
		Barcode: barcode, Type: entity.ProductTypeSimple, UOM: "UN", Active: true,
	}
	w.products.Create(p)
	return p
}

// nfeXML NF-e mínima de un solo ítem, con emisor de CNPJ válido.
func nfeXML(key, cProd, cEAN, xProd, qty, unitCost string) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe">
  <NFe>
    <infNFe Id="NFe%s">
      <ide><nNF>1234</nNF><serie>1</serie><dhEmi>2024-01-15T10:30:00-03:00</dhEmi></ide>
      <emit>
        <CNPJ>11222333000181</CNPJ>
        <xNome>Tecidos Santa Fe LTDA</xNome>
      </emit>
      <det nItem="1">
        <prod>
          <cProd>%s</cProd>
          <cEAN>%s</cEAN>
          <xProd>%s</xProd>
          <NCM>56021000</NCM>
          <CFOP>5102</CFOP>
          <uCom>UN</uCom>
          <qCom>%s</qCom>
          <vUnCom>%s</vUnCom>
        </prod>
      </det>
    </infNFe>
  </NFe>
</nfeProc>`, key, cProd, cEAN, xProd, qty, unitCost))
}

// ──────────────────────────────────────────────────────────────────────────────
// Importación con EAN conocido
// ──────────────────────────────────────────────────────────────────────────────

func TestImportNfe_EANConocidoCommitDirecto(t *testing.T) {
	w := newWorld()
	p := w.catalogProduct("p-gold", "FLT-AZ", goldEAN)

	batch, err := w.uc.Import(context.Background(), tenant, user, "nota.xml",
		nfeXML(nfeKey, "PROV-01", goldEAN, "FELTRO SANTA FE AZUL", "5", "8.50"))
	require.NoError(t, err)

	assert.Equal(t, entity.BatchStatusCompleted, batch.Status)
	assert.Equal(t, 1, batch.SuccessCount)
	assert.Equal(t, 1, batch.ProcessedRows)
	assert.Zero(t, batch.ErrorCount)
	assert.Zero(t, batch.PendingCount)

	// El stock entra directo al libro, sin pasar por curaduría.
	assert.True(t, d(5).Equal(p.CurrentStock))
	assert.True(t, d(8.50).Equal(p.AvgUnitCost))
	require.Len(t, w.movements.created, 1)
	assert.Equal(t, entity.MovementTypeIN, w.movements.created[0].Type)
	assert.Equal(t, entity.MovementSourceNFE, w.movements.created[0].Source)
	assert.Empty(t, w.staged.byID)

	// El proveedor se da de alta desde el emisor y el mapeo queda aprendido.
	require.Len(t, w.suppliers.byID, 1)
	for _, s := range w.suppliers.byID {
		assert.Equal(t, "11222333000181", s.CNPJ)
		assert.Equal(t, "Tecidos Santa Fe LTDA", s.Name)
	}
	require.Len(t, w.mappings.items, 1)
	require.NotNil(t, w.mappings.items[0].ProductID)
	assert.Equal(t, "p-gold", *w.mappings.items[0].ProductID)
	assert.Equal(t, "PROV-01", w.mappings.items[0].SupplierSKU)
}

// ──────────────────────────────────────────────────────────────────────────────
// Idempotencia del documento
// ──────────────────────────────────────────────────────────────────────────────

func TestImportNfe_MismoArchivoDosVecesEsNoOp(t *testing.T) {
	w := newWorld()
	w.catalogProduct("p-gold", "FLT-AZ", goldEAN)
	content := nfeXML(nfeKey, "PROV-01", goldEAN, "FELTRO SANTA FE AZUL", "5", "8.50")

	_, err := w.uc.Import(context.Background(), tenant, user, "nota.xml", content)
	require.NoError(t, err)
	batchesAfterFirst := w.batches.created
	movementsAfterFirst := len(w.movements.created)

	_, err = w.uc.Import(context.Background(), tenant, user, "nota.xml", content)

	var dup *domain.DuplicateImportError
	require.ErrorAs(t, err, &dup, "el mismo contenido reenviado corta con el error tipado")
	assert.False(t, dup.ImportedAt.IsZero(), "el error lleva la fecha de la importación original")

	assert.Equal(t, batchesAfterFirst, w.batches.created, "el reenvío no crea batch")
	assert.Len(t, w.movements.created, movementsAfterFirst, "el reenvío no escribe al libro")
	assert.Empty(t, w.staged.byID)
}

func TestImportNfe_MismaClaveConBytesDistintos(t *testing.T) {
	// La misma NF-e re-exportada con otro espaciado cambia el hash pero no la
	// clave de acceso: el dedup por clave la detiene igual.
	w := newWorld()
	w.catalogProduct("p-gold", "FLT-AZ", goldEAN)
	original := nfeXML(nfeKey, "PROV-01", goldEAN, "FELTRO SANTA FE AZUL", "5", "8.50")
	reexported := []byte(strings.ReplaceAll(string(original), "  <NFe>", "    <NFe>"))

	_, err := w.uc.Import(context.Background(), tenant, user, "nota.xml", original)
	require.NoError(t, err)

	batch, err := w.uc.Import(context.Background(), tenant, user, "nota-v2.xml", reexported)
	var dup *domain.DuplicateImportError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, nfeKey, dup.DocKey)
	assert.Equal(t, entity.BatchStatusError, batch.Status)
	assert.Len(t, w.movements.created, 1, "el segundo intento no duplica el stock")
}

// ──────────────────────────────────────────────────────────────────────────────
// Ítem desconocido: curaduría y aprobación
// ──────────────────────────────────────────────────────────────────────────────

func TestImportNfe_SKUDesconocidoQuedaStagedYSeAprueba(t *testing.T) {
	w := newWorld()

	batch, err := w.uc.Import(context.Background(), tenant, user, "nota.xml",
		nfeXML(nfeKey2, "TES-08", "SEM GTIN", "TESOURA DE COSTURA 8 POL", "3", "12.00"))
	require.NoError(t, err)

	// Sin match vinculante el modo HYBRID por defecto stagea el ítem.
	assert.Equal(t, entity.BatchStatusPendingReview, batch.Status)
	assert.Equal(t, 1, batch.PendingCount)
	assert.Zero(t, batch.SuccessCount)
	assert.Empty(t, w.movements.created, "nada entra al libro hasta la aprobación")

	require.Len(t, w.staged.byID, 1)
	var staged *entity.StagedItem
	for _, it := range w.staged.byID {
		staged = it
	}
	assert.Equal(t, entity.StagedStatusPending, staged.Status)
	require.NotNil(t, staged.BatchID)
	assert.Equal(t, batch.ID, *staged.BatchID)
	assert.Equal(t, "TES-08", staged.SupplierSKU)
	require.NotNil(t, staged.SupplierID, "el ítem staged recuerda al proveedor para aprender el mapeo")

	// El operador lo aprueba como alta simple: recién ahí se mueve el stock.
	approved, err := w.stagingUC.Approve(context.Background(), tenant, user, staged.ID,
		staging.Resolution{Kind: staging.ResolutionCreateSimple})
	require.NoError(t, err)

	assert.Equal(t, entity.StagedStatusDone, approved.Status)
	require.NotNil(t, approved.ResolvedProductID)
	created, _ := w.products.GetByID(*approved.ResolvedProductID)
	require.NotNil(t, created)
	assert.Equal(t, "TES-08", created.SKU)
	assert.True(t, d(3).Equal(created.CurrentStock))
	assert.True(t, d(12.00).Equal(created.AvgUnitCost))
	require.Len(t, w.movements.created, 1)
	assert.Equal(t, entity.MovementSourceNFE, w.movements.created[0].Source)
	require.Len(t, w.mappings.items, 1, "la aprobación aprende el mapeo de proveedor")
}
