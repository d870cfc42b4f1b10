package ledger_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stockpro/importer-api/internal/application/ledger"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/entity"
	"github.com/stockpro/importer-api/internal/domain/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes: un TxRunner que ejecuta la función directamente sobre repos en memoria.
// El bloqueo de fila real se prueba contra PostgreSQL; acá interesa la aritmética
// y las validaciones.
// ──────────────────────────────────────────────────────────────────────────────

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
func (m *memMovements) ListByBatch(string, string) ([]*entity.StockMovement, error) {
	return m.created, nil
}
func (m *memMovements) DeleteByBatch(string, string) error { return nil }

type memProducts struct {
	byID map[string]*entity.Product
}

func (m *memProducts) Create(p *entity.Product) error { m.byID[p.ID] = p; return nil }
func (m *memProducts) GetByID(id string) (*entity.Product, error) {
	return m.byID[id], nil
}
func (m *memProducts) GetByTenantAndSKU(string, string) (*entity.Product, error)  { return nil, nil }
func (m *memProducts) GetByBarcode(string, string) (*entity.Product, error)       { return nil, nil }
func (m *memProducts) FindVariableByName(string, string) (*entity.Product, error) { return nil, nil }
func (m *memProducts) ListVariableByTenant(string, int) ([]*entity.Product, error) {
	return nil, nil
}
func (m *memProducts) ListActive(string, int) ([]*entity.Product, error) { return nil, nil }
func (m *memProducts) Update(*entity.Product) error                      { return nil }
func (m *memProducts) GetForUpdate(id string) (*entity.Product, error)   { return m.byID[id], nil }
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
func (m *memVariants) GetByBarcode(string, string) (*entity.ProductVariant, error) { return nil, nil }
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

type memTx struct {
	movements *memMovements
	products  *memProducts
	variants  *memVariants
}

func (t *memTx) Run(ctx context.Context, fn func(
	repository.StockMovementRepository,
	repository.ProductRepository,
	repository.VariantRepository,
) error) error {
	return fn(t.movements, t.products, t.variants)
}

// ──────────────────────────────────────────────────────────────────────────────
// Armado
// ──────────────────────────────────────────────────────────────────────────────

const (
	tenant = "tenant-1"
	user   = "user-1"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

type harness struct {
	uc *ledger.UseCase
	tx *memTx
}

func newHarness() *harness {
	tx := &memTx{
		movements: &memMovements{},
		products:  &memProducts{byID: map[string]*entity.Product{}},
		variants:  &memVariants{byID: map[string]*entity.ProductVariant{}},
	}
	return &harness{uc: ledger.NewUseCase(tx), tx: tx}
}

func (h *harness) product(id string, stock, cost float64) *entity.Product {
	p := &entity.Product{
		ID: id, TenantID: tenant, SKU: "SKU-" + id, Type: entity.ProductTypeSimple,
		CurrentStock: d(stock), AvgUnitCost: d(cost), Active: true,
	}
	h.tx.products.Create(p)
	return p
}

func in(productID string, qty, cost float64) ledger.MovementInput {
	c := d(cost)
	return ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: productID,
		Type: entity.MovementTypeIN, Quantity: d(qty), UnitCost: &c,
		Source: entity.MovementSourceManual,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Entradas (IN)
// ──────────────────────────────────────────────────────────────────────────────

func TestCommit_EntradaRecalculaCostoPromedio(t *testing.T) {
	h := newHarness()
	p := h.product("p1", 10, 5.00)

	mov, err := h.uc.Commit(context.Background(), in("p1", 10, 7.00))
	require.NoError(t, err)

	assert.True(t, d(20).Equal(p.CurrentStock), "stock esperado 20, fue %s", p.CurrentStock)
	assert.True(t, d(6.00).Equal(p.AvgUnitCost), "costo promedio esperado 6.00, fue %s", p.AvgUnitCost)
	assert.True(t, d(10).Equal(mov.Quantity))
	assert.True(t, d(7.00).Equal(mov.UnitCost), "el asiento registra el costo de la entrada")
	assert.True(t, d(70).Equal(mov.TotalCost))
	assert.True(t, d(20).Equal(mov.BalanceAfter))
	require.NotNil(t, mov.ProductID)
	assert.Equal(t, "p1", *mov.ProductID)
}

func TestCommit_EntradaSinCostoConservaPromedio(t *testing.T) {
	h := newHarness()
	p := h.product("p1", 10, 5.00)

	_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: entity.MovementTypeIN, Quantity: d(5),
		Source: entity.MovementSourceManual,
	})
	require.NoError(t, err)

	assert.True(t, d(15).Equal(p.CurrentStock))
	assert.True(t, d(5.00).Equal(p.AvgUnitCost), "sin costo de entrada el promedio no cambia")
}

func TestCommit_EntradaSobreStockNegativoConservaCosto(t *testing.T) {
	h := newHarness()
	p := h.product("p1", -5, 3.00)

	// La entrada no alcanza a volver positivo el stock: el promedio no tiene
	// denominador válido y se conserva el costo anterior.
	_, err := h.uc.Commit(context.Background(), in("p1", 3, 9.00))
	require.NoError(t, err)

	assert.True(t, d(-2).Equal(p.CurrentStock))
	assert.True(t, d(3.00).Equal(p.AvgUnitCost))
}

// ──────────────────────────────────────────────────────────────────────────────
// Salidas (OUT)
// ──────────────────────────────────────────────────────────────────────────────

func TestCommit_SalidaAlCostoPromedioVigente(t *testing.T) {
	h := newHarness()
	p := h.product("p1", 10, 6.00)

	mov, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: entity.MovementTypeOUT, Quantity: d(4),
		Source: entity.MovementSourceManual,
	})
	require.NoError(t, err)

	assert.True(t, d(6).Equal(p.CurrentStock))
	assert.True(t, d(6.00).Equal(p.AvgUnitCost), "la salida no toca el costo promedio")
	assert.True(t, d(-4).Equal(mov.Quantity), "las salidas se asientan con cantidad negativa")
	assert.True(t, d(-24).Equal(mov.TotalCost))
}

func TestCommit_SalidaMayorAlStockRechazada(t *testing.T) {
	h := newHarness()
	h.product("p1", 3, 6.00)

	_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: entity.MovementTypeOUT, Quantity: d(5),
		Source: entity.MovementSourceManual,
	})

	var insufficientErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.True(t, d(3).Equal(insufficientErr.Available), "el error informa la cantidad disponible")
	assert.True(t, d(5).Equal(insufficientErr.Requested))
}

func TestCommit_SalidaConStockNegativoPermitido(t *testing.T) {
	h := newHarness()
	p := h.product("p1", 3, 6.00)

	_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: entity.MovementTypeOUT, Quantity: d(5),
		Source: entity.MovementSourceManual, AllowNegative: true,
	})
	require.NoError(t, err, "con la política AllowNegative la salida debe aceptarse")
	assert.True(t, d(-2).Equal(p.CurrentStock))
}

// ──────────────────────────────────────────────────────────────────────────────
// Ajustes (ADJ)
// ──────────────────────────────────────────────────────────────────────────────

func TestCommit_AjusteFijaStockAbsoluto(t *testing.T) {
	h := newHarness()
	p := h.product("p1", 10, 6.00)

	mov, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: entity.MovementTypeADJ, Quantity: d(25),
		Source: entity.MovementSourceManual,
	})
	require.NoError(t, err)

	assert.True(t, d(25).Equal(p.CurrentStock), "el ajuste fija el stock, no lo suma")
	assert.True(t, d(6.00).Equal(p.AvgUnitCost), "el ajuste no toca el costo promedio")
	assert.True(t, d(25).Equal(mov.BalanceAfter))
}

func TestCommit_AjusteNegativoRechazado(t *testing.T) {
	h := newHarness()
	h.product("p1", 10, 6.00)

	_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: entity.MovementTypeADJ, Quantity: d(-1),
		Source: entity.MovementSourceManual,
	})
	var invalidErr *domain.InvalidMovementError
	assert.ErrorAs(t, err, &invalidErr)
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones de entrada
// ──────────────────────────────────────────────────────────────────────────────

func TestCommit_ExactamenteUnTarget(t *testing.T) {
	h := newHarness()
	var invalidErr *domain.InvalidMovementError

	_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user,
		Type: entity.MovementTypeIN, Quantity: d(1),
	})
	assert.ErrorAs(t, err, &invalidErr, "sin target debe rechazarse")

	_, err = h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1", VariantID: "v1",
		Type: entity.MovementTypeIN, Quantity: d(1),
	})
	assert.ErrorAs(t, err, &invalidErr, "ambos targets a la vez debe rechazarse")
}

func TestCommit_CantidadNoPositivaRechazada(t *testing.T) {
	h := newHarness()
	h.product("p1", 10, 6.00)
	var invalidErr *domain.InvalidMovementError

	for _, tipo := range []string{entity.MovementTypeIN, entity.MovementTypeOUT} {
		_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
			TenantID: tenant, UserID: user, ProductID: "p1",
			Type: tipo, Quantity: decimal.Zero,
		})
		assert.ErrorAs(t, err, &invalidErr, "cantidad cero en %s debe rechazarse", tipo)
	}
}

func TestCommit_TipoDesconocidoRechazado(t *testing.T) {
	h := newHarness()
	var invalidErr *domain.InvalidMovementError
	_, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, ProductID: "p1",
		Type: "TRANSFER", Quantity: d(1),
	})
	assert.ErrorAs(t, err, &invalidErr)
}

func TestCommit_ProductoVariableNoRecibeMovimientos(t *testing.T) {
	h := newHarness()
	parent := &entity.Product{
		ID: "p1", TenantID: tenant, SKU: "PARENT", Type: entity.ProductTypeVariable, Active: true,
	}
	h.tx.products.Create(parent)

	_, err := h.uc.Commit(context.Background(), in("p1", 5, 2.00))
	var invalidErr *domain.InvalidMovementError
	assert.ErrorAs(t, err, &invalidErr,
		"el stock de un producto VARIABLE vive en sus variantes")
}

func TestCommit_TargetDeOtroTenantEsNotFound(t *testing.T) {
	h := newHarness()
	ajeno := &entity.Product{
		ID: "p1", TenantID: "otro-tenant", SKU: "X", Type: entity.ProductTypeSimple, Active: true,
	}
	h.tx.products.Create(ajeno)

	_, err := h.uc.Commit(context.Background(), in("p1", 5, 2.00))
	assert.ErrorIs(t, err, domain.ErrNotFound,
		"un target de otro tenant debe responder como inexistente")
}

// ──────────────────────────────────────────────────────────────────────────────
// Variantes como target
// ──────────────────────────────────────────────────────────────────────────────

func TestCommit_EntradaSobreVariante(t *testing.T) {
	h := newHarness()
	v := &entity.ProductVariant{
		ID: "v1", TenantID: tenant, ProductID: "p1", SKU: "VAR-1",
		CurrentStock: d(2), AvgUnitCost: d(4.00), Active: true,
	}
	h.tx.variants.Create(v)

	c := d(6.00)
	mov, err := h.uc.Commit(context.Background(), ledger.MovementInput{
		TenantID: tenant, UserID: user, VariantID: "v1",
		Type: entity.MovementTypeIN, Quantity: d(2), UnitCost: &c,
		Source: entity.MovementSourceNFE,
	})
	require.NoError(t, err)

	assert.True(t, d(4).Equal(v.CurrentStock))
	assert.True(t, d(5.00).Equal(v.AvgUnitCost), "((2*4)+(2*6))/4 = 5.00")
	require.NotNil(t, mov.VariantID)
	assert.Equal(t, "v1", *mov.VariantID)
	assert.Nil(t, mov.ProductID)
}
