package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del libro de inventario.
const (
	MovementTypeIN  = "IN"  // entrada: suma stock y recalcula costo promedio
	MovementTypeOUT = "OUT" // salida: resta stock al costo promedio vigente
	MovementTypeADJ = "ADJ" // ajuste absoluto: fija el stock al valor dado
)

// Orígenes de movimiento.
const (
	MovementSourceNFE    = "NFE"
	MovementSourceCSV    = "CSV"
	MovementSourceManual = "MANUAL"
	MovementSourceAPI    = "API"
)

// StockMovement asiento inmutable del libro de inventario. Nunca se actualiza;
// las correcciones se expresan con movimientos nuevos. BalanceAfter registra el
// stock resultante del target al momento del asiento.
type StockMovement struct {
	ID           string
	TenantID     string
	ProductID    *string // exactamente uno de ProductID/VariantID está presente
	VariantID    *string
	Type         string // IN | OUT | ADJ
	Quantity     decimal.Decimal
	UnitCost     decimal.Decimal
	TotalCost    decimal.Decimal
	BalanceAfter decimal.Decimal
	Source       string // NFE | CSV | MANUAL | API
	SourceDoc    string // clave NF-e, nombre de archivo o referencia libre
	BatchID      *string
	Note         string
	CreatedBy    string
	CreatedAt    time.Time
}
