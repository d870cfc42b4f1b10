package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de producto del catálogo.
const (
	ProductTypeSimple   = "SIMPLE"   // producto sin variaciones
	ProductTypeVariable = "VARIABLE" // producto padre; el stock vive en las variantes
)

// Product representa un producto del catálogo del tenant.
// CurrentStock y AvgUnitCost son campos cacheados: solo el motor de movimientos
// los escribe, siempre dentro de la misma transacción que crea el StockMovement.
type Product struct {
	ID           string
	TenantID     string
	SKU          string // único por tenant
	Name         string
	Description  string
	Type         string // SIMPLE | VARIABLE
	Barcode      string // EAN/GTIN; vacío si no aplica
	CategoryID   *string
	BrandID      *string
	UOM          string // unidad de medida normalizada (UN, PC, CX, KG, M, L)
	CurrentStock decimal.Decimal
	AvgUnitCost  decimal.Decimal // costo promedio ponderado
	SalePrice    decimal.Decimal
	MinimumStock decimal.Decimal
	Active       bool
	Attributes   json.RawMessage
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProductVariant variación de un producto VARIABLE sobre un solo eje de atributo
// (Cor: Azul, Tamanho: G). Lleva su propio stock, costo y código de barras.
type ProductVariant struct {
	ID             string
	TenantID       string
	ProductID      string
	SKU            string
	Name           string // nombre de presentación: "Feltro Santa Fe - Azul"
	Barcode        string
	AttributeName  string // eje de variación: Cor, Tamanho, Medida...
	AttributeValue string
	CurrentStock   decimal.Decimal
	AvgUnitCost    decimal.Decimal
	SalePrice      decimal.Decimal
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
