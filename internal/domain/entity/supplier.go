package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier proveedor identificado por CNPJ (normalizado a solo dígitos).
// Se crea automáticamente a partir del emisor de la NF-e si no existe.
type Supplier struct {
	ID                string
	TenantID          string
	CNPJ              string // solo dígitos
	Name              string // razón social (xNome)
	TradeName         string // nombre fantasía (xFant)
	StateRegistration string // inscripción estadual (IE)
	Address           string
	City              string
	State             string
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DisplayName prefiere el nombre fantasía cuando existe.
func (s *Supplier) DisplayName() string {
	if s.TradeName != "" {
		return s.TradeName
	}
	return s.Name
}

// SupplierMapping asociación aprendida (tenant, proveedor, SKU del proveedor) →
// producto/variante del catálogo. Es la memoria del matcher: una vez resuelto un
// ítem, las próximas importaciones del mismo proveedor lo reconocen directo.
type SupplierMapping struct {
	ID                  string
	TenantID            string
	SupplierID          string
	SupplierSKU         string // cProd de la NF-e
	SupplierBarcode     string // cEAN si era válido
	SupplierDescription string // xProd truncado
	ProductID           *string
	VariantID           *string
	UOM                 string
	ConversionFactor    decimal.Decimal // unidades internas por unidad del proveedor
	LastCost            decimal.Decimal
	TotalPurchased      decimal.Decimal
	LastPurchaseAt      *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
