// Package nfe modela la Nota Fiscal Eletrônica brasileña (modelo 55) como
// objetos de valor del dominio, independientes del parser.
package nfe

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Document datos extraídos de una NF-e.
type Document struct {
	Key      string // clave de acceso (44 dígitos, atributo Id sin el prefijo "NFe")
	Number   string // nNF
	Series   string // serie
	IssuedAt time.Time

	Emitter Party

	Items         []Item
	TotalProducts decimal.Decimal // ICMSTot/vProd
	TotalInvoice  decimal.Decimal // ICMSTot/vNF
}

// Party emisor de la NF-e (el proveedor, desde la óptica del importador).
type Party struct {
	CNPJ              string // como viene en el XML; normalizar con brdoc.NormalizeCNPJ
	Name              string // xNome
	TradeName         string // xFant
	StateRegistration string // IE
	Address           string // xLgr, nro
	City              string // xMun
	State             string // UF
}

// Item línea de detalle (det/prod) de la NF-e.
type Item struct {
	LineNumber  int    // atributo nItem
	SupplierSKU string // cProd
	Barcode     string // cEAN
	Description string // xProd
	NCM         string
	CFOP        string
	UOM         string // uCom, sin normalizar
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Total       decimal.Decimal

	// GroupHint metadatos de un pase previo de agrupamiento por IA sobre la
	// factura completa; nil si el ítem no fue pre-etiquetado.
	GroupHint *GroupHint
}

// GroupHint indica que el ítem pertenece a un producto padre con variaciones,
// según el agrupamiento IA de la factura completa.
type GroupHint struct {
	ParentName     string // nombre del producto VARIABLE
	AttributeName  string // eje de variación; "Cor" si la IA no lo especifica
	AttributeValue string
}

// placeholderBarcodes valores que los emisores usan cuando el producto no tiene
// GTIN real. Nunca deben participar del match por código de barras.
var placeholderBarcodes = map[string]struct{}{
	"":              {},
	"SEM GTIN":      {},
	"SEM EAN":       {},
	"0000000000000": {},
	"0":             {},
	"NULL":          {},
}

// HasValidBarcode reporta si el cEAN es un GTIN utilizable para match directo.
func (i Item) HasValidBarcode() bool {
	ean := strings.ToUpper(strings.TrimSpace(i.Barcode))
	if _, bad := placeholderBarcodes[ean]; bad {
		return false
	}
	return len(ean) >= 8
}
