package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Tipos de fila del catálogo tabular.
const (
	RowTypeSimple   = "SIMPLE"
	RowTypeVariable = "VARIABLE"
	RowTypeVariant  = "VARIANT" // VARIANT:<parentSku> en el archivo
)

// CatalogRow fila normalizada de un catálogo CSV/XLSX. La jerarquía
// producto/variante se expresa plana: una fila VARIANT referencia a su padre
// por SKU vía ParentSKU.
type CatalogRow struct {
	Line         int // número de fila en el archivo (1-based, incluye encabezado)
	SKU          string
	Name         string
	Type         string // SIMPLE | VARIABLE | VARIANT
	ParentSKU    string // solo para VARIANT
	Barcode      string
	CategoryName string
	BrandName    string
	UOM          string
	Stock        *decimal.Decimal // nil = columna ausente o vacía
	Cost         *decimal.Decimal
	SalePrice    *decimal.Decimal
	MinimumStock *decimal.Decimal
	Attributes   map[string]string // columnas attr_*
}

// columnAliases encabezados aceptados por campo (ES/PT/EN, case-insensitive).
var columnAliases = map[string][]string{
	"sku":           {"sku", "codigo", "código", "code"},
	"name":          {"name", "nome", "nombre", "descricao", "descrição", "description"},
	"type":          {"type", "tipo"},
	"barcode":       {"barcode", "ean", "gtin", "codigo_barras", "código_barras"},
	"stock":         {"stock", "estoque", "quantity", "quantidade", "qty"},
	"cost":          {"cost", "custo", "costo"},
	"price":         {"price", "preco", "preço", "precio", "sale_price"},
	"category":      {"category", "categoria"},
	"brand":         {"brand", "marca"},
	"uom":           {"uom", "unidade", "unidad", "unit"},
	"minimum_stock": {"minimum_stock", "estoque_minimo", "stock_minimo", "min_stock"},
}

// CatalogParser parser de catálogos tabulares (CSV y XLSX).
type CatalogParser struct{}

// NewCatalogParser construye el parser.
func NewCatalogParser() *CatalogParser {
	return &CatalogParser{}
}

// ParseCSV lee un catálogo CSV. Falla con ParseError si faltan las columnas
// obligatorias (sku y name) o el CSV es ilegible.
func (p *CatalogParser) ParseCSV(r io.Reader) ([]CatalogRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &domain.ParseError{Msg: "CSV ilegible", Err: err}
	}
	return p.fromRecords(records)
}

// ParseXLSX lee la primera hoja de un XLSX con la misma estructura de columnas
// que el CSV.
func (p *CatalogParser) ParseXLSX(content []byte) ([]CatalogRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, &domain.ParseError{Msg: "XLSX ilegible", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.ParseError{Msg: "XLSX sin hojas"}
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.ParseError{Msg: "leer hoja XLSX", Err: err}
	}
	return p.fromRecords(records)
}

func (p *CatalogParser) fromRecords(records [][]string) ([]CatalogRow, error) {
	if len(records) == 0 {
		return nil, &domain.ParseError{Msg: "archivo vacío"}
	}

	header := records[0]
	fieldCol := map[string]int{} // campo canónico -> índice de columna
	attrCols := map[int]string{} // índice -> nombre de atributo
	for i, h := range header {
		key := normalizeHeader(h)
		if strings.HasPrefix(key, "attr_") && len(key) > len("attr_") {
			attrCols[i] = strings.TrimPrefix(strings.TrimSpace(header[i]), "attr_")
			continue
		}
		for field, aliases := range columnAliases {
			if _, taken := fieldCol[field]; taken {
				continue
			}
			for _, alias := range aliases {
				if key == alias {
					fieldCol[field] = i
					break
				}
			}
		}
	}

	var missing []string
	for _, required := range []string{"sku", "name"} {
		if _, ok := fieldCol[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &domain.ParseError{
			Msg: fmt.Sprintf("columnas obligatorias ausentes: %s", strings.Join(missing, ", ")),
		}
	}

	rows := make([]CatalogRow, 0, len(records)-1)
	for i, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := CatalogRow{
			Line:         i + 2,
			SKU:          cell(record, fieldCol, "sku"),
			Name:         cell(record, fieldCol, "name"),
			Barcode:      cell(record, fieldCol, "barcode"),
			CategoryName: cell(record, fieldCol, "category"),
			BrandName:    cell(record, fieldCol, "brand"),
			UOM:          cell(record, fieldCol, "uom"),
			Stock:        cellDec(record, fieldCol, "stock"),
			Cost:         cellDec(record, fieldCol, "cost"),
			SalePrice:    cellDec(record, fieldCol, "price"),
			MinimumStock: cellDec(record, fieldCol, "minimum_stock"),
			Attributes:   map[string]string{},
		}
		row.Type, row.ParentSKU = parseRowType(cell(record, fieldCol, "type"))
		for col, attrName := range attrCols {
			if col < len(record) && strings.TrimSpace(record[col]) != "" {
				row.Attributes[attrName] = strings.TrimSpace(record[col])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseRowType interpreta la columna type: SIMPLE (default), VARIABLE o
// VARIANT:<parentSku>.
func parseRowType(raw string) (rowType, parentSKU string) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case t == "" || t == RowTypeSimple:
		return RowTypeSimple, ""
	case t == RowTypeVariable:
		return RowTypeVariable, ""
	case strings.HasPrefix(t, RowTypeVariant+":"):
		// El SKU del padre conserva su case original.
		return RowTypeVariant, strings.TrimSpace(raw[len(RowTypeVariant)+1:])
	default:
		return t, ""
	}
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\uFEFF") // BOM de archivos exportados por Excel
	return strings.ToLower(strings.TrimSpace(h))
}

func cell(record []string, cols map[string]int, field string) string {
	i, ok := cols[field]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// cellDec decimal opcional: nil si la celda está vacía o la columna no existe;
// cero si el valor es ilegible (mismo fallback que el parser de NF-e).
func cellDec(record []string, cols map[string]int, field string) *decimal.Decimal {
	raw := cell(record, cols, field)
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		zero := decimal.Zero
		return &zero
	}
	return &d
}

func isEmptyRecord(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
