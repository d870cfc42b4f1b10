// Package parser convierte documentos fuente (XML de NF-e, catálogos CSV/XLSX)
// en objetos del dominio. Tolerante por diseño: un campo numérico malformado se
// convierte en cero y no aborta el documento; solo la estructura rota es fatal.
package parser

import (
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain"
	"github.com/stockpro/importer-api/internal/domain/nfe"
)

// Prefijos de namespace a probar, en orden. Las NF-e declaran el namespace de
// portalfiscal como default (sin prefijo); algunos emisores usan el prefijo
// "nfe" y otros omiten el namespace por completo.
var nfePrefixes = []string{"", "nfe:"}

// NfeParser parser del XML de la Nota Fiscal Eletrônica (modelo 55).
type NfeParser struct{}

// NewNfeParser construye el parser.
func NewNfeParser() *NfeParser {
	return &NfeParser{}
}

// Parse extrae los datos de la NF-e. Falla con ParseError si el XML está
// malformado o la estructura infNFe no se encuentra con ningún namespace.
func (p *NfeParser) Parse(content []byte) (*nfe.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, &domain.ParseError{Msg: "XML malformado", Err: err}
	}

	var infNFe *etree.Element
	prefix := ""
	for _, pfx := range nfePrefixes {
		if el := doc.FindElement("//" + pfx + "infNFe"); el != nil {
			infNFe = el
			prefix = pfx
			break
		}
	}
	if infNFe == nil {
		return nil, &domain.ParseError{Msg: "estructura infNFe no encontrada"}
	}

	out := &nfe.Document{
		Key:      strings.TrimPrefix(infNFe.SelectAttrValue("Id", ""), "NFe"),
		Number:   text(infNFe, prefix, "ide/nNF"),
		Series:   text(infNFe, prefix, "ide/serie"),
		IssuedAt: parseEmission(text(infNFe, prefix, "ide/dhEmi")),
	}

	if emit := find(infNFe, prefix, "emit"); emit != nil {
		out.Emitter = nfe.Party{
			CNPJ:              text(emit, prefix, "CNPJ"),
			Name:              text(emit, prefix, "xNome"),
			TradeName:         text(emit, prefix, "xFant"),
			StateRegistration: text(emit, prefix, "IE"),
		}
		if ender := find(emit, prefix, "enderEmit"); ender != nil {
			logr := text(ender, prefix, "xLgr")
			nro := text(ender, prefix, "nro")
			if logr != "" {
				out.Emitter.Address = logr + ", " + nro
			}
			out.Emitter.City = text(ender, prefix, "xMun")
			out.Emitter.State = text(ender, prefix, "UF")
		}
	}

	for _, det := range infNFe.FindElements(prefix + "det") {
		prod := find(det, prefix, "prod")
		if prod == nil {
			continue
		}
		lineNumber, _ := strconv.Atoi(det.SelectAttrValue("nItem", "0"))
		out.Items = append(out.Items, nfe.Item{
			LineNumber:  lineNumber,
			SupplierSKU: text(prod, prefix, "cProd"),
			Barcode:     text(prod, prefix, "cEAN"),
			Description: text(prod, prefix, "xProd"),
			NCM:         text(prod, prefix, "NCM"),
			CFOP:        text(prod, prefix, "CFOP"),
			UOM:         text(prod, prefix, "uCom"),
			Quantity:    dec(prod, prefix, "qCom"),
			UnitCost:    dec(prod, prefix, "vUnCom"),
			Total:       dec(prod, prefix, "vProd"),
		})
	}

	if tot := find(infNFe, prefix, "total/ICMSTot"); tot != nil {
		out.TotalProducts = dec(tot, prefix, "vProd")
		out.TotalInvoice = dec(tot, prefix, "vNF")
	}

	return out, nil
}

// find localiza un descendiente aplicando el prefijo de namespace a cada
// segmento del path (ide/nNF -> nfe:ide/nfe:nNF).
func find(el *etree.Element, prefix, path string) *etree.Element {
	if prefix == "" {
		return el.FindElement(path)
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = prefix + s
	}
	return el.FindElement(strings.Join(segments, "/"))
}

func text(el *etree.Element, prefix, path string) string {
	child := find(el, prefix, path)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

// dec parsea un decimal con fallback a cero: un número malformado no aborta el
// documento, solo anula ese campo.
func dec(el *etree.Element, prefix, path string) decimal.Decimal {
	raw := text(el, prefix, path)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseEmission parsea dhEmi (ISO 8601 con zona) tomando los primeros 19
// caracteres; si falla usa la hora actual, igual que con los numéricos.
func parseEmission(raw string) time.Time {
	if len(raw) >= 19 {
		if t, err := time.Parse("2006-01-02T15:04:05", raw[:19]); err == nil {
			return t
		}
	}
	return time.Now()
}
