// Package classifier implementa el análisis local de descripciones de
// productos: detecta marca, categoría, color, talla y medidas sin depender de
// servicios externos. Es una pasada heurística por diccionario, no NLP; los
// falsos negativos son aceptables, los falsos positivos se limitan exigiendo
// coincidencia por palabra completa.
package classifier

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Tipos de match sugeridos por el clasificador.
const (
	MatchTypeNew       = "NEW"
	MatchTypeVariantOf = "VARIANT_OF"
)

// Incrementos de confianza. Base 0.3; tope 0.85 para reservar la banda
// 0.85-1.0 a los niveles de match de mayor confianza.
var (
	confBase      = decimal.NewFromFloat(0.30)
	confBrand     = decimal.NewFromFloat(0.15)
	confCategory  = decimal.NewFromFloat(0.15)
	confColor     = decimal.NewFromFloat(0.10)
	confSize      = decimal.NewFromFloat(0.10)
	confDimension = decimal.NewFromFloat(0.05)
	confCap       = decimal.NewFromFloat(0.85)
)

// TenantDictionaries acceso a los nombres de marcas y categorías ya existentes
// del tenant, para complementar los diccionarios de fábrica. Puede ser nil.
type TenantDictionaries interface {
	BrandNames(tenantID string) []string
	CategoryNames(tenantID string) []string
}

// Classification resultado del análisis de una descripción.
type Classification struct {
	SuggestedName    string
	DetectedBrand    string
	DetectedCategory string
	Attributes       map[string]string
	Confidence       decimal.Decimal
	MatchType        string // NEW | VARIANT_OF
}

// Summary traza legible de lo detectado, para el log del matcher.
func (c Classification) Summary() string {
	parts := []string{"análisis local"}
	if c.DetectedBrand != "" {
		parts = append(parts, "marca: "+c.DetectedBrand)
	}
	if c.DetectedCategory != "" {
		parts = append(parts, "categoría: "+c.DetectedCategory)
	}
	if len(c.Attributes) > 0 {
		attrs := make([]string, 0, len(c.Attributes))
		for k, v := range c.Attributes {
			attrs = append(attrs, fmt.Sprintf("%s: %s", k, v))
		}
		parts = append(parts, "atributos: "+strings.Join(attrs, ", "))
	}
	return strings.Join(parts, " | ")
}

// Classifier analizador de descripciones basado en KnowledgeBase.
type Classifier struct {
	kb    *KnowledgeBase
	dicts TenantDictionaries
}

// New construye el clasificador. dicts puede ser nil (solo diccionarios de fábrica).
func New(kb *KnowledgeBase, dicts TenantDictionaries) *Classifier {
	if kb == nil {
		kb = DefaultKnowledgeBase()
	}
	return &Classifier{kb: kb, dicts: dicts}
}

// Classify analiza una descripción y extrae datos estructurados. La confianza
// es aditiva y nunca supera 0.85. Detectar color o talla sugiere que el ítem es
// una variación de un producto padre (MatchType VARIANT_OF).
func (c *Classifier) Classify(description, tenantID string) Classification {
	result := Classification{
		Attributes: map[string]string{},
		Confidence: decimal.Zero,
		MatchType:  MatchTypeNew,
	}
	if strings.TrimSpace(description) == "" {
		return result
	}

	folded := Fold(strings.ToUpper(strings.TrimSpace(description)))
	result.SuggestedName = c.CleanName(description)
	result.Confidence = confBase

	if brand := c.detectBrand(folded, tenantID); brand != "" {
		result.DetectedBrand = brand
		result.Confidence = result.Confidence.Add(confBrand)
	}
	if cat := c.detectCategory(folded, tenantID); cat != "" {
		result.DetectedCategory = cat
		result.Confidence = result.Confidence.Add(confCategory)
	}
	if color := c.detectColor(folded); color != "" {
		result.Attributes["Cor"] = color
		result.Confidence = result.Confidence.Add(confColor)
		result.MatchType = MatchTypeVariantOf
	}
	if size := c.detectSize(folded); size != "" {
		result.Attributes["Tamanho"] = size
		result.Confidence = result.Confidence.Add(confSize)
		result.MatchType = MatchTypeVariantOf
	}
	for _, dim := range c.kb.Dimensions {
		m := dim.Re.FindStringSubmatch(folded)
		if m == nil {
			continue
		}
		if _, taken := result.Attributes[dim.Attribute]; taken {
			continue
		}
		result.Attributes[dim.Attribute] = m[1] + " " + m[2]
		result.Confidence = result.Confidence.Add(confDimension)
	}

	if result.Confidence.GreaterThan(confCap) {
		result.Confidence = confCap
	}
	return result
}

// CleanName normaliza espacios y capitaliza preservando siglas conocidas.
func (c *Classifier) CleanName(description string) string {
	fields := strings.Fields(description)
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		upper := strings.ToUpper(w)
		switch {
		case contains(c.kb.Acronyms, upper):
			words = append(words, upper)
		case len([]rune(w)) <= 2:
			words = append(words, upper)
		default:
			words = append(words, capitalize(w))
		}
	}
	return strings.Join(words, " ")
}

func (c *Classifier) detectBrand(folded, tenantID string) string {
	for i, re := range c.kb.brandRes {
		if re.MatchString(folded) {
			return titleCase(c.kb.Brands[i])
		}
	}
	if c.dicts != nil && tenantID != "" {
		for _, name := range c.dicts.BrandNames(tenantID) {
			if name != "" && wordRe(name).MatchString(folded) {
				return name
			}
		}
	}
	return ""
}

func (c *Classifier) detectCategory(folded, tenantID string) string {
	for i, entry := range c.kb.CategoryKeywords {
		for _, re := range c.kb.categoryRes[i] {
			if re.MatchString(folded) {
				return entry.Name
			}
		}
	}
	if c.dicts != nil && tenantID != "" {
		for _, name := range c.dicts.CategoryNames(tenantID) {
			if name != "" && wordRe(name).MatchString(folded) {
				return name
			}
		}
	}
	return ""
}

func (c *Classifier) detectColor(folded string) string {
	for i, entry := range c.kb.Colors {
		for _, re := range c.kb.colorRes[i] {
			if re.MatchString(folded) {
				return entry.Canonical
			}
		}
	}
	return ""
}

func (c *Classifier) detectSize(folded string) string {
	for i, entry := range c.kb.Sizes {
		for _, re := range c.kb.sizeRes[i] {
			if re.MatchString(folded) {
				return entry.Canonical
			}
		}
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func capitalize(w string) string {
	runes := []rune(strings.ToLower(w))
	if len(runes) == 0 {
		return w
	}
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

func titleCase(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		fields[i] = capitalize(f)
	}
	return strings.Join(fields, " ")
}
