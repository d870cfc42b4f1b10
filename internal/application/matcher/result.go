package matcher

import (
	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain/entity"
)

// Niveles de confianza del match, en orden decreciente.
const (
	LevelGold   = "GOLD"   // código de barras (100%)
	LevelSilver = "SILVER" // mapeo aprendido o agrupamiento IA (95%)
	LevelBronze = "BRONZE" // SKU interno (70%)
	LevelNone   = "NONE"   // sin match: solo sugerencia para curaduría
)

// Acciones que produjeron el resultado.
const (
	ActionDirect       = "DIRECT"
	ActionLearned      = "LEARNED"
	ActionAIGroupMatch = "AI_GROUP_MATCH"
	ActionSKU          = "SKU"
	ActionParsed       = "PARSED"
	ActionAISuggestion = "AI_SUGGESTION"
)

// Suggestion propuesta de alta para un ítem sin match: lo que el clasificador o
// la IA lograron extraer de la descripción.
type Suggestion struct {
	Name             string
	Brand            string
	Category         string
	Attributes       map[string]string
	MatchType        string // NEW | VARIANT_OF | EXACT
	UOM              string
	MatchedProductID string // candidato propuesto por la IA; no vincula por sí solo
}

// Result resultado efímero de un intento de match; no se persiste.
// Solo los niveles GOLD/SILVER/BRONZE vinculan Product/Variant; con LevelNone la
// sugerencia alimenta la cola de curaduría.
type Result struct {
	Level       string
	Action      string
	Confidence  decimal.Decimal
	Product     *entity.Product
	Variant     *entity.ProductVariant
	Logic       string // traza legible de la decisión, para auditoría del operador
	Suggestion  Suggestion
	NeedsReview bool // match difuso u otra razón para exigir revisión humana
}

// IsMatched reporta si el resultado quedó vinculado a un registro del catálogo.
func (r *Result) IsMatched() bool {
	return r.Product != nil || r.Variant != nil
}
