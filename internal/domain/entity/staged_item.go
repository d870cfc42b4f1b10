package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Estados del ítem en la cola de curaduría.
const (
	StagedStatusPending    = "PENDING"
	StagedStatusProcessing = "PROCESSING"
	StagedStatusDone       = "DONE"
	StagedStatusRejected   = "REJECTED"
	StagedStatusError      = "ERROR"
)

// StagedItem ítem de importación que no alcanzó los criterios de auto-commit y
// espera decisión humana. Conserva la fila cruda del documento más la sugerencia
// del matcher para que el operador resuelva con contexto completo.
type StagedItem struct {
	ID       string
	TenantID string
	BatchID  *string

	// Datos crudos de la fila de origen
	SupplierID     *string
	SupplierSKU    string
	Barcode        string
	RawDescription string
	NCM            string
	CFOP           string
	UOM            string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal

	// Sugerencia del matcher/clasificador
	SuggestedName       string
	SuggestedCategory   string
	SuggestedBrand      string
	SuggestedAttributes json.RawMessage // map[string]string serializado
	MatchLevel          string          // GOLD | SILVER | BRONZE | NONE
	MatchType           string          // NEW | VARIANT_OF | EXACT
	Confidence          decimal.Decimal
	MatchLogic          string // traza legible de cómo se llegó a la sugerencia
	CandidateProductID  *string
	CandidateVariantID  *string
	NeedsReview         bool // match difuso u otra condición que exige ojo humano

	// Resolución
	Status            string
	ErrorMsg          string
	ResolvedProductID *string
	ResolvedVariantID *string
	ResolvedBy        string
	ResolvedAt        *time.Time

	Source    string // NFE | CSV | API
	SourceDoc string // clave NF-e o nombre de archivo; viaja al movimiento al aprobar
	CreatedAt time.Time
	UpdatedAt time.Time
}
