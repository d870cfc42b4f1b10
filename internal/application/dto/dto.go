// Package dto define los contratos de entrada/salida de la API HTTP.
package dto

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/domain/entity"
)

// ErrorResponse respuesta de error uniforme de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportBatchResponse estado de un batch de importación.
type ImportBatchResponse struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	FileName      string     `json:"file_name"`
	NfeKey        *string    `json:"nfe_key,omitempty"`
	SupplierID    *string    `json:"supplier_id,omitempty"`
	Status        string     `json:"status"`
	TotalRows     int        `json:"total_rows"`
	ProcessedRows int        `json:"processed_rows"`
	SuccessCount  int        `json:"success_count"`
	ErrorCount    int        `json:"error_count"`
	PendingCount  int        `json:"pending_count"`
	Errors        []string   `json:"errors,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// NewImportBatchResponse mapea la entidad al contrato de la API.
func NewImportBatchResponse(b *entity.ImportBatch) ImportBatchResponse {
	return ImportBatchResponse{
		ID:            b.ID,
		Source:        b.Source,
		FileName:      b.FileName,
		NfeKey:        b.NfeKey,
		SupplierID:    b.SupplierID,
		Status:        b.Status,
		TotalRows:     b.TotalRows,
		ProcessedRows: b.ProcessedRows,
		SuccessCount:  b.SuccessCount,
		ErrorCount:    b.ErrorCount,
		PendingCount:  b.PendingCount,
		Errors:        b.Errors,
		CreatedAt:     b.CreatedAt,
		CompletedAt:   b.CompletedAt,
	}
}

// StagedItemResponse ítem de la cola de curaduría con la sugerencia del matcher.
type StagedItemResponse struct {
	ID                 string          `json:"id"`
	BatchID            *string         `json:"batch_id,omitempty"`
	SupplierID         *string         `json:"supplier_id,omitempty"`
	SupplierSKU        string          `json:"supplier_sku"`
	Barcode            string          `json:"barcode,omitempty"`
	RawDescription     string          `json:"raw_description"`
	NCM                string          `json:"ncm,omitempty"`
	UOM                string          `json:"uom"`
	Quantity           decimal.Decimal `json:"quantity"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	SuggestedName      string          `json:"suggested_name"`
	SuggestedCategory  string          `json:"suggested_category,omitempty"`
	SuggestedBrand     string          `json:"suggested_brand,omitempty"`
	MatchLevel         string          `json:"match_level"`
	MatchType          string          `json:"match_type,omitempty"`
	Confidence         decimal.Decimal `json:"confidence"`
	MatchLogic         string          `json:"match_logic,omitempty"`
	CandidateProductID *string         `json:"candidate_product_id,omitempty"`
	CandidateVariantID *string         `json:"candidate_variant_id,omitempty"`
	NeedsReview        bool            `json:"needs_review"`
	Status             string          `json:"status"`
	ErrorMsg           string          `json:"error_msg,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// NewStagedItemResponse mapea la entidad al contrato de la API.
func NewStagedItemResponse(it *entity.StagedItem) StagedItemResponse {
	return StagedItemResponse{
		ID:                 it.ID,
		BatchID:            it.BatchID,
		SupplierID:         it.SupplierID,
		SupplierSKU:        it.SupplierSKU,
		Barcode:            it.Barcode,
		RawDescription:     it.RawDescription,
		NCM:                it.NCM,
		UOM:                it.UOM,
		Quantity:           it.Quantity,
		UnitCost:           it.UnitCost,
		SuggestedName:      it.SuggestedName,
		SuggestedCategory:  it.SuggestedCategory,
		SuggestedBrand:     it.SuggestedBrand,
		MatchLevel:         it.MatchLevel,
		MatchType:          it.MatchType,
		Confidence:         it.Confidence,
		MatchLogic:         it.MatchLogic,
		CandidateProductID: it.CandidateProductID,
		CandidateVariantID: it.CandidateVariantID,
		NeedsReview:        it.NeedsReview,
		Status:             it.Status,
		ErrorMsg:           it.ErrorMsg,
		CreatedAt:          it.CreatedAt,
	}
}

// ApproveRequest resolución del operador al aprobar un ítem staged.
// kind: LINK_PRODUCT | LINK_VARIANT | CREATE_SIMPLE | CREATE_VARIABLE | ADD_VARIANT.
// Los campos de alta vacíos toman la sugerencia del matcher.
type ApproveRequest struct {
	Kind           string           `json:"kind"`
	ProductID      string           `json:"product_id,omitempty"`
	VariantID      string           `json:"variant_id,omitempty"`
	SKU            string           `json:"sku,omitempty"`
	Name           string           `json:"name,omitempty"`
	Barcode        string           `json:"barcode,omitempty"`
	UOM            string           `json:"uom,omitempty"`
	CategoryName   string           `json:"category_name,omitempty"`
	BrandName      string           `json:"brand_name,omitempty"`
	AttributeName  string           `json:"attribute_name,omitempty"`
	AttributeValue string           `json:"attribute_value,omitempty"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty"`
}

// BulkRequest operación masiva sobre ítems staged.
type BulkRequest struct {
	IDs []string `json:"ids"`
}

// BulkResponse resumen de una operación masiva.
type BulkResponse struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// DraftRequest alta de borrador en la cola vía API.
type DraftRequest struct {
	Description string `json:"description"`
	SKU         string `json:"sku,omitempty"`
	Barcode     string `json:"barcode,omitempty"`
	UOM         string `json:"uom,omitempty"`
}

// MovementRequest registro manual de movimiento de stock.
// Exactamente uno de product_id/variant_id; unit_cost solo aplica en IN.
type MovementRequest struct {
	ProductID string           `json:"product_id,omitempty"`
	VariantID string           `json:"variant_id,omitempty"`
	Type      string           `json:"type"` // IN | OUT | ADJ
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Note      string           `json:"note,omitempty"`
}

// MovementResponse asiento registrado en el libro.
type MovementResponse struct {
	ID           string          `json:"id"`
	ProductID    *string         `json:"product_id,omitempty"`
	VariantID    *string         `json:"variant_id,omitempty"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	TotalCost    decimal.Decimal `json:"total_cost"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Source       string          `json:"source"`
	SourceDoc    string          `json:"source_doc,omitempty"`
	BatchID      *string         `json:"batch_id,omitempty"`
	Note         string          `json:"note,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewMovementResponse mapea la entidad al contrato de la API.
func NewMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:           m.ID,
		ProductID:    m.ProductID,
		VariantID:    m.VariantID,
		Type:         m.Type,
		Quantity:     m.Quantity,
		UnitCost:     m.UnitCost,
		TotalCost:    m.TotalCost,
		BalanceAfter: m.BalanceAfter,
		Source:       m.Source,
		SourceDoc:    m.SourceDoc,
		BatchID:      m.BatchID,
		Note:         m.Note,
		CreatedAt:    m.CreatedAt,
	}
}

// SettingsRequest política de importación del tenant.
type SettingsRequest struct {
	ImportMode              string           `json:"import_mode"` // AUTO | HYBRID | MANUAL
	AutoCommitThreshold     *decimal.Decimal `json:"auto_commit_threshold,omitempty"`
	AllowNegativeStock      *bool            `json:"allow_negative_stock,omitempty"`
	NameSimilarityThreshold *decimal.Decimal `json:"name_similarity_threshold,omitempty"`
	AIEnabled               *bool            `json:"ai_enabled,omitempty"`
}

// SettingsResponse política vigente del tenant.
type SettingsResponse struct {
	ImportMode              string          `json:"import_mode"`
	AutoCommitThreshold     decimal.Decimal `json:"auto_commit_threshold"`
	AllowNegativeStock      bool            `json:"allow_negative_stock"`
	NameSimilarityThreshold decimal.Decimal `json:"name_similarity_threshold"`
	AIEnabled               bool            `json:"ai_enabled"`
}

// NewSettingsResponse mapea la entidad al contrato de la API.
func NewSettingsResponse(s *entity.TenantSettings) SettingsResponse {
	return SettingsResponse{
		ImportMode:              s.ImportMode,
		AutoCommitThreshold:     s.AutoCommitThreshold,
		AllowNegativeStock:      s.AllowNegativeStock,
		NameSimilarityThreshold: s.NameSimilarityThreshold,
		AIEnabled:               s.AIEnabled,
	}
}
