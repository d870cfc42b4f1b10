package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modos de importación por tenant.
const (
	ImportModeAuto   = "AUTO"   // commit de todo ítem con producto resuelto
	ImportModeHybrid = "HYBRID" // commit solo si confidence >= AutoCommitThreshold
	ImportModeManual = "MANUAL" // nunca auto-commit; todo pasa por curaduría
)

// TenantSettings política de importación e inventario por tenant.
type TenantSettings struct {
	TenantID                string
	ImportMode              string
	AutoCommitThreshold     decimal.Decimal // umbral de confianza del modo HYBRID
	AllowNegativeStock      bool
	NameSimilarityThreshold decimal.Decimal // proporción de palabras compartidas para match difuso de nombre
	AIEnabled               bool
	UpdatedAt               time.Time
}

// DefaultSettings valores de fábrica cuando el tenant aún no configuró nada.
func DefaultSettings(tenantID string) *TenantSettings {
	return &TenantSettings{
		TenantID:                tenantID,
		ImportMode:              ImportModeHybrid,
		AutoCommitThreshold:     decimal.NewFromFloat(0.90),
		AllowNegativeStock:      false,
		NameSimilarityThreshold: decimal.NewFromFloat(0.70),
		AIEnabled:               true,
	}
}
