package staging_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/application/staging"
	"github.com/stockpro/importer-api/internal/domain/entity"
)

func settingsWithMode(mode string) *entity.TenantSettings {
	s := entity.DefaultSettings("tenant-1")
	s.ImportMode = mode
	return s
}

func matchedResult(conf float64) *matcher.Result {
	return &matcher.Result{
		Level:      matcher.LevelSilver,
		Confidence: decimal.NewFromFloat(conf),
		Product:    &entity.Product{ID: "p1", Type: entity.ProductTypeSimple},
	}
}

func TestAutoCommit_ModoAuto(t *testing.T) {
	s := settingsWithMode(entity.ImportModeAuto)
	assert.True(t, staging.AutoCommit(matchedResult(0.70), s),
		"en AUTO cualquier ítem resuelto se confirma, sin importar la confianza")
}

func TestAutoCommit_ModoHybridRespetaUmbral(t *testing.T) {
	s := settingsWithMode(entity.ImportModeHybrid) // umbral por defecto 0.90

	assert.True(t, staging.AutoCommit(matchedResult(0.95), s))
	assert.True(t, staging.AutoCommit(matchedResult(0.90), s), "el umbral es inclusivo")
	assert.False(t, staging.AutoCommit(matchedResult(0.70), s),
		"un match BRONZE (0.70) no alcanza el umbral por defecto")
}

func TestAutoCommit_ModoManualNuncaConfirma(t *testing.T) {
	s := settingsWithMode(entity.ImportModeManual)
	assert.False(t, staging.AutoCommit(matchedResult(1.0), s),
		"en MANUAL ni el match por barcode se confirma solo")
}

func TestAutoCommit_SinMatchNoConfirma(t *testing.T) {
	s := settingsWithMode(entity.ImportModeAuto)
	assert.False(t, staging.AutoCommit(nil, s))
	assert.False(t, staging.AutoCommit(&matcher.Result{Level: matcher.LevelNone}, s))
}

func TestAutoCommit_NeedsReviewSiempreVaACuraduria(t *testing.T) {
	s := settingsWithMode(entity.ImportModeAuto)
	res := matchedResult(0.95)
	res.NeedsReview = true
	assert.False(t, staging.AutoCommit(res, s),
		"un match difuso exige revisión humana incluso en modo AUTO")
}

func TestAutoCommit_PadreVariableSinVarianteVaACuraduria(t *testing.T) {
	s := settingsWithMode(entity.ImportModeAuto)
	res := &matcher.Result{
		Level:      matcher.LevelSilver,
		Confidence: decimal.NewFromFloat(0.95),
		Product:    &entity.Product{ID: "p1", Type: entity.ProductTypeVariable},
	}
	assert.False(t, staging.AutoCommit(res, s),
		"un padre VARIABLE sin variante resuelta no puede recibir stock")
}

func TestAutoCommit_VarianteResueltaConfirma(t *testing.T) {
	s := settingsWithMode(entity.ImportModeAuto)
	res := &matcher.Result{
		Level:      matcher.LevelGold,
		Confidence: decimal.NewFromInt(1),
		Product:    &entity.Product{ID: "p1", Type: entity.ProductTypeVariable},
		Variant:    &entity.ProductVariant{ID: "v1"},
	}
	assert.True(t, staging.AutoCommit(res, s))
}
