package staging

import (
	"github.com/stockpro/importer-api/internal/application/matcher"
	"github.com/stockpro/importer-api/internal/domain/entity"
)

// AutoCommit decide si un resultado de match se confirma directo al libro o
// pasa a curaduría, según la política del tenant:
//
//	AUTO   — confirma todo ítem con producto/variante resuelto.
//	HYBRID — confirma solo si la confianza alcanza el umbral del tenant.
//	MANUAL — nunca confirma automáticamente.
//
// Un resultado marcado NeedsReview (match difuso) siempre pasa a curaduría,
// incluso en modo AUTO. Un match al padre VARIABLE sin variante resuelta no
// puede generar movimiento y también se stagea.
func AutoCommit(res *matcher.Result, settings *entity.TenantSettings) bool {
	if res == nil || !res.IsMatched() || res.NeedsReview {
		return false
	}
	if res.Variant == nil && res.Product != nil && res.Product.Type == entity.ProductTypeVariable {
		return false
	}
	switch settings.ImportMode {
	case entity.ImportModeAuto:
		return true
	case entity.ImportModeHybrid:
		return res.Confidence.GreaterThanOrEqual(settings.AutoCommitThreshold)
	default:
		return false
	}
}
