package matcher

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNameSimilarity_ProporcionDePalabrasCompartidas(t *testing.T) {
	// 3 de 4 palabras del nombre buscado están en el candidato.
	got := nameSimilarity("Feltro Santa Fe Especial", "Feltro Santa Fe")
	assert.True(t, decimal.NewFromFloat(0.75).Equal(got), "esperado 0.75, fue %s", got)
}

func TestNameSimilarity_IgnoraAcentosYCase(t *testing.T) {
	got := nameSimilarity("feltro santa fé", "FELTRO SANTA FE")
	assert.True(t, decimal.NewFromInt(1).Equal(got), "acentos y mayúsculas no deben penalizar")
}

func TestNameSimilarity_SinPalabrasEnComun(t *testing.T) {
	got := nameSimilarity("Linha Corrente", "Caderno Tilibra")
	assert.True(t, got.IsZero())
}

func TestNameSimilarity_BuscadoVacio(t *testing.T) {
	assert.True(t, nameSimilarity("", "Feltro").IsZero())
	assert.True(t, nameSimilarity("   ", "Feltro").IsZero())
}
