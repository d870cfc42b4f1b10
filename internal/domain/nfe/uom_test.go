package nfe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stockpro/importer-api/internal/domain/nfe"
)

func TestNormalizeUOM_AliasesComunes(t *testing.T) {
	cases := map[string]string{
		"UNID":  "UN",
		"und":   "UN",
		"PÇ":    "PC",
		"peca":  "PC",
		"CAIXA": "CX",
		"mt":    "M",
		"MTS":   "M",
		"LT":    "L",
		"kg":    "KG",
	}
	for in, want := range cases {
		assert.Equal(t, want, nfe.NormalizeUOM(in), "la unidad %q debe normalizarse a %q", in, want)
	}
}

func TestNormalizeUOM_VaciaDevuelveUnidad(t *testing.T) {
	assert.Equal(t, "UN", nfe.NormalizeUOM(""))
	assert.Equal(t, "UN", nfe.NormalizeUOM("   "))
}

func TestNormalizeUOM_DesconocidaEnMayusculas(t *testing.T) {
	// Unidades fuera de la tabla se devuelven en mayúsculas sin traducir.
	assert.Equal(t, "BOBINA", nfe.NormalizeUOM("bobina"))
	assert.Equal(t, "PAR", nfe.NormalizeUOM(" par "))
}
