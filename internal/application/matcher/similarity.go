package matcher

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stockpro/importer-api/internal/application/classifier"
)

// nameSimilarity proporción de palabras del nombre buscado presentes en el
// candidato (0..1). Plegado de acentos y case-insensitive. Es la heurística del
// match difuso de productos padre; el umbral lo decide la política del tenant.
func nameSimilarity(wanted, candidate string) decimal.Decimal {
	wantWords := foldWords(wanted)
	if len(wantWords) == 0 {
		return decimal.Zero
	}
	candSet := map[string]struct{}{}
	for _, w := range foldWords(candidate) {
		candSet[w] = struct{}{}
	}
	shared := 0
	for _, w := range wantWords {
		if _, ok := candSet[w]; ok {
			shared++
		}
	}
	return decimal.NewFromInt(int64(shared)).Div(decimal.NewFromInt(int64(len(wantWords))))
}

func foldWords(s string) []string {
	return strings.Fields(classifier.Fold(strings.ToUpper(s)))
}
