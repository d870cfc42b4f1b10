package classifier

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// KnowledgeBase diccionarios de patrones para descripciones de productos del
// mercado brasileño. Es data pura: extender marcas, categorías o colores no
// requiere tocar el algoritmo.
type KnowledgeBase struct {
	Brands           []string
	CategoryKeywords []CategoryEntry
	Colors           []SynonymEntry
	Sizes            []SynonymEntry
	Dimensions       []DimensionPattern
	Acronyms         []string // siglas que se preservan en mayúsculas al limpiar nombres

	brandRes    []*regexp.Regexp
	categoryRes [][]*regexp.Regexp
	colorRes    [][]*regexp.Regexp
	sizeRes     [][]*regexp.Regexp
}

// CategoryEntry categoría canónica con sus palabras clave.
type CategoryEntry struct {
	Name     string
	Keywords []string
}

// SynonymEntry valor canónico (color o talla) con sus sinónimos.
type SynonymEntry struct {
	Canonical string
	Terms     []string
}

// DimensionPattern regex de medida con el atributo que produce.
type DimensionPattern struct {
	Re        *regexp.Regexp
	Attribute string
}

// DefaultKnowledgeBase diccionarios de fábrica (portugués, NF-e brasileñas).
// El orden importa: la primera coincidencia gana, igual que en los sinónimos.
func DefaultKnowledgeBase() *KnowledgeBase {
	kb := &KnowledgeBase{
		Brands: []string{
			// Têxteis
			"SANTA FE", "SANTA FÉ", "CIRCULO", "CÍRCULO", "COATS", "PINGUIN", "LINHAS CORRENTE",
			// Ferramentas
			"BOSCH", "MAKITA", "DEWALT", "BLACK DECKER", "TRAMONTINA", "GEDORE",
			// Eletrônicos
			"SAMSUNG", "LG", "PHILIPS", "INTELBRAS", "MULTILASER", "ELGIN",
			// Papelaria
			"FABER CASTELL", "BIC", "PILOT", "TILIBRA", "STAEDTLER",
			// Limpeza
			"BOMBRIL", "YPÊ", "VEJA", "PINHO SOL",
			// Genéricos comunes en NF-e
			"GENERICO", "IMPORTADO", "NACIONAL",
		},
		CategoryKeywords: []CategoryEntry{
			{"Tecidos", []string{"TECIDO", "FELTRO", "TNT", "MALHA", "OXFORD", "TRICOLINE", "CETIM", "JEANS", "BRIM", "LINHO"}},
			{"Linhas e Fios", []string{"LINHA", "FIO", "NOVELO", "MEADA", "BARBANTE", "CORDÃO", "LÃ"}},
			{"Aviamentos", []string{"ZIPER", "ZIPPER", "BOTÃO", "BOTAO", "FIVELA", "ILHÓS", "ELASTICO", "VELCRO", "RENDA", "FITA"}},
			{"Ferramentas", []string{"ALICATE", "CHAVE", "MARTELO", "FURADEIRA", "SERRA", "LIXA", "BROCA"}},
			{"Eletrônicos", []string{"CABO", "ADAPTADOR", "CARREGADOR", "FONTE", "LED", "LAMPADA", "PILHA", "BATERIA"}},
			{"Papelaria", []string{"CADERNO", "CANETA", "LAPIS", "BORRACHA", "TESOURA", "COLA", "PAPEL", "ENVELOPE"}},
			{"Embalagens", []string{"SACOLA", "CAIXA", "SACO", "BOBINA", "ROLO", "ETIQUETA"}},
		},
		Colors: []SynonymEntry{
			{"Branco", []string{"BRANCO", "BCO", "WHITE"}},
			{"Preto", []string{"PRETO", "PTO", "BLACK", "NEGRO"}},
			{"Azul", []string{"AZUL", "BLUE", "MARINHO", "ROYAL", "TURQUESA", "CELESTE", "BABY BLUE"}},
			{"Vermelho", []string{"VERMELHO", "RED", "VINHO", "BORDÔ", "BORDO", "ESCARLATE"}},
			{"Verde", []string{"VERDE", "GREEN", "MUSGO", "OLIVA", "LIMÃO", "MILITAR"}},
			{"Amarelo", []string{"AMARELO", "YELLOW", "OURO", "DOURADO", "MOSTARDA"}},
			{"Rosa", []string{"ROSA", "PINK", "MAGENTA", "FUCHSIA", "SALMÃO", "SALMON"}},
			{"Laranja", []string{"LARANJA", "ORANGE"}},
			{"Roxo", []string{"ROXO", "PURPLE", "LILAS", "LILÁS", "VIOLETA", "UVA"}},
			{"Marrom", []string{"MARROM", "BROWN", "CAFÉ", "CARAMELO", "CHOCOLATE", "BEGE", "CREME", "CAQUI"}},
			{"Cinza", []string{"CINZA", "GRAY", "GREY", "CHUMBO", "PRATA", "SILVER", "GRAFITE"}},
		},
		// PP antes que P y GG antes que G: la primera coincidencia gana.
		Sizes: []SynonymEntry{
			{"PP", []string{"PP", "XS", "EXTRA PEQUENO"}},
			{"GG", []string{"GG", "XL", "EXTRA GRANDE"}},
			{"XGG", []string{"XGG", "XXL", "2XL"}},
			{"P", []string{"P", "PEQUENO", "SMALL", "S"}},
			{"M", []string{"M", "MEDIO", "MÉDIO", "MEDIUM"}},
			{"G", []string{"G", "GRANDE", "LARGE", "L"}},
		},
		Dimensions: []DimensionPattern{
			{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(CM|MM|MTS|MT|METROS|METRO|M)\b`), "Medida"},
			{regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(KG|GRAMAS|GRAMA|QUILOS|QUILO|G)\b`), "Peso"},
			{regexp.MustCompile(`(\d+)\s*(UNIDADES|UNIDADE|UNID|UND|UN|PCS|PC|PECAS|PECA)\b`), "Quantidade"},
			{regexp.MustCompile(`(\d+)\s*(VOLTS|VOLT|WATTS|WATT|VA|V|W)\b`), "Voltagem"},
		},
		Acronyms: []string{"TNT", "LED", "USB", "PVC", "MDF", "PP", "PE", "EAN", "SKU"},
	}
	kb.compile()
	return kb
}

// compile precompila los regex de word-boundary sobre texto plegado (sin acentos).
func (kb *KnowledgeBase) compile() {
	kb.brandRes = make([]*regexp.Regexp, len(kb.Brands))
	for i, b := range kb.Brands {
		kb.brandRes[i] = wordRe(b)
	}
	kb.categoryRes = make([][]*regexp.Regexp, len(kb.CategoryKeywords))
	for i, c := range kb.CategoryKeywords {
		kb.categoryRes[i] = make([]*regexp.Regexp, len(c.Keywords))
		for j, k := range c.Keywords {
			kb.categoryRes[i][j] = wordRe(k)
		}
	}
	kb.colorRes = make([][]*regexp.Regexp, len(kb.Colors))
	for i, c := range kb.Colors {
		kb.colorRes[i] = make([]*regexp.Regexp, len(c.Terms))
		for j, t := range c.Terms {
			kb.colorRes[i][j] = wordRe(t)
		}
	}
	kb.sizeRes = make([][]*regexp.Regexp, len(kb.Sizes))
	for i, s := range kb.Sizes {
		kb.sizeRes[i] = make([]*regexp.Regexp, len(s.Terms))
		for j, t := range s.Terms {
			kb.sizeRes[i][j] = wordRe(t)
		}
	}
}

// wordRe regex con límites de palabra sobre el término plegado.
func wordRe(term string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(Fold(strings.ToUpper(term))) + `\b`)
}

// foldTransformer elimina marcas diacríticas: NFD, quitar Mn, NFC.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold devuelve el texto sin acentos (Bordô -> Bordo). Si la transformación
// falla devuelve la entrada sin cambios.
func Fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)
	if err != nil {
		return s
	}
	return out
}
