package nfe

import "strings"

// uomAliases unidades comerciales frecuentes en NF-e → unidad interna.
var uomAliases = map[string]string{
	"UNID": "UN", "UND": "UN", "UN": "UN",
	"PÇ": "PC", "PÇA": "PC", "PEC": "PC", "PECA": "PC",
	"CX": "CX", "CAIXA": "CX",
	"KG": "KG", "KILOGRAMA": "KG",
	"MT": "M", "METRO": "M", "MTS": "M",
	"LT": "L", "LITRO": "L",
}

// NormalizeUOM convierte la unidad comercial de la NF-e a la unidad estándar
// del sistema. Unidades desconocidas se devuelven en mayúsculas sin cambiar.
func NormalizeUOM(uom string) string {
	u := strings.ToUpper(strings.TrimSpace(uom))
	if u == "" {
		return "UN"
	}
	if std, ok := uomAliases[u]; ok {
		return std
	}
	return u
}
