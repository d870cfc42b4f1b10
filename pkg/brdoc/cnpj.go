// Package brdoc valida y normaliza identificadores fiscales brasileños (CNPJ).
package brdoc

import "strings"

// NormalizeCNPJ elimina todo lo que no sea dígito (puntos, barras, guiones).
func NormalizeCNPJ(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCNPJ verifica longitud y dígitos verificadores del CNPJ (módulo 11).
func IsValidCNPJ(raw string) bool {
	cnpj := NormalizeCNPJ(raw)
	if len(cnpj) != 14 {
		return false
	}
	// Secuencias repetidas (00000000000000, 11111111111111, ...) no son válidas
	allEqual := true
	for i := 1; i < len(cnpj); i++ {
		if cnpj[i] != cnpj[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	if digit(cnpj, 12) != int(cnpj[12]-'0') {
		return false
	}
	return digit(cnpj, 13) == int(cnpj[13]-'0')
}

// digit calcula el dígito verificador en la posición pos (12 o 13).
func digit(cnpj string, pos int) int {
	weights := []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	offset := 13 - pos
	sum := 0
	for i := 0; i < pos; i++ {
		sum += int(cnpj[i]-'0') * weights[i+offset]
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// FormatCNPJ presenta un CNPJ normalizado como XX.XXX.XXX/XXXX-XX.
// Devuelve la entrada sin cambios si no tiene 14 dígitos.
func FormatCNPJ(raw string) string {
	cnpj := NormalizeCNPJ(raw)
	if len(cnpj) != 14 {
		return raw
	}
	return cnpj[0:2] + "." + cnpj[2:5] + "." + cnpj[5:8] + "/" + cnpj[8:12] + "-" + cnpj[12:14]
}
