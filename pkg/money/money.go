// Package money implementa las primitivas monetarias del motor de documentos:
// redondeo a la precisión de subunidad de cada moneda y formateo para mostrar.
//
// La metadata de subunidades (2 decimales para USD/EUR/INR, 0 para JPY/CLP)
// viene del catálogo ISO 4217 de golang.org/x/text/currency, no de una tabla
// propia. Todas las funciones son puras y deterministas.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// MinorUnits devuelve la cantidad de decimales de la subunidad de la moneda.
// Retorna error si el código no es ISO 4217 válido.
func MinorUnits(code string) (int32, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 0, fmt.Errorf("money: moneda no soportada %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// Supported indica si el código de moneda es válido.
func Supported(code string) bool {
	_, err := currency.ParseISO(code)
	return err == nil
}

// Round redondea el monto a la precisión de la moneda con round-half-to-even
// (redondeo bancario). Se aplica una sola vez por campo derivado; nunca sobre
// sumas intermedias, para evitar deriva de centavos en recomputaciones.
func Round(amount decimal.Decimal, code string) (decimal.Decimal, error) {
	scale, err := MinorUnits(code)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.RoundBank(scale), nil
}

// Format devuelve el monto redondeado con código de moneda y separador de miles.
// Ej: Format(11500, "USD") → "USD 11,500.00"; Format(980, "JPY") → "JPY 980".
func Format(amount decimal.Decimal, code string) (string, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("money: moneda no soportada %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	fixed := amount.RoundBank(int32(scale)).StringFixed(int32(scale))
	return unit.String() + " " + groupThousands(fixed), nil
}

// groupThousands inserta comas de miles en la parte entera de un string numérico.
// Ej: "11500.00" → "11,500.00", "-1000000" → "-1,000,000".
func groupThousands(s string) string {
	sign := ""
	if len(s) > 0 && s[0] == '-' {
		sign, s = "-", s[1:]
	}
	intPart, rest := s, ""
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			intPart, rest = s[:i], s[i:]
			break
		}
	}
	n := len(intPart)
	if n <= 3 {
		return sign + intPart + rest
	}
	buf := make([]byte, 0, n+n/3)
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, intPart[i])
	}
	return sign + string(buf) + rest
}
