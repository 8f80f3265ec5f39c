// Package billing contiene la lógica pura del motor de documentos
// comerciales: el libro de líneas (totales) y la máquina de estados del
// ciclo de vida. Ninguna función de este paquete tiene efectos secundarios,
// por lo que puede llamarse en cada edición del UI y en cada escritura del
// servidor con resultados idénticos.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/pkg/money"
)

var oneHundred = decimal.NewFromInt(100)

// Totals campos monetarios derivados de un documento. Siempre internamente
// consistentes: Total = Subtotal + TaxAmount, exacto tras redondeo.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals calcula el monto de cada línea y los totales del documento.
//
// Política de redondeo: half-to-even a la precisión de la moneda, aplicado
// una sola vez por campo derivado (monto de línea y monto de impuesto).
// El subtotal es la suma de montos ya redondeados y el total es
// subtotal + impuesto, ambos exactos a la escala de la moneda, así que la
// recomputación es idempotente bit a bit.
//
// Cero líneas produce totales en cero; eso es válido para los kinds que
// permiten libro vacío (propuestas de tarifa plana).
//
// Retorna ValidationError ante cantidades o tarifas negativas y taxRate
// fuera de [0, 100]; nunca ajusta valores en silencio.
func ComputeTotals(currency string, items []entity.LineItem, taxRate decimal.Decimal) ([]entity.LineItem, Totals, error) {
	if !money.Supported(currency) {
		return nil, Totals{}, &domain.ValidationError{Field: "currency", Reason: fmt.Sprintf("moneda no soportada: %q", currency)}
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(oneHundred) {
		return nil, Totals{}, &domain.ValidationError{Field: "tax_rate", Reason: "debe estar entre 0 y 100"}
	}

	out := make([]entity.LineItem, len(items))
	subtotal := decimal.Zero
	for i, item := range items {
		if item.Quantity.IsNegative() {
			return nil, Totals{}, &domain.ValidationError{
				Field:  fmt.Sprintf("line_items[%d].quantity", i),
				Reason: "no puede ser negativa",
			}
		}
		if item.UnitRate.IsNegative() {
			return nil, Totals{}, &domain.ValidationError{
				Field:  fmt.Sprintf("line_items[%d].unit_rate", i),
				Reason: "no puede ser negativa",
			}
		}
		amount, err := money.Round(item.Quantity.Mul(item.UnitRate), currency)
		if err != nil {
			return nil, Totals{}, &domain.ValidationError{Field: "currency", Reason: err.Error()}
		}
		item.Amount = amount
		item.Position = i
		out[i] = item
		subtotal = subtotal.Add(amount)
	}

	taxAmount, err := money.Round(subtotal.Mul(taxRate).Div(oneHundred), currency)
	if err != nil {
		return nil, Totals{}, &domain.ValidationError{Field: "currency", Reason: err.Error()}
	}

	return out, Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}, nil
}

// RequiresLineItems indica si el kind exige al menos una línea para
// persistirse. Las propuestas pueden ir sin líneas (engagement de tarifa
// plana); facturas y contratos no.
func RequiresLineItems(kind entity.DocumentKind) bool {
	return kind == entity.KindInvoice || kind == entity.KindContract
}
