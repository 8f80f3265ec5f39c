package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agencia-api/pkg/money"
)

// ──────────────────────────────────────────────────────────────────────────────
// Subunidades por moneda (catálogo ISO 4217 de x/text)
// ──────────────────────────────────────────────────────────────────────────────

func TestMinorUnits_MonedasConocidas(t *testing.T) {
	cases := []struct {
		code  string
		scale int32
	}{
		{"USD", 2},
		{"EUR", 2},
		{"INR", 2},
		{"COP", 2},
		{"JPY", 0}, // sin subunidad
		{"CLP", 0},
	}
	for _, tc := range cases {
		scale, err := money.MinorUnits(tc.code)
		require.NoError(t, err, tc.code)
		assert.Equal(t, tc.scale, scale, "subunidades de %s", tc.code)
	}
}

func TestMinorUnits_CodigoInvalido(t *testing.T) {
	_, err := money.MinorUnits("XXZ")
	assert.Error(t, err, "código no ISO debe retornar error")
}

func TestSupported(t *testing.T) {
	assert.True(t, money.Supported("USD"))
	assert.True(t, money.Supported("INR"))
	assert.False(t, money.Supported("???"))
	assert.False(t, money.Supported(""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Redondeo bancario (half-to-even)
// ──────────────────────────────────────────────────────────────────────────────

func TestRound_HalfToEven(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2.345", "2.34"}, // medio hacia el par (4)
		{"2.355", "2.36"}, // medio hacia el par (6)
		{"2.344", "2.34"},
		{"2.346", "2.35"},
		{"-2.345", "-2.34"},
	}
	for _, tc := range cases {
		got, err := money.Round(decimal.RequireFromString(tc.in), "USD")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.String(), "Round(%s)", tc.in)
	}
}

func TestRound_MonedaSinSubunidad(t *testing.T) {
	got, err := money.Round(decimal.RequireFromString("980.5"), "JPY")
	require.NoError(t, err)
	assert.Equal(t, "980", got.String(), "JPY redondea a enteros, 0.5 hacia el par")
}

// Redondear dos veces produce el mismo resultado (idempotencia).
func TestRound_Idempotente(t *testing.T) {
	once, err := money.Round(decimal.RequireFromString("19.995"), "EUR")
	require.NoError(t, err)
	twice, err := money.Round(once, "EUR")
	require.NoError(t, err)
	assert.True(t, once.Equal(twice), "Round(Round(x)) == Round(x)")
}

// ──────────────────────────────────────────────────────────────────────────────
// Formateo
// ──────────────────────────────────────────────────────────────────────────────

func TestFormat(t *testing.T) {
	cases := []struct {
		in   string
		code string
		want string
	}{
		{"11500", "USD", "USD 11,500.00"},
		{"13570", "INR", "INR 13,570.00"},
		{"1000000", "EUR", "EUR 1,000,000.00"},
		{"980", "JPY", "JPY 980"},
		{"-4500.5", "USD", "USD -4,500.50"},
		{"0", "USD", "USD 0.00"},
	}
	for _, tc := range cases {
		got, err := money.Format(decimal.RequireFromString(tc.in), tc.code)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormat_MonedaInvalida(t *testing.T) {
	_, err := money.Format(decimal.NewFromInt(100), "NOPE")
	assert.Error(t, err)
}
