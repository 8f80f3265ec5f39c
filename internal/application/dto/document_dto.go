package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateDocumentRequest body para POST /api/documents.
// TaxRate es opcional (0 = sin impuesto); Number nunca viene del caller:
// lo asigna el servidor al persistir por primera vez.
type CreateDocumentRequest struct {
	Kind      string            `json:"kind"` // invoice | proposal | contract
	ClientID  string            `json:"client_id"`
	Title     string            `json:"title"`
	Currency  string            `json:"currency"` // ISO 4217
	TaxRate   decimal.Decimal   `json:"tax_rate,omitempty"`
	LineItems []LineItemRequest `json:"line_items"`
}

// LineItemRequest línea facturable (descripción, cantidad, tarifa unitaria).
// El monto es derivado; si el caller lo envía, se ignora.
type LineItemRequest struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
}

// TransitionRequest body para PUT /api/documents/:id/transition.
// ExpectedStatus es la precondición de concurrencia optimista: el estado que
// el caller observó al decidir la transición.
type TransitionRequest struct {
	ExpectedStatus  string `json:"expected_status"`
	RequestedStatus string `json:"requested_status"`
	Note            string `json:"note,omitempty"`
}

// ListDocumentsRequest filtros para GET /api/documents.
type ListDocumentsRequest struct {
	Kind   string `query:"kind"`
	Status string `query:"status"`
	PageRequest
}

// DocumentResponse documento completo en respuestas.
type DocumentResponse struct {
	ID            string               `json:"id"`
	Kind          string               `json:"kind"`
	Number        string               `json:"number"`
	ClientID      string               `json:"client_id"`
	ClientName    string               `json:"client_name,omitempty"`
	Title         string               `json:"title"`
	Currency      string               `json:"currency"`
	TaxRate       decimal.Decimal      `json:"tax_rate"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	TaxAmount     decimal.Decimal      `json:"tax_amount"`
	Total         decimal.Decimal      `json:"total"`
	Status        string               `json:"status"`
	LineItems     []LineItemResponse   `json:"line_items"`
	TransitionLog []TransitionResponse `json:"transition_log,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// LineItemResponse línea en la respuesta, con el monto derivado.
type LineItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitRate    decimal.Decimal `json:"unit_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// TransitionResponse entrada del historial de transiciones.
type TransitionResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}
