package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind tipo de documento comercial. Determina la tabla de
// transiciones y el prefijo de numeración.
type DocumentKind string

const (
	KindInvoice  DocumentKind = "invoice"
	KindProposal DocumentKind = "proposal"
	KindContract DocumentKind = "contract"
)

// ValidKind indica si el kind es uno de los tres soportados.
func ValidKind(k DocumentKind) bool {
	switch k {
	case KindInvoice, KindProposal, KindContract:
		return true
	}
	return false
}

// DocumentStatus estado del ciclo de vida de un documento.
// No todos los estados son alcanzables por todos los kinds (ver billing.Transitions).
type DocumentStatus string

const (
	StatusDraft         DocumentStatus = "draft"
	StatusSent          DocumentStatus = "sent"
	StatusAccepted      DocumentStatus = "accepted"
	StatusRejected      DocumentStatus = "rejected"
	StatusEditRequested DocumentStatus = "edit_requested"
	StatusPaid          DocumentStatus = "paid"
	StatusPartial       DocumentStatus = "partial"
	StatusOverdue       DocumentStatus = "overdue"
	StatusCancelled     DocumentStatus = "cancelled"
)

// Document representa la cabecera de un documento comercial (factura,
// propuesta o contrato). Los campos Subtotal/TaxAmount/Total son derivados:
// siempre se recalculan desde las líneas, nunca se editan a mano.
type Document struct {
	ID        string
	Kind      DocumentKind
	Number    string // único por kind; se asigna una sola vez al crear
	ClientID  string // referencia al directorio de clientes (nunca embebido)
	Title     string
	Currency  string // ISO 4217, fijo desde la creación
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
	Status    DocumentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem línea facturable de un documento. Amount es derivado:
// round(Quantity * UnitRate) en la precisión de la moneda del documento.
type LineItem struct {
	ID          string
	DocumentID  string
	Position    int
	Description string
	Quantity    decimal.Decimal
	UnitRate    decimal.Decimal
	Amount      decimal.Decimal
}

// StatusChange entrada del historial de transiciones (append-only).
// Incluye la entrada implícita inicial en draft.
type StatusChange struct {
	ID         string
	DocumentID string
	Status     DocumentStatus
	Note       string // texto libre del actor (ej. motivo de edit_requested); se guarda verbatim
	ChangedAt  time.Time
}
