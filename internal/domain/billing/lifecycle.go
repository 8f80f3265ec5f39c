package billing

import (
	"time"

	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
)

// Transitions tabla de transiciones por kind, declarada estáticamente:
// las aristas legales son un dato, no comparaciones de strings dispersas.
// Un estado presente como clave con lista vacía existe en el ciclo de vida
// pero no tiene salidas (ej. invoice/overdue, que no es terminal).
var Transitions = map[entity.DocumentKind]map[entity.DocumentStatus][]entity.DocumentStatus{
	entity.KindInvoice: {
		entity.StatusDraft:     {entity.StatusSent},
		entity.StatusSent:      {entity.StatusPaid, entity.StatusPartial, entity.StatusOverdue, entity.StatusCancelled},
		entity.StatusPartial:   {entity.StatusPaid, entity.StatusOverdue},
		entity.StatusOverdue:   {},
		entity.StatusPaid:      {},
		entity.StatusCancelled: {},
	},
	entity.KindProposal: {
		entity.StatusDraft:    {entity.StatusSent},
		entity.StatusSent:     {entity.StatusAccepted, entity.StatusRejected},
		entity.StatusAccepted: {},
		entity.StatusRejected: {},
	},
	entity.KindContract: {
		entity.StatusDraft:         {entity.StatusSent},
		entity.StatusSent:          {entity.StatusAccepted, entity.StatusRejected, entity.StatusEditRequested},
		entity.StatusEditRequested: {entity.StatusSent},
		entity.StatusAccepted:      {},
		entity.StatusRejected:      {},
	},
}

// terminals estados sin salidas donde el ciclo de vida termina. Se declara
// explícito porque no todo estado sin salidas es terminal (invoice/overdue
// queda varado pero no finaliza el documento).
var terminals = map[entity.DocumentKind]map[entity.DocumentStatus]bool{
	entity.KindInvoice: {
		entity.StatusPaid:      true,
		entity.StatusCancelled: true,
	},
	entity.KindProposal: {
		entity.StatusAccepted: true,
		entity.StatusRejected: true,
	},
	entity.KindContract: {
		entity.StatusAccepted: true,
		entity.StatusRejected: true,
	},
}

// ValidStatus indica si el estado pertenece al conjunto válido del kind.
func ValidStatus(kind entity.DocumentKind, status entity.DocumentStatus) bool {
	_, ok := Transitions[kind][status]
	return ok
}

// IsTerminal indica si el estado es terminal para el kind.
func IsTerminal(kind entity.DocumentKind, status entity.DocumentStatus) bool {
	return terminals[kind][status]
}

// NextStates devuelve las salidas directas del estado en la tabla del kind.
func NextStates(kind entity.DocumentKind, status entity.DocumentStatus) []entity.DocumentStatus {
	return Transitions[kind][status]
}

// ValidateTransition verifica que from -> to sea una arista directa de la
// tabla del kind. Nunca aplica "el estado válido más cercano".
//
// Sobre un estado terminal retorna AlreadyFinalizedError, incluso si se
// re-solicita el mismo estado terminal; cualquier otra arista ausente
// retorna InvalidTransitionError nombrando la arista ilegal.
func ValidateTransition(kind entity.DocumentKind, from, to entity.DocumentStatus) error {
	if IsTerminal(kind, from) {
		return &domain.AlreadyFinalizedError{Kind: kind, Status: from}
	}
	for _, next := range Transitions[kind][from] {
		if next == to {
			return nil
		}
	}
	return &domain.InvalidTransitionError{Kind: kind, From: from, To: to}
}

// ApplyTransition valida y aplica la transición sobre el documento en
// memoria: cambia Status, actualiza UpdatedAt y devuelve la entrada del
// historial a persistir. Esta es la única vía por la que Status cambia.
func ApplyTransition(doc *entity.Document, to entity.DocumentStatus, note string, now time.Time) (*entity.StatusChange, error) {
	if err := ValidateTransition(doc.Kind, doc.Status, to); err != nil {
		return nil, err
	}
	doc.Status = to
	doc.UpdatedAt = now
	return &entity.StatusChange{
		DocumentID: doc.ID,
		Status:     to,
		Note:       note,
		ChangedAt:  now,
	}, nil
}
