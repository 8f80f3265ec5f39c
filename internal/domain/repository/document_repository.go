package repository

import (
	"time"

	"github.com/jhoicas/agencia-api/internal/domain/entity"
)

// DocumentFilter filtros opcionales para listados (vacío = sin filtro).
type DocumentFilter struct {
	Kind   entity.DocumentKind
	Status entity.DocumentStatus
}

// DocumentRepository define el puerto de persistencia para Document,
// sus líneas y su historial de transiciones.
type DocumentRepository interface {
	Create(doc *entity.Document) error
	CreateItem(item *entity.LineItem) error
	// AppendTransition agrega una entrada al historial (append-only; nunca se
	// actualiza ni borra una entrada existente).
	AppendTransition(change *entity.StatusChange) error
	GetByID(id string) (*entity.Document, error)
	GetItems(documentID string) ([]*entity.LineItem, error)
	GetTransitions(documentID string) ([]*entity.StatusChange, error)
	List(filter DocumentFilter, limit, offset int) ([]*entity.Document, error)
	// UpdateStatusIf aplica el cambio de estado solo si el estado persistido
	// coincide con expected (compare-and-swap). Devuelve false sin error si la
	// precondición falló; el caller decide cómo reportar el conflicto.
	UpdateStatusIf(id string, expected, next entity.DocumentStatus, updatedAt time.Time) (bool, error)
}
