package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

// DocumentRepo implementación de DocumentRepository (usable con pool o tx).
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// Create persiste la cabecera del documento.
func (r *DocumentRepo) Create(doc *entity.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	query := `
		INSERT INTO documents (id, kind, number, client_id, title, currency, tax_rate, subtotal, tax_amount, total, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(context.Background(), query,
		doc.ID, doc.Kind, doc.Number, doc.ClientID, nullIfEmpty(doc.Title),
		doc.Currency, doc.TaxRate, doc.Subtotal, doc.TaxAmount, doc.Total,
		doc.Status, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: número de documento ya existe", domain.ErrDuplicate)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// CreateItem persiste una línea del documento.
func (r *DocumentRepo) CreateItem(item *entity.LineItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_items (id, document_id, position, description, quantity, unit_rate, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.DocumentID, item.Position, item.Description,
		item.Quantity, item.UnitRate, item.Amount,
	)
	if err != nil {
		return fmt.Errorf("insert document item: %w", err)
	}
	return nil
}

// AppendTransition agrega una entrada al historial (append-only).
func (r *DocumentRepo) AppendTransition(change *entity.StatusChange) error {
	if change.ID == "" {
		change.ID = uuid.New().String()
	}
	query := `
		INSERT INTO document_transitions (id, document_id, status, note, changed_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(context.Background(), query,
		change.ID, change.DocumentID, change.Status, nullIfEmpty(change.Note), change.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

// GetByID obtiene la cabecera de un documento por ID.
func (r *DocumentRepo) GetByID(id string) (*entity.Document, error) {
	query := `
		SELECT id, kind, number, client_id, title, currency,
		       tax_rate, subtotal, tax_amount, total, status,
		       created_at, updated_at
		FROM documents WHERE id = $1`
	var doc entity.Document
	var title *string
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&doc.ID, &doc.Kind, &doc.Number, &doc.ClientID, &title, &doc.Currency,
		&doc.TaxRate, &doc.Subtotal, &doc.TaxAmount, &doc.Total, &doc.Status,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	doc.Title = derefStr(title)
	return &doc, nil
}

// GetItems obtiene las líneas en el orden en que el autor las escribió.
func (r *DocumentRepo) GetItems(documentID string) ([]*entity.LineItem, error) {
	query := `
		SELECT id, document_id, position, description, quantity, unit_rate, amount
		FROM document_items
		WHERE document_id = $1
		ORDER BY position`
	rows, err := r.q.Query(context.Background(), query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document items: %w", err)
	}
	defer rows.Close()

	var items []*entity.LineItem
	for rows.Next() {
		var item entity.LineItem
		if err := rows.Scan(
			&item.ID, &item.DocumentID, &item.Position, &item.Description,
			&item.Quantity, &item.UnitRate, &item.Amount,
		); err != nil {
			return nil, fmt.Errorf("scan document item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// GetTransitions obtiene el historial en orden cronológico.
func (r *DocumentRepo) GetTransitions(documentID string) ([]*entity.StatusChange, error) {
	query := `
		SELECT id, document_id, status, note, changed_at
		FROM document_transitions
		WHERE document_id = $1
		ORDER BY changed_at, id`
	rows, err := r.q.Query(context.Background(), query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get transitions: %w", err)
	}
	defer rows.Close()

	var log []*entity.StatusChange
	for rows.Next() {
		var change entity.StatusChange
		var note *string
		if err := rows.Scan(&change.ID, &change.DocumentID, &change.Status, &note, &change.ChangedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		change.Note = derefStr(note)
		log = append(log, &change)
	}
	return log, rows.Err()
}

// List lista cabeceras con filtros opcionales, más recientes primero.
func (r *DocumentRepo) List(filter repository.DocumentFilter, limit, offset int) ([]*entity.Document, error) {
	query := `
		SELECT id, kind, number, client_id, title, currency,
		       tax_rate, subtotal, tax_amount, total, status,
		       created_at, updated_at
		FROM documents
		WHERE ($1 = '' OR kind = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.q.Query(context.Background(), query,
		string(filter.Kind), string(filter.Status), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		var doc entity.Document
		var title *string
		if err := rows.Scan(
			&doc.ID, &doc.Kind, &doc.Number, &doc.ClientID, &title, &doc.Currency,
			&doc.TaxRate, &doc.Subtotal, &doc.TaxAmount, &doc.Total, &doc.Status,
			&doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc.Title = derefStr(title)
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// UpdateStatusIf aplica el cambio de estado solo si el estado persistido
// sigue siendo expected (compare-and-swap sobre la fila). Cero filas
// afectadas significa que otro actor ganó la carrera; no es un error.
func (r *DocumentRepo) UpdateStatusIf(id string, expected, next entity.DocumentStatus, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE documents
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`
	tag, err := r.q.Exec(context.Background(), query, id, expected, next, updatedAt)
	if err != nil {
		return false, fmt.Errorf("update document status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
