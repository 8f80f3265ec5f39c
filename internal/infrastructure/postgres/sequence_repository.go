package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// SequenceRepo implementación de SequenceRepository sobre PostgreSQL.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// NextValue incrementa y devuelve el consecutivo del (kind, año) en una sola
// sentencia. El upsert con RETURNING es atómico a nivel de fila: dos
// creaciones concurrentes serializan sobre el lock de la fila y obtienen
// valores distintos, sin ventana leer-luego-escribir.
func (r *SequenceRepo) NextValue(kind entity.DocumentKind, year int) (int64, error) {
	query := `
		INSERT INTO document_sequences (kind, year, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, year)
		DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value`
	var value int64
	if err := r.q.QueryRow(context.Background(), query, kind, year).Scan(&value); err != nil {
		return 0, fmt.Errorf("next sequence value: %w", err)
	}
	return value, nil
}
