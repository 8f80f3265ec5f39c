package repository

import "github.com/jhoicas/agencia-api/internal/domain/entity"

// SequenceRepository define el puerto del contador de numeración.
type SequenceRepository interface {
	// NextValue incrementa y devuelve el consecutivo del (kind, año) en una
	// sola operación atómica del almacenamiento. Nunca debe implementarse
	// como leer-máximo-y-sumar-uno en código de aplicación: dos creaciones
	// concurrentes observarían el mismo valor previo.
	NextValue(kind entity.DocumentKind, year int) (int64, error)
}
