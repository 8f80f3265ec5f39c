package domain

import (
	"errors"
	"fmt"

	"github.com/jhoicas/agencia-api/internal/domain/entity"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrUserNotFound       = errors.New("usuario no encontrado")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
)

// ValidationError input malformado o fuera de rango. Se detecta antes de
// cualquier intento de persistencia; nunca se aplica parcialmente ni se
// ajusta en silencio.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validación: campo %q: %s", e.Field, e.Reason)
}

// InvalidTransitionError la arista solicitada no existe en la tabla de
// transiciones del kind. El documento queda intacto.
type InvalidTransitionError struct {
	Kind entity.DocumentKind
	From entity.DocumentStatus
	To   entity.DocumentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("transición inválida para %s: %s -> %s", e.Kind, e.From, e.To)
}

// AlreadyFinalizedError transición solicitada sobre un estado terminal.
// Distinto de InvalidTransitionError para que el caller pueda mostrar
// "este contrato ya fue aceptado" en vez de un fallo genérico.
type AlreadyFinalizedError struct {
	Kind   entity.DocumentKind
	Status entity.DocumentStatus
}

func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("documento %s ya finalizado en estado %s", e.Kind, e.Status)
}

// ConflictError falló la precondición de concurrencia optimista: el estado
// persistido no coincide con el que el caller observó. El caller debe
// recargar y reintentar; el motor nunca mezcla en silencio.
type ConflictError struct {
	Expected entity.DocumentStatus
	Actual   entity.DocumentStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicto de estado: se esperaba %s pero el estado actual es %s", e.Expected, e.Actual)
}

// IdentityAllocationError falló la asignación atómica del consecutivo.
// La creación completa falla cerrada: no se adivina ni reintenta un número.
type IdentityAllocationError struct {
	Kind  entity.DocumentKind
	Cause error
}

func (e *IdentityAllocationError) Error() string {
	return fmt.Sprintf("asignación de número para %s falló: %v", e.Kind, e.Cause)
}

func (e *IdentityAllocationError) Unwrap() error { return e.Cause }
