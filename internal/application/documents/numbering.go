package documents

import (
	"fmt"
	"time"

	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
)

// NumberIssuer asigna números de documento legibles y únicos por kind:
// prefijo + año de creación + consecutivo con ceros (ej. INV-2026-00042).
//
// El incremento del contador es una operación atómica del almacenamiento
// (SequenceRepository.NextValue); nunca leer-y-sumar en este código, que
// sería una condición de carrera bajo uso concurrente de varios admins.
type NumberIssuer struct {
	prefixes map[entity.DocumentKind]string
}

// NewNumberIssuer construye el emisor con los prefijos por kind.
func NewNumberIssuer(invoicePrefix, proposalPrefix, contractPrefix string) *NumberIssuer {
	return &NumberIssuer{prefixes: map[entity.DocumentKind]string{
		entity.KindInvoice:  invoicePrefix,
		entity.KindProposal: proposalPrefix,
		entity.KindContract: contractPrefix,
	}}
}

// Issue asigna el siguiente número del (kind, año). Se llama exactamente una
// vez por documento, dentro de la transacción de creación. Si la asignación
// atómica falla, la emisión falla cerrada con IdentityAllocationError: no se
// adivina ni reintenta un número, y la creación completa se revierte.
func (i *NumberIssuer) Issue(seqRepo repository.SequenceRepository, kind entity.DocumentKind, now time.Time) (string, error) {
	prefix, ok := i.prefixes[kind]
	if !ok || prefix == "" {
		return "", &domain.IdentityAllocationError{Kind: kind, Cause: fmt.Errorf("sin prefijo configurado")}
	}
	n, err := seqRepo.NextValue(kind, now.Year())
	if err != nil {
		return "", &domain.IdentityAllocationError{Kind: kind, Cause: err}
	}
	return fmt.Sprintf("%s-%d-%05d", prefix, now.Year(), n), nil
}
