package documents

import (
	"context"

	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción que incluye los
// repos de documentos y de numeración. La asignación del número, la cabecera,
// las líneas y la entrada inicial del historial se persisten atómicamente.
type TxRunner interface {
	RunDocuments(ctx context.Context, fn func(
		docRepo repository.DocumentRepository,
		seqRepo repository.SequenceRepository,
	) error) error
}

// Mailer puerto del transporte de correo saliente. La implementación
// concreta (SMTP) vive en infraestructura; el dispatcher solo conoce esto.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// PDFGenerator puerto de renderizado: produce la representación PDF de un
// documento comercial.
type PDFGenerator interface {
	GenerateDocumentPDF(
		ctx context.Context,
		doc *entity.Document,
		client *entity.Client,
		items []*entity.LineItem,
	) ([]byte, error)
}
