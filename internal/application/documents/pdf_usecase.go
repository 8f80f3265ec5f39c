package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
)

// PDFUseCase genera la representación gráfica (PDF) de un documento
// comercial para enviar al cliente.
type PDFUseCase struct {
	docRepo    repository.DocumentRepository
	clientRepo repository.ClientRepository
	generator  PDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando sus dependencias.
func NewPDFUseCase(
	docRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	generator PDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		docRepo:    docRepo,
		clientRepo: clientRepo,
		generator:  generator,
	}
}

// DownloadDocumentPDF recupera el documento con sus líneas y su cliente y
// genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si el documento no existe.
func (uc *PDFUseCase) DownloadDocumentPDF(
	ctx context.Context,
	documentID string,
) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar documento ───────────────────────────────────────────────────
	doc, err := uc.docRepo.GetByID(documentID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener documento: %w", err)
	}
	if doc == nil {
		return nil, "", domain.ErrNotFound
	}

	// ── 2. Cargar cliente ─────────────────────────────────────────────────────
	client, err := uc.clientRepo.GetByID(doc.ClientID)
	if err != nil || client == nil {
		return nil, "", fmt.Errorf("pdf: obtener cliente: %w", err)
	}

	// ── 3. Cargar líneas ──────────────────────────────────────────────────────
	items, err := uc.docRepo.GetItems(documentID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener líneas: %w", err)
	}

	// ── 4. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GenerateDocumentPDF(ctx, doc, client, items)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	filename = fmt.Sprintf("%s_%s.pdf", doc.Kind, strings.ReplaceAll(doc.Number, "/", "-"))
	return pdfBytes, filename, nil
}
