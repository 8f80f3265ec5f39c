package documents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/agencia-api/internal/application/dto"
	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/billing"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
	"github.com/jhoicas/agencia-api/pkg/money"
)

// DocumentService orquesta el motor de documentos comerciales: valida el
// input, calcula totales con el ledger, asigna número al crear, aplica
// transiciones con la máquina de estados, persiste y despacha eventos de
// notificación. Los callers nunca mutan campos directamente.
type DocumentService struct {
	txRunner   TxRunner
	docRepo    repository.DocumentRepository
	clientRepo repository.ClientRepository
	issuer     *NumberIssuer
	dispatcher *Dispatcher
}

// NewDocumentService construye el servicio.
func NewDocumentService(
	txRunner TxRunner,
	docRepo repository.DocumentRepository,
	clientRepo repository.ClientRepository,
	issuer *NumberIssuer,
	dispatcher *Dispatcher,
) *DocumentService {
	return &DocumentService{
		txRunner:   txRunner,
		docRepo:    docRepo,
		clientRepo: clientRepo,
		issuer:     issuer,
		dispatcher: dispatcher,
	}
}

// CreateDocument crea un documento en draft: valida, calcula totales,
// asigna número y persiste cabecera, líneas y la entrada inicial del
// historial en una sola transacción. Toda validación ocurre antes de
// cualquier intento de persistencia; nada queda aplicado a medias.
func (s *DocumentService) CreateDocument(ctx context.Context, in dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	kind := entity.DocumentKind(in.Kind)
	if !entity.ValidKind(kind) {
		return nil, &domain.ValidationError{Field: "kind", Reason: "debe ser invoice, proposal o contract"}
	}
	if in.ClientID == "" {
		return nil, &domain.ValidationError{Field: "client_id", Reason: "requerido"}
	}
	if billing.RequiresLineItems(kind) && len(in.LineItems) == 0 {
		return nil, &domain.ValidationError{Field: "line_items", Reason: "requerido para " + in.Kind}
	}

	items := make([]entity.LineItem, len(in.LineItems))
	for i, li := range in.LineItems {
		items[i] = entity.LineItem{
			Description: li.Description,
			Quantity:    li.Quantity,
			UnitRate:    li.UnitRate,
		}
	}
	items, totals, err := billing.ComputeTotals(in.Currency, items, in.TaxRate)
	if err != nil {
		return nil, err
	}

	client, err := s.clientRepo.GetByID(in.ClientID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, domain.ErrNotFound
	}

	now := time.Now()
	doc := &entity.Document{
		ID:        uuid.New().String(),
		Kind:      kind,
		ClientID:  in.ClientID,
		Title:     in.Title,
		Currency:  in.Currency,
		TaxRate:   in.TaxRate,
		Subtotal:  totals.Subtotal,
		TaxAmount: totals.TaxAmount,
		Total:     totals.Total,
		Status:    entity.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	stored := make([]*entity.LineItem, len(items))
	err = s.txRunner.RunDocuments(ctx, func(
		docRepo repository.DocumentRepository,
		seqRepo repository.SequenceRepository,
	) error {
		// El número se asigna exactamente una vez, en el primer persist
		// exitoso. Si la asignación falla, toda la creación se revierte:
		// jamás queda un documento a medias sin número.
		number, err := s.issuer.Issue(seqRepo, kind, now)
		if err != nil {
			return err
		}
		doc.Number = number

		if err := docRepo.Create(doc); err != nil {
			return err
		}
		for i := range items {
			item := items[i]
			item.ID = uuid.New().String()
			item.DocumentID = doc.ID
			if err := docRepo.CreateItem(&item); err != nil {
				return err
			}
			stored[i] = &item
		}
		// Entrada implícita inicial del historial: draft
		return docRepo.AppendTransition(&entity.StatusChange{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Status:     entity.StatusDraft,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(Event{
		Type:       EventCreated,
		Kind:       doc.Kind,
		Number:     doc.Number,
		Title:      doc.Title,
		ClientName: client.Name,
		Status:     doc.Status,
		Total:      displayTotal(doc),
	})

	log := []*entity.StatusChange{{DocumentID: doc.ID, Status: entity.StatusDraft, ChangedAt: now}}
	return toDocumentResponse(doc, client.Name, stored, log), nil
}

// Transition aplica un cambio de estado con concurrencia optimista: la
// escritura se condiciona a que el estado persistido siga siendo el que el
// caller observó (compare-and-swap). El perdedor de una carrera recibe
// ConflictError y debe recargar y reintentar; nunca se re-aplica en
// silencio.
func (s *DocumentService) Transition(ctx context.Context, id string, in dto.TransitionRequest) (*dto.DocumentResponse, error) {
	if in.ExpectedStatus == "" {
		return nil, &domain.ValidationError{Field: "expected_status", Reason: "requerido"}
	}
	if in.RequestedStatus == "" {
		return nil, &domain.ValidationError{Field: "requested_status", Reason: "requerido"}
	}

	doc, err := s.docRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}

	expected := entity.DocumentStatus(in.ExpectedStatus)
	requested := entity.DocumentStatus(in.RequestedStatus)

	// Terminal primero: "ya fue aceptado" se distingue de un conflicto
	// genérico y de una arista ilegal.
	if billing.IsTerminal(doc.Kind, doc.Status) {
		return nil, &domain.AlreadyFinalizedError{Kind: doc.Kind, Status: doc.Status}
	}
	if expected != doc.Status {
		return nil, &domain.ConflictError{Expected: expected, Actual: doc.Status}
	}
	if err := billing.ValidateTransition(doc.Kind, doc.Status, requested); err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.txRunner.RunDocuments(ctx, func(
		docRepo repository.DocumentRepository,
		_ repository.SequenceRepository,
	) error {
		ok, err := docRepo.UpdateStatusIf(id, expected, requested, now)
		if err != nil {
			return err
		}
		if !ok {
			// Perdimos la carrera: otro request transicionó primero.
			current, err := docRepo.GetByID(id)
			if err != nil {
				return err
			}
			actual := expected
			if current != nil {
				actual = current.Status
			}
			return &domain.ConflictError{Expected: expected, Actual: actual}
		}
		return docRepo.AppendTransition(&entity.StatusChange{
			ID:         uuid.New().String(),
			DocumentID: id,
			Status:     requested,
			Note:       in.Note,
			ChangedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	doc.Status = requested
	doc.UpdatedAt = now

	clientName := s.clientName(doc.ClientID)
	s.dispatcher.Dispatch(Event{
		Type:       EventTransition,
		Kind:       doc.Kind,
		Number:     doc.Number,
		Title:      doc.Title,
		ClientName: clientName,
		Status:     requested,
		Note:       in.Note,
		Total:      displayTotal(doc),
	})

	items, err := s.docRepo.GetItems(id)
	if err != nil {
		return nil, err
	}
	log, err := s.docRepo.GetTransitions(id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, clientName, items, log), nil
}

// GetDocument obtiene un documento completo con líneas e historial.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*dto.DocumentResponse, error) {
	doc, err := s.docRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.docRepo.GetItems(id)
	if err != nil {
		return nil, err
	}
	log, err := s.docRepo.GetTransitions(id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc, s.clientName(doc.ClientID), items, log), nil
}

// ListDocuments lista cabeceras con filtros opcionales por kind y status.
func (s *DocumentService) ListDocuments(ctx context.Context, in dto.ListDocumentsRequest) ([]*dto.DocumentResponse, error) {
	filter := repository.DocumentFilter{}
	if in.Kind != "" {
		kind := entity.DocumentKind(in.Kind)
		if !entity.ValidKind(kind) {
			return nil, &domain.ValidationError{Field: "kind", Reason: "debe ser invoice, proposal o contract"}
		}
		filter.Kind = kind
	}
	if in.Status != "" {
		filter.Status = entity.DocumentStatus(in.Status)
	}
	in.DefaultPage()

	docs, err := s.docRepo.List(filter, in.Limit, in.Offset)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc, "", nil, nil))
	}
	return out, nil
}

func (s *DocumentService) clientName(clientID string) string {
	client, _ := s.clientRepo.GetByID(clientID)
	if client == nil {
		return ""
	}
	return client.Name
}

// displayTotal formatea el total para notificaciones; un fallo de formato
// no es motivo para omitir el evento.
func displayTotal(doc *entity.Document) string {
	formatted, err := money.Format(doc.Total, doc.Currency)
	if err != nil {
		return doc.Total.String()
	}
	return formatted
}

func toDocumentResponse(doc *entity.Document, clientName string, items []*entity.LineItem, log []*entity.StatusChange) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:         doc.ID,
		Kind:       string(doc.Kind),
		Number:     doc.Number,
		ClientID:   doc.ClientID,
		ClientName: clientName,
		Title:      doc.Title,
		Currency:   doc.Currency,
		TaxRate:    doc.TaxRate,
		Subtotal:   doc.Subtotal,
		TaxAmount:  doc.TaxAmount,
		Total:      doc.Total,
		Status:     string(doc.Status),
		LineItems:  make([]dto.LineItemResponse, 0, len(items)),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	for _, item := range items {
		resp.LineItems = append(resp.LineItems, dto.LineItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitRate:    item.UnitRate,
			Amount:      item.Amount,
		})
	}
	for _, change := range log {
		resp.TransitionLog = append(resp.TransitionLog, dto.TransitionResponse{
			Status:    string(change.Status),
			Note:      change.Note,
			ChangedAt: change.ChangedAt,
		})
	}
	return resp
}
