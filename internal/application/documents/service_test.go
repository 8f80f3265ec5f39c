package documents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/agencia-api/internal/application/dto"
	"github.com/jhoicas/agencia-api/internal/domain"
	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/internal/domain/repository"
	"github.com/jhoicas/agencia-api/pkg/logger"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes en memoria
// ─────────────────────────────────────────────────────────────────────────────

type fakeDocRepo struct {
	mu          sync.Mutex
	docs        map[string]*entity.Document
	items       map[string][]*entity.LineItem
	transitions map[string][]*entity.StatusChange
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{
		docs:        make(map[string]*entity.Document),
		items:       make(map[string][]*entity.LineItem),
		transitions: make(map[string][]*entity.StatusChange),
	}
}

func (r *fakeDocRepo) Create(doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *doc
	r.docs[doc.ID] = &copied
	return nil
}

func (r *fakeDocRepo) CreateItem(item *entity.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *item
	r.items[item.DocumentID] = append(r.items[item.DocumentID], &copied)
	return nil
}

func (r *fakeDocRepo) AppendTransition(change *entity.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *change
	r.transitions[change.DocumentID] = append(r.transitions[change.DocumentID], &copied)
	return nil
}

func (r *fakeDocRepo) GetByID(id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) GetItems(documentID string) ([]*entity.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[documentID], nil
}

func (r *fakeDocRepo) GetTransitions(documentID string) ([]*entity.StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitions[documentID], nil
}

func (r *fakeDocRepo) List(filter repository.DocumentFilter, limit, offset int) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if filter.Kind != "" && doc.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		copied := *doc
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateStatusIf(id string, expected, next entity.DocumentStatus, updatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != expected {
		return false, nil
	}
	doc.Status = next
	doc.UpdatedAt = updatedAt
	return true, nil
}

type fakeSeqRepo struct {
	mu     sync.Mutex
	values map[string]int64
	fail   error
}

func newFakeSeqRepo() *fakeSeqRepo {
	return &fakeSeqRepo{values: make(map[string]int64)}
}

func (r *fakeSeqRepo) NextValue(kind entity.DocumentKind, year int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return 0, r.fail
	}
	key := string(kind) + "/" + time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	r.values[key]++
	return r.values[key], nil
}

type fakeClientRepo struct {
	clients map[string]*entity.Client
}

func newFakeClientRepo(clients ...*entity.Client) *fakeClientRepo {
	repo := &fakeClientRepo{clients: make(map[string]*entity.Client)}
	for _, c := range clients {
		repo.clients[c.ID] = c
	}
	return repo
}

func (r *fakeClientRepo) Create(client *entity.Client) error { r.clients[client.ID] = client; return nil }
func (r *fakeClientRepo) GetByID(id string) (*entity.Client, error) {
	return r.clients[id], nil
}
func (r *fakeClientRepo) GetByEmail(email string) (*entity.Client, error) {
	for _, c := range r.clients {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}
func (r *fakeClientRepo) List(limit, offset int) ([]*entity.Client, error) { return nil, nil }
func (r *fakeClientRepo) Update(client *entity.Client) error              { return nil }

// fakeTxRunner ejecuta el closure directamente sobre los fakes. Si el closure
// falla, descarta todo lo escrito, imitando el rollback real.
type fakeTxRunner struct {
	docRepo *fakeDocRepo
	seqRepo *fakeSeqRepo
}

func (t *fakeTxRunner) RunDocuments(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	seqRepo repository.SequenceRepository,
) error) error {
	scratch := newFakeDocRepo()
	t.docRepo.mu.Lock()
	for id, doc := range t.docRepo.docs {
		copied := *doc
		scratch.docs[id] = &copied
	}
	for id, items := range t.docRepo.items {
		scratch.items[id] = append([]*entity.LineItem(nil), items...)
	}
	for id, log := range t.docRepo.transitions {
		scratch.transitions[id] = append([]*entity.StatusChange(nil), log...)
	}
	t.docRepo.mu.Unlock()

	if err := fn(scratch, t.seqRepo); err != nil {
		return err
	}

	t.docRepo.mu.Lock()
	t.docRepo.docs = scratch.docs
	t.docRepo.items = scratch.items
	t.docRepo.transitions = scratch.transitions
	t.docRepo.mu.Unlock()
	return nil
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	sendErr error
}

type sentMail struct {
	to, subject, body string
}

func (m *fakeMailer) Send(to, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

func (m *fakeMailer) messages() []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMail(nil), m.sent...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type serviceFixture struct {
	svc        *DocumentService
	docRepo    *fakeDocRepo
	seqRepo    *fakeSeqRepo
	mailer     *fakeMailer
	dispatcher *Dispatcher
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	docRepo := newFakeDocRepo()
	seqRepo := newFakeSeqRepo()
	mailer := &fakeMailer{}
	dispatcher := NewDispatcher(mailer, "admin@agencia.test", logger.NewNop())
	clientRepo := newFakeClientRepo(&entity.Client{ID: "cl-1", Name: "Acme Corp", Email: "billing@acme.test"})
	issuer := NewNumberIssuer("INV", "PRO", "CON")
	svc := NewDocumentService(
		&fakeTxRunner{docRepo: docRepo, seqRepo: seqRepo},
		docRepo,
		clientRepo,
		issuer,
		dispatcher,
	)
	return &serviceFixture{svc: svc, docRepo: docRepo, seqRepo: seqRepo, mailer: mailer, dispatcher: dispatcher}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func invoiceRequest() dto.CreateDocumentRequest {
	return dto.CreateDocumentRequest{
		Kind:     "invoice",
		ClientID: "cl-1",
		Title:    "Campaña Q3",
		Currency: "USD",
		TaxRate:  dec("18"),
		LineItems: []dto.LineItemRequest{
			{Description: "Diseño de campaña", Quantity: dec("2"), UnitRate: dec("5000")},
			{Description: "Gestión de pauta", Quantity: dec("1"), UnitRate: dec("1500")},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// CreateDocument
// ─────────────────────────────────────────────────────────────────────────────

func TestCreateDocument_InvoiceCompleto(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.CreateDocument(context.Background(), invoiceRequest())
	require.NoError(t, err)

	assert.Equal(t, "invoice", resp.Kind)
	assert.Equal(t, "draft", resp.Status, "todo documento nace en draft")
	assert.Equal(t, "Acme Corp", resp.ClientName)
	assert.True(t, dec("11500").Equal(resp.Subtotal), "subtotal: %s", resp.Subtotal)
	assert.True(t, dec("2070").Equal(resp.TaxAmount), "impuesto: %s", resp.TaxAmount)
	assert.True(t, dec("13570").Equal(resp.Total), "total: %s", resp.Total)
	require.Len(t, resp.LineItems, 2)
	assert.True(t, dec("10000").Equal(resp.LineItems[0].Amount))
	assert.True(t, dec("1500").Equal(resp.LineItems[1].Amount))

	// Número: prefijo-año-consecutivo de 5 dígitos, asignado por el servidor.
	year := time.Now().Year()
	assert.Equal(t, "INV-"+time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")+"-00001", resp.Number)

	// Historial: entrada implícita inicial en draft.
	require.Len(t, resp.TransitionLog, 1)
	assert.Equal(t, "draft", resp.TransitionLog[0].Status)

	// Persistido de verdad, no solo en la respuesta.
	stored, err := f.docRepo.GetByID(resp.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, entity.StatusDraft, stored.Status)
}

func TestCreateDocument_NumerosIndependientesPorKind(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	inv, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	prop := invoiceRequest()
	prop.Kind = "proposal"
	prop.LineItems = nil
	propResp, err := f.svc.CreateDocument(ctx, prop)
	require.NoError(t, err)

	inv2, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	assert.Contains(t, inv.Number, "INV-")
	assert.Contains(t, propResp.Number, "PRO-")
	assert.Contains(t, inv2.Number, "-00002", "cada kind lleva su propio consecutivo")
	assert.Contains(t, propResp.Number, "-00001")
}

func TestCreateDocument_PropuestaSinLineas(t *testing.T) {
	f := newServiceFixture(t)

	req := dto.CreateDocumentRequest{
		Kind:     "proposal",
		ClientID: "cl-1",
		Title:    "Retainer mensual",
		Currency: "USD",
	}
	resp, err := f.svc.CreateDocument(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, resp.Subtotal.IsZero())
	assert.True(t, resp.Total.IsZero())
	assert.Empty(t, resp.LineItems)
}

func TestCreateDocument_FacturaSinLineasRechazada(t *testing.T) {
	f := newServiceFixture(t)

	req := invoiceRequest()
	req.LineItems = nil
	_, err := f.svc.CreateDocument(context.Background(), req)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "line_items", verr.Field)
}

func TestCreateDocument_KindInvalido(t *testing.T) {
	f := newServiceFixture(t)

	req := invoiceRequest()
	req.Kind = "receipt"
	_, err := f.svc.CreateDocument(context.Background(), req)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "kind", verr.Field)
}

func TestCreateDocument_ClienteInexistente(t *testing.T) {
	f := newServiceFixture(t)

	req := invoiceRequest()
	req.ClientID = "cl-nope"
	_, err := f.svc.CreateDocument(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateDocument_FalloDeNumeracionRevierteTodo(t *testing.T) {
	f := newServiceFixture(t)
	f.seqRepo.fail = errors.New("deadlock detected")

	_, err := f.svc.CreateDocument(context.Background(), invoiceRequest())

	var ierr *domain.IdentityAllocationError
	require.ErrorAs(t, err, &ierr, "la asignación falla cerrada, nunca adivina un número")
	assert.Equal(t, entity.KindInvoice, ierr.Kind)

	// Nada quedó persistido a medias.
	docs, err := f.docRepo.List(repository.DocumentFilter{}, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, docs, "un fallo de numeración no deja documento sin número")
}

func TestCreateDocument_DespachaNotificacion(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.CreateDocument(context.Background(), invoiceRequest())
	require.NoError(t, err)
	f.dispatcher.Wait()

	msgs := f.mailer.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "admin@agencia.test", msgs[0].to)
	assert.Contains(t, msgs[0].subject, resp.Number)
	assert.Contains(t, msgs[0].subject, "nuevo borrador")
	assert.Contains(t, msgs[0].body, "Acme Corp")
}

// ─────────────────────────────────────────────────────────────────────────────
// Transition
// ─────────────────────────────────────────────────────────────────────────────

func TestTransition_FlujoFactura(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	sent, err := f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "sent",
	})
	require.NoError(t, err)
	assert.Equal(t, "sent", sent.Status)

	paid, err := f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "sent", RequestedStatus: "paid", Note: "transferencia recibida",
	})
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)

	// Historial completo y en orden: draft, sent, paid.
	require.Len(t, paid.TransitionLog, 3)
	assert.Equal(t, "draft", paid.TransitionLog[0].Status)
	assert.Equal(t, "sent", paid.TransitionLog[1].Status)
	assert.Equal(t, "paid", paid.TransitionLog[2].Status)
	assert.Equal(t, "transferencia recibida", paid.TransitionLog[2].Note)
}

func TestTransition_AristaIlegal(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	// draft → paid no existe para facturas.
	_, err = f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "paid",
	})
	var terr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, entity.StatusDraft, terr.From)
	assert.Equal(t, entity.StatusPaid, terr.To)

	// El documento no cambió.
	current, _ := f.docRepo.GetByID(created.ID)
	assert.Equal(t, entity.StatusDraft, current.Status)
}

func TestTransition_DocumentoFinalizado(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	req := invoiceRequest()
	req.Kind = "contract"
	created, err := f.svc.CreateDocument(ctx, req)
	require.NoError(t, err)

	for _, step := range []dto.TransitionRequest{
		{ExpectedStatus: "draft", RequestedStatus: "sent"},
		{ExpectedStatus: "sent", RequestedStatus: "accepted"},
	} {
		_, err = f.svc.Transition(ctx, created.ID, step)
		require.NoError(t, err)
	}

	// accepted es terminal: cualquier intento posterior se rechaza con el
	// error específico, no con un conflicto genérico.
	_, err = f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "accepted", RequestedStatus: "rejected",
	})
	var ferr *domain.AlreadyFinalizedError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, entity.StatusAccepted, ferr.Status)
}

func TestTransition_PrecondicionObsoleta(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "sent",
	})
	require.NoError(t, err)

	// Segundo actor todavía cree que está en draft.
	_, err = f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "cancelled",
	})
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, entity.StatusDraft, cerr.Expected)
	assert.Equal(t, entity.StatusSent, cerr.Actual)
}

func TestTransition_CarreraPerdidaEnEscritura(t *testing.T) {
	// Simula la carrera que la verificación previa no alcanza a ver: el CAS
	// falla aunque el expected coincidía al leer.
	docRepo := newFakeDocRepo()
	seqRepo := newFakeSeqRepo()
	clientRepo := newFakeClientRepo(&entity.Client{ID: "cl-1", Name: "Acme Corp"})
	svc := NewDocumentService(
		&racingTxRunner{inner: &fakeTxRunner{docRepo: docRepo, seqRepo: seqRepo}, docRepo: docRepo},
		docRepo,
		clientRepo,
		NewNumberIssuer("INV", "PRO", "CON"),
		NewDispatcher(nil, "", logger.NewNop()),
	)
	ctx := context.Background()

	created, err := svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "cancelled",
	})
	var cerr *domain.ConflictError
	require.ErrorAs(t, err, &cerr, "el perdedor de la carrera recibe conflicto, nunca éxito silencioso")
	assert.Equal(t, entity.StatusSent, cerr.Actual)

	// El ganador quedó aplicado; el perdedor no agregó nada al historial.
	log, _ := docRepo.GetTransitions(created.ID)
	for _, change := range log {
		assert.NotEqual(t, entity.StatusCancelled, change.Status)
	}
}

// racingTxRunner mete una transición rival justo antes de cada transacción
// posterior a la creación.
type racingTxRunner struct {
	inner   *fakeTxRunner
	docRepo *fakeDocRepo
	created bool
}

func (t *racingTxRunner) RunDocuments(ctx context.Context, fn func(
	docRepo repository.DocumentRepository,
	seqRepo repository.SequenceRepository,
) error) error {
	if t.created {
		t.docRepo.mu.Lock()
		for _, doc := range t.docRepo.docs {
			doc.Status = entity.StatusSent
		}
		t.docRepo.mu.Unlock()
	}
	t.created = true
	return t.inner.RunDocuments(ctx, fn)
}

func TestTransition_ContratoConCicloDeEdicion(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	req := invoiceRequest()
	req.Kind = "contract"
	created, err := f.svc.CreateDocument(ctx, req)
	require.NoError(t, err)

	steps := []dto.TransitionRequest{
		{ExpectedStatus: "draft", RequestedStatus: "sent"},
		{ExpectedStatus: "sent", RequestedStatus: "edit_requested", Note: "ajustar cláusula 4"},
		{ExpectedStatus: "edit_requested", RequestedStatus: "sent"},
		{ExpectedStatus: "sent", RequestedStatus: "accepted"},
	}
	var last *dto.DocumentResponse
	for _, step := range steps {
		last, err = f.svc.Transition(ctx, created.ID, step)
		require.NoError(t, err, "paso %s → %s", step.ExpectedStatus, step.RequestedStatus)
	}
	assert.Equal(t, "accepted", last.Status)
	require.Len(t, last.TransitionLog, 5)
	assert.Equal(t, "ajustar cláusula 4", last.TransitionLog[2].Note)
}

func TestTransition_DocumentoInexistente(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Transition(context.Background(), "doc-nope", dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "sent",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransition_NotificacionNoBloqueaNiRevierte(t *testing.T) {
	f := newServiceFixture(t)
	f.mailer.sendErr = errors.New("smtp: connection refused")
	ctx := context.Background()

	created, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err, "el fallo del transporte no afecta la creación")

	resp, err := f.svc.Transition(ctx, created.ID, dto.TransitionRequest{
		ExpectedStatus: "draft", RequestedStatus: "sent",
	})
	require.NoError(t, err, "el fallo del transporte no afecta la transición")
	assert.Equal(t, "sent", resp.Status)
	f.dispatcher.Wait()

	// El estado quedó aplicado de forma durable a pesar del correo fallido.
	current, _ := f.docRepo.GetByID(created.ID)
	assert.Equal(t, entity.StatusSent, current.Status)
	assert.Empty(t, f.mailer.messages())
}

// ─────────────────────────────────────────────────────────────────────────────
// Get / List
// ─────────────────────────────────────────────────────────────────────────────

func TestGetDocument(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	got, err := f.svc.GetDocument(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Number, got.Number)
	assert.Len(t, got.LineItems, 2)
	assert.Len(t, got.TransitionLog, 1)

	_, err = f.svc.GetDocument(ctx, "doc-nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListDocuments_Filtros(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateDocument(ctx, invoiceRequest())
	require.NoError(t, err)

	prop := invoiceRequest()
	prop.Kind = "proposal"
	prop.LineItems = nil
	_, err = f.svc.CreateDocument(ctx, prop)
	require.NoError(t, err)

	all, err := f.svc.ListDocuments(ctx, dto.ListDocumentsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	invoices, err := f.svc.ListDocuments(ctx, dto.ListDocumentsRequest{Kind: "invoice"})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "invoice", invoices[0].Kind)

	_, err = f.svc.ListDocuments(ctx, dto.ListDocumentsRequest{Kind: "receipt"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
