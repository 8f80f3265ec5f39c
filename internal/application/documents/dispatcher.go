package documents

import (
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/jhoicas/agencia-api/internal/domain/entity"
	"github.com/jhoicas/agencia-api/pkg/logger"
)

// EventType tipo de evento de notificación.
type EventType string

const (
	EventCreated    EventType = "created"
	EventTransition EventType = "transition"
)

// Event describe una creación o una transición de estado exitosa, ya
// aplicada de forma durable antes de despachar.
type Event struct {
	Type       EventType
	Kind       entity.DocumentKind
	Number     string
	Title      string
	ClientName string
	Status     entity.DocumentStatus
	Note       string
	Total      string // monto ya formateado para mostrar (ej. "USD 13,570.00")
}

// Etiquetas en español para asunto y cuerpo.
var kindLabels = map[entity.DocumentKind]string{
	entity.KindInvoice:  "Factura",
	entity.KindProposal: "Propuesta",
	entity.KindContract: "Contrato",
}

var statusLabels = map[entity.DocumentStatus]string{
	entity.StatusDraft:         "borrador",
	entity.StatusSent:          "enviado",
	entity.StatusAccepted:      "aceptado",
	entity.StatusRejected:      "rechazado",
	entity.StatusEditRequested: "edición solicitada",
	entity.StatusPaid:          "pagado",
	entity.StatusPartial:       "pago parcial",
	entity.StatusOverdue:       "vencido",
	entity.StatusCancelled:     "anulado",
}

// bodyTemplate cuerpo HTML de la notificación. html/template escapa todo el
// texto libre del caller (título, nombre del cliente, nota) al interpolar.
var bodyTemplate = template.Must(template.New("notification").Parse(`<html><body>
<p><strong>{{.KindLabel}} {{.Number}}</strong>{{if .Title}} — {{.Title}}{{end}}</p>
{{if .ClientName}}<p>Cliente: {{.ClientName}}</p>{{end}}
{{if eq .Type "created"}}<p>Documento creado en borrador.</p>{{else}}<p>Nuevo estado: <strong>{{.StatusLabel}}</strong></p>{{end}}
{{if .Note}}<p>Nota: {{.Note}}</p>{{end}}
{{if .Total}}<p>Total: {{.Total}}</p>{{end}}
</body></html>`))

type bodyData struct {
	Event
	KindLabel   string
	StatusLabel string
}

// RenderEvent produce el asunto y el cuerpo HTML del evento. Exportada para
// poder verificar el escape y el contenido sin transporte de por medio.
func RenderEvent(ev Event) (subject, body string, err error) {
	kindLabel := kindLabels[ev.Kind]
	if kindLabel == "" {
		kindLabel = "Documento"
	}
	statusLabel := statusLabels[ev.Status]
	if statusLabel == "" {
		statusLabel = string(ev.Status)
	}

	if ev.Type == EventCreated {
		subject = fmt.Sprintf("%s %s — nuevo borrador", kindLabel, ev.Number)
	} else {
		subject = fmt.Sprintf("%s %s — estado: %s", kindLabel, ev.Number, statusLabel)
	}

	var sb strings.Builder
	if err := bodyTemplate.Execute(&sb, bodyData{Event: ev, KindLabel: kindLabel, StatusLabel: statusLabel}); err != nil {
		return "", "", fmt.Errorf("render notificación: %w", err)
	}
	return subject, sb.String(), nil
}

// Dispatcher despacha notificaciones de forma asíncrona y no bloqueante:
// el cambio de estado ya está aplicado cuando se intenta el envío, y un
// fallo del transporte jamás lo revierte ni se propaga al caller. Los
// fallos se registran y se descartan, sin reintentos ni dead-letter.
type Dispatcher struct {
	mailer Mailer
	to     string
	log    *logger.Logger
	wg     sync.WaitGroup
}

// NewDispatcher construye el dispatcher. Con mailer nil o destinatario
// vacío los eventos se descartan en silencio (modo desarrollo).
func NewDispatcher(mailer Mailer, to string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{mailer: mailer, to: to, log: log}
}

// Dispatch dispara el evento en una goroutine y retorna de inmediato.
// No toma ningún lock del documento y su finalización nunca se espera en la
// ruta de la operación que lo originó.
func (d *Dispatcher) Dispatch(ev Event) {
	if d.mailer == nil || d.to == "" {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ev)
	}()
}

func (d *Dispatcher) deliver(ev Event) {
	subject, body, err := RenderEvent(ev)
	if err != nil {
		d.log.Error().Err(err).Str("number", ev.Number).Msg("notificación descartada: render falló")
		return
	}
	if err := d.mailer.Send(d.to, subject, body); err != nil {
		d.log.Error().Err(err).
			Str("kind", string(ev.Kind)).
			Str("number", ev.Number).
			Str("status", string(ev.Status)).
			Msg("notificación descartada: transporte falló")
		return
	}
	d.log.Debug().Str("number", ev.Number).Str("subject", subject).Msg("notificación enviada")
}

// Wait bloquea hasta drenar los envíos en vuelo. Solo para el apagado
// ordenado del proceso; nunca se llama en la ruta de una operación.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
