// Package email implementa el transporte SMTP de las notificaciones internas.
package email

import (
	gomail "gopkg.in/gomail.v2"

	"github.com/jhoicas/agencia-api/internal/application/documents"
	"github.com/jhoicas/agencia-api/pkg/config"
)

var _ documents.Mailer = (*GomailMailer)(nil)

// GomailMailer implementa documents.Mailer sobre SMTP con gomail.
type GomailMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewGomailMailer construye el mailer. Devuelve nil si SMTP_HOST no está
// configurado; el dispatcher interpreta un mailer nil como descarte
// silencioso (modo desarrollo).
func NewGomailMailer(cfg config.SMTPConfig) *GomailMailer {
	if cfg.Host == "" {
		return nil
	}
	return &GomailMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
	}
}

// Send envía un correo HTML. Abre y cierra la conexión por mensaje; el
// volumen de notificaciones internas no justifica mantener la sesión viva.
func (m *GomailMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return m.dialer.DialAndSend(msg)
}
