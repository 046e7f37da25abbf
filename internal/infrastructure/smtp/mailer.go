package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/medibox-api/internal/config"
	"github.com/medibox-api/internal/domain"
)

// Mailer sends emails.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

type mailer struct {
	host     string
	port     string
	from     string
	username string
	password string
}

func NewMailer(cfg *config.Config) Mailer {
	return &mailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.SMTPFrom,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
	}
}

func (m *mailer) SendEmail(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", m.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	return smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg))
}

// AlertNotifier emails a digest of critical alerts to a configured inbox.
type AlertNotifier struct {
	mailer Mailer
	to     string
}

func NewAlertNotifier(mailer Mailer, to string) *AlertNotifier {
	return &AlertNotifier{mailer: mailer, to: to}
}

func (n *AlertNotifier) Notify(_ context.Context, alerts []domain.Alert) error {
	var lines []string
	for i := range alerts {
		a := &alerts[i]
		if a.Type != domain.AlertOutOfStock && a.Type != domain.AlertRefillNeeded {
			continue
		}
		lines = append(lines, fmt.Sprintf("* %s (%s): %s", a.MedicineName, a.BoxName, a.Message))
	}
	if len(lines) == 0 {
		return nil
	}
	body := "The following medicines need attention:\r\n\r\n" + strings.Join(lines, "\r\n")
	return n.mailer.SendEmail(n.to, "Medicine box alert", body)
}
