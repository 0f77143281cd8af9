package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"

	"github.com/noah-isme/gift-approval-api/pkg/config"
)

type mailDialer interface {
	DialAndSend(m ...*mail.Message) error
}

var giftMailBody = template.Must(template.New("gift").Parse(`<p>Gift request <strong>#{{.GiftID}}</strong> moved from
<strong>{{.From}}</strong> to <strong>{{.To}}</strong>.</p>
<ul>
<li>Action: {{.Tab}}/{{.Action}}</li>
<li>By: {{.ActorID}}</li>
{{if .BatchRef}}<li>Batch: {{.BatchRef}}</li>{{end}}
<li>At: {{.OccurredAt}}</li>
</ul>`))

// MailSender delivers notifications to a fixed operations mailbox over SMTP.
type MailSender struct {
	dialer mailDialer
	from   string
	to     []string
}

// NewMailSender dials cfg.Host with mandatory STARTTLS.
func NewMailSender(cfg config.SMTPConfig) (*MailSender, error) {
	if cfg.Host == "" || cfg.From == "" || len(cfg.To) == 0 {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM/SMTP_TO)")
	}
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: cfg.SkipTLSVerify} //nolint:gosec
	d.Timeout = 10 * time.Second
	return newMailSender(d, cfg.From, cfg.To), nil
}

func newMailSender(dialer mailDialer, from string, to []string) *MailSender {
	return &MailSender{dialer: dialer, from: from, to: to}
}

// Send implements NotificationSender.
func (s *MailSender) Send(ctx context.Context, n GiftNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var body strings.Builder
	err := giftMailBody.Execute(&body, map[string]interface{}{
		"GiftID":     n.GiftID,
		"From":       n.FromStatus,
		"To":         n.ToStatus,
		"Tab":        n.Tab,
		"Action":     n.Action,
		"ActorID":    n.ActorID,
		"BatchRef":   n.BatchRef,
		"OccurredAt": n.OccurredAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("render gift mail: %w", err)
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", fmt.Sprintf("Gift #%d: %s -> %s", n.GiftID, n.FromStatus, n.ToStatus))
	m.SetBody("text/html", body.String())
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send gift mail: %w", err)
	}
	return nil
}
