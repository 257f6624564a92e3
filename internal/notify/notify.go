// Package notify sends a summary of failed candidates by e-mail.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"gigsync/internal/config"
)

var tracer = otel.Tracer("gigsync/notify")

// Failure is one candidate that could not be processed.
type Failure struct {
	URL   string
	Title string
	Err   string
}

// Summary describes a finished run.
type Summary struct {
	Finished  time.Time
	Failures  []Failure
	Processed int
	Added     int
	Updated   int
}

// Sender delivers a prepared message.
type Sender interface {
	Send(ctx context.Context, mail *email.Email) error
}

// SMTPSender sends through an SMTP server with plain auth, falling back to
// no auth when the server does not offer it.
type SMTPSender struct {
	cfg *config.NotifyConfig
}

// NewSMTPSender creates a sender from the notify configuration.
func NewSMTPSender(cfg *config.NotifyConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// Send delivers mail.
func (s *SMTPSender) Send(ctx context.Context, mail *email.Email) error {
	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPServer, s.cfg.SMTPPort)

	err := mail.Send(addr, smtp.PlainAuth("", s.cfg.From, s.cfg.Password, s.cfg.SMTPServer))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")

		return fmt.Errorf("failed to send failure summary: %w", err)
	}

	return nil
}

// Notifier mails failure summaries.
type Notifier struct {
	sender Sender
	cfg    *config.NotifyConfig
}

// NewNotifier creates a notifier. It returns nil when notification is not configured.
func NewNotifier(cfg *config.NotifyConfig, sender Sender) *Notifier {
	if !cfg.Enabled() {
		return nil
	}

	if sender == nil {
		sender = NewSMTPSender(cfg)
	}

	return &Notifier{sender: sender, cfg: cfg}
}

// NotifyFailures sends the summary when it lists at least one failure. A nil
// notifier does nothing.
func (n *Notifier) NotifyFailures(ctx context.Context, summary Summary) error {
	if n == nil || len(summary.Failures) == 0 {
		return nil
	}

	return n.sender.Send(ctx, BuildMessage(n.cfg, summary))
}

// BuildMessage renders the summary e-mail.
func BuildMessage(cfg *config.NotifyConfig, summary Summary) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("gigsync <%s>", cfg.From)
	mail.To = cfg.To
	mail.Subject = fmt.Sprintf("gigsync: %d candidate(s) failed", len(summary.Failures))

	var body strings.Builder

	fmt.Fprintf(&body, "Run finished at %s.\n", summary.Finished.Format(time.RFC3339))
	fmt.Fprintf(&body, "Processed %d candidate(s); sheet rows added %d, updated %d.\n\n", summary.Processed, summary.Added, summary.Updated)
	body.WriteString("Failed candidates:\n")

	for _, f := range summary.Failures {
		fmt.Fprintf(&body, "- %s (%s)\n  %s\n", f.Title, f.URL, f.Err)
	}

	mail.Text = []byte(body.String())

	return mail
}
