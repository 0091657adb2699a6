package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const defaultFromName = "Agenda Health AI"

// ErrNotConfigured is returned by a sender built without its transport.
var ErrNotConfigured = errors.New("notify: email transport not configured")

// EmailSender delivers one email.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a clinic-facing email. Body is plain text; HTML is optional.
// Category tags the message on the provider side ("booking").
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Body     string
	HTML     string
	Category string
}

// Identity is the sender address shown to the clinic.
type Identity struct {
	Email string
	Name  string
}

func (i Identity) withDefaults() Identity {
	i.Email = strings.TrimSpace(i.Email)
	i.Name = strings.TrimSpace(i.Name)
	if i.Name == "" {
		i.Name = defaultFromName
	}
	return i
}

func (i Identity) String() string {
	return fmt.Sprintf("%s <%s>", i.Name, i.Email)
}

// maskAddress keeps only the first letter of the mailbox so logs do not carry
// full addresses.
func maskAddress(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}

// SendGridSender delivers through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   Identity
	logger *logging.Logger
}

type SendGridConfig struct {
	APIKey string
	From   Identity
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGridSender{
		client: sendgrid.NewSendClient(cfg.APIKey),
		from:   cfg.From.withDefaults(),
		logger: logger.WithComponent("notify.sendgrid"),
	}
}

func buildSendGridMail(from Identity, msg EmailMessage) *mail.SGMailV3 {
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	m := mail.NewSingleEmail(mail.NewEmail(from.Name, from.Email), msg.Subject, mail.NewEmail(msg.ToName, msg.To), msg.Body, html)
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	return m
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return ErrNotConfigured
	}

	resp, err := s.client.SendWithContext(ctx, buildSendGridMail(s.from, msg))
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		s.logger.Warn("sendgrid rejected email", "status", resp.StatusCode, "body", resp.Body, "to", maskAddress(msg.To))
		return fmt.Errorf("notify: sendgrid returned status %d", resp.StatusCode)
	}

	s.logger.Info("email sent", "to", maskAddress(msg.To), "category", msg.Category, "status", resp.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending. Used when email is disabled.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger.WithComponent("notify.stub")}
}

func (s *StubEmailSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email disabled, not sending", "to", maskAddress(msg.To), "subject", msg.Subject, "category", msg.Category)
	return nil
}
