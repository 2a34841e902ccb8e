package notify

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// sendMailFunc matches smtp.SendMail.
type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailSender delivers reminders over SMTP. The channel config key
// "remetente" overrides the From address.
type EmailSender struct {
	smtp     SMTPConfig
	cfg      resilience.Config
	bulkhead *resilience.Bulkhead
	sendMail sendMailFunc
	logger   *zap.Logger
}

// NewEmailSender creates the sender.
func NewEmailSender(smtpCfg SMTPConfig, cfg resilience.Config, logger *zap.Logger) *EmailSender {
	return &EmailSender{
		smtp:     smtpCfg,
		cfg:      cfg,
		bulkhead: resilience.NewBulkhead(cfg.MaxConcurrency),
		sendMail: smtp.SendMail,
		logger:   logger,
	}
}

// Channel implements port.Sender.
func (s *EmailSender) Channel() domain.ChannelKind {
	return domain.ChannelEmail
}

// Send implements port.Sender.
func (s *EmailSender) Send(ctx context.Context, msg *port.Message) (*port.DeliveryReceipt, error) {
	ctx, span := tracer.Start(ctx, "EmailSender.Send")
	defer span.End()

	if s.smtp.Host == "" {
		return nil, resilience.Permanent(errors.New("servidor SMTP não configurado"))
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("e-mail inválido: %q", msg.To))
	}
	from, err := mail.ParseAddress(configValue(msg.Config, "remetente", s.smtp.From))
	if err != nil {
		return nil, resilience.Permanent(fmt.Errorf("remetente inválido: %w", err))
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.smtp.Host)
	raw := buildMessage(from, to, msg.Subject, msg.Body, messageID, time.Now())

	var auth smtp.Auth
	if s.smtp.User != "" {
		auth = smtp.PlainAuth("", s.smtp.User, s.smtp.Password, s.smtp.Host)
	}
	addr := net.JoinHostPort(s.smtp.Host, strconv.Itoa(s.smtp.Port))

	err = s.bulkhead.Do(ctx, func() error {
		return resilience.RetryWithBackoff(ctx, s.cfg, func() error {
			return s.sendMail(addr, auth, from.Address, []string{to.Address}, raw)
		})
	})
	if err != nil {
		s.logger.Warn("notify: smtp delivery failed",
			zap.String("to", to.Address),
			zap.Error(err),
		)
		return nil, &domain.ErrExternalService{Service: "smtp", Err: err}
	}

	return &port.DeliveryReceipt{ProviderID: messageID, Status: domain.DeliverySent}, nil
}

func buildMessage(from, to *mail.Address, subject, body, messageID string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from.String() + "\r\n")
	b.WriteString("To: " + to.String() + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("Message-ID: " + messageID + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}
