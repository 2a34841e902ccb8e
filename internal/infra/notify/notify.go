// Package notify delivers billing reminders through the supported channels:
// WhatsApp Business API, SMS gateway, e-mail (SMTP) and WhatsApp Web links.
package notify

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var tracer = otel.Tracer("notify")

// Registry resolves the sender of a channel kind.
type Registry struct {
	senders map[domain.ChannelKind]port.Sender
}

// NewRegistry indexes senders by their channel. Later senders replace
// earlier ones for the same channel.
func NewRegistry(senders ...port.Sender) *Registry {
	r := &Registry{senders: make(map[domain.ChannelKind]port.Sender, len(senders))}
	for _, s := range senders {
		r.senders[s.Channel()] = s
	}
	return r
}

// Sender returns the sender for kind.
func (r *Registry) Sender(kind domain.ChannelKind) (port.Sender, bool) {
	s, ok := r.senders[kind]
	return s, ok
}

// configValue returns the per-rule channel setting for key, or fallback.
func configValue(cfg map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(cfg[key]); v != "" {
		return v
	}
	return fallback
}

// normalizePhone keeps digits only and prefixes the Brazil country code to
// national numbers (DDD + 8 or 9 digits).
func normalizePhone(raw string) (string, error) {
	digits := domain.OnlyDigits(raw)
	switch {
	case len(digits) == 10 || len(digits) == 11:
		return "55" + digits, nil
	case len(digits) >= 12 && len(digits) <= 15:
		return digits, nil
	}
	return "", resilience.Permanent(fmt.Errorf("telefone inválido: %q", raw))
}
