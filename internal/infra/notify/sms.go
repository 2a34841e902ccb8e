package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

// SMSSender posts messages to an HTTP SMS gateway.
type SMSSender struct {
	transport *httpTransport
	apiURL    string
	token     string
}

// NewSMSSender creates the sender.
func NewSMSSender(httpClient *http.Client, apiURL, token string, cfg resilience.Config, logger *zap.Logger) *SMSSender {
	return &SMSSender{
		transport: newHTTPTransport("sms", httpClient, cfg, logger),
		apiURL:    strings.TrimRight(apiURL, "/"),
		token:     token,
	}
}

type smsRequest struct {
	To        string `json:"to"`
	From      string `json:"from,omitempty"`
	Message   string `json:"message"`
	Reference string `json:"reference,omitempty"`
}

type smsResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Channel implements port.Sender.
func (s *SMSSender) Channel() domain.ChannelKind {
	return domain.ChannelSMS
}

// Send implements port.Sender.
func (s *SMSSender) Send(ctx context.Context, msg *port.Message) (*port.DeliveryReceipt, error) {
	ctx, span := tracer.Start(ctx, "SMSSender.Send")
	defer span.End()

	to, err := normalizePhone(msg.To)
	if err != nil {
		return nil, err
	}
	apiURL := strings.TrimRight(configValue(msg.Config, "apiUrl", s.apiURL), "/")
	if apiURL == "" {
		return nil, resilience.Permanent(errors.New("gateway de SMS não configurado"))
	}

	req := smsRequest{
		To:        "+" + to,
		From:      configValue(msg.Config, "remetente", ""),
		Message:   msg.Body,
		Reference: msg.Reference,
	}
	var resp smsResponse
	token := configValue(msg.Config, "token", s.token)
	if err := s.transport.postJSON(ctx, apiURL+"/messages", token, msg.Reference, req, &resp); err != nil {
		return nil, err
	}

	status := domain.DeliverySent
	if resp.Status == string(domain.DeliveryDelivered) || resp.Status == "delivered" {
		status = domain.DeliveryDelivered
	}
	return &port.DeliveryReceipt{ProviderID: resp.ID, Status: status}, nil
}
