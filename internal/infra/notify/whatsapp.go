package notify

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

// WhatsAppBusinessSender sends text messages through a Graph-style WhatsApp
// Business Cloud API. A rule may override the endpoint and token with the
// channel config keys "apiUrl" and "token".
type WhatsAppBusinessSender struct {
	transport *httpTransport
	apiURL    string
	token     string
}

// NewWhatsAppBusinessSender creates the sender. apiURL is the phone-number
// endpoint, e.g. https://graph.facebook.com/v19.0/<phone-number-id>.
func NewWhatsAppBusinessSender(httpClient *http.Client, apiURL, token string, cfg resilience.Config, logger *zap.Logger) *WhatsAppBusinessSender {
	return &WhatsAppBusinessSender{
		transport: newHTTPTransport("whatsapp_business_api", httpClient, cfg, logger),
		apiURL:    strings.TrimRight(apiURL, "/"),
		token:     token,
	}
}

type waTextMessage struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		PreviewURL bool   `json:"preview_url"`
		Body       string `json:"body"`
	} `json:"text"`
}

type waSendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Channel implements port.Sender.
func (s *WhatsAppBusinessSender) Channel() domain.ChannelKind {
	return domain.ChannelWhatsAppBusiness
}

// Send implements port.Sender.
func (s *WhatsAppBusinessSender) Send(ctx context.Context, msg *port.Message) (*port.DeliveryReceipt, error) {
	ctx, span := tracer.Start(ctx, "WhatsAppBusinessSender.Send")
	defer span.End()

	to, err := normalizePhone(msg.To)
	if err != nil {
		return nil, err
	}
	apiURL := strings.TrimRight(configValue(msg.Config, "apiUrl", s.apiURL), "/")
	if apiURL == "" {
		return nil, resilience.Permanent(errors.New("whatsapp business api não configurada"))
	}
	span.SetAttributes(attribute.String("notify.channel", string(s.Channel())))

	payload := waTextMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
	}
	payload.Text.Body = msg.Body

	var resp waSendResponse
	token := configValue(msg.Config, "token", s.token)
	if err := s.transport.postJSON(ctx, apiURL+"/messages", token, msg.Reference, payload, &resp); err != nil {
		return nil, err
	}

	receipt := &port.DeliveryReceipt{Status: domain.DeliverySent}
	if len(resp.Messages) > 0 {
		receipt.ProviderID = resp.Messages[0].ID
	}
	return receipt, nil
}

// WhatsAppWebSender does not deliver anything itself: it builds a wa.me
// click-to-chat link with the message pre-filled, which an operator opens.
type WhatsAppWebSender struct{}

// NewWhatsAppWebSender creates the sender.
func NewWhatsAppWebSender() *WhatsAppWebSender {
	return &WhatsAppWebSender{}
}

// Channel implements port.Sender.
func (s *WhatsAppWebSender) Channel() domain.ChannelKind {
	return domain.ChannelWhatsAppWeb
}

// Send implements port.Sender.
func (s *WhatsAppWebSender) Send(ctx context.Context, msg *port.Message) (*port.DeliveryReceipt, error) {
	_, span := tracer.Start(ctx, "WhatsAppWebSender.Send")
	defer span.End()

	to, err := normalizePhone(msg.To)
	if err != nil {
		return nil, err
	}
	link := "https://wa.me/" + to + "?text=" + url.QueryEscape(msg.Body)
	return &port.DeliveryReceipt{Status: domain.DeliverySent, Link: link}, nil
}
