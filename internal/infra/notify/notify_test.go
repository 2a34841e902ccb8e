package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var testCfg = resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxConcurrency: 2}

func TestNormalizePhone(t *testing.T) {
	got, err := normalizePhone("(11) 98765-4321")
	require.NoError(t, err)
	assert.Equal(t, "5511987654321", got)

	got, err = normalizePhone("+55 11 3333-4444")
	require.NoError(t, err)
	assert.Equal(t, "551133334444", got)

	_, err = normalizePhone("123")
	assert.True(t, resilience.IsPermanent(err))
}

func TestWhatsAppBusinessSender_Send(t *testing.T) {
	var got waTextMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v19.0/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "ref-1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.abc"}]}`))
	}))
	defer srv.Close()

	s := NewWhatsAppBusinessSender(srv.Client(), srv.URL+"/v19.0/123/", "tok", testCfg, zap.NewNop())
	receipt, err := s.Send(context.Background(), &port.Message{
		Channel:   domain.ChannelWhatsAppBusiness,
		To:        "11 98765-4321",
		Body:      "Olá",
		Reference: "ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "wamid.abc", receipt.ProviderID)
	assert.Equal(t, domain.DeliverySent, receipt.Status)
	assert.Equal(t, "5511987654321", got.To)
	assert.Equal(t, "Olá", got.Text.Body)
}

func TestWhatsAppBusinessSender_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWhatsAppBusinessSender(srv.Client(), srv.URL, "", testCfg, zap.NewNop())
	_, err := s.Send(context.Background(), &port.Message{To: "11987654321", Body: "x"})

	var ext *domain.ErrExternalService
	assert.ErrorAs(t, err, &ext)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSMSSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var req smsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "+5511987654321", req.To)
		assert.Equal(t, "EMPRESA", req.From)
		_, _ = w.Write([]byte(`{"id":"sms-9","status":"queued"}`))
	}))
	defer srv.Close()

	s := NewSMSSender(srv.Client(), srv.URL, "", testCfg, zap.NewNop())
	receipt, err := s.Send(context.Background(), &port.Message{
		To:     "11987654321",
		Body:   "Lembrete",
		Config: map[string]string{"remetente": "EMPRESA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sms-9", receipt.ProviderID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSMSSender_NotConfigured(t *testing.T) {
	s := NewSMSSender(http.DefaultClient, "", "", testCfg, zap.NewNop())
	_, err := s.Send(context.Background(), &port.Message{To: "11987654321", Body: "x"})
	assert.True(t, resilience.IsPermanent(err))
}

func TestEmailSender_Send(t *testing.T) {
	s := NewEmailSender(SMTPConfig{Host: "smtp.test", Port: 587, User: "u", Password: "p", From: "cobranca@empresa.com"}, testCfg, zap.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	receipt, err := s.Send(context.Background(), &port.Message{
		To:      "Cliente <cliente@example.com>",
		Subject: "Fatura vencendo",
		Body:    "linha 1\nlinha 2",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, "cobranca@empresa.com", gotFrom)
	assert.Equal(t, []string{"cliente@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Fatura vencendo\r\n")
	assert.True(t, strings.HasSuffix(string(gotMsg), "linha 1\r\nlinha 2"))
	assert.NotEmpty(t, receipt.ProviderID)
}

func TestEmailSender_InvalidAddress(t *testing.T) {
	s := NewEmailSender(SMTPConfig{Host: "smtp.test", Port: 25, From: "a@b.com"}, testCfg, zap.NewNop())
	_, err := s.Send(context.Background(), &port.Message{To: "not-an-email", Body: "x"})
	assert.True(t, resilience.IsPermanent(err))
}

func TestWhatsAppWebSender_BuildsLink(t *testing.T) {
	s := NewWhatsAppWebSender()
	receipt, err := s.Send(context.Background(), &port.Message{To: "(11) 98765-4321", Body: "Olá João"})
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/5511987654321?text=Ol%C3%A1+Jo%C3%A3o", receipt.Link)
	assert.Equal(t, domain.DeliverySent, receipt.Status)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewWhatsAppWebSender(), NewSMSSender(http.DefaultClient, "", "", testCfg, zap.NewNop()))

	s, ok := r.Sender(domain.ChannelWhatsAppWeb)
	require.True(t, ok)
	assert.Equal(t, domain.ChannelWhatsAppWeb, s.Channel())

	_, ok = r.Sender(domain.ChannelEmail)
	assert.False(t, ok)
}
