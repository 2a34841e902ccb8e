package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/cache"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/notify"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

var tenant = domain.Tenant{EmpresaID: "emp-1", FilialID: "fil-1"}

// --- Mocks ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(s string) *fakeClock {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(s string) {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type mockSender struct {
	mu      sync.Mutex
	channel domain.ChannelKind
	sent    []port.Message
	err     error
	onSend  func(msg *port.Message)
}

func (m *mockSender) Channel() domain.ChannelKind { return m.channel }

func (m *mockSender) Send(_ context.Context, msg *port.Message) (*port.DeliveryReceipt, error) {
	if m.onSend != nil {
		m.onSend(msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *msg)
	if m.err != nil {
		return nil, m.err
	}
	return &port.DeliveryReceipt{ProviderID: "prov-" + msg.Reference, Status: domain.DeliverySent}, nil
}

func (m *mockSender) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *mockSender) fail(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg == "" {
		m.err = nil
		return
	}
	m.err = errors.New(msg)
}

// --- Fixture ---

type env struct {
	store     *memstore.Store
	clock     *fakeClock
	metrics   *observability.Metrics
	sms       *mockSender
	email     *mockSender
	customers *service.CustomerService
	invoices  *service.InvoiceService
	payables  *service.PayableService
	hr        *service.HRService
	agenda    *service.AgendaService
	rules     *service.BillingRuleService
	history   *service.HistoryService
	engine    *service.ReminderEngine
	dashboard *service.DashboardService
	auth      *service.AuthService
}

func newEnv(now string) *env {
	logger := zap.NewNop()
	st := memstore.New()
	clock := newClock(now)
	metrics := observability.NewMetrics()
	sms := &mockSender{channel: domain.ChannelSMS}
	email := &mockSender{channel: domain.ChannelEmail}

	agenda := service.NewAgendaService(st, cache.New[domain.HolidaySet](time.Hour), clock, metrics, "https://meet.example.com", logger)
	return &env{
		store:     st,
		clock:     clock,
		metrics:   metrics,
		sms:       sms,
		email:     email,
		customers: service.NewCustomerService(st, st, st, clock, logger),
		invoices:  service.NewInvoiceService(st, st, clock, logger),
		payables:  service.NewPayableService(st, clock, logger),
		hr:        service.NewHRService(st, clock, logger),
		agenda:    agenda,
		rules:     service.NewBillingRuleService(st, agenda, clock, logger),
		history:   service.NewHistoryService(st, logger),
		engine:    service.NewReminderEngine(st, st, st, st, agenda, notify.NewRegistry(sms, email), metrics, logger),
		dashboard: service.NewDashboardService(st, st, st, st, st, agenda, clock, logger),
		auth:      service.NewAuthService(st, clock, "test-secret", time.Hour, logger),
	}
}

func (e *env) mustCustomer(nome, phone, email string) *domain.Customer {
	c, err := e.customers.Create(context.Background(), tenant, &domain.Customer{Nome: nome, Telefone: phone, Email: email})
	if err != nil {
		panic(err)
	}
	return c
}

func (e *env) mustInvoice(clienteID, numero, due string, amount int64) *domain.Invoice {
	inv, err := e.invoices.Create(context.Background(), tenant, &domain.Invoice{
		CarteiraID:     "cart-1",
		ClienteID:      clienteID,
		Numero:         numero,
		Amount:         decimal.NewFromInt(amount),
		DataVencimento: due,
	})
	if err != nil {
		panic(err)
	}
	return inv
}

func smsRule() *domain.BillingRule {
	return &domain.BillingRule{
		CarteiraID:    "cart-1",
		Nome:          "Régua SMS",
		Ativa:         true,
		DaysBeforeDue: []int{3},
		DaysAfterDue:  []int{2},
		Settings:      domain.RuleSettings{SendTime: "09:00", MaxAttempts: 3, RetryIntervalMinutes: 30},
		Channels: []domain.Channel{{
			Tipo:  domain.ChannelSMS,
			Ativo: true,
			Templates: []domain.Template{
				{Tipo: domain.MessagePreReminder, Dias: -3, Conteudo: "Olá {{nomeCliente}}, a fatura {{numeroFatura}} de {{valorFatura}} vence em {{dataVencimento}}."},
				{Tipo: domain.MessageDueDate, Dias: 0, Conteudo: "Sua fatura {{numeroFatura}} vence hoje."},
				{Tipo: domain.MessageOverdue, Dias: 2, Conteudo: "Fatura {{numeroFatura}} vencida. Total: {{valorTotal}}."},
			},
		}},
	}
}
