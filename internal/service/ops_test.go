package service_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

func (e *env) mustHistory(id string, canal domain.ChannelKind, status domain.DeliveryStatus, date string) {
	err := e.store.CreateHistory(context.Background(), &domain.CollectionHistory{
		ID:          id,
		Tenant:      tenant,
		FaturaID:    "fat-1",
		ClienteID:   "cli-1",
		RegraID:     "reg-1",
		Canal:       canal,
		DataDisparo: date,
		Status:      status,
		Tentativas:  1,
		CreatedAt:   e.clock.Now(),
	})
	if err != nil {
		panic(err)
	}
}

func TestHistory_StatusOnlyMovesForward(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()
	e.mustHistory("h-1", domain.ChannelSMS, domain.DeliverySent, "2024-06-07")

	h, err := e.history.UpdateStatus(ctx, tenant, "h-1", &domain.StatusUpdate{Status: domain.DeliveryRead})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRead, h.Status)

	_, err = e.history.UpdateStatus(ctx, tenant, "h-1", &domain.StatusUpdate{Status: domain.DeliveryDelivered})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)

	same, err := e.history.UpdateStatus(ctx, tenant, "h-1", &domain.StatusUpdate{Status: domain.DeliveryRead})
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryRead, same.Status)

	_, err = e.history.UpdateStatus(ctx, tenant, "h-1", &domain.StatusUpdate{Status: "perdido"})
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}

func TestHistory_ListAndStats(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()
	e.mustHistory("h-1", domain.ChannelSMS, domain.DeliverySent, "2024-06-05")
	e.mustHistory("h-2", domain.ChannelEmail, domain.DeliveryError, "2024-06-07")
	e.mustHistory("h-3", domain.ChannelSMS, domain.DeliveryRead, "2024-06-06")
	e.mustHistory("h-4", domain.ChannelSMS, domain.DeliveryDelivered, "2024-06-07")

	list, err := e.history.List(ctx, tenant, domain.HistoryFilter{Canal: domain.ChannelSMS})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "h-4", list[0].ID)
	assert.Equal(t, "h-1", list[2].ID)

	stats, err := e.history.Stats(ctx, tenant, domain.HistoryFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 3, stats.PorCanal[domain.ChannelSMS])
	assert.Equal(t, 1, stats.PorStatus[domain.DeliveryError])
	assert.InDelta(t, 0.25, stats.TaxaErro, 1e-9)
}

func TestDashboard_Summary(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()

	ana := e.mustCustomer("Ana", "", "")
	_, err := e.customers.Create(ctx, tenant, &domain.Customer{Nome: "Antigo", Status: domain.CustomerInactive})
	require.NoError(t, err)
	e.mustInvoice(ana.ID, "NF-1", "2024-06-10", 100)
	e.mustInvoice(ana.ID, "NF-2", "2024-06-20", 200)
	paid := e.mustInvoice(ana.ID, "NF-3", "2024-06-05", 300)
	_, err = e.invoices.Pay(ctx, tenant, paid.ID, &domain.PaymentRequest{})
	require.NoError(t, err)

	_, err = e.payables.Create(ctx, tenant, &domain.Payable{Fornecedor: "Energia", Amount: decimal.NewFromInt(80), DataVencimento: "2024-06-01"})
	require.NoError(t, err)
	_, err = e.payables.Create(ctx, tenant, &domain.Payable{Fornecedor: "Internet", Amount: decimal.NewFromInt(120), DataVencimento: "2024-06-30"})
	require.NoError(t, err)

	_, err = e.hr.CreateEmployee(ctx, tenant, &domain.Employee{Nome: "Carla"})
	require.NoError(t, err)
	_, err = e.hr.CreateEmployee(ctx, tenant, &domain.Employee{Nome: "Davi", Status: domain.EmployeeTerminated})
	require.NoError(t, err)

	e.mustHistory("h-1", domain.ChannelSMS, domain.DeliverySent, "2024-06-12")
	e.mustHistory("h-2", domain.ChannelSMS, domain.DeliveryError, "2024-06-12")
	e.mustHistory("h-3", domain.ChannelSMS, domain.DeliverySent, "2024-06-11")

	_, err = e.agenda.CreateEvent(ctx, tenant, &domain.Event{
		Titulo: "Reunião com contador", Inicio: time.Date(2024, 6, 13, 15, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = e.agenda.CreateEvent(ctx, tenant, &domain.Event{
		Titulo: "Evento passado", Inicio: time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	sum, err := e.dashboard.Summary(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, "300", sum.ReceberEmAberto.String())
	assert.Equal(t, "100", sum.ReceberVencido.String())
	assert.Equal(t, "300", sum.RecebidoNoMes.String())
	assert.Equal(t, "200", sum.PagarEmAberto.String())
	assert.Equal(t, "80", sum.PagarVencido.String())
	assert.Equal(t, 1, sum.ClientesAtivos)
	assert.Equal(t, 1, sum.ColaboradoresAtivos)
	assert.Equal(t, 1, sum.LembretesHoje)
	require.Len(t, sum.ProximosEventos, 1)
	assert.Equal(t, "Reunião com contador", sum.ProximosEventos[0].Titulo)
}

func TestDashboard_RequiresTenant(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	_, err := e.dashboard.Summary(context.Background(), domain.Tenant{EmpresaID: "emp-1"})
	var tr *domain.ErrTenantRequired
	assert.ErrorAs(t, err, &tr)
}

func TestAuth_LoginAndValidate(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()
	require.NoError(t, e.auth.SeedAdmin(ctx, "Admin@Example.com", "s3nha-forte", "emp-1", ""))
	// seeding twice is a no-op
	require.NoError(t, e.auth.SeedAdmin(ctx, "admin@example.com", "outra", "emp-1", ""))

	resp, err := e.auth.Login(ctx, &domain.LoginRequest{Email: " ADMIN@example.com ", Password: "s3nha-forte"})
	require.NoError(t, err)
	assert.Equal(t, "emp-1", resp.EmpresaID)
	assert.Equal(t, 3600, resp.ExpiresIn)
	require.NotEmpty(t, resp.AccessToken)

	claims, err := e.auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.Sub)
	assert.Equal(t, "emp-1", claims.EmpresaID)
	assert.Empty(t, claims.FilialID)

	e.clock.Set("2024-06-12 11:30")
	_, err = e.auth.ValidateAccessToken(resp.AccessToken)
	var unauth *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauth)

	_, err = e.auth.ValidateAccessToken("not-a-token")
	assert.ErrorAs(t, err, &unauth)
}

func TestAuth_LockoutAfterFailedAttempts(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()
	require.NoError(t, e.auth.SeedAdmin(ctx, "admin@example.com", "s3nha-forte", "emp-1", "fil-1"))

	var unauth *domain.ErrUnauthorized
	for i := 0; i < 5; i++ {
		_, err := e.auth.Login(ctx, &domain.LoginRequest{Email: "admin@example.com", Password: "errada"})
		require.ErrorAs(t, err, &unauth)
	}

	_, err := e.auth.Login(ctx, &domain.LoginRequest{Email: "admin@example.com", Password: "s3nha-forte"})
	require.ErrorAs(t, err, &unauth)
	assert.Contains(t, unauth.Message, "bloqueada")

	e.clock.Set("2024-06-12 10:16")
	resp, err := e.auth.Login(ctx, &domain.LoginRequest{Email: "admin@example.com", Password: "s3nha-forte"})
	require.NoError(t, err)
	assert.Equal(t, "fil-1", resp.FilialID)
}

type countingRunner struct {
	calls atomic.Int32
	ran   chan struct{}
}

func (r *countingRunner) RunOnce(ctx context.Context, now time.Time) (*domain.RunReport, error) {
	if r.calls.Add(1) == 1 {
		close(r.ran)
	}
	return &domain.RunReport{ExecutadoEm: now}, nil
}

func TestScheduler_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	runner := &countingRunner{ran: make(chan struct{})}
	sched := service.NewScheduler(runner, newClock("2024-06-12 10:00"), time.Hour, 0, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	select {
	case <-runner.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not run on start")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), runner.calls.Load())
}
