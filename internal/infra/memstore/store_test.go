package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var (
	_ port.CustomerStore = (*Store)(nil)
	_ port.InvoiceStore  = (*Store)(nil)
	_ port.PayableStore  = (*Store)(nil)
	_ port.HRStore       = (*Store)(nil)
	_ port.AgendaStore   = (*Store)(nil)
	_ port.RuleStore     = (*Store)(nil)
	_ port.HistoryStore  = (*Store)(nil)
	_ port.UserStore     = (*Store)(nil)
)

var (
	tenantA = domain.Tenant{EmpresaID: "emp-1", FilialID: "fil-1"}
	tenantB = domain.Tenant{EmpresaID: "emp-1", FilialID: "fil-2"}
)

func TestStore_CustomerCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	c := &domain.Customer{ID: "c1", Tenant: tenantA, Nome: "Padaria Sol"}
	require.NoError(t, s.CreateCustomer(ctx, c))

	got, err := s.GetCustomer(ctx, tenantA, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Padaria Sol", got.Nome)

	// returned copies do not alias the stored record
	got.Nome = "changed"
	again, _ := s.GetCustomer(ctx, tenantA, "c1")
	assert.Equal(t, "Padaria Sol", again.Nome)

	c.Nome = "Padaria Sol Nascente"
	require.NoError(t, s.UpdateCustomer(ctx, c))
	again, _ = s.GetCustomer(ctx, tenantA, "c1")
	assert.Equal(t, "Padaria Sol Nascente", again.Nome)

	require.NoError(t, s.DeleteCustomer(ctx, tenantA, "c1"))
	_, err = s.GetCustomer(ctx, tenantA, "c1")
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestStore_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateCustomer(ctx, &domain.Customer{ID: "c1", Tenant: tenantA, Nome: "A"}))
	require.NoError(t, s.CreateCustomer(ctx, &domain.Customer{ID: "c2", Tenant: tenantB, Nome: "B"}))

	_, err := s.GetCustomer(ctx, tenantB, "c1")
	assert.Error(t, err)
	assert.Error(t, s.DeleteCustomer(ctx, tenantB, "c1"))
	assert.Error(t, s.UpdateCustomer(ctx, &domain.Customer{ID: "c1", Tenant: tenantB, Nome: "hijack"}))

	list, err := s.ListCustomers(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "c1", list[0].ID)
}

func TestStore_CreateRequiresTenantAndUniqueID(t *testing.T) {
	ctx := context.Background()
	s := New()

	err := s.CreateInvoice(ctx, &domain.Invoice{ID: "f1"})
	var tr *domain.ErrTenantRequired
	assert.ErrorAs(t, err, &tr)

	require.NoError(t, s.CreateInvoice(ctx, &domain.Invoice{ID: "f1", Tenant: tenantA}))
	err = s.CreateInvoice(ctx, &domain.Invoice{ID: "f1", Tenant: tenantA})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestStore_ListOpenInvoicesByPortfolio(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, inv := range []domain.Invoice{
		{ID: "f1", Tenant: tenantA, CarteiraID: "cart-1", Status: domain.StatusPending, Amount: decimal.NewFromInt(10)},
		{ID: "f2", Tenant: tenantA, CarteiraID: "cart-1", Status: domain.StatusPaid},
		{ID: "f3", Tenant: tenantA, CarteiraID: "cart-2", Status: domain.StatusPending},
		{ID: "f4", Tenant: tenantA, CarteiraID: "cart-1", Status: domain.StatusOverdue},
		{ID: "f5", Tenant: tenantB, CarteiraID: "cart-1", Status: domain.StatusPending},
	} {
		inv := inv
		require.NoError(t, s.CreateInvoice(ctx, &inv))
	}

	open, err := s.ListOpenInvoicesByPortfolio(ctx, tenantA, "cart-1")
	require.NoError(t, err)
	ids := make([]string, 0, len(open))
	for _, inv := range open {
		ids = append(ids, inv.ID)
	}
	assert.Equal(t, []string{"f1", "f4"}, ids)
}

func TestStore_HistoryLookups(t *testing.T) {
	ctx := context.Background()
	s := New()

	h := &domain.CollectionHistory{
		ID: "h1", Tenant: tenantA, RegraID: "r1", FaturaID: "f1",
		Canal: domain.ChannelSMS, DataDisparo: "2024-06-09",
		Status: domain.DeliveryError, Tentativas: 1,
	}
	require.NoError(t, s.CreateHistory(ctx, h))

	got, err := s.FindHistoryByKey(ctx, tenantA, domain.HistoryKey("r1", "f1", domain.ChannelSMS, "2024-06-09"))
	require.NoError(t, err)
	assert.Equal(t, "h1", got.ID)

	_, err = s.FindHistoryByKey(ctx, tenantB, h.DedupeKey())
	assert.Error(t, err)

	retry, _ := s.ListRetryable(ctx, tenantA, 3, "r1")
	assert.Len(t, retry, 1)
	retry, _ = s.ListRetryable(ctx, tenantA, 1, "r1")
	assert.Empty(t, retry)

	list, _ := s.ListHistory(ctx, tenantA, domain.HistoryFilter{Canal: domain.ChannelEmail})
	assert.Empty(t, list)
}

func TestStore_ListActiveRulesSpansTenants(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateRule(ctx, &domain.BillingRule{ID: "r1", Tenant: tenantA, Ativa: true, Status: domain.RuleActive}))
	require.NoError(t, s.CreateRule(ctx, &domain.BillingRule{ID: "r2", Tenant: tenantB, Ativa: true, Status: domain.RuleActive}))
	require.NoError(t, s.CreateRule(ctx, &domain.BillingRule{ID: "r3", Tenant: tenantA, Ativa: false}))
	require.NoError(t, s.CreateRule(ctx, &domain.BillingRule{ID: "r4", Tenant: tenantA, Ativa: true, Status: domain.RulePaused}))

	rules, err := s.ListActiveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestStore_UpdateRuleStateKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2024, 6, 7, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.CreateRule(ctx, &domain.BillingRule{ID: "r1", Tenant: tenantA, Nome: "Régua", Ativa: true, Status: domain.RuleActive}))
	require.NoError(t, s.UpdateRule(ctx, &domain.BillingRule{ID: "r1", Tenant: tenantA, Nome: "Régua nova", Ativa: false, Status: domain.RuleActive}))

	require.NoError(t, s.UpdateRuleState(ctx, tenantA, "r1", 2, "", at))
	got, err := s.GetRule(ctx, tenantA, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Régua nova", got.Nome)
	assert.False(t, got.Ativa)
	assert.Equal(t, domain.RuleActive, got.Status)
	assert.Equal(t, 2, got.ConsecutiveErrors)
	assert.Equal(t, at, got.UpdatedAt)

	require.NoError(t, s.UpdateRuleState(ctx, tenantA, "r1", 3, domain.RulePaused, at))
	got, err = s.GetRule(ctx, tenantA, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RulePaused, got.Status)

	var nf *domain.ErrNotFound
	assert.ErrorAs(t, s.UpdateRuleState(ctx, tenantB, "r1", 0, "", at), &nf)
}

func TestStore_UsersByEmail(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := &domain.User{ID: "u1", Email: "Admin@Empresa.com", EmpresaID: "emp-1"}
	require.NoError(t, s.CreateUser(ctx, u))

	got, err := s.GetUserByEmail(ctx, "admin@empresa.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	err = s.CreateUser(ctx, &domain.User{ID: "u2", Email: "admin@empresa.com", EmpresaID: "emp-1"})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}
