package service_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

func TestCustomer_CreateValidates(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	_, err := e.customers.Create(context.Background(), tenant, &domain.Customer{Nome: "  "})
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "nome", v.Field)

	_, err = e.customers.Create(context.Background(), tenant, &domain.Customer{Nome: "Ana", Email: "nao-e-email"})
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "email", v.Field)
}

func TestCustomer_ListSearchAndEmptyResult(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()
	e.mustCustomer("Zeca Materiais", "", "zeca@example.com")
	e.mustCustomer("Ana Confecções", "", "ana@example.com")

	all, err := e.customers.List(ctx, tenant, domain.CustomerFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana Confecções", all[0].Nome)

	found, err := e.customers.List(ctx, tenant, domain.CustomerFilter{Search: "zeca"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := e.customers.List(ctx, tenant, domain.CustomerFilter{Search: "inexistente"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCustomer_DeleteWithOpenInvoicesConflicts(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()
	c := e.mustCustomer("Ana", "", "")
	inv := e.mustInvoice(c.ID, "NF-1", "2024-06-10", 100)

	err := e.customers.Delete(ctx, tenant, c.ID)
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	_, err = e.invoices.Pay(ctx, tenant, inv.ID, &domain.PaymentRequest{})
	require.NoError(t, err)
	assert.NoError(t, e.customers.Delete(ctx, tenant, c.ID))
}

func TestCustomer_Details(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()
	c := e.mustCustomer("Ana", "", "")
	e.mustInvoice(c.ID, "NF-1", "2024-06-10", 100) // overdue
	e.mustInvoice(c.ID, "NF-2", "2024-06-20", 50)
	paid := e.mustInvoice(c.ID, "NF-3", "2024-06-01", 70)
	_, err := e.invoices.Pay(ctx, tenant, paid.ID, &domain.PaymentRequest{ValorPago: decimal.NewFromInt(70)})
	require.NoError(t, err)

	d, err := e.customers.Details(ctx, tenant, c.ID)
	require.NoError(t, err)
	require.Len(t, d.FaturasAbertas, 2)
	assert.Equal(t, "NF-1", d.FaturasAbertas[0].Numero)
	assert.Equal(t, domain.StatusOverdue, d.FaturasAbertas[0].Status)
	assert.Equal(t, "150", d.TotalEmAberto.String())
	assert.Equal(t, "100", d.TotalVencido.String())
	assert.Equal(t, "70", d.TotalRecebido.String())
	assert.Empty(t, d.UltimosLembretes)
}

func TestInvoice_CreateChecksCustomerAndNumber(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()

	_, err := e.invoices.Create(ctx, tenant, &domain.Invoice{
		ClienteID: "missing", Numero: "1", Amount: decimal.NewFromInt(10), DataVencimento: "2024-06-10",
	})
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "clienteId", v.Field)

	c := e.mustCustomer("Ana", "", "")
	_, err = e.invoices.Create(ctx, tenant, &domain.Invoice{
		ClienteID: c.ID, Numero: "1", Amount: decimal.Zero, DataVencimento: "2024-06-10",
	})
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "valor", v.Field)

	_, err = e.invoices.Create(ctx, tenant, &domain.Invoice{
		ClienteID: c.ID, Numero: "1", Amount: decimal.NewFromInt(10), DataVencimento: "10/06/2024",
	})
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "dataVencimento", v.Field)

	e.mustInvoice(c.ID, "NF-1", "2024-06-10", 10)
	_, err = e.invoices.Create(ctx, tenant, &domain.Invoice{
		ClienteID: c.ID, Numero: "nf-1", Amount: decimal.NewFromInt(10), DataVencimento: "2024-06-10",
	})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestInvoice_ListFiltersAndDerivesOverdue(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()
	ana := e.mustCustomer("Ana Confecções", "", "")
	bia := e.mustCustomer("Bia Calçados", "", "")
	e.mustInvoice(ana.ID, "NF-2", "2024-06-20", 100)
	e.mustInvoice(ana.ID, "NF-1", "2024-06-10", 100)
	e.mustInvoice(bia.ID, "NF-3", "2024-06-30", 100)

	all, err := e.invoices.List(ctx, tenant, domain.InvoiceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "NF-1", all[0].Numero)
	assert.Equal(t, domain.StatusOverdue, all[0].Status)

	overdue, err := e.invoices.List(ctx, tenant, domain.InvoiceFilter{Status: domain.StatusOverdue})
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	byName, err := e.invoices.List(ctx, tenant, domain.InvoiceFilter{Search: "calçados"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "NF-3", byName[0].Numero)

	period, err := e.invoices.List(ctx, tenant, domain.InvoiceFilter{From: "2024-06-15", To: "2024-06-25"})
	require.NoError(t, err)
	require.Len(t, period, 1)
	assert.Equal(t, "NF-2", period[0].Numero)

	none, err := e.invoices.List(ctx, tenant, domain.InvoiceFilter{Search: "xyz"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvoice_Pay(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()
	c := e.mustCustomer("Ana", "", "")
	inv, err := e.invoices.Create(ctx, tenant, &domain.Invoice{
		ClienteID: c.ID, Numero: "NF-1", Amount: decimal.NewFromInt(100), Discount: decimal.NewFromInt(10), DataVencimento: "2024-06-20",
	})
	require.NoError(t, err)

	paid, err := e.invoices.Pay(ctx, tenant, inv.ID, &domain.PaymentRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)
	assert.Equal(t, "2024-06-12", paid.DataPagamento)
	assert.Equal(t, "90.00", paid.AmountPaid.StringFixed(2))

	_, err = e.invoices.Pay(ctx, tenant, inv.ID, &domain.PaymentRequest{})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestInvoice_OtherTenantCannotRead(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	c := e.mustCustomer("Ana", "", "")
	inv := e.mustInvoice(c.ID, "NF-1", "2024-06-20", 100)

	_, err := e.invoices.Get(context.Background(), domain.Tenant{EmpresaID: "emp-1", FilialID: "fil-2"}, inv.ID)
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}

func TestPayable_ListEmptyWhenSearchMatchesNothing(t *testing.T) {
	e := newEnv("2024-06-12 10:00")
	ctx := context.Background()
	_, err := e.payables.Create(ctx, tenant, &domain.Payable{
		Fornecedor: "Energia SA", Categoria: "utilidades", Amount: decimal.NewFromInt(300), DataVencimento: "2024-06-15",
	})
	require.NoError(t, err)

	got, err := e.payables.List(ctx, tenant, domain.PayableFilter{Search: "aluguel"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = e.payables.List(ctx, tenant, domain.PayableFilter{Search: "energia"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPayable_RecurrenceAndSummary(t *testing.T) {
	e := newEnv("2024-02-10 10:00")
	ctx := context.Background()
	base, err := e.payables.Create(ctx, tenant, &domain.Payable{
		Fornecedor:     "Imobiliária",
		Categoria:      "aluguel",
		Amount:         decimal.NewFromInt(2000),
		DataVencimento: "2024-01-31",
		Recorrente:     true,
		Frequencia:     domain.FrequencyMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, base.Parcela)

	created, err := e.payables.GenerateRecurrence(ctx, tenant, base.ID, &domain.RecurrenceRequest{Quantidade: 3})
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, "2024-02-29", created[0].DataVencimento)
	assert.Equal(t, "2024-03-31", created[1].DataVencimento)
	assert.Equal(t, "2024-04-30", created[2].DataVencimento)
	assert.Equal(t, 4, created[2].Parcela)

	more, err := e.payables.GenerateRecurrence(ctx, tenant, base.ID, &domain.RecurrenceRequest{Quantidade: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, more[0].Parcela)
	assert.Equal(t, "2024-05-30", more[0].DataVencimento)

	_, err = e.payables.Pay(ctx, tenant, created[0].ID, &domain.PaymentRequest{})
	require.NoError(t, err)

	sum, err := e.payables.Summary(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.Quantidade)
	assert.Equal(t, "2000", sum.TotalVencido.String())
	assert.Equal(t, "2000", sum.TotalPago.String())
	assert.Equal(t, "6000", sum.TotalPendente.String())
}

func TestPayable_RecurrenceRequiresRecurringPayable(t *testing.T) {
	e := newEnv("2024-02-10 10:00")
	ctx := context.Background()
	p, err := e.payables.Create(ctx, tenant, &domain.Payable{
		Fornecedor: "Gráfica", Amount: decimal.NewFromInt(80), DataVencimento: "2024-02-20",
	})
	require.NoError(t, err)

	_, err = e.payables.GenerateRecurrence(ctx, tenant, p.ID, &domain.RecurrenceRequest{Quantidade: 2})
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}
