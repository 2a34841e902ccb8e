package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var invoiceTracer = otel.Tracer("service/invoices")

// InvoiceService manages receivables (faturas).
type InvoiceService struct {
	invoices  port.InvoiceStore
	customers port.CustomerStore
	clock     port.Clock
	logger    *zap.Logger
}

// NewInvoiceService creates a new invoice service.
func NewInvoiceService(invoices port.InvoiceStore, customers port.CustomerStore, clock port.Clock, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		customers: customers,
		clock:     clock,
		logger:    logger,
	}
}

func (s *InvoiceService) Create(ctx context.Context, tenant domain.Tenant, inv *domain.Invoice) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Create")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := s.check(ctx, tenant, inv, ""); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	inv.ID = newID()
	inv.Tenant = tenant
	if inv.DataEmissao == "" {
		inv.DataEmissao = now.Format(domain.DateLayout)
	}
	if inv.Status == "" || inv.Status == domain.StatusOverdue {
		inv.Status = domain.StatusPending
	}
	inv.CreatedAt, inv.UpdatedAt = now, now

	if err := s.invoices.CreateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("invoice_id", inv.ID),
		zap.String("customer_id", inv.ClienteID),
		zap.String("amount", inv.Amount.StringFixed(2)),
	)
	return inv, nil
}

func (s *InvoiceService) Update(ctx context.Context, tenant domain.Tenant, id string, inv *domain.Invoice) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.invoices.GetInvoice(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, tenant, inv, id); err != nil {
		return nil, err
	}

	inv.ID = cur.ID
	inv.Tenant = cur.Tenant
	inv.CreatedAt = cur.CreatedAt
	inv.UpdatedAt = s.clock.Now()
	switch inv.Status {
	case "":
		inv.Status = cur.Status
	case domain.StatusOverdue:
		inv.Status = domain.StatusPending
	}
	if inv.Status != domain.StatusPaid {
		inv.DataPagamento = ""
	}

	if err := s.invoices.UpdateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("update invoice: %w", err)
	}
	return inv, nil
}

func (s *InvoiceService) Delete(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Delete")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	return s.invoices.DeleteInvoice(ctx, tenant, id)
}

// Get returns the invoice with its status as of today.
func (s *InvoiceService) Get(ctx context.Context, tenant domain.Tenant, id string) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Get")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetInvoice(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	inv.Status = inv.EffectiveStatus(s.clock.Now())
	return inv, nil
}

// List returns the invoices passing filter ordered by due date, each with
// its status as of today.
func (s *InvoiceService) List(ctx context.Context, tenant domain.Tenant, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.List")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.invoices.ListInvoices(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	names := map[string]string{}
	if strings.TrimSpace(filter.Search) != "" {
		customers, err := s.customers.ListCustomers(ctx, tenant)
		if err != nil {
			return nil, fmt.Errorf("list customers: %w", err)
		}
		for _, c := range customers {
			names[c.ID] = c.Nome
		}
	}

	today := s.clock.Now()
	out := make([]domain.Invoice, 0, len(all))
	for i := range all {
		inv := all[i]
		if !filter.Match(&inv, names[inv.ClienteID], today) {
			continue
		}
		inv.Status = inv.EffectiveStatus(today)
		out = append(out, inv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DataVencimento < out[j].DataVencimento })
	return out, nil
}

// Pay settles an open invoice (realizarPagamento). The paid amount defaults
// to valor - desconto and the date to today.
func (s *InvoiceService) Pay(ctx context.Context, tenant domain.Tenant, id string, req *domain.PaymentRequest) (*domain.Invoice, error) {
	ctx, span := invoiceTracer.Start(ctx, "InvoiceService.Pay")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetInvoice(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if !inv.Open() {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("fatura %s não está em aberto (%s)", inv.Numero, inv.Status)}
	}
	if req.ValorPago.IsNegative() {
		return nil, &domain.ErrValidation{Field: "valorPago", Message: "valor não pode ser negativo"}
	}

	now := s.clock.Now()
	inv.Status = domain.StatusPaid
	inv.DataPagamento = req.DataPagamento
	if inv.DataPagamento == "" {
		inv.DataPagamento = now.Format(domain.DateLayout)
	}
	inv.AmountPaid = req.ValorPago
	if inv.AmountPaid.IsZero() {
		inv.AmountPaid = domain.AmountDue(inv.Amount, inv.AmountPaid, inv.Discount)
	}
	inv.UpdatedAt = now

	if err := s.invoices.UpdateInvoice(ctx, inv); err != nil {
		return nil, fmt.Errorf("pay invoice: %w", err)
	}

	s.logger.Info("invoice paid",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("invoice_id", inv.ID),
		zap.String("amount_paid", inv.AmountPaid.StringFixed(2)),
	)
	return inv, nil
}

// check validates an invoice body; selfID excludes the invoice being updated
// from the duplicate-number check.
func (s *InvoiceService) check(ctx context.Context, tenant domain.Tenant, inv *domain.Invoice, selfID string) error {
	inv.Numero = strings.TrimSpace(inv.Numero)
	if err := validateStruct(inv); err != nil {
		return err
	}
	if !inv.Amount.IsPositive() {
		return &domain.ErrValidation{Field: "valor", Message: "valor deve ser maior que zero"}
	}
	if inv.Discount.IsNegative() || inv.Discount.GreaterThan(inv.Amount) {
		return &domain.ErrValidation{Field: "desconto", Message: "desconto deve estar entre zero e o valor da fatura"}
	}
	if _, err := s.customers.GetCustomer(ctx, tenant, inv.ClienteID); err != nil {
		if isNotFound(err) {
			return &domain.ErrValidation{Field: "clienteId", Message: "cliente não encontrado"}
		}
		return err
	}

	existing, err := s.invoices.ListInvoices(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	for _, other := range existing {
		if other.ID != selfID && strings.EqualFold(other.Numero, inv.Numero) {
			return &domain.ErrConflict{Message: "já existe uma fatura com o número " + inv.Numero}
		}
	}
	return nil
}
