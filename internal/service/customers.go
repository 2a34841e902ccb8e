package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var customerTracer = otel.Tracer("service/customers")

// recentRemindersLimit caps the reminder history shown in client details.
const recentRemindersLimit = 10

// CustomerService manages CRM clients.
type CustomerService struct {
	customers port.CustomerStore
	invoices  port.InvoiceStore
	history   port.HistoryStore
	clock     port.Clock
	logger    *zap.Logger
}

// NewCustomerService creates a new customer service.
func NewCustomerService(customers port.CustomerStore, invoices port.InvoiceStore, history port.HistoryStore, clock port.Clock, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customers: customers,
		invoices:  invoices,
		history:   history,
		clock:     clock,
		logger:    logger,
	}
}

func (s *CustomerService) Create(ctx context.Context, tenant domain.Tenant, c *domain.Customer) (*domain.Customer, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Create")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	c.Nome = strings.TrimSpace(c.Nome)
	if err := validateStruct(c); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	c.ID = newID()
	c.Tenant = tenant
	if c.Status == "" {
		c.Status = domain.CustomerActive
	}
	c.CreatedAt, c.UpdatedAt = now, now

	if err := s.customers.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.logger.Info("customer created",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("customer_id", c.ID),
	)
	return c, nil
}

func (s *CustomerService) Update(ctx context.Context, tenant domain.Tenant, id string, c *domain.Customer) (*domain.Customer, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.customers.GetCustomer(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	c.Nome = strings.TrimSpace(c.Nome)
	if err := validateStruct(c); err != nil {
		return nil, err
	}

	c.ID = cur.ID
	c.Tenant = cur.Tenant
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.clock.Now()
	if c.Status == "" {
		c.Status = cur.Status
	}

	if err := s.customers.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return c, nil
}

// Delete removes a client. Clients with open invoices cannot be removed.
func (s *CustomerService) Delete(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Delete")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	if _, err := s.customers.GetCustomer(ctx, tenant, id); err != nil {
		return err
	}

	invoices, err := s.invoices.ListInvoices(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list invoices: %w", err)
	}
	for i := range invoices {
		if invoices[i].ClienteID == id && invoices[i].Open() {
			return &domain.ErrConflict{Message: "cliente possui faturas em aberto"}
		}
	}

	if err := s.customers.DeleteCustomer(ctx, tenant, id); err != nil {
		return err
	}
	s.logger.Info("customer deleted",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("customer_id", id),
	)
	return nil
}

func (s *CustomerService) Get(ctx context.Context, tenant domain.Tenant, id string) (*domain.Customer, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Get")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return s.customers.GetCustomer(ctx, tenant, id)
}

// List returns the clients passing filter, ordered by name.
func (s *CustomerService) List(ctx context.Context, tenant domain.Tenant, filter domain.CustomerFilter) ([]domain.Customer, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.List")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.customers.ListCustomers(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	out := make([]domain.Customer, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Nome) < strings.ToLower(out[j].Nome)
	})
	return out, nil
}

// Details aggregates a client's open invoices, totals and latest reminders.
func (s *CustomerService) Details(ctx context.Context, tenant domain.Tenant, id string) (*domain.CustomerDetails, error) {
	ctx, span := customerTracer.Start(ctx, "CustomerService.Details")
	defer span.End()
	span.SetAttributes(attribute.String("customer.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	c, err := s.customers.GetCustomer(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoices.ListInvoices(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	history, err := s.history.ListHistory(ctx, tenant, domain.HistoryFilter{ClienteID: id})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	today := s.clock.Now()
	details := &domain.CustomerDetails{
		Cliente:          c,
		FaturasAbertas:   []domain.Invoice{},
		TotalEmAberto:    decimal.Zero,
		TotalVencido:     decimal.Zero,
		TotalRecebido:    decimal.Zero,
		UltimosLembretes: []domain.CollectionHistory{},
	}
	for i := range invoices {
		inv := invoices[i]
		if inv.ClienteID != id {
			continue
		}
		switch inv.EffectiveStatus(today) {
		case domain.StatusPending:
			details.FaturasAbertas = append(details.FaturasAbertas, inv)
			details.TotalEmAberto = details.TotalEmAberto.Add(inv.Amount)
		case domain.StatusOverdue:
			inv.Status = domain.StatusOverdue
			details.FaturasAbertas = append(details.FaturasAbertas, inv)
			details.TotalEmAberto = details.TotalEmAberto.Add(inv.Amount)
			details.TotalVencido = details.TotalVencido.Add(inv.Amount)
		case domain.StatusPaid:
			details.TotalRecebido = details.TotalRecebido.Add(inv.AmountPaid)
		}
	}
	sort.Slice(details.FaturasAbertas, func(i, j int) bool {
		return details.FaturasAbertas[i].DataVencimento < details.FaturasAbertas[j].DataVencimento
	})

	sort.Slice(history, func(i, j int) bool { return history[i].CreatedAt.After(history[j].CreatedAt) })
	if len(history) > recentRemindersLimit {
		history = history[:recentRemindersLimit]
	}
	details.UltimosLembretes = append(details.UltimosLembretes, history...)

	return details, nil
}
