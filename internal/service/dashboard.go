package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var dashboardTracer = otel.Tracer("service/dashboard")

const (
	upcomingEventsDays  = 7
	upcomingEventsLimit = 5
)

// DashboardService aggregates the home screen numbers.
type DashboardService struct {
	invoices  port.InvoiceStore
	payables  port.PayableStore
	customers port.CustomerStore
	hr        port.HRStore
	history   port.HistoryStore
	agenda    *AgendaService
	clock     port.Clock
	logger    *zap.Logger
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	invoices port.InvoiceStore,
	payables port.PayableStore,
	customers port.CustomerStore,
	hr port.HRStore,
	history port.HistoryStore,
	agenda *AgendaService,
	clock port.Clock,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		invoices:  invoices,
		payables:  payables,
		customers: customers,
		hr:        hr,
		history:   history,
		agenda:    agenda,
		clock:     clock,
		logger:    logger,
	}
}

// Summary gathers every dashboard figure in parallel. Any failing source
// fails the whole summary.
func (s *DashboardService) Summary(ctx context.Context, tenant domain.Tenant) (*domain.DashboardSummary, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Summary")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	today := domain.Midnight(now)
	todayKey := today.Format(domain.DateLayout)
	monthPrefix := todayKey[:7]

	sum := &domain.DashboardSummary{
		ReceberEmAberto: decimal.Zero,
		ReceberVencido:  decimal.Zero,
		RecebidoNoMes:   decimal.Zero,
		PagarEmAberto:   decimal.Zero,
		PagarVencido:    decimal.Zero,
		ProximosEventos: []domain.EventOccurrence{},
	}

	// Each goroutine writes only its own fields of sum.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		list, err := s.invoices.ListInvoices(gctx, tenant)
		if err != nil {
			return fmt.Errorf("invoices: %w", err)
		}
		for i := range list {
			inv := &list[i]
			switch inv.EffectiveStatus(now) {
			case domain.StatusPending:
				sum.ReceberEmAberto = sum.ReceberEmAberto.Add(inv.Amount)
			case domain.StatusOverdue:
				sum.ReceberEmAberto = sum.ReceberEmAberto.Add(inv.Amount)
				sum.ReceberVencido = sum.ReceberVencido.Add(inv.Amount)
			case domain.StatusPaid:
				if len(inv.DataPagamento) >= 7 && inv.DataPagamento[:7] == monthPrefix {
					sum.RecebidoNoMes = sum.RecebidoNoMes.Add(inv.AmountPaid)
				}
			}
		}
		return nil
	})

	g.Go(func() error {
		list, err := s.payables.ListPayables(gctx, tenant)
		if err != nil {
			return fmt.Errorf("payables: %w", err)
		}
		for i := range list {
			switch list[i].EffectiveStatus(now) {
			case domain.StatusPending:
				sum.PagarEmAberto = sum.PagarEmAberto.Add(list[i].Amount)
			case domain.StatusOverdue:
				sum.PagarEmAberto = sum.PagarEmAberto.Add(list[i].Amount)
				sum.PagarVencido = sum.PagarVencido.Add(list[i].Amount)
			}
		}
		return nil
	})

	g.Go(func() error {
		list, err := s.hr.ListEmployees(gctx, tenant)
		if err != nil {
			return fmt.Errorf("employees: %w", err)
		}
		for i := range list {
			if list[i].Status == domain.EmployeeActive {
				sum.ColaboradoresAtivos++
			}
		}
		return nil
	})

	g.Go(func() error {
		list, err := s.customers.ListCustomers(gctx, tenant)
		if err != nil {
			return fmt.Errorf("customers: %w", err)
		}
		for i := range list {
			if list[i].Status == domain.CustomerActive {
				sum.ClientesAtivos++
			}
		}
		return nil
	})

	g.Go(func() error {
		list, err := s.history.ListHistory(gctx, tenant, domain.HistoryFilter{From: todayKey, To: todayKey})
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		for i := range list {
			if list[i].Status != domain.DeliveryError {
				sum.LembretesHoje++
			}
		}
		return nil
	})

	g.Go(func() error {
		occ, err := s.agenda.Occurrences(gctx, tenant, now, today.AddDate(0, 0, upcomingEventsDays))
		if err != nil {
			return fmt.Errorf("agenda: %w", err)
		}
		upcoming := make([]domain.EventOccurrence, 0, upcomingEventsLimit)
		for _, o := range occ {
			if o.Fim.Before(now) && !o.DiaInteiro {
				continue
			}
			upcoming = append(upcoming, o)
			if len(upcoming) == upcomingEventsLimit {
				break
			}
		}
		sum.ProximosEventos = upcoming
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard aggregation failed",
			append(observability.TenantFields(tenant), zap.Error(err))...,
		)
		return nil, err
	}
	return sum, nil
}
