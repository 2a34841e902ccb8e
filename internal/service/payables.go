package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var payableTracer = otel.Tracer("service/payables")

// PayableService manages accounts payable (contas a pagar).
type PayableService struct {
	payables port.PayableStore
	clock    port.Clock
	logger   *zap.Logger
}

// NewPayableService creates a new payable service.
func NewPayableService(payables port.PayableStore, clock port.Clock, logger *zap.Logger) *PayableService {
	return &PayableService{payables: payables, clock: clock, logger: logger}
}

func (s *PayableService) Create(ctx context.Context, tenant domain.Tenant, p *domain.Payable) (*domain.Payable, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.Create")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := checkPayable(p); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	p.ID = newID()
	p.Tenant = tenant
	if p.Status == "" || p.Status == domain.StatusOverdue {
		p.Status = domain.StatusPending
	}
	if p.Recorrente && p.GrupoRecorrencia == "" {
		p.GrupoRecorrencia = p.ID
		p.Parcela = 1
	}
	p.CreatedAt, p.UpdatedAt = now, now

	if err := s.payables.CreatePayable(ctx, p); err != nil {
		return nil, fmt.Errorf("create payable: %w", err)
	}
	s.logger.Info("payable created",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("payable_id", p.ID),
		zap.String("amount", p.Amount.StringFixed(2)),
	)
	return p, nil
}

func (s *PayableService) Update(ctx context.Context, tenant domain.Tenant, id string, p *domain.Payable) (*domain.Payable, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("payable.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.payables.GetPayable(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := checkPayable(p); err != nil {
		return nil, err
	}

	p.ID = cur.ID
	p.Tenant = cur.Tenant
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.clock.Now()
	p.GrupoRecorrencia = cur.GrupoRecorrencia
	p.Parcela = cur.Parcela
	switch p.Status {
	case "":
		p.Status = cur.Status
	case domain.StatusOverdue:
		p.Status = domain.StatusPending
	}
	if p.Status != domain.StatusPaid {
		p.DataPagamento = ""
	}

	if err := s.payables.UpdatePayable(ctx, p); err != nil {
		return nil, fmt.Errorf("update payable: %w", err)
	}
	return p, nil
}

func (s *PayableService) Delete(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := payableTracer.Start(ctx, "PayableService.Delete")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	return s.payables.DeletePayable(ctx, tenant, id)
}

func (s *PayableService) Get(ctx context.Context, tenant domain.Tenant, id string) (*domain.Payable, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.Get")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	p, err := s.payables.GetPayable(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	p.Status = p.EffectiveStatus(s.clock.Now())
	return p, nil
}

// List returns the payables passing filter ordered by due date. No match
// yields an empty slice.
func (s *PayableService) List(ctx context.Context, tenant domain.Tenant, filter domain.PayableFilter) ([]domain.Payable, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.List")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.payables.ListPayables(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}

	today := s.clock.Now()
	out := make([]domain.Payable, 0, len(all))
	for i := range all {
		p := all[i]
		if !filter.Match(&p, today) {
			continue
		}
		p.Status = p.EffectiveStatus(today)
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DataVencimento < out[j].DataVencimento })
	return out, nil
}

// Pay settles an open payable. The paid amount defaults to the full value.
func (s *PayableService) Pay(ctx context.Context, tenant domain.Tenant, id string, req *domain.PaymentRequest) (*domain.Payable, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.Pay")
	defer span.End()
	span.SetAttributes(attribute.String("payable.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.ValorPago.IsNegative() {
		return nil, &domain.ErrValidation{Field: "valorPago", Message: "valor não pode ser negativo"}
	}
	p, err := s.payables.GetPayable(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.StatusPending && p.Status != domain.StatusOverdue {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("conta de %s não está em aberto (%s)", p.Fornecedor, p.Status)}
	}

	now := s.clock.Now()
	p.Status = domain.StatusPaid
	p.DataPagamento = req.DataPagamento
	if p.DataPagamento == "" {
		p.DataPagamento = now.Format(domain.DateLayout)
	}
	p.AmountPaid = req.ValorPago
	if p.AmountPaid.IsZero() {
		p.AmountPaid = p.Amount
	}
	p.UpdatedAt = now

	if err := s.payables.UpdatePayable(ctx, p); err != nil {
		return nil, fmt.Errorf("pay payable: %w", err)
	}
	s.logger.Info("payable paid",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("payable_id", p.ID),
		zap.String("amount_paid", p.AmountPaid.StringFixed(2)),
	)
	return p, nil
}

// GenerateRecurrence creates the next n installments of a recurring payable,
// each one frequency period after the previous. Installments already in the
// group are skipped so repeated calls continue the sequence.
func (s *PayableService) GenerateRecurrence(ctx context.Context, tenant domain.Tenant, id string, req *domain.RecurrenceRequest) ([]domain.Payable, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.GenerateRecurrence")
	defer span.End()
	span.SetAttributes(attribute.String("payable.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	base, err := s.payables.GetPayable(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if !base.Recorrente || base.Frequencia.Months() == 0 {
		return nil, &domain.ErrValidation{Field: "frequencia", Message: "conta não é recorrente"}
	}
	group := base.GrupoRecorrencia
	if group == "" {
		group = base.ID
	}

	all, err := s.payables.ListPayables(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}
	last := *base
	if last.Parcela == 0 {
		last.Parcela = 1
	}
	for i := range all {
		if (all[i].GrupoRecorrencia == group || all[i].ID == group) && all[i].Parcela > last.Parcela {
			last = all[i]
		}
	}
	lastDue, err := domain.ParseDate(last.DataVencimento, time.UTC)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "dataVencimento", Message: "data inválida, use AAAA-MM-DD"}
	}

	if base.GrupoRecorrencia == "" {
		base.GrupoRecorrencia = group
		if base.Parcela == 0 {
			base.Parcela = 1
		}
		if err := s.payables.UpdatePayable(ctx, base); err != nil {
			return nil, fmt.Errorf("update payable: %w", err)
		}
	}

	now := s.clock.Now()
	months := base.Frequencia.Months()
	created := make([]domain.Payable, 0, req.Quantidade)
	for n := 1; n <= req.Quantidade; n++ {
		next := domain.Payable{
			ID:               newID(),
			Tenant:           tenant,
			Fornecedor:       base.Fornecedor,
			Descricao:        base.Descricao,
			Categoria:        base.Categoria,
			Amount:           base.Amount,
			AmountPaid:       decimal.Zero,
			DataVencimento:   addMonthsClamped(lastDue, months*n).Format(domain.DateLayout),
			Status:           domain.StatusPending,
			Recorrente:       true,
			Frequencia:       base.Frequencia,
			Parcela:          last.Parcela + n,
			GrupoRecorrencia: group,
			Observacoes:      base.Observacoes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.payables.CreatePayable(ctx, &next); err != nil {
			return nil, fmt.Errorf("create installment %d: %w", next.Parcela, err)
		}
		created = append(created, next)
	}

	s.logger.Info("recurrence generated",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("group", group),
		zap.Int("installments", len(created)),
	)
	return created, nil
}

// Summary totals the tenant's payables by effective status.
func (s *PayableService) Summary(ctx context.Context, tenant domain.Tenant) (*domain.PayablesSummary, error) {
	ctx, span := payableTracer.Start(ctx, "PayableService.Summary")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.payables.ListPayables(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list payables: %w", err)
	}

	today := s.clock.Now()
	sum := &domain.PayablesSummary{
		Quantidade:    len(all),
		TotalPendente: decimal.Zero,
		TotalVencido:  decimal.Zero,
		TotalPago:     decimal.Zero,
	}
	for i := range all {
		switch all[i].EffectiveStatus(today) {
		case domain.StatusPending:
			sum.TotalPendente = sum.TotalPendente.Add(all[i].Amount)
		case domain.StatusOverdue:
			sum.TotalVencido = sum.TotalVencido.Add(all[i].Amount)
		case domain.StatusPaid:
			sum.TotalPago = sum.TotalPago.Add(all[i].AmountPaid)
		}
	}
	return sum, nil
}

func checkPayable(p *domain.Payable) error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if !p.Amount.IsPositive() {
		return &domain.ErrValidation{Field: "valor", Message: "valor deve ser maior que zero"}
	}
	if p.Recorrente && p.Frequencia == "" {
		return &domain.ErrValidation{Field: "frequencia", Message: "campo obrigatório para contas recorrentes"}
	}
	return nil
}

// addMonthsClamped adds months to t keeping the day of month, clamped to the
// last day of the target month (31/01 + 1 mês = 29/02 or 28/02).
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
