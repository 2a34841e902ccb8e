package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var ruleTracer = otel.Tracer("service/billing_rules")

// HolidayCalendar resolves the holidays a tenant observes in a year.
type HolidayCalendar interface {
	HolidaysFor(ctx context.Context, tenant domain.Tenant, year int) (domain.HolidaySet, error)
}

// BillingRuleService manages régua de cobrança rules.
type BillingRuleService struct {
	rules    port.RuleStore
	holidays HolidayCalendar
	clock    port.Clock
	logger   *zap.Logger
}

// NewBillingRuleService creates a new billing rule service.
func NewBillingRuleService(rules port.RuleStore, holidays HolidayCalendar, clock port.Clock, logger *zap.Logger) *BillingRuleService {
	return &BillingRuleService{rules: rules, holidays: holidays, clock: clock, logger: logger}
}

// Create normalizes and validates a rule before storing it.
func (s *BillingRuleService) Create(ctx context.Context, tenant domain.Tenant, r *domain.BillingRule) (*domain.BillingRule, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Create")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := prepareRule(r); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	r.ID = newID()
	r.Tenant = tenant
	r.ConsecutiveErrors = 0
	r.CreatedAt, r.UpdatedAt = now, now

	if err := s.rules.CreateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	s.logger.Info("billing rule created",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("rule_id", r.ID),
		zap.String("carteira_id", r.CarteiraID),
		zap.Int("channels", len(r.EnabledChannels())),
	)
	return r, nil
}

func (s *BillingRuleService) Update(ctx context.Context, tenant domain.Tenant, id string, r *domain.BillingRule) (*domain.BillingRule, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.rules.GetRule(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if r.Status == "" {
		r.Status = cur.Status
	}
	if err := prepareRule(r); err != nil {
		return nil, err
	}

	r.ID, r.Tenant, r.CreatedAt = cur.ID, cur.Tenant, cur.CreatedAt
	r.ConsecutiveErrors = cur.ConsecutiveErrors
	if r.Status == domain.RuleActive {
		r.ConsecutiveErrors = 0
	}
	r.UpdatedAt = s.clock.Now()

	if err := s.rules.UpdateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("update rule: %w", err)
	}
	return r, nil
}

func (s *BillingRuleService) Delete(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Delete")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	if err := s.rules.DeleteRule(ctx, tenant, id); err != nil {
		return err
	}
	s.logger.Info("billing rule deleted",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("rule_id", id),
	)
	return nil
}

func (s *BillingRuleService) Get(ctx context.Context, tenant domain.Tenant, id string) (*domain.BillingRule, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Get")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return s.rules.GetRule(ctx, tenant, id)
}

// List returns the tenant's rules passing filter, ordered by name.
func (s *BillingRuleService) List(ctx context.Context, tenant domain.Tenant, filter domain.RuleFilter) ([]domain.BillingRule, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.List")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.rules.ListRules(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	out := make([]domain.BillingRule, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Nome) < strings.ToLower(out[j].Nome) })
	return out, nil
}

// Toggle switches a rule on or off. Activating a rule the engine paused
// clears its error streak.
func (s *BillingRuleService) Toggle(ctx context.Context, tenant domain.Tenant, id string) (*domain.BillingRule, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Toggle")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	r, err := s.rules.GetRule(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	activate := !r.Ativa || r.Status == domain.RulePaused
	if activate {
		if problems := r.Validate(); len(problems) > 0 {
			return nil, &domain.ErrRuleNotPersistable{Problems: problems}
		}
		r.Ativa = true
		r.Status = domain.RuleActive
		r.ConsecutiveErrors = 0
	} else {
		r.Ativa = false
	}
	r.UpdatedAt = s.clock.Now()

	if err := s.rules.UpdateRule(ctx, r); err != nil {
		return nil, fmt.Errorf("toggle rule: %w", err)
	}
	s.logger.Info("billing rule toggled",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("rule_id", r.ID),
		zap.Bool("ativa", r.Ativa),
	)
	return r, nil
}

// Duplicate copies a rule under a new id. The copy starts inactive.
func (s *BillingRuleService) Duplicate(ctx context.Context, tenant domain.Tenant, id string) (*domain.BillingRule, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Duplicate")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	src, err := s.rules.GetRule(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	cp := *src
	cp.ID = newID()
	cp.Nome = src.Nome + " (cópia)"
	cp.Ativa = false
	cp.Status = domain.RuleActive
	cp.ConsecutiveErrors = 0
	cp.DaysBeforeDue = append([]int(nil), src.DaysBeforeDue...)
	cp.DaysAfterDue = append([]int(nil), src.DaysAfterDue...)
	cp.Settings.Weekdays = append([]int(nil), src.Settings.Weekdays...)
	cp.Channels = make([]domain.Channel, len(src.Channels))
	for i, c := range src.Channels {
		c.Config = copyConfig(c.Config)
		c.Templates = append([]domain.Template(nil), c.Templates...)
		for j := range c.Templates {
			c.Templates[j].ID = newID()
			c.Templates[j].Variaveis = append([]string(nil), c.Templates[j].Variaveis...)
		}
		cp.Channels[i] = c
	}
	cp.CreatedAt, cp.UpdatedAt = now, now

	if err := s.rules.CreateRule(ctx, &cp); err != nil {
		return nil, fmt.Errorf("duplicate rule: %w", err)
	}
	return &cp, nil
}

// Preview lists the fire dates of a rule for a sample due date, with the
// rendered messages of every enabled channel and the calendar suppression
// that would apply to each date.
func (s *BillingRuleService) Preview(ctx context.Context, tenant domain.Tenant, req *domain.PreviewRequest) (*domain.PreviewResult, error) {
	ctx, span := ruleTracer.Start(ctx, "BillingRuleService.Preview")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var rule domain.BillingRule
	switch {
	case req.Regra != nil:
		rule = *req.Regra
		rule.Normalize()
	case req.RegraID != "":
		r, err := s.rules.GetRule(ctx, tenant, req.RegraID)
		if err != nil {
			return nil, err
		}
		rule = *r
	default:
		return nil, &domain.ErrValidation{Field: "regra", Message: "informe a regra ou o regraId"}
	}
	// Calendar suppression is shown regardless of the rule's on/off state.
	rule.Ativa = true
	rule.Status = domain.RuleActive

	loc := s.clock.Now().Location()
	due, err := domain.ParseDate(req.DataVencimento, loc)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "dataVencimento", Message: "data inválida, use AAAA-MM-DD"}
	}

	inv := &domain.Invoice{Numero: req.NumeroFatura, Amount: req.Valor, Discount: req.Desconto}
	if inv.Numero == "" {
		inv.Numero = "0001"
	}
	name := req.NomeCliente
	if name == "" {
		name = "Cliente Exemplo"
	}

	holidays := map[int]domain.HolidaySet{}
	isHoliday := func(day time.Time) bool {
		set, ok := holidays[day.Year()]
		if !ok {
			var err error
			if set, err = s.holidays.HolidaysFor(ctx, tenant, day.Year()); err != nil {
				s.logger.Warn("preview: holiday lookup failed", zap.Error(err))
			}
			holidays[day.Year()] = set
		}
		return set.Contains(day)
	}

	result := &domain.PreviewResult{
		Datas:     []string{},
		Disparos:  []domain.PreviewFire{},
		Problemas: append(rule.Validate(), rule.CoverageWarnings()...),
	}
	for _, day := range rule.FireDates(due) {
		offset := domain.DaysBetween(due, day)
		data := domain.NewMessageData(&rule, inv, name, due, day)
		fire := domain.PreviewFire{
			Data:       day.Format(domain.DateLayout),
			Dias:       offset,
			Tipo:       domain.MessageKindFor(offset),
			Suprimido:  rule.Suppressed(day, isHoliday),
			Encargos:   data.LateCharges,
			ValorTotal: data.Total,
			Mensagens:  []domain.RenderedMessage{},
		}
		for _, ch := range rule.EnabledChannels() {
			t, ok := ch.TemplateFor(offset)
			if !ok {
				continue
			}
			msg := domain.RenderTemplate(ch.Tipo, t, data)
			fire.Mensagens = append(fire.Mensagens, msg)
			fire.VariaveisPendentes = append(fire.VariaveisPendentes, domain.UnresolvedTokens(msg.Assunto+"\n"+msg.Conteudo)...)
		}
		result.Datas = append(result.Datas, fire.Data)
		result.Disparos = append(result.Disparos, fire)
	}
	return result, nil
}

// prepareRule normalizes r, assigns template ids and rejects it with every
// problem found.
func prepareRule(r *domain.BillingRule) error {
	r.Nome = strings.TrimSpace(r.Nome)
	r.Normalize()
	for i := range r.Channels {
		for j := range r.Channels[i].Templates {
			if r.Channels[i].Templates[j].ID == "" {
				r.Channels[i].Templates[j].ID = newID()
			}
		}
	}
	if problems := r.Validate(); len(problems) > 0 {
		return &domain.ErrRuleNotPersistable{Problems: problems}
	}
	return nil
}

func copyConfig(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
