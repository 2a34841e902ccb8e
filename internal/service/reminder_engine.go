package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var engineTracer = otel.Tracer("service/reminder_engine")

// Skip reasons recorded besides the calendar suppressions.
const (
	skipCondition   = "condicao"
	skipNoTemplate  = "sem_template"
	skipAlreadySent = "ja_enviado"
	skipNoRecipient = "sem_destinatario"
)

// ruleConcurrency bounds how many rules are processed in parallel.
const ruleConcurrency = 4

// SenderRegistry resolves the sender of a channel kind.
type SenderRegistry interface {
	Sender(kind domain.ChannelKind) (port.Sender, bool)
}

// ErrRunInProgress is returned when RunOnce is called while a pass is active.
var ErrRunInProgress = &domain.ErrConflict{Message: "execução da régua já em andamento"}

// ReminderEngine evaluates active billing rules against open invoices and
// delivers the reminders due today.
type ReminderEngine struct {
	rules     port.RuleStore
	invoices  port.InvoiceStore
	customers port.CustomerStore
	history   port.HistoryStore
	holidays  HolidayCalendar
	senders   SenderRegistry
	metrics   *observability.Metrics
	logger    *zap.Logger

	running sync.Mutex
}

// NewReminderEngine creates a new reminder engine.
func NewReminderEngine(
	rules port.RuleStore,
	invoices port.InvoiceStore,
	customers port.CustomerStore,
	history port.HistoryStore,
	holidays HolidayCalendar,
	senders SenderRegistry,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ReminderEngine {
	return &ReminderEngine{
		rules:     rules,
		invoices:  invoices,
		customers: customers,
		history:   history,
		holidays:  holidays,
		senders:   senders,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunOnce processes every active rule whose send time has passed at now.
// Rules are independent: a failing rule is logged and the pass continues.
func (e *ReminderEngine) RunOnce(ctx context.Context, now time.Time) (*domain.RunReport, error) {
	ctx, span := engineTracer.Start(ctx, "ReminderEngine.RunOnce")
	defer span.End()

	if !e.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer e.running.Unlock()

	report := &domain.RunReport{ExecutadoEm: now}
	rules, err := e.rules.ListActiveRules(ctx)
	if err != nil {
		e.metrics.IncrEngineRun("error")
		return nil, fmt.Errorf("list active rules: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ruleConcurrency)
	for i := range rules {
		rule := rules[i]
		if !sendTimeReached(&rule, now) {
			continue
		}
		g.Go(func() error {
			rr := e.runRule(gctx, &rule, now)
			mu.Lock()
			report.Regras++
			report.Faturas += rr.Faturas
			report.Enviados += rr.Enviados
			report.Erros += rr.Erros
			report.Ignorados += rr.Ignorados
			report.Reenvios += rr.Reenvios
			report.Pausadas = append(report.Pausadas, rr.Pausadas...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := "success"
	if ctx.Err() != nil {
		status = "error"
	}
	e.metrics.IncrEngineRun(status)
	span.SetAttributes(
		attribute.Int("engine.rules", report.Regras),
		attribute.Int("engine.sent", report.Enviados),
		attribute.Int("engine.errors", report.Erros),
	)
	e.logger.Info("reminder engine run finished",
		zap.Int("rules", report.Regras),
		zap.Int("invoices", report.Faturas),
		zap.Int("sent", report.Enviados),
		zap.Int("errors", report.Erros),
		zap.Int("skipped", report.Ignorados),
		zap.Int("retries", report.Reenvios),
		zap.Strings("paused", report.Pausadas),
	)
	return report, ctx.Err()
}

// sendTimeReached reports whether the rule's horarioEnvio has passed today.
func sendTimeReached(r *domain.BillingRule, now time.Time) bool {
	h, m, err := r.Settings.ParseSendTime()
	if err != nil {
		return false
	}
	return now.Hour()*60+now.Minute() >= h*60+m
}

// ruleRun carries the state of one rule during a pass.
type ruleRun struct {
	rule      *domain.BillingRule
	now       time.Time
	today     time.Time
	report    domain.RunReport
	paused    bool
	errStreak int
	logger    *zap.Logger
}

func (e *ReminderEngine) runRule(ctx context.Context, rule *domain.BillingRule, now time.Time) domain.RunReport {
	ctx, span := engineTracer.Start(ctx, "ReminderEngine.runRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", rule.ID))

	run := &ruleRun{
		rule:      rule,
		now:       now,
		today:     domain.Midnight(now),
		errStreak: rule.ConsecutiveErrors,
		logger: e.logger.With(
			zap.String("empresa_id", rule.EmpresaID),
			zap.String("filial_id", rule.FilialID),
			zap.String("rule_id", rule.ID),
		),
	}

	holidays, err := e.holidays.HolidaysFor(ctx, rule.Tenant, run.today.Year())
	if err != nil {
		run.logger.Warn("holiday calendar unavailable", zap.Error(err))
	}
	if reason := rule.Suppressed(run.today, holidays.Contains); reason != domain.SuppressNone {
		e.metrics.IncrReminderSkipped(string(reason))
		run.logger.Debug("rule suppressed today", zap.String("reason", string(reason)))
		return run.report
	}

	customers, err := e.customerIndex(ctx, rule.Tenant)
	if err != nil {
		run.logger.Error("failed to load customers", zap.Error(err))
		run.report.Erros++
		return run.report
	}

	e.retryFailed(ctx, run, customers)
	if !run.paused {
		e.sendDue(ctx, run, customers)
	}

	// rule is the copy read at the start of the pass; only the engine-owned
	// fields are written back so concurrent edits are kept.
	if run.errStreak != rule.ConsecutiveErrors || run.paused {
		var status domain.RuleStatus
		if run.paused {
			status = domain.RulePaused
		}
		if err := e.rules.UpdateRuleState(ctx, rule.Tenant, rule.ID, run.errStreak, status, now); err != nil {
			run.logger.Error("failed to persist rule state", zap.Error(err))
		}
	}
	return run.report
}

func (e *ReminderEngine) customerIndex(ctx context.Context, tenant domain.Tenant) (map[string]*domain.Customer, error) {
	list, err := e.customers.ListCustomers(ctx, tenant)
	if err != nil {
		return nil, err
	}
	idx := make(map[string]*domain.Customer, len(list))
	for i := range list {
		idx[list[i].ID] = &list[i]
	}
	return idx, nil
}

// retryFailed resends error records that still have attempts left once the
// retry interval has elapsed since their last attempt.
func (e *ReminderEngine) retryFailed(ctx context.Context, run *ruleRun, customers map[string]*domain.Customer) {
	rule := run.rule
	pending, err := e.history.ListRetryable(ctx, rule.Tenant, rule.Settings.MaxAttempts, rule.ID)
	if err != nil {
		run.logger.Error("failed to list retryable reminders", zap.Error(err))
		return
	}
	interval := time.Duration(rule.Settings.RetryIntervalMinutes) * time.Minute

	for i := range pending {
		if run.paused || ctx.Err() != nil {
			return
		}
		h := pending[i]
		if run.now.Sub(h.UltimaTentativa) < interval {
			continue
		}
		ch, ok := enabledChannel(rule, h.Canal)
		if !ok {
			continue
		}
		inv, err := e.invoices.GetInvoice(ctx, rule.Tenant, h.FaturaID)
		if err != nil || !inv.Open() {
			continue
		}
		if _, ok := customers[h.ClienteID]; !ok {
			continue
		}
		run.report.Reenvios++
		e.deliver(ctx, run, ch, &h)
		if err := e.history.UpdateHistory(ctx, &h); err != nil {
			run.logger.Error("failed to update reminder history", zap.String("history_id", h.ID), zap.Error(err))
		}
	}
}

// sendDue sends today's reminders for every open invoice of the rule's
// portfolio.
func (e *ReminderEngine) sendDue(ctx context.Context, run *ruleRun, customers map[string]*domain.Customer) {
	rule := run.rule
	invoices, err := e.invoices.ListOpenInvoicesByPortfolio(ctx, rule.Tenant, rule.CarteiraID)
	if err != nil {
		run.logger.Error("failed to list open invoices", zap.Error(err))
		run.report.Erros++
		return
	}
	fireDate := run.today.Format(domain.DateLayout)

	for i := range invoices {
		if run.paused || ctx.Err() != nil {
			return
		}
		inv := &invoices[i]
		if !inv.Open() {
			continue
		}
		due, err := domain.ParseDate(inv.DataVencimento, run.today.Location())
		if err != nil {
			run.logger.Warn("invoice with invalid due date", zap.String("invoice_id", inv.ID))
			continue
		}
		offset, fires := rule.FiresOn(run.today, due)
		if !fires {
			continue
		}
		run.report.Faturas++

		cust := customers[inv.ClienteID]
		if cust == nil || !rule.Applies(inv, cust) {
			e.skip(run, skipCondition)
			continue
		}
		data := domain.NewMessageData(rule, inv, cust.Nome, due, run.today)

		for _, ch := range rule.EnabledChannels() {
			if run.paused {
				return
			}
			t, ok := ch.TemplateFor(offset)
			if !ok {
				e.skip(run, skipNoTemplate)
				continue
			}
			key := domain.HistoryKey(rule.ID, inv.ID, ch.Tipo, fireDate)
			if _, err := e.history.FindHistoryByKey(ctx, rule.Tenant, key); err == nil {
				e.skip(run, skipAlreadySent)
				continue
			} else if !isNotFound(err) {
				run.logger.Error("failed to check reminder history", zap.String("key", key), zap.Error(err))
				run.report.Erros++
				continue
			}
			to := recipient(ch.Tipo, cust)
			if to == "" {
				e.skip(run, skipNoRecipient)
				continue
			}

			msg := domain.RenderTemplate(ch.Tipo, t, data)
			h := &domain.CollectionHistory{
				ID:           newID(),
				Tenant:       rule.Tenant,
				FaturaID:     inv.ID,
				ClienteID:    inv.ClienteID,
				RegraID:      rule.ID,
				TemplateID:   t.ID,
				Canal:        ch.Tipo,
				Tipo:         t.Tipo,
				DataDisparo:  fireDate,
				Destinatario: to,
				Assunto:      msg.Assunto,
				Mensagem:     msg.Conteudo,
				CreatedAt:    run.now,
			}
			e.deliver(ctx, run, ch, h)
			if err := e.history.CreateHistory(ctx, h); err != nil {
				var conflict *domain.ErrConflict
				if errors.As(err, &conflict) {
					e.skip(run, skipAlreadySent)
					continue
				}
				run.logger.Error("failed to record reminder history", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

// deliver attempts one send of h through channel ch and records the outcome
// on h. Consecutive failures pause the rule once pausarAposErros is reached.
func (e *ReminderEngine) deliver(ctx context.Context, run *ruleRun, ch domain.Channel, h *domain.CollectionHistory) {
	h.Tentativas++
	h.UltimaTentativa = run.now

	receipt, err := e.send(ctx, ch, h)
	if err != nil {
		h.Status = domain.DeliveryError
		h.Erro = err.Error()
		run.report.Erros++
		run.errStreak++
		e.metrics.IncrReminderFailed(ch.Tipo)
		run.logger.Warn("reminder delivery failed",
			zap.String("invoice_id", h.FaturaID),
			zap.String("channel", string(ch.Tipo)),
			zap.Int("attempt", h.Tentativas),
			zap.Error(err),
		)

		limit := run.rule.Settings.PauseAfterErrors
		if limit > 0 && run.errStreak >= limit && !run.paused {
			run.paused = true
			run.rule.Status = domain.RulePaused
			run.report.Pausadas = append(run.report.Pausadas, run.rule.ID)
			e.metrics.IncrRulePaused()
			run.logger.Warn("billing rule paused after consecutive errors", zap.Int("errors", run.errStreak))
		}
		return
	}

	sentAt := run.now
	h.Status = receipt.Status
	if h.Status == "" {
		h.Status = domain.DeliverySent
	}
	h.Erro = ""
	h.ProviderID = receipt.ProviderID
	h.Link = receipt.Link
	h.EnviadoEm = &sentAt
	run.report.Enviados++
	run.errStreak = 0
	e.metrics.IncrReminderSent(ch.Tipo)
}

func (e *ReminderEngine) send(ctx context.Context, ch domain.Channel, h *domain.CollectionHistory) (*port.DeliveryReceipt, error) {
	sender, ok := e.senders.Sender(ch.Tipo)
	if !ok {
		return nil, fmt.Errorf("canal %s sem integração configurada", ch.Tipo)
	}
	return sender.Send(ctx, &port.Message{
		Channel:   ch.Tipo,
		To:        h.Destinatario,
		Subject:   h.Assunto,
		Body:      h.Mensagem,
		Config:    ch.Config,
		Reference: h.DedupeKey(),
	})
}

func (e *ReminderEngine) skip(run *ruleRun, reason string) {
	run.report.Ignorados++
	e.metrics.IncrReminderSkipped(reason)
}

func enabledChannel(r *domain.BillingRule, kind domain.ChannelKind) (domain.Channel, bool) {
	for _, c := range r.EnabledChannels() {
		if c.Tipo == kind {
			return c, true
		}
	}
	return domain.Channel{}, false
}

func recipient(kind domain.ChannelKind, c *domain.Customer) string {
	if kind == domain.ChannelEmail {
		return c.Email
	}
	return c.Phone()
}
