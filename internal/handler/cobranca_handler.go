package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

// ============================================================
// Régua de cobrança
// ============================================================

func listRulesHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobranca/regras")
		defer span.End()

		q := r.URL.Query()
		filter := domain.RuleFilter{CarteiraID: q.Get("carteiraId")}
		if v := q.Get("ativa"); v != "" {
			active, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "parâmetro 'ativa' deve ser true ou false")
				return
			}
			filter.Ativa = &active
		}
		list, err := svc.List(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"regras": list})
	}
}

func createRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobranca/regras")
		defer span.End()

		var req domain.BillingRule
		if !decodeBody(w, r, &req) {
			return
		}
		rule, err := svc.Create(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

func getRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobranca/regras/{id}")
		defer span.End()

		rule, err := svc.Get(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func updateRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/cobranca/regras/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("rule.id", id))

		var req domain.BillingRule
		if !decodeBody(w, r, &req) {
			return
		}
		rule, err := svc.Update(ctx, TenantFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func deleteRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/cobranca/regras/{id}")
		defer span.End()

		if err := svc.Delete(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobranca/regras/{id}/ativar")
		defer span.End()

		rule, err := svc.Toggle(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rule)
	}
}

func duplicateRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobranca/regras/{id}/duplicar")
		defer span.End()

		rule, err := svc.Duplicate(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

func previewRuleHandler(svc *service.BillingRuleService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobranca/regras/preview")
		defer span.End()

		var req domain.PreviewRequest
		if !decodeBody(w, r, &req) {
			return
		}
		res, err := svc.Preview(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// ============================================================
// Histórico de cobrança
// ============================================================

func historyFilter(r *http.Request) (domain.HistoryFilter, error) {
	from, err := queryDate(r, "de")
	if err != nil {
		return domain.HistoryFilter{}, err
	}
	to, err := queryDate(r, "ate")
	if err != nil {
		return domain.HistoryFilter{}, err
	}
	q := r.URL.Query()
	return domain.HistoryFilter{
		FaturaID:  q.Get("faturaId"),
		ClienteID: q.Get("clienteId"),
		RegraID:   q.Get("regraId"),
		Canal:     domain.ChannelKind(q.Get("canal")),
		Status:    domain.DeliveryStatus(q.Get("status")),
		From:      from,
		To:        to,
	}, nil
}

func listHistoryHandler(svc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobranca/historico")
		defer span.End()

		filter, err := historyFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		list, err := svc.List(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writePage(w, r, list)
	}
}

func historyStatsHandler(svc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/cobranca/historico/estatisticas")
		defer span.End()

		filter, err := historyFilter(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		stats, err := svc.Stats(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func updateHistoryStatusHandler(svc *service.HistoryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/cobranca/historico/{id}/status")
		defer span.End()

		var req domain.StatusUpdate
		if !decodeBody(w, r, &req) {
			return
		}
		h, err := svc.UpdateStatus(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

// runEngineHandler triggers a reminder pass over every tenant, so it is
// restricted to administrators.
func runEngineHandler(engine service.ReminderRunner, clock port.Clock, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/cobranca/executar")
		defer span.End()

		if claims := ClaimsFromContext(ctx); claims == nil || claims.Papel != "admin" {
			handleServiceError(w, &domain.ErrForbidden{Action: "executar régua de cobrança"}, logger)
			return
		}
		report, err := engine.RunOnce(ctx, clock.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func collectionMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCollectionSnapshot())
	}
}

// ============================================================
// Dashboard
// ============================================================

func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		sum, err := svc.Summary(ctx, TenantFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
