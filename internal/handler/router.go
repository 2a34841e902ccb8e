package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// HealthProbe checks one dependency for /healthz.
type HealthProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Services groups everything the router dispatches to. A nil Auth leaves
// only the operational endpoints mounted.
type Services struct {
	Auth      *service.AuthService
	Customers *service.CustomerService
	Invoices  *service.InvoiceService
	Payables  *service.PayableService
	HR        *service.HRService
	Agenda    *service.AgendaService
	Rules     *service.BillingRuleService
	History   *service.HistoryService
	Engine    service.ReminderRunner
	Dashboard *service.DashboardService
	Clock     port.Clock
	Location  *time.Location
	Probes    []HealthProbe
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc *Services, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Probes))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		if svc.Auth == nil {
			r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "auth service unavailable")
			}))
			return
		}

		r.Post("/auth/login", authLoginHandler(svc.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))

			r.Get("/auth/me", authMeHandler())
			r.Get("/dashboard", dashboardHandler(svc.Dashboard, logger))
			r.Get("/metrics/cobranca", collectionMetricsHandler(metrics))

			// =============================================
			// Clientes
			// =============================================
			r.Route("/clientes", func(r chi.Router) {
				r.Get("/", listCustomersHandler(svc.Customers, logger))
				r.Post("/", createCustomerHandler(svc.Customers, logger))
				r.Get("/{id}", getCustomerHandler(svc.Customers, logger))
				r.Put("/{id}", updateCustomerHandler(svc.Customers, logger))
				r.Delete("/{id}", deleteCustomerHandler(svc.Customers, logger))
				r.Get("/{id}/detalhes", customerDetailsHandler(svc.Customers, logger))
			})

			// =============================================
			// Contas a receber
			// =============================================
			r.Route("/faturas", func(r chi.Router) {
				r.Get("/", listInvoicesHandler(svc.Invoices, logger))
				r.Post("/", createInvoiceHandler(svc.Invoices, logger))
				r.Get("/{id}", getInvoiceHandler(svc.Invoices, logger))
				r.Put("/{id}", updateInvoiceHandler(svc.Invoices, logger))
				r.Delete("/{id}", deleteInvoiceHandler(svc.Invoices, logger))
				r.Post("/{id}/pagar", payInvoiceHandler(svc.Invoices, logger))
			})

			// =============================================
			// Contas a pagar
			// =============================================
			r.Route("/contas-pagar", func(r chi.Router) {
				r.Get("/", listPayablesHandler(svc.Payables, logger))
				r.Post("/", createPayableHandler(svc.Payables, logger))
				r.Get("/resumo", payablesSummaryHandler(svc.Payables, logger))
				r.Get("/{id}", getPayableHandler(svc.Payables, logger))
				r.Put("/{id}", updatePayableHandler(svc.Payables, logger))
				r.Delete("/{id}", deletePayableHandler(svc.Payables, logger))
				r.Post("/{id}/pagar", payPayableHandler(svc.Payables, logger))
				r.Post("/{id}/recorrencia", payableRecurrenceHandler(svc.Payables, logger))
			})

			// =============================================
			// RH
			// =============================================
			r.Route("/rh", func(r chi.Router) {
				r.Get("/departamentos", listDepartmentsHandler(svc.HR, logger))
				r.Post("/departamentos", createDepartmentHandler(svc.HR, logger))
				r.Get("/departamentos/{id}", getDepartmentHandler(svc.HR, logger))
				r.Put("/departamentos/{id}", updateDepartmentHandler(svc.HR, logger))
				r.Delete("/departamentos/{id}", deleteDepartmentHandler(svc.HR, logger))

				r.Get("/setores", listSectorsHandler(svc.HR, logger))
				r.Post("/setores", createSectorHandler(svc.HR, logger))
				r.Put("/setores/{id}", updateSectorHandler(svc.HR, logger))
				r.Delete("/setores/{id}", deleteSectorHandler(svc.HR, logger))

				r.Get("/colaboradores", listEmployeesHandler(svc.HR, logger))
				r.Post("/colaboradores", createEmployeeHandler(svc.HR, logger))
				r.Get("/colaboradores/{id}", getEmployeeHandler(svc.HR, logger))
				r.Put("/colaboradores/{id}", updateEmployeeHandler(svc.HR, logger))
				r.Delete("/colaboradores/{id}", deleteEmployeeHandler(svc.HR, logger))

				r.Get("/folha", payrollHandler(svc.HR, logger))
			})

			// =============================================
			// Agenda
			// =============================================
			r.Route("/agenda", func(r chi.Router) {
				r.Get("/eventos", listEventsHandler(svc.Agenda, svc.Location, logger))
				r.Post("/eventos", createEventHandler(svc.Agenda, logger))
				r.Get("/eventos/{id}", getEventHandler(svc.Agenda, logger))
				r.Put("/eventos/{id}", updateEventHandler(svc.Agenda, logger))
				r.Delete("/eventos/{id}", deleteEventHandler(svc.Agenda, logger))

				r.Get("/feriados", listHolidaysHandler(svc.Agenda, logger))
				r.Post("/feriados", createHolidayHandler(svc.Agenda, logger))
				r.Delete("/feriados/{id}", deleteHolidayHandler(svc.Agenda, logger))

				r.Get("/reunioes", listMeetingsHandler(svc.Agenda, logger))
				r.Post("/reunioes", createMeetingHandler(svc.Agenda, logger))
				r.Get("/reunioes/{id}", getMeetingHandler(svc.Agenda, logger))
				r.Put("/reunioes/{id}", updateMeetingHandler(svc.Agenda, logger))
				r.Delete("/reunioes/{id}", deleteMeetingHandler(svc.Agenda, logger))

				r.Get("/calendario/{ano}/{mes}", monthGridHandler(svc.Agenda, logger))
			})

			// =============================================
			// Régua de cobrança
			// =============================================
			r.Route("/cobranca", func(r chi.Router) {
				r.Get("/regras", listRulesHandler(svc.Rules, logger))
				r.Post("/regras", createRuleHandler(svc.Rules, logger))
				r.Post("/regras/preview", previewRuleHandler(svc.Rules, logger))
				r.Get("/regras/{id}", getRuleHandler(svc.Rules, logger))
				r.Put("/regras/{id}", updateRuleHandler(svc.Rules, logger))
				r.Delete("/regras/{id}", deleteRuleHandler(svc.Rules, logger))
				r.Post("/regras/{id}/ativar", toggleRuleHandler(svc.Rules, logger))
				r.Post("/regras/{id}/duplicar", duplicateRuleHandler(svc.Rules, logger))

				r.Get("/historico", listHistoryHandler(svc.History, logger))
				r.Get("/historico/estatisticas", historyStatsHandler(svc.History, logger))
				r.Patch("/historico/{id}/status", updateHistoryStatusHandler(svc.History, logger))

				r.Post("/executar", runEngineHandler(svc.Engine, svc.Clock, logger))
			})
		})
	})

	return r
}

// ============================================================
// Probes
// ============================================================

func healthzHandler(probes []HealthProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "gestao-bfa", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}
		for _, p := range probes {
			start := time.Now()
			err := p.Check(ctx)
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: p.Name, Status: status, LatencyMs: time.Since(start).Milliseconds(), LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
