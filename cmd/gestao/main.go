package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/config"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/handler"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/cache"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/notify"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()
	loc := cfg.Location()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", loc.String()),
		zap.Bool("use_supabase", cfg.UseSupabase),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("scheduler_enabled", cfg.SchedulerEnabled),
		zap.Duration("scheduler_interval", cfg.SchedulerInterval),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "gestao-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Stores ---
	store := memstore.New()
	var (
		rules   port.RuleStore    = store
		history port.HistoryStore = store
		probes  []handler.HealthProbe
	)
	if cfg.UseSupabase && cfg.SupabaseURL != "" {
		logger.Info("using Supabase for billing rules and history",
			zap.String("supabase_url", cfg.SupabaseURL),
		)
		sb := supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", logger),
			resilienceCfg,
			logger,
		)
		rules = supabase.NewRuleStore(sb)
		history = supabase.NewHistoryStore(sb)
		probes = append(probes, handler.HealthProbe{Name: "supabase", Check: sb.Ping})
	} else {
		logger.Warn("Supabase not configured, billing rules and history kept in memory")
	}

	// --- Channels ---
	senders := notify.NewRegistry(
		notify.NewWhatsAppBusinessSender(httpClient, cfg.WhatsAppAPIURL, cfg.WhatsAppAPIToken, resilienceCfg, logger),
		notify.NewWhatsAppWebSender(),
		notify.NewSMSSender(httpClient, cfg.SMSAPIURL, cfg.SMSAPIToken, resilienceCfg, logger),
		notify.NewEmailSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, resilienceCfg, logger),
	)

	// --- Services ---
	clock := service.SystemClock{Loc: loc}
	agendaSvc := service.NewAgendaService(store, cache.New[domain.HolidaySet](cfg.CacheTTL), clock, metrics, cfg.MeetingBaseURL, logger)
	engine := service.NewReminderEngine(rules, store, store, history, agendaSvc, senders, metrics, logger)

	authSvc := service.NewAuthService(store, clock, cfg.JWTSecret, cfg.JWTAccessTTL, logger)
	if err := authSvc.SeedAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword, cfg.AdminEmpresa, cfg.AdminFilial); err != nil {
		logger.Fatal("failed to seed admin user", zap.Error(err))
	}

	services := &handler.Services{
		Auth:      authSvc,
		Customers: service.NewCustomerService(store, store, history, clock, logger),
		Invoices:  service.NewInvoiceService(store, store, clock, logger),
		Payables:  service.NewPayableService(store, clock, logger),
		HR:        service.NewHRService(store, clock, logger),
		Agenda:    agendaSvc,
		Rules:     service.NewBillingRuleService(rules, agendaSvc, clock, logger),
		History:   service.NewHistoryService(history, logger),
		Engine:    engine,
		Dashboard: service.NewDashboardService(store, store, store, store, history, agendaSvc, clock, logger),
		Clock:     clock,
		Location:  loc,
		Probes:    probes,
	}

	// --- Scheduler ---
	schedCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.SchedulerEnabled {
		sched := service.NewScheduler(engine, clock, cfg.SchedulerInterval, 0, logger)
		go sched.Run(schedCtx)
	} else {
		logger.Warn("reminder scheduler disabled")
	}

	// --- Router ---
	router := handler.NewRouter(services, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
