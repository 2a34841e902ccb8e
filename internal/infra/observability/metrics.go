package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

var (
	knownChannels = []domain.ChannelKind{
		domain.ChannelEmail,
		domain.ChannelSMS,
		domain.ChannelWhatsAppBusiness,
		domain.ChannelWhatsAppWeb,
	}
	knownSkipReasons = []string{
		string(domain.SuppressWeekday),
		string(domain.SuppressWeekend),
		string(domain.SuppressHoliday),
		string(domain.SuppressInactive),
		"condicao",
		"sem_template",
		"ja_enviado",
		"sem_destinatario",
	}
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration  *prometheus.HistogramVec
	externalErrors   *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	remindersSent    *prometheus.CounterVec
	remindersFailed  *prometheus.CounterVec
	remindersSkipped *prometheus.CounterVec
	engineRuns       *prometheus.CounterVec
	rulesPaused      prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gestao_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		remindersSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_reminders_sent_total",
				Help: "Billing reminders accepted by a channel.",
			},
			[]string{"channel"},
		),
		remindersFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_reminders_failed_total",
				Help: "Billing reminders a channel failed to deliver.",
			},
			[]string{"channel"},
		),
		remindersSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_reminders_skipped_total",
				Help: "Candidate reminders not sent, by reason.",
			},
			[]string{"reason"},
		),
		engineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gestao_reminder_runs_total",
				Help: "Reminder engine passes.",
			},
			[]string{"status"},
		),
		rulesPaused: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gestao_rules_paused_total",
				Help: "Billing rules paused after consecutive errors.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrReminderSent counts a reminder accepted by channel.
func (m *Metrics) IncrReminderSent(channel domain.ChannelKind) {
	m.remindersSent.WithLabelValues(string(channel)).Inc()
}

// IncrReminderFailed counts a failed delivery on channel.
func (m *Metrics) IncrReminderFailed(channel domain.ChannelKind) {
	m.remindersFailed.WithLabelValues(string(channel)).Inc()
}

// IncrReminderSkipped counts a candidate reminder that was not sent.
func (m *Metrics) IncrReminderSkipped(reason string) {
	m.remindersSkipped.WithLabelValues(reason).Inc()
}

// IncrEngineRun counts an engine pass with its outcome (success, error).
func (m *Metrics) IncrEngineRun(status string) {
	m.engineRuns.WithLabelValues(status).Inc()
}

// IncrRulePaused counts a rule paused by the engine.
func (m *Metrics) IncrRulePaused() {
	m.rulesPaused.Inc()
}

// GetCollectionSnapshot returns the reminder metrics for the
// GET /v1/metrics/cobranca endpoint. Counters are cumulative since start.
func (m *Metrics) GetCollectionSnapshot() *domain.CollectionMetrics {
	snap := &domain.CollectionMetrics{
		Runs:          int64(getCounterValue(m.engineRuns, "success") + getCounterValue(m.engineRuns, "error")),
		Sent:          make(map[string]int64, len(knownChannels)),
		Failed:        make(map[string]int64, len(knownChannels)),
		SkippedByKind: make(map[string]int64, len(knownSkipReasons)),
		RulesPaused:   int64(readCounter(m.rulesPaused)),
	}

	var sent, failed float64
	for _, ch := range knownChannels {
		s := getCounterValue(m.remindersSent, string(ch))
		f := getCounterValue(m.remindersFailed, string(ch))
		snap.Sent[string(ch)] = int64(s)
		snap.Failed[string(ch)] = int64(f)
		sent += s
		failed += f
	}
	for _, r := range knownSkipReasons {
		if v := getCounterValue(m.remindersSkipped, r); v > 0 {
			snap.SkippedByKind[r] = int64(v)
		}
	}

	if sent+failed > 0 {
		snap.ErrorRate = failed / (sent + failed)
	}
	hits := getCounterValue(m.cacheHits, "holidays")
	misses := getCounterValue(m.cacheMisses, "holidays")
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return readCounter(cv.WithLabelValues(label))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
