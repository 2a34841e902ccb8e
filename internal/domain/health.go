package domain

import "github.com/shopspring/decimal"

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /healthz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of an individual service.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	LatencyMs   int64  `json:"latencyMs"`
	LastChecked string `json:"lastChecked"`
}

// CollectionMetrics is returned by GET /v1/metrics/cobranca.
type CollectionMetrics struct {
	Runs          int64            `json:"execucoes"`
	Sent          map[string]int64 `json:"enviadosPorCanal"`
	Failed        map[string]int64 `json:"falhasPorCanal"`
	ErrorRate     float64          `json:"taxaErro"`
	RulesPaused   int64            `json:"regrasPausadas"`
	CacheHitRate  float64          `json:"taxaAcertoCache"`
	SkippedByKind map[string]int64 `json:"ignoradosPorMotivo"`
}

// DashboardSummary is returned by GET /v1/dashboard.
type DashboardSummary struct {
	ReceberEmAberto     decimal.Decimal   `json:"receberEmAberto"`
	ReceberVencido      decimal.Decimal   `json:"receberVencido"`
	RecebidoNoMes       decimal.Decimal   `json:"recebidoNoMes"`
	PagarEmAberto       decimal.Decimal   `json:"pagarEmAberto"`
	PagarVencido        decimal.Decimal   `json:"pagarVencido"`
	ColaboradoresAtivos int               `json:"colaboradoresAtivos"`
	ClientesAtivos      int               `json:"clientesAtivos"`
	LembretesHoje       int               `json:"lembretesHoje"`
	ProximosEventos     []EventOccurrence `json:"proximosEventos"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Data     []T  `json:"data"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
}

// Paginate slices items for the requested page and wraps them.
func Paginate[T any](items []T, page, pageSize int) ListResponse[T] {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total := len(items)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	data := items[start:end]
	if data == nil {
		data = []T{}
	}
	return ListResponse[T]{
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  end < total,
	}
}
