package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/handler"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/cache"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/memstore"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/notify"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type testServer struct {
	router http.Handler
	store  *memstore.Store
}

func newTestServer(t *testing.T, probes ...handler.HealthProbe) *testServer {
	t.Helper()

	logger := zap.NewNop()
	st := memstore.New()
	clock := fixedClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	metrics := observability.NewMetrics()

	auth := service.NewAuthService(st, clock, "handler-secret", time.Hour, logger)
	require.NoError(t, auth.SeedAdmin(context.Background(), "admin@empresa.com", "s3nha-forte", "emp-1", ""))

	hash, err := bcrypt.GenerateFromPassword([]byte("senha-fin"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), &domain.User{
		ID:           "user-fin",
		Email:        "financeiro@empresa.com",
		Nome:         "Financeiro",
		PasswordHash: string(hash),
		EmpresaID:    "emp-1",
		FilialID:     "fil-1",
		Papel:        "financeiro",
		Ativo:        true,
	}))

	agenda := service.NewAgendaService(st, cache.New[domain.HolidaySet](time.Hour), clock, metrics, "https://meet.example.com", logger)
	svc := &handler.Services{
		Auth:      auth,
		Customers: service.NewCustomerService(st, st, st, clock, logger),
		Invoices:  service.NewInvoiceService(st, st, clock, logger),
		Payables:  service.NewPayableService(st, clock, logger),
		HR:        service.NewHRService(st, clock, logger),
		Agenda:    agenda,
		Rules:     service.NewBillingRuleService(st, agenda, clock, logger),
		History:   service.NewHistoryService(st, logger),
		Engine:    service.NewReminderEngine(st, st, st, st, agenda, notify.NewRegistry(), metrics, logger),
		Dashboard: service.NewDashboardService(st, st, st, st, st, agenda, clock, logger),
		Clock:     clock,
		Location:  time.UTC,
		Probes:    probes,
	}
	return &testServer{router: handler.NewRouter(svc, metrics, logger), store: st}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

type errBody struct {
	Error    string   `json:"error"`
	Campo    string   `json:"campo"`
	Problems []string `json:"problemas"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errBody {
	t.Helper()
	var e errBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

// --- Operational endpoints ---

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, handler.HealthProbe{
		Name:  "supabase",
		Check: func(context.Context) error { return errors.New("down") },
	})

	rec := srv.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health domain.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "degraded", health.Status)
	assert.Len(t, health.Services, 2)
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestV1WithoutAuthService(t *testing.T) {
	router := handler.NewRouter(&handler.Services{}, observability.NewMetrics(), zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/clientes", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// --- Auth ---

func TestProtectedRouteRequiresToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/v1/clientes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/clientes", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginInvalidPassword(t *testing.T) {
	srv := newTestServer(t)
	rec := srv.do(t, http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "admin@empresa.com", "password": "errada"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var me map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "emp-1", me["empresaId"])
	assert.Equal(t, "fil-1", me["filialId"])
	assert.Equal(t, "financeiro", me["papel"])
}

func TestCompanyWideTokenNeedsFilialHeader(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "admin@empresa.com", "s3nha-forte")

	rec := srv.do(t, http.MethodGet, "/v1/clientes", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/clientes", token, nil, "X-Filial-ID", "fil-2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBranchTokenRejectsOtherFilial(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodGet, "/v1/clientes", token, nil, "X-Filial-ID", "fil-2")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/clientes", token, nil, "X-Filial-ID", "fil-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

// --- Clientes / Faturas ---

func TestCustomerLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodPost, "/v1/clientes", token, map[string]string{"nome": "Loja Azul", "email": "contato@azul.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created domain.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, domain.Tenant{EmpresaID: "emp-1", FilialID: "fil-1"}, created.Tenant)

	rec = srv.do(t, http.MethodGet, "/v1/clientes/"+created.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/clientes?q=azul", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Loja Azul")

	rec = srv.do(t, http.MethodPost, "/v1/faturas", token, map[string]string{
		"clienteId":      created.ID,
		"numero":         "NF-10",
		"valor":          "250.00",
		"dataVencimento": "2024-03-20",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = srv.do(t, http.MethodDelete, "/v1/clientes/"+created.ID, token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/clientes/nao-existe", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCustomerValidationError(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodPost, "/v1/clientes", token, map[string]string{"nome": "Loja", "email": "invalido"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decodeErr(t, rec).Campo)
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	req := httptest.NewRequest(http.MethodPost, "/v1/clientes", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Régua de cobrança ---

func TestRuleRejectedWithProblems(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodPost, "/v1/cobranca/regras", token, map[string]any{
		"carteiraId":         "cart-1",
		"nome":               "",
		"diasAposVencimento": []int{0},
		"configuracoes":      map[string]any{"horarioEnvio": "09:00"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeErr(t, rec).Problems)
}

func TestRunEngineRequiresAdmin(t *testing.T) {
	srv := newTestServer(t)

	token := srv.login(t, "financeiro@empresa.com", "senha-fin")
	rec := srv.do(t, http.MethodPost, "/v1/cobranca/executar", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := srv.login(t, "admin@empresa.com", "s3nha-forte")
	rec = srv.do(t, http.MethodPost, "/v1/cobranca/executar", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report domain.RunReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Zero(t, report.Enviados)
}

func TestHistoryStatusNotFound(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodPatch, "/v1/cobranca/historico/h-404/status", token, map[string]string{"status": "entregue"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- Dashboard / Agenda ---

func TestDashboard(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodGet, "/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "proximosEventos")
}

func TestMonthGridInvalidMonth(t *testing.T) {
	srv := newTestServer(t)
	token := srv.login(t, "financeiro@empresa.com", "senha-fin")

	rec := srv.do(t, http.MethodGet, "/v1/agenda/calendario/2024/13", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/v1/agenda/calendario/2024/12", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
