package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
)

// ============================================================
// Reminder history - table collection_history
// ============================================================

const historyTable = "collection_history"

type historyRow struct {
	ID              string     `json:"id"`
	EmpresaID       string     `json:"empresa_id"`
	FilialID        string     `json:"filial_id"`
	DedupeKey       string     `json:"dedupe_key"`
	FaturaID        string     `json:"fatura_id"`
	ClienteID       string     `json:"cliente_id"`
	RegraID         string     `json:"regra_id"`
	TemplateID      string     `json:"template_id"`
	Canal           string     `json:"canal"`
	Tipo            string     `json:"tipo"`
	DataDisparo     string     `json:"data_disparo"`
	Destinatario    string     `json:"destinatario"`
	Assunto         string     `json:"assunto"`
	Mensagem        string     `json:"mensagem"`
	Status          string     `json:"status"`
	Tentativas      int        `json:"tentativas"`
	Erro            string     `json:"erro"`
	ProviderID      string     `json:"provider_id"`
	Link            string     `json:"link"`
	EnviadoEm       *time.Time `json:"enviado_em"`
	UltimaTentativa time.Time  `json:"ultima_tentativa"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toHistoryRow(h *domain.CollectionHistory) *historyRow {
	return &historyRow{
		ID:              h.ID,
		EmpresaID:       h.EmpresaID,
		FilialID:        h.FilialID,
		DedupeKey:       h.DedupeKey(),
		FaturaID:        h.FaturaID,
		ClienteID:       h.ClienteID,
		RegraID:         h.RegraID,
		TemplateID:      h.TemplateID,
		Canal:           string(h.Canal),
		Tipo:            string(h.Tipo),
		DataDisparo:     h.DataDisparo,
		Destinatario:    h.Destinatario,
		Assunto:         h.Assunto,
		Mensagem:        h.Mensagem,
		Status:          string(h.Status),
		Tentativas:      h.Tentativas,
		Erro:            h.Erro,
		ProviderID:      h.ProviderID,
		Link:            h.Link,
		EnviadoEm:       h.EnviadoEm,
		UltimaTentativa: h.UltimaTentativa,
		CreatedAt:       h.CreatedAt,
	}
}

func (row *historyRow) toDomain() domain.CollectionHistory {
	return domain.CollectionHistory{
		ID:              row.ID,
		Tenant:          domain.Tenant{EmpresaID: row.EmpresaID, FilialID: row.FilialID},
		FaturaID:        row.FaturaID,
		ClienteID:       row.ClienteID,
		RegraID:         row.RegraID,
		TemplateID:      row.TemplateID,
		Canal:           domain.ChannelKind(row.Canal),
		Tipo:            domain.MessageKind(row.Tipo),
		DataDisparo:     row.DataDisparo,
		Destinatario:    row.Destinatario,
		Assunto:         row.Assunto,
		Mensagem:        row.Mensagem,
		Status:          domain.DeliveryStatus(row.Status),
		Tentativas:      row.Tentativas,
		Erro:            row.Erro,
		ProviderID:      row.ProviderID,
		Link:            row.Link,
		EnviadoEm:       row.EnviadoEm,
		UltimaTentativa: row.UltimaTentativa,
		CreatedAt:       row.CreatedAt,
	}
}

// HistoryStore implements port.HistoryStore on PostgREST.
type HistoryStore struct {
	c *Client
}

// NewHistoryStore creates the store.
func NewHistoryStore(c *Client) *HistoryStore {
	return &HistoryStore{c: c}
}

func (s *HistoryStore) CreateHistory(ctx context.Context, h *domain.CollectionHistory) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateHistory")
	defer span.End()

	row := toHistoryRow(h)
	return s.c.execute(ctx, "supabase/collection_history", func() error {
		_, err := s.c.doPost(ctx, historyTable, row)
		return err
	})
}

func (s *HistoryStore) UpdateHistory(ctx context.Context, h *domain.CollectionHistory) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateHistory")
	defer span.End()

	row := toHistoryRow(h)
	q := tenantQuery(h.Tenant)
	q.Set("id", "eq."+h.ID)
	return s.c.execute(ctx, "supabase/collection_history", func() error {
		n, err := s.c.doPatch(ctx, historyTable+"?"+q.Encode(), row)
		if err != nil {
			return err
		}
		if n == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "histórico de cobrança", ID: h.ID})
		}
		return nil
	})
}

func (s *HistoryStore) GetHistory(ctx context.Context, tenant domain.Tenant, id string) (*domain.CollectionHistory, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetHistory")
	defer span.End()

	q := tenantQuery(tenant)
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	return s.first(ctx, q, id)
}

func (s *HistoryStore) FindHistoryByKey(ctx context.Context, tenant domain.Tenant, key string) (*domain.CollectionHistory, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindHistoryByKey")
	defer span.End()

	q := tenantQuery(tenant)
	q.Set("dedupe_key", "eq."+key)
	q.Set("limit", "1")
	return s.first(ctx, q, key)
}

func (s *HistoryStore) ListHistory(ctx context.Context, tenant domain.Tenant, f domain.HistoryFilter) ([]domain.CollectionHistory, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListHistory")
	defer span.End()

	q := tenantQuery(tenant)
	setEq(q, "fatura_id", f.FaturaID)
	setEq(q, "cliente_id", f.ClienteID)
	setEq(q, "regra_id", f.RegraID)
	setEq(q, "canal", string(f.Canal))
	setEq(q, "status", string(f.Status))
	if f.From != "" {
		q.Add("data_disparo", "gte."+f.From)
	}
	if f.To != "" {
		q.Add("data_disparo", "lte."+f.To)
	}
	q.Set("order", "created_at.asc")
	return s.list(ctx, q)
}

func (s *HistoryStore) ListRetryable(ctx context.Context, tenant domain.Tenant, maxAttempts int, ruleID string) ([]domain.CollectionHistory, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRetryable")
	defer span.End()

	q := tenantQuery(tenant)
	q.Set("regra_id", "eq."+ruleID)
	q.Set("status", "eq."+string(domain.DeliveryError))
	q.Set("tentativas", "lt."+strconv.Itoa(maxAttempts))
	return s.list(ctx, q)
}

func (s *HistoryStore) first(ctx context.Context, q url.Values, id string) (*domain.CollectionHistory, error) {
	rows, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "histórico de cobrança", ID: id}
	}
	return &rows[0], nil
}

func (s *HistoryStore) list(ctx context.Context, q url.Values) ([]domain.CollectionHistory, error) {
	var out []domain.CollectionHistory
	err := s.c.execute(ctx, "supabase/collection_history", func() error {
		body, err := s.c.doRequest(ctx, http.MethodGet, historyTable+"?"+q.Encode())
		if err != nil {
			return err
		}
		out = []domain.CollectionHistory{}
		if body == nil {
			return nil
		}
		var rows []historyRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode collection_history: %w", err)
		}
		for i := range rows {
			out = append(out, rows[i].toDomain())
		}
		return nil
	})
	return out, err
}

func setEq(q url.Values, column, value string) {
	if value != "" {
		q.Set(column, "eq."+value)
	}
}
