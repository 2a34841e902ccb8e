package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/resilience"
)

// ============================================================
// Billing rules - table billing_rules
// Indexed columns are kept flat; the full rule lives in the jsonb
// column "definicao".
// ============================================================

const rulesTable = "billing_rules"

type ruleRow struct {
	ID         string          `json:"id"`
	EmpresaID  string          `json:"empresa_id"`
	FilialID   string          `json:"filial_id"`
	CarteiraID string          `json:"carteira_id"`
	Nome       string          `json:"nome"`
	Ativa      bool            `json:"ativa"`
	Status     string          `json:"status"`
	Erros      int             `json:"erros_consecutivos"`
	Definicao  json.RawMessage `json:"definicao"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func toRuleRow(r *domain.BillingRule) (*ruleRow, error) {
	def, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return &ruleRow{
		ID:         r.ID,
		EmpresaID:  r.EmpresaID,
		FilialID:   r.FilialID,
		CarteiraID: r.CarteiraID,
		Nome:       r.Nome,
		Ativa:      r.Ativa,
		Status:     string(r.Status),
		Erros:      r.ConsecutiveErrors,
		Definicao:  def,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func (row *ruleRow) toDomain() (domain.BillingRule, error) {
	var r domain.BillingRule
	if len(row.Definicao) > 0 {
		if err := json.Unmarshal(row.Definicao, &r); err != nil {
			return r, fmt.Errorf("decode billing rule %s: %w", row.ID, err)
		}
	}
	// flat columns win: they are what filters and toggles update
	r.ID = row.ID
	r.Tenant = domain.Tenant{EmpresaID: row.EmpresaID, FilialID: row.FilialID}
	r.CarteiraID = row.CarteiraID
	r.Nome = row.Nome
	r.Ativa = row.Ativa
	r.Status = domain.RuleStatus(row.Status)
	r.ConsecutiveErrors = row.Erros
	return r, nil
}

func tenantQuery(t domain.Tenant) url.Values {
	q := url.Values{}
	q.Set("empresa_id", "eq."+t.EmpresaID)
	q.Set("filial_id", "eq."+t.FilialID)
	return q
}

// RuleStore implements port.RuleStore on PostgREST.
type RuleStore struct {
	c *Client
}

// NewRuleStore creates the store.
func NewRuleStore(c *Client) *RuleStore {
	return &RuleStore{c: c}
}

func (s *RuleStore) CreateRule(ctx context.Context, r *domain.BillingRule) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateRule")
	defer span.End()

	row, err := toRuleRow(r)
	if err != nil {
		return err
	}
	return s.c.execute(ctx, "supabase/billing_rules", func() error {
		_, err := s.c.doPost(ctx, rulesTable, row)
		return err
	})
}

func (s *RuleStore) UpdateRule(ctx context.Context, r *domain.BillingRule) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRule")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", r.ID))

	row, err := toRuleRow(r)
	if err != nil {
		return err
	}
	q := tenantQuery(r.Tenant)
	q.Set("id", "eq."+r.ID)
	return s.c.execute(ctx, "supabase/billing_rules", func() error {
		n, err := s.c.doPatch(ctx, rulesTable+"?"+q.Encode(), row)
		if err != nil {
			return err
		}
		if n == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "regra de cobrança", ID: r.ID})
		}
		return nil
	})
}

// UpdateRuleState patches only erros_consecutivos, status and updated_at, so
// edits made to the rule in the meantime survive.
func (s *RuleStore) UpdateRuleState(ctx context.Context, tenant domain.Tenant, id string, consecutiveErrors int, status domain.RuleStatus, at time.Time) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateRuleState")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", id))

	patch := map[string]any{
		"erros_consecutivos": consecutiveErrors,
		"updated_at":         at,
	}
	if status != "" {
		patch["status"] = string(status)
	}
	q := tenantQuery(tenant)
	q.Set("id", "eq."+id)
	return s.c.execute(ctx, "supabase/billing_rules", func() error {
		n, err := s.c.doPatch(ctx, rulesTable+"?"+q.Encode(), patch)
		if err != nil {
			return err
		}
		if n == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "regra de cobrança", ID: id})
		}
		return nil
	})
}

func (s *RuleStore) DeleteRule(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteRule")
	defer span.End()

	q := tenantQuery(tenant)
	q.Set("id", "eq."+id)
	return s.c.execute(ctx, "supabase/billing_rules", func() error {
		n, err := s.c.doDelete(ctx, rulesTable+"?"+q.Encode())
		if err != nil {
			return err
		}
		if n == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "regra de cobrança", ID: id})
		}
		return nil
	})
}

func (s *RuleStore) GetRule(ctx context.Context, tenant domain.Tenant, id string) (*domain.BillingRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetRule")
	defer span.End()

	q := tenantQuery(tenant)
	q.Set("id", "eq."+id)
	q.Set("limit", "1")
	rules, err := s.list(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, &domain.ErrNotFound{Resource: "regra de cobrança", ID: id}
	}
	return &rules[0], nil
}

func (s *RuleStore) ListRules(ctx context.Context, tenant domain.Tenant) ([]domain.BillingRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRules")
	defer span.End()

	q := tenantQuery(tenant)
	q.Set("order", "created_at.asc")
	return s.list(ctx, q)
}

func (s *RuleStore) ListActiveRules(ctx context.Context) ([]domain.BillingRule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListActiveRules")
	defer span.End()

	q := url.Values{}
	q.Set("ativa", "is.true")
	q.Set("status", "eq."+string(domain.RuleActive))
	q.Set("order", "created_at.asc")
	return s.list(ctx, q)
}

func (s *RuleStore) list(ctx context.Context, q url.Values) ([]domain.BillingRule, error) {
	var out []domain.BillingRule
	err := s.c.execute(ctx, "supabase/billing_rules", func() error {
		body, err := s.c.doRequest(ctx, http.MethodGet, rulesTable+"?"+q.Encode())
		if err != nil {
			return err
		}
		out = []domain.BillingRule{}
		if body == nil {
			return nil
		}
		var rows []ruleRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("decode billing_rules: %w", err)
		}
		for i := range rows {
			r, err := rows[i].toDomain()
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}
