package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Contas a pagar
// ============================================================

// Frequency is the recurrence period of a recurring payable.
type Frequency string

const (
	FrequencyMonthly   Frequency = "mensal"
	FrequencyQuarterly Frequency = "trimestral"
	FrequencySemester  Frequency = "semestral"
	FrequencyYearly    Frequency = "anual"
)

// Months returns the number of months between occurrences.
func (f Frequency) Months() int {
	switch f {
	case FrequencyQuarterly:
		return 3
	case FrequencySemester:
		return 6
	case FrequencyYearly:
		return 12
	case FrequencyMonthly:
		return 1
	}
	return 0
}

// Payable (ContaPagar) is a bill the company owes.
type Payable struct {
	ID string `json:"id"`
	Tenant
	Fornecedor       string          `json:"fornecedor" validate:"required"`
	Descricao        string          `json:"descricao,omitempty"`
	Categoria        string          `json:"categoria,omitempty"`
	Amount           decimal.Decimal `json:"valor"`
	AmountPaid       decimal.Decimal `json:"valorPago"`
	DataVencimento   string          `json:"dataVencimento" validate:"required,datetime=2006-01-02"`
	DataPagamento    string          `json:"dataPagamento,omitempty"`
	Status           PaymentStatus   `json:"status"`
	Recorrente       bool            `json:"recorrente"`
	Frequencia       Frequency       `json:"frequencia,omitempty" validate:"omitempty,oneof=mensal trimestral semestral anual"`
	Parcela          int             `json:"parcela,omitempty"`
	GrupoRecorrencia string          `json:"grupoRecorrencia,omitempty"`
	Observacoes      string          `json:"observacoes,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// EffectiveStatus returns the status as of today.
func (p *Payable) EffectiveStatus(today time.Time) PaymentStatus {
	return effectiveStatus(p.Status, p.DataVencimento, today)
}

// PayableFilter narrows ListPayables. Zero fields are ignored.
type PayableFilter struct {
	Search    string
	Status    PaymentStatus
	Categoria string
	From      string
	To        string
}

// Match reports whether p passes the filter as of today.
func (f PayableFilter) Match(p *Payable, today time.Time) bool {
	switch {
	case f.Status != "" && p.EffectiveStatus(today) != f.Status:
		return false
	case f.Categoria != "" && p.Categoria != f.Categoria:
		return false
	case f.From != "" && p.DataVencimento < f.From:
		return false
	case f.To != "" && p.DataVencimento > f.To:
		return false
	}
	if f.Search != "" {
		return ContainsFold(p.Fornecedor, f.Search) ||
			ContainsFold(p.Descricao, f.Search) ||
			ContainsFold(p.Categoria, f.Search)
	}
	return true
}

// PayablesSummary totals payables by effective status.
type PayablesSummary struct {
	Quantidade    int             `json:"quantidade"`
	TotalPendente decimal.Decimal `json:"totalPendente"`
	TotalVencido  decimal.Decimal `json:"totalVencido"`
	TotalPago     decimal.Decimal `json:"totalPago"`
}

// RecurrenceRequest is the body of POST /contas-pagar/{id}/recorrencia.
type RecurrenceRequest struct {
	Quantidade int `json:"quantidade" validate:"required,min=1,max=60"`
}
