package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Contas a receber (Faturas)
// ============================================================

// PaymentStatus is shared by invoices and payables.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pendente"
	StatusPaid      PaymentStatus = "paga"
	StatusOverdue   PaymentStatus = "vencida"
	StatusCancelled PaymentStatus = "cancelada"
)

// effectiveStatus derives "vencida" for pending records past their due date.
func effectiveStatus(stored PaymentStatus, dueDate string, today time.Time) PaymentStatus {
	if stored != StatusPending && stored != StatusOverdue {
		return stored
	}
	if dueDate != "" && dueDate < today.Format(DateLayout) {
		return StatusOverdue
	}
	return StatusPending
}

// Invoice (Fatura) is a receivable owed by a client.
type Invoice struct {
	ID string `json:"id"`
	Tenant
	CarteiraID     string          `json:"carteiraId"`
	ClienteID      string          `json:"clienteId" validate:"required"`
	Numero         string          `json:"numero" validate:"required"`
	Amount         decimal.Decimal `json:"valor"`
	Discount       decimal.Decimal `json:"desconto"`
	AmountPaid     decimal.Decimal `json:"valorPago"`
	DataEmissao    string          `json:"dataEmissao,omitempty"`
	DataVencimento string          `json:"dataVencimento" validate:"required,datetime=2006-01-02"`
	DataPagamento  string          `json:"dataPagamento,omitempty"`
	Status         PaymentStatus   `json:"status"`
	Descricao      string          `json:"descricao,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Open reports whether the invoice still expects payment.
func (i *Invoice) Open() bool {
	return i.Status == StatusPending || i.Status == StatusOverdue
}

// EffectiveStatus returns the status as of today.
func (i *Invoice) EffectiveStatus(today time.Time) PaymentStatus {
	return effectiveStatus(i.Status, i.DataVencimento, today)
}

// InvoiceFilter narrows ListInvoices. Zero fields are ignored.
type InvoiceFilter struct {
	Search     string
	Status     PaymentStatus
	ClienteID  string
	CarteiraID string
	From       string // due date, inclusive
	To         string // due date, inclusive
}

// Match reports whether inv passes the filter as of today. customerName
// lets search match the client name.
func (f InvoiceFilter) Match(inv *Invoice, customerName string, today time.Time) bool {
	switch {
	case f.Status != "" && inv.EffectiveStatus(today) != f.Status:
		return false
	case f.ClienteID != "" && inv.ClienteID != f.ClienteID:
		return false
	case f.CarteiraID != "" && inv.CarteiraID != f.CarteiraID:
		return false
	case f.From != "" && inv.DataVencimento < f.From:
		return false
	case f.To != "" && inv.DataVencimento > f.To:
		return false
	}
	if f.Search != "" {
		return ContainsFold(inv.Numero, f.Search) ||
			ContainsFold(inv.Descricao, f.Search) ||
			ContainsFold(customerName, f.Search)
	}
	return true
}

// PaymentRequest is the body of pay endpoints (realizarPagamento).
type PaymentRequest struct {
	DataPagamento string          `json:"dataPagamento" validate:"omitempty,datetime=2006-01-02"`
	ValorPago     decimal.Decimal `json:"valorPago"`
}
