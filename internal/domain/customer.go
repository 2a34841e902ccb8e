package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Clientes (CRM)
// ============================================================

// CustomerStatus is the relationship status of a client.
type CustomerStatus string

const (
	CustomerActive     CustomerStatus = "ativo"
	CustomerInactive   CustomerStatus = "inativo"
	CustomerDelinquent CustomerStatus = "inadimplente"
)

// Customer (Cliente) is a CRM client record.
type Customer struct {
	ID string `json:"id"`
	Tenant
	Nome        string         `json:"nome" validate:"required"`
	Documento   string         `json:"documento,omitempty"` // CPF or CNPJ
	Email       string         `json:"email,omitempty" validate:"omitempty,email"`
	Telefone    string         `json:"telefone,omitempty"`
	WhatsApp    string         `json:"whatsapp,omitempty"`
	Segmento    string         `json:"segmento,omitempty"`
	Status      CustomerStatus `json:"status" validate:"omitempty,oneof=ativo inativo inadimplente"`
	Tags        []string       `json:"tags,omitempty"`
	Observacoes string         `json:"observacoes,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Phone returns the number reminders go to, preferring WhatsApp.
func (c *Customer) Phone() string {
	if c.WhatsApp != "" {
		return c.WhatsApp
	}
	return c.Telefone
}

// CustomerFilter narrows ListCustomers. Zero fields are ignored.
type CustomerFilter struct {
	Search   string
	Status   CustomerStatus
	Segmento string
}

// Match reports whether c passes the filter. Search is case-insensitive over
// name, e-mail and document (document also matched on digits only).
func (f CustomerFilter) Match(c *Customer) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Segmento != "" && !strings.EqualFold(c.Segmento, f.Segmento) {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		return ContainsFold(c.Nome, q) ||
			ContainsFold(c.Email, q) ||
			ContainsFold(c.Documento, q) ||
			(OnlyDigits(q) != "" && strings.Contains(OnlyDigits(c.Documento), OnlyDigits(q)))
	}
	return true
}

// CustomerDetails is the aggregated client view (ClienteDetalhes).
type CustomerDetails struct {
	Cliente          *Customer           `json:"cliente"`
	FaturasAbertas   []Invoice           `json:"faturasAbertas"`
	TotalEmAberto    decimal.Decimal     `json:"totalEmAberto"`
	TotalVencido     decimal.Decimal     `json:"totalVencido"`
	TotalRecebido    decimal.Decimal     `json:"totalRecebido"`
	UltimosLembretes []CollectionHistory `json:"ultimosLembretes"`
}

// ContainsFold reports whether substr is within s, case-insensitively.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// OnlyDigits strips every non-digit rune.
func OnlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
