package domain

import (
	"fmt"
	"time"
)

// DeliveryStatus is the state of one reminder send.
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "enviado"
	DeliveryDelivered DeliveryStatus = "entregue"
	DeliveryRead      DeliveryStatus = "lido"
	DeliveryError     DeliveryStatus = "erro"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliverySent, DeliveryDelivered, DeliveryRead, DeliveryError:
		return true
	}
	return false
}

// rank orders statuses so delivery webhooks never move a record backwards.
func (s DeliveryStatus) rank() int {
	switch s {
	case DeliverySent:
		return 1
	case DeliveryDelivered:
		return 2
	case DeliveryRead:
		return 3
	}
	return 0
}

// CanAdvanceTo reports whether a record in status s may move to next.
func (s DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	if next == DeliveryError {
		return s == DeliveryError || s == DeliverySent
	}
	return next.rank() > s.rank()
}

// CollectionHistory (HistoricoCobranca) records one reminder attempt for an
// (invoice, channel, fire date) combination.
type CollectionHistory struct {
	ID string `json:"id"`
	Tenant
	FaturaID        string         `json:"faturaId"`
	ClienteID       string         `json:"clienteId"`
	RegraID         string         `json:"regraId"`
	TemplateID      string         `json:"templateId"`
	Canal           ChannelKind    `json:"canal"`
	Tipo            MessageKind    `json:"tipo"`
	DataDisparo     string         `json:"dataDisparo"` // YYYY-MM-DD
	Destinatario    string         `json:"destinatario"`
	Assunto         string         `json:"assunto,omitempty"`
	Mensagem        string         `json:"mensagem"`
	Status          DeliveryStatus `json:"status"`
	Tentativas      int            `json:"tentativas"`
	Erro            string         `json:"erro,omitempty"`
	ProviderID      string         `json:"providerId,omitempty"`
	Link            string         `json:"link,omitempty"`
	EnviadoEm       *time.Time     `json:"enviadoEm,omitempty"`
	UltimaTentativa time.Time      `json:"ultimaTentativa"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// DedupeKey identifies the send so the engine never repeats it.
func (h *CollectionHistory) DedupeKey() string {
	return HistoryKey(h.RegraID, h.FaturaID, h.Canal, h.DataDisparo)
}

// HistoryKey builds the (rule, invoice, channel, date) dedupe key.
func HistoryKey(ruleID, invoiceID string, channel ChannelKind, date string) string {
	return fmt.Sprintf("%s|%s|%s|%s", ruleID, invoiceID, channel, date)
}

// HistoryFilter narrows ListHistory results. Zero fields are ignored.
type HistoryFilter struct {
	FaturaID  string
	ClienteID string
	RegraID   string
	Canal     ChannelKind
	Status    DeliveryStatus
	From      string // YYYY-MM-DD inclusive
	To        string // YYYY-MM-DD inclusive
}

// Match reports whether h passes the filter.
func (f HistoryFilter) Match(h *CollectionHistory) bool {
	switch {
	case f.FaturaID != "" && h.FaturaID != f.FaturaID:
		return false
	case f.ClienteID != "" && h.ClienteID != f.ClienteID:
		return false
	case f.RegraID != "" && h.RegraID != f.RegraID:
		return false
	case f.Canal != "" && h.Canal != f.Canal:
		return false
	case f.Status != "" && h.Status != f.Status:
		return false
	case f.From != "" && h.DataDisparo < f.From:
		return false
	case f.To != "" && h.DataDisparo > f.To:
		return false
	}
	return true
}

// HistoryStats aggregates reminder history counts.
type HistoryStats struct {
	Total     int                    `json:"total"`
	PorStatus map[DeliveryStatus]int `json:"porStatus"`
	PorCanal  map[ChannelKind]int    `json:"porCanal"`
	TaxaErro  float64                `json:"taxaErro"`
}

// RunReport summarizes one engine pass.
type RunReport struct {
	ExecutadoEm time.Time `json:"executadoEm"`
	Regras      int       `json:"regras"`
	Faturas     int       `json:"faturasAvaliadas"`
	Enviados    int       `json:"enviados"`
	Erros       int       `json:"erros"`
	Ignorados   int       `json:"ignorados"`
	Reenvios    int       `json:"reenvios"`
	Pausadas    []string  `json:"regrasPausadas,omitempty"`
}

// StatusUpdate is the body of PATCH /cobranca/historico/{id}/status, sent by
// delivery webhooks.
type StatusUpdate struct {
	Status DeliveryStatus `json:"status" validate:"required,oneof=enviado entregue lido erro"`
	Erro   string         `json:"erro,omitempty"`
}
