package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Trigger model: which days a rule fires for an invoice
// ============================================================

// FireDates returns the candidate fire dates for an invoice due on due:
// {due-k : k in DaysBeforeDue} ∪ {due} ∪ {due+k : k in DaysAfterDue},
// deduplicated and in ascending order.
func (r *BillingRule) FireDates(due time.Time) []time.Time {
	due = Midnight(due)
	offsets := r.Offsets()
	out := make([]time.Time, 0, len(offsets))
	for _, off := range offsets {
		out = append(out, due.AddDate(0, 0, off))
	}
	return out
}

// Offsets returns the signed day offsets the rule fires on, ascending.
func (r *BillingRule) Offsets() []int {
	offsets := make([]int, 0, len(r.DaysBeforeDue)+len(r.DaysAfterDue)+1)
	for _, k := range r.DaysBeforeDue {
		offsets = append(offsets, -k)
	}
	if !r.SkipDueDate {
		offsets = append(offsets, 0)
	}
	offsets = append(offsets, r.DaysAfterDue...)
	return uniqueSorted(offsets)
}

// FiresOn reports whether day is a candidate fire date for due, and the
// signed offset (day - due) when it is.
func (r *BillingRule) FiresOn(day, due time.Time) (int, bool) {
	offset := DaysBetween(due, day)
	return offset, slices.Contains(r.Offsets(), offset)
}

// SuppressReason explains why a rule does not fire on a given day.
type SuppressReason string

const (
	SuppressNone     SuppressReason = ""
	SuppressWeekday  SuppressReason = "dia_semana_desabilitado"
	SuppressWeekend  SuppressReason = "fim_de_semana"
	SuppressHoliday  SuppressReason = "feriado"
	SuppressInactive SuppressReason = "regra_inativa"
)

// Suppressed reports whether the rule's calendar settings block sends on day.
// isHoliday may be nil when no holiday calendar is available.
func (r *BillingRule) Suppressed(day time.Time, isHoliday func(time.Time) bool) SuppressReason {
	if !r.Ativa || r.Status == RulePaused {
		return SuppressInactive
	}
	wd := int(day.Weekday())
	if len(r.Settings.Weekdays) > 0 && !slices.Contains(r.Settings.Weekdays, wd) {
		return SuppressWeekday
	}
	if r.Settings.PauseWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
		return SuppressWeekend
	}
	if r.Settings.PauseHolidays && isHoliday != nil && isHoliday(day) {
		return SuppressHoliday
	}
	return SuppressNone
}

// Applies evaluates the rule's applicability condition against an invoice
// and its customer.
func (r *BillingRule) Applies(inv *Invoice, cust *Customer) bool {
	c := r.Conditions
	if inv.Amount.LessThan(c.MinAmount) {
		return false
	}
	if c.MaxAmount.IsPositive() && inv.Amount.GreaterThan(c.MaxAmount) {
		return false
	}
	if slices.Contains(c.ExcludedCustomers, inv.ClienteID) {
		return false
	}
	if len(c.Segments) > 0 && (cust == nil || !slices.Contains(c.Segments, cust.Segmento)) {
		return false
	}
	if len(c.CustomerStatuses) > 0 && (cust == nil || !slices.Contains(c.CustomerStatuses, string(cust.Status))) {
		return false
	}
	return true
}

var (
	hundred     = decimal.NewFromInt(100)
	daysInMonth = decimal.NewFromInt(30)
)

// LateFee computes fine + pro-rata daily interest for daysLate days.
// No charges apply on or before the due date.
func (c LateCharges) LateFee(amount decimal.Decimal, daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	fine := amount.Mul(c.FinePercent).Div(hundred)
	interest := amount.Mul(c.MonthlyInterestPercent).Div(hundred).Div(daysInMonth).Mul(decimal.NewFromInt(int64(daysLate)))
	return fine.Add(interest).Round(2)
}

// AmountDue returns amount + fee - discount, never negative.
func AmountDue(amount, fee, discount decimal.Decimal) decimal.Decimal {
	total := amount.Add(fee).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// NewMessageData computes the template values for an invoice reminded on
// day, applying the rule's late charges.
func NewMessageData(r *BillingRule, inv *Invoice, customerName string, due, day time.Time) MessageData {
	fee := r.Charges.LateFee(inv.Amount, DaysBetween(due, day))
	return MessageData{
		CustomerName:  customerName,
		InvoiceNumber: inv.Numero,
		Amount:        inv.Amount,
		DueDate:       due,
		LateCharges:   fee,
		Total:         AmountDue(inv.Amount, fee, inv.Discount),
	}
}

// PreviewRequest asks for the fire dates and messages of a rule applied to a
// sample invoice. Either Regra (unsaved draft) or RegraID must be given.
type PreviewRequest struct {
	Regra          *BillingRule    `json:"regra,omitempty"`
	RegraID        string          `json:"regraId,omitempty"`
	DataVencimento string          `json:"dataVencimento" validate:"required,datetime=2006-01-02"`
	Valor          decimal.Decimal `json:"valor"`
	Desconto       decimal.Decimal `json:"desconto"`
	NomeCliente    string          `json:"nomeCliente"`
	NumeroFatura   string          `json:"numeroFatura"`
}

// PreviewFire is one candidate fire date of a preview.
type PreviewFire struct {
	Data               string            `json:"data"`
	Dias               int               `json:"dias"`
	Tipo               MessageKind       `json:"tipo"`
	Suprimido          SuppressReason    `json:"suprimido,omitempty"`
	Encargos           decimal.Decimal   `json:"encargos"`
	ValorTotal         decimal.Decimal   `json:"valorTotal"`
	Mensagens          []RenderedMessage `json:"mensagens"`
	VariaveisPendentes []string          `json:"variaveisPendentes,omitempty"`
}

// PreviewResult is the response of a rule preview.
type PreviewResult struct {
	Datas     []string      `json:"datas"`
	Disparos  []PreviewFire `json:"disparos"`
	Problemas []string      `json:"problemas,omitempty"`
}
