package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Placeholders accepted in reminder templates.
const (
	PlaceholderCustomerName  = "nomeCliente"
	PlaceholderInvoiceNumber = "numeroFatura"
	PlaceholderInvoiceAmount = "valorFatura"
	PlaceholderDueDate       = "dataVencimento"
	PlaceholderLateCharges   = "jurosMulta"
	PlaceholderTotalAmount   = "valorTotal"
)

var knownPlaceholders = map[string]bool{
	PlaceholderCustomerName:  true,
	PlaceholderInvoiceNumber: true,
	PlaceholderInvoiceAmount: true,
	PlaceholderDueDate:       true,
	PlaceholderLateCharges:   true,
	PlaceholderTotalAmount:   true,
}

var tokenRegex = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// IsKnownPlaceholder reports whether name is a supported placeholder.
func IsKnownPlaceholder(name string) bool {
	return knownPlaceholders[name]
}

// Tokens returns the distinct placeholder names used in text, in order of
// first appearance.
func Tokens(text string) []string {
	matches := tokenRegex.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Render substitutes every {{token}} present in vars. Tokens without a value
// are left untouched so they can be reported by UnresolvedTokens.
func Render(text string, vars map[string]string) string {
	return tokenRegex.ReplaceAllStringFunc(text, func(match string) string {
		name := tokenRegex.FindStringSubmatch(match)[1]
		if v, ok := vars[name]; ok {
			return v
		}
		return match
	})
}

// UnresolvedTokens returns the placeholders still present after rendering.
func UnresolvedTokens(rendered string) []string {
	return Tokens(rendered)
}

// MessageData carries the invoice/customer values substituted into a template.
type MessageData struct {
	CustomerName  string
	InvoiceNumber string
	Amount        decimal.Decimal
	DueDate       time.Time
	LateCharges   decimal.Decimal
	Total         decimal.Decimal
}

// Vars converts the data into the placeholder map used by Render.
func (d MessageData) Vars() map[string]string {
	return map[string]string{
		PlaceholderCustomerName:  d.CustomerName,
		PlaceholderInvoiceNumber: d.InvoiceNumber,
		PlaceholderInvoiceAmount: FormatBRL(d.Amount),
		PlaceholderDueDate:       d.DueDate.Format("02/01/2006"),
		PlaceholderLateCharges:   FormatBRL(d.LateCharges),
		PlaceholderTotalAmount:   FormatBRL(d.Total),
	}
}

// RenderedMessage is a template rendered for one invoice.
type RenderedMessage struct {
	TemplateID string      `json:"templateId"`
	Canal      ChannelKind `json:"canal"`
	Tipo       MessageKind `json:"tipo"`
	Assunto    string      `json:"assunto,omitempty"`
	Conteudo   string      `json:"conteudo"`
}

// RenderTemplate renders subject and body of t with data.
func RenderTemplate(kind ChannelKind, t Template, data MessageData) RenderedMessage {
	vars := data.Vars()
	return RenderedMessage{
		TemplateID: t.ID,
		Canal:      kind,
		Tipo:       t.Tipo,
		Assunto:    Render(t.Assunto, vars),
		Conteudo:   Render(t.Conteudo, vars),
	}
}

// FormatBRL formats an amount as Brazilian currency, e.g. "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "R$ " + b.String() + "," + frac
}
