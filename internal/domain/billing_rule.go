package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Régua de Cobrança (billing reminder rules)
// ============================================================

// ChannelKind is the delivery channel of a reminder.
type ChannelKind string

const (
	ChannelEmail            ChannelKind = "email"
	ChannelSMS              ChannelKind = "sms"
	ChannelWhatsAppBusiness ChannelKind = "whatsapp_business_api"
	ChannelWhatsAppWeb      ChannelKind = "whatsapp_web"
)

// Valid reports whether k is one of the supported channels.
func (k ChannelKind) Valid() bool {
	switch k {
	case ChannelEmail, ChannelSMS, ChannelWhatsAppBusiness, ChannelWhatsAppWeb:
		return true
	}
	return false
}

// MessageKind tags a template by its position relative to the due date.
type MessageKind string

const (
	MessagePreReminder MessageKind = "pre_lembrete"
	MessageDueDate     MessageKind = "vencimento"
	MessageOverdue     MessageKind = "pos_vencimento"
)

// MessageKindFor maps a day offset (today - due date) to its message kind.
func MessageKindFor(offset int) MessageKind {
	switch {
	case offset < 0:
		return MessagePreReminder
	case offset == 0:
		return MessageDueDate
	default:
		return MessageOverdue
	}
}

// RuleStatus is the lifecycle state of a rule. A rule is paused by the
// engine after too many consecutive delivery errors.
type RuleStatus string

const (
	RuleActive RuleStatus = "ativa"
	RulePaused RuleStatus = "pausada"
)

// BillingRule (RegraCobranca) configures when and how reminders are sent for
// invoices of one receivables portfolio.
type BillingRule struct {
	ID string `json:"id"`
	Tenant
	CarteiraID string     `json:"carteiraId" validate:"required"`
	Nome       string     `json:"nome" validate:"required"`
	Descricao  string     `json:"descricao,omitempty"`
	Ativa      bool       `json:"ativa"`
	Status     RuleStatus `json:"status"`

	DaysBeforeDue []int `json:"diasAntesVencimento"`
	DaysAfterDue  []int `json:"diasAposVencimento"`
	SkipDueDate   bool  `json:"ignorarVencimento"`

	Settings   RuleSettings           `json:"configuracoes"`
	Charges    LateCharges            `json:"encargos"`
	Channels   []Channel              `json:"canais"`
	Conditions ApplicabilityCondition `json:"condicoes"`

	ConsecutiveErrors int       `json:"errosConsecutivos"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// RuleSettings holds the scheduling and retry configuration of a rule.
type RuleSettings struct {
	SendTime             string `json:"horarioEnvio"` // HH:MM
	Weekdays             []int  `json:"diasSemana"`   // 0=domingo..6=sábado; empty = every day
	PauseWeekends        bool   `json:"pausarFinsDeSemana"`
	PauseHolidays        bool   `json:"pausarFeriados"`
	MaxAttempts          int    `json:"tentativasMaximas"`
	RetryIntervalMinutes int    `json:"intervaloTentativas"`
	PauseAfterErrors     int    `json:"pausarAposErros"`
}

// LateCharges configures the fine and interest applied after the due date.
type LateCharges struct {
	FinePercent            decimal.Decimal `json:"multaPercentual"`
	MonthlyInterestPercent decimal.Decimal `json:"jurosMensalPercentual"`
}

// Channel (CanalCobranca) is one delivery channel with its templates.
type Channel struct {
	Tipo      ChannelKind       `json:"tipo"`
	Ativo     bool              `json:"ativo"`
	Config    map[string]string `json:"configuracao,omitempty"`
	Templates []Template        `json:"templates"`
}

// Template (TemplateCobranca) is a message body tied to a day offset.
type Template struct {
	ID        string      `json:"id"`
	Tipo      MessageKind `json:"tipo"`
	Dias      int         `json:"dias"` // offset relative to the due date, negative = before
	Assunto   string      `json:"assunto,omitempty"`
	Conteudo  string      `json:"conteudo"`
	Variaveis []string    `json:"variaveis,omitempty"`
}

// ApplicabilityCondition restricts which invoices a rule applies to.
type ApplicabilityCondition struct {
	MinAmount         decimal.Decimal `json:"valorMinimo"`
	MaxAmount         decimal.Decimal `json:"valorMaximo"` // zero = unbounded
	Segments          []string        `json:"segmentos,omitempty"`
	CustomerStatuses  []string        `json:"statusCliente,omitempty"`
	ExcludedCustomers []string        `json:"clientesExcluidos,omitempty"`
}

// EnabledChannels returns the channels with Ativo set.
func (r *BillingRule) EnabledChannels() []Channel {
	out := make([]Channel, 0, len(r.Channels))
	for _, c := range r.Channels {
		if c.Ativo {
			out = append(out, c)
		}
	}
	return out
}

// Normalize deduplicates and sorts the offsets and fills defaults. Days
// before the due date may arrive signed (-3 for three days before) and are
// stored as positive counts.
func (r *BillingRule) Normalize() {
	for i, d := range r.DaysBeforeDue {
		if d < 0 {
			r.DaysBeforeDue[i] = -d
		}
	}
	r.DaysBeforeDue = uniqueSorted(r.DaysBeforeDue)
	r.DaysAfterDue = uniqueSorted(r.DaysAfterDue)
	r.Settings.Weekdays = uniqueSorted(r.Settings.Weekdays)
	if r.Settings.SendTime == "" {
		r.Settings.SendTime = "09:00"
	}
	if r.Settings.MaxAttempts <= 0 {
		r.Settings.MaxAttempts = 1
	}
	if r.Status == "" {
		r.Status = RuleActive
	}
}

// Validate returns every reason the rule cannot be persisted.
// An empty result means the rule is valid.
func (r *BillingRule) Validate() []string {
	var problems []string

	if strings.TrimSpace(r.Nome) == "" {
		problems = append(problems, "nome é obrigatório")
	}
	if r.CarteiraID == "" {
		problems = append(problems, "carteira de cobrança é obrigatória")
	}
	for _, d := range r.DaysBeforeDue {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("diasAntesVencimento deve ser positivo: %d", d))
		}
	}
	for _, d := range r.DaysAfterDue {
		if d <= 0 {
			problems = append(problems, fmt.Sprintf("diasAposVencimento deve ser positivo: %d", d))
		}
	}
	for _, wd := range r.Settings.Weekdays {
		if wd < 0 || wd > 6 {
			problems = append(problems, fmt.Sprintf("dia da semana inválido: %d", wd))
		}
	}
	if _, _, err := r.Settings.ParseSendTime(); err != nil {
		problems = append(problems, err.Error())
	}
	if r.Conditions.MaxAmount.IsPositive() && r.Conditions.MinAmount.GreaterThan(r.Conditions.MaxAmount) {
		problems = append(problems, "valorMinimo maior que valorMaximo")
	}

	enabled := r.EnabledChannels()
	if len(enabled) == 0 {
		problems = append(problems, "selecione pelo menos um canal de envio")
	}
	seen := make(map[ChannelKind]bool)
	for _, c := range r.Channels {
		if !c.Tipo.Valid() {
			problems = append(problems, fmt.Sprintf("canal desconhecido: %s", c.Tipo))
			continue
		}
		if seen[c.Tipo] {
			problems = append(problems, fmt.Sprintf("canal duplicado: %s", c.Tipo))
		}
		seen[c.Tipo] = true
		if !c.Ativo {
			continue
		}
		if len(c.Templates) == 0 {
			problems = append(problems, fmt.Sprintf("canal %s não possui templates", c.Tipo))
		}
		for i, t := range c.Templates {
			problems = append(problems, t.validate(c.Tipo, i)...)
		}
	}
	return problems
}

// CoverageWarnings lists templates and fire dates that do not meet: a
// template whose dias is not one of the rule's offsets never fires, and an
// offset without a template on an enabled channel sends nothing there.
// Neither blocks saving the rule.
func (r *BillingRule) CoverageWarnings() []string {
	var warnings []string
	offsets := r.Offsets()
	for _, c := range r.EnabledChannels() {
		for i, t := range c.Templates {
			if !slices.Contains(offsets, t.Dias) {
				warnings = append(warnings, fmt.Sprintf("canal %s, template %d: dias %d não corresponde a nenhum disparo da régua", c.Tipo, i+1, t.Dias))
			}
		}
		for _, off := range offsets {
			if _, ok := c.TemplateFor(off); !ok {
				warnings = append(warnings, fmt.Sprintf("canal %s sem template para dias %d", c.Tipo, off))
			}
		}
	}
	return warnings
}

func (t Template) validate(kind ChannelKind, idx int) []string {
	var problems []string
	where := fmt.Sprintf("canal %s, template %d", kind, idx+1)

	if strings.TrimSpace(t.Conteudo) == "" {
		problems = append(problems, where+": conteúdo é obrigatório")
	}
	if kind == ChannelEmail && strings.TrimSpace(t.Assunto) == "" {
		problems = append(problems, where+": assunto é obrigatório para e-mail")
	}
	if t.Tipo != MessageKindFor(t.Dias) {
		problems = append(problems, fmt.Sprintf("%s: tipo %s incompatível com dias %d", where, t.Tipo, t.Dias))
	}

	declared := make(map[string]bool, len(t.Variaveis))
	for _, v := range t.Variaveis {
		declared[strings.Trim(v, "{} ")] = true
	}
	for _, tok := range Tokens(t.Assunto + "\n" + t.Conteudo) {
		if !IsKnownPlaceholder(tok) {
			problems = append(problems, fmt.Sprintf("%s: variável desconhecida {{%s}}", where, tok))
			continue
		}
		if len(declared) > 0 && !declared[tok] {
			problems = append(problems, fmt.Sprintf("%s: variável {{%s}} não declarada", where, tok))
		}
	}
	return problems
}

// ParseSendTime parses HorarioEnvio (HH:MM).
func (s RuleSettings) ParseSendTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.SendTime)
	if err != nil {
		return 0, 0, fmt.Errorf("horarioEnvio inválido: %q", s.SendTime)
	}
	return t.Hour(), t.Minute(), nil
}

// TemplateFor returns the template of channel c matching the offset.
func (c Channel) TemplateFor(offset int) (Template, bool) {
	kind := MessageKindFor(offset)
	for _, t := range c.Templates {
		if t.Tipo == kind && t.Dias == offset {
			return t, true
		}
	}
	return Template{}, false
}

func uniqueSorted(in []int) []int {
	if len(in) == 0 {
		return in
	}
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

// RuleFilter narrows ListRules. Zero fields are ignored.
type RuleFilter struct {
	CarteiraID string
	Ativa      *bool
}

// Match reports whether r passes the filter.
func (f RuleFilter) Match(r *BillingRule) bool {
	if f.CarteiraID != "" && r.CarteiraID != f.CarteiraID {
		return false
	}
	if f.Ativa != nil && r.Ativa != *f.Ativa {
		return false
	}
	return true
}
