package domain

import (
	"sort"
	"time"
)

// ============================================================
// Agenda: eventos, feriados e reuniões
// ============================================================

// Recurrence is how an event repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "nenhuma"
	RecurrenceDaily   Recurrence = "diaria"
	RecurrenceWeekly  Recurrence = "semanal"
	RecurrenceMonthly Recurrence = "mensal"
)

// maxOccurrences bounds recurrence expansion of a single event.
const maxOccurrences = 1000

// Event (EventoAgenda) is a calendar entry.
type Event struct {
	ID string `json:"id"`
	Tenant
	Titulo         string     `json:"titulo" validate:"required"`
	Descricao      string     `json:"descricao,omitempty"`
	Inicio         time.Time  `json:"inicio" validate:"required"`
	Fim            time.Time  `json:"fim"`
	DiaInteiro     bool       `json:"diaInteiro"`
	Tipo           string     `json:"tipo,omitempty"` // reuniao, tarefa, lembrete, vencimento...
	Local          string     `json:"local,omitempty"`
	Participantes  []string   `json:"participantes,omitempty"`
	Recorrencia    Recurrence `json:"recorrencia,omitempty" validate:"omitempty,oneof=nenhuma diaria semanal mensal"`
	RecorrenciaAte string     `json:"recorrenciaAte,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Cor            string     `json:"cor,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// EventOccurrence is one concrete instance of an (optionally recurring) event.
type EventOccurrence struct {
	EventoID   string    `json:"eventoId"`
	Titulo     string    `json:"titulo"`
	Tipo       string    `json:"tipo,omitempty"`
	Inicio     time.Time `json:"inicio"`
	Fim        time.Time `json:"fim"`
	DiaInteiro bool      `json:"diaInteiro"`
	Cor        string    `json:"cor,omitempty"`
}

// Occurrences expands the event into the instances starting before to and
// ending on or after from.
func (e *Event) Occurrences(from, to time.Time) []EventOccurrence {
	duration := e.Fim.Sub(e.Inicio)
	if duration < 0 {
		duration = 0
	}

	var until time.Time
	if e.RecorrenciaAte != "" {
		if d, err := ParseDate(e.RecorrenciaAte, e.Inicio.Location()); err == nil {
			until = d.AddDate(0, 0, 1)
		}
	}

	var out []EventOccurrence
	for n := 0; n < maxOccurrences; n++ {
		start, ok := e.nth(n)
		if !ok || !start.Before(to) || (!until.IsZero() && !start.Before(until)) {
			break
		}
		end := start.Add(duration)
		if !end.Before(Midnight(from)) {
			out = append(out, EventOccurrence{
				EventoID:   e.ID,
				Titulo:     e.Titulo,
				Tipo:       e.Tipo,
				Inicio:     start,
				Fim:        end,
				DiaInteiro: e.DiaInteiro,
				Cor:        e.Cor,
			})
		}
	}
	return out
}

func (e *Event) nth(n int) (time.Time, bool) {
	switch e.Recorrencia {
	case RecurrenceDaily:
		return e.Inicio.AddDate(0, 0, n), true
	case RecurrenceWeekly:
		return e.Inicio.AddDate(0, 0, 7*n), true
	case RecurrenceMonthly:
		return e.Inicio.AddDate(0, n, 0), true
	default:
		return e.Inicio, n == 0
	}
}

// AgendaHoliday (FeriadoNacional) is a holiday registered by the company,
// on top of the national calendar.
type AgendaHoliday struct {
	ID string `json:"id"`
	Tenant
	Nome       string    `json:"nome" validate:"required"`
	Data       string    `json:"data" validate:"required,datetime=2006-01-02"`
	Recorrente bool      `json:"recorrente"` // repeats every year on the same day
	CreatedAt  time.Time `json:"createdAt"`
}

// ForYear returns the holiday as it falls in year, if it does.
func (h *AgendaHoliday) ForYear(year int) (Holiday, bool) {
	d, err := ParseDate(h.Data, time.UTC)
	if err != nil {
		return Holiday{}, false
	}
	if d.Year() != year {
		if !h.Recorrente {
			return Holiday{}, false
		}
		d = time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}
	return Holiday{Data: d.Format(DateLayout), Nome: h.Nome, Origem: "empresa"}, true
}

// Meeting (Reuniao) is a scheduled meeting with an optional video link.
type Meeting struct {
	ID string `json:"id"`
	Tenant
	Titulo         string    `json:"titulo" validate:"required"`
	Descricao      string    `json:"descricao,omitempty"`
	Inicio         time.Time `json:"inicio" validate:"required"`
	DuracaoMinutos int       `json:"duracaoMinutos" validate:"omitempty,min=5,max=1440"`
	Participantes  []string  `json:"participantes,omitempty"`
	ClienteID      string    `json:"clienteId,omitempty"`
	Link           string    `json:"link,omitempty" validate:"omitempty,url"`
	CreatedAt      time.Time `json:"createdAt"`
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Data     string            `json:"data"`
	Dia      int               `json:"dia"`
	NoMes    bool              `json:"noMes"`
	Hoje     bool              `json:"hoje"`
	Eventos  []EventOccurrence `json:"eventos"`
	Feriados []Holiday         `json:"feriados"`
}

// MonthGrid is a 6x7 calendar (weeks start on Sunday).
type MonthGrid struct {
	Ano     int             `json:"ano"`
	Mes     int             `json:"mes"`
	Semanas [][]CalendarDay `json:"semanas"`
}

// GridBounds returns the first and last-exclusive day shown for a month.
func GridBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := first.AddDate(0, 0, -int(first.Weekday()))
	return start, start.AddDate(0, 0, 42)
}

// BuildMonthGrid lays out events and holidays over the month's 6x7 grid.
func BuildMonthGrid(year int, month time.Month, events []Event, holidays HolidaySet, today time.Time) MonthGrid {
	loc := today.Location()
	start, end := GridBounds(year, month, loc)

	byDay := make(map[string][]EventOccurrence)
	for i := range events {
		for _, occ := range events[i].Occurrences(start, end) {
			last := Midnight(occ.Fim.In(loc))
			for d := Midnight(occ.Inicio.In(loc)); !d.After(last); d = d.AddDate(0, 0, 1) {
				key := d.Format(DateLayout)
				byDay[key] = append(byDay[key], occ)
			}
		}
	}

	todayKey := today.Format(DateLayout)
	grid := MonthGrid{Ano: year, Mes: int(month), Semanas: make([][]CalendarDay, 0, 6)}
	day := start
	for w := 0; w < 6; w++ {
		week := make([]CalendarDay, 0, 7)
		for i := 0; i < 7; i++ {
			key := day.Format(DateLayout)
			occ := byDay[key]
			sort.Slice(occ, func(a, b int) bool { return occ[a].Inicio.Before(occ[b].Inicio) })
			cell := CalendarDay{
				Data:     key,
				Dia:      day.Day(),
				NoMes:    day.Month() == month,
				Hoje:     key == todayKey,
				Eventos:  occ,
				Feriados: []Holiday{},
			}
			if cell.Eventos == nil {
				cell.Eventos = []EventOccurrence{}
			}
			if h, ok := holidays[key]; ok {
				cell.Feriados = append(cell.Feriados, h)
			}
			week = append(week, cell)
			day = day.AddDate(0, 0, 1)
		}
		grid.Semanas = append(grid.Semanas, week)
	}
	return grid
}
