package domain

import (
	"sort"
	"time"
)

// Holiday is one day of the holiday calendar.
type Holiday struct {
	Data        string `json:"data"` // YYYY-MM-DD
	Nome        string `json:"nome"`
	Facultativo bool   `json:"facultativo"`
	Origem      string `json:"origem"` // nacional | empresa
}

// Easter returns Easter Sunday of the given year (Gregorian calendar).
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// NationalHolidays returns the Brazilian national holidays of year, including
// the Easter-based optional days (Carnaval and Corpus Christi).
func NationalHolidays(year int) []Holiday {
	fixed := []struct {
		month time.Month
		day   int
		name  string
	}{
		{time.January, 1, "Confraternização Universal"},
		{time.April, 21, "Tiradentes"},
		{time.May, 1, "Dia do Trabalho"},
		{time.September, 7, "Independência do Brasil"},
		{time.October, 12, "Nossa Senhora Aparecida"},
		{time.November, 2, "Finados"},
		{time.November, 15, "Proclamação da República"},
		{time.December, 25, "Natal"},
	}

	out := make([]Holiday, 0, len(fixed)+5)
	for _, f := range fixed {
		out = append(out, Holiday{
			Data:   time.Date(year, f.month, f.day, 0, 0, 0, 0, time.UTC).Format(DateLayout),
			Nome:   f.name,
			Origem: "nacional",
		})
	}
	if year >= 2024 {
		out = append(out, Holiday{
			Data:   time.Date(year, time.November, 20, 0, 0, 0, 0, time.UTC).Format(DateLayout),
			Nome:   "Dia Nacional de Zumbi e da Consciência Negra",
			Origem: "nacional",
		})
	}

	easter := Easter(year)
	out = append(out,
		Holiday{Data: easter.AddDate(0, 0, -48).Format(DateLayout), Nome: "Carnaval", Facultativo: true, Origem: "nacional"},
		Holiday{Data: easter.AddDate(0, 0, -47).Format(DateLayout), Nome: "Carnaval", Facultativo: true, Origem: "nacional"},
		Holiday{Data: easter.AddDate(0, 0, -2).Format(DateLayout), Nome: "Sexta-feira Santa", Origem: "nacional"},
		Holiday{Data: easter.AddDate(0, 0, 60).Format(DateLayout), Nome: "Corpus Christi", Facultativo: true, Origem: "nacional"},
	)

	sort.Slice(out, func(i, j int) bool { return out[i].Data < out[j].Data })
	return out
}

// HolidaySet is a lookup of holiday dates keyed by YYYY-MM-DD.
type HolidaySet map[string]Holiday

// NewHolidaySet indexes holidays by date. Later entries win on collisions.
func NewHolidaySet(holidays ...[]Holiday) HolidaySet {
	set := make(HolidaySet)
	for _, list := range holidays {
		for _, h := range list {
			set[h.Data] = h
		}
	}
	return set
}

// Contains reports whether day is a holiday.
func (s HolidaySet) Contains(day time.Time) bool {
	_, ok := s[day.Format(DateLayout)]
	return ok
}

// Sorted returns the holidays ordered by date.
func (s HolidaySet) Sorted() []Holiday {
	out := make([]Holiday, 0, len(s))
	for _, h := range s {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Data < out[j].Data })
	return out
}
