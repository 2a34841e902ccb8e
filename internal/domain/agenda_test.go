package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_OccurrencesWeekly(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC) // Monday
	e := &Event{
		ID:             "ev1",
		Titulo:         "Reunião semanal",
		Inicio:         start,
		Fim:            start.Add(time.Hour),
		Recorrencia:    RecurrenceWeekly,
		RecorrenciaAte: "2024-06-24",
	}

	occ := e.Occurrences(date("2024-06-01"), date("2024-07-01"))
	require.Len(t, occ, 4)
	assert.Equal(t, "2024-06-24", occ[3].Inicio.Format(DateLayout))
}

func TestEvent_OccurrencesSingle(t *testing.T) {
	start := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	e := &Event{ID: "ev1", Inicio: start, Fim: start.Add(time.Hour)}

	assert.Len(t, e.Occurrences(date("2024-06-01"), date("2024-06-30")), 1)
	assert.Empty(t, e.Occurrences(date("2024-06-04"), date("2024-06-30")))
}

func TestBuildMonthGrid(t *testing.T) {
	start := time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)
	events := []Event{{ID: "ev1", Titulo: "Visita", Inicio: start, Fim: start.Add(time.Hour)}}
	today := time.Date(2024, 6, 5, 8, 0, 0, 0, time.UTC)

	grid := BuildMonthGrid(2024, time.June, events, NewHolidaySet(NationalHolidays(2024)), today)

	require.Len(t, grid.Semanas, 6)
	for _, w := range grid.Semanas {
		require.Len(t, w, 7)
	}
	// June 2024 starts on a Saturday, so the grid opens on Sunday May 26.
	first := grid.Semanas[0][0]
	assert.Equal(t, "2024-05-26", first.Data)
	assert.False(t, first.NoMes)

	var visit, corpus, hoje bool
	for _, w := range grid.Semanas {
		for _, d := range w {
			switch d.Data {
			case "2024-06-10":
				visit = len(d.Eventos) == 1 && d.NoMes
			case "2024-05-30":
				corpus = len(d.Feriados) == 1
			case "2024-06-05":
				hoje = d.Hoje
			}
		}
	}
	assert.True(t, visit, "event on its day")
	assert.True(t, corpus, "holiday in the spill-over week")
	assert.True(t, hoje, "today flag")
}
