package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

func TestHR_DeleteDepartmentInUse(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()

	dept, err := e.hr.CreateDepartment(ctx, tenant, &domain.Department{Nome: "Financeiro"})
	require.NoError(t, err)
	sec, err := e.hr.CreateSector(ctx, tenant, &domain.Sector{DepartamentoID: dept.ID, Nome: "Cobrança"})
	require.NoError(t, err)

	var conflict *domain.ErrConflict
	assert.ErrorAs(t, e.hr.DeleteDepartment(ctx, tenant, dept.ID), &conflict)

	emp, err := e.hr.CreateEmployee(ctx, tenant, &domain.Employee{Nome: "Carla", SetorID: sec.ID, Salario: decimal.NewFromInt(3000)})
	require.NoError(t, err)
	assert.Equal(t, dept.ID, emp.DepartamentoID)
	assert.ErrorAs(t, e.hr.DeleteSector(ctx, tenant, sec.ID), &conflict)

	require.NoError(t, e.hr.DeleteEmployee(ctx, tenant, emp.ID))
	require.NoError(t, e.hr.DeleteSector(ctx, tenant, sec.ID))
	assert.NoError(t, e.hr.DeleteDepartment(ctx, tenant, dept.ID))
}

func TestHR_EmployeeSectorMustBelongToDepartment(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()

	fin, err := e.hr.CreateDepartment(ctx, tenant, &domain.Department{Nome: "Financeiro"})
	require.NoError(t, err)
	ops, err := e.hr.CreateDepartment(ctx, tenant, &domain.Department{Nome: "Operações"})
	require.NoError(t, err)
	sec, err := e.hr.CreateSector(ctx, tenant, &domain.Sector{DepartamentoID: fin.ID, Nome: "Tesouraria"})
	require.NoError(t, err)

	_, err = e.hr.CreateEmployee(ctx, tenant, &domain.Employee{Nome: "Rui", DepartamentoID: ops.ID, SetorID: sec.ID})
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "setorId", v.Field)

	_, err = e.hr.CreateSector(ctx, tenant, &domain.Sector{DepartamentoID: "missing", Nome: "X"})
	assert.ErrorAs(t, err, &v)
}

func TestHR_Payroll(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()

	fin, err := e.hr.CreateDepartment(ctx, tenant, &domain.Department{Nome: "Financeiro"})
	require.NoError(t, err)
	add := func(nome, dept string, salary int64, status domain.EmployeeStatus) {
		_, err := e.hr.CreateEmployee(ctx, tenant, &domain.Employee{
			Nome: nome, DepartamentoID: dept, Salario: decimal.NewFromInt(salary), Status: status,
		})
		require.NoError(t, err)
	}
	add("Ana", fin.ID, 3000, domain.EmployeeActive)
	add("Bia", fin.ID, 4000, domain.EmployeeOnVacation)
	add("Caio", fin.ID, 5000, domain.EmployeeTerminated)
	add("Duda", "", 2500, "")

	p, err := e.hr.Payroll(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalColaboradores)
	assert.Equal(t, "9500", p.TotalFolha.String())
	require.Len(t, p.Departamentos, 2)

	assert.Equal(t, "Financeiro", p.Departamentos[0].Nome)
	assert.Equal(t, 2, p.Departamentos[0].Colaboradores)
	assert.Equal(t, "3500", p.Departamentos[0].MediaSalarial.String())
	assert.Equal(t, "Sem departamento", p.Departamentos[1].Nome)
}

func TestHR_ListEmployeesFilter(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()
	_, err := e.hr.CreateEmployee(ctx, tenant, &domain.Employee{Nome: "Ana", Cargo: "Analista", CPF: "123.456.789-00"})
	require.NoError(t, err)
	_, err = e.hr.CreateEmployee(ctx, tenant, &domain.Employee{Nome: "Bruno", Cargo: "Gerente"})
	require.NoError(t, err)

	got, err := e.hr.ListEmployees(ctx, tenant, domain.EmployeeFilter{Search: "12345678900"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].Nome)

	got, err = e.hr.ListEmployees(ctx, tenant, domain.EmployeeFilter{Search: "gerente"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bruno", got[0].Nome)
}

func TestAgenda_MeetingDefaults(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()

	m, err := e.agenda.CreateMeeting(ctx, tenant, &domain.Meeting{
		Titulo: "Alinhamento", Inicio: time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, m.Link, "https://meet.example.com/")
	assert.Equal(t, 60, m.DuracaoMinutos)

	upd, err := e.agenda.UpdateMeeting(ctx, tenant, m.ID, &domain.Meeting{
		Titulo: "Alinhamento semanal", Inicio: m.Inicio, DuracaoMinutos: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, m.Link, upd.Link)
	assert.Equal(t, 30, upd.DuracaoMinutos)

	_, err = e.agenda.CreateMeeting(ctx, tenant, &domain.Meeting{Titulo: "X", Inicio: m.Inicio, DuracaoMinutos: 2})
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}

func TestAgenda_CompanyHolidayInvalidatesCache(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	ctx := context.Background()

	set, err := e.agenda.HolidaysFor(ctx, tenant, 2024)
	require.NoError(t, err)
	assert.Contains(t, set, "2024-09-07")
	assert.NotContains(t, set, "2024-06-20")

	h, err := e.agenda.CreateHoliday(ctx, tenant, &domain.AgendaHoliday{Nome: "Aniversário da cidade", Data: "2023-06-20", Recorrente: true})
	require.NoError(t, err)

	set, err = e.agenda.HolidaysFor(ctx, tenant, 2024)
	require.NoError(t, err)
	assert.Contains(t, set, "2024-06-20")

	other, err := e.agenda.HolidaysFor(ctx, domain.Tenant{EmpresaID: "emp-2", FilialID: "fil-1"}, 2024)
	require.NoError(t, err)
	assert.NotContains(t, other, "2024-06-20")

	require.NoError(t, e.agenda.DeleteHoliday(ctx, tenant, h.ID))
	set, err = e.agenda.HolidaysFor(ctx, tenant, 2024)
	require.NoError(t, err)
	assert.NotContains(t, set, "2024-06-20")
}

func TestAgenda_MonthGrid(t *testing.T) {
	e := newEnv("2024-12-10 10:00")
	ctx := context.Background()

	_, err := e.agenda.CreateEvent(ctx, tenant, &domain.Event{
		Titulo: "Fechamento", Inicio: time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC), Fim: time.Date(2024, 12, 30, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	grid, err := e.agenda.MonthGrid(ctx, tenant, 2024, 12)
	require.NoError(t, err)
	require.Len(t, grid.Semanas, 6)

	cells := map[string]domain.CalendarDay{}
	for _, w := range grid.Semanas {
		for _, d := range w {
			cells[d.Data] = d
		}
	}
	assert.True(t, cells["2024-12-10"].Hoje)
	assert.Len(t, cells["2024-12-25"].Feriados, 1)
	assert.Len(t, cells["2024-12-30"].Eventos, 1)
	// the last row spills into January of the next year
	assert.Len(t, cells["2025-01-01"].Feriados, 1)
	assert.False(t, cells["2025-01-01"].NoMes)

	_, err = e.agenda.MonthGrid(ctx, tenant, 2024, 13)
	var v *domain.ErrValidation
	require.ErrorAs(t, err, &v)
	assert.Equal(t, "mes", v.Field)
}

func TestAgenda_OccurrencesRejectsInvertedRange(t *testing.T) {
	e := newEnv("2024-06-07 10:00")
	now := e.clock.Now()
	_, err := e.agenda.Occurrences(context.Background(), tenant, now, now.Add(-time.Hour))
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}
