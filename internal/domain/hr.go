package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// RH: departamentos, setores e colaboradores
// ============================================================

// Department (Departamento) groups sectors and employees.
type Department struct {
	ID string `json:"id"`
	Tenant
	Nome        string    `json:"nome" validate:"required"`
	Responsavel string    `json:"responsavel,omitempty"`
	Descricao   string    `json:"descricao,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Sector (Setor) belongs to a department.
type Sector struct {
	ID string `json:"id"`
	Tenant
	DepartamentoID string    `json:"departamentoId" validate:"required"`
	Nome           string    `json:"nome" validate:"required"`
	Descricao      string    `json:"descricao,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EmployeeStatus is the employment status of a colaborador.
type EmployeeStatus string

const (
	EmployeeActive     EmployeeStatus = "ativo"
	EmployeeOnVacation EmployeeStatus = "ferias"
	EmployeeOnLeave    EmployeeStatus = "afastado"
	EmployeeTerminated EmployeeStatus = "desligado"
)

// OnPayroll reports whether the status still draws salary.
func (s EmployeeStatus) OnPayroll() bool {
	return s == EmployeeActive || s == EmployeeOnVacation || s == EmployeeOnLeave
}

// Employee (Colaborador) is an HR record.
type Employee struct {
	ID string `json:"id"`
	Tenant
	Nome           string          `json:"nome" validate:"required"`
	CPF            string          `json:"cpf,omitempty"`
	Email          string          `json:"email,omitempty" validate:"omitempty,email"`
	Telefone       string          `json:"telefone,omitempty"`
	Cargo          string          `json:"cargo,omitempty"`
	DepartamentoID string          `json:"departamentoId,omitempty"`
	SetorID        string          `json:"setorId,omitempty"`
	Salario        decimal.Decimal `json:"salario"`
	DataAdmissao   string          `json:"dataAdmissao,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DataDemissao   string          `json:"dataDemissao,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status         EmployeeStatus  `json:"status" validate:"omitempty,oneof=ativo ferias afastado desligado"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// EmployeeFilter narrows ListEmployees. Zero fields are ignored.
type EmployeeFilter struct {
	Search         string
	DepartamentoID string
	SetorID        string
	Status         EmployeeStatus
}

// Match reports whether e passes the filter.
func (f EmployeeFilter) Match(e *Employee) bool {
	switch {
	case f.DepartamentoID != "" && e.DepartamentoID != f.DepartamentoID:
		return false
	case f.SetorID != "" && e.SetorID != f.SetorID:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	}
	if f.Search != "" {
		return ContainsFold(e.Nome, f.Search) ||
			ContainsFold(e.Cargo, f.Search) ||
			ContainsFold(e.Email, f.Search) ||
			(OnlyDigits(f.Search) != "" && OnlyDigits(e.CPF) == OnlyDigits(f.Search))
	}
	return true
}

// DepartmentPayroll is the payroll total of one department.
type DepartmentPayroll struct {
	DepartamentoID string          `json:"departamentoId"`
	Nome           string          `json:"nome"`
	Colaboradores  int             `json:"colaboradores"`
	TotalSalarios  decimal.Decimal `json:"totalSalarios"`
	MediaSalarial  decimal.Decimal `json:"mediaSalarial"`
}

// PayrollSummary (folha) aggregates salaries of employees on payroll.
type PayrollSummary struct {
	Departamentos      []DepartmentPayroll `json:"departamentos"`
	TotalColaboradores int                 `json:"totalColaboradores"`
	TotalFolha         decimal.Decimal     `json:"totalFolha"`
}
