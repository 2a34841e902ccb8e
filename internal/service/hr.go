package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var hrTracer = otel.Tracer("service/hr")

// HRService manages departments, sectors and employees.
type HRService struct {
	store  port.HRStore
	clock  port.Clock
	logger *zap.Logger
}

// NewHRService creates a new HR service.
func NewHRService(store port.HRStore, clock port.Clock, logger *zap.Logger) *HRService {
	return &HRService{store: store, clock: clock, logger: logger}
}

// ---- departamentos ----

func (s *HRService) CreateDepartment(ctx context.Context, tenant domain.Tenant, d *domain.Department) (*domain.Department, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.CreateDepartment")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	d.Nome = strings.TrimSpace(d.Nome)
	if err := validateStruct(d); err != nil {
		return nil, err
	}
	d.ID = newID()
	d.Tenant = tenant
	d.CreatedAt = s.clock.Now()
	if err := s.store.CreateDepartment(ctx, d); err != nil {
		return nil, fmt.Errorf("create department: %w", err)
	}
	return d, nil
}

func (s *HRService) UpdateDepartment(ctx context.Context, tenant domain.Tenant, id string, d *domain.Department) (*domain.Department, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.UpdateDepartment")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.store.GetDepartment(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	d.Nome = strings.TrimSpace(d.Nome)
	if err := validateStruct(d); err != nil {
		return nil, err
	}
	d.ID, d.Tenant, d.CreatedAt = cur.ID, cur.Tenant, cur.CreatedAt
	if err := s.store.UpdateDepartment(ctx, d); err != nil {
		return nil, fmt.Errorf("update department: %w", err)
	}
	return d, nil
}

// DeleteDepartment refuses while sectors or employees still reference it.
func (s *HRService) DeleteDepartment(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := hrTracer.Start(ctx, "HRService.DeleteDepartment")
	defer span.End()
	span.SetAttributes(attribute.String("department.id", id))

	if err := requireTenant(tenant); err != nil {
		return err
	}
	if _, err := s.store.GetDepartment(ctx, tenant, id); err != nil {
		return err
	}
	sectors, err := s.store.ListSectors(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list sectors: %w", err)
	}
	for i := range sectors {
		if sectors[i].DepartamentoID == id {
			return &domain.ErrConflict{Message: "departamento possui setores vinculados"}
		}
	}
	employees, err := s.store.ListEmployees(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	for i := range employees {
		if employees[i].DepartamentoID == id {
			return &domain.ErrConflict{Message: "departamento possui colaboradores vinculados"}
		}
	}
	return s.store.DeleteDepartment(ctx, tenant, id)
}

func (s *HRService) GetDepartment(ctx context.Context, tenant domain.Tenant, id string) (*domain.Department, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.GetDepartment")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return s.store.GetDepartment(ctx, tenant, id)
}

func (s *HRService) ListDepartments(ctx context.Context, tenant domain.Tenant) ([]domain.Department, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.ListDepartments")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	list, err := s.store.ListDepartments(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return strings.ToLower(list[i].Nome) < strings.ToLower(list[j].Nome) })
	return list, nil
}

// ---- setores ----

func (s *HRService) CreateSector(ctx context.Context, tenant domain.Tenant, sec *domain.Sector) (*domain.Sector, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.CreateSector")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := s.checkSector(ctx, tenant, sec); err != nil {
		return nil, err
	}
	sec.ID = newID()
	sec.Tenant = tenant
	sec.CreatedAt = s.clock.Now()
	if err := s.store.CreateSector(ctx, sec); err != nil {
		return nil, fmt.Errorf("create sector: %w", err)
	}
	return sec, nil
}

func (s *HRService) UpdateSector(ctx context.Context, tenant domain.Tenant, id string, sec *domain.Sector) (*domain.Sector, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.UpdateSector")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.store.GetSector(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkSector(ctx, tenant, sec); err != nil {
		return nil, err
	}
	sec.ID, sec.Tenant, sec.CreatedAt = cur.ID, cur.Tenant, cur.CreatedAt
	if err := s.store.UpdateSector(ctx, sec); err != nil {
		return nil, fmt.Errorf("update sector: %w", err)
	}
	return sec, nil
}

// DeleteSector refuses while employees still reference it.
func (s *HRService) DeleteSector(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := hrTracer.Start(ctx, "HRService.DeleteSector")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	if _, err := s.store.GetSector(ctx, tenant, id); err != nil {
		return err
	}
	employees, err := s.store.ListEmployees(ctx, tenant)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}
	for i := range employees {
		if employees[i].SetorID == id {
			return &domain.ErrConflict{Message: "setor possui colaboradores vinculados"}
		}
	}
	return s.store.DeleteSector(ctx, tenant, id)
}

// ListSectors returns sectors, optionally restricted to one department.
func (s *HRService) ListSectors(ctx context.Context, tenant domain.Tenant, departmentID string) ([]domain.Sector, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.ListSectors")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.store.ListSectors(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	out := make([]domain.Sector, 0, len(all))
	for i := range all {
		if departmentID == "" || all[i].DepartamentoID == departmentID {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Nome) < strings.ToLower(out[j].Nome) })
	return out, nil
}

func (s *HRService) checkSector(ctx context.Context, tenant domain.Tenant, sec *domain.Sector) error {
	sec.Nome = strings.TrimSpace(sec.Nome)
	if err := validateStruct(sec); err != nil {
		return err
	}
	if _, err := s.store.GetDepartment(ctx, tenant, sec.DepartamentoID); err != nil {
		if isNotFound(err) {
			return &domain.ErrValidation{Field: "departamentoId", Message: "departamento não encontrado"}
		}
		return err
	}
	return nil
}

// ---- colaboradores ----

func (s *HRService) CreateEmployee(ctx context.Context, tenant domain.Tenant, e *domain.Employee) (*domain.Employee, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.CreateEmployee")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := s.checkEmployee(ctx, tenant, e); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	e.ID = newID()
	e.Tenant = tenant
	if e.Status == "" {
		e.Status = domain.EmployeeActive
	}
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.store.CreateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}
	s.logger.Info("employee created",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("employee_id", e.ID),
	)
	return e, nil
}

func (s *HRService) UpdateEmployee(ctx context.Context, tenant domain.Tenant, id string, e *domain.Employee) (*domain.Employee, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.UpdateEmployee")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.store.GetEmployee(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkEmployee(ctx, tenant, e); err != nil {
		return nil, err
	}
	e.ID, e.Tenant, e.CreatedAt = cur.ID, cur.Tenant, cur.CreatedAt
	e.UpdatedAt = s.clock.Now()
	if e.Status == "" {
		e.Status = cur.Status
	}
	if err := s.store.UpdateEmployee(ctx, e); err != nil {
		return nil, fmt.Errorf("update employee: %w", err)
	}
	return e, nil
}

func (s *HRService) DeleteEmployee(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := hrTracer.Start(ctx, "HRService.DeleteEmployee")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	return s.store.DeleteEmployee(ctx, tenant, id)
}

func (s *HRService) GetEmployee(ctx context.Context, tenant domain.Tenant, id string) (*domain.Employee, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.GetEmployee")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return s.store.GetEmployee(ctx, tenant, id)
}

func (s *HRService) ListEmployees(ctx context.Context, tenant domain.Tenant, filter domain.EmployeeFilter) ([]domain.Employee, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.ListEmployees")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	all, err := s.store.ListEmployees(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	out := make([]domain.Employee, 0, len(all))
	for i := range all {
		if filter.Match(&all[i]) {
			out = append(out, all[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.ToLower(out[i].Nome) < strings.ToLower(out[j].Nome) })
	return out, nil
}

// Payroll sums salaries of employees on payroll, grouped by department.
// Employees without a department are reported under an empty id.
func (s *HRService) Payroll(ctx context.Context, tenant domain.Tenant) (*domain.PayrollSummary, error) {
	ctx, span := hrTracer.Start(ctx, "HRService.Payroll")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	departments, err := s.store.ListDepartments(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	employees, err := s.store.ListEmployees(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	names := make(map[string]string, len(departments))
	for _, d := range departments {
		names[d.ID] = d.Nome
	}
	byDept := map[string]*domain.DepartmentPayroll{}
	summary := &domain.PayrollSummary{Departamentos: []domain.DepartmentPayroll{}, TotalFolha: decimal.Zero}
	for i := range employees {
		e := employees[i]
		if !e.Status.OnPayroll() {
			continue
		}
		dp, ok := byDept[e.DepartamentoID]
		if !ok {
			nome := names[e.DepartamentoID]
			if nome == "" {
				nome = "Sem departamento"
			}
			dp = &domain.DepartmentPayroll{DepartamentoID: e.DepartamentoID, Nome: nome, TotalSalarios: decimal.Zero}
			byDept[e.DepartamentoID] = dp
		}
		dp.Colaboradores++
		dp.TotalSalarios = dp.TotalSalarios.Add(e.Salario)
		summary.TotalColaboradores++
		summary.TotalFolha = summary.TotalFolha.Add(e.Salario)
	}

	for _, dp := range byDept {
		dp.MediaSalarial = dp.TotalSalarios.Div(decimal.NewFromInt(int64(dp.Colaboradores))).Round(2)
		summary.Departamentos = append(summary.Departamentos, *dp)
	}
	sort.Slice(summary.Departamentos, func(i, j int) bool {
		return summary.Departamentos[i].Nome < summary.Departamentos[j].Nome
	})
	return summary, nil
}

func (s *HRService) checkEmployee(ctx context.Context, tenant domain.Tenant, e *domain.Employee) error {
	e.Nome = strings.TrimSpace(e.Nome)
	if err := validateStruct(e); err != nil {
		return err
	}
	if e.Salario.IsNegative() {
		return &domain.ErrValidation{Field: "salario", Message: "salário não pode ser negativo"}
	}
	if e.DepartamentoID != "" {
		if _, err := s.store.GetDepartment(ctx, tenant, e.DepartamentoID); err != nil {
			if isNotFound(err) {
				return &domain.ErrValidation{Field: "departamentoId", Message: "departamento não encontrado"}
			}
			return err
		}
	}
	if e.SetorID != "" {
		sec, err := s.store.GetSector(ctx, tenant, e.SetorID)
		if err != nil {
			if isNotFound(err) {
				return &domain.ErrValidation{Field: "setorId", Message: "setor não encontrado"}
			}
			return err
		}
		if e.DepartamentoID == "" {
			e.DepartamentoID = sec.DepartamentoID
		} else if sec.DepartamentoID != e.DepartamentoID {
			return &domain.ErrValidation{Field: "setorId", Message: "setor não pertence ao departamento"}
		}
	}
	return nil
}
