package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

// ============================================================
// RH: departamentos, setores, colaboradores e folha
// ============================================================

func listDepartmentsHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/rh/departamentos")
		defer span.End()

		list, err := svc.ListDepartments(ctx, TenantFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"departamentos": list})
	}
}

func createDepartmentHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/rh/departamentos")
		defer span.End()

		var req domain.Department
		if !decodeBody(w, r, &req) {
			return
		}
		d, err := svc.CreateDepartment(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func getDepartmentHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/rh/departamentos/{id}")
		defer span.End()

		d, err := svc.GetDepartment(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func updateDepartmentHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/rh/departamentos/{id}")
		defer span.End()

		var req domain.Department
		if !decodeBody(w, r, &req) {
			return
		}
		d, err := svc.UpdateDepartment(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func deleteDepartmentHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/rh/departamentos/{id}")
		defer span.End()

		if err := svc.DeleteDepartment(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listSectorsHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/rh/setores")
		defer span.End()

		list, err := svc.ListSectors(ctx, TenantFromContext(ctx), r.URL.Query().Get("departamentoId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"setores": list})
	}
}

func createSectorHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/rh/setores")
		defer span.End()

		var req domain.Sector
		if !decodeBody(w, r, &req) {
			return
		}
		sec, err := svc.CreateSector(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, sec)
	}
}

func updateSectorHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/rh/setores/{id}")
		defer span.End()

		var req domain.Sector
		if !decodeBody(w, r, &req) {
			return
		}
		sec, err := svc.UpdateSector(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	}
}

func deleteSectorHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/rh/setores/{id}")
		defer span.End()

		if err := svc.DeleteSector(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listEmployeesHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/rh/colaboradores")
		defer span.End()

		q := r.URL.Query()
		filter := domain.EmployeeFilter{
			Search:         q.Get("q"),
			DepartamentoID: q.Get("departamentoId"),
			SetorID:        q.Get("setorId"),
			Status:         domain.EmployeeStatus(q.Get("status")),
		}
		list, err := svc.ListEmployees(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writePage(w, r, list)
	}
}

func createEmployeeHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/rh/colaboradores")
		defer span.End()

		var req domain.Employee
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := svc.CreateEmployee(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func getEmployeeHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/rh/colaboradores/{id}")
		defer span.End()

		e, err := svc.GetEmployee(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func updateEmployeeHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/rh/colaboradores/{id}")
		defer span.End()

		var req domain.Employee
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := svc.UpdateEmployee(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func deleteEmployeeHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/rh/colaboradores/{id}")
		defer span.End()

		if err := svc.DeleteEmployee(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func payrollHandler(svc *service.HRService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/rh/folha")
		defer span.End()

		p, err := svc.Payroll(ctx, TenantFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
