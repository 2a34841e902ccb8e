package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

// ============================================================
// Clientes (CRM)
// ============================================================

func listCustomersHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clientes")
		defer span.End()

		q := r.URL.Query()
		filter := domain.CustomerFilter{
			Search:   q.Get("q"),
			Status:   domain.CustomerStatus(q.Get("status")),
			Segmento: q.Get("segmento"),
		}
		list, err := svc.List(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writePage(w, r, list)
	}
}

func createCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/clientes")
		defer span.End()

		var req domain.Customer
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := svc.Create(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func getCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clientes/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("customer.id", id))
		c, err := svc.Get(ctx, TenantFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func customerDetailsHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/clientes/{id}/detalhes")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("customer.id", id))
		d, err := svc.Details(ctx, TenantFromContext(ctx), id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func updateCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/clientes/{id}")
		defer span.End()

		var req domain.Customer
		if !decodeBody(w, r, &req) {
			return
		}
		c, err := svc.Update(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func deleteCustomerHandler(svc *service.CustomerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/clientes/{id}")
		defer span.End()

		if err := svc.Delete(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
