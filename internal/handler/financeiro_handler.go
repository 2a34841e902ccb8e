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
// Contas a receber (faturas)
// ============================================================

func listInvoicesHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/faturas")
		defer span.End()

		from, err := queryDate(r, "de")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := queryDate(r, "ate")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q := r.URL.Query()
		filter := domain.InvoiceFilter{
			Search:     q.Get("q"),
			Status:     domain.PaymentStatus(q.Get("status")),
			ClienteID:  q.Get("clienteId"),
			CarteiraID: q.Get("carteiraId"),
			From:       from,
			To:         to,
		}
		list, err := svc.List(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writePage(w, r, list)
	}
}

func createInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/faturas")
		defer span.End()

		var req domain.Invoice
		if !decodeBody(w, r, &req) {
			return
		}
		inv, err := svc.Create(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

func getInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/faturas/{id}")
		defer span.End()

		inv, err := svc.Get(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func updateInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/faturas/{id}")
		defer span.End()

		var req domain.Invoice
		if !decodeBody(w, r, &req) {
			return
		}
		inv, err := svc.Update(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func deleteInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/faturas/{id}")
		defer span.End()

		if err := svc.Delete(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func payInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/faturas/{id}/pagar")
		defer span.End()

		id := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("invoice.id", id))

		var req domain.PaymentRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		inv, err := svc.Pay(ctx, TenantFromContext(ctx), id, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

// ============================================================
// Contas a pagar
// ============================================================

func listPayablesHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contas-pagar")
		defer span.End()

		from, err := queryDate(r, "de")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := queryDate(r, "ate")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		q := r.URL.Query()
		filter := domain.PayableFilter{
			Search:    q.Get("q"),
			Status:    domain.PaymentStatus(q.Get("status")),
			Categoria: q.Get("categoria"),
			From:      from,
			To:        to,
		}
		list, err := svc.List(ctx, TenantFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writePage(w, r, list)
	}
}

func payablesSummaryHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contas-pagar/resumo")
		defer span.End()

		sum, err := svc.Summary(ctx, TenantFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func createPayableHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contas-pagar")
		defer span.End()

		var req domain.Payable
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := svc.Create(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func getPayableHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contas-pagar/{id}")
		defer span.End()

		p, err := svc.Get(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func updatePayableHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/contas-pagar/{id}")
		defer span.End()

		var req domain.Payable
		if !decodeBody(w, r, &req) {
			return
		}
		p, err := svc.Update(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func deletePayableHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/contas-pagar/{id}")
		defer span.End()

		if err := svc.Delete(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func payPayableHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contas-pagar/{id}/pagar")
		defer span.End()

		var req domain.PaymentRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		p, err := svc.Pay(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func payableRecurrenceHandler(svc *service.PayableService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/contas-pagar/{id}/recorrencia")
		defer span.End()

		var req domain.RecurrenceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		created, err := svc.GenerateRecurrence(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"parcelas": created})
	}
}
