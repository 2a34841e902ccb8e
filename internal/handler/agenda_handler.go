package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/service"
)

// ============================================================
// Agenda: eventos, feriados, reuniões e calendário
// ============================================================

// listEventsHandler returns stored events, or their expanded occurrences
// when both de and ate are given.
func listEventsHandler(svc *service.AgendaService, loc *time.Location, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda/eventos")
		defer span.End()

		tenant := TenantFromContext(ctx)
		q := r.URL.Query()
		if q.Get("de") == "" || q.Get("ate") == "" {
			list, err := svc.ListEvents(ctx, tenant)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"eventos": list})
			return
		}

		from, err := domain.ParseDate(q.Get("de"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parâmetro 'de' inválido, use AAAA-MM-DD")
			return
		}
		to, err := domain.ParseDate(q.Get("ate"), loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "parâmetro 'ate' inválido, use AAAA-MM-DD")
			return
		}
		// ate is inclusive
		occ, err := svc.Occurrences(ctx, tenant, from, to.AddDate(0, 0, 1))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ocorrencias": occ})
	}
}

func createEventHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/agenda/eventos")
		defer span.End()

		var req domain.Event
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := svc.CreateEvent(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func getEventHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda/eventos/{id}")
		defer span.End()

		e, err := svc.GetEvent(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func updateEventHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/agenda/eventos/{id}")
		defer span.End()

		var req domain.Event
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := svc.UpdateEvent(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func deleteEventHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/agenda/eventos/{id}")
		defer span.End()

		if err := svc.DeleteEvent(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// listHolidaysHandler returns the company holidays, or the merged national
// and company calendar of ?ano=.
func listHolidaysHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda/feriados")
		defer span.End()

		tenant := TenantFromContext(ctx)
		if v := r.URL.Query().Get("ano"); v != "" {
			year, err := strconv.Atoi(v)
			if err != nil || year < 1900 || year > 2200 {
				writeError(w, http.StatusBadRequest, "parâmetro 'ano' inválido")
				return
			}
			set, err := svc.HolidaysFor(ctx, tenant, year)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"feriados": set.Sorted()})
			return
		}

		list, err := svc.ListHolidays(ctx, tenant)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"feriados": list})
	}
}

func createHolidayHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/agenda/feriados")
		defer span.End()

		var req domain.AgendaHoliday
		if !decodeBody(w, r, &req) {
			return
		}
		h, err := svc.CreateHoliday(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, h)
	}
}

func deleteHolidayHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/agenda/feriados/{id}")
		defer span.End()

		if err := svc.DeleteHoliday(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listMeetingsHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda/reunioes")
		defer span.End()

		list, err := svc.ListMeetings(ctx, TenantFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reunioes": list})
	}
}

func createMeetingHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/agenda/reunioes")
		defer span.End()

		var req domain.Meeting
		if !decodeBody(w, r, &req) {
			return
		}
		m, err := svc.CreateMeeting(ctx, TenantFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func getMeetingHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda/reunioes/{id}")
		defer span.End()

		m, err := svc.GetMeeting(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func updateMeetingHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/agenda/reunioes/{id}")
		defer span.End()

		var req domain.Meeting
		if !decodeBody(w, r, &req) {
			return
		}
		m, err := svc.UpdateMeeting(ctx, TenantFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func deleteMeetingHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/agenda/reunioes/{id}")
		defer span.End()

		if err := svc.DeleteMeeting(ctx, TenantFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func monthGridHandler(svc *service.AgendaService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/agenda/calendario/{ano}/{mes}")
		defer span.End()

		year, errY := strconv.Atoi(chi.URLParam(r, "ano"))
		month, errM := strconv.Atoi(chi.URLParam(r, "mes"))
		if errY != nil || errM != nil {
			writeError(w, http.StatusBadRequest, "ano e mês devem ser numéricos")
			return
		}
		span.SetAttributes(attribute.Int("grid.year", year), attribute.Int("grid.month", month))

		grid, err := svc.MonthGrid(ctx, TenantFromContext(ctx), year, month)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, grid)
	}
}
