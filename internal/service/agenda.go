package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/infra/observability"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var agendaTracer = otel.Tracer("service/agenda")

const holidayCacheName = "holidays"

// AgendaService manages calendar events, company holidays and meetings.
type AgendaService struct {
	store          port.AgendaStore
	holidays       port.Cache[domain.HolidaySet]
	clock          port.Clock
	metrics        *observability.Metrics
	meetingBaseURL string
	logger         *zap.Logger
}

// NewAgendaService creates a new agenda service.
func NewAgendaService(store port.AgendaStore, holidays port.Cache[domain.HolidaySet], clock port.Clock, metrics *observability.Metrics, meetingBaseURL string, logger *zap.Logger) *AgendaService {
	return &AgendaService{
		store:          store,
		holidays:       holidays,
		clock:          clock,
		metrics:        metrics,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		logger:         logger,
	}
}

// ---- eventos ----

func (s *AgendaService) CreateEvent(ctx context.Context, tenant domain.Tenant, e *domain.Event) (*domain.Event, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.CreateEvent")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := checkEvent(e); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	e.ID = newID()
	e.Tenant = tenant
	e.CreatedAt, e.UpdatedAt = now, now
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return e, nil
}

func (s *AgendaService) UpdateEvent(ctx context.Context, tenant domain.Tenant, id string, e *domain.Event) (*domain.Event, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.UpdateEvent")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.store.GetEvent(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := checkEvent(e); err != nil {
		return nil, err
	}
	e.ID, e.Tenant, e.CreatedAt = cur.ID, cur.Tenant, cur.CreatedAt
	e.UpdatedAt = s.clock.Now()
	if err := s.store.UpdateEvent(ctx, e); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func (s *AgendaService) DeleteEvent(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.DeleteEvent")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	return s.store.DeleteEvent(ctx, tenant, id)
}

func (s *AgendaService) GetEvent(ctx context.Context, tenant domain.Tenant, id string) (*domain.Event, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.GetEvent")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return s.store.GetEvent(ctx, tenant, id)
}

// ListEvents returns stored events ordered by start.
func (s *AgendaService) ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.Event, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.ListEvents")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	list, err := s.store.ListEvents(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Inicio.Before(list[j].Inicio) })
	return list, nil
}

// Occurrences expands every event (recurrences included) in [from, to).
func (s *AgendaService) Occurrences(ctx context.Context, tenant domain.Tenant, from, to time.Time) ([]domain.EventOccurrence, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.Occurrences")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, &domain.ErrValidation{Field: "ate", Message: "fim do período deve ser posterior ao início"}
	}
	events, err := s.store.ListEvents(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := []domain.EventOccurrence{}
	for i := range events {
		out = append(out, events[i].Occurrences(from, to)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Inicio.Before(out[j].Inicio) })
	return out, nil
}

func checkEvent(e *domain.Event) error {
	e.Titulo = strings.TrimSpace(e.Titulo)
	if err := validateStruct(e); err != nil {
		return err
	}
	if e.Fim.IsZero() {
		e.Fim = e.Inicio
	}
	if e.Fim.Before(e.Inicio) {
		return &domain.ErrValidation{Field: "fim", Message: "fim deve ser posterior ao início"}
	}
	if e.Recorrencia == "" {
		e.Recorrencia = domain.RecurrenceNone
	}
	return nil
}

// ---- feriados ----

func (s *AgendaService) CreateHoliday(ctx context.Context, tenant domain.Tenant, h *domain.AgendaHoliday) (*domain.AgendaHoliday, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.CreateHoliday")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	h.Nome = strings.TrimSpace(h.Nome)
	if err := validateStruct(h); err != nil {
		return nil, err
	}
	h.ID = newID()
	h.Tenant = tenant
	h.CreatedAt = s.clock.Now()
	if err := s.store.CreateHoliday(ctx, h); err != nil {
		return nil, fmt.Errorf("create holiday: %w", err)
	}
	s.holidays.DeletePrefix(holidayKeyPrefix(tenant))
	return h, nil
}

func (s *AgendaService) DeleteHoliday(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.DeleteHoliday")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	if err := s.store.DeleteHoliday(ctx, tenant, id); err != nil {
		return err
	}
	s.holidays.DeletePrefix(holidayKeyPrefix(tenant))
	return nil
}

// ListHolidays returns the company holidays registered by the tenant.
func (s *AgendaService) ListHolidays(ctx context.Context, tenant domain.Tenant) ([]domain.AgendaHoliday, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.ListHolidays")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	list, err := s.store.ListHolidays(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Data < list[j].Data })
	return list, nil
}

// HolidaysFor returns the national calendar of year merged with the
// tenant's own holidays. Results are cached per (tenant, year).
func (s *AgendaService) HolidaysFor(ctx context.Context, tenant domain.Tenant, year int) (domain.HolidaySet, error) {
	key := holidayKeyPrefix(tenant) + strconv.Itoa(year)
	if set, ok := s.holidays.Get(key); ok {
		s.metrics.IncrCacheHit(holidayCacheName)
		return set, nil
	}
	s.metrics.IncrCacheMiss(holidayCacheName)

	own, err := s.store.ListHolidays(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	company := make([]domain.Holiday, 0, len(own))
	for i := range own {
		if h, ok := own[i].ForYear(year); ok {
			company = append(company, h)
		}
	}
	set := domain.NewHolidaySet(domain.NationalHolidays(year), company)
	s.holidays.Set(key, set)
	return set, nil
}

func holidayKeyPrefix(t domain.Tenant) string {
	return t.EmpresaID + "|" + t.FilialID + "|"
}

// ---- reuniões ----

// CreateMeeting stores a meeting, generating a video link when none is given.
func (s *AgendaService) CreateMeeting(ctx context.Context, tenant domain.Tenant, m *domain.Meeting) (*domain.Meeting, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.CreateMeeting")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := checkMeeting(m); err != nil {
		return nil, err
	}
	m.ID = newID()
	m.Tenant = tenant
	if m.Link == "" && s.meetingBaseURL != "" {
		m.Link = s.meetingBaseURL + "/" + newID()
	}
	m.CreatedAt = s.clock.Now()
	if err := s.store.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}
	s.logger.Info("meeting scheduled",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("meeting_id", m.ID),
		zap.Time("inicio", m.Inicio),
	)
	return m, nil
}

func (s *AgendaService) UpdateMeeting(ctx context.Context, tenant domain.Tenant, id string, m *domain.Meeting) (*domain.Meeting, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.UpdateMeeting")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	cur, err := s.store.GetMeeting(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := checkMeeting(m); err != nil {
		return nil, err
	}
	m.ID, m.Tenant, m.CreatedAt = cur.ID, cur.Tenant, cur.CreatedAt
	if m.Link == "" {
		m.Link = cur.Link
	}
	if err := s.store.UpdateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("update meeting: %w", err)
	}
	return m, nil
}

func (s *AgendaService) DeleteMeeting(ctx context.Context, tenant domain.Tenant, id string) error {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.DeleteMeeting")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return err
	}
	return s.store.DeleteMeeting(ctx, tenant, id)
}

func (s *AgendaService) GetMeeting(ctx context.Context, tenant domain.Tenant, id string) (*domain.Meeting, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.GetMeeting")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	return s.store.GetMeeting(ctx, tenant, id)
}

func (s *AgendaService) ListMeetings(ctx context.Context, tenant domain.Tenant) ([]domain.Meeting, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.ListMeetings")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	list, err := s.store.ListMeetings(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Inicio.Before(list[j].Inicio) })
	return list, nil
}

func checkMeeting(m *domain.Meeting) error {
	m.Titulo = strings.TrimSpace(m.Titulo)
	if err := validateStruct(m); err != nil {
		return err
	}
	if m.DuracaoMinutos == 0 {
		m.DuracaoMinutos = 60
	}
	return nil
}

// ---- calendário ----

// MonthGrid lays out the tenant's events and holidays over a 6x7 grid.
func (s *AgendaService) MonthGrid(ctx context.Context, tenant domain.Tenant, year, month int) (*domain.MonthGrid, error) {
	ctx, span := agendaTracer.Start(ctx, "AgendaService.MonthGrid")
	defer span.End()
	span.SetAttributes(attribute.Int("grid.year", year), attribute.Int("grid.month", month))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, &domain.ErrValidation{Field: "mes", Message: "mês deve estar entre 1 e 12"}
	}
	if year < 1900 || year > 2200 {
		return nil, &domain.ErrValidation{Field: "ano", Message: "ano inválido"}
	}

	events, err := s.store.ListEvents(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	// The grid spills into the neighbouring months, possibly across a year.
	now := s.clock.Now()
	start, end := domain.GridBounds(year, time.Month(month), now.Location())
	holidays := domain.HolidaySet{}
	for y := start.Year(); y <= end.Year(); y++ {
		set, err := s.HolidaysFor(ctx, tenant, y)
		if err != nil {
			return nil, err
		}
		for k, v := range set {
			holidays[k] = v
		}
	}

	grid := domain.BuildMonthGrid(year, time.Month(month), events, holidays, now)
	return &grid, nil
}
