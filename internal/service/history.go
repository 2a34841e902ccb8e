package service

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
	"github.com/boddenberg/pj-gestao-bfa-go/internal/port"
)

var historyTracer = otel.Tracer("service/history")

// HistoryService exposes the reminder history (histórico de cobrança).
type HistoryService struct {
	history port.HistoryStore
	logger  *zap.Logger
}

// NewHistoryService creates a new history service.
func NewHistoryService(history port.HistoryStore, logger *zap.Logger) *HistoryService {
	return &HistoryService{history: history, logger: logger}
}

// List returns records passing filter, newest first.
func (s *HistoryService) List(ctx context.Context, tenant domain.Tenant, filter domain.HistoryFilter) ([]domain.CollectionHistory, error) {
	ctx, span := historyTracer.Start(ctx, "HistoryService.List")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	list, err := s.history.ListHistory(ctx, tenant, filter)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].DataDisparo != list[j].DataDisparo {
			return list[i].DataDisparo > list[j].DataDisparo
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// UpdateStatus moves a record forward (enviado → entregue → lido) or marks
// it as failed. Backward transitions are rejected.
func (s *HistoryService) UpdateStatus(ctx context.Context, tenant domain.Tenant, id string, req *domain.StatusUpdate) (*domain.CollectionHistory, error) {
	ctx, span := historyTracer.Start(ctx, "HistoryService.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("history.id", id))

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	h, err := s.history.GetHistory(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if h.Status == req.Status {
		return h, nil
	}
	if !h.Status.CanAdvanceTo(req.Status) {
		return nil, &domain.ErrConflict{Message: fmt.Sprintf("status não pode passar de %s para %s", h.Status, req.Status)}
	}

	h.Status = req.Status
	if req.Status == domain.DeliveryError {
		h.Erro = req.Erro
	}
	if err := s.history.UpdateHistory(ctx, h); err != nil {
		return nil, fmt.Errorf("update history: %w", err)
	}
	s.logger.Info("reminder status updated",
		zap.String("empresa_id", tenant.EmpresaID),
		zap.String("history_id", h.ID),
		zap.String("status", string(h.Status)),
	)
	return h, nil
}

// Stats counts records passing filter by status and channel.
func (s *HistoryService) Stats(ctx context.Context, tenant domain.Tenant, filter domain.HistoryFilter) (*domain.HistoryStats, error) {
	ctx, span := historyTracer.Start(ctx, "HistoryService.Stats")
	defer span.End()

	if err := requireTenant(tenant); err != nil {
		return nil, err
	}
	list, err := s.history.ListHistory(ctx, tenant, filter)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	stats := &domain.HistoryStats{
		Total:     len(list),
		PorStatus: map[domain.DeliveryStatus]int{},
		PorCanal:  map[domain.ChannelKind]int{},
	}
	for i := range list {
		stats.PorStatus[list[i].Status]++
		stats.PorCanal[list[i].Canal]++
	}
	if stats.Total > 0 {
		stats.TaxaErro = float64(stats.PorStatus[domain.DeliveryError]) / float64(stats.Total)
	}
	return stats, nil
}
