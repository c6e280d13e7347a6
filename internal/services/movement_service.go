package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/storage"
)

type (
	// MovementRepository is the storage the movement service writes through.
	MovementRepository interface {
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		GetMovement(ctx context.Context, id int64) (core.MovementView, error)
		CreateMovement(ctx context.Context, m core.Movement) (int64, error)
		UpdateMovement(ctx context.Context, m core.Movement) error
		DeleteMovement(ctx context.Context, id int64) error
	}

	// Publisher announces written movements to other processes.
	Publisher interface {
		PublishMovementsChanged(ctx context.Context, msg *amqp.MovementsChangedMessage) error
	}

	// Invalidator drops derived data after a write.
	Invalidator interface {
		Invalidate()
	}
)

// MovementService applies the movement write rules (sign from category type,
// settlement default) and notifies caches and subscribers after each write.
type MovementService struct {
	repo      MovementRepository
	reports   Invalidator
	publisher Publisher
}

// NewMovementService wires the service. reports and publisher may be nil.
func NewMovementService(repo MovementRepository, reports Invalidator, publisher Publisher) *MovementService {
	return &MovementService{
		repo:      repo,
		reports:   reports,
		publisher: publisher,
	}
}

func (s *MovementService) prepare(ctx context.Context, m *core.Movement) error {
	if m.Amount.Abs().Cents == 0 {
		return core.ErrInvalidAmount
	}
	cat, err := s.repo.GetCategory(ctx, m.CategoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("category %d: %w", m.CategoryID, core.ErrMissingReference)
	}
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	m.Amount = core.NormalizeSign(cat.Type, m.Amount)
	m.ApplyDefaults()
	return m.Validate()
}

// Create stores a new movement and returns its id.
func (s *MovementService) Create(ctx context.Context, m core.Movement) (int64, error) {
	if err := s.prepare(ctx, &m); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateMovement(ctx, m)
	if err != nil {
		return 0, fmt.Errorf("save movement: %w", err)
	}
	s.changed(ctx, "create", 1, m)
	return id, nil
}

func (s *MovementService) Update(ctx context.Context, m core.Movement) error {
	old, err := s.repo.GetMovement(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("load movement: %w", err)
	}
	if err := s.prepare(ctx, &m); err != nil {
		return err
	}
	if err := s.repo.UpdateMovement(ctx, m); err != nil {
		return fmt.Errorf("update movement: %w", err)
	}
	s.changed(ctx, "update", 1, old.Movement, m)
	return nil
}

func (s *MovementService) Delete(ctx context.Context, id int64) error {
	old, err := s.repo.GetMovement(ctx, id)
	if err != nil {
		return fmt.Errorf("load movement: %w", err)
	}
	if err := s.repo.DeleteMovement(ctx, id); err != nil {
		return fmt.Errorf("delete movement: %w", err)
	}
	s.changed(ctx, "delete", 1, old.Movement)
	return nil
}

func (s *MovementService) changed(ctx context.Context, reason string, count int, ms ...core.Movement) {
	if s.reports != nil {
		s.reports.Invalidate()
	}
	publishChanged(ctx, s.publisher, reason, movementPeriods(ms...), count)
}

// movementPeriods returns the sorted distinct YYYY-MM periods touched by ms.
func movementPeriods(ms ...core.Movement) []string {
	set := map[string]bool{}
	for _, m := range ms {
		if !m.Date.IsZero() {
			set[core.PeriodKey(m.Date.Time)] = true
		}
		if !m.SettlementDate.IsZero() {
			set[core.PeriodKey(m.SettlementDate.Time)] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// publishChanged sends a change event. Failures are logged, never returned:
// the write already succeeded locally.
func publishChanged(ctx context.Context, p Publisher, reason string, periods []string, count int) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping change message", "reason", reason)
		return
	}
	if err := p.PublishMovementsChanged(ctx, amqp.NewMovementsChangedMessage(reason, periods, count)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change message",
			"reason", reason,
			"periods", periods,
			"error", err)
	}
}
