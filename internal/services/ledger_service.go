package services

import (
	"context"
	"fmt"

	"financas/internal/core"
)

// LedgerRepository stores investment operations and transfers.
type LedgerRepository interface {
	CreateInvestment(ctx context.Context, o core.InvestmentOperation) (int64, error)
	UpdateInvestment(ctx context.Context, o core.InvestmentOperation) error
	DeleteInvestment(ctx context.Context, id int64) error
	CreateTransfer(ctx context.Context, t core.Transfer) (int64, error)
	UpdateTransfer(ctx context.Context, t core.Transfer) error
	DeleteTransfer(ctx context.Context, id int64) error
}

// LedgerService validates investment and transfer writes and invalidates
// cached positions.
type LedgerService struct {
	repo    LedgerRepository
	reports Invalidator
}

func NewLedgerService(repo LedgerRepository, reports Invalidator) *LedgerService {
	return &LedgerService{repo: repo, reports: reports}
}

func (s *LedgerService) invalidate() {
	if s.reports != nil {
		s.reports.Invalidate()
	}
}

func (s *LedgerService) CreateInvestment(ctx context.Context, o core.InvestmentOperation) (int64, error) {
	if err := o.Validate(); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateInvestment(ctx, o)
	if err != nil {
		return 0, fmt.Errorf("save investment: %w", err)
	}
	s.invalidate()
	return id, nil
}

func (s *LedgerService) UpdateInvestment(ctx context.Context, o core.InvestmentOperation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateInvestment(ctx, o); err != nil {
		return fmt.Errorf("update investment: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *LedgerService) DeleteInvestment(ctx context.Context, id int64) error {
	if err := s.repo.DeleteInvestment(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

func (s *LedgerService) CreateTransfer(ctx context.Context, t core.Transfer) (int64, error) {
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return 0, err
	}
	id, err := s.repo.CreateTransfer(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("save transfer: %w", err)
	}
	return id, nil
}

func (s *LedgerService) UpdateTransfer(ctx context.Context, t core.Transfer) error {
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateTransfer(ctx, t); err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	return nil
}

func (s *LedgerService) DeleteTransfer(ctx context.Context, id int64) error {
	return s.repo.DeleteTransfer(ctx, id)
}
