package storage

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
)

// ListMovements returns movements dated within [from, to], newest first.
func (r *SQLiteRepository) ListMovements(ctx context.Context, from, to core.Date) ([]core.MovementView, error) {
	rows, err := r.queries.ListMovements(ctx, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	return toMovementViews(rows)
}

// MovementsForReport returns every movement whose movement or settlement date
// lies within [from, to]. Each report view applies its own date basis.
func (r *SQLiteRepository) MovementsForReport(ctx context.Context, from, to core.Date) ([]core.MovementView, error) {
	rows, err := r.queries.ListMovementsForReport(ctx, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list report movements: %w", err)
	}
	return toMovementViews(rows)
}

// SettledUntil returns settled cardless movements with settlement on or before date.
func (r *SQLiteRepository) SettledUntil(ctx context.Context, date core.Date) ([]core.MovementView, error) {
	rows, err := r.queries.ListSettledUntil(ctx, date.String())
	if err != nil {
		return nil, fmt.Errorf("list settled movements: %w", err)
	}
	return toMovementViews(rows)
}

func (r *SQLiteRepository) GetMovement(ctx context.Context, id int64) (core.MovementView, error) {
	row, err := r.queries.GetMovement(ctx, id)
	if err != nil {
		return core.MovementView{}, fmt.Errorf("get movement %d: %w", id, mapError(err))
	}
	return toMovementView(row)
}

// CreateMovement stores m as given; sign and settlement defaults are the
// caller's responsibility.
func (r *SQLiteRepository) CreateMovement(ctx context.Context, m core.Movement) (int64, error) {
	id, err := r.queries.CreateMovement(ctx, movementParams(m))
	if err != nil {
		return 0, fmt.Errorf("create movement: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Movement saved",
		"id", id,
		"date", m.Date.String(),
		"amount_cents", m.Amount.Cents,
		"status", m.Status)
	return id, nil
}

func (r *SQLiteRepository) UpdateMovement(ctx context.Context, m core.Movement) error {
	if err := r.queries.UpdateMovement(ctx, m.ID, movementParams(m)); err != nil {
		return fmt.Errorf("update movement %d: %w", m.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteMovement(ctx context.Context, id int64) error {
	if err := r.queries.DeleteMovement(ctx, id); err != nil {
		return fmt.Errorf("delete movement %d: %w", id, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) ListInvestments(ctx context.Context) ([]core.InvestmentView, error) {
	rows, err := r.queries.ListInvestments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list investments: %w", err)
	}
	out := make([]core.InvestmentView, 0, len(rows))
	for _, row := range rows {
		v, err := toInvestmentView(row)
		if err != nil {
			return nil, fmt.Errorf("investment %d: %w", row.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *SQLiteRepository) GetInvestment(ctx context.Context, id int64) (core.InvestmentView, error) {
	row, err := r.queries.GetInvestment(ctx, id)
	if err != nil {
		return core.InvestmentView{}, fmt.Errorf("get investment %d: %w", id, mapError(err))
	}
	return toInvestmentView(row)
}

func (r *SQLiteRepository) CreateInvestment(ctx context.Context, o core.InvestmentOperation) (int64, error) {
	id, err := r.queries.CreateInvestment(ctx, investmentParams(o))
	if err != nil {
		return 0, fmt.Errorf("create investment: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Investment operation saved", "id", id, "ticker_id", o.TickerID, "gross_cents", o.Gross.Cents)
	return id, nil
}

func (r *SQLiteRepository) UpdateInvestment(ctx context.Context, o core.InvestmentOperation) error {
	if err := r.queries.UpdateInvestment(ctx, o.ID, investmentParams(o)); err != nil {
		return fmt.Errorf("update investment %d: %w", o.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteInvestment(ctx context.Context, id int64) error {
	return guardDelete(ctx, "investment", id, r.queries.CountInvestmentTransfers, r.queries.DeleteInvestment)
}

func (r *SQLiteRepository) ListTransfers(ctx context.Context) ([]core.TransferView, error) {
	rows, err := r.queries.ListTransfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	out := make([]core.TransferView, 0, len(rows))
	for _, row := range rows {
		v, err := toTransferView(row)
		if err != nil {
			return nil, fmt.Errorf("transfer %d: %w", row.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransfer(ctx context.Context, id int64) (core.TransferView, error) {
	row, err := r.queries.GetTransfer(ctx, id)
	if err != nil {
		return core.TransferView{}, fmt.Errorf("get transfer %d: %w", id, mapError(err))
	}
	return toTransferView(row)
}

func (r *SQLiteRepository) CreateTransfer(ctx context.Context, t core.Transfer) (int64, error) {
	id, err := r.queries.CreateTransfer(ctx, transferParams(t))
	if err != nil {
		return 0, fmt.Errorf("create transfer: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Transfer saved", "id", id, "kind", t.Kind, "amount_cents", t.Amount.Cents)
	return id, nil
}

func (r *SQLiteRepository) UpdateTransfer(ctx context.Context, t core.Transfer) error {
	if err := r.queries.UpdateTransfer(ctx, t.ID, transferParams(t)); err != nil {
		return fmt.Errorf("update transfer %d: %w", t.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransfer(ctx context.Context, id int64) error {
	if err := r.queries.DeleteTransfer(ctx, id); err != nil {
		return fmt.Errorf("delete transfer %d: %w", id, mapError(err))
	}
	return nil
}
