package importer

import (
	"context"
	"fmt"
	"strings"

	"financas/internal/core"
)

// MovementTx is the transactional view the commit step writes through.
type MovementTx interface {
	// References returns the live reference mapping as seen by the transaction.
	References(ctx context.Context) (ReferenceLookup, error)
	InsertMovement(ctx context.Context, m core.Movement) (int64, error)
}

// MovementStore runs fn inside one transaction, rolling back when fn fails.
type MovementStore interface {
	InTx(ctx context.Context, fn func(tx MovementTx) error) error
}

// CommitResult summarizes a commit. Total is the number of confirmed rows.
type CommitResult struct {
	Success int
	Total   int
	Skipped []CommitRowError
	IDs     []int64
}

// Commit persists the confirmed rows in one transaction. Rows that cannot be
// turned into a movement are skipped with a reason; a store error rolls back
// the whole batch and is returned as *TransactionError.
func Commit(ctx context.Context, store MovementStore, rows []ImportRow, confirmed map[int]bool) (CommitResult, error) {
	var res CommitResult
	for _, r := range rows {
		if confirmed[r.Line] {
			res.Total++
		}
	}

	err := store.InTx(ctx, func(tx MovementTx) error {
		refs, err := tx.References(ctx)
		if err != nil {
			return fmt.Errorf("load references: %w", err)
		}
		res.Success = 0
		res.Skipped = res.Skipped[:0]
		res.IDs = res.IDs[:0]
		for _, r := range rows {
			if !confirmed[r.Line] {
				continue
			}
			m, reason := buildMovement(r, refs)
			if reason != "" {
				res.Skipped = append(res.Skipped, CommitRowError{Line: r.Line, Reason: reason})
				continue
			}
			id, err := tx.InsertMovement(ctx, m)
			if err != nil {
				return fmt.Errorf("insert line %d: %w", r.Line, err)
			}
			res.IDs = append(res.IDs, id)
			res.Success++
		}
		return nil
	})
	if err != nil {
		return CommitResult{Total: res.Total}, &TransactionError{Err: err}
	}
	return res, nil
}

func buildMovement(r ImportRow, refs ReferenceLookup) (core.Movement, string) {
	required := []struct{ name, value string }{
		{ColDate, r.Date},
		{ColDescription, r.Description},
		{ColCategory, r.CategoryName},
		{ColAccount, r.AccountName},
		{ColAmount, r.Amount},
		{ColStatus, r.Status},
		{ColSharing, r.Sharing},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return core.Movement{}, "missing required field " + f.name
		}
	}

	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Movement{}, "invalid date " + quote(r.Date)
	}
	var settlement core.Date
	if r.SettlementDate != "" {
		if settlement, err = core.ParseDate(r.SettlementDate); err != nil {
			return core.Movement{}, "invalid settlement date " + quote(r.SettlementDate)
		}
	}
	amount, err := core.ParseAmount(r.Amount)
	if err != nil {
		return core.Movement{}, "invalid amount " + quote(r.Amount)
	}
	cat, ok := refs.Category(r.CategoryName)
	if !ok {
		return core.Movement{}, "unknown category " + quote(r.CategoryName)
	}
	account, ok := refs.Account(r.AccountName)
	if !ok {
		return core.Movement{}, "unknown account " + quote(r.AccountName)
	}
	var card int64
	if !noCard(r.CardName) {
		if card, ok = refs.Card(r.CardName); !ok {
			return core.Movement{}, "unknown card " + quote(r.CardName)
		}
	}
	status, ok := ParseStatus(r.Status)
	if !ok {
		return core.Movement{}, "invalid status " + quote(r.Status)
	}
	sharing := core.Sharing(strings.TrimSpace(r.Sharing))
	if !sharing.Valid() {
		return core.Movement{}, "invalid sharing " + quote(r.Sharing)
	}

	m := core.Movement{
		Date:           date,
		SettlementDate: settlement,
		Description:    strings.TrimSpace(r.Description),
		CategoryID:     cat.ID,
		AccountID:      account,
		CardID:         card,
		Amount:         core.NormalizeSign(cat.Type, amount),
		Status:         status,
		Sharing:        sharing,
	}
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return core.Movement{}, err.Error()
	}
	return m, ""
}
