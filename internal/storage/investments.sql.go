package storage

import (
	"context"
)

const investmentColumns = `i.id, i.investment_date, i.due_date, i.ticker_id, i.operation_id,
    i.currency_id, i.account_id, i.quantity, i.unit_price_cents, i.gross_cents,
    i.costs_cents, i.fees_cents, i.withholding_cents, i.negotiated_rate,
    i.index_name, i.note,
    t.description, t.class, o.description, o.nature, c.code, a.description
FROM investments i
JOIN tickers t ON t.id = i.ticker_id
JOIN operations o ON o.id = i.operation_id
JOIN currencies c ON c.id = i.currency_id
LEFT JOIN accounts a ON a.id = i.account_id`

const listInvestments = `-- name: ListInvestments :many
SELECT ` + investmentColumns + `
ORDER BY i.investment_date DESC, i.id DESC`

const getInvestment = `-- name: GetInvestment :one
SELECT ` + investmentColumns + `
WHERE i.id = ?`

const createInvestment = `-- name: CreateInvestment :execlastid
INSERT INTO investments (
    investment_date, due_date, ticker_id, operation_id, currency_id, account_id,
    quantity, unit_price_cents, gross_cents, costs_cents, fees_cents,
    withholding_cents, negotiated_rate, index_name, note
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateInvestment = `-- name: UpdateInvestment :exec
UPDATE investments SET
    investment_date = ?, due_date = ?, ticker_id = ?, operation_id = ?,
    currency_id = ?, account_id = ?, quantity = ?, unit_price_cents = ?,
    gross_cents = ?, costs_cents = ?, fees_cents = ?, withholding_cents = ?,
    negotiated_rate = ?, index_name = ?, note = ?
WHERE id = ?`

const deleteInvestment = `-- name: DeleteInvestment :exec
DELETE FROM investments WHERE id = ?`

const countInvestmentTransfers = `-- name: CountInvestmentTransfers :one
SELECT COUNT(*) FROM transfers WHERE investment_id = ?`

func scanInvestment(s scanner) (InvestmentRow, error) {
	var i InvestmentRow
	err := s.Scan(
		&i.ID, &i.InvestmentDate, &i.DueDate, &i.TickerID, &i.OperationID,
		&i.CurrencyID, &i.AccountID, &i.Quantity, &i.UnitPriceCents, &i.GrossCents,
		&i.CostsCents, &i.FeesCents, &i.WithholdingCents, &i.NegotiatedRate,
		&i.IndexName, &i.Note,
		&i.TickerName, &i.TickerClass, &i.OperationName, &i.Nature, &i.CurrencyCode, &i.AccountName,
	)
	return i, err
}

func (q *Queries) ListInvestments(ctx context.Context) ([]InvestmentRow, error) {
	return selectMany(ctx, q.db, listInvestments, scanInvestment)
}

func (q *Queries) GetInvestment(ctx context.Context, id int64) (InvestmentRow, error) {
	return scanInvestment(q.db.QueryRowContext(ctx, getInvestment, id))
}

func (q *Queries) CreateInvestment(ctx context.Context, p InvestmentParams) (int64, error) {
	return insertID(ctx, q.db, createInvestment,
		p.InvestmentDate, p.DueDate, p.TickerID, p.OperationID, p.CurrencyID, p.AccountID,
		p.Quantity, p.UnitPriceCents, p.GrossCents, p.CostsCents, p.FeesCents,
		p.WithholdingCents, p.NegotiatedRate, p.IndexName, p.Note)
}

func (q *Queries) UpdateInvestment(ctx context.Context, id int64, p InvestmentParams) error {
	return execOne(ctx, q.db, updateInvestment,
		p.InvestmentDate, p.DueDate, p.TickerID, p.OperationID, p.CurrencyID, p.AccountID,
		p.Quantity, p.UnitPriceCents, p.GrossCents, p.CostsCents, p.FeesCents,
		p.WithholdingCents, p.NegotiatedRate, p.IndexName, p.Note, id)
}

func (q *Queries) DeleteInvestment(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteInvestment, id)
}

func (q *Queries) CountInvestmentTransfers(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countInvestmentTransfers, id)
}
