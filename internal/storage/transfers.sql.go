package storage

import (
	"context"
)

const transferColumns = `t.id, t.transfer_date, t.settlement_date, t.description,
    t.from_account_id, t.to_account_id, t.card_id, t.amount_cents, t.status,
    t.kind, t.investment_id, t.sharing,
    f.description, d.description, k.description
FROM transfers t
JOIN accounts f ON f.id = t.from_account_id
LEFT JOIN accounts d ON d.id = t.to_account_id
LEFT JOIN cards k ON k.id = t.card_id`

const listTransfers = `-- name: ListTransfers :many
SELECT ` + transferColumns + `
ORDER BY t.transfer_date DESC, t.id DESC`

const getTransfer = `-- name: GetTransfer :one
SELECT ` + transferColumns + `
WHERE t.id = ?`

const createTransfer = `-- name: CreateTransfer :execlastid
INSERT INTO transfers (
    transfer_date, settlement_date, description, from_account_id, to_account_id,
    card_id, amount_cents, status, kind, investment_id, sharing
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateTransfer = `-- name: UpdateTransfer :exec
UPDATE transfers SET
    transfer_date = ?, settlement_date = ?, description = ?, from_account_id = ?,
    to_account_id = ?, card_id = ?, amount_cents = ?, status = ?, kind = ?,
    investment_id = ?, sharing = ?
WHERE id = ?`

const deleteTransfer = `-- name: DeleteTransfer :exec
DELETE FROM transfers WHERE id = ?`

func scanTransfer(s scanner) (TransferRow, error) {
	var i TransferRow
	err := s.Scan(
		&i.ID, &i.TransferDate, &i.SettlementDate, &i.Description,
		&i.FromAccountID, &i.ToAccountID, &i.CardID, &i.AmountCents, &i.Status,
		&i.Kind, &i.InvestmentID, &i.Sharing,
		&i.FromAccountName, &i.ToAccountName, &i.CardName,
	)
	return i, err
}

func (q *Queries) ListTransfers(ctx context.Context) ([]TransferRow, error) {
	return selectMany(ctx, q.db, listTransfers, scanTransfer)
}

func (q *Queries) GetTransfer(ctx context.Context, id int64) (TransferRow, error) {
	return scanTransfer(q.db.QueryRowContext(ctx, getTransfer, id))
}

func (q *Queries) CreateTransfer(ctx context.Context, p TransferParams) (int64, error) {
	return insertID(ctx, q.db, createTransfer,
		p.TransferDate, p.SettlementDate, p.Description, p.FromAccountID, p.ToAccountID,
		p.CardID, p.AmountCents, p.Status, p.Kind, p.InvestmentID, p.Sharing)
}

func (q *Queries) UpdateTransfer(ctx context.Context, id int64, p TransferParams) error {
	return execOne(ctx, q.db, updateTransfer,
		p.TransferDate, p.SettlementDate, p.Description, p.FromAccountID, p.ToAccountID,
		p.CardID, p.AmountCents, p.Status, p.Kind, p.InvestmentID, p.Sharing, id)
}

func (q *Queries) DeleteTransfer(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteTransfer, id)
}
