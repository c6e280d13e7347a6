package storage

import (
	"context"
)

const movementColumns = `m.id, m.movement_date, m.settlement_date, m.description,
    m.category_id, m.account_id, m.card_id, m.amount_cents, m.status, m.sharing,
    c.description, c.type, a.description, k.description
FROM movements m
JOIN categories c ON c.id = m.category_id
JOIN accounts a ON a.id = m.account_id
LEFT JOIN cards k ON k.id = m.card_id`

const listMovements = `-- name: ListMovements :many
SELECT ` + movementColumns + `
WHERE m.movement_date BETWEEN ?1 AND ?2
ORDER BY m.movement_date DESC, m.id DESC`

const listMovementsForReport = `-- name: ListMovementsForReport :many
SELECT ` + movementColumns + `
WHERE m.movement_date BETWEEN ?1 AND ?2
   OR m.settlement_date BETWEEN ?1 AND ?2
ORDER BY m.movement_date, m.id`

const listSettledUntil = `-- name: ListSettledUntil :many
SELECT ` + movementColumns + `
WHERE m.status = 'Efetivado' AND m.card_id IS NULL
  AND m.settlement_date IS NOT NULL AND m.settlement_date <= ?
ORDER BY m.settlement_date, m.id`

const getMovement = `-- name: GetMovement :one
SELECT ` + movementColumns + `
WHERE m.id = ?`

const createMovement = `-- name: CreateMovement :execlastid
INSERT INTO movements (
    movement_date, settlement_date, description, category_id, account_id,
    card_id, amount_cents, status, sharing
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

const updateMovement = `-- name: UpdateMovement :exec
UPDATE movements SET
    movement_date = ?, settlement_date = ?, description = ?, category_id = ?,
    account_id = ?, card_id = ?, amount_cents = ?, status = ?, sharing = ?
WHERE id = ?`

const deleteMovement = `-- name: DeleteMovement :exec
DELETE FROM movements WHERE id = ?`

func scanMovement(s scanner) (MovementRow, error) {
	var i MovementRow
	err := s.Scan(
		&i.ID, &i.MovementDate, &i.SettlementDate, &i.Description,
		&i.CategoryID, &i.AccountID, &i.CardID, &i.AmountCents, &i.Status, &i.Sharing,
		&i.CategoryName, &i.CategoryType, &i.AccountName, &i.CardName,
	)
	return i, err
}

// ListMovements returns movements dated within [from, to], newest first.
func (q *Queries) ListMovements(ctx context.Context, from, to string) ([]MovementRow, error) {
	return selectMany(ctx, q.db, listMovements, scanMovement, from, to)
}

// ListMovementsForReport returns movements whose movement or settlement date
// falls within [from, to], in chronological order.
func (q *Queries) ListMovementsForReport(ctx context.Context, from, to string) ([]MovementRow, error) {
	return selectMany(ctx, q.db, listMovementsForReport, scanMovement, from, to)
}

func (q *Queries) ListSettledUntil(ctx context.Context, until string) ([]MovementRow, error) {
	return selectMany(ctx, q.db, listSettledUntil, scanMovement, until)
}

func (q *Queries) GetMovement(ctx context.Context, id int64) (MovementRow, error) {
	return scanMovement(q.db.QueryRowContext(ctx, getMovement, id))
}

func (q *Queries) CreateMovement(ctx context.Context, p MovementParams) (int64, error) {
	return insertID(ctx, q.db, createMovement,
		p.MovementDate, p.SettlementDate, p.Description, p.CategoryID, p.AccountID,
		p.CardID, p.AmountCents, p.Status, p.Sharing)
}

func (q *Queries) UpdateMovement(ctx context.Context, id int64, p MovementParams) error {
	return execOne(ctx, q.db, updateMovement,
		p.MovementDate, p.SettlementDate, p.Description, p.CategoryID, p.AccountID,
		p.CardID, p.AmountCents, p.Status, p.Sharing, id)
}

func (q *Queries) DeleteMovement(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteMovement, id)
}
