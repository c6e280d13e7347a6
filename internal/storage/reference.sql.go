package storage

import (
	"context"
	"database/sql"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

func selectMany[T any](ctx context.Context, db DBTX, query string, scan func(scanner) (T, error), args ...interface{}) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []T
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func insertID(ctx context.Context, db DBTX, query string, args ...interface{}) (int64, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// execOne runs an UPDATE or DELETE and reports sql.ErrNoRows when nothing matched.
func execOne(ctx context.Context, db DBTX, query string, args ...interface{}) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func countOf(ctx context.Context, db DBTX, query string, args ...interface{}) (int64, error) {
	var n int64
	err := db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// Accounts

const listAccounts = `-- name: ListAccounts :many
SELECT id, description FROM accounts ORDER BY description`

const getAccount = `-- name: GetAccount :one
SELECT id, description FROM accounts WHERE id = ?`

const createAccount = `-- name: CreateAccount :execlastid
INSERT INTO accounts (description) VALUES (?)`

const updateAccount = `-- name: UpdateAccount :exec
UPDATE accounts SET description = ? WHERE id = ?`

const deleteAccount = `-- name: DeleteAccount :exec
DELETE FROM accounts WHERE id = ?`

const countAccountUsage = `-- name: CountAccountUsage :one
SELECT
    (SELECT COUNT(*) FROM movements WHERE account_id = ?1) +
    (SELECT COUNT(*) FROM cards WHERE account_id = ?1) +
    (SELECT COUNT(*) FROM investments WHERE account_id = ?1) +
    (SELECT COUNT(*) FROM transfers WHERE from_account_id = ?1 OR to_account_id = ?1)`

func scanAccount(s scanner) (Account, error) {
	var i Account
	err := s.Scan(&i.ID, &i.Description)
	return i, err
}

func (q *Queries) ListAccounts(ctx context.Context) ([]Account, error) {
	return selectMany(ctx, q.db, listAccounts, scanAccount)
}

func (q *Queries) GetAccount(ctx context.Context, id int64) (Account, error) {
	return scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
}

func (q *Queries) CreateAccount(ctx context.Context, description string) (int64, error) {
	return insertID(ctx, q.db, createAccount, description)
}

func (q *Queries) UpdateAccount(ctx context.Context, id int64, description string) error {
	return execOne(ctx, q.db, updateAccount, description, id)
}

func (q *Queries) DeleteAccount(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteAccount, id)
}

func (q *Queries) CountAccountUsage(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countAccountUsage, id)
}

// Categories

const listCategories = `-- name: ListCategories :many
SELECT id, description, type FROM categories ORDER BY type, description`

const getCategory = `-- name: GetCategory :one
SELECT id, description, type FROM categories WHERE id = ?`

const createCategory = `-- name: CreateCategory :execlastid
INSERT INTO categories (description, type) VALUES (?, ?)`

const updateCategory = `-- name: UpdateCategory :exec
UPDATE categories SET description = ?, type = ? WHERE id = ?`

const deleteCategory = `-- name: DeleteCategory :exec
DELETE FROM categories WHERE id = ?`

const countCategoryUsage = `-- name: CountCategoryUsage :one
SELECT COUNT(*) FROM movements WHERE category_id = ?`

func scanCategory(s scanner) (Category, error) {
	var i Category
	err := s.Scan(&i.ID, &i.Description, &i.Type)
	return i, err
}

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	return selectMany(ctx, q.db, listCategories, scanCategory)
}

func (q *Queries) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id))
}

func (q *Queries) CreateCategory(ctx context.Context, description, typ string) (int64, error) {
	return insertID(ctx, q.db, createCategory, description, typ)
}

func (q *Queries) UpdateCategory(ctx context.Context, id int64, description, typ string) error {
	return execOne(ctx, q.db, updateCategory, description, typ, id)
}

func (q *Queries) DeleteCategory(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteCategory, id)
}

func (q *Queries) CountCategoryUsage(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countCategoryUsage, id)
}

// Cards

const listCards = `-- name: ListCards :many
SELECT c.id, c.description, c.account_id, a.description, c.due_day, c.limit_cents
FROM cards c JOIN accounts a ON a.id = c.account_id
ORDER BY c.description`

const getCard = `-- name: GetCard :one
SELECT c.id, c.description, c.account_id, a.description, c.due_day, c.limit_cents
FROM cards c JOIN accounts a ON a.id = c.account_id
WHERE c.id = ?`

const createCard = `-- name: CreateCard :execlastid
INSERT INTO cards (description, account_id, due_day, limit_cents) VALUES (?, ?, ?, ?)`

const updateCard = `-- name: UpdateCard :exec
UPDATE cards SET description = ?, account_id = ?, due_day = ?, limit_cents = ? WHERE id = ?`

const deleteCard = `-- name: DeleteCard :exec
DELETE FROM cards WHERE id = ?`

const countCardUsage = `-- name: CountCardUsage :one
SELECT
    (SELECT COUNT(*) FROM movements WHERE card_id = ?1) +
    (SELECT COUNT(*) FROM transfers WHERE card_id = ?1)`

func scanCard(s scanner) (Card, error) {
	var i Card
	err := s.Scan(&i.ID, &i.Description, &i.AccountID, &i.AccountName, &i.DueDay, &i.LimitCents)
	return i, err
}

func (q *Queries) ListCards(ctx context.Context) ([]Card, error) {
	return selectMany(ctx, q.db, listCards, scanCard)
}

func (q *Queries) GetCard(ctx context.Context, id int64) (Card, error) {
	return scanCard(q.db.QueryRowContext(ctx, getCard, id))
}

func (q *Queries) CreateCard(ctx context.Context, c Card) (int64, error) {
	return insertID(ctx, q.db, createCard, c.Description, c.AccountID, c.DueDay, c.LimitCents)
}

func (q *Queries) UpdateCard(ctx context.Context, c Card) error {
	return execOne(ctx, q.db, updateCard, c.Description, c.AccountID, c.DueDay, c.LimitCents, c.ID)
}

func (q *Queries) DeleteCard(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteCard, id)
}

func (q *Queries) CountCardUsage(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countCardUsage, id)
}

// Tickers

const listTickers = `-- name: ListTickers :many
SELECT id, description, class, kind FROM tickers ORDER BY description`

const getTicker = `-- name: GetTicker :one
SELECT id, description, class, kind FROM tickers WHERE id = ?`

const createTicker = `-- name: CreateTicker :execlastid
INSERT INTO tickers (description, class, kind) VALUES (?, ?, ?)`

const updateTicker = `-- name: UpdateTicker :exec
UPDATE tickers SET description = ?, class = ?, kind = ? WHERE id = ?`

const deleteTicker = `-- name: DeleteTicker :exec
DELETE FROM tickers WHERE id = ?`

const countTickerUsage = `-- name: CountTickerUsage :one
SELECT COUNT(*) FROM investments WHERE ticker_id = ?`

func scanTicker(s scanner) (Ticker, error) {
	var i Ticker
	err := s.Scan(&i.ID, &i.Description, &i.Class, &i.Kind)
	return i, err
}

func (q *Queries) ListTickers(ctx context.Context) ([]Ticker, error) {
	return selectMany(ctx, q.db, listTickers, scanTicker)
}

func (q *Queries) GetTicker(ctx context.Context, id int64) (Ticker, error) {
	return scanTicker(q.db.QueryRowContext(ctx, getTicker, id))
}

func (q *Queries) CreateTicker(ctx context.Context, t Ticker) (int64, error) {
	return insertID(ctx, q.db, createTicker, t.Description, t.Class, t.Kind)
}

func (q *Queries) UpdateTicker(ctx context.Context, t Ticker) error {
	return execOne(ctx, q.db, updateTicker, t.Description, t.Class, t.Kind, t.ID)
}

func (q *Queries) DeleteTicker(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteTicker, id)
}

func (q *Queries) CountTickerUsage(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countTickerUsage, id)
}

// Currencies

const listCurrencies = `-- name: ListCurrencies :many
SELECT id, code, description FROM currencies ORDER BY code`

const getCurrency = `-- name: GetCurrency :one
SELECT id, code, description FROM currencies WHERE id = ?`

const createCurrency = `-- name: CreateCurrency :execlastid
INSERT INTO currencies (code, description) VALUES (?, ?)`

const updateCurrency = `-- name: UpdateCurrency :exec
UPDATE currencies SET code = ?, description = ? WHERE id = ?`

const deleteCurrency = `-- name: DeleteCurrency :exec
DELETE FROM currencies WHERE id = ?`

const countCurrencyUsage = `-- name: CountCurrencyUsage :one
SELECT COUNT(*) FROM investments WHERE currency_id = ?`

func scanCurrency(s scanner) (Currency, error) {
	var i Currency
	err := s.Scan(&i.ID, &i.Code, &i.Description)
	return i, err
}

func (q *Queries) ListCurrencies(ctx context.Context) ([]Currency, error) {
	return selectMany(ctx, q.db, listCurrencies, scanCurrency)
}

func (q *Queries) GetCurrency(ctx context.Context, id int64) (Currency, error) {
	return scanCurrency(q.db.QueryRowContext(ctx, getCurrency, id))
}

func (q *Queries) CreateCurrency(ctx context.Context, c Currency) (int64, error) {
	return insertID(ctx, q.db, createCurrency, c.Code, c.Description)
}

func (q *Queries) UpdateCurrency(ctx context.Context, c Currency) error {
	return execOne(ctx, q.db, updateCurrency, c.Code, c.Description, c.ID)
}

func (q *Queries) DeleteCurrency(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteCurrency, id)
}

func (q *Queries) CountCurrencyUsage(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countCurrencyUsage, id)
}

// Operations

const listOperations = `-- name: ListOperations :many
SELECT id, description, nature FROM operations ORDER BY description`

const getOperation = `-- name: GetOperation :one
SELECT id, description, nature FROM operations WHERE id = ?`

const createOperation = `-- name: CreateOperation :execlastid
INSERT INTO operations (description, nature) VALUES (?, ?)`

const updateOperation = `-- name: UpdateOperation :exec
UPDATE operations SET description = ?, nature = ? WHERE id = ?`

const deleteOperation = `-- name: DeleteOperation :exec
DELETE FROM operations WHERE id = ?`

const countOperationUsage = `-- name: CountOperationUsage :one
SELECT COUNT(*) FROM investments WHERE operation_id = ?`

func scanOperation(s scanner) (Operation, error) {
	var i Operation
	err := s.Scan(&i.ID, &i.Description, &i.Nature)
	return i, err
}

func (q *Queries) ListOperations(ctx context.Context) ([]Operation, error) {
	return selectMany(ctx, q.db, listOperations, scanOperation)
}

func (q *Queries) GetOperation(ctx context.Context, id int64) (Operation, error) {
	return scanOperation(q.db.QueryRowContext(ctx, getOperation, id))
}

func (q *Queries) CreateOperation(ctx context.Context, o Operation) (int64, error) {
	return insertID(ctx, q.db, createOperation, o.Description, o.Nature)
}

func (q *Queries) UpdateOperation(ctx context.Context, o Operation) error {
	return execOne(ctx, q.db, updateOperation, o.Description, o.Nature, o.ID)
}

func (q *Queries) DeleteOperation(ctx context.Context, id int64) error {
	return execOne(ctx, q.db, deleteOperation, id)
}

func (q *Queries) CountOperationUsage(ctx context.Context, id int64) (int64, error) {
	return countOf(ctx, q.db, countOperationUsage, id)
}
