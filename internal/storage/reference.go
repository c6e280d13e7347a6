package storage

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/core"
)

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return mapSlice(rows, toAccount), nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	row, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account %d: %w", id, mapError(err))
	}
	return toAccount(row), nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	id, err := r.queries.CreateAccount(ctx, a.Description)
	if err != nil {
		return 0, fmt.Errorf("create account: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Account created", "id", id, "description", a.Description)
	return id, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) error {
	if err := r.queries.UpdateAccount(ctx, a.ID, a.Description); err != nil {
		return fmt.Errorf("update account %d: %w", a.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	return guardDelete(ctx, "account", id, r.queries.CountAccountUsage, r.queries.DeleteAccount)
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return mapSlice(rows, toCategory), nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, mapError(err))
	}
	return toCategory(row), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (int64, error) {
	id, err := r.queries.CreateCategory(ctx, c.Description, string(c.Type))
	if err != nil {
		return 0, fmt.Errorf("create category: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Category created", "id", id, "description", c.Description, "type", c.Type)
	return id, nil
}

// UpdateCategory changes a category. Existing movement amounts keep their
// sign; they are normalized again on their next write.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := r.queries.UpdateCategory(ctx, c.ID, c.Description, string(c.Type)); err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	return guardDelete(ctx, "category", id, r.queries.CountCategoryUsage, r.queries.DeleteCategory)
}

func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.queries.ListCards(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	return mapSlice(rows, toCard), nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id int64) (core.Card, error) {
	row, err := r.queries.GetCard(ctx, id)
	if err != nil {
		return core.Card{}, fmt.Errorf("get card %d: %w", id, mapError(err))
	}
	return toCard(row), nil
}

func cardRow(c core.Card) Card {
	return Card{
		ID:          c.ID,
		Description: c.Description,
		AccountID:   c.AccountID,
		DueDay:      int64(c.DueDay),
		LimitCents:  c.Limit.Cents,
	}
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) (int64, error) {
	id, err := r.queries.CreateCard(ctx, cardRow(c))
	if err != nil {
		return 0, fmt.Errorf("create card: %w", mapError(err))
	}
	slog.InfoContext(ctx, "Card created", "id", id, "description", c.Description)
	return id, nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	if err := r.queries.UpdateCard(ctx, cardRow(c)); err != nil {
		return fmt.Errorf("update card %d: %w", c.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id int64) error {
	return guardDelete(ctx, "card", id, r.queries.CountCardUsage, r.queries.DeleteCard)
}

func (r *SQLiteRepository) ListTickers(ctx context.Context) ([]core.Ticker, error) {
	rows, err := r.queries.ListTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	return mapSlice(rows, toTicker), nil
}

func (r *SQLiteRepository) GetTicker(ctx context.Context, id int64) (core.Ticker, error) {
	row, err := r.queries.GetTicker(ctx, id)
	if err != nil {
		return core.Ticker{}, fmt.Errorf("get ticker %d: %w", id, mapError(err))
	}
	return toTicker(row), nil
}

func (r *SQLiteRepository) CreateTicker(ctx context.Context, t core.Ticker) (int64, error) {
	id, err := r.queries.CreateTicker(ctx, Ticker{Description: t.Description, Class: t.Class, Kind: t.Kind})
	if err != nil {
		return 0, fmt.Errorf("create ticker: %w", mapError(err))
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateTicker(ctx context.Context, t core.Ticker) error {
	if err := r.queries.UpdateTicker(ctx, Ticker(t)); err != nil {
		return fmt.Errorf("update ticker %d: %w", t.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteTicker(ctx context.Context, id int64) error {
	return guardDelete(ctx, "ticker", id, r.queries.CountTickerUsage, r.queries.DeleteTicker)
}

func (r *SQLiteRepository) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	rows, err := r.queries.ListCurrencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list currencies: %w", err)
	}
	return mapSlice(rows, toCurrency), nil
}

func (r *SQLiteRepository) GetCurrency(ctx context.Context, id int64) (core.Currency, error) {
	row, err := r.queries.GetCurrency(ctx, id)
	if err != nil {
		return core.Currency{}, fmt.Errorf("get currency %d: %w", id, mapError(err))
	}
	return toCurrency(row), nil
}

func (r *SQLiteRepository) CreateCurrency(ctx context.Context, c core.Currency) (int64, error) {
	c = c.Normalize()
	id, err := r.queries.CreateCurrency(ctx, Currency{Code: c.Code, Description: c.Description})
	if err != nil {
		return 0, fmt.Errorf("create currency: %w", mapError(err))
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateCurrency(ctx context.Context, c core.Currency) error {
	c = c.Normalize()
	if err := r.queries.UpdateCurrency(ctx, Currency(c)); err != nil {
		return fmt.Errorf("update currency %d: %w", c.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteCurrency(ctx context.Context, id int64) error {
	return guardDelete(ctx, "currency", id, r.queries.CountCurrencyUsage, r.queries.DeleteCurrency)
}

func (r *SQLiteRepository) ListOperations(ctx context.Context) ([]core.Operation, error) {
	rows, err := r.queries.ListOperations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return mapSlice(rows, toOperation), nil
}

func (r *SQLiteRepository) GetOperation(ctx context.Context, id int64) (core.Operation, error) {
	row, err := r.queries.GetOperation(ctx, id)
	if err != nil {
		return core.Operation{}, fmt.Errorf("get operation %d: %w", id, mapError(err))
	}
	return toOperation(row), nil
}

func (r *SQLiteRepository) CreateOperation(ctx context.Context, o core.Operation) (int64, error) {
	id, err := r.queries.CreateOperation(ctx, Operation{Description: o.Description, Nature: string(o.Nature)})
	if err != nil {
		return 0, fmt.Errorf("create operation: %w", mapError(err))
	}
	return id, nil
}

func (r *SQLiteRepository) UpdateOperation(ctx context.Context, o core.Operation) error {
	if err := r.queries.UpdateOperation(ctx, Operation{ID: o.ID, Description: o.Description, Nature: string(o.Nature)}); err != nil {
		return fmt.Errorf("update operation %d: %w", o.ID, mapError(err))
	}
	return nil
}

func (r *SQLiteRepository) DeleteOperation(ctx context.Context, id int64) error {
	return guardDelete(ctx, "operation", id, r.queries.CountOperationUsage, r.queries.DeleteOperation)
}
