package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
	"financas/internal/importer"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "db", "financas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

type fixture struct {
	food, salary, account, card int64
}

func seed(t *testing.T, repo *SQLiteRepository) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error
	f.food, err = repo.CreateCategory(ctx, core.Category{Description: "Alimentação", Type: core.Expense})
	require.NoError(t, err)
	f.salary, err = repo.CreateCategory(ctx, core.Category{Description: "Salário", Type: core.Income})
	require.NoError(t, err)
	f.account, err = repo.CreateAccount(ctx, core.Account{Description: "Banco X"})
	require.NoError(t, err)
	f.card, err = repo.CreateCard(ctx, core.Card{Description: "Visa", AccountID: f.account, DueDay: 10})
	require.NoError(t, err)
	return f
}

func TestReferenceCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo)

	_, err := repo.CreateAccount(ctx, core.Account{Description: "Banco X"})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, repo.UpdateAccount(ctx, core.Account{ID: f.account, Description: "Banco Y"}))
	acc, err := repo.GetAccount(ctx, f.account)
	require.NoError(t, err)
	assert.Equal(t, "Banco Y", acc.Description)

	_, err = repo.GetAccount(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	cards, err := repo.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Banco Y", cards[0].AccountName)

	// the card still points at the account
	assert.ErrorIs(t, repo.DeleteAccount(ctx, f.account), ErrInUse)
	require.NoError(t, repo.DeleteCard(ctx, f.card))
	require.NoError(t, repo.DeleteAccount(ctx, f.account))

	id, err := repo.CreateCurrency(ctx, core.Currency{Code: "brl", Description: "Real"})
	require.NoError(t, err)
	cur, err := repo.GetCurrency(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "BRL", cur.Code)

	assert.ErrorIs(t, repo.DeleteTicker(ctx, 42), ErrNotFound)
}

func TestMovementRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo)

	m := core.Movement{
		Date:           core.NewDate(2025, 3, 10),
		SettlementDate: core.NewDate(2025, 4, 10),
		Description:    "Mercado",
		CategoryID:     f.food,
		AccountID:      f.account,
		CardID:         f.card,
		Amount:         core.Money{Cents: -12345},
		Status:         core.Settled,
		Sharing:        core.SharingHalf,
	}
	id, err := repo.CreateMovement(ctx, m)
	require.NoError(t, err)

	_, err = repo.CreateMovement(ctx, core.Movement{
		Date: core.NewDate(2025, 3, 5), Description: "Salário", CategoryID: f.salary,
		AccountID: f.account, Amount: core.Money{Cents: 500000}, Status: core.Pending, Sharing: core.SharingA,
	})
	require.NoError(t, err)

	got, err := repo.GetMovement(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alimentação", got.CategoryName)
	assert.Equal(t, core.Expense, got.CategoryType)
	assert.Equal(t, "Visa", got.CardName)
	assert.Equal(t, "2025-04-10", got.SettlementDate.String())
	assert.Equal(t, int64(-12345), got.Amount.Cents)

	list, err := repo.ListMovements(ctx, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Mercado", list[0].Description, "newest first")
	assert.Equal(t, "", list[1].CardName)
	assert.True(t, list[1].SettlementDate.IsZero())

	// settlement in April brings the March movement into an April report
	report, err := repo.MovementsForReport(ctx, core.NewDate(2025, 4, 1), core.NewDate(2025, 4, 30))
	require.NoError(t, err)
	require.Len(t, report, 1)

	assert.ErrorIs(t, repo.DeleteCategory(ctx, f.food), ErrInUse)
	require.NoError(t, repo.DeleteMovement(ctx, id))
	assert.ErrorIs(t, repo.DeleteMovement(ctx, id), ErrNotFound)
}

func TestSettledUntil(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo)

	add := func(date string, cents int64, status core.Status, card int64) {
		d, err := core.ParseDate(date)
		require.NoError(t, err)
		m := core.Movement{Date: d, Description: "x", CategoryID: f.salary, AccountID: f.account,
			CardID: card, Amount: core.Money{Cents: cents}, Status: status, Sharing: core.SharingA}
		m.ApplyDefaults()
		_, err = repo.CreateMovement(ctx, m)
		require.NoError(t, err)
	}
	add("2025-01-10", 10000, core.Settled, 0)
	add("2025-01-20", 5000, core.Pending, 0)
	add("2025-01-21", 7000, core.Settled, f.card)
	add("2025-03-01", 100000, core.Settled, 0)

	rows, err := repo.SettledUntil(ctx, core.NewDate(2025, 2, 1))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(10000), rows[0].Amount.Cents)
}

func TestInvestmentsAndTransfers(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo)

	ticker, err := repo.CreateTicker(ctx, core.Ticker{Description: "PETR4", Class: "Ações", Kind: "Renda Variável"})
	require.NoError(t, err)
	op, err := repo.CreateOperation(ctx, core.Operation{Description: "Compra", Nature: core.Outflow})
	require.NoError(t, err)
	cur, err := repo.CreateCurrency(ctx, core.Currency{Code: "BRL", Description: "Real"})
	require.NoError(t, err)

	rate := decimal.RequireFromString("12.5")
	invID, err := repo.CreateInvestment(ctx, core.InvestmentOperation{
		Date: core.NewDate(2025, 2, 3), TickerID: ticker, OperationID: op, CurrencyID: cur,
		AccountID: f.account, Quantity: decimal.RequireFromString("10.5"),
		Gross: core.Money{Cents: 30000}, Costs: core.Money{Cents: 100}, NegotiatedRate: &rate,
	})
	require.NoError(t, err)

	inv, err := repo.GetInvestment(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", inv.TickerName)
	assert.Equal(t, core.Outflow, inv.Nature)
	assert.Equal(t, "BRL", inv.CurrencyCode)
	assert.True(t, inv.Quantity.Equal(decimal.RequireFromString("10.5")))
	require.NotNil(t, inv.NegotiatedRate)
	assert.Equal(t, "12.5", inv.NegotiatedRate.String())

	trID, err := repo.CreateTransfer(ctx, core.Transfer{
		Date: core.NewDate(2025, 2, 3), Description: "Aporte", FromAccountID: f.account,
		InvestmentID: invID, Amount: core.Money{Cents: 30100}, Status: core.Settled,
		Kind: core.ToInvestment, Sharing: core.SharingA,
	})
	require.NoError(t, err)

	_, err = repo.CreateTransfer(ctx, core.Transfer{
		Date: core.NewDate(2025, 2, 10), Description: "Fatura", FromAccountID: f.account,
		CardID: f.card, Amount: core.Money{Cents: 9000}, Status: core.Pending,
		Kind: core.CardPayment, Sharing: core.SharingHalf,
	})
	require.NoError(t, err, "card payments are accepted after the transfers rebuild")

	transfers, err := repo.ListTransfers(ctx)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, "Visa", transfers[0].CardName)

	assert.ErrorIs(t, repo.DeleteInvestment(ctx, invID), ErrInUse)
	assert.ErrorIs(t, repo.DeleteTicker(ctx, ticker), ErrInUse)
	require.NoError(t, repo.DeleteTransfer(ctx, trID))
	require.NoError(t, repo.DeleteInvestment(ctx, invID))
}

func TestCommitThroughRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	row := func(line int, category, amount string) importer.ImportRow {
		return importer.ImportRow{
			Line: line, Date: "2025-03-10", Description: "linha", CategoryName: category,
			AccountName: "Banco X", Amount: amount, Status: "Efetivado", Sharing: "50/50",
		}
	}
	rows := []importer.ImportRow{
		row(2, "Alimentação", "50.00"),
		row(3, "Salário", "-1000.00"),
		row(4, "Inexistente", "1.00"),
	}
	confirmed := map[int]bool{2: true, 3: true, 4: true}

	res, err := importer.Commit(ctx, repo, rows, confirmed)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 4, res.Skipped[0].Line)

	list, err := repo.ListMovements(ctx, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, m := range list {
		switch m.CategoryType {
		case core.Expense:
			assert.Equal(t, int64(-5000), m.Amount.Cents)
		case core.Income:
			assert.Equal(t, int64(100000), m.Amount.Cents)
		}
		assert.Equal(t, "2025-03-10", m.SettlementDate.String())
	}
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	f := seed(t, repo)

	boom := errors.New("boom")
	err := repo.InTx(ctx, func(tx importer.MovementTx) error {
		_, err := tx.InsertMovement(ctx, core.Movement{
			Date: core.NewDate(2025, 5, 1), Description: "temp", CategoryID: f.food,
			AccountID: f.account, Amount: core.Money{Cents: -100}, Status: core.Pending, Sharing: core.SharingB,
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := repo.ListMovements(ctx, core.NewDate(2025, 5, 1), core.NewDate(2025, 5, 31))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financas.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	version, err := RunMigrations(path)
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
}
