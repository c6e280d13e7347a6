package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
	"financas/internal/storage"
)

const sample = `
accounts = ["Banco X"]

[[categories]]
name = "Alimentação"
type = "Despesa"

[[categories]]
name = "Salário"
type = "Receita"

[[cards]]
name = "Visa"
account = "Banco X"
due_day = 10
limit = "5000.00"

[[currencies]]
code = "brl"
name = "Real"

[[operations]]
name = "Compra"
nature = "Saida"
`

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Len(t, f.Categories, 2)
	assert.Equal(t, []string{"Banco X"}, f.Accounts)
	assert.Equal(t, 10, f.Cards[0].DueDay)

	_, err = Parse([]byte("unknown = 1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("[[categories]\n"))
	assert.Error(t, err)
}

func TestApply_Idempotent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	res, err := Apply(ctx, repo, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 6}, res)

	res, err = Apply(ctx, repo, f)
	require.NoError(t, err)
	assert.Equal(t, Result{Existing: 6}, res)

	cards, err := repo.ListCards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Banco X", cards[0].AccountName)
	assert.Equal(t, int64(500000), cards[0].Limit.Cents)

	currencies, err := repo.ListCurrencies(ctx)
	require.NoError(t, err)
	require.Len(t, currencies, 1)
	assert.Equal(t, "BRL", currencies[0].Code)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	types := map[string]core.CategoryType{}
	for _, c := range cats {
		types[c.Description] = c.Type
	}
	assert.Equal(t, core.Expense, types["Alimentação"])
	assert.Equal(t, core.Income, types["Salário"])
}

func TestApply_Errors(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	_, err := Apply(ctx, repo, &File{Categories: []Category{{Name: "X", Type: "Outro"}}})
	assert.ErrorIs(t, err, core.ErrInvalidCategory)

	_, err = Apply(ctx, repo, &File{Cards: []Card{{Name: "Visa", Account: "Nenhum", DueDay: 5}}})
	assert.ErrorContains(t, err, "unknown account")

	_, err = Apply(ctx, repo, &File{Operations: []Operation{{Name: "Compra", Nature: "Lateral"}}})
	assert.ErrorIs(t, err, core.ErrInvalidNature)
}

func TestLoad_ExampleFile(t *testing.T) {
	path := filepath.Join("..", "..", "configs", "seed.example.toml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("example seed not present")
	}
	f, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, f.Categories)

	repo := newRepo(t)
	res, err := Apply(context.Background(), repo, f)
	require.NoError(t, err)
	assert.Zero(t, res.Existing)
}
