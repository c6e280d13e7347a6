package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
)

// memStore applies inserts only when the transaction function succeeds.
type memStore struct {
	refs      ReferenceLookup
	persisted []core.Movement
	failOn    string
	nextID    int64
}

type memTx struct {
	store   *memStore
	pending []core.Movement
}

func (s *memStore) InTx(ctx context.Context, fn func(tx MovementTx) error) error {
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.persisted = append(s.persisted, tx.pending...)
	return nil
}

func (tx *memTx) References(context.Context) (ReferenceLookup, error) {
	return tx.store.refs, nil
}

func (tx *memTx) InsertMovement(_ context.Context, m core.Movement) (int64, error) {
	if tx.store.failOn != "" && m.Description == tx.store.failOn {
		return 0, errors.New("disk I/O error")
	}
	tx.store.nextID++
	m.ID = tx.store.nextID
	tx.pending = append(tx.pending, m)
	return m.ID, nil
}

func commitRows() []ImportRow {
	base := func(line int, desc, cat, amount string) ImportRow {
		return ImportRow{
			Line:         line,
			Date:         "2025-01-10",
			Description:  desc,
			CategoryName: cat,
			AccountName:  "Banco A",
			Amount:       amount,
			Status:       string(core.Settled),
			Sharing:      string(core.SharingHalf),
		}
	}
	return []ImportRow{
		base(2, "Mercado", "Alimentação", "150.00"),
		base(3, "Quebrado", "Alimentação", "abc"),
		base(4, "Salário", "Salário", "-5000"),
		base(5, "Padaria", "Alimentação", "-12.5"),
		base(6, "Restaurante", "Alimentação", "80"),
	}
}

func confirmAll(rows []ImportRow) map[int]bool {
	c := make(map[int]bool, len(rows))
	for _, r := range rows {
		c[r.Line] = true
	}
	return c
}

func TestCommit_PartialTolerance(t *testing.T) {
	store := &memStore{refs: testRefs()}
	rows := commitRows()

	res, err := Commit(context.Background(), store, rows, confirmAll(rows))
	require.NoError(t, err)

	assert.Equal(t, 4, res.Success)
	assert.Equal(t, 5, res.Total)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 3, res.Skipped[0].Line)
	assert.Contains(t, res.Skipped[0].Reason, "invalid amount")

	require.Len(t, store.persisted, 4)
	var descs []string
	for _, m := range store.persisted {
		descs = append(descs, m.Description)
	}
	assert.Equal(t, []string{"Mercado", "Salário", "Padaria", "Restaurante"}, descs)
}

func TestCommit_SignAndSettlementDefaults(t *testing.T) {
	store := &memStore{refs: testRefs()}
	rows := commitRows()

	_, err := Commit(context.Background(), store, rows, confirmAll(rows))
	require.NoError(t, err)

	for _, m := range store.persisted {
		switch m.CategoryID {
		case 1:
			assert.LessOrEqual(t, m.Amount.Cents, int64(0), m.Description)
		case 2:
			assert.GreaterOrEqual(t, m.Amount.Cents, int64(0), m.Description)
		}
		assert.Equal(t, "2025-01-10", m.SettlementDate.String(), "settled rows default settlement date")
	}
	assert.Equal(t, int64(-15000), store.persisted[0].Amount.Cents)
	assert.Equal(t, int64(500000), store.persisted[1].Amount.Cents)
	assert.Equal(t, int64(-1250), store.persisted[2].Amount.Cents)
}

func TestCommit_OnlyConfirmedRows(t *testing.T) {
	store := &memStore{refs: testRefs()}
	rows := commitRows()

	res, err := Commit(context.Background(), store, rows, map[int]bool{2: true, 6: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 2, res.Total)
	assert.Empty(t, res.Skipped)
}

func TestCommit_LiveCategoryMapping(t *testing.T) {
	// the category was renamed between validation and commit
	live := NewReferences(
		[]core.Category{{ID: 1, Description: "Comida", Type: core.Expense}},
		[]core.Account{{ID: 10, Description: "Banco A"}},
		nil,
	)
	store := &memStore{refs: live}
	rows := commitRows()[:1]

	res, err := Commit(context.Background(), store, rows, confirmAll(rows))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Success)
	require.Len(t, res.Skipped, 1)
	assert.Contains(t, res.Skipped[0].Reason, "unknown category")
}

func TestCommit_MissingFieldSkipped(t *testing.T) {
	store := &memStore{refs: testRefs()}
	rows := commitRows()[:2]
	rows[0].Sharing = ""
	rows[1].Amount = "10"

	res, err := Commit(context.Background(), store, rows, confirmAll(rows))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Success)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "missing required field sharing", res.Skipped[0].Reason)
}

func TestCommit_TransactionErrorRollsBack(t *testing.T) {
	store := &memStore{refs: testRefs(), failOn: "Padaria"}
	rows := commitRows()

	res, err := Commit(context.Background(), store, rows, confirmAll(rows))
	var txErr *TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Equal(t, 0, res.Success)
	assert.Equal(t, 5, res.Total)
	assert.Empty(t, store.persisted, "nothing persisted after rollback")
}
