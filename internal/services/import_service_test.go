package services

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/core"
	"financas/internal/importer"
)

type staticRefs struct{ refs importer.ReferenceLookup }

func (s staticRefs) References(context.Context) (importer.ReferenceLookup, error) {
	return s.refs, nil
}

type fakeStore struct {
	mu       sync.Mutex
	refs     importer.ReferenceLookup
	inserted []core.Movement
	fail     bool
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx importer.MovementTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.inserted = append(s.inserted, tx.pending...)
	return nil
}

type fakeTx struct {
	store   *fakeStore
	pending []core.Movement
}

func (tx *fakeTx) References(context.Context) (importer.ReferenceLookup, error) {
	return tx.store.refs, nil
}

func (tx *fakeTx) InsertMovement(_ context.Context, m core.Movement) (int64, error) {
	if tx.store.fail {
		return 0, errors.New("disk I/O error")
	}
	tx.pending = append(tx.pending, m)
	return int64(len(tx.pending)), nil
}

const sampleCSV = `Data;Descrição;Categoria;Conta;Cartão;Valor;Situação;Compartilhamento
10/01/2025;Mercado;Alimentação;Banco X;;150,00;Efetivado;50/50
12/01/2025;Salário;Salário;Banco X;;5.000,00;Efetivado;100%-A
15/02/2025;Desconhecido;Lazer;Banco X;;20,00;Pendente;50/50
`

func newImportFixture(t *testing.T) (*ImportService, *fakeStore, *countingInvalidator, *recordingPublisher, string) {
	t.Helper()
	refs := importer.NewReferences(
		[]core.Category{
			{ID: 1, Description: "Alimentação", Type: core.Expense},
			{ID: 2, Description: "Salário", Type: core.Income},
		},
		[]core.Account{{ID: 1, Description: "Banco X"}},
		nil,
	)
	store := &fakeStore{refs: refs}
	reports := &countingInvalidator{}
	pub := &recordingPublisher{}
	dir := t.TempDir()
	sessions := importer.NewSessionStore(10, time.Hour)
	svc := NewImportService(staticRefs{refs}, store, sessions, dir, reports, pub)
	return svc, store, reports, pub, dir
}

func uploads(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestImportService_UploadAndCommit(t *testing.T) {
	svc, store, reports, pub, dir := newImportFixture(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "extrato.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	valid, invalid := sess.Counts()
	assert.Equal(t, 2, valid)
	assert.Equal(t, 1, invalid)
	assert.Len(t, uploads(t, dir), 1)

	res, err := svc.Commit(ctx, sess.ID, map[int]bool{2: true, 3: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 2, res.Total)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, int64(-15000), store.inserted[0].Amount.Cents)
	assert.Equal(t, int64(500000), store.inserted[1].Amount.Cents)

	assert.Equal(t, 1, reports.calls)
	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "import", pub.msgs[0].Reason)
	assert.Equal(t, []string{"2025-01"}, pub.msgs[0].Periods)
	assert.Equal(t, 2, pub.msgs[0].Count)

	_, err = svc.Session(sess.ID)
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)
	assert.Empty(t, uploads(t, dir))
}

func TestImportService_UploadRejectsBadFile(t *testing.T) {
	svc, _, _, _, dir := newImportFixture(t)

	_, err := svc.Upload(context.Background(), "extrato.csv", strings.NewReader("Data;Valor\n10/01/2025;1,00\n"))
	var missing *importer.MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Missing, importer.ColDescription)
	assert.Empty(t, uploads(t, dir))

	_, err = svc.Upload(context.Background(), "extrato.pdf", strings.NewReader("%PDF"))
	var unreadable *importer.UnreadableFileError
	require.ErrorAs(t, err, &unreadable)
	assert.Empty(t, uploads(t, dir))
}

func TestImportService_UpdateRow(t *testing.T) {
	svc, _, _, _, _ := newImportFixture(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "extrato.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	edited, ok := sess.Row(4)
	require.True(t, ok)
	require.False(t, edited.Valid())
	edited.CategoryName = "Alimentação"
	edited.Amount = "20.00"

	row, err := svc.UpdateRow(ctx, sess.ID, edited)
	require.NoError(t, err)
	assert.True(t, row.Valid(), "errors: %v", row.Errors)
	updated, _ := sess.Row(4)
	assert.True(t, updated.Valid())

	edited.Line = 99
	_, err = svc.UpdateRow(ctx, sess.ID, edited)
	assert.ErrorIs(t, err, ErrRowNotFound)

	_, err = svc.UpdateRow(ctx, "missing", edited)
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)
}

func TestImportService_CommitFailureEndsSession(t *testing.T) {
	svc, store, reports, pub, dir := newImportFixture(t)
	store.fail = true
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "extrato.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, sess.ID, map[int]bool{2: true})
	var txErr *importer.TransactionError
	require.ErrorAs(t, err, &txErr)
	assert.Empty(t, store.inserted)
	assert.Zero(t, reports.calls)
	assert.Empty(t, pub.msgs)
	assert.Empty(t, uploads(t, dir))

	_, err = svc.Session(sess.ID)
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)
}

func TestImportService_Cancel(t *testing.T) {
	svc, _, _, _, dir := newImportFixture(t)

	sess, err := svc.Upload(context.Background(), "extrato.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)
	svc.Cancel(sess.ID)

	_, err = svc.Session(sess.ID)
	assert.ErrorIs(t, err, importer.ErrSessionNotFound)
	assert.Empty(t, uploads(t, dir))
}

func TestImportService_ConcurrentCommitPersistsOnce(t *testing.T) {
	svc, store, _, _, dir := newImportFixture(t)
	ctx := context.Background()

	sess, err := svc.Upload(ctx, "extrato.csv", strings.NewReader(sampleCSV))
	require.NoError(t, err)

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		start    = make(chan struct{})
		ok       int
		notFound int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.Commit(ctx, sess.ID, map[int]bool{2: true, 3: true})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, importer.ErrSessionNotFound):
				notFound++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, notFound)
	assert.Len(t, store.inserted, 2)
	assert.Empty(t, uploads(t, dir))
}
