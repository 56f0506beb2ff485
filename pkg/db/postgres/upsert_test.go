package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
)

// fakeStore emulates one PostgreSQL table keyed by its first column, including the rule that a
// single DO UPDATE statement may not touch the same row twice.
type fakeStore struct {
	table  indexermodels.Table
	rows   map[string][]any
	stmts  []string
	begins int
	failOn int
	calls  int
}

var errInjected = errors.New("connection reset")

func newFakeStore(table indexermodels.Table) *fakeStore {
	return &fakeStore{table: table, rows: map[string][]any{}}
}

func (f *fakeStore) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return f.apply(f.rows, sql, args)
}

func (f *fakeStore) Begin(context.Context) (pgx.Tx, error) {
	f.begins++
	staged := make(map[string][]any, len(f.rows))
	for k, v := range f.rows {
		staged[k] = v
	}
	return &fakeTx{store: f, staged: staged}, nil
}

func (f *fakeStore) apply(target map[string][]any, sql string, args []any) (pgconn.CommandTag, error) {
	f.calls++
	f.stmts = append(f.stmts, sql)
	if f.failOn == f.calls {
		return pgconn.CommandTag{}, errInjected
	}

	n := len(f.table.Columns)
	if len(args)%n != 0 {
		return pgconn.CommandTag{}, fmt.Errorf("got %d args for %d columns", len(args), n)
	}
	overwrite := strings.Contains(sql, "DO UPDATE")
	seen := map[string]bool{}
	affected := 0
	for i := 0; i < len(args); i += n {
		row := append([]any(nil), args[i:i+n]...)
		key := fmt.Sprint(row[0])
		if seen[key] && overwrite {
			return pgconn.CommandTag{}, errors.New("ON CONFLICT DO UPDATE command cannot affect row a second time")
		}
		seen[key] = true
		if _, exists := target[key]; exists && !overwrite {
			continue
		}
		target[key] = row
		affected++
	}
	return pgconn.NewCommandTag(fmt.Sprintf("INSERT 0 %d", affected)), nil
}

type fakeTx struct {
	pgx.Tx
	store  *fakeStore
	staged map[string][]any
	closed bool
}

func (tx *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return tx.store.apply(tx.staged, sql, args)
}

func (tx *fakeTx) Commit(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	tx.store.rows = tx.staged
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.closed {
		return pgx.ErrTxClosed
	}
	tx.closed = true
	return nil
}

func key(b byte) []byte {
	out := make([]byte, 32)
	out[31] = b
	return out
}

func blob(id byte, endEpoch int64, certified *int64) indexermodels.Blob {
	return indexermodels.Blob{
		ID:                key(id),
		BlobID:            key(id + 100),
		RegisteredEpoch:   1,
		CertifiedEpoch:    certified,
		EncodingType:      1,
		Size:              "1024",
		StorageID:         key(id + 50),
		StorageStartEpoch: 1,
		StorageEndEpoch:   endEpoch,
		StorageSize:       "2048",
	}
}

func stored(f *fakeStore, id []byte) []any {
	return f.rows[fmt.Sprint(id)]
}

func TestUpsertSQL(t *testing.T) {
	ignore := UpsertSQL(indexermodels.SendersTable, InsertOrIgnore, 2)
	assert.Equal(t, "INSERT INTO senders (sender) VALUES ($1), ($2) ON CONFLICT (sender) DO NOTHING", ignore)

	overwrite := UpsertSQL(indexermodels.BlobsTable, InsertOrOverwrite, 2)
	assert.Contains(t, overwrite, "($12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)")
	assert.Contains(t, overwrite, "ON CONFLICT (id) DO UPDATE SET blob_id = EXCLUDED.blob_id")
	assert.Contains(t, overwrite, "certified_epoch = EXCLUDED.certified_epoch")
	assert.True(t, strings.HasSuffix(overwrite, "storage_size = EXCLUDED.storage_size"))
	assert.NotContains(t, overwrite, "id = EXCLUDED.id,")

	keyOnly := UpsertSQL(indexermodels.BlobIDsTable, InsertOrOverwrite, 1)
	assert.True(t, strings.HasSuffix(keyOnly, "DO NOTHING"), "nothing to overwrite on a key-only table")
}

func TestDedup(t *testing.T) {
	a1, b, a2 := blob(1, 10, nil), blob(2, 10, nil), blob(1, 20, nil)

	last := Dedup([]indexermodels.Blob{a1, b, a2}, InsertOrOverwrite)
	require.Len(t, last, 2)
	assert.Equal(t, int64(20), last[0].StorageEndEpoch)

	first := Dedup([]indexermodels.Blob{a1, b, a2}, InsertOrIgnore)
	require.Len(t, first, 2)
	assert.Equal(t, int64(10), first[0].StorageEndEpoch)
}

func TestCommitEmptyBatch(t *testing.T) {
	f := newFakeStore(indexermodels.SendersTable)
	n, err := Commit[indexermodels.Sender](context.Background(), f, indexermodels.SendersTable, InsertOrIgnore, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, f.stmts)
}

func TestCommitInsertOrIgnoreReplay(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore(indexermodels.SendersTable)
	batch := []indexermodels.Sender{{Sender: key(1)}, {Sender: key(2)}, {Sender: key(1)}}

	n, err := Commit(ctx, f, indexermodels.SendersTable, InsertOrIgnore, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, f.rows, 2)

	n, err = Commit(ctx, f, indexermodels.SendersTable, InsertOrIgnore, batch)
	require.NoError(t, err)
	assert.Zero(t, n, "replay touches nothing")
	assert.Len(t, f.rows, 2)
}

type kvRow struct{ k, v string }

func (r kvRow) Key() string   { return r.k }
func (r kvRow) Values() []any { return []any{r.k, r.v} }

var kvTable = indexermodels.Table{Name: "kv", Columns: []indexermodels.ColumnDef{
	{Name: "k", Type: "TEXT NOT NULL", Key: true},
	{Name: "v", Type: "TEXT NOT NULL"},
}}

func TestInsertOrIgnoreKeepsFirstCommitted(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore(kvTable)

	_, err := Commit(ctx, f, kvTable, InsertOrIgnore, []kvRow{{"a", "first"}, {"a", "second"}})
	require.NoError(t, err)
	assert.Equal(t, "first", f.rows["a"][1])

	_, err = Commit(ctx, f, kvTable, InsertOrIgnore, []kvRow{{"a", "third"}})
	require.NoError(t, err)
	assert.Equal(t, "first", f.rows["a"][1])
}

func TestCommitOverwriteMutatedTwice(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore(indexermodels.BlobsTable)
	certified := int64(7)
	batch := []indexermodels.Blob{blob(1, 10, nil), blob(2, 10, nil), blob(1, 30, &certified)}

	n, err := Commit(ctx, f, indexermodels.BlobsTable, InsertOrOverwrite, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.Len(t, f.rows, 2)

	a := stored(f, key(1))
	assert.Equal(t, int64(30), a[9], "second occurrence wins")
	assert.Equal(t, &certified, a[3])

	before := map[string][]any{}
	for k, v := range f.rows {
		before[k] = v
	}
	_, err = Commit(ctx, f, indexermodels.BlobsTable, InsertOrOverwrite, batch)
	require.NoError(t, err)
	assert.Equal(t, before, f.rows, "replay leaves identical state")
}

func TestOptionalFieldRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore(indexermodels.BlobsTable)

	_, err := Commit(ctx, f, indexermodels.BlobsTable, InsertOrOverwrite, []indexermodels.Blob{blob(1, 10, nil)})
	require.NoError(t, err)
	assert.Nil(t, stored(f, key(1))[3], "absent stays NULL")

	certified := int64(5)
	_, err = Commit(ctx, f, indexermodels.BlobsTable, InsertOrOverwrite, []indexermodels.Blob{blob(1, 10, &certified)})
	require.NoError(t, err)
	assert.Equal(t, &certified, stored(f, key(1))[3])
}

func TestCommitPropagatesStorageFault(t *testing.T) {
	f := newFakeStore(indexermodels.SendersTable)
	f.failOn = 1

	_, err := Commit(context.Background(), f, indexermodels.SendersTable, InsertOrIgnore,
		[]indexermodels.Sender{{Sender: key(1)}})
	require.ErrorIs(t, err, errInjected)
	assert.Contains(t, err.Error(), "commit senders")
	assert.Empty(t, f.rows)
}

func withBindLimit(t *testing.T, n int) {
	t.Helper()
	prev := maxBindParameters
	maxBindParameters = n
	t.Cleanup(func() { maxBindParameters = prev })
}

func TestCommitSplitsLargeBatchInOneTransaction(t *testing.T) {
	withBindLimit(t, 2*len(indexermodels.BlobsTable.Columns))
	f := newFakeStore(indexermodels.BlobsTable)

	var batch []indexermodels.Blob
	for i := byte(1); i <= 5; i++ {
		batch = append(batch, blob(i, 10, nil))
	}
	n, err := Commit(context.Background(), f, indexermodels.BlobsTable, InsertOrOverwrite, batch)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, 1, f.begins)
	assert.Len(t, f.stmts, 3)
	assert.Len(t, f.rows, 5)
}

func TestCommitChunkFailureRollsBack(t *testing.T) {
	withBindLimit(t, 2)
	f := newFakeStore(indexermodels.SendersTable)
	f.failOn = 2

	batch := []indexermodels.Sender{{Sender: key(1)}, {Sender: key(2)}, {Sender: key(3)}}
	_, err := Commit(context.Background(), f, indexermodels.SendersTable, InsertOrIgnore, batch)
	require.ErrorIs(t, err, errInjected)
	assert.Empty(t, f.rows, "first chunk is not visible")
}

func TestPolicyString(t *testing.T) {
	assert.Equal(t, "insert_or_ignore", InsertOrIgnore.String())
	assert.Equal(t, "insert_or_overwrite", InsertOrOverwrite.String())
}
