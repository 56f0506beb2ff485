package postgres

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	indexermodels "github.com/Project-Magma-Monorepo/sui-sender-indexer/pkg/db/models/indexer"
)

// Policy selects how a commit treats rows whose key already exists.
type Policy int

const (
	// InsertOrIgnore leaves existing rows untouched (ON CONFLICT DO NOTHING).
	InsertOrIgnore Policy = iota
	// InsertOrOverwrite replaces every non-key column (ON CONFLICT DO UPDATE).
	InsertOrOverwrite
)

func (p Policy) String() string {
	switch p {
	case InsertOrIgnore:
		return "insert_or_ignore"
	case InsertOrOverwrite:
		return "insert_or_overwrite"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// maxBindParameters is the PostgreSQL wire protocol limit per statement.
var maxBindParameters = 65535

// UpsertSQL builds a multi-row INSERT for n rows of table under policy.
func UpsertSQL(table indexermodels.Table, policy Policy, n int) string {
	cols := indexermodels.ColumnsToNameList(table.Columns)

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table.Name)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	param := 1
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := range cols {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(param))
			param++
		}
		b.WriteByte(')')
	}

	b.WriteString(" ON CONFLICT (")
	b.WriteString(table.KeyColumn().Name)
	b.WriteString(")")

	nonKey := table.NonKeyColumns()
	if policy != InsertOrOverwrite || len(nonKey) == 0 {
		b.WriteString(" DO NOTHING")
		return b.String()
	}
	b.WriteString(" DO UPDATE SET ")
	for i, c := range nonKey {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteString(" = EXCLUDED.")
		b.WriteString(c.Name)
	}
	return b.String()
}

// Dedup collapses rows sharing a key. Overwrite keeps the last occurrence, ignore keeps the
// first. The result is sorted by key.
func Dedup[R indexermodels.Row](rows []R, policy Policy) []R {
	index := make(map[string]int, len(rows))
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		k := r.Key()
		if i, ok := index[k]; ok {
			if policy == InsertOrOverwrite {
				out[i] = r
			}
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	// Sorted keys give concurrent commits on one table the same lock order.
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Commit applies rows to table with the given policy and returns the rows affected.
// Rows are deduplicated first. A batch that fits one statement runs as that statement; a
// larger batch is split into chunks inside a single transaction, so a failure leaves the
// table unchanged either way.
func Commit[R indexermodels.Row](ctx context.Context, exec Executor, table indexermodels.Table, policy Policy, rows []R) (int64, error) {
	rows = Dedup(rows, policy)
	if len(rows) == 0 {
		return 0, nil
	}

	perStatement := maxBindParameters / len(table.Columns)
	if len(rows) <= perStatement {
		n, err := execChunk(ctx, exec, table, policy, rows)
		if err != nil {
			return 0, fmt.Errorf("commit %s: %w", table.Name, err)
		}
		return n, nil
	}

	var total int64
	err := pgx.BeginFunc(ctx, exec, func(tx pgx.Tx) error {
		total = 0
		for start := 0; start < len(rows); start += perStatement {
			end := min(start+perStatement, len(rows))
			n, err := execChunk(ctx, tx, table, policy, rows[start:end])
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("commit %s: %w", table.Name, err)
	}
	return total, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func execChunk[R indexermodels.Row](ctx context.Context, exec execer, table indexermodels.Table, policy Policy, rows []R) (int64, error) {
	args := make([]any, 0, len(rows)*len(table.Columns))
	for _, r := range rows {
		values := r.Values()
		if len(values) != len(table.Columns) {
			return 0, fmt.Errorf("row %x has %d values, table %s has %d columns",
				r.Key(), len(values), table.Name, len(table.Columns))
		}
		args = append(args, values...)
	}
	tag, err := exec.Exec(ctx, UpsertSQL(table, policy, len(rows)), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
