package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultBatchSize = 50000

// Copier is the COPY-protocol subset shared by pools and open transactions.
type Copier interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyFrom bulk-inserts rows into a table using the COPY protocol, batching
// in chunks of batchSize rows (0 = default 50,000). An empty schema targets
// an unqualified table, e.g. a temp table.
func CopyFrom(ctx context.Context, conn Copier, schema, table string, columns []string, rows [][]any, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	ident := pgx.Identifier{schema, table}
	if schema == "" {
		ident = pgx.Identifier{table}
	}

	log := zap.L().With(
		zap.String("component", "db.copy"),
		zap.String("table", strings.Join(ident, ".")),
		zap.Int("total_rows", len(rows)),
	)

	var total int64
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		n, err := conn.CopyFrom(
			ctx,
			ident,
			columns,
			pgx.CopyFromRows(rows[i:end]),
		)
		if err != nil {
			return total, eris.Wrapf(err, "db: COPY into %s (batch %d-%d)", strings.Join(ident, "."), i, end)
		}
		total += n

		log.Debug("batch loaded",
			zap.Int("batch_start", i),
			zap.Int("batch_end", end),
			zap.Int64("batch_rows", n),
		)
	}

	return total, nil
}

// TruncateTable truncates a table before reloading.
func TruncateTable(ctx context.Context, pool Pool, schema, table string) error {
	sql := "TRUNCATE " + pgx.Identifier{schema, table}.Sanitize()
	if _, err := pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "db: truncate %s.%s", schema, table)
	}
	return nil
}
