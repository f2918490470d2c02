package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore runs the table contract directly against the Postgres database behind the store.
type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	query := "SELECT * FROM " + pgx.Identifier{table}.Sanitize()
	if opts.OrderBy != "" {
		query += " ORDER BY " + pgx.Identifier{opts.OrderBy}.Sanitize()
		if opts.Desc {
			query += " DESC"
		}
	}

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, s.mapError("list", table, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, s.mapError("list", table, err)
	}

	out := make([]Record, 0, len(maps))
	for _, m := range maps {
		out = append(out, Record(m))
	}
	return out, nil
}

func (s *PgStore) Create(ctx context.Context, table string, rec Record) (Record, error) {
	cols, args := columns(rec)
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		pgx.Identifier{table}.Sanitize(), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING *", pgx.Identifier{table}.Sanitize())
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.mapError("create", table, err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, s.mapError("create", table, err)
	}
	return Record(row), nil
}

func (s *PgStore) Update(ctx context.Context, table string, id int64, patch Record) error {
	cols, args := columns(patch)
	if len(cols) == 0 {
		return nil
	}

	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", c, i+2)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1",
		pgx.Identifier{table}.Sanitize(), strings.Join(sets, ", "))

	cmd, err := s.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return s.mapError("update", table, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, table string, id int64) error {
	cmd, err := s.pool.Exec(ctx, "DELETE FROM "+pgx.Identifier{table}.Sanitize()+" WHERE id = $1", id)
	if err != nil {
		return s.mapError("delete", table, err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// columns returns sanitized column names in a stable order and the matching values.
func columns(rec Record) ([]string, []any) {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		cols[i] = pgx.Identifier{k}.Sanitize()
		args[i] = normalize(k, rec[k])
	}
	return cols, args
}

// normalize turns JSON-shaped values into types pgx can encode for the column.
func normalize(key string, v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if strings.HasSuffix(key, "_at") {
			if ts, err := time.Parse(time.RFC3339Nano, val); err == nil {
				return ts
			}
		}
	}
	return v
}

func (s *PgStore) mapError(op, table string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s %s: %s (%s)", ErrStore, op, table, pgErr.Message, pgErr.Code)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s: no row returned", ErrStore, op, table)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrTransport, op, table, err)
}
