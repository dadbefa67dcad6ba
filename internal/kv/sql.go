package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dialect selects placeholder syntax for the SQL backends.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

func (d Dialect) String() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// SQLStore keeps all namespaces in a single kv(ns, key, value) table. The
// table is created by the migrate package.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Close() error { return s.db.Close() }

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error) {
	return sqlGet(ctx, s.db, s.dialect, ns, key)
}

func (s *SQLStore) Has(ctx context.Context, ns Namespace, key uint64) (bool, error) {
	return sqlHas(ctx, s.db, s.dialect, ns, key)
}

func (s *SQLStore) Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT key, value FROM kv WHERE ns=? ORDER BY key`), int(ns))
	if err != nil {
		return fmt.Errorf("scan %s: %w", ns, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			k int64
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			return fmt.Errorf("scan %s: %w", ns, err)
		}
		if err := fn(uint64(k), v); err != nil {
			return err
		}
	}
	return rows.Err()
}

// writerLockID is the Postgres advisory lock held by every update. SQLite
// gets the same effect from BEGIN IMMEDIATE (see db.Open).
const writerLockID int64 = 0x61697273747270 // "airstrp"

func (s *SQLStore) Update(ctx context.Context, fn func(Txn) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()
	if s.dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, writerLockID); err != nil {
			return fmt.Errorf("lock writers: %w", err)
		}
	}
	if err := fn(&sqlTxn{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) rebind(q string) string { return rebind(s.dialect, q) }

type sqlTxn struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTxn) Get(ctx context.Context, ns Namespace, key uint64) ([]byte, error) {
	return sqlGet(ctx, t.tx, t.dialect, ns, key)
}

func (t *sqlTxn) Has(ctx context.Context, ns Namespace, key uint64) (bool, error) {
	return sqlHas(ctx, t.tx, t.dialect, ns, key)
}

// Scan buffers the rows first: a transaction owns a single connection and
// fn may issue further queries on it.
func (t *sqlTxn) Scan(ctx context.Context, ns Namespace, fn func(key uint64, val []byte) error) error {
	rows, err := t.tx.QueryContext(ctx, rebind(t.dialect, `SELECT key, value FROM kv WHERE ns=? ORDER BY key`), int(ns))
	if err != nil {
		return fmt.Errorf("scan %s: %w", ns, err)
	}
	type entry struct {
		key uint64
		val []byte
	}
	var entries []entry
	for rows.Next() {
		var (
			k int64
			v []byte
		)
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return fmt.Errorf("scan %s: %w", ns, err)
		}
		entries = append(entries, entry{key: uint64(k), val: v})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()
	for _, e := range entries {
		if err := fn(e.key, e.val); err != nil {
			return err
		}
	}
	return nil
}

func (t *sqlTxn) Put(ctx context.Context, ns Namespace, key uint64, val []byte) error {
	k, err := sqlKey(key)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, rebind(t.dialect, `INSERT INTO kv(ns,key,value) VALUES (?,?,?)
ON CONFLICT(ns,key) DO UPDATE SET value=excluded.value`), int(ns), k, val)
	if err != nil {
		return fmt.Errorf("put %s/%d: %w", ns, key, err)
	}
	return nil
}

func sqlGet(ctx context.Context, q queryer, d Dialect, ns Namespace, key uint64) ([]byte, error) {
	k, err := sqlKey(key)
	if err != nil {
		return nil, ErrNotFound
	}
	var v []byte
	err = q.QueryRowContext(ctx, rebind(d, `SELECT value FROM kv WHERE ns=? AND key=?`), int(ns), k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%d: %w", ns, key, err)
	}
	return v, nil
}

func sqlHas(ctx context.Context, q queryer, d Dialect, ns Namespace, key uint64) (bool, error) {
	k, err := sqlKey(key)
	if err != nil {
		return false, nil
	}
	var one int
	err = q.QueryRowContext(ctx, rebind(d, `SELECT 1 FROM kv WHERE ns=? AND key=?`), int(ns), k).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has %s/%d: %w", ns, key, err)
	}
	return true, nil
}

// sqlKey maps a key onto the signed BIGINT column. Keys above MaxInt64 are
// not representable there.
func sqlKey(key uint64) (int64, error) {
	if key > math.MaxInt64 {
		return 0, fmt.Errorf("key %d out of range for sql backend", key)
	}
	return int64(key), nil
}

func rebind(d Dialect, q string) string {
	if d != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
