package ledger

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/exchainge/db"
	"github.com/teranos/exchainge/errors"
)

var errReadOnly = errors.New("write attempted in a read-only view")

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is a Store over the ledger_records table. Update runs in a
// database transaction; with the DSN from db.DSN that transaction begins
// IMMEDIATE, so concurrent writers serialize at BEGIN.
type SQLStore struct {
	db     *sql.DB
	owned  bool
	opts   options
	logger *zap.SugaredLogger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps an already migrated database. Close does not close conn.
func NewSQLStore(conn *sql.DB, opts ...Option) *SQLStore {
	o := buildOptions(opts)
	return &SQLStore{db: conn, opts: o, logger: o.logger}
}

// OpenSQLite opens (creating and migrating if needed) the ledger database at path.
func OpenSQLite(path string, opts ...Option) (*SQLStore, error) {
	o := buildOptions(opts)
	conn, err := db.OpenWithMigrations(path, o.logger)
	if err != nil {
		return nil, err
	}
	return &SQLStore{db: conn, owned: true, opts: o, logger: o.logger}, nil
}

// DB returns the underlying connection pool.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) View(ctx context.Context, fn func(Reader) error) error {
	return fn(&txn{b: &sqlBackend{ctx: ctx, q: s.db, readOnly: true}, now: s.opts.now})
}

func (s *SQLStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return ErrStoreClosed
		}
		return errors.Wrap(err, "begin ledger transaction")
	}
	defer tx.Rollback()

	if err := fn(&txn{b: &sqlBackend{ctx: ctx, q: tx}, now: s.opts.now}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Errorw("Ledger commit failed", "error", err)
		return errors.Wrap(err, "commit ledger transaction")
	}
	return nil
}

func (s *SQLStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

type sqlBackend struct {
	ctx      context.Context
	q        queryer
	readOnly bool
}

const timeLayout = time.RFC3339Nano

func (b *sqlBackend) get(kind Kind, handle string) (row, error) {
	r := row{Kind: kind, Handle: handle}
	var body, created, updated string
	err := b.q.QueryRowContext(b.ctx,
		`SELECT owner, parent, body, created_at, updated_at FROM ledger_records WHERE kind = ? AND handle = ?`,
		string(kind), handle,
	).Scan(&r.Owner, &r.Parent, &body, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return r, errRowMissing
	}
	if err != nil {
		return r, errors.Wrap(err, "select ledger record")
	}
	r.Body = []byte(body)
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	r.UpdatedAt, _ = time.Parse(timeLayout, updated)
	return r, nil
}

func (b *sqlBackend) insert(r row) error {
	if b.readOnly {
		return errReadOnly
	}
	_, err := b.q.ExecContext(b.ctx,
		`INSERT INTO ledger_records (kind, handle, owner, parent, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(r.Kind), r.Handle, r.Owner, r.Parent, string(r.Body),
		r.CreatedAt.Format(timeLayout), r.UpdatedAt.Format(timeLayout),
	)
	if db.IsUniqueViolation(err) {
		return errRowExists
	}
	return errors.Wrap(err, "insert ledger record")
}

func (b *sqlBackend) update(r row) error {
	if b.readOnly {
		return errReadOnly
	}
	res, err := b.q.ExecContext(b.ctx,
		`UPDATE ledger_records SET owner = ?, parent = ?, body = ?, updated_at = ? WHERE kind = ? AND handle = ?`,
		r.Owner, r.Parent, string(r.Body), r.UpdatedAt.Format(timeLayout), string(r.Kind), r.Handle,
	)
	if err != nil {
		return errors.Wrap(err, "update ledger record")
	}
	return checkAffected(res)
}

func (b *sqlBackend) remove(kind Kind, handle string) error {
	if b.readOnly {
		return errReadOnly
	}
	res, err := b.q.ExecContext(b.ctx,
		`DELETE FROM ledger_records WHERE kind = ? AND handle = ?`, string(kind), handle)
	if err != nil {
		return errors.Wrap(err, "delete ledger record")
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errRowMissing
	}
	return nil
}

func (b *sqlBackend) list(kind Kind, by index, value string) ([]row, error) {
	query := `SELECT handle, owner, parent, body, created_at, updated_at FROM ledger_records WHERE kind = ? AND owner = ? ORDER BY rowid`
	if by == byParent {
		query = `SELECT handle, owner, parent, body, created_at, updated_at FROM ledger_records WHERE kind = ? AND parent = ? ORDER BY rowid`
	}

	rows, err := b.q.QueryContext(b.ctx, query, string(kind), value)
	if err != nil {
		return nil, errors.Wrap(err, "query ledger records")
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		r := row{Kind: kind}
		var body, created, updated string
		if err := rows.Scan(&r.Handle, &r.Owner, &r.Parent, &body, &created, &updated); err != nil {
			return nil, errors.Wrap(err, "scan ledger record")
		}
		r.Body = []byte(body)
		r.CreatedAt, _ = time.Parse(timeLayout, created)
		r.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate ledger records")
}
