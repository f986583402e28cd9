package payment

import (
	"context"
	"database/sql"
	"math"
	"time"

	"github.com/filecoin-project/go-clock"
	"go.uber.org/zap"

	"github.com/teranos/exchainge/db"
	"github.com/teranos/exchainge/errors"
	"github.com/teranos/exchainge/types"
)

// SQLWallet keeps balances in the wallet_balances table and journals every
// movement in wallet_transfers. It must not share a database file with the
// ledger: transfers run while a ledger transaction holds its write lock.
type SQLWallet struct {
	db     *sql.DB
	owned  bool
	clock  clock.Clock
	logger *zap.SugaredLogger
}

var _ Wallet = (*SQLWallet)(nil)

// NewSQLWallet wraps an already migrated database.
func NewSQLWallet(conn *sql.DB, clk clock.Clock, logger *zap.SugaredLogger) *SQLWallet {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &SQLWallet{db: conn, clock: clk, logger: logger}
}

// OpenSQLWallet opens (creating and migrating if needed) the wallet database at path.
func OpenSQLWallet(path string, clk clock.Clock, logger *zap.SugaredLogger) (*SQLWallet, error) {
	conn, err := db.OpenWithMigrations(path, logger)
	if err != nil {
		return nil, err
	}
	w := NewSQLWallet(conn, clk, logger)
	w.owned = true
	return w, nil
}

func (w *SQLWallet) Close() error {
	if !w.owned {
		return nil
	}
	return w.db.Close()
}

// SQLite integers are signed 64-bit.
func representable(amt uint64) error {
	if amt > math.MaxInt64 {
		return errors.Wrapf(ErrInvalidAmount, "%d exceeds the wallet's 63-bit range", amt)
	}
	return nil
}

func balanceTx(ctx context.Context, tx *sql.Tx, id types.Identity) (uint64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx, `SELECT balance FROM wallet_balances WHERE identity = ?`, string(id)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read balance of %s", id.Short())
	}
	return uint64(balance), nil
}

func credit(ctx context.Context, tx *sql.Tx, id types.Identity, amt uint64, at string) error {
	have, err := balanceTx(ctx, tx, id)
	if err != nil {
		return err
	}
	if have > math.MaxInt64-amt {
		return errors.Wrapf(ErrBalanceOverflow, "crediting %s", id.Short())
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_balances (identity, balance, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET balance = balance + excluded.balance, updated_at = excluded.updated_at`,
		string(id), int64(amt), at)
	return errors.Wrapf(err, "credit %s", id.Short())
}

func (w *SQLWallet) Transfer(ctx context.Context, from, to types.Identity, amt uint64) error {
	if err := representable(amt); err != nil {
		return err
	}
	at := w.clock.Now().UTC().Format(time.RFC3339Nano)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin wallet transaction")
	}
	defer tx.Rollback()

	have, err := balanceTx(ctx, tx, from)
	if err != nil {
		return err
	}
	if have < amt {
		return errors.Wrapf(ErrInsufficientFunds, "%s holds %d, needs %d", from.Short(), have, amt)
	}

	if from != to && amt > 0 {
		if _, err := tx.ExecContext(ctx,
			`UPDATE wallet_balances SET balance = balance - ?, updated_at = ? WHERE identity = ?`,
			int64(amt), at, string(from)); err != nil {
			return errors.Wrapf(err, "debit %s", from.Short())
		}
		if err := credit(ctx, tx, to, amt, at); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transfers (from_id, to_id, amount, occurred_at) VALUES (?, ?, ?, ?)`,
		string(from), string(to), int64(amt), at); err != nil {
		return errors.Wrap(err, "journal transfer")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit wallet transaction")
	}
	w.logger.Debugw("Wallet transfer", "from", from, "to", to, "amount", amt)
	return nil
}

func (w *SQLWallet) Deposit(ctx context.Context, to types.Identity, amt uint64) error {
	if err := representable(amt); err != nil {
		return err
	}
	at := w.clock.Now().UTC().Format(time.RFC3339Nano)

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin wallet transaction")
	}
	defer tx.Rollback()

	if err := credit(ctx, tx, to, amt, at); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO wallet_transfers (from_id, to_id, amount, occurred_at) VALUES ('', ?, ?, ?)`,
		string(to), int64(amt), at); err != nil {
		return errors.Wrap(err, "journal deposit")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit wallet transaction")
	}
	w.logger.Infow("Wallet deposit", "to", to, "amount", amt)
	return nil
}

func (w *SQLWallet) Balance(ctx context.Context, id types.Identity) (uint64, error) {
	var balance int64
	err := w.db.QueryRowContext(ctx, `SELECT balance FROM wallet_balances WHERE identity = ?`, string(id)).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrapf(err, "read balance of %s", id.Short())
	}
	return uint64(balance), nil
}

// TransferCount returns the number of journaled movements.
func (w *SQLWallet) TransferCount(ctx context.Context) (int, error) {
	var n int
	err := w.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallet_transfers`).Scan(&n)
	return n, errors.Wrap(err, "count wallet transfers")
}
