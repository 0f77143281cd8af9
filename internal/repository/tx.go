package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TxManager owns transaction boundaries for multi-statement workflow writes.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs the manager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back on error or panic.
func (m *TxManager) RunInTx(ctx context.Context, fn func(tx sqlx.ExtContext) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("rollback transaction: %v (original error: %w)", rbErr, err)
			}
		} else if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
		}
	}()

	err = fn(tx)
	return err
}

// WithSavepoint isolates one row's statements inside a running transaction so a
// failed statement does not poison the rest of the batch. The row error is
// returned separately from errors that leave the transaction unusable.
func WithSavepoint(ctx context.Context, tx sqlx.ExecerContext, name string, fn func() error) (rowErr error, err error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("create savepoint: %w", err)
	}
	if rowErr = fn(); rowErr != nil {
		if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return rowErr, fmt.Errorf("rollback to savepoint: %w", err)
		}
		return rowErr, nil
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("release savepoint: %w", err)
	}
	return nil, nil
}
