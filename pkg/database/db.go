// Package database wraps sqlx with context-carried transactions and
// migration support
package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

// DB is the query surface repositories depend on. Read and write calls
// taking a context automatically join an open transaction carried on it.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)

	PingContext(ctx context.Context) error
	Close() error
	SetMaxOpenConns(n int)
	SetMaxIdleConns(n int)
	SetConnMaxLifetime(d time.Duration)

	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DatabaseInstance struct {
	db     *sqlx.DB
	logger ectologger.Logger
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		db:     db,
		logger: logger,
	}
}

func (d *DatabaseInstance) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := openTxFromContext(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return d.db.ExecContext(ctx, query, args...)
}

func (d *DatabaseInstance) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if tx := openTxFromContext(ctx); tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return d.db.GetContext(ctx, dest, query, args...)
}

func (d *DatabaseInstance) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if tx := openTxFromContext(ctx); tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return d.db.SelectContext(ctx, dest, query, args...)
}

func (d *DatabaseInstance) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	if tx := openTxFromContext(ctx); tx != nil {
		return tx.NamedExecContext(ctx, query, arg)
	}
	return d.db.NamedExecContext(ctx, query, arg)
}

func (d *DatabaseInstance) QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error) {
	if tx := openTxFromContext(ctx); tx != nil {
		return tx.QueryxContext(ctx, query, args...)
	}
	return d.db.QueryxContext(ctx, query, args...)
}

func (d *DatabaseInstance) PingContext(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseInstance) Close() error {
	return d.db.Close()
}

func (d *DatabaseInstance) SetMaxOpenConns(n int) {
	d.db.SetMaxOpenConns(n)
}

func (d *DatabaseInstance) SetMaxIdleConns(n int) {
	d.db.SetMaxIdleConns(n)
}

func (d *DatabaseInstance) SetConnMaxLifetime(lifetime time.Duration) {
	d.db.SetConnMaxLifetime(lifetime)
}

func (d *DatabaseInstance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return getTx(ctx, d.logger, d.db, opts)
}

// InTx runs fn inside a transaction carried on the context. When the
// context already carries an open transaction, fn joins it and the outer
// owner commits.
func (d *DatabaseInstance) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := openTxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	ctxTx, tx, err := d.GetTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(ctxTx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			d.logger.WithContext(ctx).WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}
	return tx.Commit(ctx)
}
