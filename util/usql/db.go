// Package usql wraps database/sql so that every statement the block store runs
// is timed under the gocore "SQL" stat, keyed by its query text.
package usql

import (
	"context"
	"database/sql"

	"github.com/ordishs/gocore"
)

var stat = gocore.NewStat("SQL")

func timed(query string) func() {
	start := gocore.CurrentTime()

	return func() {
		stat.NewStat(query).AddTime(start)
	}
}

type DB struct {
	*sql.DB
}

func Open(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer timed(query)()
	return db.DB.QueryContext(ctx, query, args...)
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer timed(query)()
	return db.DB.QueryRowContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer timed(query)()
	return db.DB.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction whose statements are timed like those of db.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := db.DB.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &Tx{tx}, nil
}

type Tx struct {
	*sql.Tx
}

func (tx *Tx) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer timed(query)()
	return tx.Tx.QueryRowContext(ctx, query, args...)
}

func (tx *Tx) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer timed(query)()
	return tx.Tx.QueryContext(ctx, query, args...)
}

func (tx *Tx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer timed(query)()
	return tx.Tx.ExecContext(ctx, query, args...)
}
