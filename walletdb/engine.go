package walletdb

import (
	"database/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"path"
	"sync"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrIntegrityViolation = errors.New("lifecycle store integrity violation")
	ErrTxoUnavailable     = errors.New("txo is not available to spend")
)

type Engine struct {
	db  *sql.DB
	mtx sync.Mutex
}

type Scanner interface {
	Scan(dest ...interface{}) error
}

type Querier interface {
	Query(q string, args ...interface{}) (*sql.Rows, error)
	QueryRow(q string, args ...interface{}) *sql.Row
	Exec(q string, args ...interface{}) (sql.Result, error)
}

type Transactor interface {
	Querier
}

func NewEngine(dbPath string) (*Engine, error) {
	db, err := sql.Open("sqlite3", "file:"+path.Join(dbPath, "wallet.db")+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "error opening DB")
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	return &Engine{
		db: db,
	}, nil
}

func (e *Engine) Close() error {
	return errors.WithStack(e.db.Close())
}

// Transaction runs cb inside a database transaction. Transactions are
// serialized; cb's error rolls everything back.
func (e *Engine) Transaction(cb func(tx Transactor) error) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	tx, err := e.db.Begin()
	if err != nil {
		return errors.Wrap(err, "error beginning transaction")
	}

	childTx := &transactor{tx: tx}
	if err := cb(childTx); err != nil {
		cbErr := err
		if err := tx.Rollback(); err != nil {
			panic("error rolling back transaction!")
		}
		return cbErr
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "error committing transaction")
	}

	return nil
}

type transactor struct {
	tx *sql.Tx
}

func (t transactor) Query(q string, args ...interface{}) (*sql.Rows, error) {
	return t.tx.Query(q, args...)
}

func (t transactor) QueryRow(q string, args ...interface{}) *sql.Row {
	return t.tx.QueryRow(q, args...)
}

func (t transactor) Exec(q string, args ...interface{}) (sql.Result, error) {
	return t.tx.Exec(q, args...)
}
