package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrStoreConnection marks failures to establish or maintain the
// database session. Unlike statement-level errors these are fatal for
// the whole ingestion run.
var ErrStoreConnection = errors.New("store connection failure")

// Gateway wraps a single shared database handle and executes write
// statements under a savepoint-per-statement protocol: a failing
// statement is rolled back to its own savepoint and the enclosing
// transaction stays usable. The pipeline issues many independent
// inserts in a loop; without this isolation one constraint violation
// left over from a prior partial run would abort the remaining batch.
type Gateway struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// OpenGateway connects to the store and validates connectivity
func OpenGateway(driver, dsn string, log *slog.Logger) (*Gateway, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	db, err := sql.Open(dialect.Driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", ErrStoreConnection, err)
	}
	// The whole run shares one session; savepoints live inside a single
	// transaction, so a second connection would never see them
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrStoreConnection, err)
	}

	log.Info("connected to database", "driver", dialect.Driver())
	return &Gateway{db: db, dialect: dialect, log: log}, nil
}

// Dialect returns the SQL dialect of the connected backend
func (g *Gateway) Dialect() Dialect {
	return g.dialect
}

// Close closes the database handle
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Query runs a read statement directly on the shared handle
func (g *Gateway) Query(query string, args ...any) (*sql.Rows, error) {
	rows, err := g.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Begin starts a batch: one transaction carrying the savepoint protocol
func (g *Gateway) Begin() (*Batch, error) {
	tx, err := g.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: begin: %v", ErrStoreConnection, err)
	}
	return &Batch{tx: tx, log: g.log}, nil
}

// Batch is a unit of work whose statements are individually isolated.
// Exec never surfaces statement-level errors; they are rolled back to
// the statement's savepoint, logged and swallowed.
type Batch struct {
	tx  *sql.Tx
	seq int
	log *slog.Logger
	// Contained counts statements that failed and were rolled back
	Contained int
}

// Exec runs one statement under its own savepoint. It returns the
// number of affected rows; zero with a nil error means the statement
// either matched nothing or failed and was contained. A non-nil error
// means the session itself is broken.
func (b *Batch) Exec(query string, args ...any) (int64, error) {
	b.seq++
	sp := fmt.Sprintf("sp%d", b.seq)

	if _, err := b.tx.Exec("SAVEPOINT " + sp); err != nil {
		return 0, fmt.Errorf("%w: savepoint: %v", ErrStoreConnection, err)
	}

	res, err := b.tx.Exec(query, args...)
	if err != nil {
		b.Contained++
		b.log.Warn("statement failed, rolled back to savepoint", "error", err)
		if _, rbErr := b.tx.Exec("ROLLBACK TO SAVEPOINT " + sp); rbErr != nil {
			return 0, fmt.Errorf("%w: rollback to savepoint: %v", ErrStoreConnection, rbErr)
		}
		return 0, nil
	}

	if _, err := b.tx.Exec("RELEASE SAVEPOINT " + sp); err != nil {
		return 0, fmt.Errorf("%w: release savepoint: %v", ErrStoreConnection, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		// Both supported drivers report affected rows; treat a failure
		// here as a successful write of unknown size
		return 1, nil
	}
	return affected, nil
}

// Commit finishes the batch
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStoreConnection, err)
	}
	return nil
}

// Rollback abandons the whole batch
func (b *Batch) Rollback() error {
	if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}
