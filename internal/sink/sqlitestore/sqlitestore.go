// Package sqlitestore implements a reference TransactionPointRepository
// backed by SQLite via jmoiron/sqlx, using a singleton sqlx.Open
// connection. It registers no query-hook instrumentation and runs no
// migration chain: this is a single-table demo store whose table is
// created on Open if it does not exist yet (an existing file and its
// rows are reused), not a long-lived application database that accrues
// migrations over time.
package sqlitestore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Radioafricagroup/glowroot/internal/aggregator"
	"github.com/Radioafricagroup/glowroot/pkg/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS transaction_points (
	capture_time     INTEGER NOT NULL,
	transaction_type TEXT    NOT NULL,
	transaction_name TEXT    NOT NULL,
	total_nanos      INTEGER NOT NULL,
	count            INTEGER NOT NULL,
	min_nanos        INTEGER NOT NULL,
	max_nanos        INTEGER NOT NULL,
	error_count      INTEGER NOT NULL,
	stored_count     INTEGER NOT NULL,
	metrics_json     TEXT,
	PRIMARY KEY (capture_time, transaction_type, transaction_name)
);
`

// Store is a TransactionPointRepository persisting every overall and
// per-transaction point into a single SQLite table. Sqlite does not
// multithread well, so writes are serialized through mu on top of the
// driver's own single open connection.
type Store struct {
	db *sqlx.DB
	mu sync.Mutex
}

// Open creates (or reuses) the SQLite database file at path and ensures
// the schema exists.
func Open(path string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", path))
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: open %q: %w", path, err)
	}
	// sqlite does not multithread; more than one connection just means
	// waiting on the database's own lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitestore: create schema: %w", err)
	}

	log.Infof("sqlitestore: opened %q", path)
	return &Store{db: db}, nil
}

var _ aggregator.TransactionPointRepository = (*Store)(nil)

type row struct {
	CaptureTime     int64  `db:"capture_time"`
	TransactionType string `db:"transaction_type"`
	TransactionName string `db:"transaction_name"`
	TotalNanos      int64  `db:"total_nanos"`
	Count           int64  `db:"count"`
	MinNanos        int64  `db:"min_nanos"`
	MaxNanos        int64  `db:"max_nanos"`
	ErrorCount      int64  `db:"error_count"`
	StoredCount     int64  `db:"stored_count"`
	MetricsJSON     []byte `db:"metrics_json"`
}

func toRow(p *aggregator.TransactionPoint) (row, error) {
	var metricsJSON []byte
	if p.Metrics != nil {
		b, err := json.Marshal(p.Metrics)
		if err != nil {
			return row{}, err
		}
		metricsJSON = b
	}
	return row{
		CaptureTime:     p.CaptureTime,
		TransactionType: p.TransactionType,
		TransactionName: p.TransactionName,
		TotalNanos:      p.TotalNanos,
		Count:           p.Count,
		MinNanos:        p.MinNanos,
		MaxNanos:        p.MaxNanos,
		ErrorCount:      p.ErrorCount,
		StoredCount:     p.StoredCount,
		MetricsJSON:     metricsJSON,
	}, nil
}

const insertStmt = `
INSERT OR REPLACE INTO transaction_points
	(capture_time, transaction_type, transaction_name, total_nanos, count, min_nanos, max_nanos, error_count, stored_count, metrics_json)
VALUES
	(:capture_time, :transaction_type, :transaction_name, :total_nanos, :count, :min_nanos, :max_nanos, :error_count, :stored_count, :metrics_json)
`

// Store implements aggregator.TransactionPointRepository, writing the
// overall point and every per-transaction point inside one transaction.
func (s *Store) Store(transactionType string, overall *aggregator.TransactionPoint, perTransaction map[string]*aggregator.TransactionPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("sqlitestore: begin: %w", err)
	}
	defer tx.Rollback()

	rows := make([]row, 0, 1+len(perTransaction))
	r, err := toRow(overall)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode overall point: %w", err)
	}
	rows = append(rows, r)
	for _, p := range perTransaction {
		r, err := toRow(p)
		if err != nil {
			return fmt.Errorf("sqlitestore: encode %q: %w", p.TransactionName, err)
		}
		rows = append(rows, r)
	}

	for _, r := range rows {
		if _, err := tx.NamedExec(insertStmt, r); err != nil {
			return fmt.Errorf("sqlitestore: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlitestore: commit: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
