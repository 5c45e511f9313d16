// Package trace implements an optional, write-only SQLite run recorder for
// ambient observability: every completed Transaction and every Message
// DONE-transition can be appended to a database for post-run inspection,
// but nothing here is ever loaded back in to resume a simulation.
package trace

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hodger/cyclus/internal/messaging"
	"github.com/hodger/cyclus/internal/transaction"
)

// Recorder appends one row per completed Transaction and one row per
// Message DONE-transition to a SQLite database, for post-run inspection. It
// implements messaging.Sink, so installing it via messaging.SetSink is
// enough to trace every message that completes its round trip.
type Recorder struct {
	conn  *sqlx.DB
	month int
}

// Open creates or opens a trace database at path and migrates its schema.
func Open(path string) (*Recorder, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("trace: open db: %w", err)
	}

	rec := &Recorder{conn: conn}
	if err := rec.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("trace: migrate: %w", err)
	}
	return rec, nil
}

// Close closes the underlying database connection.
func (r *Recorder) Close() error {
	return r.conn.Close()
}

// SetMonth records which simulation month subsequent OnDone calls belong
// to. internal/timekeeper calls this once per tick before running it.
func (r *Recorder) SetMonth(month int) { r.month = month }

// OnDone implements messaging.Sink: every message that completes its round
// trip is recorded as both a settled transaction row and a done-transition
// row, stamped with the month SetMonth last recorded.
func (r *Recorder) OnDone(m *messaging.Message) {
	if err := r.RecordTransaction(r.month, m.Transaction); err != nil {
		slog.Error("trace: recording transaction failed", "error", err)
	}
	if err := r.RecordDone(r.month, m); err != nil {
		slog.Error("trace: recording done-transition failed", "error", err)
	}
}

func (r *Recorder) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month INTEGER NOT NULL,
		trace_id TEXT NOT NULL,
		commodity TEXT NOT NULL,
		amount REAL NOT NULL,
		unit_price REAL NOT NULL,
		supplier_id INTEGER,
		supplier_name TEXT,
		requester_id INTEGER,
		requester_name TEXT
	);

	CREATE TABLE IF NOT EXISTS message_done (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month INTEGER NOT NULL,
		trace_id TEXT NOT NULL,
		originator_id INTEGER,
		originator_name TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_month ON transactions(month);
	CREATE INDEX IF NOT EXISTS idx_message_done_month ON message_done(month);
	`
	_, err := r.conn.Exec(schema)
	return err
}

// RecordTransaction appends a completed Transaction's terms to the trace.
// Supplier/Requester may be nil if the transaction never cleared (an
// Unfilled notice), in which case the corresponding columns are left null.
func (r *Recorder) RecordTransaction(month int, tx transaction.Transaction) error {
	var supplierID, requesterID *int
	var supplierName, requesterName *string
	if tx.Supplier != nil {
		id, name := tx.Supplier.ID(), tx.Supplier.Name()
		supplierID, supplierName = &id, &name
	}
	if tx.Requester != nil {
		id, name := tx.Requester.ID(), tx.Requester.Name()
		requesterID, requesterName = &id, &name
	}

	_, err := r.conn.Exec(
		`INSERT INTO transactions
			(month, trace_id, commodity, amount, unit_price, supplier_id, supplier_name, requester_id, requester_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		month, tx.TraceID.String(), tx.Commodity, tx.Amount, tx.UnitPrice,
		supplierID, supplierName, requesterID, requesterName,
	)
	if err != nil {
		return fmt.Errorf("trace: insert transaction: %w", err)
	}
	return nil
}

// RecordDone appends one row marking a Message's transition to DONE.
func (r *Recorder) RecordDone(month int, m *messaging.Message) error {
	var originatorID *int
	var originatorName *string
	if m.Originator != nil {
		id := m.Originator.ID()
		originatorID = &id
		if named, ok := m.Originator.(interface{ Name() string }); ok {
			name := named.Name()
			originatorName = &name
		}
	}

	_, err := r.conn.Exec(
		`INSERT INTO message_done (month, trace_id, originator_id, originator_name) VALUES (?, ?, ?, ?)`,
		month, m.Transaction.TraceID.String(), originatorID, originatorName,
	)
	if err != nil {
		return fmt.Errorf("trace: insert message_done: %w", err)
	}
	return nil
}
