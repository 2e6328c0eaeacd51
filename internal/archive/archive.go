// Package archive mirrors journal records into postgres for audit. The
// in-memory journal stays authoritative; the archive is a best-effort copy
// written by a background worker so the ledger engine never waits on the
// database.
package archive

import (
	"database/sql"
	"log/slog"
	"sync"

	"github.com/lib/pq"

	"account-ledger/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS transfer_records (
	id UUID PRIMARY KEY,
	kind TEXT NOT NULL,
	from_account_id UUID NOT NULL,
	to_account_id UUID,
	amount NUMERIC(20,2) NOT NULL,
	resulting_balance NUMERIC(20,2) NOT NULL,
	timestamp_millis BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transfer_records_from_account
	ON transfer_records (from_account_id, timestamp_millis);
`

// EnsureSchema creates the archive table when it does not exist yet.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Archiver drains a journal subscription into postgres.
type Archiver struct {
	db     *sql.DB
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewArchiver(db *sql.DB, logger *slog.Logger) *Archiver {
	return &Archiver{
		db:     db,
		logger: logger,
	}
}

// Run consumes records until the channel is closed. It is meant to be
// started once, as a goroutine, with the channel from Journal.Subscribe.
func (a *Archiver) Run(records <-chan domain.TransferRecord) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for rec := range records {
			a.insert(rec)
		}
	}()
}

// Wait blocks until the worker has drained its channel, for orderly
// shutdown after the producer closed it.
func (a *Archiver) Wait() {
	a.wg.Wait()
}

func (a *Archiver) insert(rec domain.TransferRecord) {
	query := `
		INSERT INTO transfer_records
		(id, kind, from_account_id, to_account_id, amount, resulting_balance, timestamp_millis)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var toAccountID interface{}
	if rec.ToAccountID != nil {
		toAccountID = *rec.ToAccountID
	}

	_, err := a.db.Exec(
		query,
		rec.ID,
		string(rec.Kind),
		rec.FromAccountID,
		toAccountID,
		rec.Amount.String(),
		rec.ResultingBalance.String(),
		rec.TimestampMillis,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" { // unique_violation
			// Already archived, nothing to do.
			return
		}
		a.logger.Error("failed to archive transfer record",
			"transfer_id", rec.ID, "error", err)
		return
	}

	a.logger.Debug("transfer record archived", "transfer_id", rec.ID)
}
