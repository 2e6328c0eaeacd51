package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordKind classifies a journal entry. Deposits and withdrawals both carry
// a nil recipient, so the kind is what lets a client keep deposits out of an
// account's outgoing view.
type RecordKind string

const (
	RecordKindDeposit    RecordKind = "deposit"
	RecordKindWithdrawal RecordKind = "withdrawal"
	RecordKindTransfer   RecordKind = "transfer"
)

// TransferRecord documents exactly one balance mutation. Records are
// immutable once appended to the journal and are never deleted.
type TransferRecord struct {
	ID               uuid.UUID       `json:"transferId"`
	Kind             RecordKind      `json:"kind"`
	FromAccountID    uuid.UUID       `json:"fromAccountId"`
	ToAccountID      *uuid.UUID      `json:"toAccountId"`
	Amount           decimal.Decimal `json:"amount"`
	ResultingBalance decimal.Decimal `json:"resultingBalance"`
	TimestampMillis  int64           `json:"timestampMillis"`
}

// Journal is the engine's out-port for the append-only operation history.
type Journal interface {
	// Append stores the record and assigns its timestamp. The caller must
	// hold the lock of the debited account so that per-account journal
	// order matches per-account operation order.
	Append(rec *TransferRecord)
	// Restore re-inserts a previously journaled record, keeping its
	// original timestamp. Used when replaying a write-ahead log.
	Restore(rec TransferRecord)
	// OutgoingFor returns the records debiting the given account, oldest
	// first. Each call reflects the journal's latest state.
	OutgoingFor(accountID uuid.UUID) []TransferRecord
}
