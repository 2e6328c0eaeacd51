package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/apperrors"
	"account-ledger/internal/domain"
	"account-ledger/pkg/wal"
)

// Lock acquisition budget for transfers. Ordered acquisition already rules
// out deadlock; the budget bounds the wait when both accounts are under
// sustained contention, so a transfer fails fast instead of livelocking.
const (
	transferLockAttempts = 200
	transferLockBackoff  = 500 * time.Microsecond
)

// Engine is the sole writer of the account store and the journal. Every
// balance mutation goes through it, and every mutation it applies is paired
// with exactly one journal record appended under the same account lock.
type Engine struct {
	store   *AccountStore
	journal domain.Journal
	wal     *wal.WAL
	logger  *slog.Logger
}

// NewEngine wires the engine to its store and journal. walLog may be nil to
// run without durability; when present, previously logged state is replayed
// into the store and journal before the engine accepts operations.
func NewEngine(store *AccountStore, journal domain.Journal, walLog *wal.WAL, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		store:   store,
		journal: journal,
		wal:     walLog,
		logger:  logger,
	}
	if walLog != nil {
		if err := e.recover(); err != nil {
			return nil, fmt.Errorf("wal recovery: %w", err)
		}
	}
	return e, nil
}

// CreateAccount validates and stores a new account and logs the creation.
func (e *Engine) CreateAccount(p CreateAccountParams) (domain.Account, error) {
	acct, err := e.store.Create(p)
	if err != nil {
		return domain.Account{}, err
	}
	e.logWAL(walEntry{Kind: walEntryAccount, Account: &acct})
	e.logger.Info("account created", "account_id", acct.ID, "balance", acct.Balance)
	return acct, nil
}

func (e *Engine) GetAccount(id uuid.UUID) (domain.Account, error) {
	return e.store.Get(id)
}

func (e *Engine) ListAccounts() []domain.Account {
	return e.store.List()
}

// Deposit credits the account and journals the mutation. The journal append
// happens under the account lock so the record order matches the balance
// history.
func (e *Engine) Deposit(id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}
	rec, err := e.store.record(id)
	if err != nil {
		return decimal.Zero, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	newBalance, err := e.store.mutateBalance(rec, amount)
	if err != nil {
		return decimal.Zero, err
	}
	e.appendRecord(domain.TransferRecord{
		ID:               uuid.New(),
		Kind:             domain.RecordKindDeposit,
		FromAccountID:    id,
		Amount:           amount,
		ResultingBalance: newBalance,
	})

	e.logger.Info("deposit applied", "account_id", id, "amount", amount, "balance", newBalance)
	return newBalance, nil
}

// Withdraw debits the account, failing without any state change when the
// balance would go negative.
func (e *Engine) Withdraw(id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, apperrors.ErrInvalidAmount
	}
	rec, err := e.store.record(id)
	if err != nil {
		return decimal.Zero, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	newBalance, err := e.store.mutateBalance(rec, amount.Neg())
	if err != nil {
		return decimal.Zero, err
	}
	e.appendRecord(domain.TransferRecord{
		ID:               uuid.New(),
		Kind:             domain.RecordKindWithdrawal,
		FromAccountID:    id,
		Amount:           amount,
		ResultingBalance: newBalance,
	})

	e.logger.Info("withdrawal applied", "account_id", id, "amount", amount, "balance", newBalance)
	return newBalance, nil
}

// TransferResult carries both post-transfer balances and the journal record
// documenting the debit.
type TransferResult struct {
	Record           domain.TransferRecord
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// Transfer atomically moves amount from one account to another. Both record
// locks are held across the debit, the credit and the journal append, so no
// reader can observe the debit without the credit.
func (e *Engine) Transfer(fromID, toID uuid.UUID, amount decimal.Decimal) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, apperrors.ErrInvalidAmount
	}
	if fromID == toID {
		return TransferResult{}, apperrors.ErrSameAccountTransfer
	}

	from, err := e.store.record(fromID)
	if err != nil {
		return TransferResult{}, apperrors.NewAppErrorf(apperrors.AccountNotFound, "source account not found: %s", fromID)
	}
	to, err := e.store.record(toID)
	if err != nil {
		return TransferResult{}, apperrors.NewAppErrorf(apperrors.AccountNotFound, "destination account not found: %s", toID)
	}

	first, second := orderLocks(from, to)
	if !e.lockPair(first, second) {
		e.logger.Warn("transfer lock budget exhausted",
			"from_account_id", fromID, "to_account_id", toID)
		return TransferResult{}, apperrors.ErrTransferContention
	}
	defer second.mu.Unlock()
	defer first.mu.Unlock()

	senderBalance, err := e.store.mutateBalance(from, amount.Neg())
	if err != nil {
		return TransferResult{}, err
	}
	recipientBalance, err := e.store.mutateBalance(to, amount)
	if err != nil {
		// Crediting cannot fail today (amount is positive), but if it
		// ever does the debit must not survive.
		if _, rbErr := e.store.mutateBalance(from, amount); rbErr != nil {
			e.logger.Error("transfer rollback failed", "from_account_id", fromID, "error", rbErr)
		}
		return TransferResult{}, err
	}

	record := domain.TransferRecord{
		ID:               uuid.New(),
		Kind:             domain.RecordKindTransfer,
		FromAccountID:    fromID,
		ToAccountID:      &toID,
		Amount:           amount,
		ResultingBalance: senderBalance,
	}
	e.appendRecord(record)

	e.logger.Info("transfer completed",
		"transfer_id", record.ID,
		"from_account_id", fromID,
		"to_account_id", toID,
		"amount", amount)

	return TransferResult{
		Record:           record,
		SenderBalance:    senderBalance,
		RecipientBalance: recipientBalance,
	}, nil
}

// OutgoingTransfers returns the journal entries debiting the account,
// oldest first.
func (e *Engine) OutgoingTransfers(id uuid.UUID) ([]domain.TransferRecord, error) {
	if _, err := e.store.record(id); err != nil {
		return nil, err
	}
	return e.journal.OutgoingFor(id), nil
}

// orderLocks fixes a global acquisition order by the byte order of the
// account ids, so two opposite transfers between the same pair can never
// hold one lock each and wait on the other.
func orderLocks(a, b *accountRecord) (*accountRecord, *accountRecord) {
	if bytes.Compare(a.acct.ID[:], b.acct.ID[:]) < 0 {
		return a, b
	}
	return b, a
}

// lockPair tries to take both locks in order within the retry budget,
// reporting false when the budget is exhausted. Both locks are held on a
// true return.
func (e *Engine) lockPair(first, second *accountRecord) bool {
	for attempt := 0; attempt < transferLockAttempts; attempt++ {
		if first.mu.TryLock() {
			if second.mu.TryLock() {
				return true
			}
			first.mu.Unlock()
		}
		if attempt%10 == 9 {
			time.Sleep(transferLockBackoff)
		} else {
			runtime.Gosched()
		}
	}
	return false
}

// appendRecord journals the mutation and mirrors it to the WAL. Callers hold
// the debited account's lock.
func (e *Engine) appendRecord(rec domain.TransferRecord) {
	e.journal.Append(&rec)
	e.logWAL(walEntry{Kind: walEntryRecord, Record: &rec})
}

const (
	walEntryAccount = "account"
	walEntryRecord  = "record"
)

type walEntry struct {
	Kind    string                 `json:"kind"`
	Account *domain.Account        `json:"account,omitempty"`
	Record  *domain.TransferRecord `json:"record,omitempty"`
}

func (e *Engine) logWAL(entry walEntry) {
	if e.wal == nil {
		return
	}
	if err := e.wal.Write(entry); err != nil {
		e.logger.Error("wal write failed", "error", err)
	}
}

// recover replays the WAL into the store and journal. It runs before the
// engine is shared, so no locking is needed.
func (e *Engine) recover() error {
	var replayed int
	err := e.wal.ReadAll(func(raw []byte) error {
		var entry walEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return err
		}
		switch entry.Kind {
		case walEntryAccount:
			if entry.Account == nil {
				return fmt.Errorf("account entry without account")
			}
			e.store.insert(*entry.Account)
		case walEntryRecord:
			if entry.Record == nil {
				return fmt.Errorf("record entry without record")
			}
			if err := e.replayRecord(*entry.Record); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown wal entry kind %q", entry.Kind)
		}
		replayed++
		return nil
	})
	if err != nil {
		return err
	}
	if replayed > 0 {
		e.logger.Info("ledger state recovered from wal", "entries", replayed)
	}
	return nil
}

// replayRecord reapplies one journaled mutation to the store and restores
// the record, keeping its original id and timestamp.
func (e *Engine) replayRecord(rec domain.TransferRecord) error {
	from, err := e.store.record(rec.FromAccountID)
	if err != nil {
		return fmt.Errorf("replay %s: %w", rec.ID, err)
	}

	switch rec.Kind {
	case domain.RecordKindDeposit:
		_, err = e.store.mutateBalance(from, rec.Amount)
	case domain.RecordKindWithdrawal:
		_, err = e.store.mutateBalance(from, rec.Amount.Neg())
	case domain.RecordKindTransfer:
		if rec.ToAccountID == nil {
			return fmt.Errorf("replay %s: transfer without recipient", rec.ID)
		}
		var to *accountRecord
		to, err = e.store.record(*rec.ToAccountID)
		if err != nil {
			break
		}
		if _, err = e.store.mutateBalance(from, rec.Amount.Neg()); err != nil {
			break
		}
		_, err = e.store.mutateBalance(to, rec.Amount)
	default:
		return fmt.Errorf("replay %s: unknown record kind %q", rec.ID, rec.Kind)
	}
	if err != nil {
		return fmt.Errorf("replay %s: %w", rec.ID, err)
	}

	e.journal.Restore(rec)
	return nil
}
