package ledger

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/apperrors"
	"account-ledger/internal/domain"
)

const (
	minimumAge = 18
	maximumAge = 150
)

// accountRecord pairs an account with the mutex that serializes its balance
// mutations. The mutex lives here, not on the domain type, so copies handed
// out by Get/List never carry a lock.
type accountRecord struct {
	mu   sync.Mutex
	acct domain.Account
}

// AccountStore is the in-memory, exclusively-owned mapping from account id to
// account. The outer RWMutex guards the map itself; each record's own mutex
// guards its balance.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*accountRecord
	order    []uuid.UUID
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[uuid.UUID]*accountRecord),
	}
}

// CreateAccountParams are the already-parsed inputs for a new account.
// String-to-number parsing happens at the service boundary, never here.
type CreateAccountParams struct {
	Name           string
	Email          string
	Age            int
	City           string
	InitialDeposit decimal.Decimal
}

func (p CreateAccountParams) validate() *apperrors.AppError {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.NewAppError(apperrors.InvalidInput, "name is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return apperrors.NewAppError(apperrors.InvalidInput, "email is required")
	}
	if strings.TrimSpace(p.City) == "" {
		return apperrors.NewAppError(apperrors.InvalidInput, "city is required")
	}
	if p.Age < minimumAge {
		return apperrors.NewAppErrorf(apperrors.InvalidInput, "must be at least %d years old", minimumAge)
	}
	if p.Age > maximumAge {
		return apperrors.NewAppError(apperrors.InvalidInput, "invalid age")
	}
	if p.InitialDeposit.IsNegative() {
		return apperrors.NewAppError(apperrors.InvalidAmount, "initial deposit cannot be negative")
	}
	return nil
}

// Create validates the params, assigns a fresh id and stores the account.
func (s *AccountStore) Create(p CreateAccountParams) (domain.Account, error) {
	if err := p.validate(); err != nil {
		return domain.Account{}, err
	}

	now := time.Now()
	acct := domain.Account{
		ID:        uuid.New(),
		Name:      p.Name,
		Email:     p.Email,
		Age:       p.Age,
		City:      p.City,
		Balance:   p.InitialDeposit,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.insert(acct)
	return acct, nil
}

// insert adds a fully-formed account, keeping creation order for List.
// Also the recovery path, which must keep the original id.
func (s *AccountStore) insert(acct domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.ID] = &accountRecord{acct: acct}
	s.order = append(s.order, acct.ID)
}

// Get returns a copy of the account's current state. The record lock is
// taken for the read so a transfer in flight is observed either fully
// applied or not at all.
func (s *AccountStore) Get(id uuid.UUID) (domain.Account, error) {
	rec, err := s.record(id)
	if err != nil {
		return domain.Account{}, err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.acct, nil
}

// List returns copies of all accounts in creation order.
func (s *AccountStore) List() []domain.Account {
	s.mu.RLock()
	ids := make([]uuid.UUID, len(s.order))
	copy(ids, s.order)
	s.mu.RUnlock()

	out := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		acct, err := s.Get(id)
		if err != nil {
			continue
		}
		out = append(out, acct)
	}
	return out
}

// record looks up the live record for an id. Callers that mutate must hold
// the record's mutex.
func (s *AccountStore) record(id uuid.UUID) (*accountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.accounts[id]
	if !ok {
		return nil, apperrors.ErrAccountNotFound
	}
	return rec, nil
}

// mutateBalance applies delta to the record's balance, rejecting any change
// that would take it negative. The caller must hold rec.mu; the mutation is
// all-or-nothing.
func (s *AccountStore) mutateBalance(rec *accountRecord, delta decimal.Decimal) (decimal.Decimal, error) {
	newBalance := rec.acct.Balance.Add(delta)
	if newBalance.IsNegative() {
		return rec.acct.Balance, apperrors.ErrInsufficientFunds
	}
	rec.acct.Balance = newBalance
	rec.acct.UpdatedAt = time.Now()
	return newBalance, nil
}
