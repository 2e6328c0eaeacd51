package service

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"account-ledger/internal/domain"
	"account-ledger/internal/ledger"
)

// TransferService fronts every balance-changing operation and the outgoing
// history query.
type TransferService struct {
	engine *ledger.Engine
	logger *slog.Logger
}

func NewTransferService(engine *ledger.Engine, logger *slog.Logger) *TransferService {
	return &TransferService{
		engine: engine,
		logger: logger,
	}
}

func (s *TransferService) Deposit(accountID, amount string) (decimal.Decimal, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	amt, err := parseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	return s.engine.Deposit(id, amt)
}

func (s *TransferService) Withdraw(accountID, amount string) (decimal.Decimal, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return decimal.Zero, err
	}
	amt, err := parseAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	return s.engine.Withdraw(id, amt)
}

// TransferInput carries the transfer request fields as received on the wire.
type TransferInput struct {
	FromAccountID string
	ToAccountID   string
	Amount        string
}

func (s *TransferService) Transfer(in TransferInput) (ledger.TransferResult, error) {
	fromID, err := parseAccountID(in.FromAccountID)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	toID, err := parseAccountID(in.ToAccountID)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	amt, err := parseAmount(in.Amount)
	if err != nil {
		return ledger.TransferResult{}, err
	}

	s.logger.Info("processing transfer",
		"from_account_id", fromID, "to_account_id", toID, "amount", amt)

	return s.engine.Transfer(fromID, toID, amt)
}

func (s *TransferService) OutgoingTransfers(accountID string) ([]domain.TransferRecord, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, err
	}
	return s.engine.OutgoingTransfers(id)
}
