package service

import (
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-ledger/internal/apperrors"
	"account-ledger/internal/domain"
	"account-ledger/internal/ledger"
)

// AccountService is the account half of the service facade: it parses and
// validates raw request values, delegates to the engine, and nothing else.
type AccountService struct {
	engine *ledger.Engine
	logger *slog.Logger
}

func NewAccountService(engine *ledger.Engine, logger *slog.Logger) *AccountService {
	return &AccountService{
		engine: engine,
		logger: logger,
	}
}

// CreateAccountInput carries the request fields as received on the wire.
// The amount stays a string here: the service does its own numeric parsing
// rather than trusting client-side coercion.
type CreateAccountInput struct {
	Name           string
	Email          string
	Age            int
	City           string
	InitialDeposit string
}

func (s *AccountService) CreateAccount(in CreateAccountInput) (domain.Account, error) {
	s.logger.Info("creating account", "name", in.Name, "email", in.Email)

	if strings.TrimSpace(in.InitialDeposit) == "" {
		return domain.Account{}, apperrors.NewAppError(apperrors.InvalidInput, "initial deposit is required")
	}
	deposit, err := parseAmount(in.InitialDeposit)
	if err != nil {
		return domain.Account{}, err
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.Account{}, apperrors.NewAppError(apperrors.InvalidInput, "invalid email format")
		}
	}

	acct, err := s.engine.CreateAccount(ledger.CreateAccountParams{
		Name:           strings.TrimSpace(in.Name),
		Email:          strings.TrimSpace(in.Email),
		Age:            in.Age,
		City:           strings.TrimSpace(in.City),
		InitialDeposit: deposit,
	})
	if err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

func (s *AccountService) GetAccount(accountID string) (domain.Account, error) {
	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Account{}, err
	}
	return s.engine.GetAccount(id)
}

func (s *AccountService) ListAccounts() []domain.Account {
	return s.engine.ListAccounts()
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidAccountID
	}
	return id, nil
}

// parseAmount turns a wire amount into a decimal rounded to cents with
// banker's rounding. Sign checks stay with the caller: a create allows zero,
// a deposit does not.
func parseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.NewAppError(apperrors.InvalidAmount, "invalid amount format")
	}
	return d.RoundBank(2), nil
}
