package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the ledger's view of a single customer account. Everything but
// the balance is fixed at creation; the balance is mutated only by the
// ledger engine.
type Account struct {
	ID        uuid.UUID       `json:"accountId"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Age       int             `json:"age"`
	City      string          `json:"city"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
