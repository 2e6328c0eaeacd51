package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"account-ledger/internal/apperrors"
	"account-ledger/internal/domain"
	"account-ledger/internal/service"
)

type AccountHandler struct {
	accountService *service.AccountService
}

func NewAccountHandler(accountService *service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
	}
}

// CreateAccountRequest accepts the initial deposit as either a JSON string
// or a number; the service parses it either way.
type CreateAccountRequest struct {
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Age            int         `json:"age"`
	City           string      `json:"city"`
	InitialDeposit json.Number `json:"initialDeposit"`
}

type AccountResponse struct {
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	City      string `json:"city"`
	Balance   string `json:"balance"`
}

func toAccountResponse(acct domain.Account) AccountResponse {
	return AccountResponse{
		AccountID: acct.ID.String(),
		Name:      acct.Name,
		Email:     acct.Email,
		Age:       acct.Age,
		City:      acct.City,
		Balance:   acct.Balance.String(),
	}
}

func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewAppError(apperrors.InvalidInput, "invalid request body"))
		return
	}

	acct, err := h.accountService.CreateAccount(service.CreateAccountInput{
		Name:           req.Name,
		Email:          req.Email,
		Age:            req.Age,
		City:           req.City,
		InitialDeposit: req.InitialDeposit.String(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accountService.GetAccount(mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.accountService.ListAccounts()
	out := make([]AccountResponse, 0, len(accounts))
	for _, acct := range accounts {
		out = append(out, toAccountResponse(acct))
	}
	writeJSON(w, http.StatusOK, out)
}
