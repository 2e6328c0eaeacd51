package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"account-ledger/internal/apperrors"
	"account-ledger/internal/domain"
	"account-ledger/internal/service"
)

type TransferHandler struct {
	transferService *service.TransferService
}

func NewTransferHandler(transferService *service.TransferService) *TransferHandler {
	return &TransferHandler{
		transferService: transferService,
	}
}

type AmountRequest struct {
	Amount json.Number `json:"amount"`
}

type BalanceResponse struct {
	Balance string `json:"balance"`
}

type TransferRequest struct {
	FromAccountID string      `json:"fromAccountId"`
	ToAccountID   string      `json:"toAccountId"`
	Amount        json.Number `json:"amount"`
}

type TransferResponse struct {
	TransferID       string  `json:"transferId"`
	ToAccountID      *string `json:"toAccountId"`
	Kind             string  `json:"kind"`
	Amount           string  `json:"amount"`
	TimestampMillis  int64   `json:"timestampMillis"`
	ResultingBalance string  `json:"resultingBalance"`
	RecipientBalance *string `json:"recipientBalance,omitempty"`
}

type OutgoingTransfersResponse struct {
	Transfers []TransferResponse `json:"transfers"`
}

func toTransferResponse(rec domain.TransferRecord) TransferResponse {
	resp := TransferResponse{
		TransferID:       rec.ID.String(),
		Kind:             string(rec.Kind),
		Amount:           rec.Amount.String(),
		TimestampMillis:  rec.TimestampMillis,
		ResultingBalance: rec.ResultingBalance.String(),
	}
	if rec.ToAccountID != nil {
		to := rec.ToAccountID.String()
		resp.ToAccountID = &to
	}
	return resp
}

func (h *TransferHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.amountOperation(w, r, h.transferService.Deposit)
}

func (h *TransferHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.amountOperation(w, r, h.transferService.Withdraw)
}

func (h *TransferHandler) amountOperation(w http.ResponseWriter, r *http.Request, op func(accountID, amount string) (decimal.Decimal, error)) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewAppError(apperrors.InvalidInput, "invalid request body"))
		return
	}

	balance, err := op(mux.Vars(r)["account_id"], req.Amount.String())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{Balance: balance.String()})
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.NewAppError(apperrors.InvalidInput, "invalid request body"))
		return
	}

	result, err := h.transferService.Transfer(service.TransferInput{
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount.String(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := toTransferResponse(result.Record)
	recipient := result.RecipientBalance.String()
	resp.RecipientBalance = &recipient

	writeJSON(w, http.StatusCreated, resp)
}

func (h *TransferHandler) OutgoingTransfers(w http.ResponseWriter, r *http.Request) {
	records, err := h.transferService.OutgoingTransfers(mux.Vars(r)["account_id"])
	if err != nil {
		writeError(w, err)
		return
	}

	out := OutgoingTransfersResponse{Transfers: make([]TransferResponse, 0, len(records))}
	for _, rec := range records {
		out.Transfers = append(out.Transfers, toTransferResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}
