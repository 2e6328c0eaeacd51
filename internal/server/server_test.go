package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-ledger/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(&config.Config{ServerPort: "0"}, logger)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createAccount(t *testing.T, srv *Server, deposit any) string {
	t.Helper()
	rec := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name":           "Alice",
		"email":          "alice@example.com",
		"age":            30,
		"city":           "Berlin",
		"initialDeposit": deposit,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	id, ok := body["accountId"].(string)
	require.True(t, ok)
	return id
}

func TestCreateAccountEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/accounts", map[string]any{
		"name":           "Alice",
		"email":          "alice@example.com",
		"age":            30,
		"city":           "Berlin",
		"initialDeposit": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decode(t, rec)
	assert.NotEmpty(t, body["accountId"])
	assert.Equal(t, "Alice", body["name"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, float64(30), body["age"])
	assert.Equal(t, "Berlin", body["city"])
	assert.Equal(t, "100", body["balance"])
}

func TestCreateAccountAcceptsNumericDeposit(t *testing.T) {
	srv := newTestServer(t)
	// The client may send the amount as a JSON number instead of a string.
	createAccount(t, srv, 250.5)
}

func TestCreateAccountValidationFailures(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"underage", map[string]any{"name": "Kid", "email": "kid@example.com", "age": 17, "city": "Berlin", "initialDeposit": "0"}},
		{"missing name", map[string]any{"email": "a@example.com", "age": 30, "city": "Berlin", "initialDeposit": "0"}},
		{"bad email", map[string]any{"name": "A", "email": "nope", "age": 30, "city": "Berlin", "initialDeposit": "0"}},
		{"negative deposit", map[string]any{"name": "A", "email": "a@example.com", "age": 30, "city": "Berlin", "initialDeposit": "-1"}},
		{"non-numeric deposit", map[string]any{"name": "A", "email": "a@example.com", "age": 30, "city": "Berlin", "initialDeposit": "lots"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/accounts", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode(t, rec)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["code"])
		})
	}
}

func TestListAccountsKeepsCreationOrder(t *testing.T) {
	srv := newTestServer(t)

	first := createAccount(t, srv, "10")
	second := createAccount(t, srv, "20")

	rec := doJSON(t, srv, http.MethodGet, "/api/accounts", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var accounts []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	require.Len(t, accounts, 2)
	assert.Equal(t, first, accounts[0]["accountId"])
	assert.Equal(t, second, accounts[1]["accountId"])
}

func TestGetAccountErrors(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/accounts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/6a6c2574-230f-4a2a-9fc6-62f5d16c6b39", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "account_not_found", decode(t, rec)["code"])
}

func TestDepositAndWithdrawEndpoints(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "100")

	rec := doJSON(t, srv, http.MethodPost, "/api/accounts/"+id+"/deposit", map[string]any{"amount": "50"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150", decode(t, rec)["balance"])

	rec = doJSON(t, srv, http.MethodPost, "/api/accounts/"+id+"/withdraw", map[string]any{"amount": "200"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "insufficient_funds", decode(t, rec)["code"])

	// The failed withdrawal changed nothing.
	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150", decode(t, rec)["balance"])

	rec = doJSON(t, srv, http.MethodPost, "/api/accounts/"+id+"/withdraw", map[string]any{"amount": "50"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "100", decode(t, rec)["balance"])
}

func TestDepositRejectsNonPositiveAmounts(t *testing.T) {
	srv := newTestServer(t)
	id := createAccount(t, srv, "0")

	for _, amount := range []any{"0", "-10", "abc", 0} {
		rec := doJSON(t, srv, http.MethodPost, "/api/accounts/"+id+"/deposit", map[string]any{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount %v", amount)
	}
}

func TestTransferEndpoint(t *testing.T) {
	srv := newTestServer(t)
	from := createAccount(t, srv, "150")
	to := createAccount(t, srv, "0")

	rec := doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"fromAccountId": from,
		"toAccountId":   to,
		"amount":        "150",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.NotEmpty(t, body["transferId"])
	assert.Equal(t, to, body["toAccountId"])
	assert.Equal(t, "150", body["amount"])
	assert.Equal(t, "0", body["resultingBalance"])
	assert.Equal(t, "150", body["recipientBalance"])
	assert.NotZero(t, body["timestampMillis"])
}

func TestTransferFailures(t *testing.T) {
	srv := newTestServer(t)
	from := createAccount(t, srv, "100")
	to := createAccount(t, srv, "0")

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"same account", map[string]any{"fromAccountId": from, "toAccountId": from, "amount": "10"}, http.StatusBadRequest, "invalid_input"},
		{"unknown recipient", map[string]any{"fromAccountId": from, "toAccountId": "a6a4cd67-1dd1-4b0e-8f0e-50e4a03ad821", "amount": "10"}, http.StatusNotFound, "account_not_found"},
		{"insufficient funds", map[string]any{"fromAccountId": from, "toAccountId": to, "amount": "500"}, http.StatusConflict, "insufficient_funds"},
		{"non-positive amount", map[string]any{"fromAccountId": from, "toAccountId": to, "amount": "0"}, http.StatusBadRequest, "invalid_amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/transfers", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decode(t, rec)["code"])
		})
	}
}

func TestOutgoingTransfersEndpoint(t *testing.T) {
	srv := newTestServer(t)
	from := createAccount(t, srv, "100")
	to := createAccount(t, srv, "0")

	rec := doJSON(t, srv, http.MethodPost, "/api/accounts/"+from+"/withdraw", map[string]any{"amount": "10"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/api/transfers", map[string]any{
		"fromAccountId": from, "toAccountId": to, "amount": "20",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/"+from+"/outgoing-transfers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Transfers []map[string]any `json:"transfers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Transfers, 2)

	assert.Equal(t, "withdrawal", body.Transfers[0]["kind"])
	assert.Nil(t, body.Transfers[0]["toAccountId"])
	assert.Equal(t, "transfer", body.Transfers[1]["kind"])
	assert.Equal(t, to, body.Transfers[1]["toAccountId"])

	rec = doJSON(t, srv, http.MethodGet, "/api/accounts/c1f1e5d8-4de9-4b54-9d3a-1df3f0f5b3aa/outgoing-transfers", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])
}
