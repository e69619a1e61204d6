package fiatledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPLedger talks to a remote ledger service (the bank-account service or the
// Yanki service) over its REST API. Transport failures and 5xx responses map to
// ErrUnavailable so callers can retry; business rejections are terminal.
type HTTPLedger struct {
	baseURL string
	client  *http.Client
}

// NewHTTPLedger builds a remote ledger client for the given base URL.
func NewHTTPLedger(baseURL string) *HTTPLedger {
	return &HTTPLedger{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type transferRequest struct {
	FromCode   string `json:"from_code"`
	ToCode     string `json:"to_code"`
	Kind       string `json:"kind"`
	ClientTxID string `json:"client_tx_id"`
	Amount     int64  `json:"amount"`
}

type postingRequest struct {
	Code       string `json:"code"`
	Kind       string `json:"kind"`
	ClientTxID string `json:"client_tx_id"`
	Amount     int64  `json:"amount"`
}

type transferResponse struct {
	TransactionID string `json:"transaction_id"`
	FromBalance   int64  `json:"from_balance"`
	ToBalance     int64  `json:"to_balance"`
}

type postingResponse struct {
	TransactionID string `json:"transaction_id"`
	Balance       int64  `json:"balance"`
}

// EnsureAccount asks the remote service to provision the account if missing.
func (l *HTTPLedger) EnsureAccount(ctx context.Context, code string) error {
	body, _ := json.Marshal(map[string]string{"code": code})
	resp, err := l.do(ctx, http.MethodPost, "/accounts", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return l.statusError(resp)
}

// Balance fetches the remote account balance.
func (l *HTTPLedger) Balance(ctx context.Context, code string) (int64, error) {
	resp, err := l.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(code)+"/balance", nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if err := l.statusError(resp); err != nil {
		return 0, err
	}
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode balance: %w", err)
	}
	return out.Balance, nil
}

// Transfer posts a balanced entry between two remote accounts.
func (l *HTTPLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	body, _ := json.Marshal(transferRequest{FromCode: fromCode, ToCode: toCode, Kind: kind, ClientTxID: clientTxID, Amount: amount})
	resp, err := l.do(ctx, http.MethodPost, "/transfers", body)
	if err != nil {
		return TransactionResult{}, err
	}
	defer resp.Body.Close()

	statusErr := l.statusError(resp)
	if statusErr != nil && !errors.Is(statusErr, ErrDuplicateTransaction) {
		return TransactionResult{}, statusErr
	}
	var out transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return TransactionResult{}, fmt.Errorf("decode transfer: %w", err)
	}
	return TransactionResult{TransactionID: out.TransactionID, FromBalance: out.FromBalance, ToBalance: out.ToBalance}, statusErr
}

// Debit posts a remote debit against the interchange account.
func (l *HTTPLedger) Debit(ctx context.Context, code, kind, clientTxID string, amount int64) (Posting, error) {
	return l.posting(ctx, "/debits", code, kind, clientTxID, amount)
}

// Credit posts a remote credit against the interchange account.
func (l *HTTPLedger) Credit(ctx context.Context, code, kind, clientTxID string, amount int64) (Posting, error) {
	return l.posting(ctx, "/credits", code, kind, clientTxID, amount)
}

func (l *HTTPLedger) posting(ctx context.Context, path, code, kind, clientTxID string, amount int64) (Posting, error) {
	body, _ := json.Marshal(postingRequest{Code: code, Kind: kind, ClientTxID: clientTxID, Amount: amount})
	resp, err := l.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return Posting{}, err
	}
	defer resp.Body.Close()

	statusErr := l.statusError(resp)
	if statusErr != nil && !errors.Is(statusErr, ErrDuplicateTransaction) {
		return Posting{}, statusErr
	}
	var out postingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Posting{}, fmt.Errorf("decode posting: %w", err)
	}
	return Posting{TransactionID: out.TransactionID, Balance: out.Balance}, statusErr
}

func (l *HTTPLedger) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (l *HTTPLedger) statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return ErrAccountNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrDuplicateTransaction
	case resp.StatusCode == http.StatusUnprocessableEntity, resp.StatusCode == http.StatusPaymentRequired:
		return ErrInsufficientFunds
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("ledger request failed: status %d", resp.StatusCode)
	}
}
