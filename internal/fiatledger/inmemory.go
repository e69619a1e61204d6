package fiatledger

import (
	"context"
	"fmt"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]TransactionResult
	postings     map[string]Posting
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and single-process deployments.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     make(map[string]int64),
		transactions: make(map[string]TransactionResult),
		postings:     make(map[string]Posting),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}

	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	fromBalance -= amount
	toBalance += amount

	l.balances[fromCode] = fromBalance
	l.balances[toCode] = toBalance

	res := TransactionResult{
		TransactionID: key,
		FromBalance:   fromBalance,
		ToBalance:     toBalance,
	}

	l.transactions[key] = res
	return res, nil
}

func (l *inMemoryLedger) Debit(_ context.Context, code, kind, clientTxID string, amount int64) (Posting, error) {
	if amount <= 0 {
		return Posting{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.postings[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		return Posting{}, ErrAccountNotFound
	}
	if balance < amount {
		return Posting{}, ErrInsufficientFunds
	}

	balance -= amount
	l.balances[code] = balance
	l.balances[InterchangeAccountCode] += amount

	res := Posting{TransactionID: key, Balance: balance}
	l.postings[key] = res
	return res, nil
}

func (l *inMemoryLedger) Credit(_ context.Context, code, kind, clientTxID string, amount int64) (Posting, error) {
	if amount <= 0 {
		return Posting{}, fmt.Errorf("amount must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.postings[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		return Posting{}, ErrAccountNotFound
	}

	balance += amount
	l.balances[code] = balance
	l.balances[InterchangeAccountCode] -= amount

	res := Posting{TransactionID: key, Balance: balance}
	l.postings[key] = res
	return res, nil
}
