package nonce

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

// Result is the outcome of a nonce calculation. Nonce is nil when the node
// default (the pending transaction count) should be used.
type Result struct {
	Nonce            *uint64
	TransactionCount uint64
}

// Calculator resolves the nonce of a key based transfer from the cached last
// nonce and the queried transaction count. Callers serialize transfers per
// address; the calculator holds no locks.
type Calculator struct {
	provider Provider
	store    Store
}

func NewCalculator(provider Provider, store Store) *Calculator {
	return &Calculator{
		provider: provider,
		store:    store,
	}
}

// TransactionCount queries the pending transaction count of address.
func (c *Calculator) TransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return c.provider.GetTransactionCount(ctx, address)
}

// Calculate returns the nonce to sign with.
//
// Sign only: the transaction count, unless a cached nonce exists that is
// non-zero and not below the count, in which case cached+1. A cached nonce of
// exactly zero also yields cached+1.
//
// Broadcast: cached+1 only when the cached nonce equals the count and is
// positive, otherwise nil.
func (c *Calculator) Calculate(ctx context.Context, address common.Address, signOnly bool) (Result, error) {
	lastNonce, err := c.store.LastNonce(ctx, address)
	if err != nil {
		return Result{}, err
	}
	count, err := c.provider.GetTransactionCount(ctx, address)
	if err != nil {
		return Result{}, err
	}

	result := Result{TransactionCount: count}
	if signOnly {
		var nonce uint64
		if lastNonce == nil || (*lastNonce < count && *lastNonce != 0) {
			nonce = count
		} else {
			nonce = *lastNonce + 1
		}
		result.Nonce = &nonce
	} else if lastNonce != nil && *lastNonce == count && *lastNonce > 0 {
		nonce := *lastNonce + 1
		result.Nonce = &nonce
	}

	e := log.Debug().
		Str("address", address.Hex()).
		Uint64("transactionCount", count).
		Bool("signOnly", signOnly)
	if result.Nonce != nil {
		e = e.Uint64("nonce", *result.Nonce)
	}
	e.Msg("calculated nonce")

	return result, nil
}

// Commit records the nonce a transfer was sent with. When the nonce was left
// to the node the transaction count is recorded instead. The stored nonce
// never moves backwards.
func (c *Calculator) Commit(ctx context.Context, address common.Address, result Result) error {
	used := result.TransactionCount
	if result.Nonce != nil {
		used = *result.Nonce
	}

	last, err := c.store.LastNonce(ctx, address)
	if err != nil {
		return err
	}
	if last != nil && *last > used {
		log.Warn().
			Str("address", address.Hex()).
			Uint64("lastNonce", *last).
			Uint64("nonce", used).
			Msg("ignoring nonce below the cached one")
		return nil
	}
	return c.store.SetLastNonce(ctx, address, used)
}
