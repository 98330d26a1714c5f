package provider

import (
	"context"
	"sync/atomic"

	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/transaction"
)

// TransferProvider is the capability set shared by every wallet backend.
type TransferProvider interface {
	// TransferNative sends the chain native asset.
	TransferNative(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error)
	// TransferToken sends a fungible token.
	TransferToken(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error)
	// TransferCollectible sends a collectible identified by payload.TokenID.
	TransferCollectible(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error)
	// GetInitStatus blocks until the provider finished initializing and
	// returns the initialization error, if any.
	GetInitStatus(ctx context.Context) error
	// Initialized reports whether transfers are accepted.
	Initialized() bool
}

// Destroyer is implemented by providers holding a remote session.
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// initializer runs a provider initialization once, in the background, and
// lets any number of callers wait for it.
type initializer struct {
	done        chan struct{}
	err         error
	initialized atomic.Bool
}

func startInit(fn func() error) *initializer {
	i := &initializer{done: make(chan struct{})}
	go func() {
		defer close(i.done)
		if err := fn(); err != nil {
			i.err = err
			return
		}
		i.initialized.Store(true)
	}()
	return i
}

func (i *initializer) wait(ctx context.Context) error {
	select {
	case <-i.done:
		return i.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (i *initializer) ready() bool {
	return i.initialized.Load()
}

func chainOrDefault(payload transaction.Payload) transaction.Payload {
	if payload.Chain == "" {
		payload.Chain = chain.Ethereum
	}
	return payload
}
