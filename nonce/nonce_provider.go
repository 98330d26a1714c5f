package nonce

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Provider defines method to get the transaction count of an account
type Provider interface {
	// GetTransactionCount returns the pending transaction count of the address.
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)
}

// PendingNonceReader is the part of an ethereum client used to query the
// pending nonce. *ethclient.Client satisfies it.
type PendingNonceReader interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

type fixedNonceProvider struct {
	count uint64
}

func (f fixedNonceProvider) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return f.count, nil
}

// NewFixedNonceProvider utility method to create a provider which will
// return a fixed transaction count
func NewFixedNonceProvider(count uint64) Provider {
	return fixedNonceProvider{count: count}
}

type networkNonceProvider struct {
	client PendingNonceReader
}

func (n networkNonceProvider) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return n.client.PendingNonceAt(ctx, address)
}

// NewNetworkNonceProvider utility method to create a provider which will
// interrogate the network for the pending transaction count
func NewNetworkNonceProvider(client PendingNonceReader) Provider {
	return networkNonceProvider{client: client}
}
