package key

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Provider defines the methods needed to send and sign transactions
type Provider interface {
	// GetAddress returns the address of the signing account
	GetAddress() common.Address
	// GetTransactOpts returns TransactOpts which contains the required data to be able
	// to sign an Ethereum transaction.
	GetTransactOpts() *bind.TransactOpts
}

// MessageSigner signs arbitrary messages with the EIP-191 personal message prefix.
type MessageSigner interface {
	// SignMessage returns the 65 byte [R || S || V] signature of message, V being 27 or 28.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
}
