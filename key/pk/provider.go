package pk

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/welthee/cryptowallet/key"
)

// Signer is a private key backed provider that can also sign messages.
type Signer interface {
	key.Provider
	key.MessageSigner
}

// NewPrivateKeyProvider is a utility method to easily create a transaction signer
// from a single hex encoded private key for the given chainID.
func NewPrivateKeyProvider(privateKeyHex string, chainID *big.Int) (Signer, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(privateKey, chainID)
	if err != nil {
		return nil, err
	}
	return privateKeyProvider{
		privateKey:   privateKey,
		transactOpts: opts,
	}, nil
}

type privateKeyProvider struct {
	privateKey   *ecdsa.PrivateKey
	transactOpts *bind.TransactOpts
}

func (p privateKeyProvider) GetAddress() common.Address {
	return p.transactOpts.From
}

func (p privateKeyProvider) GetTransactOpts() *bind.TransactOpts {
	return p.transactOpts
}

func (p privateKeyProvider) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	signature, err := crypto.Sign(accounts.TextHash(message), p.privateKey)
	if err != nil {
		return nil, err
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}
