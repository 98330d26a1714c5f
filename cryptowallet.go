package cryptowallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/rs/zerolog/log"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/archanova"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/etherspot"
	"github.com/welthee/cryptowallet/key"
	"github.com/welthee/cryptowallet/key/pk"
	"github.com/welthee/cryptowallet/nonce"
	"github.com/welthee/cryptowallet/provider"
	"github.com/welthee/cryptowallet/transactor"
)

var (
	ErrUnsupportedAccountType = errors.New("unsupported account type")
	ErrPrivateKeyRequired     = errors.New("account type requires a private key")
	ErrMissingDependency      = errors.New("missing wallet dependency")
)

// Dependencies are the backends shared by every wallet of a process. Relay
// SDK factories are called once per wallet, sessions are never shared.
type Dependencies struct {
	ChainID    *big.Int
	Transactor transactor.Transactor
	Nonces     *nonce.Calculator
	// used to inspect collectible contracts
	Caller bind.ContractCaller

	NewArchanovaSDK  func() archanova.SDK
	NewEtherspotSDKs func(privateKey string) map[chain.Chain]etherspot.SDK
	// prices relay estimates returned without a gas price
	FallbackGasPrice *big.Int

	closers []func()
}

// Close releases the connections opened by Dial.
func (d Dependencies) Close() {
	for _, c := range d.closers {
		c()
	}
}

// CryptoWallet binds one account to the provider of its wallet backend.
type CryptoWallet struct {
	account  account.Account
	provider provider.TransferProvider
}

// New selects the provider for acc. Relay providers start initializing
// immediately; use GetProvider to wait for them.
func New(ctx context.Context, privateKey string, acc account.Account, deps Dependencies) (*CryptoWallet, error) {
	var p provider.TransferProvider

	switch acc.Type {
	case account.TypeKeyBased:
		keyProvider, err := pk.NewPrivateKeyProvider(privateKey, deps.ChainID)
		if err != nil {
			return nil, err
		}
		return NewWithKeyProvider(keyProvider, acc, deps)
	case account.TypeArchanova:
		if deps.NewArchanovaSDK == nil {
			return nil, fmt.Errorf("%w: archanova sdk", ErrMissingDependency)
		}
		service := archanova.NewService(deps.NewArchanovaSDK(), deps.FallbackGasPrice)
		p = provider.NewSmartWalletProvider(ctx, service, privateKey, acc, deps.Caller)
	case account.TypeEtherspot:
		if deps.NewEtherspotSDKs == nil {
			return nil, fmt.Errorf("%w: etherspot sdk", ErrMissingDependency)
		}
		service := etherspot.NewService(deps.NewEtherspotSDKs(privateKey))
		p = provider.NewEtherspotProvider(ctx, service, deps.Caller)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAccountType, acc.Type)
	}

	log.Debug().Str("accountId", acc.ID).Str("type", string(acc.Type)).Msg("created wallet provider")
	return &CryptoWallet{account: acc, provider: p}, nil
}

// NewWithKeyProvider creates a key based wallet whose key is held by
// keyProvider, e.g. in AWS KMS.
func NewWithKeyProvider(keyProvider key.Provider, acc account.Account, deps Dependencies) (*CryptoWallet, error) {
	switch acc.Type {
	case account.TypeKeyBased:
	case account.TypeArchanova, account.TypeEtherspot:
		return nil, fmt.Errorf("%w: %s", ErrPrivateKeyRequired, acc.Type)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAccountType, acc.Type)
	}
	if deps.Transactor == nil || deps.Nonces == nil {
		return nil, fmt.Errorf("%w: transactor and nonce calculator", ErrMissingDependency)
	}

	return &CryptoWallet{
		account:  acc,
		provider: provider.NewKeyBasedWalletProvider(keyProvider, deps.Transactor, deps.Nonces, deps.Caller),
	}, nil
}

func (w *CryptoWallet) Account() account.Account {
	return w.account
}

// GetProvider returns the provider once initialized. Concurrent callers wait
// on the same initialization; its failure is returned to each of them.
func (w *CryptoWallet) GetProvider(ctx context.Context) (provider.TransferProvider, error) {
	if w.provider.Initialized() {
		return w.provider, nil
	}
	if err := w.provider.GetInitStatus(ctx); err != nil {
		log.Error().Err(err).Str("accountId", w.account.ID).Msg("wallet provider failed to initialize")
		return nil, err
	}
	return w.provider, nil
}

// Destroy ends the provider session, if it holds one.
func (w *CryptoWallet) Destroy(ctx context.Context) error {
	d, ok := w.provider.(provider.Destroyer)
	if !ok {
		return nil
	}
	return d.Destroy(ctx)
}
