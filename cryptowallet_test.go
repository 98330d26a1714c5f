package cryptowallet

import (
	"context"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/archanova"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/config"
	"github.com/welthee/cryptowallet/etherspot"
	"github.com/welthee/cryptowallet/key/pk"
	"github.com/welthee/cryptowallet/nonce"
	"github.com/welthee/cryptowallet/provider"
	"github.com/welthee/cryptowallet/transactor"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type slowRelay struct {
	archanova.SDK

	release   chan struct{}
	inits     atomic.Int32
	connected atomic.Int32
}

func (s *slowRelay) Init(ctx context.Context, privateKey string) error {
	s.inits.Add(1)
	<-s.release
	return nil
}

func (s *slowRelay) ConnectAccount(ctx context.Context, accountID string) error {
	s.connected.Add(1)
	return nil
}

type sessionSDK struct {
	etherspot.SDK

	destroyed atomic.Bool
}

func (s *sessionSDK) ComputeContractAccount(ctx context.Context) (etherspot.Account, error) {
	return etherspot.Account{Address: common.HexToAddress("0xE5")}, nil
}

func (s *sessionSDK) Destroy(ctx context.Context) error {
	s.destroyed.Store(true)
	return nil
}

type stubTransactor struct {
	transactor.Transactor
}

func keyBasedDeps() Dependencies {
	return Dependencies{
		ChainID:    big.NewInt(1),
		Transactor: stubTransactor{},
		Nonces:     nonce.NewCalculator(nonce.NewFixedNonceProvider(0), nonce.NewMemoryStore()),
	}
}

func TestNewUnsupportedAccountType(t *testing.T) {
	_, err := New(context.TODO(), testKey, account.Account{ID: "x", Type: "Ledger"}, keyBasedDeps())
	assert.ErrorIs(t, err, ErrUnsupportedAccountType)
}

func TestNewKeyBased(t *testing.T) {
	acc := account.Account{ID: "key", Type: account.TypeKeyBased, Address: common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")}
	wallet, err := New(context.TODO(), testKey, acc, keyBasedDeps())
	require.NoError(t, err)

	p, err := wallet.GetProvider(context.TODO())
	require.NoError(t, err)
	keyBased, ok := p.(*provider.KeyBasedWalletProvider)
	require.True(t, ok)
	assert.Equal(t, acc.Address, keyBased.Address())
	assert.NoError(t, wallet.Destroy(context.TODO()))

	_, err = New(context.TODO(), testKey, acc, Dependencies{ChainID: big.NewInt(1)})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestNewWithKeyProviderRejectsRelayAccounts(t *testing.T) {
	keyProvider, err := pk.NewPrivateKeyProvider(testKey, big.NewInt(1))
	require.NoError(t, err)

	_, err = NewWithKeyProvider(keyProvider, account.Account{Type: account.TypeArchanova}, keyBasedDeps())
	assert.ErrorIs(t, err, ErrPrivateKeyRequired)
	_, err = NewWithKeyProvider(keyProvider, account.Account{Type: account.TypeEtherspot}, keyBasedDeps())
	assert.ErrorIs(t, err, ErrPrivateKeyRequired)

	wallet, err := NewWithKeyProvider(keyProvider, account.Account{Type: account.TypeKeyBased}, keyBasedDeps())
	require.NoError(t, err)
	assert.Equal(t, account.TypeKeyBased, wallet.Account().Type)
}

func TestGetProviderInitializesOnce(t *testing.T) {
	relay := &slowRelay{release: make(chan struct{})}
	deps := Dependencies{NewArchanovaSDK: func() archanova.SDK { return relay }}
	wallet, err := New(context.TODO(), testKey, account.Account{ID: "smart", Type: account.TypeArchanova}, deps)
	require.NoError(t, err)

	var wg sync.WaitGroup
	providers := make([]provider.TransferProvider, 8)
	for i := range providers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := wallet.GetProvider(context.TODO())
			assert.NoError(t, err)
			providers[i] = p
		}(i)
	}
	close(relay.release)
	wg.Wait()

	assert.Equal(t, int32(1), relay.inits.Load())
	assert.Equal(t, int32(1), relay.connected.Load())
	for _, p := range providers {
		assert.Same(t, providers[0], p)
		assert.True(t, p.Initialized())
	}
}

func TestMissingRelayDependencies(t *testing.T) {
	_, err := New(context.TODO(), testKey, account.Account{Type: account.TypeArchanova}, Dependencies{})
	assert.ErrorIs(t, err, ErrMissingDependency)
	_, err = New(context.TODO(), testKey, account.Account{Type: account.TypeEtherspot}, Dependencies{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestDestroyEtherspotSession(t *testing.T) {
	sdk := &sessionSDK{}
	deps := Dependencies{NewEtherspotSDKs: func(privateKey string) map[chain.Chain]etherspot.SDK {
		return map[chain.Chain]etherspot.SDK{chain.Ethereum: sdk}
	}}
	wallet, err := New(context.TODO(), testKey, account.Account{ID: "b", Type: account.TypeEtherspot}, deps)
	require.NoError(t, err)

	_, err = wallet.GetProvider(context.TODO())
	require.NoError(t, err)
	require.NoError(t, wallet.Destroy(context.TODO()))
	assert.True(t, sdk.destroyed.Load())
}

func TestNewKeyProviderFromConfig(t *testing.T) {
	keyProvider, err := NewKeyProvider(context.TODO(), config.KeyConfig{
		Source:     config.KeySourcePrivateKey,
		PrivateKey: "0x" + testKey,
	}, big.NewInt(137))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"), keyProvider.GetAddress())

	_, err = NewKeyProvider(context.TODO(), config.KeyConfig{Source: "ledger"}, big.NewInt(1))
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestDialUnsupportedTransport(t *testing.T) {
	_, err := Dial(context.TODO(), config.Config{Network: config.NetworkConfig{RPCURL: "ftp://localhost"}})
	assert.Error(t, err)
}
