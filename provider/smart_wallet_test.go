package provider

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/archanova"
	"github.com/welthee/cryptowallet/transaction"
)

type fakeRelay struct {
	archanova.SDK

	release  chan struct{}
	initErr  error
	initRuns atomic.Int32

	mu        sync.Mutex
	connected string
	estimated [][]transaction.EthereumTransaction
	speeds    []archanova.GasPriceStrategy
	withToken []bool
}

func (f *fakeRelay) Init(ctx context.Context, privateKey string) error {
	f.initRuns.Add(1)
	if f.release != nil {
		<-f.release
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.initErr
}

func (f *fakeRelay) ConnectAccount(ctx context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = accountID
	return nil
}

func (f *fakeRelay) EstimateAccountTransaction(ctx context.Context, transactions []transaction.EthereumTransaction, speed archanova.GasPriceStrategy) (*archanova.EstimatePayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimated = append(f.estimated, transactions)
	f.speeds = append(f.speeds, speed)
	return &archanova.EstimatePayload{GasFee: big.NewInt(21000), GasPrice: big.NewInt(1)}, nil
}

func (f *fakeRelay) SubmitAccountTransaction(ctx context.Context, estimate *archanova.EstimatePayload, payForGasWithToken bool) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.withToken = append(f.withToken, payForGasWithToken)
	return common.HexToHash("0xfeed"), nil
}

type fakeCodeCaller struct {
	code map[common.Address][]byte
}

func (f *fakeCodeCaller) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return f.code[contract], nil
}

func (f *fakeCodeCaller) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, errors.New("execution reverted")
}

// contractCode fakes deployed bytecode exposing the given 4 byte selectors.
func contractCode(selectors ...string) []byte {
	code := []byte{0x60, 0x80, 0x60, 0x40}
	for _, s := range selectors {
		code = append(code, 0x63)
		code = append(code, common.Hex2Bytes(s)...)
	}
	return code
}

var smartAccount = account.Account{
	ID:      "smart-1",
	Type:    account.TypeArchanova,
	Address: common.HexToAddress("0x5A"),
}

func readySmartWallet(t *testing.T, relay *fakeRelay) *SmartWalletProvider {
	t.Helper()
	p := NewSmartWalletProvider(context.TODO(), archanova.NewService(relay, nil), testKey, smartAccount, nil)
	require.NoError(t, p.GetInitStatus(context.TODO()))
	require.True(t, p.Initialized())
	return p
}

func TestSmartWalletNotInitialized(t *testing.T) {
	relay := &fakeRelay{release: make(chan struct{})}
	p := NewSmartWalletProvider(context.TODO(), archanova.NewService(relay, nil), testKey, smartAccount, nil)

	_, err := p.TransferNative(context.TODO(), smartAccount, transaction.Payload{To: common.HexToAddress("0xAAA"), Amount: "1"})
	assert.ErrorIs(t, err, transaction.ErrNotInitialized)
	_, err = p.TransferToken(context.TODO(), smartAccount, transaction.Payload{To: common.HexToAddress("0xAAA"), Amount: "1"})
	assert.ErrorIs(t, err, transaction.ErrNotInitialized)
	_, err = p.TransferCollectible(context.TODO(), smartAccount, transaction.Payload{To: common.HexToAddress("0xAAA"), TokenID: "1"})
	assert.ErrorIs(t, err, transaction.ErrNotInitialized)

	close(relay.release)
	require.NoError(t, p.GetInitStatus(context.TODO()))
	assert.Equal(t, "smart-1", relay.connected)
}

func TestSmartWalletInitRunsOnceForConcurrentWaiters(t *testing.T) {
	relay := &fakeRelay{release: make(chan struct{})}
	p := NewSmartWalletProvider(context.TODO(), archanova.NewService(relay, nil), testKey, smartAccount, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- p.GetInitStatus(context.TODO())
		}()
	}
	close(relay.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), relay.initRuns.Load())
}

func TestSmartWalletInitFailure(t *testing.T) {
	relay := &fakeRelay{initErr: errors.New("relayer unreachable")}
	p := NewSmartWalletProvider(context.TODO(), archanova.NewService(relay, nil), testKey, smartAccount, nil)

	assert.EqualError(t, p.GetInitStatus(context.TODO()), "relayer unreachable")
	assert.False(t, p.Initialized())
	assert.Empty(t, relay.connected)
}

func TestSmartWalletInitStatusHonoursContext(t *testing.T) {
	relay := &fakeRelay{release: make(chan struct{})}
	defer close(relay.release)
	p := NewSmartWalletProvider(context.TODO(), archanova.NewService(relay, nil), testKey, smartAccount, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.GetInitStatus(ctx), context.DeadlineExceeded)
}

func TestSmartWalletTransferNative(t *testing.T) {
	relay := &fakeRelay{}
	p := readySmartWallet(t, relay)
	recipient := common.HexToAddress("0xAAA")

	result, err := p.TransferNative(context.TODO(), smartAccount, transaction.Payload{
		To:      recipient,
		Amount:  "0.5",
		TxSpeed: transaction.SpeedFast,
	})
	require.NoError(t, err)

	assert.Equal(t, common.HexToHash("0xfeed"), result.Hash)
	assert.Equal(t, smartAccount.Address, result.From)
	assert.Equal(t, recipient, result.To)
	assert.Nil(t, result.Nonce)
	require.Len(t, relay.estimated, 1)
	assert.Equal(t, recipient, relay.estimated[0][0].To)
	assert.Equal(t, "500000000000000000", relay.estimated[0][0].Value.String())
	assert.Equal(t, archanova.GasPriceStrategyFast, relay.speeds[0])
	assert.Equal(t, []bool{false}, relay.withToken)
}

func TestSmartWalletTransferToken(t *testing.T) {
	relay := &fakeRelay{}
	p := readySmartWallet(t, relay)
	plr := common.HexToAddress("0xe3818504c1B32bF1557b16C238B2E01Fd3149C17")
	recipient := common.HexToAddress("0xAAA")

	result, err := p.TransferToken(context.TODO(), smartAccount, transaction.Payload{
		To:              recipient,
		Amount:          "3",
		Decimals:        18,
		Symbol:          "PLR",
		ContractAddress: plr,
		GasToken:        &transaction.GasToken{Address: plr, Symbol: "PLR", Decimals: 18},
	})
	require.NoError(t, err)

	call := relay.estimated[0][0]
	assert.Equal(t, plr, call.To)
	assert.Equal(t, int64(0), call.Value.Int64())
	expected, err := transaction.ERC20ABI.Pack("transfer", recipient, big.NewInt(0).Mul(big.NewInt(3), big.NewInt(1e18)))
	require.NoError(t, err)
	assert.Equal(t, expected, call.Data)
	assert.Equal(t, archanova.GasPriceStrategyAvg, relay.speeds[0])
	assert.Equal(t, []bool{true}, relay.withToken)
	assert.Equal(t, recipient, result.To)
}

func TestSmartWalletTransferCollectibleWithoutTokenID(t *testing.T) {
	relay := &fakeRelay{}
	p := readySmartWallet(t, relay)

	_, err := p.TransferCollectible(context.TODO(), smartAccount, transaction.Payload{
		To:              common.HexToAddress("0xAAA"),
		ContractAddress: common.HexToAddress("0xC0"),
	})
	assert.ErrorIs(t, err, transaction.ErrTokenIDNotFound)
	assert.Empty(t, relay.estimated)
}

func TestSmartWalletInitSurvivesCancelledContext(t *testing.T) {
	relay := &fakeRelay{release: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	p := NewSmartWalletProvider(ctx, archanova.NewService(relay, nil), testKey, smartAccount, nil)
	cancel()
	close(relay.release)

	require.NoError(t, p.GetInitStatus(context.TODO()))
	assert.True(t, p.Initialized())
	assert.Equal(t, "smart-1", relay.connected)
}

func TestSmartWalletTransferTokenWithoutContract(t *testing.T) {
	relay := &fakeRelay{}
	p := readySmartWallet(t, relay)

	_, err := p.TransferToken(context.TODO(), smartAccount, transaction.Payload{
		To:       common.HexToAddress("0xAAA"),
		Amount:   "250",
		Symbol:   "USDC",
		Decimals: 6,
	})
	assert.ErrorIs(t, err, transaction.ErrMissingContractAddress)
	assert.Empty(t, relay.estimated)
}

func TestSmartWalletTransferCollectible(t *testing.T) {
	collectible := common.HexToAddress("0x7777777777777777777777777777777777777777")
	wallet := common.HexToAddress("0xAAA")
	vault := common.HexToAddress("0xBBB")

	tests := []struct {
		name      string
		recipient common.Address
		selector  string
		method    transaction.TransferMethod
	}{
		{name: "wallet recipient", recipient: wallet, selector: "42842e0e", method: transaction.TransferMethodSafeTransferFrom},
		{name: "contract recipient", recipient: vault, selector: "23b872dd", method: transaction.TransferMethodTransferFrom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{}
			caller := &fakeCodeCaller{code: map[common.Address][]byte{
				collectible: contractCode("42842e0e", "23b872dd"),
				vault:       contractCode(),
			}}
			p := NewSmartWalletProvider(context.TODO(), archanova.NewService(relay, nil), testKey, smartAccount, caller)
			require.NoError(t, p.GetInitStatus(context.TODO()))

			result, err := p.TransferCollectible(context.TODO(), smartAccount, transaction.Payload{
				To:              tt.recipient,
				ContractAddress: collectible,
				TokenID:         "42",
				TokenType:       transaction.TokenTypeERC721,
			})
			require.NoError(t, err)

			assert.Equal(t, common.HexToHash("0xfeed"), result.Hash)
			assert.Equal(t, smartAccount.Address, result.From)
			assert.Equal(t, tt.recipient, result.To)
			assert.Equal(t, "42", result.TokenID)

			require.Len(t, relay.estimated, 1)
			call := relay.estimated[0][0]
			assert.Equal(t, collectible, call.To)
			assert.Equal(t, int64(0), call.Value.Int64())
			assert.Equal(t, common.Hex2Bytes(tt.selector), call.Data[:4])

			expected, err := transaction.EncodeCollectibleTransfer(tt.method, smartAccount.Address, tt.recipient, big.NewInt(42))
			require.NoError(t, err)
			assert.Equal(t, expected, call.Data)
		})
	}
}

func TestSmartWalletEstimateTransaction(t *testing.T) {
	relay := &fakeRelay{}
	p := readySmartWallet(t, relay)
	plr := common.HexToAddress("0xe3818504c1B32bF1557b16C238B2E01Fd3149C17")

	estimate, err := p.EstimateTransaction(context.TODO(), smartAccount, transaction.Payload{
		To:              common.HexToAddress("0xAAA"),
		Amount:          "1",
		Symbol:          "PLR",
		Decimals:        18,
		ContractAddress: plr,
		TxSpeed:         transaction.SpeedFast,
		SequentialTransactions: []transaction.Payload{
			{To: common.HexToAddress("0xBBB"), Amount: "0.1", Symbol: "ETH"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "21000", estimate.Cost.String())
	require.Len(t, relay.estimated, 1)
	require.Len(t, relay.estimated[0], 2)
	assert.Equal(t, plr, relay.estimated[0][0].To)
	assert.Equal(t, common.HexToAddress("0xBBB"), relay.estimated[0][1].To)
	assert.Equal(t, archanova.GasPriceStrategyFast, relay.speeds[0])
	assert.Empty(t, relay.withToken)

	_, err = p.EstimateTransaction(context.TODO(), smartAccount, transaction.Payload{
		To:     common.HexToAddress("0xAAA"),
		Amount: "1",
		Symbol: "USDC",
	})
	assert.ErrorIs(t, err, transaction.ErrMissingContractAddress)
}
