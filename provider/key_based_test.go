package provider

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/key/pk"
	"github.com/welthee/cryptowallet/nonce"
	"github.com/welthee/cryptowallet/transaction"
	"github.com/welthee/cryptowallet/transactor"
)

const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var testAddress = common.HexToAddress("0x2c7536E3605D9C16a7a3D7b1898e529396a65c23")

type fakeTransactor struct {
	transactor.Transactor

	hash common.Hash
	err  error

	calls  []string
	params []transactor.TransferParams
}

func (f *fakeTransactor) record(method string, params transactor.TransferParams) (transaction.Result, error) {
	f.calls = append(f.calls, method)
	f.params = append(f.params, params)
	if f.err != nil {
		return transaction.Result{}, f.err
	}
	return transaction.Result{
		Hash:  f.hash,
		From:  params.KeyProvider.GetAddress(),
		To:    params.To,
		Value: params.Amount,
		Nonce: params.Nonce,
	}, nil
}

func (f *fakeTransactor) TransferNative(ctx context.Context, params transactor.TransferParams) (transaction.Result, error) {
	return f.record("native", params)
}

func (f *fakeTransactor) TransferERC20(ctx context.Context, params transactor.TransferParams) (transaction.Result, error) {
	return f.record("erc20", params)
}

func (f *fakeTransactor) TransferERC721(ctx context.Context, params transactor.TransferParams) (transaction.Result, error) {
	return f.record("erc721", params)
}

func (f *fakeTransactor) SendTransaction(ctx context.Context, params transactor.TransferParams) (transaction.Result, error) {
	return f.record("send", params)
}

func newKeyBasedProvider(t *testing.T, count uint64, store nonce.Store) (*KeyBasedWalletProvider, *fakeTransactor) {
	t.Helper()
	keyProvider, err := pk.NewPrivateKeyProvider(testKey, big.NewInt(1))
	require.NoError(t, err)

	ft := &fakeTransactor{hash: common.HexToHash("0x1234")}
	calculator := nonce.NewCalculator(nonce.NewFixedNonceProvider(count), store)
	return NewKeyBasedWalletProvider(keyProvider, ft, calculator, nil), ft
}

func TestKeyBasedTransferNativeUsesCachedNonce(t *testing.T) {
	ctx := context.TODO()
	store := nonce.NewMemoryStore()
	require.NoError(t, store.SetLastNonce(ctx, testAddress, 5))

	p, ft := newKeyBasedProvider(t, 5, store)
	from := account.Account{Type: account.TypeKeyBased, Address: testAddress}
	recipient := common.HexToAddress("0xAAA")

	result, err := p.TransferNative(ctx, from, transaction.Payload{To: recipient, Amount: "0.1", Symbol: "ETH"})
	require.NoError(t, err)

	require.NotNil(t, result.Nonce)
	assert.Equal(t, uint64(6), *result.Nonce)
	assert.Equal(t, uint64(5), result.TransactionCount)
	assert.Equal(t, common.HexToHash("0x1234"), result.Hash)
	assert.Equal(t, testAddress, result.From)
	assert.Equal(t, recipient, result.To)
	assert.Equal(t, "100000000000000000", ft.params[0].Amount.String())

	last, err := store.LastNonce(ctx, testAddress)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(6), *last)
}

func TestKeyBasedTransferNativeLeavesNonceToNode(t *testing.T) {
	ctx := context.TODO()
	store := nonce.NewMemoryStore()
	p, ft := newKeyBasedProvider(t, 3, store)

	result, err := p.TransferNative(ctx, account.Account{Address: testAddress}, transaction.Payload{
		To:     common.HexToAddress("0xAAA"),
		Amount: "1",
	})
	require.NoError(t, err)

	assert.Nil(t, ft.params[0].Nonce)
	assert.Nil(t, result.Nonce)
	assert.Equal(t, uint64(3), result.TransactionCount)

	last, err := store.LastNonce(ctx, testAddress)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(3), *last)
}

func TestKeyBasedExplicitNonce(t *testing.T) {
	p, ft := newKeyBasedProvider(t, 2, nonce.NewMemoryStore())
	explicit := uint64(9)

	result, err := p.TransferNative(context.TODO(), account.Account{Address: testAddress}, transaction.Payload{
		To:     common.HexToAddress("0xAAA"),
		Amount: "1",
		Nonce:  &explicit,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, *ft.params[0].Nonce)
	assert.Equal(t, uint64(2), result.TransactionCount)
}

func TestKeyBasedTransferToken(t *testing.T) {
	usdc := common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	p, ft := newKeyBasedProvider(t, 0, nonce.NewMemoryStore())

	_, err := p.TransferToken(context.TODO(), account.Account{Address: testAddress}, transaction.Payload{
		To:              common.HexToAddress("0xAAA"),
		Amount:          "2.5",
		Decimals:        6,
		Symbol:          "USDC",
		ContractAddress: usdc,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"erc20"}, ft.calls)
	assert.Equal(t, "2500000", ft.params[0].Amount.String())
	assert.Equal(t, usdc, ft.params[0].ContractAddress)

	_, err = p.TransferToken(context.TODO(), account.Account{Address: testAddress}, transaction.Payload{
		To:              common.HexToAddress("0xAAA"),
		Amount:          "1",
		Decimals:        6,
		ContractAddress: usdc,
		Data:            []byte{0x01, 0x02},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"erc20", "send"}, ft.calls)
	assert.Equal(t, int64(0), ft.params[1].Amount.Int64())
}

func TestKeyBasedTransferCollectibleWithoutTokenID(t *testing.T) {
	p, ft := newKeyBasedProvider(t, 0, nonce.NewMemoryStore())

	_, err := p.TransferCollectible(context.TODO(), account.Account{Address: testAddress}, transaction.Payload{
		To:              common.HexToAddress("0xAAA"),
		ContractAddress: common.HexToAddress("0xC0"),
		TokenType:       transaction.TokenTypeERC721,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, transaction.ErrTokenIDNotFound)

	var txErr *transaction.Error
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, transaction.AssetKindERC721, txErr.Kind)
	assert.Empty(t, ft.calls)
}

func TestKeyBasedTransferFailureIsWrapped(t *testing.T) {
	ctx := context.TODO()
	store := nonce.NewMemoryStore()
	p, ft := newKeyBasedProvider(t, 1, store)
	ft.err = errors.New("insufficient funds for gas")

	_, err := p.TransferNative(ctx, account.Account{Address: testAddress}, transaction.Payload{
		To:     common.HexToAddress("0xAAA"),
		Amount: "1",
	})
	var txErr *transaction.Error
	require.True(t, errors.As(err, &txErr))
	assert.Equal(t, transaction.AssetKindNative, txErr.Kind)
	assert.Equal(t, "1", txErr.Fields["amount"])

	last, err := store.LastNonce(ctx, testAddress)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestKeyBasedSendTransaction(t *testing.T) {
	p, ft := newKeyBasedProvider(t, 7, nonce.NewMemoryStore())
	payload := transaction.Payload{To: common.HexToAddress("0xAAA"), Amount: "1", Symbol: "ETH"}

	_, err := p.SendTransaction(context.TODO(), payload, testAddress, nil)
	assert.ErrorIs(t, err, transaction.ErrInvalidFeeInfo)
	assert.Empty(t, ft.calls)

	result, err := p.SendTransaction(context.TODO(), payload, testAddress, &transaction.FeeInfo{
		Fee:      big.NewInt(42_000),
		GasPrice: big.NewInt(2),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"send"}, ft.calls)
	assert.Equal(t, uint64(21_000), ft.params[0].GasLimit)
	assert.Equal(t, uint64(7), *ft.params[0].Nonce)
	assert.Equal(t, uint64(7), result.TransactionCount)
}

func TestKeyBasedTransferCollectible(t *testing.T) {
	ctx := context.TODO()
	store := nonce.NewMemoryStore()
	require.NoError(t, store.SetLastNonce(ctx, testAddress, 4))
	p, ft := newKeyBasedProvider(t, 4, store)
	collectible := common.HexToAddress("0xC0")
	recipient := common.HexToAddress("0xAAA")

	result, err := p.TransferCollectible(ctx, account.Account{Address: testAddress}, transaction.Payload{
		To:              recipient,
		ContractAddress: collectible,
		TokenID:         "0x2a",
		TokenType:       transaction.TokenTypeERC721,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"erc721"}, ft.calls)
	assert.Equal(t, collectible, ft.params[0].ContractAddress)
	assert.Equal(t, recipient, ft.params[0].To)
	assert.Equal(t, int64(42), ft.params[0].TokenID.Int64())
	assert.Equal(t, uint64(5), *ft.params[0].Nonce)
	assert.Equal(t, common.HexToHash("0x1234"), result.Hash)
	assert.Equal(t, testAddress, result.From)

	last, err := store.LastNonce(ctx, testAddress)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(5), *last)
}

func TestKeyBasedTransferTokenWithoutContract(t *testing.T) {
	p, ft := newKeyBasedProvider(t, 0, nonce.NewMemoryStore())

	_, err := p.TransferToken(context.TODO(), account.Account{Address: testAddress}, transaction.Payload{
		To:       common.HexToAddress("0xAAA"),
		Amount:   "250",
		Symbol:   "USDC",
		Decimals: 6,
	})
	assert.ErrorIs(t, err, transaction.ErrMissingContractAddress)
	assert.Empty(t, ft.calls)
}

func TestKeyBasedRejectsForeignSender(t *testing.T) {
	p, ft := newKeyBasedProvider(t, 0, nonce.NewMemoryStore())
	payload := transaction.Payload{To: common.HexToAddress("0xAAA"), Amount: "1"}

	_, err := p.TransferNative(context.TODO(), account.Account{Address: common.HexToAddress("0xBEEF")}, payload)
	assert.ErrorIs(t, err, ErrSenderMismatch)
	assert.Empty(t, ft.calls)

	_, err = p.TransferNative(context.TODO(), account.Account{}, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"native"}, ft.calls)
}
