package transactor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
	"github.com/welthee/cryptowallet/key"
	"github.com/welthee/cryptowallet/transaction"
)

var (
	ErrMissingKeyProvider = errors.New("key provider is required")
	ErrMissingAmount      = errors.New("amount is required")
)

// Backend is the part of an ethereum client used to build, sign and track
// transfers. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractCaller
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type TransferParams struct {
	// sender account and gas provider
	KeyProvider key.Provider
	// receiver of the asset
	To common.Address
	// amount in the smallest unit of the asset
	Amount *big.Int
	// token or collectible contract
	ContractAddress common.Address
	TokenID         *big.Int
	Data            []byte
	// explicit nonce, the pending nonce is used when nil
	Nonce *uint64
	// estimated when zero
	GasLimit uint64
	// a legacy transaction is sent when set, otherwise fee caps are used
	GasPrice *big.Int
	Speed    transaction.Speed
	// sign without broadcasting
	SignOnly bool
}

// Transactor contains methods needed to send and verify transactions
type Transactor interface {
	// TransferNative sends the native asset
	TransferNative(ctx context.Context, params TransferParams) (transaction.Result, error)
	// TransferERC20 sends an ERC-20 token held at params.ContractAddress
	TransferERC20(ctx context.Context, params TransferParams) (transaction.Result, error)
	// TransferERC721 sends the collectible params.TokenID of params.ContractAddress
	TransferERC721(ctx context.Context, params TransferParams) (transaction.Result, error)
	// SendTransaction sends an arbitrary call with params.Data
	SendTransaction(ctx context.Context, params TransferParams) (transaction.Result, error)
	// VerifyTx checks if transaction is mined using the given transaction hash
	VerifyTx(ctx context.Context, txHash string) (bool, error)
	// BalanceAt returns the wei balance of the given account taken from the latest known block
	BalanceAt(ctx context.Context, accountAddr common.Address) (*big.Int, error)
	// BalanceOf returns the ERC-20 balance of the given account
	BalanceOf(ctx context.Context, accountAddr common.Address, erc20Address common.Address) (*big.Int, error)
	// GetGasCapValues retrieves the network's suggested tip and fee caps for the given speed
	GetGasCapValues(ctx context.Context, speed transaction.Speed) (*big.Int, *big.Int, error)
}

type evmTransactor struct {
	client       Backend
	gasTracker   GasTracker
	pollInterval time.Duration
}

// NewEvmTransactor utility method to create a EVM transactor. The gas tracker
// is optional; without it transactions are priced with the node's suggested gas price.
func NewEvmTransactor(client Backend, tracker GasTracker) Transactor {
	return evmTransactor{
		client:       client,
		gasTracker:   tracker,
		pollInterval: 10 * time.Second,
	}
}

func (t evmTransactor) TransferNative(ctx context.Context, params TransferParams) (transaction.Result, error) {
	if params.Amount == nil {
		return transaction.Result{}, ErrMissingAmount
	}
	return t.send(ctx, params, params.To, params.Amount, params.Data)
}

func (t evmTransactor) TransferERC20(ctx context.Context, params TransferParams) (transaction.Result, error) {
	if params.Amount == nil {
		return transaction.Result{}, ErrMissingAmount
	}
	data, err := transaction.ERC20ABI.Pack("transfer", params.To, params.Amount)
	if err != nil {
		return transaction.Result{}, err
	}

	result, err := t.send(ctx, params, params.ContractAddress, big.NewInt(0), data)
	if err != nil {
		return transaction.Result{}, err
	}
	result.To = params.To
	result.Value = params.Amount
	return result, nil
}

func (t evmTransactor) TransferERC721(ctx context.Context, params TransferParams) (transaction.Result, error) {
	if params.KeyProvider == nil {
		return transaction.Result{}, ErrMissingKeyProvider
	}
	if params.TokenID == nil {
		return transaction.Result{}, transaction.ErrTokenIDNotFound
	}

	data := params.Data
	if len(data) == 0 {
		var err error
		data, err = transaction.BuildCollectibleTransferData(ctx, t.client, params.KeyProvider.GetAddress(),
			params.To, params.ContractAddress, params.TokenID)
		if err != nil {
			return transaction.Result{}, err
		}
	}

	result, err := t.send(ctx, params, params.ContractAddress, big.NewInt(0), data)
	if err != nil {
		return transaction.Result{}, err
	}
	result.To = params.To
	result.TokenID = params.TokenID.String()
	return result, nil
}

func (t evmTransactor) SendTransaction(ctx context.Context, params TransferParams) (transaction.Result, error) {
	value := params.Amount
	if value == nil {
		value = big.NewInt(0)
	}
	return t.send(ctx, params, params.To, value, params.Data)
}

func (t evmTransactor) send(ctx context.Context, params TransferParams, to common.Address, value *big.Int, data []byte) (transaction.Result, error) {
	if params.KeyProvider == nil {
		return transaction.Result{}, ErrMissingKeyProvider
	}
	from := params.KeyProvider.GetAddress()

	var nonce uint64
	if params.Nonce != nil {
		nonce = *params.Nonce
	} else {
		pending, err := t.client.PendingNonceAt(ctx, from)
		if err != nil {
			return transaction.Result{}, fmt.Errorf("failed to get pending nonce: %w", err)
		}
		nonce = pending
	}

	gasLimit := params.GasLimit
	if gasLimit == 0 {
		estimated, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
			From:  from,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return transaction.Result{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimated
	}

	txData, err := t.txData(ctx, params, nonce, gasLimit, to, value, data)
	if err != nil {
		return transaction.Result{}, err
	}

	transactOpts := params.KeyProvider.GetTransactOpts()
	tx, err := transactOpts.Signer(transactOpts.From, types.NewTx(txData))
	if err != nil {
		return transaction.Result{}, err
	}

	result := transaction.Result{
		Hash:  tx.Hash(),
		From:  from,
		To:    to,
		Value: value,
		Nonce: &nonce,
	}

	if params.SignOnly {
		raw, err := tx.MarshalBinary()
		if err != nil {
			return transaction.Result{}, err
		}
		result.SignedTransaction = raw
		return result, nil
	}

	if err := t.client.SendTransaction(ctx, tx); err != nil {
		return transaction.Result{}, err
	}
	log.Info().
		Str("hash", tx.Hash().Hex()).
		Str("from", from.Hex()).
		Uint64("nonce", nonce).
		Msg("sent transaction")

	return result, nil
}

func (t evmTransactor) txData(ctx context.Context, params TransferParams, nonce uint64, gasLimit uint64,
	to common.Address, value *big.Int, data []byte) (types.TxData, error) {
	if params.GasPrice == nil && t.gasTracker != nil {
		gasTipCapValue, gasFeeCapValue, err := t.GetGasCapValues(ctx, params.Speed)
		if err != nil {
			return nil, err
		}
		return &types.DynamicFeeTx{
			Nonce:     nonce,
			GasTipCap: gasTipCapValue,
			GasFeeCap: gasFeeCapValue,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}, nil
	}

	gasPrice := params.GasPrice
	if gasPrice == nil {
		suggested, err := t.client.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}
		gasPrice = suggested
	}
	return &types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     data,
	}, nil
}

func (t evmTransactor) VerifyTx(ctx context.Context, txHash string) (bool, error) {
	_, ok := ctx.Deadline()
	if !ok {
		return false, errors.New("context deadline not set")
	}

	if txHash == "" {
		return false, errors.New("tx is empty")
	}

	queryTicker := time.NewTicker(t.pollInterval)
	defer queryTicker.Stop()

	for {
		receipt, err := t.client.TransactionReceipt(ctx, common.HexToHash(txHash))
		if receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return false, nil
			}
			log.Debug().Msgf("found transaction receipt for tx=%s: status=%d", txHash, receipt.Status)
			return true, nil
		}
		if err != nil {
			log.Warn().Err(err).Str("tx", txHash).Msg("failed to get receipt for tx")
		}

		select {
		case <-ctx.Done():
			log.Warn().Err(ctx.Err()).Str("tx", txHash).Msg("failed to get receipt status")
			return false, ctx.Err()
		case <-queryTicker.C:
		}
	}
}

func (t evmTransactor) BalanceAt(ctx context.Context, accountAddr common.Address) (*big.Int, error) {
	balance, err := t.client.BalanceAt(ctx, accountAddr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance wei: %w", err)
	}

	return balance, nil
}

func (t evmTransactor) BalanceOf(ctx context.Context, accountAddr common.Address, erc20Address common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(erc20Address, *transaction.ERC20ABI, t.client, nil, nil)

	var out []interface{}
	err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", accountAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get token balance: %w", err)
	}

	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

func (t evmTransactor) GetGasCapValues(ctx context.Context, speed transaction.Speed) (*big.Int, *big.Int, error) {
	if t.gasTracker == nil {
		return nil, nil, errors.New("gas tracker not configured")
	}
	gasTrackerResponse, err := t.gasTracker.GetSuggestedGasPrice(ctx)
	if err != nil {
		return nil, nil, err
	}

	fee := gasTrackerResponse.ForSpeed(speed)
	gasTipCapValue, ok := new(big.Int).SetString(formatFloat(fee.MaxPriorityFee, 9), 10)
	if !ok {
		return nil, nil, errors.New("invalid gasTipCapValue")
	}
	gasFeeCapValue, ok := new(big.Int).SetString(formatFloat(fee.MaxFee, 9), 10)
	if !ok {
		return nil, nil, errors.New("invalid gasFeeCapValue")
	}
	return gasTipCapValue, gasFeeCapValue, nil
}

func formatFloat(num float64, decimal int) string {
	d := float64(1)
	if decimal > 0 {
		d = math.Pow10(decimal)
	}
	return strconv.FormatFloat(math.Round(num*d), 'f', -1, 64)
}
