package provider

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/key"
	"github.com/welthee/cryptowallet/nonce"
	"github.com/welthee/cryptowallet/transaction"
	"github.com/welthee/cryptowallet/transactor"
)

var ErrSenderMismatch = errors.New("sender does not match the signing key")

// KeyBasedWalletProvider signs and sends transfers of a key controlled
// account. It owns nonce sequencing; callers serialize transfers per address.
type KeyBasedWalletProvider struct {
	keyProvider key.Provider
	transactor  transactor.Transactor
	nonces      *nonce.Calculator
	caller      bind.ContractCaller
}

// NewKeyBasedWalletProvider creates a provider ready for transfers. caller is
// used to map payloads holding collectibles and may be nil otherwise.
func NewKeyBasedWalletProvider(keyProvider key.Provider, t transactor.Transactor, nonces *nonce.Calculator, caller bind.ContractCaller) *KeyBasedWalletProvider {
	return &KeyBasedWalletProvider{
		keyProvider: keyProvider,
		transactor:  t,
		nonces:      nonces,
		caller:      caller,
	}
}

func (p *KeyBasedWalletProvider) GetInitStatus(ctx context.Context) error {
	return nil
}

func (p *KeyBasedWalletProvider) Initialized() bool {
	return true
}

// Address returns the address signing every transfer.
func (p *KeyBasedWalletProvider) Address() common.Address {
	return p.keyProvider.GetAddress()
}

// GetTransactionCount returns the pending transaction count of address.
func (p *KeyBasedWalletProvider) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return p.nonces.TransactionCount(ctx, address)
}

// CalculateNonce resolves the nonce of the next transfer from address.
func (p *KeyBasedWalletProvider) CalculateNonce(ctx context.Context, address common.Address, signOnly bool) (nonce.Result, error) {
	return p.nonces.Calculate(ctx, address, signOnly)
}

// resolveNonce honours an explicit payload nonce but still queries the
// transaction count for bookkeeping.
func (p *KeyBasedWalletProvider) resolveNonce(ctx context.Context, from common.Address, payload transaction.Payload) (nonce.Result, error) {
	if payload.Nonce != nil {
		count, err := p.nonces.TransactionCount(ctx, from)
		if err != nil {
			return nonce.Result{}, err
		}
		return nonce.Result{Nonce: payload.Nonce, TransactionCount: count}, nil
	}
	return p.nonces.Calculate(ctx, from, payload.SignOnly)
}

func (p *KeyBasedWalletProvider) params(payload transaction.Payload, n nonce.Result) transactor.TransferParams {
	return transactor.TransferParams{
		KeyProvider: p.keyProvider,
		To:          payload.To,
		Nonce:       n.Nonce,
		GasLimit:    payload.GasLimit,
		GasPrice:    payload.GasPrice,
		Speed:       payload.TxSpeed,
		SignOnly:    payload.SignOnly,
	}
}

// complete attaches the transaction count and records the used nonce.
func (p *KeyBasedWalletProvider) complete(ctx context.Context, from common.Address, n nonce.Result, result transaction.Result) transaction.Result {
	result.TransactionCount = n.TransactionCount
	if result.Nonce == nil {
		result.Nonce = n.Nonce
	}

	err := p.nonces.Commit(ctx, from, nonce.Result{Nonce: result.Nonce, TransactionCount: n.TransactionCount})
	if err != nil {
		log.Warn().Err(err).Str("address", from.Hex()).Msg("failed to store last nonce")
	}
	return result
}

// sender is the signing key address. A non-zero from address must match it.
func (p *KeyBasedWalletProvider) sender(from account.Account) (common.Address, error) {
	address := p.keyProvider.GetAddress()
	if from.Address != (common.Address{}) && from.Address != address {
		log.Warn().
			Str("from", from.Address.Hex()).
			Str("key", address.Hex()).
			Msg("transfer sender does not match the signing key")
		return common.Address{}, ErrSenderMismatch
	}
	return address, nil
}

func (p *KeyBasedWalletProvider) TransferNative(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	payload = chainOrDefault(payload)
	fields := map[string]interface{}{"to": payload.To.Hex(), "amount": payload.Amount}
	sender, err := p.sender(from)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, fields)
	}

	value, err := transaction.ParseUnits(payload.Amount, chain.NativeAsset(payload.Chain).Decimals)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, fields)
	}

	n, err := p.resolveNonce(ctx, sender, payload)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, fields)
	}

	params := p.params(payload, n)
	params.Amount = value
	params.Data = payload.Data
	result, err := p.transactor.TransferNative(ctx, params)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, fields)
	}
	return p.complete(ctx, sender, n, result), nil
}

func (p *KeyBasedWalletProvider) TransferToken(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	payload = chainOrDefault(payload)
	fields := map[string]interface{}{
		"to":              payload.To.Hex(),
		"amount":          payload.Amount,
		"decimals":        payload.Decimals,
		"contractAddress": payload.ContractAddress.Hex(),
	}
	sender, err := p.sender(from)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
	}
	if len(payload.Data) == 0 && chain.IsNativeAsset(payload.ContractAddress) {
		return transaction.Result{}, transaction.CatchError(transaction.ErrMissingContractAddress, transaction.AssetKindERC20, fields)
	}

	value, err := transaction.ParseUnits(payload.Amount, payload.Decimals)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
	}

	n, err := p.resolveNonce(ctx, sender, payload)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
	}

	params := p.params(payload, n)
	params.Amount = value
	params.ContractAddress = payload.ContractAddress

	var result transaction.Result
	if len(payload.Data) > 0 {
		params.Amount = big.NewInt(0)
		params.Data = payload.Data
		result, err = p.transactor.SendTransaction(ctx, params)
	} else {
		result, err = p.transactor.TransferERC20(ctx, params)
	}
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
	}
	return p.complete(ctx, sender, n, result), nil
}

func (p *KeyBasedWalletProvider) TransferCollectible(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	fields := map[string]interface{}{
		"to":              payload.To.Hex(),
		"tokenId":         payload.TokenID,
		"contractAddress": payload.ContractAddress.Hex(),
	}
	sender, err := p.sender(from)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}

	tokenID, err := transaction.ParseTokenID(payload.TokenID)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}

	n, err := p.resolveNonce(ctx, sender, payload)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}

	params := p.params(payload, n)
	params.ContractAddress = payload.ContractAddress
	params.TokenID = tokenID
	result, err := p.transactor.TransferERC721(ctx, params)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}
	return p.complete(ctx, sender, n, result), nil
}

// SendTransaction sends the first call mapped from payload with the gas limit
// implied by feeInfo and the current transaction count as nonce.
func (p *KeyBasedWalletProvider) SendTransaction(ctx context.Context, payload transaction.Payload, from common.Address, feeInfo *transaction.FeeInfo) (transaction.Result, error) {
	if feeInfo == nil {
		log.Error().Str("from", from.Hex()).Msg("cannot send transaction without fee info")
		return transaction.Result{}, transaction.ErrInvalidFeeInfo
	}
	gasLimit, err := feeInfo.GasLimit()
	if err != nil {
		log.Error().Err(err).Str("from", from.Hex()).Msg("cannot derive gas limit from fee info")
		return transaction.Result{}, err
	}

	count, err := p.nonces.TransactionCount(ctx, from)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, nil)
	}

	transactions, err := transaction.MapToEthereumTransactions(ctx, p.caller, from, chainOrDefault(payload))
	if err != nil {
		return transaction.Result{}, err
	}
	tx := transactions[0]

	result, err := p.transactor.SendTransaction(ctx, transactor.TransferParams{
		KeyProvider: p.keyProvider,
		To:          tx.To,
		Amount:      tx.Value,
		Data:        tx.Data,
		Nonce:       &count,
		GasLimit:    gasLimit,
		GasPrice:    feeInfo.GasPrice,
	})
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, map[string]interface{}{
			"to":   tx.To.Hex(),
			"from": from.Hex(),
		})
	}
	return p.complete(ctx, from, nonce.Result{Nonce: &count, TransactionCount: count}, result), nil
}
