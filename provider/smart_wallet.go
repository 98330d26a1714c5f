package provider

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/archanova"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/transaction"
)

// SmartWalletProvider relays single calls through the smart wallet account.
// The relayer owns nonce management.
type SmartWalletProvider struct {
	service *archanova.Service
	caller  bind.ContractCaller
	init    *initializer
}

// NewSmartWalletProvider starts connecting account in the background. Transfers
// fail with transaction.ErrNotInitialized until GetInitStatus returns nil.
func NewSmartWalletProvider(ctx context.Context, service *archanova.Service, privateKey string, acc account.Account, caller bind.ContractCaller) *SmartWalletProvider {
	return &SmartWalletProvider{
		service: service,
		caller:  caller,
		init: startInit(func() error {
			ctx := context.WithoutCancel(ctx)
			if err := service.Init(ctx, privateKey); err != nil {
				return err
			}
			return service.ConnectAccount(ctx, acc.ID)
		}),
	}
}

func (p *SmartWalletProvider) GetInitStatus(ctx context.Context) error {
	return p.init.wait(ctx)
}

func (p *SmartWalletProvider) Initialized() bool {
	return p.init.ready()
}

// Service exposes the relay session, e.g. for migrations.
func (p *SmartWalletProvider) Service() *archanova.Service {
	return p.service
}

func (p *SmartWalletProvider) TransferNative(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	if !p.Initialized() {
		return transaction.Result{}, transaction.ErrNotInitialized
	}
	payload = chainOrDefault(payload)
	fields := map[string]interface{}{"to": payload.To.Hex(), "amount": payload.Amount}

	value, err := transaction.ParseUnits(payload.Amount, chain.NativeAsset(payload.Chain).Decimals)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, fields)
	}

	hash, err := p.service.TransferAsset(ctx, archanova.TransferRequest{
		Recipient: payload.To,
		Value:     value,
		Data:      payload.Data,
		Speed:     archanova.MapTransactionSpeed(payload.TxSpeed),
		GasToken:  payload.GasToken,
	})
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindNative, fields)
	}

	return transaction.Result{
		Hash:  hash,
		From:  from.Address,
		To:    payload.To,
		Value: value,
	}, nil
}

func (p *SmartWalletProvider) TransferToken(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	if !p.Initialized() {
		return transaction.Result{}, transaction.ErrNotInitialized
	}
	fields := map[string]interface{}{
		"to":              payload.To.Hex(),
		"amount":          payload.Amount,
		"decimals":        payload.Decimals,
		"contractAddress": payload.ContractAddress.Hex(),
	}

	value, err := transaction.ParseUnits(payload.Amount, payload.Decimals)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
	}

	recipient := payload.To
	data := payload.Data
	relayedValue := value
	if len(data) == 0 {
		if chain.IsNativeAsset(payload.ContractAddress) {
			return transaction.Result{}, transaction.CatchError(transaction.ErrMissingContractAddress, transaction.AssetKindERC20, fields)
		}
		data, err = transaction.ERC20ABI.Pack("transfer", payload.To, value)
		if err != nil {
			return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
		}
		recipient = payload.ContractAddress
		relayedValue = big.NewInt(0)
	}

	hash, err := p.service.TransferAsset(ctx, archanova.TransferRequest{
		Recipient: recipient,
		Value:     relayedValue,
		Data:      data,
		Speed:     archanova.MapTransactionSpeed(payload.TxSpeed),
		GasToken:  payload.GasToken,
	})
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC20, fields)
	}

	return transaction.Result{
		Hash:  hash,
		From:  from.Address,
		To:    payload.To,
		Value: value,
	}, nil
}

func (p *SmartWalletProvider) TransferCollectible(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	if !p.Initialized() {
		return transaction.Result{}, transaction.ErrNotInitialized
	}
	fields := map[string]interface{}{
		"from":            from.Address.Hex(),
		"to":              payload.To.Hex(),
		"tokenId":         payload.TokenID,
		"contractAddress": payload.ContractAddress.Hex(),
	}

	tokenID, err := transaction.ParseTokenID(payload.TokenID)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}
	data, err := transaction.BuildCollectibleTransferData(ctx, p.caller, from.Address, payload.To, payload.ContractAddress, tokenID)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}

	hash, err := p.service.TransferAsset(ctx, archanova.TransferRequest{
		Recipient: payload.ContractAddress,
		Value:     big.NewInt(0),
		Data:      data,
		Speed:     archanova.MapTransactionSpeed(payload.TxSpeed),
		GasToken:  payload.GasToken,
	})
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindERC721, fields)
	}

	return transaction.Result{
		Hash:    hash,
		From:    from.Address,
		To:      payload.To,
		TokenID: payload.TokenID,
		Value:   big.NewInt(0),
	}, nil
}

// EstimateTransaction quotes the relayed execution of the calls mapped from payload.
func (p *SmartWalletProvider) EstimateTransaction(ctx context.Context, from account.Account, payload transaction.Payload) (archanova.Estimate, error) {
	if !p.Initialized() {
		return archanova.Estimate{}, transaction.ErrNotInitialized
	}
	payload = chainOrDefault(payload)

	transactions, err := transaction.MapToEthereumTransactions(ctx, p.caller, from.Address, payload)
	if err != nil {
		return archanova.Estimate{}, err
	}
	return p.service.EstimateAccountTransactions(ctx, transactions, archanova.MapTransactionSpeed(payload.TxSpeed))
}
