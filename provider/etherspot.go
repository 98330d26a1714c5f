package provider

import (
	"context"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/etherspot"
	"github.com/welthee/cryptowallet/transaction"
)

// EtherspotProvider submits transfers as atomic batches of the smart account,
// or through a payment channel when the payload asks for it.
type EtherspotProvider struct {
	service *etherspot.Service
	caller  bind.ContractCaller
	init    *initializer
}

// NewEtherspotProvider starts the smart account session in the background.
func NewEtherspotProvider(ctx context.Context, service *etherspot.Service, caller bind.ContractCaller) *EtherspotProvider {
	return &EtherspotProvider{
		service: service,
		caller:  caller,
		init: startInit(func() error {
			return service.Init(context.WithoutCancel(ctx))
		}),
	}
}

func (p *EtherspotProvider) GetInitStatus(ctx context.Context) error {
	return p.init.wait(ctx)
}

func (p *EtherspotProvider) Initialized() bool {
	return p.init.ready()
}

// Service exposes the smart account session.
func (p *EtherspotProvider) Service() *etherspot.Service {
	return p.service
}

// Destroy ends the smart account session.
func (p *EtherspotProvider) Destroy(ctx context.Context) error {
	return p.service.Logout(ctx)
}

func (p *EtherspotProvider) TransferNative(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	return p.send(ctx, from, payload, transaction.AssetKindNative)
}

func (p *EtherspotProvider) TransferToken(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	return p.send(ctx, from, payload, transaction.AssetKindERC20)
}

func (p *EtherspotProvider) TransferCollectible(ctx context.Context, from account.Account, payload transaction.Payload) (transaction.Result, error) {
	if payload.TokenID == "" {
		return transaction.Result{}, transaction.CatchError(transaction.ErrTokenIDNotFound, transaction.AssetKindERC721, map[string]interface{}{
			"to":              payload.To.Hex(),
			"contractAddress": payload.ContractAddress.Hex(),
		})
	}
	return p.send(ctx, from, payload, transaction.AssetKindERC721)
}

func (p *EtherspotProvider) sender(payload transaction.Payload, from account.Account) common.Address {
	if address, ok := p.service.GetAccountAddress(payload.Chain); ok {
		return address
	}
	return from.Address
}

func (p *EtherspotProvider) send(ctx context.Context, from account.Account, payload transaction.Payload, kind transaction.AssetKind) (transaction.Result, error) {
	if !p.Initialized() {
		return transaction.Result{}, transaction.ErrNotInitialized
	}
	payload = chainOrDefault(payload)
	sender := p.sender(payload, from)
	fields := map[string]interface{}{
		"chain":  string(payload.Chain),
		"from":   sender.Hex(),
		"to":     payload.To.Hex(),
		"amount": payload.Amount,
	}

	if payload.UsePaymentChannel {
		if _, ok := p.service.GetAccountAddress(payload.Chain); !ok {
			return transaction.Result{}, transaction.CatchError(etherspot.ErrNoAccount, transaction.AssetKindPayment, fields)
		}
		hash, err := p.service.SendP2PTransaction(ctx, payload.Chain, payload)
		if err != nil {
			return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindPayment, fields)
		}
		return transaction.Result{Hash: hash, From: sender, To: payload.To}, nil
	}

	transactions, err := transaction.MapToEthereumTransactions(ctx, p.caller, sender, payload)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, kind, fields)
	}

	batch, err := p.service.SendTransactions(ctx, payload.Chain, transactions, payload.GasToken)
	if err != nil {
		return transaction.Result{}, transaction.CatchError(err, transaction.AssetKindBatch, fields)
	}

	return transaction.Result{
		Hash:      batch.Hash,
		BatchHash: batch.Hash,
		From:      sender,
		To:        payload.To,
		TokenID:   payload.TokenID,
	}, nil
}

// EstimateTransaction registers the calls mapped from payload and quotes them.
func (p *EtherspotProvider) EstimateTransaction(ctx context.Context, from account.Account, payload transaction.Payload) (etherspot.BatchEstimate, error) {
	if !p.Initialized() {
		return etherspot.BatchEstimate{}, transaction.ErrNotInitialized
	}
	payload = chainOrDefault(payload)

	transactions, err := transaction.MapToEthereumTransactions(ctx, p.caller, p.sender(payload, from), payload)
	if err != nil {
		return etherspot.BatchEstimate{}, err
	}
	if err := p.service.SetTransactionsBatch(ctx, payload.Chain, transactions); err != nil {
		return etherspot.BatchEstimate{}, err
	}
	return p.service.EstimateTransactionsBatch(ctx, payload.Chain, payload.GasToken)
}
