package transaction

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/welthee/cryptowallet/chain"
)

// BuildEthereumTransaction decides the on-chain shape of a single transfer.
// The caller is only used for collectible transfers and may be nil otherwise.
func BuildEthereumTransaction(ctx context.Context, caller bind.ContractCaller, from common.Address, p Payload) (EthereumTransaction, error) {
	if p.IsCollectible() {
		if p.TokenID == "" {
			return EthereumTransaction{}, ErrTokenIDNotFound
		}
		return BuildCollectibleTransaction(ctx, caller, from, p.To, p.ContractAddress, p.TokenID)
	}

	if p.IsNativeAsset() {
		native := chain.NativeAsset(p.Chain)
		value, err := ParseUnits(p.Amount, native.Decimals)
		if err != nil {
			return EthereumTransaction{}, err
		}
		return EthereumTransaction{To: p.To, Value: value, Data: p.Data}, nil
	}

	to := p.To
	data := p.Data
	if len(data) == 0 {
		if chain.IsNativeAsset(p.ContractAddress) {
			return EthereumTransaction{}, ErrMissingContractAddress
		}
		amount, err := ParseUnits(p.Amount, p.Decimals)
		if err != nil {
			return EthereumTransaction{}, err
		}
		data, err = ERC20ABI.Pack("transfer", p.To, amount)
		if err != nil {
			return EthereumTransaction{}, err
		}
		to = p.ContractAddress
	}

	return EthereumTransaction{To: to, Value: big.NewInt(0), Data: data}, nil
}

// MapToEthereumTransactions expands a payload and its sequential transactions,
// depth first, into one flat list preserving declaration order.
func MapToEthereumTransactions(ctx context.Context, caller bind.ContractCaller, from common.Address, p Payload) ([]EthereumTransaction, error) {
	primary, err := BuildEthereumTransaction(ctx, caller, from, p)
	if err != nil {
		return nil, err
	}

	transactions := []EthereumTransaction{primary}
	for _, sequential := range p.SequentialTransactions {
		if sequential.Chain == "" {
			sequential.Chain = p.Chain
		}
		mapped, err := MapToEthereumTransactions(ctx, caller, from, sequential)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, mapped...)
	}

	return transactions, nil
}

// MapTransactionsToPayload rebuilds a payload from a low level batch: the first
// call becomes the primary transfer and the rest its sequential transactions.
// Amounts are expressed in the chain native asset.
func MapTransactionsToPayload(c chain.Chain, transactions []EthereumTransaction) (Payload, error) {
	if len(transactions) == 0 {
		return Payload{}, ErrNoTransactions
	}

	native := chain.NativeAsset(c)
	toPayload := func(tx EthereumTransaction) Payload {
		return Payload{
			To:       tx.To,
			Amount:   FormatUnits(tx.Value, native.Decimals),
			Symbol:   native.Symbol,
			Decimals: native.Decimals,
			Data:     tx.Data,
			Chain:    c,
		}
	}

	payload := toPayload(transactions[0])
	for _, tx := range transactions[1:] {
		payload.SequentialTransactions = append(payload.SequentialTransactions, toPayload(tx))
	}
	return payload, nil
}
