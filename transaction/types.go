package transaction

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/welthee/cryptowallet/chain"
)

type TokenType string

const (
	TokenTypeERC20   TokenType = "ERC20"
	TokenTypeERC721  TokenType = "ERC721"
	TokenTypeERC1155 TokenType = "ERC1155"
)

// Speed is the relay gas price preference of a transfer.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// Payload describes a transfer at the domain level. SequentialTransactions
// turn it into an ordered batch executed after the primary transfer.
type Payload struct {
	// recipient of the asset
	To common.Address
	// human readable amount, e.g. "1.5"
	Amount   string
	Symbol   string
	Decimals int32
	// token contract, zero for the native asset
	ContractAddress common.Address
	// collectible id, decimal or 0x prefixed hex
	TokenID   string
	TokenType TokenType
	GasLimit  uint64
	GasPrice  *big.Int
	GasToken  *GasToken
	// explicit nonce, skips nonce calculation for key based accounts
	Nonce *uint64
	Data  []byte
	// sign without broadcasting
	SignOnly bool
	// route through the payment channel instead of the batch executor
	UsePaymentChannel      bool
	TxSpeed                Speed
	SequentialTransactions []Payload
	Chain                  chain.Chain
}

// IsCollectible reports whether the payload transfers a collectible.
func (p Payload) IsCollectible() bool {
	return p.TokenID != "" || p.TokenType == TokenTypeERC721 || p.TokenType == TokenTypeERC1155
}

// IsNativeAsset reports whether the payload transfers the native asset of its chain.
func (p Payload) IsNativeAsset() bool {
	if p.IsCollectible() {
		return false
	}
	if p.Symbol == "" {
		return chain.IsNativeAsset(p.ContractAddress)
	}
	return p.Symbol == chain.NativeAsset(p.Chain).Symbol
}

// EthereumTransaction is a single low level call executed by a signer or relay.
type EthereumTransaction struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Result is the normalized outcome of a submitted or signed transfer.
type Result struct {
	Hash    common.Hash
	From    common.Address
	To      common.Address
	Value   *big.Int
	TokenID string
	// nonce the transaction was signed with, nil when left to the node
	Nonce            *uint64
	TransactionCount uint64
	// raw signed transaction when the transfer was sign only
	SignedTransaction hexutil.Bytes
	// set when the transfer was submitted as part of a batch, Hash then
	// carries the same batch hash
	BatchHash common.Hash
}

// IsSigned reports whether the result holds a signed, not broadcast, transaction.
func (r Result) IsSigned() bool {
	return len(r.SignedTransaction) > 0
}
