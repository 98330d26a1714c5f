package etherspot

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/welthee/cryptowallet/transaction"
)

type AccountState string

const (
	AccountStateUndeployed AccountState = "UnDeployed"
	AccountStateDeployed   AccountState = "Deployed"
)

// Account is the smart account computed for the session key.
type Account struct {
	Address common.Address
	State   AccountState
}

// BatchEstimation is the gateway quote for the registered batch. FeeAmount is
// denominated in FeeToken when one was requested, in wei otherwise.
type BatchEstimation struct {
	EstimatedGas      *big.Int
	EstimatedGasPrice *big.Int
	FeeAmount         *big.Int
	FeeToken          *common.Address
}

type SubmittedBatch struct {
	Hash common.Hash
}

// AccountBalance is a single balance entry; a nil Token is the native asset.
type AccountBalance struct {
	Token   *common.Address
	Balance *big.Int
}

type PaymentChannel struct {
	Hash      common.Hash
	Sender    common.Address
	Recipient common.Address
	Token     *common.Address
	Committed *big.Int
}

// SDK is one chain's smart account gateway client. The session persists for
// the wallet session lifetime.
type SDK interface {
	ComputeContractAccount(ctx context.Context) (Account, error)
	ClearBatch(ctx context.Context) error
	RegisterBatchCall(ctx context.Context, call transaction.EthereumTransaction) error
	EstimateBatch(ctx context.Context, feeToken *common.Address) (*BatchEstimation, error)
	SubmitBatch(ctx context.Context) (*SubmittedBatch, error)
	GetAccountBalances(ctx context.Context, account common.Address, tokens []common.Address) ([]AccountBalance, error)
	IncreasePaymentChannelAmount(ctx context.Context, recipient common.Address, token *common.Address, value *big.Int) (common.Hash, error)
	GetPaymentChannels(ctx context.Context, sender common.Address) ([]PaymentChannel, error)
	GetP2PDepositBalance(ctx context.Context, token *common.Address) (*big.Int, error)
	Destroy(ctx context.Context) error
}
