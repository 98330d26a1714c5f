package archanova

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/welthee/cryptowallet/transaction"
)

// GasPriceStrategy is the relayer gas price preference.
type GasPriceStrategy string

const (
	GasPriceStrategyAvg  GasPriceStrategy = "Avg"
	GasPriceStrategyFast GasPriceStrategy = "Fast"
)

type DeviceState string

const (
	DeviceStateCreated  DeviceState = "Created"
	DeviceStateDeployed DeviceState = "Deployed"
)

// AccountDevice is a key registered on the smart wallet account.
type AccountDevice struct {
	Address common.Address
	State   DeviceState
}

// EstimatePayload is the relayer answer to an estimation request. Any field
// may be missing.
type EstimatePayload struct {
	// gas amount
	GasFee *big.Int
	// signed gas price
	GasPrice          *big.Int
	GasTokenCost      *big.Int
	GasToken          *transaction.GasToken
	GasTokenSupported bool
}

// SDK is the smart wallet relay client. Implementations own the network
// session; everything here is a remote call.
type SDK interface {
	Init(ctx context.Context, privateKey string) error
	ConnectAccount(ctx context.Context, accountID string) error
	// EstimateAccountTransaction estimates the sequential execution of transactions.
	EstimateAccountTransaction(ctx context.Context, transactions []transaction.EthereumTransaction, speed GasPriceStrategy) (*EstimatePayload, error)
	// EstimateAccountRawTransactions estimates already encoded account calls.
	EstimateAccountRawTransactions(ctx context.Context, rawTransactions [][]byte) (*EstimatePayload, error)
	SubmitAccountTransaction(ctx context.Context, estimate *EstimatePayload, payForGasWithToken bool) (common.Hash, error)
	// GetConnectedAccountDevice returns nil when the device is unknown to the account.
	GetConnectedAccountDevice(ctx context.Context, address common.Address) (*AccountDevice, error)
	CreateAccountDevice(ctx context.Context, address common.Address) (*AccountDevice, error)
}
