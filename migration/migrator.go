package migration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/welthee/cryptowallet/archanova"
)

// TokenAmount is an amount of one asset, in human readable units.
type TokenAmount struct {
	Address  common.Address
	Balance  decimal.Decimal
	Decimals int32
}

// Tokens maps asset addresses to amounts. The native asset is keyed by the
// zero address.
type Tokens map[common.Address]TokenAmount

// CollectibleID identifies one collectible to migrate.
type CollectibleID struct {
	ContractAddress common.Address
	ID              *big.Int
}

type ERC20Transfer struct {
	Token  common.Address
	Amount *big.Int
}

type ERC721Transfer struct {
	Token common.Address
	ID    *big.Int
}

// TransactionRequest is one encoded call produced by the migrator.
type TransactionRequest struct {
	To   common.Address
	Data []byte
}

// MigratorParams keys a migrator by chain and both smart wallet accounts.
type MigratorParams struct {
	ChainID          *big.Int
	ArchanovaAccount common.Address
	EtherspotAccount common.Address
}

// Migrator accumulates the calls moving assets between the two accounts.
// Builder methods return the migrator to continue with.
type Migrator interface {
	// MigratorAddress is the relay contract executing the migration.
	MigratorAddress() common.Address
	AddAccountDevice() Migrator
	TransferBalance(value *big.Int) Migrator
	TransferERC20Tokens(transfers []ERC20Transfer) Migrator
	TransferERC721Tokens(transfers []ERC721Transfer) Migrator
	// MigrationMessage is the message the source wallet owner signs.
	MigrationMessage() []byte
	EncodeTransactionRequests(signature []byte) ([]TransactionRequest, error)
}

// MigratorFactory creates a migrator for params.
type MigratorFactory func(params MigratorParams) (Migrator, error)

// Relay is the source wallet relay used by the migration. *archanova.Service
// satisfies it.
type Relay interface {
	GetConnectedAccountDevice(ctx context.Context, address common.Address) (*archanova.AccountDevice, error)
	AddAccountDevice(ctx context.Context, address common.Address) (*archanova.AccountDevice, error)
	EstimateAccountRawTransactions(ctx context.Context, rawTransactions [][]byte) (archanova.Estimate, error)
	SendRawTransactions(ctx context.Context, rawTransactions [][]byte) (common.Hash, error)
}
