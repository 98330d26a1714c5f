package migration

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/archanova"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/key"
	"github.com/welthee/cryptowallet/transaction"
)

// Errors returned to callers. Causes are logged, never returned.
var (
	ErrFailedToEstimate = errors.New("failed to estimate migration transaction")
	ErrFailedToBuild    = errors.New("failed to build migration transaction")
	ErrFailedToSign     = errors.New("failed to sign migration message")
	ErrFailedToSubmit   = errors.New("failed to submit migration transaction")
)

// Request lists what to move from the relay wallet to the batch wallet.
type Request struct {
	Accounts     []account.Account
	Tokens       Tokens
	Collectibles []CollectibleID
}

// Engine migrates every asset of the relay wallet into the batch wallet in
// one signed transaction.
type Engine struct {
	relay      Relay
	migrators  MigratorFactory
	signer     key.MessageSigner
	production bool
}

// NewEngine creates an engine. signer holds the relay wallet owner key.
func NewEngine(relay Relay, migrators MigratorFactory, signer key.MessageSigner, production bool) *Engine {
	return &Engine{
		relay:      relay,
		migrators:  migrators,
		signer:     signer,
		production: production,
	}
}

// EstimateMigrationTransactions returns the native fee of migrating request as is.
func (e *Engine) EstimateMigrationTransactions(ctx context.Context, request Request) (decimal.Decimal, error) {
	logger := log.Logger

	rawTransactions, err := e.BuildAssetMigrationRawTransactions(ctx, request)
	if err != nil {
		return decimal.Zero, err
	}
	if len(rawTransactions) == 0 {
		logger.Error().Msg("no migration transactions to estimate")
		return decimal.Zero, ErrFailedToEstimate
	}

	estimate, err := e.relay.EstimateAccountRawTransactions(ctx, rawTransactions)
	if err != nil {
		logger.Error().Err(err).Int("transactions", len(rawTransactions)).Msg("failed to estimate migration transactions")
		return decimal.Zero, ErrFailedToEstimate
	}
	if estimate.Cost == nil || estimate.Cost.Sign() <= 0 {
		logger.Error().Msg("migration estimate returned no cost")
		return decimal.Zero, ErrFailedToEstimate
	}

	fee := transaction.ToDecimal(estimate.Cost, chain.NativeAsset(chain.Ethereum).Decimals)
	logger.Info().Str("fee", fee.String()).Msg("estimated migration transactions")
	return fee, nil
}

// SubmitMigrationTransactions estimates the migration, reserves its fee out
// of the native amount, rebuilds, signs and submits it.
func (e *Engine) SubmitMigrationTransactions(ctx context.Context, request Request, balances Tokens) (common.Hash, error) {
	logger := log.Logger

	fee, err := e.EstimateMigrationTransactions(ctx, request)
	if err != nil {
		return common.Hash{}, err
	}

	final := request
	final.Tokens = GetTokensToMigrateAfterFee(request.Tokens, balances, &fee)

	rawTransactions, err := e.BuildAssetMigrationRawTransactions(ctx, final)
	if err != nil {
		return common.Hash{}, err
	}
	if len(rawTransactions) == 0 {
		logger.Error().Msg("no migration transactions to submit")
		return common.Hash{}, ErrFailedToSubmit
	}

	hash, err := e.relay.SendRawTransactions(ctx, rawTransactions)
	if err != nil {
		logger.Error().Err(err).Msg("failed to send migration transactions")
		return common.Hash{}, ErrFailedToSubmit
	}
	if hash == (common.Hash{}) {
		logger.Error().Msg("migration submission returned no hash")
		return common.Hash{}, ErrFailedToSubmit
	}

	logger.Info().Str("hash", hash.Hex()).Msg("submitted migration transactions")
	return hash, nil
}

// BuildAssetMigrationRawTransactions encodes and signs the migration calls.
// Calls addressed to the migrator are wrapped in an executeTransaction of the
// relay wallet account.
func (e *Engine) BuildAssetMigrationRawTransactions(ctx context.Context, request Request) ([][]byte, error) {
	logger := log.Logger

	etherspotAccount, ok := account.FindFirstEtherspot(request.Accounts)
	if !ok {
		logger.Error().Msg("no etherspot account found")
		return nil, ErrFailedToBuild
	}
	archanovaAccount, ok := account.FindFirstArchanova(request.Accounts)
	if !ok {
		logger.Error().Msg("no archanova account found")
		return nil, ErrFailedToBuild
	}

	params := MigratorParams{
		ChainID:          big.NewInt(chain.ChainID(chain.Ethereum, e.production)),
		ArchanovaAccount: archanovaAccount.Address,
		EtherspotAccount: etherspotAccount.Address,
	}
	logger.Debug().
		Str("chainId", params.ChainID.String()).
		Str("archanovaAccount", params.ArchanovaAccount.Hex()).
		Str("etherspotAccount", params.EtherspotAccount.Hex()).
		Msg("building migrator")

	migrator, err := e.migrators(params)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create migrator")
		return nil, ErrFailedToBuild
	}

	migrator, err = e.applyAddMigratorDevice(ctx, migrator)
	if err != nil {
		return nil, err
	}
	migrator, err = applyAssetTransfers(migrator, request)
	if err != nil {
		logger.Error().Err(err).Msg("failed to apply asset transfers")
		return nil, ErrFailedToBuild
	}

	signature, err := e.signer.SignMessage(ctx, migrator.MigrationMessage())
	if err != nil || len(signature) == 0 {
		logger.Error().Err(err).Msg("failed to sign migration message")
		return nil, ErrFailedToSign
	}

	requests, err := migrator.EncodeTransactionRequests(signature)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode migration requests")
		return nil, ErrFailedToBuild
	}

	migratorAddress := migrator.MigratorAddress()
	rawTransactions := make([][]byte, 0, len(requests))
	for _, r := range requests {
		if r.To != migratorAddress {
			rawTransactions = append(rawTransactions, r.Data)
			continue
		}
		data, err := archanova.EncodeExecuteTransaction(r.To, big.NewInt(0), r.Data)
		if err != nil {
			logger.Error().
				Err(err).
				Str("to", r.To.Hex()).
				Str("migratorAddress", migratorAddress.Hex()).
				Str("archanovaAccount", archanovaAccount.ID).
				Str("etherspotAccount", etherspotAccount.ID).
				Msg("failed to encode executeTransaction")
			return nil, ErrFailedToBuild
		}
		rawTransactions = append(rawTransactions, data)
	}
	return rawTransactions, nil
}

// applyAddMigratorDevice registers the migrator as a device of the relay
// account when unknown, and deploys it within the migration when not yet deployed.
func (e *Engine) applyAddMigratorDevice(ctx context.Context, migrator Migrator) (Migrator, error) {
	logger := log.Logger
	address := migrator.MigratorAddress()

	device, err := e.relay.GetConnectedAccountDevice(ctx, address)
	if err != nil {
		logger.Error().Err(err).Str("migratorAddress", address.Hex()).Msg("failed to get migrator device")
		return nil, ErrFailedToBuild
	}

	if device == nil {
		logger.Info().Str("migratorAddress", address.Hex()).Msg("adding migrator account device")
		if _, err := e.relay.AddAccountDevice(ctx, address); err != nil {
			return nil, ErrFailedToBuild
		}
	}

	if device == nil || device.State != archanova.DeviceStateDeployed {
		migrator = migrator.AddAccountDevice()
	}
	return migrator, nil
}

// applyAssetTransfers appends native, then ERC-20, then collectible transfers,
// skipping empty categories.
func applyAssetTransfers(migrator Migrator, request Request) (Migrator, error) {
	native := chain.NativeAsset(chain.Ethereum)

	if amount, ok := request.Tokens[native.Address]; ok {
		value, err := transaction.ParseUnits(amount.Balance.String(), native.Decimals)
		if err != nil {
			return nil, err
		}
		migrator = migrator.TransferBalance(value)
	}

	tokens := make([]ERC20Transfer, 0, len(request.Tokens))
	for address, amount := range request.Tokens {
		if address == native.Address {
			continue
		}
		value, err := transaction.ParseUnits(amount.Balance.String(), amount.Decimals)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, ERC20Transfer{Token: address, Amount: value})
	}
	if len(tokens) > 0 {
		sort.Slice(tokens, func(i, j int) bool {
			return bytes.Compare(tokens[i].Token.Bytes(), tokens[j].Token.Bytes()) < 0
		})
		migrator = migrator.TransferERC20Tokens(tokens)
	}

	if len(request.Collectibles) > 0 {
		collectibles := make([]ERC721Transfer, 0, len(request.Collectibles))
		for _, c := range request.Collectibles {
			collectibles = append(collectibles, ERC721Transfer{Token: c.ContractAddress, ID: c.ID})
		}
		migrator = migrator.TransferERC721Tokens(collectibles)
	}
	return migrator, nil
}
