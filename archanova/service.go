package archanova

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/welthee/cryptowallet/transaction"
)

var (
	ErrUnableToEstimate = errors.New("unable to estimate transaction")
	ErrEmptyHash        = errors.New("relayer returned an empty transaction hash")
)

const accountABIJSON = `[
	{"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"name":"executeTransaction","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var accountABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(accountABIJSON))
	if err != nil {
		panic(fmt.Sprintf("failed to parse account abi: %v", err))
	}
	return parsed
}()

// TransferRequest is a single call relayed through the smart wallet account.
type TransferRequest struct {
	Recipient common.Address
	Value     *big.Int
	Data      []byte
	Speed     GasPriceStrategy
	// pay the relayer with this token instead of the native asset
	GasToken *transaction.GasToken
}

// Service owns one relay session. It is created per wallet session, never shared.
type Service struct {
	sdk              SDK
	fallbackGasPrice *big.Int
}

// NewService wraps sdk. fallbackGasPrice prices estimates the relayer returned
// without a gas price and may be nil.
func NewService(sdk SDK, fallbackGasPrice *big.Int) *Service {
	return &Service{
		sdk:              sdk,
		fallbackGasPrice: fallbackGasPrice,
	}
}

func (s *Service) Init(ctx context.Context, privateKey string) error {
	if err := s.sdk.Init(ctx, privateKey); err != nil {
		log.Error().Err(err).Msg("error initiating sdk")
		return err
	}
	return nil
}

func (s *Service) ConnectAccount(ctx context.Context, accountID string) error {
	if err := s.sdk.ConnectAccount(ctx, accountID); err != nil {
		log.Error().Err(err).Str("accountId", accountID).Msg("failed to connect account")
		return err
	}
	return nil
}

// TransferAsset estimates and submits a single relayed call, returning only its hash.
func (s *Service) TransferAsset(ctx context.Context, request TransferRequest) (common.Hash, error) {
	speed := request.Speed
	if speed == "" {
		speed = GasPriceStrategyAvg
	}
	value := request.Value
	if value == nil {
		value = big.NewInt(0)
	}

	estimated, err := s.sdk.EstimateAccountTransaction(ctx, []transaction.EthereumTransaction{{
		To:    request.Recipient,
		Value: value,
		Data:  request.Data,
	}}, speed)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrUnableToEstimate, err)
	}
	if estimated == nil {
		return common.Hash{}, ErrUnableToEstimate
	}

	return s.submit(ctx, estimated, request.GasToken != nil)
}

// SendRawTransactions estimates and submits already encoded account calls.
func (s *Service) SendRawTransactions(ctx context.Context, rawTransactions [][]byte) (common.Hash, error) {
	estimated, err := s.sdk.EstimateAccountRawTransactions(ctx, rawTransactions)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrUnableToEstimate, err)
	}
	if estimated == nil {
		return common.Hash{}, ErrUnableToEstimate
	}
	return s.submit(ctx, estimated, false)
}

func (s *Service) submit(ctx context.Context, estimated *EstimatePayload, payForGasWithToken bool) (common.Hash, error) {
	hash, err := s.sdk.SubmitAccountTransaction(ctx, estimated, payForGasWithToken)
	if err != nil {
		return common.Hash{}, err
	}
	if hash == (common.Hash{}) {
		return common.Hash{}, ErrEmptyHash
	}
	log.Info().Str("hash", hash.Hex()).Bool("payForGasWithToken", payForGasWithToken).Msg("submitted account transaction")
	return hash, nil
}

// EstimateAccountTransactions quotes the sequential execution of transactions.
func (s *Service) EstimateAccountTransactions(ctx context.Context, transactions []transaction.EthereumTransaction, speed GasPriceStrategy) (Estimate, error) {
	estimated, err := s.sdk.EstimateAccountTransaction(ctx, transactions, speed)
	if err != nil {
		log.Warn().Err(err).Int("transactions", len(transactions)).Msg("failed to estimate account transaction")
		return Estimate{}, fmt.Errorf("%w: %w", ErrUnableToEstimate, err)
	}
	return FormatEstimate(estimated, s.fallbackGasPrice), nil
}

// EstimateAccountRawTransactions quotes already encoded account calls.
func (s *Service) EstimateAccountRawTransactions(ctx context.Context, rawTransactions [][]byte) (Estimate, error) {
	estimated, err := s.sdk.EstimateAccountRawTransactions(ctx, rawTransactions)
	if err != nil {
		log.Warn().Err(err).Int("rawTransactions", len(rawTransactions)).Msg("failed to estimate raw transactions")
		return Estimate{}, fmt.Errorf("%w: %w", ErrUnableToEstimate, err)
	}
	return FormatEstimate(estimated, s.fallbackGasPrice), nil
}

func (s *Service) GetConnectedAccountDevice(ctx context.Context, address common.Address) (*AccountDevice, error) {
	return s.sdk.GetConnectedAccountDevice(ctx, address)
}

// AddAccountDevice registers address as a device of the connected account.
func (s *Service) AddAccountDevice(ctx context.Context, address common.Address) (*AccountDevice, error) {
	device, err := s.sdk.CreateAccountDevice(ctx, address)
	if err != nil {
		log.Warn().Err(err).Str("device", address.Hex()).Msg("failed to add account device")
		return nil, err
	}
	return device, nil
}

// EncodeExecuteTransaction encodes an account contract executeTransaction call.
func EncodeExecuteTransaction(to common.Address, value *big.Int, data []byte) ([]byte, error) {
	if value == nil {
		value = big.NewInt(0)
	}
	return accountABI.Pack("executeTransaction", to, value, data)
}

// MapTransactionSpeed maps a transfer speed to a relayer gas price strategy.
func MapTransactionSpeed(speed transaction.Speed) GasPriceStrategy {
	switch speed {
	case transaction.SpeedFast:
		return GasPriceStrategyFast
	default:
		return GasPriceStrategyAvg
	}
}
