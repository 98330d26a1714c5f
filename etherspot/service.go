package etherspot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/welthee/cryptowallet/chain"
	"github.com/welthee/cryptowallet/transaction"
)

var (
	ErrUnsupportedChain  = errors.New("no sdk for chain")
	ErrNoAccount         = errors.New("smart account not computed")
	ErrFailedToEstimate  = errors.New("failed to estimate transactions batch")
	ErrFailedToSubmit    = errors.New("failed to submit transactions batch")
	ErrFailedToSetBatch  = errors.New("failed to set transactions batch")
	ErrFailedToClear     = errors.New("failed to clear transactions batch")
	ErrFailedPaymentSend = errors.New("failed to increase payment channel amount")
)

type BatchStatus string

const (
	// nothing was registered, estimation and submission were skipped
	BatchStatusEmpty     BatchStatus = "empty"
	BatchStatusSubmitted BatchStatus = "submitted"
)

// BatchResult is the outcome of a batch submission. Hash is only set when
// Status is BatchStatusSubmitted.
type BatchResult struct {
	Status BatchStatus
	Hash   common.Hash
	Chain  chain.Chain
}

// BatchEstimate is a batch quote together with the token paying for it.
type BatchEstimate struct {
	BatchEstimation
	GasToken *transaction.GasToken
}

func (e BatchEstimate) FeeInfo() transaction.FeeInfo {
	return transaction.FeeInfo{
		Fee:      e.FeeAmount,
		GasPrice: e.EstimatedGasPrice,
		GasToken: e.GasToken,
	}
}

// AssetBalance is a balance reconciled to a known asset.
type AssetBalance struct {
	Asset   chain.Asset
	Balance decimal.Decimal
}

// Service drives the per chain smart account SDKs of one wallet session.
// The Clear, Set, Estimate, Submit cycle of a chain is not reentrant: callers
// wait for a batch to complete before starting another on the same chain.
type Service struct {
	sdks map[chain.Chain]SDK

	mu       sync.RWMutex
	accounts map[chain.Chain]Account
}

func NewService(sdks map[chain.Chain]SDK) *Service {
	return &Service{
		sdks:     sdks,
		accounts: make(map[chain.Chain]Account),
	}
}

func (s *Service) sdkFor(c chain.Chain) (SDK, error) {
	sdk, ok := s.sdks[c]
	if !ok || sdk == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, c)
	}
	return sdk, nil
}

// Init computes the smart account of every configured chain.
func (s *Service) Init(ctx context.Context) error {
	for c, sdk := range s.sdks {
		account, err := sdk.ComputeContractAccount(ctx)
		if err != nil {
			log.Error().Err(err).Str("chain", string(c)).Msg("failed to compute contract account")
			return err
		}

		s.mu.Lock()
		s.accounts[c] = account
		s.mu.Unlock()

		log.Info().
			Str("chain", string(c)).
			Str("account", account.Address.Hex()).
			Str("state", string(account.State)).
			Msg("computed contract account")
	}
	return nil
}

// GetAccountAddress returns the smart account address computed for chain c.
func (s *Service) GetAccountAddress(c chain.Chain) (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[c]
	return account.Address, ok
}

func (s *Service) ClearTransactionsBatch(ctx context.Context, c chain.Chain) error {
	sdk, err := s.sdkFor(c)
	if err != nil {
		return err
	}
	if err := sdk.ClearBatch(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToClear, err)
	}
	return nil
}

// SetTransactionsBatch replaces the pending batch of chain c with transactions,
// registered in order.
func (s *Service) SetTransactionsBatch(ctx context.Context, c chain.Chain, transactions []transaction.EthereumTransaction) error {
	if err := s.ClearTransactionsBatch(ctx, c); err != nil {
		return err
	}
	sdk, err := s.sdkFor(c)
	if err != nil {
		return err
	}
	for i, tx := range transactions {
		if err := sdk.RegisterBatchCall(ctx, tx); err != nil {
			log.Error().Err(err).Int("index", i).Str("to", tx.To.Hex()).Msg("failed to register batch call")
			return fmt.Errorf("%w: %w", ErrFailedToSetBatch, err)
		}
	}
	return nil
}

// EstimateTransactionsBatch quotes the registered batch, paying with gasToken when set.
func (s *Service) EstimateTransactionsBatch(ctx context.Context, c chain.Chain, gasToken *transaction.GasToken) (BatchEstimate, error) {
	sdk, err := s.sdkFor(c)
	if err != nil {
		return BatchEstimate{}, err
	}

	var feeToken *common.Address
	if gasToken != nil && !chain.IsNativeAsset(gasToken.Address) {
		feeToken = &gasToken.Address
	} else {
		gasToken = nil
	}

	estimation, err := sdk.EstimateBatch(ctx, feeToken)
	if err != nil {
		return BatchEstimate{}, fmt.Errorf("%w: %w", ErrFailedToEstimate, err)
	}
	if estimation == nil {
		return BatchEstimate{}, ErrFailedToEstimate
	}
	return BatchEstimate{BatchEstimation: *estimation, GasToken: gasToken}, nil
}

// SendTransactions runs the full Clear, Set, Estimate, Submit cycle. Any step
// failing aborts the batch. An empty batch is not submitted.
func (s *Service) SendTransactions(ctx context.Context, c chain.Chain, transactions []transaction.EthereumTransaction, gasToken *transaction.GasToken) (BatchResult, error) {
	if err := s.SetTransactionsBatch(ctx, c, transactions); err != nil {
		return BatchResult{}, err
	}
	if len(transactions) == 0 {
		log.Info().Str("chain", string(c)).Msg("transactions batch is empty, nothing to submit")
		return BatchResult{Status: BatchStatusEmpty, Chain: c}, nil
	}

	if _, err := s.EstimateTransactionsBatch(ctx, c, gasToken); err != nil {
		return BatchResult{}, err
	}

	sdk, err := s.sdkFor(c)
	if err != nil {
		return BatchResult{}, err
	}
	submitted, err := sdk.SubmitBatch(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("%w: %w", ErrFailedToSubmit, err)
	}
	if submitted == nil || submitted.Hash == (common.Hash{}) {
		return BatchResult{}, ErrFailedToSubmit
	}

	log.Info().
		Str("chain", string(c)).
		Str("batchHash", submitted.Hash.Hex()).
		Int("calls", len(transactions)).
		Msg("submitted transactions batch")

	return BatchResult{Status: BatchStatusSubmitted, Hash: submitted.Hash, Chain: c}, nil
}

// SendP2PTransaction increases the payment channel towards the payload
// recipient instead of going through the batch.
func (s *Service) SendP2PTransaction(ctx context.Context, c chain.Chain, payload transaction.Payload) (common.Hash, error) {
	sdk, err := s.sdkFor(c)
	if err != nil {
		return common.Hash{}, err
	}

	decimals := payload.Decimals
	var token *common.Address
	if payload.IsNativeAsset() {
		decimals = chain.NativeAsset(c).Decimals
	} else {
		contract := payload.ContractAddress
		token = &contract
	}
	value, err := transaction.ParseUnits(payload.Amount, decimals)
	if err != nil {
		return common.Hash{}, err
	}

	hash, err := sdk.IncreasePaymentChannelAmount(ctx, payload.To, token, value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %w", ErrFailedPaymentSend, err)
	}
	return hash, nil
}

// GetBalances returns the balances of address for assets. The native asset is
// queried implicitly; entries that match no asset are dropped.
func (s *Service) GetBalances(ctx context.Context, c chain.Chain, address common.Address, assets []chain.Asset) ([]AssetBalance, error) {
	sdk, err := s.sdkFor(c)
	if err != nil {
		return nil, err
	}

	tokens := make([]common.Address, 0, len(assets))
	for _, asset := range assets {
		if !chain.IsNativeAsset(asset.Address) {
			tokens = append(tokens, asset.Address)
		}
	}

	entries, err := sdk.GetAccountBalances(ctx, address, tokens)
	if err != nil {
		return nil, err
	}

	balances := make([]AssetBalance, 0, len(entries))
	for _, entry := range entries {
		tokenAddress := chain.NativeAssetAddress
		if entry.Token != nil {
			tokenAddress = *entry.Token
		}

		asset, ok := findAsset(assets, tokenAddress)
		if !ok {
			log.Warn().
				Str("chain", string(c)).
				Str("token", tokenAddress.Hex()).
				Msg("dropping balance of unknown asset")
			continue
		}
		if entry.Balance == nil {
			continue
		}
		balances = append(balances, AssetBalance{
			Asset:   asset,
			Balance: transaction.ToDecimal(entry.Balance, asset.Decimals),
		})
	}
	return balances, nil
}

func findAsset(assets []chain.Asset, address common.Address) (chain.Asset, bool) {
	for _, asset := range assets {
		if asset.Address == address {
			return asset, true
		}
	}
	return chain.Asset{}, false
}

// GetP2PDepositBalance returns the payment channel deposit of token, zero on failure.
func (s *Service) GetP2PDepositBalance(ctx context.Context, c chain.Chain, token *common.Address) *big.Int {
	sdk, err := s.sdkFor(c)
	if err != nil {
		return big.NewInt(0)
	}
	balance, err := sdk.GetP2PDepositBalance(ctx, token)
	if err != nil || balance == nil {
		log.Warn().Err(err).Str("chain", string(c)).Msg("failed to get p2p deposit balance")
		return big.NewInt(0)
	}
	return balance
}

// GetPaymentChannels returns the payment channels of sender, empty on failure.
func (s *Service) GetPaymentChannels(ctx context.Context, c chain.Chain, sender common.Address) []PaymentChannel {
	sdk, err := s.sdkFor(c)
	if err != nil {
		return []PaymentChannel{}
	}
	channels, err := sdk.GetPaymentChannels(ctx, sender)
	if err != nil || channels == nil {
		log.Warn().Err(err).Str("sender", sender.Hex()).Msg("failed to get payment channels")
		return []PaymentChannel{}
	}
	return channels
}

// Logout destroys every SDK session.
func (s *Service) Logout(ctx context.Context) error {
	var errs []error
	for c, sdk := range s.sdks {
		if err := sdk.Destroy(ctx); err != nil {
			log.Warn().Err(err).Str("chain", string(c)).Msg("failed to destroy sdk")
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.accounts = make(map[chain.Chain]Account)
	s.mu.Unlock()

	return errors.Join(errs...)
}
