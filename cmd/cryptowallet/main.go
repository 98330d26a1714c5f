package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/welthee/cryptowallet"
	"github.com/welthee/cryptowallet/account"
	"github.com/welthee/cryptowallet/config"
	"github.com/welthee/cryptowallet/provider"
	"github.com/welthee/cryptowallet/transaction"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "cryptowallet",
		Short:         "Key based wallet transfers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml config file")

	root.AddCommand(transferCmd(), nonceCmd(), balanceCmd())

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

type session struct {
	cfg      config.Config
	deps     cryptowallet.Dependencies
	provider *provider.KeyBasedWalletProvider
}

func open(ctx context.Context) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(cfg.LogLevel())
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	deps, err := cryptowallet.Dial(ctx, cfg)
	if err != nil {
		return nil, err
	}
	keyProvider, err := cryptowallet.NewKeyProvider(ctx, cfg.Key, deps.ChainID)
	if err != nil {
		deps.Close()
		return nil, err
	}

	acc := account.Account{ID: keyProvider.GetAddress().Hex(), Type: account.TypeKeyBased, Address: keyProvider.GetAddress()}
	wallet, err := cryptowallet.NewWithKeyProvider(keyProvider, acc, deps)
	if err != nil {
		deps.Close()
		return nil, err
	}
	p, err := wallet.GetProvider(ctx)
	if err != nil {
		deps.Close()
		return nil, err
	}
	return &session{cfg: cfg, deps: deps, provider: p.(*provider.KeyBasedWalletProvider)}, nil
}

func transferCmd() *cobra.Command {
	var (
		to       string
		amount   string
		token    string
		decimals int32
		tokenID  string
		speed    string
		signOnly bool
	)
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send the native asset, a token (--token) or a collectible (--token-id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.deps.Close()

			if !common.IsHexAddress(to) {
				return fmt.Errorf("invalid recipient %q", to)
			}
			payload := transaction.Payload{
				To:       common.HexToAddress(to),
				Amount:   amount,
				Decimals: decimals,
				TokenID:  tokenID,
				TxSpeed:  transaction.Speed(speed),
				SignOnly: signOnly,
				Chain:    s.cfg.Chain(),
			}
			from := account.Account{Type: account.TypeKeyBased, Address: s.provider.Address()}

			var result transaction.Result
			switch {
			case tokenID != "":
				payload.ContractAddress = common.HexToAddress(token)
				result, err = s.provider.TransferCollectible(ctx, from, payload)
			case token != "":
				payload.ContractAddress = common.HexToAddress(token)
				result, err = s.provider.TransferToken(ctx, from, payload)
			default:
				result, err = s.provider.TransferNative(ctx, from, payload)
			}
			if err != nil {
				return err
			}

			e := log.Info().
				Str("from", result.From.Hex()).
				Str("to", result.To.Hex()).
				Uint64("transactionCount", result.TransactionCount)
			if result.IsSigned() {
				e.Str("signedTransaction", result.SignedTransaction.String()).Msg("signed transaction")
			} else {
				e.Str("hash", result.Hash.Hex()).Msg("sent transaction")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&amount, "amount", "", "human readable amount, e.g. 1.5")
	cmd.Flags().StringVar(&token, "token", "", "token or collectible contract address")
	cmd.Flags().Int32Var(&decimals, "decimals", 18, "token decimals")
	cmd.Flags().StringVar(&tokenID, "token-id", "", "collectible id")
	cmd.Flags().StringVar(&speed, "speed", string(transaction.SpeedNormal), "slow, normal or fast")
	cmd.Flags().BoolVar(&signOnly, "sign-only", false, "print the signed transaction without sending it")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func nonceCmd() *cobra.Command {
	var signOnly bool
	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Show the transaction count and the nonce of the next transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.deps.Close()

			result, err := s.provider.CalculateNonce(ctx, s.provider.Address(), signOnly)
			if err != nil {
				return err
			}
			e := log.Info().Str("address", s.provider.Address().Hex()).Uint64("transactionCount", result.TransactionCount)
			if result.Nonce != nil {
				e = e.Uint64("nonce", *result.Nonce)
			}
			e.Msg("nonce")
			return nil
		},
	}
	cmd.Flags().BoolVar(&signOnly, "sign-only", false, "calculate for a sign only transfer")
	return cmd
}

func balanceCmd() *cobra.Command {
	var token string
	var decimals int32
	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show the native or token (--token) balance of the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := open(ctx)
			if err != nil {
				return err
			}
			defer s.deps.Close()

			address := s.provider.Address()
			var balance *big.Int
			if token == "" {
				balance, err = s.deps.Transactor.BalanceAt(ctx, address)
			} else {
				balance, err = s.deps.Transactor.BalanceOf(ctx, address, common.HexToAddress(token))
			}
			if err != nil {
				return err
			}
			log.Info().
				Str("address", address.Hex()).
				Str("token", token).
				Str("balance", transaction.FormatUnits(balance, decimals)).
				Msg("balance")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "ERC-20 contract address")
	cmd.Flags().Int32Var(&decimals, "decimals", 18, "token decimals")
	return cmd
}
