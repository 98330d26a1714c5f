package cryptowallet

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/welthee/cryptowallet/config"
	"github.com/welthee/cryptowallet/key"
	keykms "github.com/welthee/cryptowallet/key/kms"
	"github.com/welthee/cryptowallet/key/pk"
	pkkms "github.com/welthee/cryptowallet/key/pk/kms"
	"github.com/welthee/cryptowallet/nonce"
	"github.com/welthee/cryptowallet/transactor"
)

const gasStationTimeout = 10 * time.Second

// Dial connects the key based stack described by cfg: the node client, the
// gas station, the nonce store and the transaction counter.
func Dial(ctx context.Context, cfg config.Config) (Dependencies, error) {
	client, err := ethclient.DialContext(ctx, cfg.Network.RPCURL)
	if err != nil {
		return Dependencies{}, err
	}
	deps := Dependencies{closers: []func(){client.Close}}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		deps.Close()
		return Dependencies{}, err
	}

	var gasTracker transactor.GasTracker
	if cfg.Network.GasStationURL != "" {
		gasTracker = transactor.NewGasStationTracker(cfg.Network.GasStationURL, &http.Client{Timeout: gasStationTimeout})
	}

	var store nonce.Store
	switch cfg.Nonce.Store {
	case config.NonceStoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Nonce.Redis.Addr,
			Password: cfg.Nonce.Redis.Password,
			DB:       cfg.Nonce.Redis.DB,
		})
		deps.closers = append(deps.closers, func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close redis client")
			}
		})
		store = nonce.NewRedisStore(rdb)
	default:
		store = nonce.NewMemoryStore()
	}

	var nonceProvider nonce.Provider
	switch cfg.Nonce.Provider {
	case config.NonceProviderFixed:
		nonceProvider = nonce.NewFixedNonceProvider(cfg.Nonce.FixedCount)
	default:
		nonceProvider = nonce.NewNetworkNonceProvider(client)
	}

	deps.ChainID = chainID
	deps.Transactor = transactor.NewEvmTransactor(client, gasTracker)
	deps.Nonces = nonce.NewCalculator(nonceProvider, store)
	deps.Caller = client

	log.Info().
		Str("chainId", chainID.String()).
		Str("nonceStore", string(cfg.Nonce.Store)).
		Bool("gasStation", gasTracker != nil).
		Msg("connected wallet dependencies")
	return deps, nil
}

// NewKeyProvider builds the signing identity configured by cfg.Key.
func NewKeyProvider(ctx context.Context, cfg config.KeyConfig, chainID *big.Int) (key.Provider, error) {
	switch cfg.Source {
	case config.KeySourcePrivateKey:
		return pk.NewPrivateKeyProvider(cfg.PrivateKey, chainID)
	case config.KeySourceKms:
		svc, err := newKmsClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		return keykms.NewKmsKeyProvider(svc, cfg.KmsKeyID, chainID)
	case config.KeySourceKmsEncrypted:
		svc, err := newKmsClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		decrypter := pkkms.NewKmsDecrypter(svc, cfg.KmsKeyID)
		return pkkms.NewKmsEncryptedPrivateKeyProvider(ctx, decrypter, cfg.EncryptedKey, chainID)
	default:
		return nil, fmt.Errorf("%w: unknown key source %q", config.ErrInvalidConfig, cfg.Source)
	}
}

func newKmsClient(ctx context.Context, region string) (*kms.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return kms.NewFromConfig(awsCfg), nil
}
