package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/welthee/cryptowallet/chain"
)

const envPrefix = "CRYPTOWALLET"

type NonceStoreType string
type NonceProviderType string
type KeySource string

const (
	NonceStoreMemory NonceStoreType = "memory"
	NonceStoreRedis  NonceStoreType = "redis"

	NonceProviderNetwork NonceProviderType = "network"
	NonceProviderFixed   NonceProviderType = "fixed"

	KeySourcePrivateKey   KeySource = "pk"
	KeySourceKms          KeySource = "kms"
	KeySourceKmsEncrypted KeySource = "kms-encrypted"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Network NetworkConfig `mapstructure:"network"`
	Nonce   NonceConfig   `mapstructure:"nonce"`
	Key     KeyConfig     `mapstructure:"key"`
	Log     LogConfig     `mapstructure:"log"`
}

type NetworkConfig struct {
	RPCURL        string `mapstructure:"rpc_url"`
	GasStationURL string `mapstructure:"gas_station_url"`
	Chain         string `mapstructure:"chain"`
	// production networks instead of test networks
	Production bool `mapstructure:"production"`
}

type NonceConfig struct {
	Store    NonceStoreType    `mapstructure:"store"`
	Provider NonceProviderType `mapstructure:"provider"`
	// transaction count reported by the fixed provider
	FixedCount uint64      `mapstructure:"fixed_count"`
	Redis      RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KeyConfig struct {
	Source       KeySource `mapstructure:"source"`
	PrivateKey   string    `mapstructure:"private_key"`
	KmsKeyID     string    `mapstructure:"kms_key_id"`
	EncryptedKey string    `mapstructure:"encrypted_key"`
	Region       string    `mapstructure:"region"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the yaml file at path, when given, and overlays CRYPTOWALLET_*
// environment variables, e.g. CRYPTOWALLET_NETWORK_RPC_URL.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network.rpc_url", "")
	v.SetDefault("network.gas_station_url", "")
	v.SetDefault("network.chain", string(chain.Ethereum))
	v.SetDefault("network.production", false)

	v.SetDefault("nonce.store", string(NonceStoreMemory))
	v.SetDefault("nonce.provider", string(NonceProviderNetwork))
	v.SetDefault("nonce.fixed_count", 0)
	v.SetDefault("nonce.redis.addr", "localhost:6379")
	v.SetDefault("nonce.redis.password", "")
	v.SetDefault("nonce.redis.db", 0)

	v.SetDefault("key.source", string(KeySourcePrivateKey))
	v.SetDefault("key.private_key", "")
	v.SetDefault("key.kms_key_id", "")
	v.SetDefault("key.encrypted_key", "")
	v.SetDefault("key.region", "")

	v.SetDefault("log.level", "info")
}

// Validate checks enumerations and the settings each key source needs.
func (c Config) Validate() error {
	if _, ok := chain.Parse(c.Network.Chain); !ok {
		return fmt.Errorf("%w: unknown chain %q", ErrInvalidConfig, c.Network.Chain)
	}

	switch c.Nonce.Store {
	case NonceStoreMemory, NonceStoreRedis:
	default:
		return fmt.Errorf("%w: unknown nonce store %q", ErrInvalidConfig, c.Nonce.Store)
	}
	switch c.Nonce.Provider {
	case NonceProviderNetwork, NonceProviderFixed:
	default:
		return fmt.Errorf("%w: unknown nonce provider %q", ErrInvalidConfig, c.Nonce.Provider)
	}

	switch c.Key.Source {
	case KeySourcePrivateKey:
	case KeySourceKms:
		if c.Key.KmsKeyID == "" {
			return fmt.Errorf("%w: kms key source requires key.kms_key_id", ErrInvalidConfig)
		}
	case KeySourceKmsEncrypted:
		if c.Key.KmsKeyID == "" || c.Key.EncryptedKey == "" {
			return fmt.Errorf("%w: kms-encrypted key source requires key.kms_key_id and key.encrypted_key", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown key source %q", ErrInvalidConfig, c.Key.Source)
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Chain returns the configured chain.
func (c Config) Chain() chain.Chain {
	parsed, _ := chain.Parse(c.Network.Chain)
	return parsed
}

// LogLevel returns the configured zerolog level.
func (c Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
