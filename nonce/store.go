package nonce

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrFailToAccessNonceStore = errors.New("failed to access the nonce store")

// Store persists the last nonce used by each address.
type Store interface {
	// LastNonce returns the last nonce used by address, nil when none is known.
	LastNonce(ctx context.Context, address common.Address) (*uint64, error)
	// SetLastNonce records the last nonce used by address.
	SetLastNonce(ctx context.Context, address common.Address, nonce uint64) error
}

func storeKey(address common.Address) string {
	return "nonce:" + strings.ToLower(address.Hex())
}

type memoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates a process local store. Entries never expire.
func NewMemoryStore() Store {
	return memoryStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (m memoryStore) LastNonce(ctx context.Context, address common.Address) (*uint64, error) {
	v, ok := m.cache.Get(storeKey(address))
	if !ok {
		return nil, nil
	}
	nonce := v.(uint64)
	return &nonce, nil
}

func (m memoryStore) SetLastNonce(ctx context.Context, address common.Address, nonce uint64) error {
	m.cache.Set(storeKey(address), nonce, cache.NoExpiration)
	return nil
}

type redisStore struct {
	client redis.Cmdable
}

// NewRedisStore creates a store shared by every process using the same redis.
func NewRedisStore(client redis.Cmdable) Store {
	return redisStore{client: client}
}

func (r redisStore) LastNonce(ctx context.Context, address common.Address) (*uint64, error) {
	v, err := r.client.Get(ctx, storeKey(address)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailToAccessNonceStore, err)
	}

	nonce, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid nonce %q stored for %s: %w", v, address.Hex(), err)
	}
	return &nonce, nil
}

func (r redisStore) SetLastNonce(ctx context.Context, address common.Address, nonce uint64) error {
	err := r.client.Set(ctx, storeKey(address), strconv.FormatUint(nonce, 10), 0).Err()
	if err != nil {
		return fmt.Errorf("%s: %w", ErrFailToAccessNonceStore, err)
	}
	return nil
}
