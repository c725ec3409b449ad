package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	model "github.com/glkeru/loyalty/ledger/internal/models"
	redis "github.com/redis/go-redis/v9"
)

const balancesKey = "ledger:balances"

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(addr, user, pwd string, ttl time.Duration) (serv *CacheService, err error) {
	if addr == "" {
		return nil, fmt.Errorf("env LEDGER_CACHE_URL is not set")
	}
	db := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    pwd,
		Username:    user,
		DB:          0,
		MaxRetries:  5,
		DialTimeout: 10 * time.Second,
	})
	err = db.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return &CacheService{db, ttl}, nil
}

// Балансы вместе с версией леджера, на которой они посчитаны
type cachedBalances struct {
	Version  int64          `json:"version"`
	Balances model.Balances `json:"balances"`
}

func (c *CacheService) GetBalances(ctx context.Context, version int64) (model.Balances, error) {
	val, err := c.client.Get(ctx, balancesKey).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("balances %w", model.ErrNotFound)
	} else if err != nil {
		return nil, err
	}
	return decodeBalances(val, version)
}

// Запись другого процесса могла случиться между чтением и записью в кэш:
// значение с чужой версией считается промахом
func decodeBalances(val []byte, version int64) (model.Balances, error) {
	var cached cachedBalances
	if err := json.Unmarshal(val, &cached); err != nil {
		return nil, err
	}
	if cached.Version != version || cached.Balances == nil {
		return nil, fmt.Errorf("balances at version %d %w", version, model.ErrNotFound)
	}
	return cached.Balances, nil
}

func (c *CacheService) SetBalances(ctx context.Context, version int64, balances model.Balances) error {
	val, err := json.Marshal(cachedBalances{version, balances})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, balancesKey, val, c.ttl).Err()
}

func (c *CacheService) InvalidateBalances(ctx context.Context) error {
	return c.client.Del(ctx, balancesKey).Err()
}

func (c *CacheService) Close() error {
	return c.client.Close()
}
