package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/restopos/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettingRateKey is the settings key holding the CDF-per-USD exchange rate
const SettingRateKey = "exchange_rate_cdf_per_usd"

// redisRateKey is the shared Redis key mirroring the rate across instances
const redisRateKey = "restopos:exchange_rate"

// SettingStore reads and writes venue-wide key/value settings
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// SettingRateProvider implements billing.RateProvider on top of the settings
// store. The rate is cached in memory until the next explicit Refresh, and
// optionally mirrored in Redis so several instances refresh from the same
// value.
type SettingRateProvider struct {
	settings SettingStore
	redis    *redis.Client
	logger   *zap.Logger
	redisTTL time.Duration

	mu     sync.RWMutex
	cached decimal.Decimal
	loaded bool
}

// SettingRateProviderOption configures a SettingRateProvider
type SettingRateProviderOption func(*SettingRateProvider)

// WithRedisMirror shares the refreshed rate through Redis
func WithRedisMirror(client *redis.Client, ttl time.Duration) SettingRateProviderOption {
	return func(p *SettingRateProvider) {
		p.redis = client
		p.redisTTL = ttl
	}
}

// WithLogger sets the provider logger
func WithLogger(logger *zap.Logger) SettingRateProviderOption {
	return func(p *SettingRateProvider) {
		p.logger = logger
	}
}

// NewSettingRateProvider creates a rate provider backed by the settings store
func NewSettingRateProvider(settings SettingStore, opts ...SettingRateProviderOption) *SettingRateProvider {
	p := &SettingRateProvider{
		settings: settings,
		logger:   zap.NewNop(),
		redisTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Rate returns the cached exchange rate, loading it on first use
func (p *SettingRateProvider) Rate(ctx context.Context) (decimal.Decimal, error) {
	p.mu.RLock()
	if p.loaded {
		rate := p.cached
		p.mu.RUnlock()
		return rate, nil
	}
	p.mu.RUnlock()
	return p.Refresh(ctx)
}

// Refresh re-reads the rate from Redis or the settings store and caches it
func (p *SettingRateProvider) Refresh(ctx context.Context) (decimal.Decimal, error) {
	if rate, ok := p.fromRedis(ctx); ok {
		p.store(rate)
		return rate, nil
	}

	raw, err := p.settings.Get(ctx, SettingRateKey)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		p.logger.Warn("Stored exchange rate is invalid", zap.String("raw", raw))
		return decimal.Zero, billing.ErrInvalidRate
	}

	p.store(rate)
	p.mirror(ctx, rate)
	return rate, nil
}

// Update persists a new rate and makes it current everywhere
func (p *SettingRateProvider) Update(ctx context.Context, rate decimal.Decimal) error {
	if rate.LessThanOrEqual(decimal.Zero) {
		return billing.ErrInvalidRate
	}
	if err := p.settings.Set(ctx, SettingRateKey, rate.String()); err != nil {
		return err
	}
	p.store(rate)
	p.mirror(ctx, rate)
	return nil
}

func (p *SettingRateProvider) store(rate decimal.Decimal) {
	p.mu.Lock()
	p.cached = rate
	p.loaded = true
	p.mu.Unlock()
}

func (p *SettingRateProvider) fromRedis(ctx context.Context) (decimal.Decimal, bool) {
	if p.redis == nil {
		return decimal.Zero, false
	}
	raw, err := p.redis.Get(ctx, redisRateKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			p.logger.Warn("Failed to read exchange rate from Redis", zap.Error(err))
		}
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, false
	}
	return rate, true
}

func (p *SettingRateProvider) mirror(ctx context.Context, rate decimal.Decimal) {
	if p.redis == nil {
		return
	}
	if err := p.redis.Set(ctx, redisRateKey, rate.String(), p.redisTTL).Err(); err != nil {
		p.logger.Warn("Failed to mirror exchange rate to Redis", zap.Error(err))
	}
}
