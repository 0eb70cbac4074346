package cache

import (
	"context"
	"testing"

	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySettings struct {
	values map[string]string
	reads  int
}

func (s *memorySettings) Get(ctx context.Context, key string) (string, error) {
	s.reads++
	v, ok := s.values[key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return v, nil
}

func (s *memorySettings) Set(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func TestSettingRateProvider_RateCachesUntilRefresh(t *testing.T) {
	settings := &memorySettings{values: map[string]string{SettingRateKey: "2800"}}
	provider := NewSettingRateProvider(settings)
	ctx := context.Background()

	rate, err := provider.Rate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(2800)))

	// A store change is not visible until the next refresh.
	settings.values[SettingRateKey] = "2900"
	rate, err = provider.Rate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(2800)))
	assert.Equal(t, 1, settings.reads)

	rate, err = provider.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(2900)))
}

func TestSettingRateProvider_InvalidStoredRate(t *testing.T) {
	settings := &memorySettings{values: map[string]string{SettingRateKey: "-5"}}
	provider := NewSettingRateProvider(settings)

	_, err := provider.Rate(context.Background())
	assert.ErrorIs(t, err, billing.ErrInvalidRate)
}

func TestSettingRateProvider_Update(t *testing.T) {
	settings := &memorySettings{values: map[string]string{}}
	provider := NewSettingRateProvider(settings)
	ctx := context.Background()

	assert.ErrorIs(t, provider.Update(ctx, decimal.Zero), billing.ErrInvalidRate)

	require.NoError(t, provider.Update(ctx, decimal.NewFromInt(2750)))
	assert.Equal(t, "2750", settings.values[SettingRateKey])

	rate, err := provider.Rate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(2750)))
}

func TestSettingRateProvider_MissingRate(t *testing.T) {
	settings := &memorySettings{values: map[string]string{}}
	provider := NewSettingRateProvider(settings)

	_, err := provider.Rate(context.Background())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
