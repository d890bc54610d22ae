package rates

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunestake/royalty-ledger/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.BaseRate.Equal(dec("0.003")))

	tierTests := []struct {
		tier domain.SubscriptionTier
		want string
	}{
		{domain.TierFree, "0.4"},
		{domain.TierBasic, "1"},
		{domain.TierPremium, "1.3"},
		{domain.TierUltimate, "1.8"},
	}
	for _, tt := range tierTests {
		m, err := cfg.TierMultiplier(tt.tier)
		require.NoError(t, err)
		assert.True(t, m.Equal(dec(tt.want)), "tier %s: got %s", tt.tier, m)
	}

	qualityTests := []struct {
		quality domain.AudioQuality
		want    string
	}{
		{domain.QualityStandard, "1"},
		{domain.QualityHigh, "1.2"},
		{domain.QualityLossless, "1.5"},
	}
	for _, tt := range qualityTests {
		m, err := cfg.QualityMultiplier(tt.quality)
		require.NoError(t, err)
		assert.True(t, m.Equal(dec(tt.want)), "quality %s: got %s", tt.quality, m)
	}
}

func TestConfigLookups(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("unknown tier fails", func(t *testing.T) {
		_, err := cfg.TierMultiplier("vip")
		var unknown *UnknownMultiplierError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "tier", unknown.Table)
	})

	t.Run("unknown quality fails", func(t *testing.T) {
		_, err := cfg.QualityMultiplier("spatial")
		var unknown *UnknownMultiplierError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "quality", unknown.Table)
	})

	t.Run("unlisted locale defaults to one", func(t *testing.T) {
		assert.True(t, cfg.LocaleMultiplier("xx-YY").Equal(decimal.NewFromInt(1)))
	})

	t.Run("listed locale overrides", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LocaleMultipliers["de-DE"] = dec("1.1")
		assert.True(t, cfg.LocaleMultiplier("de-DE").Equal(dec("1.1")))
	})
}

func TestConfigValidate(t *testing.T) {
	t.Run("negative base rate rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.BaseRate = dec("-0.003")
		var negative *NegativeRateError
		require.ErrorAs(t, cfg.Validate(), &negative)
		assert.Equal(t, "base_rate", negative.Field)
	})

	t.Run("negative tier multiplier rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TierMultipliers[domain.TierFree] = dec("-0.4")
		var negative *NegativeRateError
		require.ErrorAs(t, cfg.Validate(), &negative)
	})

	t.Run("negative locale multiplier rejected", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LocaleMultipliers["en-US"] = dec("-1")
		var negative *NegativeRateError
		require.ErrorAs(t, cfg.Validate(), &negative)
	})

	t.Run("zero multipliers are allowed", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.TierMultipliers[domain.TierFree] = decimal.Zero
		assert.NoError(t, cfg.Validate())
	})
}

// memPersister records the last saved configuration.
type memPersister struct {
	mu    sync.Mutex
	saved *Config
	fail  error
}

func (p *memPersister) SaveRateConfig(_ context.Context, cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.saved = &cfg
	return nil
}

func (p *memPersister) LoadRateConfig(_ context.Context) (*Config, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saved, nil
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("starts with defaults", func(t *testing.T) {
		s := NewStore(nil)
		assert.True(t, s.Get().BaseRate.Equal(dec("0.003")))
	})

	t.Run("update swaps configuration", func(t *testing.T) {
		s := NewStore(nil)

		next := DefaultConfig()
		next.BaseRate = dec("0.005")
		require.NoError(t, s.Update(ctx, next))

		assert.True(t, s.Get().BaseRate.Equal(dec("0.005")))
	})

	t.Run("invalid update leaves configuration untouched", func(t *testing.T) {
		s := NewStore(nil)

		next := DefaultConfig()
		next.BaseRate = dec("-1")
		require.Error(t, s.Update(ctx, next))

		assert.True(t, s.Get().BaseRate.Equal(dec("0.003")))
	})

	t.Run("update is written through to the persister", func(t *testing.T) {
		p := &memPersister{}
		s := NewStore(p)

		next := DefaultConfig()
		next.BaseRate = dec("0.004")
		require.NoError(t, s.Update(ctx, next))

		require.NotNil(t, p.saved)
		assert.True(t, p.saved.BaseRate.Equal(dec("0.004")))
	})

	t.Run("persist failure keeps the old configuration", func(t *testing.T) {
		p := &memPersister{fail: assert.AnError}
		s := NewStore(p)

		next := DefaultConfig()
		next.BaseRate = dec("0.004")
		require.Error(t, s.Update(ctx, next))

		assert.True(t, s.Get().BaseRate.Equal(dec("0.003")))
	})

	t.Run("restore replaces defaults with the persisted configuration", func(t *testing.T) {
		p := &memPersister{}
		persisted := DefaultConfig()
		persisted.BaseRate = dec("0.01")
		p.saved = &persisted

		s := NewStore(p)
		require.NoError(t, s.Restore(ctx))
		assert.True(t, s.Get().BaseRate.Equal(dec("0.01")))
	})

	t.Run("restore without a persisted row keeps defaults", func(t *testing.T) {
		s := NewStore(&memPersister{})
		require.NoError(t, s.Restore(ctx))
		assert.True(t, s.Get().BaseRate.Equal(dec("0.003")))
	})

	t.Run("update does not alias caller maps", func(t *testing.T) {
		s := NewStore(nil)

		next := DefaultConfig()
		require.NoError(t, s.Update(ctx, next))

		// mutating the caller's copy must not leak into the store
		next.TierMultipliers[domain.TierFree] = dec("99")
		m, err := s.Get().TierMultiplier(domain.TierFree)
		require.NoError(t, err)
		assert.True(t, m.Equal(dec("0.4")))
	})

	t.Run("concurrent readers never see a partial configuration", func(t *testing.T) {
		s := NewStore(nil)

		var writers, readers sync.WaitGroup
		stop := make(chan struct{})

		writers.Add(1)
		go func() {
			defer writers.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				next := DefaultConfig()
				if i%2 == 0 {
					next.BaseRate = dec("0.005")
					next.TierMultipliers[domain.TierFree] = dec("0.5")
				}
				_ = s.Update(context.Background(), next)
			}
		}()

		for range 4 {
			readers.Add(1)
			go func() {
				defer readers.Done()
				for range 1000 {
					cfg := s.Get()
					m, err := cfg.TierMultiplier(domain.TierFree)
					assert.NoError(t, err)
					// each generation pairs base 0.003 with free 0.4, or
					// 0.005 with 0.5; a mix means a torn read
					if cfg.BaseRate.Equal(dec("0.003")) {
						assert.True(t, m.Equal(dec("0.4")))
					} else {
						assert.True(t, m.Equal(dec("0.5")))
					}
				}
			}()
		}

		readers.Wait()
		close(stop)
		writers.Wait()
	})
}
