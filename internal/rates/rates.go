// Package rates holds the per-stream rate configuration: a base rate scaled
// by subscription tier, audio quality, and locale multiplier tables. The
// process-wide store swaps configurations atomically so concurrent readers
// never observe a partially updated table.
package rates

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tunestake/royalty-ledger/internal/domain"
)

// NegativeRateError reports a base rate or multiplier below zero.
type NegativeRateError struct {
	Field string
	Value decimal.Decimal
}

func (e *NegativeRateError) Error() string {
	return fmt.Sprintf("rate configuration field %q is negative: %s", e.Field, e.Value)
}

// UnknownMultiplierError reports a tier or quality key missing from its
// multiplier table. Locales are exempt; an unlisted locale prices at 1.0.
type UnknownMultiplierError struct {
	Table string
	Key   string
}

func (e *UnknownMultiplierError) Error() string {
	return fmt.Sprintf("no %s multiplier for %q", e.Table, e.Key)
}

// Config is one immutable rate configuration generation. Callers must treat a
// Config obtained from the store as read-only.
type Config struct {
	BaseRate           decimal.Decimal                             `json:"base_rate"`
	TierMultipliers    map[domain.SubscriptionTier]decimal.Decimal `json:"tier_multipliers"`
	QualityMultipliers map[domain.AudioQuality]decimal.Decimal     `json:"quality_multipliers"`
	LocaleMultipliers  map[string]decimal.Decimal                  `json:"locale_multipliers"`
}

// DefaultConfig returns the documented boot-time configuration, used until an
// administrative update replaces it.
func DefaultConfig() Config {
	return Config{
		BaseRate: decimal.RequireFromString("0.003"),
		TierMultipliers: map[domain.SubscriptionTier]decimal.Decimal{
			domain.TierFree:     decimal.RequireFromString("0.4"),
			domain.TierBasic:    decimal.NewFromInt(1),
			domain.TierPremium:  decimal.RequireFromString("1.3"),
			domain.TierUltimate: decimal.RequireFromString("1.8"),
		},
		QualityMultipliers: map[domain.AudioQuality]decimal.Decimal{
			domain.QualityStandard: decimal.NewFromInt(1),
			domain.QualityHigh:     decimal.RequireFromString("1.2"),
			domain.QualityLossless: decimal.RequireFromString("1.5"),
		},
		LocaleMultipliers: map[string]decimal.Decimal{},
	}
}

// Validate rejects configurations carrying any negative rate or multiplier.
func (c Config) Validate() error {
	if c.BaseRate.IsNegative() {
		return &NegativeRateError{Field: "base_rate", Value: c.BaseRate}
	}
	for tier, m := range c.TierMultipliers {
		if m.IsNegative() {
			return &NegativeRateError{Field: "tier." + string(tier), Value: m}
		}
	}
	for quality, m := range c.QualityMultipliers {
		if m.IsNegative() {
			return &NegativeRateError{Field: "quality." + string(quality), Value: m}
		}
	}
	for locale, m := range c.LocaleMultipliers {
		if m.IsNegative() {
			return &NegativeRateError{Field: "locale." + locale, Value: m}
		}
	}
	return nil
}

// TierMultiplier looks up the multiplier for a subscription tier.
func (c Config) TierMultiplier(tier domain.SubscriptionTier) (decimal.Decimal, error) {
	m, ok := c.TierMultipliers[tier]
	if !ok {
		return decimal.Zero, &UnknownMultiplierError{Table: "tier", Key: string(tier)}
	}
	return m, nil
}

// QualityMultiplier looks up the multiplier for an audio quality.
func (c Config) QualityMultiplier(quality domain.AudioQuality) (decimal.Decimal, error) {
	m, ok := c.QualityMultipliers[quality]
	if !ok {
		return decimal.Zero, &UnknownMultiplierError{Table: "quality", Key: string(quality)}
	}
	return m, nil
}

// LocaleMultiplier looks up the multiplier for a listener locale. Locale
// coverage is expected to be partial; unlisted locales default to 1.0.
func (c Config) LocaleMultiplier(locale string) decimal.Decimal {
	if m, ok := c.LocaleMultipliers[locale]; ok {
		return m
	}
	return decimal.NewFromInt(1)
}

// clone deep-copies a configuration so store updates never alias maps held by
// readers.
func (c Config) clone() Config {
	cp := Config{
		BaseRate:           c.BaseRate,
		TierMultipliers:    make(map[domain.SubscriptionTier]decimal.Decimal, len(c.TierMultipliers)),
		QualityMultipliers: make(map[domain.AudioQuality]decimal.Decimal, len(c.QualityMultipliers)),
		LocaleMultipliers:  make(map[string]decimal.Decimal, len(c.LocaleMultipliers)),
	}
	for k, v := range c.TierMultipliers {
		cp.TierMultipliers[k] = v
	}
	for k, v := range c.QualityMultipliers {
		cp.QualityMultipliers[k] = v
	}
	for k, v := range c.LocaleMultipliers {
		cp.LocaleMultipliers[k] = v
	}
	return cp
}
