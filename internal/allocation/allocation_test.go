package allocation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		parts   map[string]decimal.Decimal
		wantErr bool
	}{
		{
			name: "exact hundred",
			parts: map[string]decimal.Decimal{
				"platform": dec("15"),
				"artist":   dec("55"),
				"pool":     dec("30"),
			},
		},
		{
			name: "fractional percentages summing exactly",
			parts: map[string]decimal.Decimal{
				"platform": dec("12.5"),
				"artist":   dec("62.5"),
				"pool":     dec("25"),
			},
		},
		{
			name: "single part of hundred",
			parts: map[string]decimal.Decimal{
				"artist": dec("100"),
			},
		},
		{
			name: "within epsilon below",
			parts: map[string]decimal.Decimal{
				"platform": dec("33.3333335"),
				"artist":   dec("33.3333335"),
				"pool":     dec("33.333333"),
			},
		},
		{
			name: "undersubscribed",
			parts: map[string]decimal.Decimal{
				"platform": dec("15"),
				"artist":   dec("55"),
				"pool":     dec("29.999"),
			},
			wantErr: true,
		},
		{
			name: "oversubscribed",
			parts: map[string]decimal.Decimal{
				"platform": dec("15"),
				"artist":   dec("55"),
				"pool":     dec("30.001"),
			},
			wantErr: true,
		},
		{
			name:    "empty parts sum to zero",
			parts:   map[string]decimal.Decimal{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.parts)
			if tt.wantErr {
				var notAllocated *NotFullyAllocatedError
				require.ErrorAs(t, err, &notAllocated)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	t.Run("negative part reported before sum", func(t *testing.T) {
		err := Validate(map[string]decimal.Decimal{
			"platform": dec("-10"),
			"artist":   dec("110"),
		})
		var negative *NegativeShareError
		require.ErrorAs(t, err, &negative)
		assert.Equal(t, "platform", negative.Name)
	})
}

func TestSplitValidate(t *testing.T) {
	t.Run("valid split", func(t *testing.T) {
		s := Split{Platform: dec("15"), Artist: dec("55"), InvestorPool: dec("30")}
		assert.NoError(t, s.Validate())
	})

	t.Run("zero investor pool is a valid split", func(t *testing.T) {
		s := Split{Platform: dec("20"), Artist: dec("80"), InvestorPool: decimal.Zero}
		assert.NoError(t, s.Validate())
	})

	t.Run("short split rejected", func(t *testing.T) {
		s := Split{Platform: dec("10"), Artist: dec("10"), InvestorPool: dec("10")}
		var notAllocated *NotFullyAllocatedError
		require.ErrorAs(t, s.Validate(), &notAllocated)
		assert.True(t, notAllocated.Sum.Equal(dec("30")))
	})

	t.Run("negative artist rejected", func(t *testing.T) {
		s := Split{Platform: dec("60"), Artist: dec("-20"), InvestorPool: dec("60")}
		var negative *NegativeShareError
		require.ErrorAs(t, s.Validate(), &negative)
		assert.Equal(t, "artist", negative.Name)
	})
}
