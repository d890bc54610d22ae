// Package allocation validates named stakeholder percentage splits. A split
// is valid when every part is non-negative and the parts sum to exactly 100
// within a fixed epsilon absorbing decimal rounding.
package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// epsilon absorbs rounding noise in percentage sums (e.g. 99.9999995).
var epsilon = decimal.RequireFromString("0.000001")

var hundred = decimal.NewFromInt(100)

// NotFullyAllocatedError reports a split whose parts do not sum to 100.
type NotFullyAllocatedError struct {
	Sum decimal.Decimal
}

func (e *NotFullyAllocatedError) Error() string {
	return fmt.Sprintf("allocation parts sum to %s, want 100", e.Sum)
}

// NegativeShareError reports a negative stakeholder percentage.
type NegativeShareError struct {
	Name  string
	Value decimal.Decimal
}

func (e *NegativeShareError) Error() string {
	return fmt.Sprintf("allocation part %q is negative: %s", e.Name, e.Value)
}

// Validate checks a mapping of named stakeholder percentages. Pure; callable
// standalone by the API layer and by release creation.
func Validate(parts map[string]decimal.Decimal) error {
	sum := decimal.Zero
	for name, pct := range parts {
		if pct.IsNegative() {
			return &NegativeShareError{Name: name, Value: pct}
		}
		sum = sum.Add(pct)
	}
	if sum.Sub(hundred).Abs().GreaterThan(epsilon) {
		return &NotFullyAllocatedError{Sum: sum}
	}
	return nil
}

// Split is the revenue allocation of a release: platform cut, artist cut, and
// the pool reserved for share holders. All values are percentages.
type Split struct {
	Platform     decimal.Decimal `json:"platform"`
	Artist       decimal.Decimal `json:"artist"`
	InvestorPool decimal.Decimal `json:"investor_pool"`
}

// Validate checks the split sums to 100 with no negative part.
func (s Split) Validate() error {
	return Validate(map[string]decimal.Decimal{
		"platform":      s.Platform,
		"artist":        s.Artist,
		"investor_pool": s.InvestorPool,
	})
}
