package services

import (
	"math"

	"github.com/shopspring/decimal"
)

// Default revenue shares.
var (
	DefaultInfluencerRate = decimal.RequireFromString("0.10")
	DefaultPlatformRate   = decimal.RequireFromString("0.10")
)

// Split is the division of one purchase's gross amount.
// Company + Influencer + Platform == Total, always.
type Split struct {
	Total      int64 `json:"total"`
	Company    int64 `json:"company_amount"`
	Influencer int64 `json:"influencer_amount"`
	Platform   int64 `json:"platform_amount"`
}

// SplitPolicy holds the influencer and platform shares as exact decimals.
// The zero value stands for the default policy; build a policy with
// NewSplitPolicy to make zero rates mean zero.
type SplitPolicy struct {
	InfluencerRate decimal.Decimal
	PlatformRate   decimal.Decimal

	explicit bool
}

// NewSplitPolicy returns a policy that applies the given rates as-is,
// including 0/0 (the company keeps everything).
func NewSplitPolicy(influencerRate, platformRate decimal.Decimal) SplitPolicy {
	return SplitPolicy{InfluencerRate: influencerRate, PlatformRate: platformRate, explicit: true}
}

// DefaultSplitPolicy returns the 10% influencer / 10% platform policy.
func DefaultSplitPolicy() SplitPolicy {
	return NewSplitPolicy(DefaultInfluencerRate, DefaultPlatformRate)
}

// TotalFits reports whether unitPrice*quantity is positive and fits in an
// int64.
func TotalFits(unitPrice, quantity int64) bool {
	return unitPrice > 0 && quantity > 0 && unitPrice <= math.MaxInt64/quantity
}

// MaxUnitPrice is the largest unit price whose total at maxQuantity still
// fits in an int64.
func MaxUnitPrice(maxQuantity int64) int64 {
	if maxQuantity < 1 {
		maxQuantity = 1
	}
	return math.MaxInt64 / maxQuantity
}

// Split divides unitPrice*quantity. Influencer and platform shares are
// rounded down to whole units; the company receives the remainder, so no
// rounding residue is ever lost. Inputs must be positive and satisfy
// TotalFits; callers validate.
func (p SplitPolicy) Split(unitPrice, quantity int64) Split {
	total := unitPrice * quantity
	gross := decimal.NewFromInt(total)
	influencer := gross.Mul(p.InfluencerRate).Floor().IntPart()
	platform := gross.Mul(p.PlatformRate).Floor().IntPart()
	return Split{
		Total:      total,
		Company:    total - influencer - platform,
		Influencer: influencer,
		Platform:   platform,
	}
}
