package billing

import (
	"math"
	"time"

	"sectland-backend/internal/config"
	"sectland-backend/internal/domain"
)

// Calculator turns configuration and sect attributes into costs and limits.
// All functions are pure; callers validate inputs.
type Calculator struct {
	billing     config.BillingConfig
	maintenance config.MaintenanceConfig
}

// NewCalculator creates a calculator over the loaded configuration
func NewCalculator(billing config.BillingConfig, maintenance config.MaintenanceConfig) *Calculator {
	return &Calculator{billing: billing, maintenance: maintenance}
}

// ClaimCost returns the cost of claiming unitCount units of land at the given
// sect level. Higher levels earn a discount, clamped to [0.1, 1.0]. The
// result is never below 1.
func (c *Calculator) ClaimCost(level int32, unitCount int32) int64 {
	discount := 1.0 - c.billing.LevelDiscountFactor*float64(level-1)*0.1
	if discount < 0.1 {
		discount = 0.1
	}
	if discount > 1.0 {
		discount = 1.0
	}

	cost := int64(math.Round(float64(c.billing.BasePrice+c.billing.PricePerUnit*int64(unitCount)) * discount))
	if cost < 1 {
		cost = 1
	}
	return cost
}

// ExpandCost returns the cost of adding unitCount units to an existing
// territory. The base price was paid at claim time, so only the per-unit
// portion applies, with the same level discount as ClaimCost.
func (c *Calculator) ExpandCost(level int32, unitCount int32) int64 {
	discount := 1.0 - c.billing.LevelDiscountFactor*float64(level-1)*0.1
	if discount < 0.1 {
		discount = 0.1
	}
	if discount > 1.0 {
		discount = 1.0
	}

	cost := int64(math.Round(float64(c.billing.PricePerUnit*int64(unitCount)) * discount))
	if cost < 1 {
		cost = 1
	}
	return cost
}

// ShrinkRefund returns the amount credited back when releasing unitCount
// units: half of what expanding by the same amount would cost.
func (c *Calculator) ShrinkRefund(level int32, unitCount int32) int64 {
	return c.ExpandCost(level, unitCount) / 2
}

// MaintenanceCost returns the fee due per billing period for a territory of
// the given size
func (c *Calculator) MaintenanceCost(unitCount int32) int64 {
	return c.billing.CostPerUnitPerPeriod * int64(unitCount)
}

// LandLimit returns the largest territory the sect may hold
func (c *Calculator) LandLimit(level int32, memberCount int32) int32 {
	limit := c.billing.BaseLimit +
		level*c.billing.PerLevelBonus +
		int32(float64(memberCount)*c.billing.PerMemberBonus)
	if limit > c.billing.MaxLimit {
		limit = c.billing.MaxLimit
	}
	return limit
}

// BindingFee returns the flat fee for binding an existing external claim
func (c *Calculator) BindingFee() int64 {
	return c.billing.BindingFlatFee
}

// Period returns the configured billing period
func (c *Calculator) Period() time.Duration {
	return c.maintenance.Period()
}

// DeriveStatus classifies payment recency against the display thresholds.
// It has no side effects and is independent of the debt record's own clock.
func (c *Calculator) DeriveStatus(hasLand bool, sinceLastPayment time.Duration) domain.MaintenanceStatus {
	if !hasLand {
		return domain.StatusNoLand
	}

	days := int(sinceLastPayment.Hours() / 24)
	switch {
	case days < c.maintenance.GracePeriodDays:
		return domain.StatusPaid
	case days < c.maintenance.FreezePeriodDays:
		return domain.StatusOverdueWarning
	case days < c.maintenance.AutoReleasePeriodDays:
		return domain.StatusFrozen
	default:
		return domain.StatusAutoReleasing
	}
}
