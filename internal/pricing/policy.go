// Package pricing maps (stage, payment amount) to a conversion rate in
// asset units per whole native currency unit. The mapping is a pure
// function of its inputs: no participant history, no external state.
package pricing

import (
	id "salegate/pkg/domain"
	dErrors "salegate/pkg/domain-errors"
)

// Bonus tier thresholds, in whole native currency units. The same three
// thresholds apply in the early and bonus stages; only the multipliers
// differ.
var (
	tierHigh = id.NativeUnits(21)
	tierMid  = id.NativeUnits(11)
	tierLow  = id.NativeUnits(5)
)

// Bonus percentages per stage, in tenths of a percent so the smallest
// bonus stage tier (2.5%) stays integral.
const (
	earlyHighPermille = 200 // +20%
	earlyMidPermille  = 150 // +15%
	earlyLowPermille  = 100 // +10%
	bonusHighPermille = 100 // +10%
	bonusMidPermille  = 50  // +5%
	bonusLowPermille  = 25  // +2.5%
)

// Policy computes stage-dependent rates from a configured base rate.
type Policy struct {
	baseRate uint64
}

// New builds a Policy around the sale's base conversion rate.
func New(baseRate uint64) *Policy {
	return &Policy{baseRate: baseRate}
}

// Rate returns the asset units granted per whole native currency unit
// for the given stage and payment. Identical inputs always yield
// identical output. A zero payment is rejected.
func (p *Policy) Rate(stage id.Stage, payment id.Amount) (uint64, error) {
	if !payment.IsPositive() {
		return 0, dErrors.New(dErrors.CodeValidation, "payment amount must be positive")
	}

	switch stage {
	case id.StageEarly:
		return p.tiered(payment, earlyHighPermille, earlyMidPermille, earlyLowPermille), nil
	case id.StageBonus:
		return p.tiered(payment, bonusHighPermille, bonusMidPermille, bonusLowPermille), nil
	default:
		return p.baseRate, nil
	}
}

// BaseRate exposes the configured base conversion rate.
func (p *Policy) BaseRate() uint64 {
	return p.baseRate
}

func (p *Policy) tiered(payment id.Amount, high, mid, low uint64) uint64 {
	switch {
	case payment.Cmp(tierHigh) >= 0:
		return p.withBonusPermille(high)
	case payment.Cmp(tierMid) >= 0:
		return p.withBonusPermille(mid)
	case payment.Cmp(tierLow) >= 0:
		return p.withBonusPermille(low)
	default:
		return p.baseRate
	}
}

func (p *Policy) withBonusPermille(permille uint64) uint64 {
	return p.baseRate + p.baseRate*permille/1000
}
