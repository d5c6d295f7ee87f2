package fees

import (
	"fmt"
	"math"
	"strconv"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/shopspring/decimal"
)

// MaxGrossCents is the largest gross amount accepted, about $90 trillion.
// Beyond 2^53 a float64 dollar amount can no longer represent every cent.
const MaxGrossCents int64 = 1 << 53

// Calculator applies a fee schedule to sale amounts.
type Calculator struct {
	schedule Schedule
}

// NewCalculator creates a calculator for the given schedule.
func NewCalculator(schedule Schedule) (*Calculator, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{schedule: schedule}, nil
}

// Schedule returns the schedule this calculator applies.
func (c *Calculator) Schedule() Schedule {
	return c.schedule
}

// Calculate splits a gross dollar amount into platform fee, processor fee and
// net proceeds. A non-nil rateOverride replaces the platform rate.
//
// Zero, negative, non-finite and oversized amounts are rejected with
// common.ErrInvalidAmount.
func (c *Calculator) Calculate(grossDollars float64, rateOverride *float64) (model.FeeBreakdown, error) {
	grossCents, err := DollarsToCents(grossDollars)
	if err != nil {
		return model.FeeBreakdown{}, err
	}
	return c.CalculateCents(grossCents, rateOverride)
}

// CalculateCents is Calculate for an amount already in cents.
func (c *Calculator) CalculateCents(grossCents int64, rateOverride *float64) (model.FeeBreakdown, error) {
	if grossCents <= 0 {
		return model.FeeBreakdown{}, fmt.Errorf("%w: gross must be positive, got %d cents", common.ErrInvalidAmount, grossCents)
	}
	if grossCents > MaxGrossCents {
		return model.FeeBreakdown{}, fmt.Errorf("%w: gross %d cents exceeds the maximum of %d", common.ErrInvalidAmount, grossCents, MaxGrossCents)
	}

	platformRate := c.schedule.PlatformRate
	if rateOverride != nil {
		if err := ValidateRate(*rateOverride); err != nil {
			return model.FeeBreakdown{}, fmt.Errorf("rate override: %w", err)
		}
		platformRate = *rateOverride
	}

	processorFee := percentOf(grossCents, c.schedule.ProcessorRate) + c.schedule.ProcessorFlatCents
	platformFee := percentOf(grossCents, platformRate)

	// Net absorbs rounding so the three parts always sum to gross.
	return model.FeeBreakdown{
		GrossAmountCents:  grossCents,
		PlatformFeeCents:  platformFee,
		ProcessorFeeCents: processorFee,
		NetCents:          grossCents - platformFee - processorFee,
	}, nil
}

// CalculateTradeFee applies the default schedule.
func CalculateTradeFee(grossDollars float64, rateOverride *float64) (model.FeeBreakdown, error) {
	return (&Calculator{schedule: DefaultSchedule()}).Calculate(grossDollars, rateOverride)
}

// DollarsToCents rounds a dollar amount half-up to whole cents.
func DollarsToCents(dollars float64) (int64, error) {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0, fmt.Errorf("%w: %v is not a finite amount", common.ErrInvalidAmount, dollars)
	}
	if dollars <= 0 {
		return 0, fmt.Errorf("%w: gross must be positive, got %v", common.ErrInvalidAmount, dollars)
	}

	cents := decimal.NewFromFloat(dollars).Shift(2).Round(0)
	if !cents.IsPositive() {
		return 0, fmt.Errorf("%w: %v rounds to zero cents", common.ErrInvalidAmount, dollars)
	}
	if cents.GreaterThan(decimal.NewFromInt(MaxGrossCents)) {
		return 0, fmt.Errorf("%w: %v exceeds the largest supported amount", common.ErrInvalidAmount, dollars)
	}
	return cents.IntPart(), nil
}

// FormatCents renders cents as a dollar string such as "$1,234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	whole := strconv.FormatInt(cents/100, 10)
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + "," + whole[i:]
	}
	return fmt.Sprintf("%s$%s.%02d", sign, whole, cents%100)
}

func percentOf(cents int64, rate float64) int64 {
	return decimal.NewFromInt(cents).Mul(decimal.NewFromFloat(rate)).Round(0).IntPart()
}
