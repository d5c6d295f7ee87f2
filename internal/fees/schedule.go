// Package fees computes marketplace and payment-processor fees for a sale.
package fees

import (
	"fmt"
	"math"

	"github.com/Veraticus/longbox/internal/common"
)

// Standard fee schedule.
const (
	DefaultPlatformRate       = 0.0375
	DefaultProcessorRate      = 0.029
	DefaultProcessorFlatCents = 30
)

// Schedule holds the rates applied to every sale.
type Schedule struct {
	PlatformRate       float64 `mapstructure:"platform_rate" json:"platform_rate" yaml:"platform_rate"`
	ProcessorRate      float64 `mapstructure:"processor_rate" json:"processor_rate" yaml:"processor_rate"`
	ProcessorFlatCents int64   `mapstructure:"processor_flat_cents" json:"processor_flat_cents" yaml:"processor_flat_cents"`
}

// DefaultSchedule returns the standard 3.75% platform and 2.9% + 30¢ processor schedule.
func DefaultSchedule() Schedule {
	return Schedule{
		PlatformRate:       DefaultPlatformRate,
		ProcessorRate:      DefaultProcessorRate,
		ProcessorFlatCents: DefaultProcessorFlatCents,
	}
}

// Validate checks that every rate is a fraction in [0, 1).
func (s Schedule) Validate() error {
	if err := ValidateRate(s.PlatformRate); err != nil {
		return fmt.Errorf("platform rate: %w", err)
	}
	if err := ValidateRate(s.ProcessorRate); err != nil {
		return fmt.Errorf("processor rate: %w", err)
	}
	if s.ProcessorFlatCents < 0 {
		return fmt.Errorf("%w: processor flat fee %d is negative", common.ErrInvalidRate, s.ProcessorFlatCents)
	}
	return nil
}

// ValidateRate rejects rates outside [0, 1).
func ValidateRate(rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 || rate >= 1 {
		return fmt.Errorf("%w: %v is not a fraction in [0, 1)", common.ErrInvalidRate, rate)
	}
	return nil
}
