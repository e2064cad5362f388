package autogen

import (
	"errors"
	"fmt"
	"time"
)

// Policy holds the sweep's wait intervals.
type Policy struct {
	SuccessCooldown time.Duration `mapstructure:"success_cooldown"`
	SoftRetry       time.Duration `mapstructure:"soft_retry"`
	GenericRetry    time.Duration `mapstructure:"generic_retry"`
	RateLimitSleep  time.Duration `mapstructure:"rate_limit_sleep"`
	Tick            time.Duration `mapstructure:"tick"`
}

// DefaultPolicy returns the conservative defaults: one minute between
// successes and five minutes after a quota error.
func DefaultPolicy() Policy {
	return Policy{
		SuccessCooldown: 60 * time.Second,
		SoftRetry:       10 * time.Second,
		GenericRetry:    30 * time.Second,
		RateLimitSleep:  5 * time.Minute,
		Tick:            time.Second,
	}
}

// Validate checks that every interval is positive and that the intervals
// keep their relative order: the rate-limit sleep is the longest and the
// soft retry the shortest.
func (p Policy) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"success_cooldown": p.SuccessCooldown,
		"soft_retry":       p.SoftRetry,
		"generic_retry":    p.GenericRetry,
		"rate_limit_sleep": p.RateLimitSleep,
		"tick":             p.Tick,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if p.RateLimitSleep <= p.GenericRetry {
		errs = append(errs, fmt.Errorf("rate_limit_sleep (%s) must exceed generic_retry (%s)", p.RateLimitSleep, p.GenericRetry))
	}
	if p.RateLimitSleep <= p.SuccessCooldown {
		errs = append(errs, fmt.Errorf("rate_limit_sleep (%s) must exceed success_cooldown (%s)", p.RateLimitSleep, p.SuccessCooldown))
	}
	if p.SuccessCooldown <= p.SoftRetry {
		errs = append(errs, fmt.Errorf("success_cooldown (%s) must exceed soft_retry (%s)", p.SuccessCooldown, p.SoftRetry))
	}
	if p.GenericRetry < p.SoftRetry {
		errs = append(errs, fmt.Errorf("generic_retry (%s) must not be shorter than soft_retry (%s)", p.GenericRetry, p.SoftRetry))
	}
	return errors.Join(errs...)
}
