package realtime

import (
	"math"
	"time"
)

// ReconnectPolicy decides how long to wait before reconnect attempt n (1-based).
type ReconnectPolicy interface {
	Next(attempt int) time.Duration
}

// FixedDelay 固定间隔重连
type FixedDelay struct {
	Delay time.Duration
}

func (p FixedDelay) Next(int) time.Duration {
	if p.Delay <= 0 {
		return 2 * time.Second
	}
	return p.Delay
}

// ExponentialBackoff doubles (or multiplies by Factor) the delay up to Max.
type ExponentialBackoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func (p ExponentialBackoff) Next(attempt int) time.Duration {
	base := p.Base
	if base <= 0 {
		base = 2 * time.Second
	}
	factor := p.Factor
	if factor <= 1 {
		factor = 2
	}
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(base) * math.Pow(factor, float64(attempt-1)))
	if p.Max > 0 && (d > p.Max || d <= 0) {
		return p.Max
	}
	return d
}

// NewPolicy builds the policy named in config ("fixed" or "exponential").
func NewPolicy(name string, delay, maxDelay time.Duration) ReconnectPolicy {
	if name == "exponential" {
		return ExponentialBackoff{Base: delay, Max: maxDelay}
	}
	return FixedDelay{Delay: delay}
}
