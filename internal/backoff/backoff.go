// Package backoff computes bounded retry delays for store commits and stream
// reconnects.
package backoff

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Type selects the delay curve.
type Type string

const (
	None      Type = "none"
	Fixed     Type = "fixed"
	Exp       Type = "exp"
	ExpJitter Type = "exp-jitter"
)

// ParseType maps a policy name to a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case None, Fixed, Exp, ExpJitter:
		return Type(s), nil
	case "":
		return Exp, nil
	default:
		return "", fmt.Errorf("backoff: unknown type %q", s)
	}
}

// Policy describes a bounded backoff schedule.
type Policy struct {
	Type   Type
	Base   time.Duration
	Cap    time.Duration
	Factor float64
	// MaxAttempts bounds retries; 0 means unbounded.
	MaxAttempts int
}

// Default is the reconnect policy: 1s doubling up to one minute.
func Default() Policy {
	return Policy{Type: Exp, Base: time.Second, Cap: time.Minute, Factor: 2.0}
}

// Delay returns the wait before the given attempt (1-based). The result never
// exceeds Cap when Cap is positive.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch p.Type {
	case None:
		return 0
	case Fixed:
		if p.Base <= 0 {
			return 0
		}
		if p.Cap > 0 && p.Base > p.Cap {
			return p.Cap
		}
		return p.Base
	case Exp, ExpJitter, "":
		base := p.Base
		if base <= 0 {
			base = 200 * time.Millisecond
		}
		factor := p.Factor
		if factor < 1 {
			factor = 2.0
		}
		delay := float64(base) * math.Pow(factor, float64(attempt-1))
		d := time.Duration(delay)
		// overflow shows up as Inf or a negative duration
		if math.IsInf(delay, 0) || delay > math.MaxInt64 || d < 0 {
			d = time.Duration(math.MaxInt64)
		}
		if p.Cap > 0 && d > p.Cap {
			d = p.Cap
		}
		if p.Type == ExpJitter {
			if d <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(d)))
		}
		return d
	default:
		return 0
	}
}

// Exhausted reports whether attempt is past MaxAttempts.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
