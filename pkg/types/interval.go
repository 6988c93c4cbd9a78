/*
Copyright 2022 The Numaproj Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Interval is a metric constraint [Lower, Upper] on timestamp distances. An unbounded interval
// has no upper limit.
type Interval struct {
	Lower   uint64
	Upper   uint64
	Bounded bool
}

// NewInterval returns the bounded interval [lower, upper].
func NewInterval(lower, upper uint64) (Interval, error) {
	if lower > upper {
		return Interval{}, fmt.Errorf("invalid interval [%d,%d]: lower bound exceeds upper bound", lower, upper)
	}
	return Interval{Lower: lower, Upper: upper, Bounded: true}, nil
}

// From returns the unbounded interval [lower, *).
func From(lower uint64) Interval {
	return Interval{Lower: lower}
}

// ParseInterval reads "[a,b]", "[a,*)" or "[a,∞)".
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 || s[0] != '[' {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	body := s[1 : len(s)-1]
	parts := strings.Split(body, ",")
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	lower, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval lower bound in %q: %w", s, err)
	}
	upper := strings.TrimSpace(parts[1])
	if upper == "*" || upper == "∞" || upper == "INFINITY" {
		if s[len(s)-1] != ')' {
			return Interval{}, fmt.Errorf("invalid interval %q: unbounded intervals are right-open", s)
		}
		return From(lower), nil
	}
	if s[len(s)-1] != ']' {
		return Interval{}, fmt.Errorf("invalid interval %q", s)
	}
	u, err := strconv.ParseUint(upper, 10, 64)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid interval upper bound in %q: %w", s, err)
	}
	return NewInterval(lower, u)
}

// Validate checks the bound invariant.
func (i Interval) Validate() error {
	if i.Bounded && i.Lower > i.Upper {
		return fmt.Errorf("invalid interval %s: lower bound exceeds upper bound", i)
	}
	return nil
}

// Contains reports whether the non-negative distance d lies in the interval.
func (i Interval) Contains(d int64) bool {
	if d < 0 {
		return false
	}
	if uint64(d) < i.Lower {
		return false
	}
	return !i.Bounded || uint64(d) <= i.Upper
}

// MemSince reports ref + a <= cand <= ref + b.
func (i Interval) MemSince(ref, cand Timestamp) bool {
	return cand >= ref && i.Contains(cand-ref)
}

// MemUntil reports cand + a <= ref <= cand + b.
func (i Interval) MemUntil(ref, cand Timestamp) bool {
	return ref >= cand && i.Contains(ref-cand)
}

// LowerTS is the lower bound as a timestamp distance.
func (i Interval) LowerTS() Timestamp {
	return clamp(i.Lower)
}

// UpperTS is the upper bound as a timestamp distance; unbounded intervals return math.MaxInt64.
func (i Interval) UpperTS() Timestamp {
	if !i.Bounded {
		return math.MaxInt64
	}
	return clamp(i.Upper)
}

func (i Interval) String() string {
	if !i.Bounded {
		return fmt.Sprintf("[%d,*)", i.Lower)
	}
	return fmt.Sprintf("[%d,%d]", i.Lower, i.Upper)
}

func clamp(v uint64) Timestamp {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return Timestamp(v)
}

// AddTS adds two timestamps, saturating at the int64 range.
func AddTS(a, b Timestamp) Timestamp {
	s := a + b
	if b > 0 && s < a {
		return math.MaxInt64
	}
	if b < 0 && s > a {
		return math.MinInt64
	}
	return s
}

// SubTS subtracts b from a, saturating at the int64 range.
func SubTS(a, b Timestamp) Timestamp {
	if b == math.MinInt64 {
		return AddTS(AddTS(a, math.MaxInt64), 1)
	}
	return AddTS(a, -b)
}
