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
)

// Timepoint is the logical index of a time step. Timepoints are dense and start at zero.
type Timepoint int64

// Timestamp is the domain time attached to a timepoint. Timestamps never decrease with the timepoint.
type Timestamp = int64

// Infinity is the released frontier: no more data at any timepoint.
const Infinity = Timepoint(math.MaxInt64)

// MinTimepoint returns the smallest of the given timepoints, Infinity for none.
func MinTimepoint(tps ...Timepoint) Timepoint {
	m := Infinity
	for _, tp := range tps {
		if tp < m {
			m = tp
		}
	}
	return m
}

// MaxTimepoint returns the largest of two timepoints.
func MaxTimepoint(a, b Timepoint) Timepoint {
	if a > b {
		return a
	}
	return b
}

func (tp Timepoint) String() string {
	if tp == Infinity {
		return "∞"
	}
	return fmt.Sprintf("%d", int64(tp))
}

// Record is a tuple tagged with the timepoint it holds at.
type Record struct {
	TP    Timepoint
	Tuple Tuple
}

func (r Record) String() string {
	return fmt.Sprintf("%s@%d", r.Tuple, int64(r.TP))
}
