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

package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/numaproj/numamon/pkg/types"
)

func TestPartialSequence_InsertMerges(t *testing.T) {
	p := NewPartialSequence()
	assert.True(t, p.IsEmpty())
	p.Insert(5)
	p.Insert(3)
	p.Insert(4)
	assert.Equal(t, []Span{{3, 5}}, p.Spans())
	p.InsertRange(10, 12)
	p.Insert(0)
	assert.Equal(t, []Span{{0, 0}, {3, 5}, {10, 12}}, p.Spans())
	p.InsertRange(6, 9)
	assert.Equal(t, []Span{{0, 0}, {3, 12}}, p.Spans())
	p.InsertRange(1, 2)
	assert.Equal(t, []Span{{0, 12}}, p.Spans())
	assert.Equal(t, 1, p.Len())
	p.InsertRange(4, 1)
	assert.Equal(t, []Span{{0, 12}}, p.Spans())
}

func TestPartialSequence_Queries(t *testing.T) {
	p := NewPartialSequence()
	p.InsertRange(2, 4)
	p.InsertRange(8, 9)

	assert.True(t, p.Contains(3))
	assert.False(t, p.Contains(5))
	assert.False(t, p.Contains(0))

	run, ok := p.Run(9)
	assert.True(t, ok)
	assert.Equal(t, Span{8, 9}, run)
	_, ok = p.Run(6)
	assert.False(t, ok)

	n, ok := p.NextAtOrAfter(5)
	assert.True(t, ok)
	assert.Equal(t, types.Timepoint(8), n)
	n, ok = p.NextAtOrAfter(3)
	assert.True(t, ok)
	assert.Equal(t, types.Timepoint(3), n)
	_, ok = p.NextAtOrAfter(10)
	assert.False(t, ok)

	l, ok := p.LastBefore(8)
	assert.True(t, ok)
	assert.Equal(t, types.Timepoint(4), l)
	l, ok = p.LastBefore(4)
	assert.True(t, ok)
	assert.Equal(t, types.Timepoint(3), l)
	_, ok = p.LastBefore(2)
	assert.False(t, ok)
	_, ok = p.LastBefore(0)
	assert.False(t, ok)
}

func TestPartialSequence_Gaps(t *testing.T) {
	p := NewPartialSequence()
	assert.Equal(t, []Span{{0, 5}}, p.Gaps(0, 5))
	p.InsertRange(2, 4)
	p.InsertRange(8, 9)
	assert.Equal(t, []Span{{0, 1}, {5, 7}, {10, 11}}, p.Gaps(0, 11))
	assert.Equal(t, []Span{{5, 7}}, p.Gaps(3, 8))
	assert.Nil(t, p.Gaps(2, 4))
	assert.Nil(t, p.Gaps(5, 4))
	p.InsertRange(12, types.Infinity)
	assert.Equal(t, []Span{{10, 11}}, p.Gaps(10, 20))
}

func TestPartialSequence_PurgeBefore(t *testing.T) {
	p := NewPartialSequence()
	p.InsertRange(2, 4)
	p.InsertRange(8, 9)
	p.PurgeBefore(3)
	assert.Equal(t, []Span{{3, 4}, {8, 9}}, p.Spans())
	p.PurgeBefore(6)
	assert.Equal(t, []Span{{8, 9}}, p.Spans())
	p.PurgeBefore(10)
	assert.True(t, p.IsEmpty())
}
