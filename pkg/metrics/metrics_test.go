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

package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimepointValue(t *testing.T) {
	assert.Equal(t, float64(0), TimepointValue(0))
	assert.Equal(t, float64(42), TimepointValue(42))
	assert.True(t, math.IsInf(TimepointValue(math.MaxInt64), 1))
}
