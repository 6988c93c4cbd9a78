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

package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerWithLevel(t *testing.T) {
	l, err := NewLoggerWithLevel("debug")
	require.NoError(t, err)
	assert.True(t, l.Desugar().Core().Enabled(zap.DebugLevel))

	l, err = NewLoggerWithLevel("error")
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.InfoLevel))

	_, err = NewLoggerWithLevel("loud")
	assert.Error(t, err)
}

func TestFromContext(t *testing.T) {
	l := zap.NewNop().Sugar()
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestNewLoggerWithAtomicLevel(t *testing.T) {
	l, level, err := NewLoggerWithAtomicLevel("warn")
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.InfoLevel))
	level.SetLevel(zap.DebugLevel)
	assert.True(t, l.Desugar().Core().Enabled(zap.DebugLevel))
}
