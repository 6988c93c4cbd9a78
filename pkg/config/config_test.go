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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numamon/pkg/sinks"
)

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, conf.Workers)
	assert.True(t, conf.Dedup)
	assert.Equal(t, sinks.ModeImmediate, conf.OutputMode())
	assert.Equal(t, 100, conf.Output.BatchSize)
	assert.Empty(t, conf.Metrics.Address)
	assert.Len(t, conf.Rows(), 7)
}

func TestLoad_FileAndEnv(t *testing.T) {
	file := filepath.Join(t.TempDir(), "numamon.yaml")
	doc := `
workers: 4
dedup: false
output:
  mode: batched
  batchSize: 10
log:
  level: debug
`
	require.NoError(t, os.WriteFile(file, []byte(doc), 0o600))
	t.Setenv("NUMAMON_OUTPUT_BATCHSIZE", "25")
	t.Setenv("NUMAMON_METRICS_ADDRESS", ":9090")

	conf, err := Load(NewViper(), file)
	require.NoError(t, err)
	assert.Equal(t, 4, conf.Workers)
	assert.False(t, conf.Dedup)
	assert.Equal(t, sinks.ModeBatched, conf.OutputMode())
	assert.Equal(t, 25, conf.Output.BatchSize)
	assert.Equal(t, "debug", conf.Log.Level)
	assert.Equal(t, ":9090", conf.Metrics.Address)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{name: "workers", key: KeyWorkers, val: 0},
		{name: "mode", key: KeyOutputMode, val: "sometimes"},
		{name: "cache", key: KeyFactCacheSize, val: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewViper()
			v.Set(tt.key, tt.val)
			_, err := Load(v, "")
			assert.Error(t, err)
		})
	}

	v := NewViper()
	v.Set(KeyOutputMode, "batched")
	v.Set(KeyOutputBatchSize, 0)
	_, err = Load(v, "")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	file := filepath.Join(t.TempDir(), "numamon.yaml")
	require.NoError(t, os.WriteFile(file, []byte("log:\n  level: info\n"), 0o600))
	v := NewViper()
	conf, err := Load(v, file)
	require.NoError(t, err)
	assert.Equal(t, "info", conf.Log.Level)

	levels := make(chan string, 8)
	Watch(v, func(c *Config) {
		levels <- c.Log.Level
	}, func(err error) {
		t.Log(err)
	})
	require.NoError(t, os.WriteFile(file, []byte("log:\n  level: warn\n"), 0o600))
	require.Eventually(t, func() bool {
		select {
		case l := <-levels:
			return l == "warn"
		default:
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
}
