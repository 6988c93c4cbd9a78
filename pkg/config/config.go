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

// Package config loads the monitor configuration from an optional file and NUMAMON_* environment
// variables on top of the defaults.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/numaproj/numamon/pkg/sinks"
)

// EnvPrefix prefixes the environment variables overriding a key, e.g. NUMAMON_OUTPUT_MODE.
const EnvPrefix = "NUMAMON"

// Keys of the configuration.
const (
	KeyWorkers         = "workers"
	KeyDedup           = "dedup"
	KeyOutputMode      = "output.mode"
	KeyOutputBatchSize = "output.batchSize"
	KeyLogLevel        = "log.level"
	KeyMetricsAddress  = "metrics.address"
	KeyFactCacheSize   = "facts.cacheSize"
)

type Config struct {
	Workers int           `mapstructure:"workers"`
	Dedup   bool          `mapstructure:"dedup"`
	Output  OutputConfig  `mapstructure:"output"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Facts   FactsConfig   `mapstructure:"facts"`
}

type OutputConfig struct {
	Mode      string `mapstructure:"mode"`
	BatchSize int    `mapstructure:"batchSize"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	// Address to serve metrics on; empty disables the server
	Address string `mapstructure:"address"`
}

type FactsConfig struct {
	// CacheSize bounds the parsed line cache of every base fact leaf; 0 picks the default
	CacheSize int `mapstructure:"cacheSize"`
}

// NewViper returns a viper instance with the defaults and the environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyDedup, true)
	v.SetDefault(KeyOutputMode, string(sinks.ModeImmediate))
	v.SetDefault(KeyOutputBatchSize, 100)
	v.SetDefault(KeyLogLevel, "")
	v.SetDefault(KeyMetricsAddress, "")
	v.SetDefault(KeyFactCacheSize, 0)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file into v when it is set, and returns the validated configuration.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to load configuration file. %w", err)
		}
	}
	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed unmarshal configuration file. %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the ranges of the values.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("invalid %s %d, must be at least 1", KeyWorkers, c.Workers)
	}
	mode, err := sinks.ParseMode(c.Output.Mode)
	if err != nil {
		return err
	}
	if mode == sinks.ModeBatched && c.Output.BatchSize < 1 {
		return fmt.Errorf("invalid %s %d, must be at least 1", KeyOutputBatchSize, c.Output.BatchSize)
	}
	if c.Facts.CacheSize < 0 {
		return fmt.Errorf("invalid %s %d", KeyFactCacheSize, c.Facts.CacheSize)
	}
	return nil
}

// OutputMode is the parsed output mode of a validated configuration.
func (c *Config) OutputMode() sinks.Mode {
	m, _ := sinks.ParseMode(c.Output.Mode)
	return m
}

// Rows lists the effective configuration as key and value pairs, in key order.
func (c *Config) Rows() [][]string {
	return [][]string{
		{KeyDedup, fmt.Sprint(c.Dedup)},
		{KeyFactCacheSize, fmt.Sprint(c.Facts.CacheSize)},
		{KeyLogLevel, c.Log.Level},
		{KeyMetricsAddress, c.Metrics.Address},
		{KeyOutputBatchSize, fmt.Sprint(c.Output.BatchSize)},
		{KeyOutputMode, c.Output.Mode},
		{KeyWorkers, fmt.Sprint(c.Workers)},
	}
}

// Watch reloads the configuration file of v on every change and passes the result to onChange.
// Only the log level is meant to change at runtime; the other keys are read once at startup.
func Watch(v *viper.Viper, onChange func(*Config), onErrorReloading func(error)) {
	var lock sync.Mutex
	v.OnConfigChange(func(e fsnotify.Event) {
		lock.Lock()
		defer lock.Unlock()
		conf := &Config{}
		if err := v.Unmarshal(conf); err != nil {
			onErrorReloading(fmt.Errorf("failed to reload %s: %w", e.Name, err))
			return
		}
		if err := conf.Validate(); err != nil {
			onErrorReloading(fmt.Errorf("failed to reload %s: %w", e.Name, err))
			return
		}
		onChange(conf)
	})
	v.WatchConfig()
}
