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
	"fmt"

	zap "go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/shared/util"
)

// NewLogger returns a new zap.SugaredLogger writing to stderr, stdout carries the verdicts.
func NewLogger() *zap.SugaredLogger {
	logger, err := NewLoggerWithLevel("")
	if err != nil {
		panic(err)
	}
	return logger
}

// NewLoggerWithLevel returns a new zap.SugaredLogger at the given level; an empty level keeps the
// default of the selected config.
func NewLoggerWithLevel(level string) (*zap.SugaredLogger, error) {
	logger, _, err := NewLoggerWithAtomicLevel(level)
	return logger, err
}

// NewLoggerWithAtomicLevel is NewLoggerWithLevel, also returning the level handle to change it at
// runtime.
func NewLoggerWithAtomicLevel(level string) (*zap.SugaredLogger, zap.AtomicLevel, error) {
	var config zap.Config
	if util.LookupEnvBoolOr(EnvDebug, false) {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	if level != "" {
		if err := config.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, config.Level, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	logger, err := config.Build()
	if err != nil {
		return nil, config.Level, err
	}
	return logger.Named("numamon").Sugar(), config.Level, nil
}

// EnvDebug selects the development logger config when true.
const EnvDebug = "NUMAMON_DEBUG"

type loggerKey struct{}

// WithLogger returns a copy of parent context in which the
// value associated with logger key is the supplied logger.
func WithLogger(ctx context.Context, logger *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger in the context.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.SugaredLogger); ok {
		return logger
	}
	return NewLogger()
}
