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

package sinks

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/numaproj/numamon/pkg/monitor"
	"github.com/numaproj/numamon/pkg/shared/logging"
)

// Sink drains a results channel into a writer.
type Sink struct {
	writer *Writer
}

func NewSink(w *Writer) *Sink {
	return &Sink{writer: w}
}

// Run writes every verdict until the channel is closed, then closes the writer. After a write
// error the remaining verdicts are still drained, so the monitor can finish, but not written.
func (s *Sink) Run(ctx context.Context, results <-chan monitor.Verdict) error {
	log := logging.FromContext(ctx)
	var errs error
	for v := range results {
		if errs != nil {
			continue
		}
		if err := s.writer.Write(v); err != nil {
			log.Errorw("Failed to write verdict", zap.Int64("tp", int64(v.TP)), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
		if v.EOS {
			log.Infow("End of stream", zap.Int64("tp", int64(v.TP)))
		}
	}
	return multierr.Append(errs, s.writer.Close())
}
