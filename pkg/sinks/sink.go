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

// Package sinks writes the verdicts of a monitor to an output, one line per timepoint:
//
//	@<ts> (time point <tp>): (<c1>,<c2>) (...)
package sinks

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/numaproj/numamon/pkg/monitor"
)

// Mode says when written verdicts reach the output.
type Mode string

const (
	// ModeFinal writes everything when the writer is closed.
	ModeFinal Mode = "final"
	// ModeImmediate writes and flushes every verdict.
	ModeImmediate Mode = "immediate"
	// ModeBatched writes every batch of verdicts.
	ModeBatched Mode = "batched"
)

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeFinal, ModeImmediate, ModeBatched:
		return m, nil
	default:
		return "", fmt.Errorf("unknown output mode %q, expected one of final, immediate, batched", s)
	}
}

// Format renders the line of a verdict.
func Format(v monitor.Verdict) string {
	var b strings.Builder
	b.WriteByte('@')
	b.WriteString(strconv.FormatInt(int64(v.TS), 10))
	b.WriteString(" (time point ")
	b.WriteString(strconv.FormatInt(int64(v.TP), 10))
	b.WriteString("):")
	for _, t := range v.Tuples {
		b.WriteByte(' ')
		b.WriteString(t.String())
	}
	return b.String()
}

// Writer buffers verdict lines and hands them to the output as its mode says.
type Writer struct {
	mode      Mode
	batchSize int
	out       *bufio.Writer
	pending   []string
}

// NewWriter returns a writer to w. batchSize is only used in batched mode.
func NewWriter(w io.Writer, mode Mode, batchSize int) (*Writer, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == ModeBatched && batchSize < 1 {
		return nil, fmt.Errorf("invalid batch size %d", batchSize)
	}
	return &Writer{mode: mode, batchSize: batchSize, out: bufio.NewWriter(w)}, nil
}

// Write adds the line of v. The end of stream verdict is not written.
func (w *Writer) Write(v monitor.Verdict) error {
	if v.EOS {
		return nil
	}
	w.pending = append(w.pending, Format(v))
	verdictsWritten.WithLabelValues(string(w.mode)).Inc()
	switch w.mode {
	case ModeImmediate:
		return w.flush()
	case ModeBatched:
		if len(w.pending) >= w.batchSize {
			return w.flush()
		}
	}
	return nil
}

func (w *Writer) flush() error {
	for _, l := range w.pending {
		if _, err := w.out.WriteString(l); err != nil {
			return err
		}
		if err := w.out.WriteByte('\n'); err != nil {
			return err
		}
	}
	w.pending = w.pending[:0]
	flushes.WithLabelValues(string(w.mode)).Inc()
	return w.out.Flush()
}

// Close writes whatever is pending.
func (w *Writer) Close() error {
	if len(w.pending) == 0 {
		return w.out.Flush()
	}
	return w.flush()
}
