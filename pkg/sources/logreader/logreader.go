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

// Package logreader reads a timestamped event log, one timepoint per line:
//
//	@<ts> <fact> <fact> {"json": "record"};;{"another": 1}
//
// and feeds it into a monitor.
package logreader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/types"
)

// Entry is one parsed log line.
type Entry struct {
	TS    types.Timestamp
	Lines []string
}

// Pusher is what the reader feeds.
type Pusher interface {
	PushFacts(tp types.Timepoint, lines []string) error
	PushTimestamp(tp types.Timepoint, ts types.Timestamp) error
	CloseFacts() error
	CloseTime() error
}

// Reader reads entries from a log. Blank lines and lines starting with '#' are skipped.
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{scanner: s}
}

// Next returns the next entry, or io.EOF at the end of the log.
func (r *Reader) Next() (Entry, error) {
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimSpace(r.scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		e, err := ParseLine(text)
		if err != nil {
			return Entry{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return e, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Entry{}, fmt.Errorf("failed to read log: %w", err)
	}
	return Entry{}, io.EOF
}

// ParseLine parses `@<ts> items...`.
func ParseLine(line string) (Entry, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@") {
		return Entry{}, fmt.Errorf("missing '@' timestamp in %q", line)
	}
	body := line[1:]
	var tsText, rest string
	if strings.HasPrefix(body, "[") {
		// bracketed timestamps may contain spaces
		end := strings.IndexByte(body, ']')
		if end < 0 {
			return Entry{}, fmt.Errorf("unterminated timestamp in %q", line)
		}
		tsText, rest = body[1:end], body[end+1:]
	} else {
		end := strings.IndexAny(body, " \t")
		if end < 0 {
			end = len(body)
		}
		tsText, rest = body[:end], body[end:]
	}
	ts, err := ParseTimestamp(tsText)
	if err != nil {
		return Entry{}, err
	}
	items, err := splitItems(rest)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed entry %q: %w", line, err)
	}
	return Entry{TS: ts, Lines: items}, nil
}

// ParseTimestamp accepts an integer or a date understood by dateparse, converted to unix seconds.
func ParseTimestamp(s string) (types.Timestamp, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.Unix(), nil
}

// splitItems splits on whitespace and ";;" outside parentheses, brackets, braces and quotes.
func splitItems(s string) ([]string, error) {
	var (
		items   []string
		cur     strings.Builder
		depth   int
		quoted  bool
		escaped bool
	)
	flush := func() {
		if item := strings.TrimSpace(cur.String()); item != "" {
			items = append(items, item)
		}
		cur.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case quoted:
			switch c {
			case '\\':
				escaped = true
			case '"':
				quoted = false
			}
		case c == '"':
			quoted = true
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q", c)
			}
		case depth == 0 && (c == ' ' || c == '\t'):
			flush()
			continue
		case depth == 0 && c == ';' && i+1 < len(s) && s[i+1] == ';':
			flush()
			i++
			continue
		}
		cur.WriteByte(c)
	}
	if quoted || depth != 0 {
		return nil, fmt.Errorf("unterminated item")
	}
	flush()
	return items, nil
}

// Feed pushes every entry of r as consecutive timepoints starting at 0 and closes both channels
// at the end of the log. It stops early when ctx is done.
func Feed(ctx context.Context, r io.Reader, p Pusher) error {
	log := logging.FromContext(ctx)
	reader := NewReader(r)
	var tp types.Timepoint
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := p.PushFacts(tp, e.Lines); err != nil {
			return err
		}
		if err := p.PushTimestamp(tp, e.TS); err != nil {
			return err
		}
		tp++
	}
	log.Infow("Log fully read", "timepoints", tp)
	if err := p.CloseFacts(); err != nil {
		return err
	}
	return p.CloseTime()
}
