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

package logreader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numamon/pkg/types"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Entry
		wantErr bool
	}{
		{name: "facts", line: "@3 p(4,3) q(1, 2)", want: Entry{TS: 3, Lines: []string{"p(4,3)", "q(1, 2)"}}},
		{name: "no facts", line: "@7", want: Entry{TS: 7}},
		{name: "records", line: `@1 {"a": 1};;{"b": "x y"} p(1)`, want: Entry{TS: 1, Lines: []string{`{"a": 1}`, `{"b": "x y"}`, "p(1)"}}},
		{name: "quoted", line: `@2 login("a b")`, want: Entry{TS: 2, Lines: []string{`login("a b")`}}},
		{name: "date", line: "@2021-02-18T21:54:42Z p(1)", want: Entry{TS: 1613685282, Lines: []string{"p(1)"}}},
		{name: "bracketed date", line: "@[2021-02-18 21:54:42 +0000] p(1)", want: Entry{TS: 1613685282, Lines: []string{"p(1)"}}},
		{name: "missing at", line: "3 p(1)", wantErr: true},
		{name: "bad timestamp", line: "@yesterday p(1)", wantErr: true},
		{name: "unbalanced", line: "@1 p(1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader("# header\n@0 a(2)\n\n@1 a(4)\n@x\n"))
	e, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, Entry{TS: 0, Lines: []string{"a(2)"}}, e)
	e, err = r.Next()
	require.NoError(t, err)
	assert.Equal(t, Entry{TS: 1, Lines: []string{"a(4)"}}, e)
	_, err = r.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 5")
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

type recorder struct {
	facts  map[types.Timepoint][]string
	stamps []types.Timestamp
	closed int
	fail   error
}

func (r *recorder) PushFacts(tp types.Timepoint, lines []string) error {
	if r.fail != nil {
		return r.fail
	}
	r.facts[tp] = lines
	return nil
}

func (r *recorder) PushTimestamp(_ types.Timepoint, ts types.Timestamp) error {
	r.stamps = append(r.stamps, ts)
	return nil
}

func (r *recorder) CloseFacts() error {
	r.closed++
	return nil
}

func (r *recorder) CloseTime() error {
	r.closed++
	return nil
}

func TestFeed(t *testing.T) {
	rec := &recorder{facts: make(map[types.Timepoint][]string)}
	err := Feed(context.Background(), strings.NewReader("@0 a(2)\n@1 a(4)\n@2\n"), rec)
	require.NoError(t, err)
	assert.Equal(t, map[types.Timepoint][]string{0: {"a(2)"}, 1: {"a(4)"}, 2: nil}, rec.facts)
	assert.Equal(t, []types.Timestamp{0, 1, 2}, rec.stamps)
	assert.Equal(t, 2, rec.closed)
}

func TestFeed_Errors(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{facts: make(map[types.Timepoint][]string), fail: boom}
	err := Feed(context.Background(), strings.NewReader("@0 a(2)\n"), rec)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, rec.closed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Feed(ctx, strings.NewReader("@0 a(2)\n"), &recorder{facts: make(map[types.Timepoint][]string)})
	assert.ErrorIs(t, err, context.Canceled)
}
