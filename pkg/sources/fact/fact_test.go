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

package fact

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numaproj/numamon/pkg/dataflow"
	"github.com/numaproj/numamon/pkg/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Fact
		wantErr bool
	}{
		{name: "ints", line: "p(4, 3)", want: Fact{Name: "p", Args: []types.Constant{types.Int(4), types.Int(3)}}},
		{name: "strings", line: `login("bob", alice)`, want: Fact{Name: "login", Args: []types.Constant{types.Str("bob"), types.Str("alice")}}},
		{name: "quoted comma", line: `m("a,b")`, want: Fact{Name: "m", Args: []types.Constant{types.Str("a,b")}}},
		{name: "no arguments", line: "tick()", want: Fact{Name: "tick"}},
		{name: "bare name", line: "tick", want: Fact{Name: "tick"}},
		{name: "json argument", line: `e({"b":1,"a":[1,2]}, 7)`, want: Fact{Name: "e", Args: []types.Constant{mustJSON(t, `{"a":[1,2],"b":1}`), types.Int(7)}}},
		{name: "numbers", line: "p(1.5, 2.0, 1e3)", want: Fact{Name: "p", Args: []types.Constant{mustNumber(t, "1.5"), types.Int(2), types.Int(1000)}}},
		{name: "missing paren", line: "p(1", wantErr: true},
		{name: "empty argument", line: "p(1,)", wantErr: true},
		{name: "unterminated string", line: `p("a)`, wantErr: true},
		{name: "empty", line: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func mustJSON(t *testing.T, s string) types.Constant {
	c, err := types.JSON([]byte(s))
	require.NoError(t, err)
	return c
}

func mustNumber(t *testing.T, lit string) types.Constant {
	c, err := types.FromValue(json.Number(lit))
	require.NoError(t, err)
	return c
}

func TestPattern_UnifyFraction(t *testing.T) {
	p := Pattern{Name: "p", Args: []Arg{{Const: mustNumber(t, "1.50")}, {Var: "x"}}}
	f, err := Parse("p(1.5, a)")
	require.NoError(t, err)
	got, ok := p.Unify(f.Args)
	assert.True(t, ok)
	assert.Equal(t, types.Tuple{types.Str("a")}, got)
}

func pattern(name string, args ...interface{}) Pattern {
	p := Pattern{Name: name}
	for _, a := range args {
		switch v := a.(type) {
		case string:
			p.Args = append(p.Args, Arg{Var: v})
		case int:
			p.Args = append(p.Args, Arg{Const: types.Int(int64(v))})
		}
	}
	return p
}

func TestPattern_Unify(t *testing.T) {
	p := pattern("p", "x", "x")
	assert.Equal(t, types.Schema{"x"}, p.Schema())
	_, ok := p.Unify([]types.Constant{types.Int(4), types.Int(3)})
	assert.False(t, ok)
	got, ok := p.Unify([]types.Constant{types.Int(4), types.Int(4)})
	assert.True(t, ok)
	assert.Equal(t, types.Tuple{types.Int(4)}, got)

	q := pattern("q", "y", 7, "x")
	assert.Equal(t, types.Schema{"y", "x"}, q.Schema())
	_, ok = q.Unify([]types.Constant{types.Int(1), types.Int(8), types.Int(2)})
	assert.False(t, ok)
	got, ok = q.Unify([]types.Constant{types.Int(1), types.Int(7), types.Int(2)})
	assert.True(t, ok)
	assert.Equal(t, types.Tuple{types.Int(1), types.Int(2)}, got)
	assert.Equal(t, "q(y,7,x)", q.String())
}

func lines(tp types.Timepoint, ls ...string) []types.Record {
	out := make([]types.Record, len(ls))
	for i, l := range ls {
		out[i] = types.Record{TP: tp, Tuple: LineTuple(l)}
	}
	return out
}

func TestLeaf(t *testing.T) {
	leaf := NewLeaf(context.Background(), pattern("p", "x", "x"), 0)
	h := dataflow.NewHarness(leaf, 1)
	h.Push(0, lines(0, "p(4,3)")...)
	h.Push(0, lines(1, "p(6,6)", "q(6,6)", "p(6,6)", "p(1,2,3)", "p(oops", `{"p":1}`)...)
	h.Push(0, lines(1, "p(6, 6)")...)
	assert.Equal(t, map[types.Timepoint][]types.Tuple{1: {{types.Int(6)}}}, h.Results())

	h.Advance(0, 2)
	assert.Equal(t, types.Timepoint(2), h.Token())
	assert.Empty(t, leaf.seen)
	h.Push(0, lines(2, "p(6,6)")...)
	assert.Equal(t, map[types.Timepoint][]types.Tuple{1: {{types.Int(6)}}, 2: {{types.Int(6)}}}, h.Results())
	h.Advance(0, types.Infinity)
	assert.Equal(t, types.Infinity, h.Token())
}

func TestLeaf_Examples(t *testing.T) {
	leaf := NewLeaf(context.Background(), pattern("p", "x", "x"), 16)
	h := dataflow.NewHarness(leaf, 1)
	for tp, l := range []string{"p(4,3)", "p(6,5)", "p(8,7)", "p(5,3)"} {
		h.Push(0, lines(types.Timepoint(tp), l)...)
	}
	assert.Empty(t, h.Results())
}
