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

package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_eval_json(t *testing.T) {
	t.Run("test nil", func(t *testing.T) {
		m := _json(nil)
		assert.Nil(t, m)
	})

	t.Run("test invalid json bytes", func(t *testing.T) {
		assert.Panics(t, func() { _json([]byte("abc")) })
	})

	t.Run("test valid string", func(t *testing.T) {
		m := _json(`{"a": "b"}`)
		assert.Equal(t, 1, len(m))
		assert.Equal(t, "b", m["a"])
	})

	t.Run("test default panic", func(t *testing.T) {
		assert.Panics(t, func() { _json(222) })
	})
}

func Test_eval_int(t *testing.T) {
	assert.Equal(t, 1, _int([]byte("1")))
	assert.Equal(t, 1, _int("1"))
	assert.Equal(t, 1, _int(float64(1.2)))
	assert.Panics(t, func() { _int("") })
	assert.Panics(t, func() { _int(time.Second) })
}

func Test_eval_string(t *testing.T) {
	assert.Equal(t, "", _string(nil))
	assert.Equal(t, "a", _string([]byte("a")))
	assert.Equal(t, "444", _string(444))
}

func TestProgram_Eval(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		record     string
		want       interface{}
		wantErr    string
	}{
		{name: "field", expression: `record.user`, record: `{"user": "bob"}`, want: "bob"},
		{name: "nested", expression: `record.a.b`, record: `{"a": {"b": 3}}`, want: float64(3)},
		{name: "list", expression: `record.items[1].id`, record: `{"items": [{"id": 1}, {"id": 2}]}`, want: float64(2)},
		{name: "payload", expression: `json(payload).a`, record: `{"a": "b"}`, want: "b"},
		{name: "sprig", expression: `sprig.upper(record.user)`, record: `{"user": "bob"}`, want: "BOB"},
		{name: "bad record", expression: `record.user`, record: `{"user"`, wantErr: "unable to decode record"},
		{name: "runtime panic", expression: `int(record.user)`, record: `{"user": "bob"}`, wantErr: "unable to evaluate expression"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expression)
			require.NoError(t, err)
			got, err := p.Eval([]byte(tt.record))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgram_EvalBool(t *testing.T) {
	p, err := Compile(`record.a == "b"`)
	require.NoError(t, err)
	ok, err := p.EvalBool([]byte(`{"a": "b"}`))
	assert.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.EvalBool([]byte(`{"a": "c"}`))
	assert.NoError(t, err)
	assert.False(t, ok)

	p, err = Compile(`record.a`)
	require.NoError(t, err)
	_, err = p.EvalBool([]byte(`{"a": "b"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to cast expression result")
}

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile(`ab\na`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to compile expression")
}
