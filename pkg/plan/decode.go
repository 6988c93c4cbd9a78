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

package plan

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/numaproj/numamon/pkg/types"
)

type wireTerm struct {
	Var   string          `json:"var,omitempty"`
	Const json.RawMessage `json:"const,omitempty"`
}

type wireCond struct {
	Var   string          `json:"var"`
	Var2  string          `json:"var2,omitempty"`
	Const json.RawMessage `json:"const,omitempty"`
}

// wireNode is the optimizer's JSON form of every node kind; each kind reads its own fields.
type wireNode struct {
	Kind     string          `json:"kind"`
	Name     string          `json:"name,omitempty"`
	Args     []wireTerm      `json:"args,omitempty"`
	Query    string          `json:"query,omitempty"`
	Aliases  []Alias         `json:"aliases,omitempty"`
	Vars     []string        `json:"vars,omitempty"`
	Var      string          `json:"var,omitempty"`
	Var2     string          `json:"var2,omitempty"`
	From     string          `json:"from,omitempty"`
	Const    json.RawMessage `json:"const,omitempty"`
	Cond     *wireCond       `json:"cond,omitempty"`
	Interval string          `json:"interval,omitempty"`
	Dedup    *bool           `json:"dedup,omitempty"`
	Message  string          `json:"message,omitempty"`
	Params   []string        `json:"params,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	Left     json.RawMessage `json:"left,omitempty"`
	Right    json.RawMessage `json:"right,omitempty"`
	Bound    json.RawMessage `json:"bound,omitempty"`
	In       json.RawMessage `json:"in,omitempty"`
}

// ErrDecode reports a malformed plan document.
type ErrDecode struct {
	Path    string
	Message string
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("invalid plan at %s: %s", e.Path, e.Message)
}

// Decode reads a plan document.
func Decode(data []byte) (Node, error) {
	return decodeNode(data, "$")
}

func decodeNode(data json.RawMessage, path string) (Node, error) {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, ErrDecode{Path: path, Message: "missing node"}
	}
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, ErrDecode{Path: path, Message: err.Error()}
	}
	child := func(field string, raw json.RawMessage) (Node, error) {
		return decodeNode(raw, path+"."+field)
	}
	pair := func() (Node, Node, error) {
		l, err := child("left", w.Left)
		if err != nil {
			return nil, nil, err
		}
		r, err := child("right", w.Right)
		if err != nil {
			return nil, nil, err
		}
		return l, r, nil
	}
	interval := func() (types.Interval, error) {
		if w.Interval == "" {
			return types.From(0), nil
		}
		i, err := types.ParseInterval(w.Interval)
		if err != nil {
			return types.Interval{}, ErrDecode{Path: path + ".interval", Message: err.Error()}
		}
		return i, nil
	}
	required := func(field, v string) error {
		if v == "" {
			return ErrDecode{Path: path + "." + field, Message: "required"}
		}
		return nil
	}

	switch w.Kind {
	case "fact":
		if err := required("name", w.Name); err != nil {
			return nil, err
		}
		n := &Fact{Name: w.Name}
		for i, a := range w.Args {
			t, err := decodeTerm(a, fmt.Sprintf("%s.args[%d]", path, i))
			if err != nil {
				return nil, err
			}
			n.Args = append(n.Args, t)
		}
		return n, nil
	case "jsonquery":
		return &JSONQuery{Query: w.Query, Aliases: w.Aliases}, nil
	case "join", "union", "antijoin":
		l, r, err := pair()
		if err != nil {
			return nil, err
		}
		switch w.Kind {
		case "join":
			return &Join{Left: l, Right: r}, nil
		case "union":
			return &Union{Left: l, Right: r}, nil
		default:
			return &Antijoin{Left: l, Right: r}, nil
		}
	case "project":
		in, err := child("input", w.Input)
		if err != nil {
			return nil, err
		}
		return &Project{Vars: append([]string{}, w.Vars...), Input: in}, nil
	case "extend":
		if err := required("var", w.Var); err != nil {
			return nil, err
		}
		if err := required("from", w.From); err != nil {
			return nil, err
		}
		in, err := child("input", w.Input)
		if err != nil {
			return nil, err
		}
		return &Extend{Var: w.Var, From: w.From, Input: in}, nil
	case "filter", "negfilter":
		if w.Cond == nil {
			return nil, ErrDecode{Path: path + ".cond", Message: "required"}
		}
		cond, err := decodeCond(*w.Cond, path+".cond")
		if err != nil {
			return nil, err
		}
		in, err := child("input", w.Input)
		if err != nil {
			return nil, err
		}
		return &Filter{Cond: cond, Negated: w.Kind == "negfilter", Input: in}, nil
	case "next", "prev", "once", "eventually":
		i, err := interval()
		if err != nil {
			return nil, err
		}
		in, err := child("input", w.Input)
		if err != nil {
			return nil, err
		}
		switch w.Kind {
		case "next":
			return &Next{Interval: i, Input: in}, nil
		case "prev":
			return &Prev{Interval: i, Input: in}, nil
		case "once":
			return &Once{Interval: i, Dedup: w.Dedup, Input: in}, nil
		default:
			return &Eventually{Interval: i, Dedup: w.Dedup, Input: in}, nil
		}
	case "since", "negsince", "until", "neguntil":
		i, err := interval()
		if err != nil {
			return nil, err
		}
		l, r, err := pair()
		if err != nil {
			return nil, err
		}
		neg := w.Kind == "negsince" || w.Kind == "neguntil"
		if w.Kind == "since" || w.Kind == "negsince" {
			return &Since{Interval: i, Dedup: w.Dedup, Negated: neg, Left: l, Right: r}, nil
		}
		return &Until{Interval: i, Dedup: w.Dedup, Negated: neg, Left: l, Right: r}, nil
	case "full":
		return &Full{}, nil
	case "empty":
		return &Empty{}, nil
	case "equals":
		if err := required("var", w.Var); err != nil {
			return nil, err
		}
		c, err := decodeConst(w.Const, path+".const")
		if err != nil {
			return nil, err
		}
		return &Equals{Var: w.Var, Const: c}, nil
	case "varequals":
		if err := required("var", w.Var); err != nil {
			return nil, err
		}
		if err := required("var2", w.Var2); err != nil {
			return nil, err
		}
		return &VarEquals{Left: w.Var, Right: w.Var2}, nil
	case "error":
		return &Error{Message: w.Message}, nil
	case "let":
		if err := required("name", w.Name); err != nil {
			return nil, err
		}
		bound, err := child("bound", w.Bound)
		if err != nil {
			return nil, err
		}
		in, err := child("in", w.In)
		if err != nil {
			return nil, err
		}
		return &Let{Name: w.Name, Params: append([]string{}, w.Params...), Bound: bound, In: in}, nil
	case "":
		return nil, ErrDecode{Path: path + ".kind", Message: "required"}
	default:
		return nil, ErrDecode{Path: path + ".kind", Message: fmt.Sprintf("unknown kind %q", w.Kind)}
	}
}

func decodeTerm(w wireTerm, path string) (Term, error) {
	switch {
	case w.Var != "" && len(w.Const) > 0:
		return Term{}, ErrDecode{Path: path, Message: "both var and const are set"}
	case w.Var != "":
		return Var(w.Var), nil
	default:
		c, err := decodeConst(w.Const, path+".const")
		if err != nil {
			return Term{}, err
		}
		return Const(c), nil
	}
}

func decodeCond(w wireCond, path string) (Cond, error) {
	if w.Var == "" {
		return Cond{}, ErrDecode{Path: path + ".var", Message: "required"}
	}
	if w.Var2 != "" {
		return Cond{Var: w.Var, Other: w.Var2}, nil
	}
	c, err := decodeConst(w.Const, path+".const")
	if err != nil {
		return Cond{}, err
	}
	return Cond{Var: w.Var, Const: c}, nil
}

// decodeConst reads a JSON constant: integral numbers are integers, strings are strings, any
// other value is kept as opaque JSON.
func decodeConst(raw json.RawMessage, path string) (types.Constant, error) {
	if len(raw) == 0 {
		return types.Constant{}, ErrDecode{Path: path, Message: "required"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return types.Constant{}, ErrDecode{Path: path, Message: err.Error()}
	}
	c, err := types.FromValue(v)
	if err != nil {
		return types.Constant{}, ErrDecode{Path: path, Message: err.Error()}
	}
	return c, nil
}
