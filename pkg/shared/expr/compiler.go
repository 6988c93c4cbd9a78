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
	"fmt"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/goccy/go-json"
)

// Program is a compiled expression evaluated against JSON records. Inside the expression the
// decoded record is `record` and the raw text is `payload`.
type Program struct {
	source  string
	program *vm.Program
}

// Compile compiles expression once; evaluation errors are reported per record by Eval.
func Compile(expression string) (*Program, error) {
	program, err := expr.Compile(expression, expr.Env(getFuncMap(map[string]interface{}{}, nil)))
	if err != nil {
		return nil, fmt.Errorf("unable to compile expression '%s': %w", expression, err)
	}
	return &Program{source: expression, program: program}, nil
}

func (p *Program) String() string {
	return p.source
}

// Eval runs the program against one raw JSON record.
func (p *Program) Eval(raw []byte) (interface{}, error) {
	var record interface{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("unable to decode record: %w", err)
	}
	result, err := expr.Run(p.program, getFuncMap(record, raw))
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate expression '%s': %w", p.source, err)
	}
	return result, nil
}

// EvalBool runs a program whose result must be a boolean.
func (p *Program) EvalBool(raw []byte) (bool, error) {
	result, err := p.Eval(raw)
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unable to cast expression result '%v' to bool", result)
	}
	return b, nil
}
