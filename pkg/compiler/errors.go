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

package compiler

import "errors"

var (
	// ErrUnsupportedPlan is returned for a plan node the compiler does not know.
	ErrUnsupportedPlan = errors.New("unsupported plan")
	// ErrPlanError is returned for an Error node: the optimizer could not produce a plan.
	ErrPlanError = errors.New("plan error")
	// ErrInvalidPlan is returned when the variables of a node do not fit its operands.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrLetArity is returned when a let-bound predicate is used with the wrong number of arguments.
	ErrLetArity = errors.New("let arity mismatch")
	// ErrMissingLet is returned when the parameters of a let do not name the variables of its body.
	ErrMissingLet = errors.New("let parameters do not match the bound variables")
)
