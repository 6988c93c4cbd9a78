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

package dataflow

import "fmt"

type options struct {
	// workers is the number of parallel workers
	workers int
}

// DefaultOptions returns the default runtime options.
func DefaultOptions() *options {
	return &options{
		workers: 1,
	}
}

// Option to apply different options
type Option func(*options) error

// WithWorkers sets the number of workers
func WithWorkers(n int) Option {
	return func(o *options) error {
		if n < 1 {
			return fmt.Errorf("invalid number of workers %d", n)
		}
		o.workers = n
		return nil
	}
}
