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

package monitor

import "fmt"

type options struct {
	// workers is the number of dataflow workers
	workers int
	// dedup applies to temporal nodes of the plan that leave it unset
	dedup bool
	// cacheSize bounds the parsed line cache of every base fact leaf
	cacheSize int
	// emptyVerdicts reports timepoints without any satisfying tuple
	emptyVerdicts bool
}

// DefaultOptions returns the default monitor options.
func DefaultOptions() *options {
	return &options{
		workers: 1,
		dedup:   true,
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

// WithDedup sets the default dedup mode of temporal operators
func WithDedup(dedup bool) Option {
	return func(o *options) error {
		o.dedup = dedup
		return nil
	}
}

// WithFactCacheSize sets the size of the parsed line cache of base fact leaves
func WithFactCacheSize(n int) Option {
	return func(o *options) error {
		if n < 0 {
			return fmt.Errorf("invalid fact cache size %d", n)
		}
		o.cacheSize = n
		return nil
	}
}

// WithEmptyVerdicts reports a verdict for every timepoint, including the ones without results
func WithEmptyVerdicts() Option {
	return func(o *options) error {
		o.emptyVerdicts = true
		return nil
	}
}
