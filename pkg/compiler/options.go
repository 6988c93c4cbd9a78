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

import "fmt"

type options struct {
	// dedup applies to temporal nodes that leave it unset
	dedup bool
	// cacheSize bounds the parsed line cache of every base fact leaf
	cacheSize int
}

// DefaultOptions returns the default compiler options.
func DefaultOptions() *options {
	return &options{
		dedup: true,
	}
}

// Option to apply different options
type Option func(*options) error

// WithDedup sets the dedup mode of temporal nodes that do not set it themselves
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
