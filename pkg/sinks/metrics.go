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

package sinks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/numamon/pkg/metrics"
)

// verdictsWritten is the number of verdict lines handed to a writer
var verdictsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "sink",
	Name:      "verdicts_written_total",
	Help:      "Total number of verdict lines written",
}, []string{metrics.LabelMode})

// flushes is the number of flushes of the output
var flushes = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "sink",
	Name:      "flushes_total",
	Help:      "Total number of output flushes",
}, []string{metrics.LabelMode})
