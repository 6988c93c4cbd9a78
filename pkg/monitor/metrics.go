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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// verdictsReported is the number of finalized timepoints handed to the results channel
var verdictsReported = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "monitor",
	Name:      "verdicts_total",
	Help:      "Total number of finalized timepoints reported",
})

// tuplesReported is the number of satisfying tuples reported
var tuplesReported = promauto.NewCounter(prometheus.CounterOpts{
	Subsystem: "monitor",
	Name:      "tuples_total",
	Help:      "Total number of satisfying tuples reported",
})

// finalizedTimepoint is the lowest timepoint that is not final yet
var finalizedTimepoint = promauto.NewGauge(prometheus.GaugeOpts{
	Subsystem: "monitor",
	Name:      "finalized_timepoint",
	Help:      "Lowest timepoint whose verdict is not final yet",
})
