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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/numamon/pkg/metrics"
)

// droppedFacts counts the fact lines a leaf rejected, by reason
var droppedFacts = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "fact",
	Name:      "dropped_total",
	Help:      "Total number of fact lines dropped by a base fact leaf",
}, []string{metrics.LabelOperator, metrics.LabelReason})

// matchedFacts counts the tuples a leaf produced
var matchedFacts = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "fact",
	Name:      "matched_total",
	Help:      "Total number of fact lines matched by a base fact leaf",
}, []string{metrics.LabelOperator})
