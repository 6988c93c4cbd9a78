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

package jsonquery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/numamon/pkg/metrics"
)

// evalErrors counts the records a JSON query leaf skipped because an expression failed
var evalErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "jsonquery",
	Name:      "eval_errors_total",
	Help:      "Total number of records skipped because of an expression error",
}, []string{metrics.LabelOperator})
