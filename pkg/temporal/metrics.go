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

package temporal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/numamon/pkg/metrics"
)

// stashedRecords is the number of tuples waiting for a timestamp or an opposite side
var stashedRecords = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "temporal",
	Name:      "stashed_records",
	Help:      "Number of tuples stashed by a temporal operator",
}, []string{metrics.LabelOperator, metrics.LabelWorker})

// indexEntries is the number of live entries (keys, occurrences) of a temporal operator
var indexEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "temporal",
	Name:      "index_entries",
	Help:      "Number of live index entries of a temporal operator",
}, []string{metrics.LabelOperator, metrics.LabelWorker})
