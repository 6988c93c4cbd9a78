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

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/numaproj/numamon/pkg/metrics"
)

// recordsEmitted is the number of records emitted by an operator instance
var recordsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Subsystem: "dataflow",
	Name:      "records_emitted_total",
	Help:      "Total number of records emitted by an operator",
}, []string{metrics.LabelOperator, metrics.LabelWorker})

// progressToken is the current progress token of an operator instance
var progressToken = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "dataflow",
	Name:      "progress_token",
	Help:      "Current progress token (output frontier) of an operator",
}, []string{metrics.LabelOperator, metrics.LabelWorker})

// mailboxDepth is the number of messages waiting in a worker mailbox
var mailboxDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Subsystem: "dataflow",
	Name:      "mailbox_depth",
	Help:      "Number of messages queued for a worker",
}, []string{metrics.LabelWorker})
