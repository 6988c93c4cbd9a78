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

package metrics

import (
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	LabelVersion   = "version"
	LabelPlatform  = "platform"
	LabelComponent = "component"
	LabelOperator  = "operator"
	LabelWorker    = "worker"
	LabelReason    = "reason"
	LabelMode      = "mode"
)

const (
	EnvDebug = "NUMAMON_DEBUG"
	EnvPPROF = "NUMAMON_PPROF"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "A metric with a constant value '1', labeled by numamon binary version and platform",
	}, []string{LabelComponent, LabelVersion, LabelPlatform})
)

// TimepointValue converts a timepoint to a gauge value; the released frontier is +Inf.
func TimepointValue(tp int64) float64 {
	if tp == math.MaxInt64 {
		return math.Inf(1)
	}
	return float64(tp)
}
