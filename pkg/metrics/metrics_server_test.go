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
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type checker struct {
	err *atomic.Error
}

func (c *checker) IsHealthy(context.Context) error {
	return c.err.Load()
}

func Test_StartMetricsServer(t *testing.T) {
	BuildInfo.WithLabelValues("monitor", "test", "linux/amd64").Set(1)
	hc := &checker{err: atomic.NewError(nil)}
	ms := NewMetricsServer("127.0.0.1:0", NewMetricsOptions(context.Background(), []HealthChecker{hc})...)
	shutdown, err := ms.Start(context.Background())
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, shutdown(context.Background()))
	}()

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  fmt.Sprintf("http://%s", ms.Addr()),
		Reporter: httpexpect.NewRequireReporter(t),
	})
	e.GET("/livez").Expect().Status(204)
	e.GET("/readyz").Expect().Status(204)
	e.GET("/metrics").Expect().Status(200).Body().Contains("build_info")

	hc.err.Store(errors.New("monitor failed"))
	e.GET("/readyz").Expect().Status(500).Body().IsEqual("monitor failed")
}

func Test_StartMetricsServer_ListenError(t *testing.T) {
	ms := NewMetricsServer("256.0.0.1:-1")
	_, err := ms.Start(context.Background())
	assert.Error(t, err)
}
