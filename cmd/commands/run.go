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

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/numaproj/numamon"
	"github.com/numaproj/numamon/pkg/config"
	"github.com/numaproj/numamon/pkg/metrics"
	"github.com/numaproj/numamon/pkg/monitor"
	"github.com/numaproj/numamon/pkg/plan"
	"github.com/numaproj/numamon/pkg/shared/logging"
	"github.com/numaproj/numamon/pkg/shared/util"
	"github.com/numaproj/numamon/pkg/sinks"
	"github.com/numaproj/numamon/pkg/sources/logreader"
)

func NewRunCommand() *cobra.Command {
	var (
		planFile   string
		logFile    string
		configFile string
	)
	v := config.NewViper()

	command := &cobra.Command{
		Use:   "run",
		Short: "Monitor an event log against a compiled plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			log, level, err := logging.NewLoggerWithAtomicLevel(conf.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			log.Infow("Starting monitor", "version", numamon.GetVersion())
			if configFile != "" {
				config.Watch(v, func(c *config.Config) {
					if c.Log.Level == "" {
						return
					}
					if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
						log.Errorw("Failed to change the log level", zap.Error(err))
						return
					}
					log.Infow("Changed the log level", zap.String("level", c.Log.Level))
				}, func(err error) {
					log.Errorw("Failed to reload the configuration", zap.Error(err))
				})
			}
			renderConfig(cmd.ErrOrStderr(), conf)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logging.WithLogger(ctx, log)

			var in io.Reader = cmd.InOrStdin()
			if logFile != "" && logFile != "-" {
				f, err := os.Open(logFile)
				if err != nil {
					return fmt.Errorf("failed to open the event log: %w", err)
				}
				defer f.Close()
				in = f
			}
			return runMonitor(ctx, conf, planFile, in, cmd.OutOrStdout())
		},
	}
	command.Flags().StringVarP(&planFile, "plan", "p", "", "Plan file, as written by the optimizer")
	command.Flags().StringVarP(&logFile, "log", "l", util.LookupEnvStringOr("NUMAMON_EVENT_LOG", "-"), "Event log file, - reads stdin")
	command.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file (yaml, json or toml)")
	command.Flags().Int("workers", 1, "Number of workers")
	command.Flags().Bool("dedup", true, "Deduplicate window outputs of plan nodes that do not choose")
	command.Flags().String("output-mode", string(sinks.ModeImmediate), "Output mode, one of final, immediate or batched")
	command.Flags().Int("batch-size", 100, "Timepoints per write in batched output mode")
	command.Flags().String("log-level", "", "Log level")
	command.Flags().String("metrics-address", "", "Address to serve metrics on, empty disables the server")
	_ = command.MarkFlagRequired("plan")
	bindFlags(v, command, map[string]string{
		config.KeyWorkers:         "workers",
		config.KeyDedup:           "dedup",
		config.KeyOutputMode:      "output-mode",
		config.KeyOutputBatchSize: "batch-size",
		config.KeyLogLevel:        "log-level",
		config.KeyMetricsAddress:  "metrics-address",
	})
	return command
}

func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func renderConfig(w io.Writer, conf *config.Config) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"key", "value"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(conf.Rows())
	table.Render()
}

// runMonitor evaluates the plan in planFile over the event log in and writes the verdicts to out.
func runMonitor(ctx context.Context, conf *config.Config, planFile string, in io.Reader, out io.Writer) error {
	log := logging.FromContext(ctx)
	data, err := os.ReadFile(planFile)
	if err != nil {
		return fmt.Errorf("failed to read the plan: %w", err)
	}
	node, err := plan.Decode(data)
	if err != nil {
		return err
	}
	opts := []monitor.Option{monitor.WithWorkers(conf.Workers), monitor.WithDedup(conf.Dedup)}
	if conf.Facts.CacheSize > 0 {
		opts = append(opts, monitor.WithFactCacheSize(conf.Facts.CacheSize))
	}
	m, err := monitor.New(ctx, node, opts...)
	if err != nil {
		return err
	}
	writer, err := sinks.NewWriter(out, conf.OutputMode(), conf.Output.BatchSize)
	if err != nil {
		return err
	}
	metrics.BuildInfo.WithLabelValues("monitor", numamon.GetVersion().Version, fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)).Set(1)

	if conf.Metrics.Address != "" {
		ms := metrics.NewMetricsServer(conf.Metrics.Address, metrics.NewMetricsOptions(ctx, []metrics.HealthChecker{m})...)
		shutdown, err := ms.Start(ctx)
		if err != nil {
			return err
		}
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(cctx); err != nil {
				log.Errorw("Failed to shutdown the metrics server", zap.Error(err))
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := m.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error {
		return logreader.Feed(gctx, in, m)
	})
	g.Go(func() error {
		return sinks.NewSink(writer).Run(gctx, m.Results())
	})
	if err := g.Wait(); err != nil {
		// the monitor stops on the canceled group context
		return withMonitorError(err, m.Wait())
	}
	return m.Wait()
}

// withMonitorError adds the monitor's own failure to err; the cancellation caused by err is not
// one.
func withMonitorError(err, werr error) error {
	if werr == nil || errors.Is(werr, context.Canceled) {
		return err
	}
	return multierr.Append(err, werr)
}
