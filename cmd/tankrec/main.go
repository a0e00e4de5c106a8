// Copyright 2026 tankrec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/juju/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/base/progress"
	"github.com/tankopoisk/tankrec/config"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/eval"
	"github.com/tankopoisk/tankrec/model"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:           "tankrec",
	Short:         "Predict tank win rates of players from account statistics.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.SetLogger(cmd.Flags(), debug)
	},
}

func init() {
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.PersistentFlags().Bool("debug", false, "use debug log mode")
	rootCommand.PersistentFlags().StringP("config", "c", "", "configuration file path")
}

// experiment holds what every command needs: configuration, the loaded split and a
// tracer for training progress.
type experiment struct {
	config    *config.Config
	data      *dataset.Dataset
	transform dataset.Transform
	tracer    *progress.Tracer
	out       io.Writer
}

// prepare loads the configuration and the statistics feed at path.
func prepare(cmd *cobra.Command, path string) (*experiment, error) {
	configPath, _ := cmd.Flags().GetString("config")
	log.Logger().Info("load config", zap.String("config", configPath))
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Trace(err)
	}
	opts, err := conf.Data.LoadOptions()
	if err != nil {
		return nil, errors.Trace(err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Trace(err)
	}
	pbReader := progressbar.NewReader(f, progressbar.DefaultBytes(info.Size(), "Loading account statistics"))
	data, err := dataset.Load(&pbReader, conf.Data.Encyclopedia(), opts)
	if err != nil {
		return nil, errors.Annotatef(err, "load %s", path)
	}
	return &experiment{
		config:    conf,
		data:      data,
		transform: opts.Transform,
		tracer:    progress.NewTracer("tankrec"),
		out:       cmd.OutOrStdout(),
	}, nil
}

// report evaluates m on both sets and prints the results with the test error distribution.
func (e *experiment) report(name string, m model.Model) error {
	train, err := eval.Evaluate(m, e.data.Train, e.data.Train, e.transform)
	if err != nil {
		return errors.Trace(err)
	}
	train.Name, train.Set = name, "train"
	test, err := eval.Evaluate(m, e.data.Train, e.data.Test, e.transform)
	if err != nil {
		return errors.Trace(err)
	}
	test.Name, test.Set = name, "test"
	if err := eval.Render(e.out, train, test); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(eval.RenderDistribution(e.out, test.Distribution))
}

func (e *experiment) logProgress() {
	for _, p := range e.tracer.List() {
		log.Logger().Info("training progress",
			zap.String("name", p.Name),
			zap.String("status", string(p.Status)),
			zap.Int("count", p.Count),
			zap.Int("total", p.Total),
			zap.String("error", p.Error),
			zap.Duration("elapsed", p.FinishTime.Sub(p.StartTime)))
	}
}

// runExperiment wraps a training command: it loads data, runs train under a root span
// and reports the returned model.
func runExperiment(name string, train func(ctx context.Context, e *experiment) (model.Model, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		e, err := prepare(cmd, args[0])
		if err != nil {
			return errors.Trace(err)
		}
		ctx, span := e.tracer.Start(ctx, name, 1)
		m, err := train(ctx, e)
		if err != nil {
			span.Fail(err)
			e.logProgress()
			return errors.Trace(err)
		}
		span.End()
		e.logProgress()
		return e.report(name, m)
	}
}

func main() {
	err := rootCommand.Execute()
	log.CloseLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, errors.ErrorStack(err))
		os.Exit(1)
	}
}
