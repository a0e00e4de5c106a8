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

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/eval"
	"github.com/tankopoisk/tankrec/model"
	"github.com/tankopoisk/tankrec/model/cluster"
	"github.com/tankopoisk/tankrec/model/factor"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(naiveCommand)
	rootCommand.AddCommand(slopeOneCommand)
	rootCommand.AddCommand(itemCFCommand)
	rootCommand.AddCommand(kmeansCommand)
	rootCommand.AddCommand(svdCommand)
	rootCommand.AddCommand(tuneCommand)
}

var naiveCommand = &cobra.Command{
	Use:   "naive <stats>",
	Short: "Predict the mean win rate of every tank.",
	Args:  cobra.ExactArgs(1),
	RunE: runExperiment("naive", func(ctx context.Context, e *experiment) (model.Model, error) {
		m := model.NewNaive(nil)
		return m, m.Fit(ctx, e.data.Train)
	}),
}

var slopeOneCommand = &cobra.Command{
	Use:   "slopeone <stats>",
	Short: "Predict win rates with weighted slope one.",
	Args:  cobra.ExactArgs(1),
	RunE: runExperiment("slopeone", func(ctx context.Context, e *experiment) (model.Model, error) {
		m := model.NewSlopeOne(nil)
		return m, m.Fit(ctx, e.data.Train)
	}),
}

var itemCFCommand = &cobra.Command{
	Use:   "itemcf <stats>",
	Short: "Predict win rates from correlated tanks.",
	Args:  cobra.ExactArgs(1),
	RunE: runExperiment("itemcf", func(ctx context.Context, e *experiment) (model.Model, error) {
		m := model.NewItemCF(e.config.ItemCF.Params())
		return m, m.Fit(ctx, e.data.Train)
	}),
}

var kmeansCommand = &cobra.Command{
	Use:   "kmeans <stats>",
	Short: "Predict win rates from centroids of player clusters.",
	Args:  cobra.ExactArgs(1),
	RunE: runExperiment("kmeans", func(ctx context.Context, e *experiment) (model.Model, error) {
		m := cluster.NewKMeans(e.config.KMeans.Params())
		result, err := m.Fit(ctx, e.data.Train, e.config.KMeans.FitConfig())
		if err != nil {
			return nil, errors.Trace(err)
		}
		sizes := make([]int, e.config.KMeans.NClusters)
		for _, k := range m.Assignments {
			if k != cluster.Unassigned {
				sizes[k]++
			}
		}
		log.Logger().Info("clusters",
			zap.Int("assigned", result.Assigned),
			zap.Float64("error", result.Error),
			zap.Ints("sizes", sizes))
		return m, nil
	}),
}

var svdCommand = &cobra.Command{
	Use:   "svd <stats>",
	Short: "Predict win rates with biased matrix factorization.",
	Args:  cobra.ExactArgs(1),
	RunE: runExperiment("svd", func(ctx context.Context, e *experiment) (model.Model, error) {
		m := factor.NewSVD(e.config.SVD.Params())
		result, err := m.Fit(ctx, e.data.Train, e.config.SVD.FitConfig())
		if err != nil && !errors.Is(err, factor.ErrNumericDivergence) {
			return nil, errors.Trace(err)
		}
		// a diverged model keeps its last finite epoch and is still worth a report
		log.Logger().Info("svd stopped",
			zap.Int("epochs", result.Epochs),
			zap.Float64("train_rmse", result.RMSE),
			zap.String("reason", string(result.Reason)))
		return m, nil
	}),
}

var tuneCommand = &cobra.Command{
	Use:   "tune <stats>",
	Short: "Search SVD hyper-parameters minimizing test RMSE.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := prepare(cmd, args[0])
		if err != nil {
			return errors.Trace(err)
		}
		search := factor.NewModelSearch(cmd.Context(), e.data.Train, e.data.Test, e.transform,
			e.config.SVD.Params(),
			factor.NewFitConfig().SetMaxEpochs(e.config.Tune.MaxEpochs).SetMinDelta(e.config.SVD.MinDelta))
		study, err := goptuna.CreateStudy("tankrec-svd",
			goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
			goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(e.config.Tune.RandomState))))
		if err != nil {
			return errors.Trace(err)
		}
		if err = study.Optimize(search.Objective, e.config.Tune.NTrials); err != nil {
			return errors.Trace(err)
		}
		params, result := search.Result()
		result.Name, result.Set = "svd", "test"
		log.Logger().Info("best svd params", zap.Any("params", params))
		for _, name := range []model.ParamName{model.NFactors, model.Lr, model.Reg} {
			fmt.Fprintf(e.out, "%s = %v\n", name, params[name])
		}
		if err = eval.Render(e.out, result); err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(eval.RenderDistribution(e.out, result.Distribution))
	},
}
