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

package factor

import (
	"context"
	"math"

	"github.com/c-bata/goptuna"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/eval"
	"github.com/tankopoisk/tankrec/model"
	"go.uber.org/zap"
)

// SuggestParams samples the learning rate, regularization and number of factors.
func (svd *SVD) SuggestParams(trial goptuna.Trial) model.Params {
	return model.Params{
		model.NFactors: lo.Must(trial.SuggestInt(string(model.NFactors), 1, 16)),
		model.Lr:       lo.Must(trial.SuggestLogFloat(string(model.Lr), 1e-4, 1e-1)),
		model.Reg:      lo.Must(trial.SuggestLogFloat(string(model.Reg), 1e-2, 100)),
	}
}

// ModelSearch is a goptuna objective that trains a SVD per trial and scores it by test
// RMSE. It remembers the best trial.
type ModelSearch struct {
	ctx        context.Context
	train      *base.SparseMatrix
	test       *base.SparseMatrix
	transform  dataset.Transform
	params     model.Params
	config     *FitConfig
	bestParams model.Params
	bestResult eval.Result
}

// NewModelSearch creates a search. Suggested values overwrite params for every trial.
func NewModelSearch(ctx context.Context, train, test *base.SparseMatrix, transform dataset.Transform,
	params model.Params, config *FitConfig) *ModelSearch {
	return &ModelSearch{
		ctx:        ctx,
		train:      train,
		test:       test,
		transform:  transform,
		params:     params,
		config:     config,
		bestResult: eval.Result{RMSE: math.Inf(1)},
	}
}

func (ms *ModelSearch) Objective(trial goptuna.Trial) (float64, error) {
	if ms.test.EntryCount() == 0 {
		return 0, errors.New("empty test set")
	}
	svd := NewSVD(ms.params)
	params := ms.params.Overwrite(svd.SuggestParams(trial))
	svd.SetParams(params)
	_, err := svd.Fit(ms.ctx, ms.train, ms.config)
	if err != nil && !errors.Is(err, ErrNumericDivergence) {
		return 0, errors.Trace(err)
	}
	// a diverged model is restored to its last finite epoch and still gets a score
	result, err := eval.Evaluate(svd, ms.train, ms.test, ms.transform)
	if err != nil {
		return 0, errors.Trace(err)
	}
	if math.IsNaN(result.RMSE) {
		return 0, errors.Errorf("no usable prediction in trial %d", trial.ID)
	}
	log.Logger().Info("svd trial",
		zap.Int("trial", trial.ID),
		zap.Any("params", params),
		zap.Float64("test_rmse", result.RMSE))
	if result.RMSE < ms.bestResult.RMSE {
		ms.bestParams = params
		ms.bestResult = result
	}
	return result.RMSE, nil
}

// Result returns the parameters and the test result of the best trial.
func (ms *ModelSearch) Result() (model.Params, eval.Result) {
	return ms.bestParams, ms.bestResult
}
