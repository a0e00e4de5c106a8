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

package model

import (
	"context"

	"github.com/juju/errors"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/base/progress"
	"go.uber.org/zap"
)

// Naive predicts the mean rating of a column regardless of the row.
type Naive struct {
	BaseModel
	Means  []float64
	Counts []int
}

func NewNaive(params Params) *Naive {
	naive := new(Naive)
	naive.SetParams(params)
	return naive
}

func (naive *Naive) Fit(ctx context.Context, train *base.SparseMatrix) error {
	log.Logger().Info("fit naive",
		zap.Int("train_set_size", train.EntryCount()))
	if !train.Sealed() {
		return errors.Annotatef(base.ErrIllFormedMatrix, "fit naive on unsealed matrix")
	}
	_, span := progress.Start(ctx, "Naive.Fit", train.RowCount())
	defer span.End()
	columnCount := train.ColumnCount()
	naive.Means = make([]float64, columnCount)
	naive.Counts = make([]int, columnCount)
	train.ForEach(func(_, column int, value float64) {
		naive.Means[column] += value
		naive.Counts[column]++
	})
	for i := range naive.Means {
		if naive.Counts[i] > 0 {
			naive.Means[i] /= float64(naive.Counts[i])
		}
	}
	log.Logger().Info("fit naive complete", zap.Int("n_columns", columnCount))
	return nil
}

func (naive *Naive) Predict(_ *base.SparseMatrix, _, column int) (float64, bool) {
	if column < 0 || column >= len(naive.Counts) || naive.Counts[column] == 0 {
		return 0, false
	}
	return naive.Means[column], true
}
