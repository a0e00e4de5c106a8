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
	"math"

	"github.com/juju/errors"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/base/progress"
	"go.uber.org/zap"
)

// SlopeOne is the weighted slope one predictor [1]. The prediction of (r, j) averages
// value(r, i) + dev(j, i) over the columns i rated by row r, weighted by the number
// of ratings of column i.
//
// [1] Lemire, Daniel, and Anna Maclachlan. "Slope one predictors for online rating-based
// collaborative filtering." Proceedings of the 2005 SIAM International Conference on Data
// Mining. Society for Industrial and Applied Mathematics, 2005.
type SlopeOne struct {
	BaseModel
	columnCount int
	// Deviations[j*columnCount+i] is the average of value(j) - value(i), NaN if undefined.
	Deviations []float64
	Counts     []int
}

func NewSlopeOne(params Params) *SlopeOne {
	so := new(SlopeOne)
	so.SetParams(params)
	return so
}

func (so *SlopeOne) Fit(ctx context.Context, train *base.SparseMatrix) error {
	log.Logger().Info("fit slope one",
		zap.Int("train_set_size", train.EntryCount()))
	if !train.Sealed() {
		return errors.Annotatef(base.ErrIllFormedMatrix, "fit slope one on unsealed matrix")
	}
	so.columnCount = train.ColumnCount()
	n := so.columnCount
	sums := make([]float64, n*n)
	counts := make([]int, n*n)
	so.Counts = make([]int, n)
	_, span := progress.Start(ctx, "SlopeOne.Fit", train.RowCount())
	for r := 0; r < train.RowCount(); r++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return errors.Trace(err)
		}
		row, err := train.Row(r)
		if err != nil {
			return errors.Trace(err)
		}
		for _, a := range row.Entries() {
			so.Counts[a.Column]++
			for _, b := range row.Entries() {
				if a.Column != b.Column {
					sums[a.Column*n+b.Column] += a.Value - b.Value
					counts[a.Column*n+b.Column]++
				}
			}
		}
		span.Add(1)
	}
	so.Deviations = make([]float64, n*n)
	for i := range so.Deviations {
		if counts[i] > 0 {
			so.Deviations[i] = sums[i] / float64(counts[i])
		} else {
			so.Deviations[i] = math.NaN()
		}
	}
	span.End()
	log.Logger().Info("fit slope one complete", zap.Int("n_columns", n))
	return nil
}

func (so *SlopeOne) Predict(train *base.SparseMatrix, row, column int) (float64, bool) {
	if column < 0 || column >= so.columnCount {
		return 0, false
	}
	entries, err := train.Row(row)
	if err != nil {
		return 0, false
	}
	var sum, weight float64
	for _, e := range entries.Entries() {
		if e.Column == column || e.Column >= so.columnCount {
			continue
		}
		deviation := so.Deviations[column*so.columnCount+e.Column]
		if math.IsNaN(deviation) {
			continue
		}
		w := float64(so.Counts[e.Column])
		sum += w * (e.Value + deviation)
		weight += w
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}
