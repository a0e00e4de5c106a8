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
	"github.com/tankopoisk/tankrec/base/heap"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/base/progress"
	"go.uber.org/zap"
)

// ItemCF is item-based collaborative filtering. Columns are compared by the Pearson
// correlation of their ratings and the prediction of (r, j) is the correlation-weighted
// mean of the ratings of row r over columns correlated with j. With NNeighbors set only
// the most correlated rated columns take part.
type ItemCF struct {
	BaseModel
	minCorrelation float64
	nNeighbors     int
	columnCount    int
	Correlations   []float64
}

func NewItemCF(params Params) *ItemCF {
	cf := new(ItemCF)
	cf.SetParams(params)
	cf.minCorrelation = cf.Params.GetFloat64(MinCorrelation, 0)
	cf.nNeighbors = cf.Params.GetInt(NNeighbors, 0)
	return cf
}

func (cf *ItemCF) Fit(ctx context.Context, train *base.SparseMatrix) error {
	log.Logger().Info("fit item cf",
		zap.Int("train_set_size", train.EntryCount()),
		zap.Any("params", cf.GetParams()))
	columns, err := train.Transpose()
	if err != nil {
		return errors.Trace(err)
	}
	n := columns.RowCount()
	cf.columnCount = n
	cf.Correlations = make([]float64, n*n)
	_, span := progress.Start(ctx, "ItemCF.Fit", n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return errors.Trace(err)
		}
		a, err := columns.Row(i)
		if err != nil {
			return errors.Trace(err)
		}
		for j := i + 1; j < n; j++ {
			b, err := columns.Row(j)
			if err != nil {
				return errors.Trace(err)
			}
			corr := base.Pearson(a, b)
			cf.Correlations[i*n+j] = corr
			cf.Correlations[j*n+i] = corr
		}
		span.Add(1)
	}
	span.End()
	log.Logger().Info("fit item cf complete", zap.Int("n_columns", n))
	return nil
}

// Correlation returns the correlation between two columns.
func (cf *ItemCF) Correlation(i, j int) float64 {
	if i < 0 || j < 0 || i >= cf.columnCount || j >= cf.columnCount {
		return 0
	}
	return cf.Correlations[i*cf.columnCount+j]
}

func (cf *ItemCF) Predict(train *base.SparseMatrix, row, column int) (float64, bool) {
	if column < 0 || column >= cf.columnCount {
		return 0, false
	}
	entries, err := train.Row(row)
	if err != nil {
		return 0, false
	}
	var neighbors *heap.TopK
	if cf.nNeighbors > 0 {
		neighbors = heap.NewTopK(cf.nNeighbors)
	}
	var sum, weight float64
	for i, e := range entries.Entries() {
		if e.Column == column {
			continue
		}
		corr := cf.Correlation(column, e.Column)
		if corr <= cf.minCorrelation || corr <= 0 {
			continue
		}
		if neighbors != nil {
			neighbors.Push(i, corr)
			continue
		}
		sum += corr * e.Value
		weight += corr
	}
	if neighbors != nil {
		for _, neighbor := range neighbors.Elems() {
			sum += neighbor.Weight * entries.At(neighbor.Value).Value
			weight += neighbor.Weight
		}
	}
	if weight == 0 {
		return 0, false
	}
	return sum / weight, true
}
