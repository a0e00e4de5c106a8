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

package eval

import (
	"fmt"
	"io"
	"math"

	"github.com/juju/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/model"
	"gonum.org/v1/gonum/stat"
	"modernc.org/mathutil"
)

// NumBuckets is the number of error buckets. Bucket i counts absolute errors in [i, i+1),
// the last one counts everything above.
const NumBuckets = 11

type Distribution [NumBuckets]int

func (d *Distribution) add(absErr float64) {
	if math.IsNaN(absErr) || absErr < 0 || absErr >= NumBuckets {
		d[NumBuckets-1]++
		return
	}
	d[mathutil.Min(int(absErr), NumBuckets-1)]++
}

// Total returns the number of errors in the distribution.
func (d Distribution) Total() int {
	return lo.Sum(d[:])
}

// Result summarizes the errors of a model on a rating matrix. Errors are measured in
// win rate points.
type Result struct {
	Name string
	Set  string
	// Count is the number of evaluated entries.
	Count int
	// Skipped is the number of entries the model could not predict.
	Skipped int
	// NaN is the number of entries predicted as NaN.
	NaN          int
	RMSE         float64
	MAE          float64
	StdDev       float64
	Distribution Distribution
}

// Evaluate compares the predictions of m against every entry of test. Predictions and
// ratings are mapped back to win rates by transform before errors are computed. Both
// matrices must be sealed.
func Evaluate(m model.Model, train, test *base.SparseMatrix, transform dataset.Transform) (Result, error) {
	var result Result
	if !train.Sealed() {
		return result, errors.Annotatef(base.ErrIllFormedMatrix, "evaluate with unsealed train set")
	}
	if !test.Sealed() {
		return result, errors.Annotatef(base.ErrIllFormedMatrix, "evaluate on unsealed test set")
	}
	if transform == nil {
		transform = dataset.Identity{}
	}
	residuals := make([]float64, 0, test.EntryCount())
	test.ForEach(func(row, column int, value float64) {
		prediction, ok := m.Predict(train, row, column)
		if !ok {
			result.Skipped++
			return
		}
		residual := transform.Inverse(prediction) - transform.Inverse(value)
		if math.IsNaN(residual) || math.IsInf(residual, 0) {
			result.NaN++
			return
		}
		residuals = append(residuals, residual)
		result.Distribution.add(math.Abs(residual))
	})
	result.Count = len(residuals)
	if result.Count == 0 {
		result.RMSE, result.MAE, result.StdDev = math.NaN(), math.NaN(), math.NaN()
		return result, nil
	}
	n := float64(result.Count)
	result.RMSE = math.Sqrt(lo.SumBy(residuals, func(r float64) float64 { return r * r }) / n)
	result.MAE = lo.SumBy(residuals, math.Abs) / n
	if result.Count > 1 {
		result.StdDev = stat.StdDev(residuals, nil)
	} else {
		result.StdDev = math.NaN()
	}
	return result, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}

// Render writes results as a table.
func Render(w io.Writer, results ...Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Model", "Set", "Count", "Skipped", "NaN", "RMSE", "MAE", "StdDev")
	rows := lo.Map(results, func(r Result, _ int) []string {
		return []string{
			r.Name,
			r.Set,
			fmt.Sprint(r.Count),
			fmt.Sprint(r.Skipped),
			fmt.Sprint(r.NaN),
			formatFloat(r.RMSE),
			formatFloat(r.MAE),
			formatFloat(r.StdDev),
		}
	})
	if err := table.Bulk(rows); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}

// RenderDistribution writes the error distribution as a table.
func RenderDistribution(w io.Writer, d Distribution) error {
	total := d.Total()
	table := tablewriter.NewWriter(w)
	table.Header("Error", "Count", "Share")
	rows := make([][]string, 0, NumBuckets)
	for i, count := range d {
		label := fmt.Sprintf("[%d, %d)", i, i+1)
		if i == NumBuckets-1 {
			label = fmt.Sprintf(">= %d", i)
		}
		share := "n/a"
		if total > 0 {
			share = fmt.Sprintf("%.2f%%", 100*float64(count)/float64(total))
		}
		rows = append(rows, []string{label, fmt.Sprint(count), share})
	}
	if err := table.Bulk(rows); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(table.Render())
}
