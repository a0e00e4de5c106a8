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
	"bytes"
	"math"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/model"
)

const evalEpsilon = 1e-9

// constant predicts a fixed value for every column below limit and NaN for column nan.
type constant struct {
	model.BaseModel
	value float64
	limit int
	nan   int
}

func (c *constant) Predict(_ *base.SparseMatrix, _, column int) (float64, bool) {
	if column == c.nan {
		return math.NaN(), true
	}
	if column >= c.limit {
		return 0, false
	}
	return c.value, true
}

func newTestMatrix(t *testing.T) *base.SparseMatrix {
	m := base.NewSparseMatrix()
	m.OpenRow()
	assert.NoError(t, m.Append(0, 48))
	assert.NoError(t, m.Append(1, 53))
	assert.NoError(t, m.Append(2, 50))
	m.OpenRow()
	assert.NoError(t, m.Append(0, 35))
	assert.NoError(t, m.Append(3, 70))
	assert.NoError(t, m.Append(4, 10))
	m.OpenRow()
	return m
}

func TestEvaluate(t *testing.T) {
	test := newTestMatrix(t)
	m := &constant{value: 50, limit: 4, nan: 2}
	result, err := Evaluate(m, base.NewSparseMatrix(), test, nil)
	assert.NoError(t, err)
	// residuals: 2, -3, 15, -20
	assert.Equal(t, 4, result.Count)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.NaN)
	assert.InDelta(t, math.Sqrt((4+9+225+400)/4.0), result.RMSE, evalEpsilon)
	assert.InDelta(t, 10.0, result.MAE, evalEpsilon)
	mean := -1.5
	variance := (math.Pow(2-mean, 2) + math.Pow(-3-mean, 2) + math.Pow(15-mean, 2) + math.Pow(-20-mean, 2)) / 3
	assert.InDelta(t, math.Sqrt(variance), result.StdDev, evalEpsilon)
	assert.Equal(t, Distribution{0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 2}, result.Distribution)
	assert.Equal(t, 4, result.Distribution.Total())
}

func TestEvaluate_Transform(t *testing.T) {
	sigmoid := dataset.Sigmoid{Scale: 4}
	test := base.NewSparseMatrix()
	test.OpenRow()
	assert.NoError(t, test.Append(0, sigmoid.Forward(52.5)))
	test.OpenRow()
	m := &constant{value: sigmoid.Forward(50), limit: 1, nan: -1}
	result, err := Evaluate(m, base.NewSparseMatrix(), test, sigmoid)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Count)
	assert.InDelta(t, 2.5, result.RMSE, 1e-6)
	assert.InDelta(t, 2.5, result.MAE, 1e-6)
	assert.True(t, math.IsNaN(result.StdDev))
	assert.Equal(t, 1, result.Distribution[2])
}

func TestEvaluate_Empty(t *testing.T) {
	m := &constant{value: 50, limit: 0, nan: -1}
	result, err := Evaluate(m, base.NewSparseMatrix(), newTestMatrix(t), nil)
	assert.NoError(t, err)
	assert.Zero(t, result.Count)
	assert.Equal(t, 6, result.Skipped)
	assert.True(t, math.IsNaN(result.RMSE))
	assert.True(t, math.IsNaN(result.MAE))
}

func TestEvaluate_Unsealed(t *testing.T) {
	m := &constant{value: 50, limit: 4, nan: -1}
	unsealed := base.NewSparseMatrix()
	unsealed.OpenRow()
	assert.NoError(t, unsealed.Append(0, 48))
	_, err := Evaluate(m, base.NewSparseMatrix(), unsealed, nil)
	assert.True(t, errors.Is(err, base.ErrIllFormedMatrix))
	_, err = Evaluate(m, unsealed, newTestMatrix(t), nil)
	assert.True(t, errors.Is(err, base.ErrIllFormedMatrix))
}

func TestDistribution(t *testing.T) {
	var d Distribution
	for _, absErr := range []float64{0, 0.99, 1, 9.5, 10, 250, math.Inf(1), math.NaN()} {
		d.add(absErr)
	}
	assert.Equal(t, Distribution{2, 1, 0, 0, 0, 0, 0, 0, 0, 1, 4}, d)
}

func TestRender(t *testing.T) {
	m := &constant{value: 50, limit: 4, nan: 2}
	result, err := Evaluate(m, base.NewSparseMatrix(), newTestMatrix(t), nil)
	assert.NoError(t, err)
	result.Name, result.Set = "constant", "test"
	empty := Result{Name: "empty", Set: "train", RMSE: math.NaN(), MAE: math.NaN(), StdDev: math.NaN()}
	var buf bytes.Buffer
	assert.NoError(t, Render(&buf, result, empty))
	out := buf.String()
	assert.Contains(t, out, "constant")
	assert.Contains(t, out, "10.0000")
	assert.Contains(t, out, "n/a")

	buf.Reset()
	assert.NoError(t, RenderDistribution(&buf, result.Distribution))
	out = buf.String()
	assert.Contains(t, out, "[2, 3)")
	assert.Contains(t, out, ">= 10")
	assert.Contains(t, out, "50.00%")
}
