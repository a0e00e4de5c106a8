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
	"fmt"
	"math"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/juju/errors"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/base/progress"
	"github.com/tankopoisk/tankrec/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// ErrNumericDivergence is returned when the training error is no longer a finite number.
const ErrNumericDivergence = errors.ConstError("numeric divergence")

type StopReason string

const (
	MaxEpochs StopReason = "max_epochs"
	Converged StopReason = "converged"
	Worsened  StopReason = "worsened"
	Diverged  StopReason = "diverged"
	Cancelled StopReason = "cancelled"
)

type FitConfig struct {
	MaxEpochs int
	MinDelta  float64
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		MaxEpochs: 500,
		MinDelta:  1e-6,
	}
}

func (config *FitConfig) SetMaxEpochs(maxEpochs int) *FitConfig {
	config.MaxEpochs = maxEpochs
	return config
}

func (config *FitConfig) SetMinDelta(minDelta float64) *FitConfig {
	config.MinDelta = minDelta
	return config
}

// FitResult summarizes a training run.
type FitResult struct {
	// Epochs is the number of completed training epochs, including a rejected last one.
	Epochs int
	// RMSE is the training error of the kept model.
	RMSE   float64
	Reason StopReason
}

// SVD is the biased latent factor model trained by stochastic gradient descent. The
// prediction \hat{r}_{rc} is set as:
//
//	\hat{r}_{rc} = μ + b_r + b_c + p_r^Tq_c
//
// If row r was never trained, then the bias b_r and the factors p_r are assumed to be
// zero. The same applies for column c with b_c and q_c.
type SVD struct {
	model.BaseModel
	// Model parameters
	GlobalBias   float64     // μ
	RowBias      []float64   // b_r
	ColumnBias   []float64   // b_c
	RowFactor    [][]float64 // p_r
	ColumnFactor [][]float64 // q_c
	// Trained rows and columns
	RowPredictable    *bitset.BitSet
	ColumnPredictable *bitset.BitSet
	// Hyper parameters
	nFactors  int
	lr        float64
	reg       float64
	initRange float64
	loss      Loss
}

// NewSVD creates a SVD model. Params:
//
//	NFactors   - The number of latent factors. Default is 4.
//	Lr         - The learning rate of SGD. Default is 0.001.
//	Reg        - The regularization parameter. Default is 16.
//	InitRange  - Parameters are initialized uniformly in [-InitRange, InitRange]. Default is 0.01.
//	Loss       - "squared" or "huber". Default is "squared".
//	HuberDelta - The residual threshold of huber loss. Default is 10.
func NewSVD(params model.Params) *SVD {
	svd := new(SVD)
	svd.SetParams(params)
	return svd
}

func (svd *SVD) SetParams(params model.Params) {
	svd.BaseModel.SetParams(params)
	svd.nFactors = svd.Params.GetInt(model.NFactors, 4)
	svd.lr = svd.Params.GetFloat64(model.Lr, 0.001)
	svd.reg = svd.Params.GetFloat64(model.Reg, 16)
	svd.initRange = svd.Params.GetFloat64(model.InitRange, 0.01)
	name := svd.Params.GetString(model.Loss, "squared")
	loss, ok := LossByName(name, svd.Params.GetFloat64(model.HuberDelta, 10))
	if !ok {
		log.Logger().Error("unknown loss, fallback to squared", zap.String("loss", name))
		loss = SquaredLoss
	}
	svd.loss = loss
}

// SetLoss replaces the loss function.
func (svd *SVD) SetLoss(loss Loss) {
	svd.loss = loss
}

// Init allocates parameters and fills every one of them with uniform random values.
func (svd *SVD) Init(rowCount, columnCount int) {
	rng := svd.GetRandomGenerator()
	svd.GlobalBias = rng.Uniform(-svd.initRange, svd.initRange)
	svd.RowBias = rng.UniformVector(rowCount, -svd.initRange, svd.initRange)
	svd.ColumnBias = rng.UniformVector(columnCount, -svd.initRange, svd.initRange)
	svd.RowFactor = rng.UniformMatrix(rowCount, svd.nFactors, -svd.initRange, svd.initRange)
	svd.ColumnFactor = rng.UniformMatrix(columnCount, svd.nFactors, -svd.initRange, svd.initRange)
	svd.RowPredictable = bitset.New(uint(rowCount))
	svd.ColumnPredictable = bitset.New(uint(columnCount))
}

func (svd *SVD) initialized() bool {
	return svd.RowPredictable != nil
}

func (svd *SVD) internalPredict(row, column int) float64 {
	return svd.GlobalBias + svd.RowBias[row] + svd.ColumnBias[column] +
		floats.Dot(svd.RowFactor[row], svd.ColumnFactor[column])
}

func (svd *SVD) Predict(_ *base.SparseMatrix, row, column int) (float64, bool) {
	if !svd.initialized() || row < 0 || column < 0 {
		return 0, false
	}
	rowKnown := row < len(svd.RowBias) && svd.RowPredictable.Test(uint(row))
	columnKnown := column < len(svd.ColumnBias) && svd.ColumnPredictable.Test(uint(column))
	ret := svd.GlobalBias
	if rowKnown {
		ret += svd.RowBias[row]
	}
	if columnKnown {
		ret += svd.ColumnBias[column]
	}
	if rowKnown && columnKnown {
		ret += floats.Dot(svd.RowFactor[row], svd.ColumnFactor[column])
	}
	return ret, true
}

// Step runs one SGD epoch over every entry in row-major order and returns the RMSE of
// the errors observed during the epoch.
func (svd *SVD) Step(train *base.SparseMatrix) (float64, error) {
	if !svd.initialized() {
		return 0, errors.NotValidf("step before init")
	}
	if !train.Sealed() {
		return 0, errors.Annotatef(base.ErrIllFormedMatrix, "step on unsealed matrix")
	}
	if train.RowCount() > len(svd.RowBias) {
		return 0, errors.Annotatef(base.ErrInvalidIndex, "matrix has %d rows, model has %d", train.RowCount(), len(svd.RowBias))
	}
	var (
		sumSquared float64
		count      int
	)
	for r := 0; r < train.RowCount(); r++ {
		row, err := train.Row(r)
		if err != nil {
			return 0, errors.Trace(err)
		}
		rowFactor := svd.RowFactor[r]
		for _, e := range row.Entries() {
			c := e.Column
			if c < 0 || c >= len(svd.ColumnBias) {
				return 0, errors.Annotatef(base.ErrInvalidIndex, "column %d out of range [0, %d)", c, len(svd.ColumnBias))
			}
			columnFactor := svd.ColumnFactor[c]
			predicted := svd.internalPredict(r, c)
			diff := e.Value - predicted
			sumSquared += diff * diff
			count++
			grad := svd.loss(e.Value, predicted)
			svd.GlobalBias += svd.lr * grad
			svd.RowBias[r] += svd.lr * (grad - svd.reg*svd.RowBias[r])
			svd.ColumnBias[c] += svd.lr * (grad - svd.reg*svd.ColumnBias[c])
			for i := range rowFactor {
				rowFactor[i] += svd.lr * (grad*columnFactor[i] - svd.reg*rowFactor[i])
				columnFactor[i] += svd.lr * (grad*rowFactor[i] - svd.reg*columnFactor[i])
			}
			svd.RowPredictable.Set(uint(r))
			svd.ColumnPredictable.Set(uint(c))
		}
	}
	if count == 0 {
		return 0, nil
	}
	return math.Sqrt(sumSquared / float64(count)), nil
}

type snapshot struct {
	globalBias   float64
	rowBias      []float64
	columnBias   []float64
	rowFactor    [][]float64
	columnFactor [][]float64
}

func copyMatrix(m [][]float64) [][]float64 {
	ret := make([][]float64, len(m))
	for i := range m {
		ret[i] = append([]float64(nil), m[i]...)
	}
	return ret
}

func (svd *SVD) snapshot() snapshot {
	return snapshot{
		globalBias:   svd.GlobalBias,
		rowBias:      append([]float64(nil), svd.RowBias...),
		columnBias:   append([]float64(nil), svd.ColumnBias...),
		rowFactor:    copyMatrix(svd.RowFactor),
		columnFactor: copyMatrix(svd.ColumnFactor),
	}
}

func (svd *SVD) restore(s snapshot) {
	svd.GlobalBias = s.globalBias
	svd.RowBias = s.rowBias
	svd.ColumnBias = s.columnBias
	svd.RowFactor = s.rowFactor
	svd.ColumnFactor = s.columnFactor
}

// Fit initializes the model and trains it until the RMSE change falls below MinDelta, the
// RMSE increases, the RMSE is not finite or MaxEpochs is reached. On increase and on
// divergence the model of the previous epoch is restored; divergence also returns
// ErrNumericDivergence.
func (svd *SVD) Fit(ctx context.Context, train *base.SparseMatrix, config *FitConfig) (FitResult, error) {
	log.Logger().Info("fit svd",
		zap.Int("train_set_size", train.EntryCount()),
		zap.Int("n_rows", train.RowCount()),
		zap.Any("params", svd.GetParams()),
		zap.Any("config", config))
	svd.Init(train.RowCount(), train.ColumnCount())
	result := FitResult{RMSE: math.Inf(1), Reason: MaxEpochs}
	_, span := progress.Start(ctx, "SVD.Fit", config.MaxEpochs)
	defer span.End()
	for epoch := 1; epoch <= config.MaxEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			result.Reason = Cancelled
			span.Fail(err)
			return result, errors.Trace(err)
		}
		fitStart := time.Now()
		prev := svd.snapshot()
		rmse, err := svd.Step(train)
		if err != nil {
			span.Fail(err)
			return result, errors.Trace(err)
		}
		result.Epochs = epoch
		delta := rmse - result.RMSE
		log.Logger().Debug(fmt.Sprintf("fit svd %v/%v", epoch, config.MaxEpochs),
			zap.String("fit_time", time.Since(fitStart).String()),
			zap.Float64("rmse", rmse),
			zap.Float64("delta", delta))
		span.Add(1)
		if math.IsNaN(rmse) || math.IsInf(rmse, 0) {
			svd.restore(prev)
			result.Reason = Diverged
			err = errors.Annotatef(ErrNumericDivergence, "rmse is %v at epoch %d", rmse, epoch)
			span.Fail(err)
			log.Logger().Error("fit svd diverged", zap.Int("epoch", epoch), zap.Float64("rmse", result.RMSE))
			return result, err
		}
		if delta > 0 {
			svd.restore(prev)
			result.Reason = Worsened
			break
		}
		result.RMSE = rmse
		if math.Abs(delta) < config.MinDelta {
			result.Reason = Converged
			break
		}
	}
	log.Logger().Info("fit svd complete",
		zap.Int("epochs", result.Epochs),
		zap.Float64("rmse", result.RMSE),
		zap.String("reason", string(result.Reason)))
	return result, nil
}
