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

package cluster

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/juju/errors"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/base/log"
	"github.com/tankopoisk/tankrec/base/progress"
	"github.com/tankopoisk/tankrec/model"
	"go.uber.org/zap"
)

// Unassigned marks a row that takes no part in clustering.
const Unassigned = -1

type State int

const (
	Uninitialized State = iota
	Initialized
	Stepping
	Converged
)

func (s State) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Stepping:
		return "stepping"
	case Converged:
		return "converged"
	default:
		return "uninitialized"
	}
}

// StepResult is the outcome of one clustering step.
type StepResult struct {
	// Changed is the number of rows whose cluster differs from the previous step.
	Changed int
	// Assigned is the number of rows with a cluster.
	Assigned int
	// Error is the mean squared distance between assigned rows and their centroids.
	Error float64
}

type FitConfig struct {
	NRuns     int
	MaxSteps  int
	Tolerance float64
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		NRuns:    1,
		MaxSteps: 100,
	}
}

func (config *FitConfig) SetNRuns(nRuns int) *FitConfig {
	config.NRuns = nRuns
	return config
}

func (config *FitConfig) SetMaxSteps(maxSteps int) *FitConfig {
	config.MaxSteps = maxSteps
	return config
}

func (config *FitConfig) SetTolerance(tolerance float64) *FitConfig {
	config.Tolerance = tolerance
	return config
}

// KMeans clusters the rows of a sparse matrix. Centroids are dense rows (one entry per
// column) and rows are assigned to the nearest centroid under a pluggable distance,
// correlation distance by default. A centroid column without any assigned value is NaN.
type KMeans struct {
	model.BaseModel
	nClusters   int
	minEntries  int
	initLow     float64
	initHigh    float64
	distance    base.Distance
	rowCount    int
	columnCount int
	state       State
	Centroids   *base.SparseMatrix
	Assignments []int
}

func NewKMeans(params model.Params) *KMeans {
	km := new(KMeans)
	km.SetParams(params)
	return km
}

func (km *KMeans) SetParams(params model.Params) {
	km.BaseModel.SetParams(params)
	km.nClusters = km.Params.GetInt(model.NClusters, 10)
	km.minEntries = km.Params.GetInt(model.MinEntries, 3)
	km.initLow = km.Params.GetFloat64(model.InitLow, 0)
	km.initHigh = km.Params.GetFloat64(model.InitHigh, 100)
	name := km.Params.GetString(model.Distance, "correlation")
	distance, ok := base.DistanceByName(name)
	if !ok {
		log.Logger().Error("unknown distance, fallback to correlation", zap.String("distance", name))
		distance = base.CorrelationDistance
	}
	km.distance = distance
}

// SetDistance replaces the distance function.
func (km *KMeans) SetDistance(distance base.Distance) {
	km.distance = distance
}

func (km *KMeans) State() State {
	return km.state
}

// Init seeds centroids with uniform random values using the model random generator.
func (km *KMeans) Init(rowCount, columnCount int) {
	km.init(km.GetRandomGenerator(), rowCount, columnCount)
}

func (km *KMeans) init(rng base.RandomGenerator, rowCount, columnCount int) {
	km.rowCount = rowCount
	km.columnCount = columnCount
	km.Centroids = base.NewSparseMatrixWithCapacity(km.nClusters, km.nClusters*columnCount)
	for k := 0; k < km.nClusters; k++ {
		km.Centroids.OpenRow()
		for c := 0; c < columnCount; c++ {
			// a row is open, so appending never fails
			_ = km.Centroids.Append(c, rng.Uniform(km.initLow, km.initHigh))
		}
	}
	km.Centroids.OpenRow()
	km.Assignments = make([]int, rowCount)
	for i := range km.Assignments {
		km.Assignments[i] = Unassigned
	}
	km.state = Initialized
}

// Cluster returns the cluster of a row, Unassigned if the row is not clustered.
func (km *KMeans) Cluster(row int) int {
	if row < 0 || row >= len(km.Assignments) {
		return Unassigned
	}
	return km.Assignments[row]
}

// Centroid returns the k-th centroid.
func (km *KMeans) Centroid(k int) (base.Row, error) {
	if km.Centroids == nil {
		return base.Row{}, errors.Annotatef(base.ErrInvalidIndex, "centroid %d of uninitialized model", k)
	}
	return km.Centroids.Row(k)
}

// Step assigns rows to their nearest centroids and then recomputes centroids. Rows with
// fewer than MinEntries entries stay unassigned. The model is left untouched when the
// matrix is rejected.
func (km *KMeans) Step(train *base.SparseMatrix) (StepResult, error) {
	var result StepResult
	if km.state == Uninitialized {
		return result, errors.NotValidf("step before init")
	}
	if !train.Sealed() {
		return result, errors.Annotatef(base.ErrIllFormedMatrix, "step on unsealed matrix")
	}
	if train.RowCount() != km.rowCount {
		return result, errors.Annotatef(base.ErrInvalidIndex, "matrix has %d rows, model has %d", train.RowCount(), km.rowCount)
	}
	centroids := make([]base.Row, km.nClusters)
	for k := range centroids {
		var err error
		if centroids[k], err = km.Centroids.Row(k); err != nil {
			return result, errors.Trace(err)
		}
	}
	// collect rows to cluster, columns must fit the centroids
	rows := make([]base.Row, km.rowCount)
	clustered := make([]bool, km.rowCount)
	for r := 0; r < km.rowCount; r++ {
		if train.RowLen(r) < km.minEntries || km.nClusters == 0 {
			continue
		}
		row, err := train.Row(r)
		if err != nil {
			return result, errors.Trace(err)
		}
		for _, e := range row.Entries() {
			if e.Column < 0 || e.Column >= km.columnCount {
				return result, errors.Annotatef(base.ErrInvalidIndex, "column %d of row %d out of range [0, %d)", e.Column, r, km.columnCount)
			}
		}
		rows[r], clustered[r] = row, true
	}
	// assign nearest centroids
	var sumSquared float64
	for r := 0; r < km.rowCount; r++ {
		nearest := Unassigned
		if clustered[r] {
			var minDistance float64
			nearest, minDistance = km.nearest(rows[r], centroids)
			sumSquared += minDistance * minDistance
			result.Assigned++
		}
		if nearest != km.Assignments[r] {
			result.Changed++
		}
		km.Assignments[r] = nearest
	}
	if result.Assigned > 0 {
		result.Error = sumSquared / float64(result.Assigned)
	}
	// reset centroids
	for k := 0; k < km.nClusters; k++ {
		centroid, _ := km.Centroids.MutableRow(k)
		for c := 0; c < centroid.Len(); c++ {
			_ = centroid.SetValue(c, 0)
		}
	}
	// sum up values
	counts := make([]int, km.nClusters*km.columnCount)
	for r := 0; r < km.rowCount; r++ {
		k := km.Assignments[r]
		if k == Unassigned {
			continue
		}
		centroid, _ := km.Centroids.MutableRow(k)
		for _, e := range rows[r].Entries() {
			_ = centroid.AddValue(e.Column, e.Value)
			counts[k*km.columnCount+e.Column]++
		}
	}
	// divide by value count, empty columns become NaN
	for k := 0; k < km.nClusters; k++ {
		centroid, _ := km.Centroids.MutableRow(k)
		for c := 0; c < centroid.Len(); c++ {
			_ = centroid.SetValue(c, centroid.At(c).Value/float64(counts[k*km.columnCount+c]))
		}
	}
	if result.Changed == 0 {
		km.state = Converged
	} else {
		km.state = Stepping
	}
	return result, nil
}

// nearest returns the first centroid with the minimum distance. NaN distances rank last.
func (km *KMeans) nearest(row base.Row, centroids []base.Row) (int, float64) {
	best, bestDistance := 0, math.Inf(1)
	for k, centroid := range centroids {
		d := km.distance(row, centroid)
		if math.IsNaN(d) {
			d = math.Inf(1)
		}
		if k == 0 || d < bestDistance {
			best, bestDistance = k, d
		}
	}
	return best, bestDistance
}

// Fit runs k-means NRuns times from different random centroids and keeps the run with
// the lowest error. Each run stops when no assignment changes, the error changes by less
// than Tolerance or MaxSteps is reached.
func (km *KMeans) Fit(ctx context.Context, train *base.SparseMatrix, config *FitConfig) (StepResult, error) {
	log.Logger().Info("fit kmeans",
		zap.Int("train_set_size", train.EntryCount()),
		zap.Int("n_rows", train.RowCount()),
		zap.Any("params", km.GetParams()),
		zap.Any("config", config))
	nRuns := max(config.NRuns, 1)
	var (
		best            StepResult
		bestCentroids   *base.SparseMatrix
		bestAssignments []int
		bestRun         = -1
	)
	fitCtx, span := progress.Start(ctx, "KMeans.Fit", nRuns)
	for run := 0; run < nRuns; run++ {
		km.init(base.NewRandomGenerator(km.GetRandomGenerator().Int63()), train.RowCount(), train.ColumnCount())
		result, steps, err := km.run(fitCtx, train, config, run)
		if err != nil {
			span.Fail(err)
			return result, errors.Trace(err)
		}
		log.Logger().Info(fmt.Sprintf("fit kmeans run %v/%v", run+1, nRuns),
			zap.Int("steps", steps),
			zap.Int("assigned", result.Assigned),
			zap.Float64("error", result.Error))
		if bestRun < 0 || result.Error < best.Error {
			best, bestRun = result, run
			bestCentroids = km.Centroids.Clone()
			bestAssignments = append([]int(nil), km.Assignments...)
		}
		span.Add(1)
	}
	span.End()
	km.Centroids, km.Assignments = bestCentroids, bestAssignments
	km.state = Converged
	log.Logger().Info("fit kmeans complete",
		zap.Int("best_run", bestRun+1),
		zap.Int("assigned", best.Assigned),
		zap.Float64("error", best.Error))
	return best, nil
}

func (km *KMeans) run(ctx context.Context, train *base.SparseMatrix, config *FitConfig, run int) (StepResult, int, error) {
	var (
		result    StepResult
		prevError = math.Inf(1)
		steps     int
	)
	_, span := progress.Start(ctx, fmt.Sprintf("KMeans.Fit.%d", run), config.MaxSteps)
	defer span.End()
	for steps < config.MaxSteps {
		if err := ctx.Err(); err != nil {
			return result, steps, err
		}
		start := time.Now()
		var err error
		result, err = km.Step(train)
		if err != nil {
			return result, steps, err
		}
		steps++
		span.Add(1)
		log.Logger().Debug(fmt.Sprintf("fit kmeans step %v", steps),
			zap.Int("run", run+1),
			zap.Int("changed", result.Changed),
			zap.Int("assigned", result.Assigned),
			zap.Float64("error", result.Error),
			zap.String("step_time", time.Since(start).String()))
		if result.Changed == 0 || math.Abs(prevError-result.Error) < config.Tolerance {
			break
		}
		prevError = result.Error
	}
	return result, steps, nil
}

// Predict returns the centroid value of the row's cluster in the column. The value is NaN
// if no row of the cluster has the column.
func (km *KMeans) Predict(_ *base.SparseMatrix, row, column int) (float64, bool) {
	k := km.Cluster(row)
	if k == Unassigned || column < 0 || column >= km.columnCount {
		return 0, false
	}
	centroid, err := km.Centroids.Row(k)
	if err != nil {
		return 0, false
	}
	return centroid.At(column).Value, true
}
