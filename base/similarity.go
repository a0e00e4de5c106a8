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

package base

import (
	"math"
)

// minDenominator is the smallest denominator treated as nonzero variance.
const minDenominator = 1e-6

// ForIntersection calls f for every column present in both rows. Both rows must be sorted
// by column.
func ForIntersection(a, b Row, f func(column int, x, y float64)) {
	i, j := 0, 0
	for i < len(a.entries) && j < len(b.entries) {
		switch {
		case a.entries[i].Column == b.entries[j].Column:
			f(a.entries[i].Column, a.entries[i].Value, b.entries[j].Value)
			i++
			j++
		case a.entries[i].Column < b.entries[j].Column:
			i++
		default:
			j++
		}
	}
}

// Pearson computes the Pearson correlation coefficient between two rows over their shared
// columns. Pairs containing NaN are ignored. It returns 0 if fewer than two columns are
// shared or either side has no variance.
func Pearson(a, b Row) float64 {
	var n, sumA, sumB, sumSqA, sumSqB, productSum float64
	ForIntersection(a, b, func(_ int, x, y float64) {
		if math.IsNaN(x) || math.IsNaN(y) {
			return
		}
		n++
		sumA += x
		sumB += y
		sumSqA += x * x
		sumSqB += y * y
		productSum += x * y
	})
	if n < 2 {
		return 0
	}
	numerator := productSum - sumA*sumB/n
	denominator := math.Sqrt((sumSqA - sumA*sumA/n) * (sumSqB - sumB*sumB/n))
	if math.IsNaN(denominator) || math.Abs(denominator) < minDenominator {
		return 0
	}
	return numerator / denominator
}

// Distance measures how far apart two rows are. Smaller is closer.
type Distance func(a, b Row) float64

// CorrelationDistance is one minus the Pearson correlation, in [0, 2].
func CorrelationDistance(a, b Row) float64 {
	return 1 - Pearson(a, b)
}

// EuclideanDistance is the root mean squared difference over shared columns. Rows without
// shared columns are infinitely far apart.
func EuclideanDistance(a, b Row) float64 {
	var n, sum float64
	ForIntersection(a, b, func(_ int, x, y float64) {
		if math.IsNaN(x) || math.IsNaN(y) {
			return
		}
		n++
		sum += (x - y) * (x - y)
	})
	if n == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(sum / n)
}

// DistanceByName returns a distance function by its configuration name.
func DistanceByName(name string) (Distance, bool) {
	switch name {
	case "correlation", "":
		return CorrelationDistance, true
	case "euclidean":
		return EuclideanDistance, true
	default:
		return nil, false
	}
}
