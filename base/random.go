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
	"math/rand"
)

// RandomGenerator is the random generator for tankrec.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// Uniform returns a uniform random float in [low, high).
func (rng RandomGenerator) Uniform(low, high float64) float64 {
	return rng.Float64()*(high-low) + low
}

// UniformVector makes a vec filled with uniform random floats in [low, high).
func (rng RandomGenerator) UniformVector(size int, low, high float64) []float64 {
	ret := make([]float64, size)
	for i := range ret {
		ret[i] = rng.Uniform(low, high)
	}
	return ret
}

// UniformMatrix makes a matrix filled with uniform random floats in [low, high).
func (rng RandomGenerator) UniformMatrix(row, col int, low, high float64) [][]float64 {
	ret := make([][]float64, row)
	for i := range ret {
		ret[i] = rng.UniformVector(col, low, high)
	}
	return ret
}

// OneIn returns true with probability 1/n. It never returns true if n <= 0.
func (rng RandomGenerator) OneIn(n int) bool {
	if n <= 0 {
		return false
	}
	return rng.Intn(n) == 0
}
