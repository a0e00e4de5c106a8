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
	"math"
)

// Loss returns the residual that drives one SGD update, i.e. the negative gradient of the
// loss with respect to the prediction.
type Loss func(observed, predicted float64) float64

// SquaredLoss is the residual of the squared error.
func SquaredLoss(observed, predicted float64) float64 {
	return observed - predicted
}

// HuberLoss is quadratic for residuals up to delta and linear beyond, so the residual is
// clipped to [-delta, delta].
func HuberLoss(delta float64) Loss {
	return func(observed, predicted float64) float64 {
		return math.Max(-delta, math.Min(delta, observed-predicted))
	}
}

// LossByName returns a loss function by its configuration name.
func LossByName(name string, huberDelta float64) (Loss, bool) {
	switch name {
	case "squared", "":
		return SquaredLoss, true
	case "huber":
		return HuberLoss(huberDelta), true
	default:
		return nil, false
	}
}
