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

package dataset

import (
	"math"

	"github.com/juju/errors"
)

// Transform maps win rates in [0, 100] to ratings and back.
type Transform interface {
	Forward(winRate float64) float64
	Inverse(rating float64) float64
}

type Identity struct{}

func (Identity) Forward(winRate float64) float64 { return winRate }

func (Identity) Inverse(rating float64) float64 { return rating }

// Sigmoid stretches win rates around 50% with the given scale.
type Sigmoid struct {
	Scale float64
}

func (s Sigmoid) Forward(winRate float64) float64 {
	return 100 / (1 + math.Exp((50-winRate)/s.Scale))
}

func (s Sigmoid) Inverse(rating float64) float64 {
	return 50 - s.Scale*math.Log(100/rating-1)
}

// NewTransform creates a transform by name.
func NewTransform(name string, scale float64) (Transform, error) {
	switch name {
	case "identity", "":
		return Identity{}, nil
	case "sigmoid":
		if scale <= 0 {
			return nil, errors.NotValidf("sigmoid scale %v", scale)
		}
		return Sigmoid{Scale: scale}, nil
	default:
		return nil, errors.NotSupportedf("transform %q", name)
	}
}
