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
	"testing"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	"github.com/stretchr/testify/assert"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/model"
)

func TestTPE(t *testing.T) {
	train := newSmall(t)
	test := newMatrix(t, [][]base.Entry{
		{{Column: 2, Value: 2}},
		{{Column: 1, Value: 3}},
		{{Column: 0, Value: 4}},
	})
	search := NewModelSearch(context.Background(), train, test, dataset.Identity{},
		model.Params{model.RandomState: 0}, NewFitConfig().SetMaxEpochs(20))
	study, err := goptuna.CreateStudy("TestTPE",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMinimize),
		goptuna.StudyOptionSampler(tpe.NewSampler()))
	assert.NoError(t, err)
	err = study.Optimize(search.Objective, 5)
	assert.NoError(t, err)
	v, err := study.GetBestValue()
	assert.NoError(t, err)
	params, result := search.Result()
	assert.InDelta(t, v, result.RMSE, 1e-9)
	assert.Equal(t, 3, result.Count)
	assert.Contains(t, params, model.Lr)
	assert.Contains(t, params, model.Reg)
	assert.Contains(t, params, model.NFactors)
	assert.Equal(t, 0, params.GetInt(model.RandomState, -1))
	lr := params.GetFloat64(model.Lr, 0)
	assert.GreaterOrEqual(t, lr, 1e-4)
	assert.LessOrEqual(t, lr, 1e-1)
}
