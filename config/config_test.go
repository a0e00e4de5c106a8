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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/model"
)

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)

	// [data]
	assert.Equal(t, uint64(10), config.Data.MinBattles)
	assert.Equal(t, 20, config.Data.TestRatio)
	assert.Equal(t, "sigmoid", config.Data.Transform)
	assert.Equal(t, 4.0, config.Data.SigmoidScale)
	assert.Equal(t, []uint64{1, 17, 33}, config.Data.Tanks)
	// [kmeans]
	assert.Equal(t, 8, config.KMeans.NClusters)
	assert.Equal(t, 3, config.KMeans.MinEntries)
	assert.Equal(t, "correlation", config.KMeans.Distance)
	assert.Equal(t, 3, config.KMeans.NRuns)
	assert.Equal(t, 50, config.KMeans.MaxSteps)
	assert.Equal(t, 0.001, config.KMeans.Tolerance)
	assert.Equal(t, 100.0, config.KMeans.InitHigh)
	// [svd]
	assert.Equal(t, 4, config.SVD.NFactors)
	assert.Equal(t, 0.001, config.SVD.Lr)
	assert.Equal(t, 16.0, config.SVD.Reg)
	assert.Equal(t, 1e-6, config.SVD.MinDelta)
	assert.Equal(t, 500, config.SVD.MaxEpochs)
	assert.Equal(t, 0.01, config.SVD.InitRange)
	assert.Equal(t, "squared", config.SVD.Loss)
	assert.Equal(t, 10.0, config.SVD.HuberDelta)
	// [item_cf]
	assert.Equal(t, 0.1, config.ItemCF.MinCorrelation)
	assert.Equal(t, 20, config.ItemCF.NNeighbors)
	// [tune]
	assert.Equal(t, 30, config.Tune.NTrials)
	assert.Equal(t, 100, config.Tune.MaxEpochs)
}

func TestSetDefault(t *testing.T) {
	config, err := LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), config)
}

func TestBindEnv(t *testing.T) {
	t.Setenv("TANKREC_SVD_LR", "0.05")
	t.Setenv("TANKREC_KMEANS_N_CLUSTERS", "3")
	t.Setenv("TANKREC_DATA_TRANSFORM", "identity")
	config, err := LoadConfig("config.toml.template")
	assert.NoError(t, err)
	assert.Equal(t, 0.05, config.SVD.Lr)
	assert.Equal(t, 3, config.KMeans.NClusters)
	assert.Equal(t, "identity", config.Data.Transform)
	// untouched values come from the file
	assert.Equal(t, 30, config.Tune.NTrials)

	t.Setenv("TANKREC_DATA_TANKS", "5,6")
	config, err = LoadConfig("")
	assert.NoError(t, err)
	assert.Equal(t, []uint64{5, 6}, config.Data.Tanks)
	assert.True(t, config.Data.Encyclopedia().Frozen())
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	err := os.WriteFile(path, []byte("[svd]\nloss = \"hinge\"\n"), 0644)
	assert.NoError(t, err)
	_, err = LoadConfig(path)
	assert.True(t, errors.Is(err, errors.NotValid))

	config := GetDefaultConfig()
	config.KMeans.InitHigh = config.KMeans.InitLow
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	config = GetDefaultConfig()
	config.ItemCF.MinCorrelation = 2
	assert.True(t, errors.Is(config.Validate(), errors.NotValid))
	assert.NoError(t, GetDefaultConfig().Validate())

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestConvert(t *testing.T) {
	config := GetDefaultConfig()

	opts, err := config.Data.LoadOptions()
	assert.NoError(t, err)
	assert.Equal(t, uint64(10), opts.MinBattles)
	assert.Equal(t, dataset.Identity{}, opts.Transform)
	config.Data.Transform = "sigmoid"
	opts, err = config.Data.LoadOptions()
	assert.NoError(t, err)
	assert.Equal(t, dataset.Sigmoid{Scale: 4}, opts.Transform)

	assert.False(t, config.Data.Encyclopedia().Frozen())
	config.Data.Tanks = []uint64{5, 6}
	encyclopedia := config.Data.Encyclopedia()
	assert.True(t, encyclopedia.Frozen())
	assert.Equal(t, 2, encyclopedia.Len())

	params := config.SVD.Params()
	assert.Equal(t, 4, params.GetInt(model.NFactors, 0))
	assert.Equal(t, 16.0, params.GetFloat64(model.Reg, 0))
	assert.Equal(t, "squared", params.GetString(model.Loss, ""))
	assert.Equal(t, 500, config.SVD.FitConfig().MaxEpochs)

	params = config.KMeans.Params()
	assert.Equal(t, 10, params.GetInt(model.NClusters, 0))
	assert.Equal(t, "correlation", params.GetString(model.Distance, ""))
	assert.Equal(t, 100, config.KMeans.FitConfig().MaxSteps)

	assert.Equal(t, 0.0, config.ItemCF.Params().GetFloat64(model.MinCorrelation, -1))
}
