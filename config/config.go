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
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
	"github.com/spf13/viper"
	"github.com/tankopoisk/tankrec/dataset"
	"github.com/tankopoisk/tankrec/model"
	"github.com/tankopoisk/tankrec/model/cluster"
	"github.com/tankopoisk/tankrec/model/factor"
)

// Config is the configuration of training runs.
type Config struct {
	Data   DataConfig   `mapstructure:"data"`
	KMeans KMeansConfig `mapstructure:"kmeans"`
	SVD    SVDConfig    `mapstructure:"svd"`
	ItemCF ItemCFConfig `mapstructure:"item_cf"`
	Tune   TuneConfig   `mapstructure:"tune"`
}

type DataConfig struct {
	MinBattles   uint64  `mapstructure:"min_battles"`
	TestRatio    int     `mapstructure:"test_ratio" validate:"gte=0"`
	RandomState  int64   `mapstructure:"random_state"`
	Transform    string  `mapstructure:"transform" validate:"oneof=identity sigmoid"`
	SigmoidScale float64 `mapstructure:"sigmoid_scale" validate:"gt=0"`
	// Tanks restricts columns to the listed tank ids. Empty means every tank in the feed.
	Tanks []uint64 `mapstructure:"tanks"`
}

type KMeansConfig struct {
	NClusters   int     `mapstructure:"n_clusters" validate:"gt=0"`
	MinEntries  int     `mapstructure:"min_entries" validate:"gte=0"`
	Distance    string  `mapstructure:"distance" validate:"oneof=correlation euclidean"`
	NRuns       int     `mapstructure:"n_runs" validate:"gt=0"`
	MaxSteps    int     `mapstructure:"max_steps" validate:"gt=0"`
	Tolerance   float64 `mapstructure:"tolerance" validate:"gte=0"`
	InitLow     float64 `mapstructure:"init_low"`
	InitHigh    float64 `mapstructure:"init_high" validate:"gtfield=InitLow"`
	RandomState int64   `mapstructure:"random_state"`
}

type SVDConfig struct {
	NFactors    int     `mapstructure:"n_factors" validate:"gt=0"`
	Lr          float64 `mapstructure:"lr" validate:"gt=0"`
	Reg         float64 `mapstructure:"reg" validate:"gte=0"`
	MinDelta    float64 `mapstructure:"min_delta" validate:"gte=0"`
	MaxEpochs   int     `mapstructure:"max_epochs" validate:"gt=0"`
	InitRange   float64 `mapstructure:"init_range" validate:"gte=0"`
	Loss        string  `mapstructure:"loss" validate:"oneof=squared huber"`
	HuberDelta  float64 `mapstructure:"huber_delta" validate:"gt=0"`
	RandomState int64   `mapstructure:"random_state"`
}

type ItemCFConfig struct {
	MinCorrelation float64 `mapstructure:"min_correlation" validate:"gte=-1,lte=1"`
	NNeighbors     int     `mapstructure:"n_neighbors" validate:"gte=0"`
}

type TuneConfig struct {
	NTrials     int   `mapstructure:"n_trials" validate:"gt=0"`
	MaxEpochs   int   `mapstructure:"max_epochs" validate:"gt=0"`
	RandomState int64 `mapstructure:"random_state"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			MinBattles:   10,
			TestRatio:    20,
			Transform:    "identity",
			SigmoidScale: 4,
			Tanks:        []uint64{},
		},
		KMeans: KMeansConfig{
			NClusters:  10,
			MinEntries: 3,
			Distance:   "correlation",
			NRuns:      1,
			MaxSteps:   100,
			InitLow:    0,
			InitHigh:   100,
		},
		SVD: SVDConfig{
			NFactors:   4,
			Lr:         0.001,
			Reg:        16,
			MinDelta:   1e-6,
			MaxEpochs:  500,
			InitRange:  0.01,
			Loss:       "squared",
			HuberDelta: 10,
		},
		ItemCF: ItemCFConfig{
			MinCorrelation: 0,
		},
		Tune: TuneConfig{
			NTrials:   20,
			MaxEpochs: 100,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [data]
	v.SetDefault("data.min_battles", defaultConfig.Data.MinBattles)
	v.SetDefault("data.test_ratio", defaultConfig.Data.TestRatio)
	v.SetDefault("data.random_state", defaultConfig.Data.RandomState)
	v.SetDefault("data.transform", defaultConfig.Data.Transform)
	v.SetDefault("data.sigmoid_scale", defaultConfig.Data.SigmoidScale)
	v.SetDefault("data.tanks", defaultConfig.Data.Tanks)
	// [kmeans]
	v.SetDefault("kmeans.n_clusters", defaultConfig.KMeans.NClusters)
	v.SetDefault("kmeans.min_entries", defaultConfig.KMeans.MinEntries)
	v.SetDefault("kmeans.distance", defaultConfig.KMeans.Distance)
	v.SetDefault("kmeans.n_runs", defaultConfig.KMeans.NRuns)
	v.SetDefault("kmeans.max_steps", defaultConfig.KMeans.MaxSteps)
	v.SetDefault("kmeans.tolerance", defaultConfig.KMeans.Tolerance)
	v.SetDefault("kmeans.init_low", defaultConfig.KMeans.InitLow)
	v.SetDefault("kmeans.init_high", defaultConfig.KMeans.InitHigh)
	v.SetDefault("kmeans.random_state", defaultConfig.KMeans.RandomState)
	// [svd]
	v.SetDefault("svd.n_factors", defaultConfig.SVD.NFactors)
	v.SetDefault("svd.lr", defaultConfig.SVD.Lr)
	v.SetDefault("svd.reg", defaultConfig.SVD.Reg)
	v.SetDefault("svd.min_delta", defaultConfig.SVD.MinDelta)
	v.SetDefault("svd.max_epochs", defaultConfig.SVD.MaxEpochs)
	v.SetDefault("svd.init_range", defaultConfig.SVD.InitRange)
	v.SetDefault("svd.loss", defaultConfig.SVD.Loss)
	v.SetDefault("svd.huber_delta", defaultConfig.SVD.HuberDelta)
	v.SetDefault("svd.random_state", defaultConfig.SVD.RandomState)
	// [item_cf]
	v.SetDefault("item_cf.min_correlation", defaultConfig.ItemCF.MinCorrelation)
	v.SetDefault("item_cf.n_neighbors", defaultConfig.ItemCF.NNeighbors)
	// [tune]
	v.SetDefault("tune.n_trials", defaultConfig.Tune.NTrials)
	v.SetDefault("tune.max_epochs", defaultConfig.Tune.MaxEpochs)
	v.SetDefault("tune.random_state", defaultConfig.Tune.RandomState)
}

// LoadConfig loads configuration from a TOML file. Environment variables such as
// TANKREC_SVD_LR override the file. An empty path loads defaults and environment only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix("TANKREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigType("toml")
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "read config %s", path)
		}
	}
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Trace(err)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &config, nil
}

// Validate checks value ranges. A violation is reported as a NotValid error.
func (config *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(config); err != nil {
		return errors.NewNotValid(err, "invalid config")
	}
	return nil
}

// LoadOptions converts the [data] section to dataset options.
func (config *DataConfig) LoadOptions() (dataset.LoadOptions, error) {
	transform, err := dataset.NewTransform(config.Transform, config.SigmoidScale)
	if err != nil {
		return dataset.LoadOptions{}, errors.Trace(err)
	}
	return dataset.LoadOptions{
		MinBattles:  config.MinBattles,
		TestRatio:   config.TestRatio,
		Transform:   transform,
		RandomState: config.RandomState,
	}, nil
}

// Encyclopedia returns a frozen encyclopedia of the configured tanks, or an open one if
// no tank is listed.
func (config *DataConfig) Encyclopedia() *dataset.Encyclopedia {
	if len(config.Tanks) == 0 {
		return dataset.NewEncyclopedia()
	}
	return dataset.NewFrozenEncyclopedia(config.Tanks...)
}

func (config *KMeansConfig) Params() model.Params {
	return model.Params{
		model.NClusters:   config.NClusters,
		model.MinEntries:  config.MinEntries,
		model.Distance:    config.Distance,
		model.InitLow:     config.InitLow,
		model.InitHigh:    config.InitHigh,
		model.RandomState: config.RandomState,
	}
}

func (config *KMeansConfig) FitConfig() *cluster.FitConfig {
	return cluster.NewFitConfig().
		SetNRuns(config.NRuns).
		SetMaxSteps(config.MaxSteps).
		SetTolerance(config.Tolerance)
}

func (config *SVDConfig) Params() model.Params {
	return model.Params{
		model.NFactors:    config.NFactors,
		model.Lr:          config.Lr,
		model.Reg:         config.Reg,
		model.InitRange:   config.InitRange,
		model.Loss:        config.Loss,
		model.HuberDelta:  config.HuberDelta,
		model.RandomState: config.RandomState,
	}
}

func (config *SVDConfig) FitConfig() *factor.FitConfig {
	return factor.NewFitConfig().
		SetMaxEpochs(config.MaxEpochs).
		SetMinDelta(config.MinDelta)
}

func (config *ItemCFConfig) Params() model.Params {
	return model.Params{
		model.MinCorrelation: config.MinCorrelation,
		model.NNeighbors:     config.NNeighbors,
	}
}
