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
	"io"
	"sort"
	"time"

	"github.com/juju/errors"
	"github.com/tankopoisk/tankrec/base"
	"github.com/tankopoisk/tankrec/base/log"
	"go.uber.org/zap"
)

const logInterval = 100000

type LoadOptions struct {
	// MinBattles drops tanks with fewer battles.
	MinBattles uint64
	// TestRatio sends one rating in TestRatio to the test set. Zero disables the test set.
	TestRatio   int
	Transform   Transform
	RandomState int64
}

func NewLoadOptions() LoadOptions {
	return LoadOptions{
		MinBattles: 10,
		TestRatio:  20,
		Transform:  Identity{},
	}
}

// Dataset is a train/test split of account ratings. Row i of both matrices is the i-th
// account of the feed and columns come from the encyclopedia.
type Dataset struct {
	Train      *base.SparseMatrix
	Test       *base.SparseMatrix
	AccountIDs []uint64
	// Skipped counts tanks dropped by filters.
	SkippedBattles int
	SkippedWins    int
	SkippedUnknown int
}

// Load reads a statistics feed into train and test matrices. Ratings are
// Transform(100 * wins / battles).
func Load(r io.Reader, encyclopedia *Encyclopedia, opts LoadOptions) (*Dataset, error) {
	if opts.Transform == nil {
		opts.Transform = Identity{}
	}
	start := time.Now()
	rng := base.NewRandomGenerator(opts.RandomState)
	reader := NewStatsReader(r)
	data := &Dataset{
		Train: base.NewSparseMatrix(),
		Test:  base.NewSparseMatrix(),
	}
	var trainRow, testRow []base.Entry
	for {
		account, err := reader.ReadAccount()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Annotatef(err, "read account %d", len(data.AccountIDs))
		}
		trainRow, testRow = trainRow[:0], testRow[:0]
		for _, tank := range account.Tanks {
			if tank.Battles < opts.MinBattles || tank.Battles == 0 {
				data.SkippedBattles++
				continue
			}
			if tank.Wins > tank.Battles {
				data.SkippedWins++
				continue
			}
			column, ok := encyclopedia.Column(tank.ID)
			if !ok {
				data.SkippedUnknown++
				continue
			}
			entry := base.Entry{
				Column: column,
				Value:  opts.Transform.Forward(100 * float64(tank.Wins) / float64(tank.Battles)),
			}
			if rng.OneIn(opts.TestRatio) {
				testRow = append(testRow, entry)
			} else {
				trainRow = append(trainRow, entry)
			}
		}
		if err = appendRow(data.Train, trainRow); err != nil {
			return nil, errors.Trace(err)
		}
		if err = appendRow(data.Test, testRow); err != nil {
			return nil, errors.Trace(err)
		}
		data.AccountIDs = append(data.AccountIDs, account.ID)
		if len(data.AccountIDs)%logInterval == 0 {
			log.Logger().Info("load accounts",
				zap.Int("n_accounts", len(data.AccountIDs)),
				zap.Float64("accounts_per_second", float64(len(data.AccountIDs))/time.Since(start).Seconds()),
				zap.Int("train_set_size", data.Train.EntryCount()),
				zap.Int("test_set_size", data.Test.EntryCount()))
		}
	}
	data.Train.OpenRow()
	data.Test.OpenRow()
	log.Logger().Info("load accounts complete",
		zap.Int("n_accounts", len(data.AccountIDs)),
		zap.Int("n_tanks", encyclopedia.Len()),
		zap.Int("train_set_size", data.Train.EntryCount()),
		zap.Int("test_set_size", data.Test.EntryCount()),
		zap.Int("skipped_battles", data.SkippedBattles),
		zap.Int("skipped_wins", data.SkippedWins),
		zap.Int("skipped_unknown", data.SkippedUnknown),
		zap.String("load_time", time.Since(start).String()))
	if unknown := encyclopedia.Unknown(); len(unknown) > 0 {
		log.Logger().Warn("unknown tanks", zap.Uint64s("tank_ids", unknown))
	}
	return data, nil
}

// appendRow sorts entries by column and appends them as a new row. A repeated column
// keeps its last value.
func appendRow(m *base.SparseMatrix, entries []base.Entry) error {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Column < entries[j].Column
	})
	m.OpenRow()
	for i, e := range entries {
		if i+1 < len(entries) && entries[i+1].Column == e.Column {
			continue
		}
		if err := m.Append(e.Column, e.Value); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}
