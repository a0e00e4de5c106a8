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
	"bytes"
	"io"
	"math"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/tankopoisk/tankrec/base"
)

func newFeed(accounts ...*Account) *bytes.Reader {
	var feed []byte
	for _, account := range accounts {
		feed = AppendAccount(feed, account)
	}
	return bytes.NewReader(feed)
}

func rowEntries(t *testing.T, m *base.SparseMatrix, i int) []base.Entry {
	row, err := m.Row(i)
	assert.NoError(t, err)
	return row.Entries()
}

func TestLoad(t *testing.T) {
	feed := newFeed(
		&Account{ID: 100, Tanks: []Tank{
			{ID: 30, Battles: 20, Wins: 10},
			{ID: 10, Battles: 5, Wins: 5}, // too few battles
			{ID: 20, Battles: 40, Wins: 30},
			{ID: 40, Battles: 10, Wins: 11}, // bogus wins
		}},
		&Account{ID: 200, Tanks: nil},
		&Account{ID: 300, Tanks: []Tank{
			{ID: 20, Battles: 10, Wins: 0},
			{ID: 30, Battles: 10, Wins: 10},
		}},
	)
	encyclopedia := NewEncyclopedia()
	opts := NewLoadOptions()
	opts.TestRatio = 0
	data, err := Load(feed, encyclopedia, opts)
	assert.NoError(t, err)
	assert.Equal(t, []uint64{100, 200, 300}, data.AccountIDs)
	assert.Equal(t, 1, data.SkippedBattles)
	assert.Equal(t, 1, data.SkippedWins)
	assert.Zero(t, data.SkippedUnknown)
	assert.True(t, data.Train.Sealed())
	assert.True(t, data.Test.Sealed())
	assert.Equal(t, 3, data.Train.RowCount())
	assert.Equal(t, 3, data.Test.RowCount())
	assert.Zero(t, data.Test.EntryCount())

	// tank 30 is column 0 and tank 20 is column 1
	assert.Equal(t, []base.Entry{{Column: 0, Value: 50}, {Column: 1, Value: 75}}, rowEntries(t, data.Train, 0))
	assert.Empty(t, rowEntries(t, data.Train, 1))
	assert.Equal(t, []base.Entry{{Column: 0, Value: 100}, {Column: 1, Value: 0}}, rowEntries(t, data.Train, 2))
}

func TestLoad_Split(t *testing.T) {
	tanks := make([]Tank, 100)
	for i := range tanks {
		tanks[i] = Tank{ID: uint64(i), Battles: 100, Wins: uint64(i)}
	}
	accounts := make([]*Account, 50)
	for i := range accounts {
		accounts[i] = &Account{ID: uint64(i), Tanks: tanks}
	}
	opts := NewLoadOptions()
	opts.TestRatio = 4
	data, err := Load(newFeed(accounts...), NewEncyclopedia(), opts)
	assert.NoError(t, err)
	assert.Equal(t, 5000, data.Train.EntryCount()+data.Test.EntryCount())
	assert.InDelta(t, 1250, data.Test.EntryCount(), 150)
	assert.Equal(t, 50, data.Train.RowCount())
	assert.Equal(t, 50, data.Test.RowCount())
	// train and test never share a cell
	data.Test.ForEach(func(row, column int, _ float64) {
		train, err := data.Train.Row(row)
		assert.NoError(t, err)
		_, ok := train.Get(column)
		assert.False(t, ok)
	})

	// same seed, same split
	again, err := Load(newFeed(accounts...), NewEncyclopedia(), opts)
	assert.NoError(t, err)
	assert.Equal(t, data.Test, again.Test)

	// all to test
	opts.TestRatio = 1
	data, err = Load(newFeed(accounts...), NewEncyclopedia(), opts)
	assert.NoError(t, err)
	assert.Zero(t, data.Train.EntryCount())
	assert.Equal(t, 5000, data.Test.EntryCount())
}

func TestLoad_Duplicates(t *testing.T) {
	feed := newFeed(&Account{ID: 1, Tanks: []Tank{
		{ID: 7, Battles: 10, Wins: 1},
		{ID: 8, Battles: 10, Wins: 2},
		{ID: 7, Battles: 10, Wins: 3},
	}})
	opts := NewLoadOptions()
	opts.TestRatio = 0
	data, err := Load(feed, NewEncyclopedia(), opts)
	assert.NoError(t, err)
	assert.Equal(t, []base.Entry{{Column: 0, Value: 30}, {Column: 1, Value: 20}}, rowEntries(t, data.Train, 0))
}

func TestLoad_Frozen(t *testing.T) {
	feed := newFeed(&Account{ID: 1, Tanks: []Tank{
		{ID: 7, Battles: 10, Wins: 1},
		{ID: 9, Battles: 10, Wins: 2},
		{ID: 8, Battles: 10, Wins: 3},
	}})
	encyclopedia := NewFrozenEncyclopedia(8, 7)
	opts := NewLoadOptions()
	opts.TestRatio = 0
	opts.Transform = Sigmoid{Scale: 4}
	data, err := Load(feed, encyclopedia, opts)
	assert.NoError(t, err)
	assert.Equal(t, 1, data.SkippedUnknown)
	assert.Equal(t, []uint64{9}, encyclopedia.Unknown())
	entries := rowEntries(t, data.Train, 0)
	assert.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Column)
	assert.InDelta(t, Sigmoid{Scale: 4}.Forward(30), entries[0].Value, 1e-9)
	assert.Equal(t, 1, entries[1].Column)
}

func TestLoad_Truncated(t *testing.T) {
	feed := AppendAccount(nil, &Account{ID: 1, Tanks: []Tank{{ID: 7, Battles: 10, Wins: 1}}})
	_, err := Load(bytes.NewReader(feed[:len(feed)-1]), NewEncyclopedia(), NewLoadOptions())
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestTransform(t *testing.T) {
	identity, err := NewTransform("identity", 0)
	assert.NoError(t, err)
	assert.Equal(t, 42.0, identity.Forward(42))
	assert.Equal(t, 42.0, identity.Inverse(42))

	sigmoid, err := NewTransform("sigmoid", 4)
	assert.NoError(t, err)
	assert.InDelta(t, 50.0, sigmoid.Forward(50), 1e-9)
	assert.Greater(t, sigmoid.Forward(60), 90.0)
	assert.Less(t, sigmoid.Forward(40), 10.0)
	for _, winRate := range []float64{20, 45, 50, 55, 80} {
		assert.InDelta(t, winRate, sigmoid.Inverse(sigmoid.Forward(winRate)), 1e-6)
	}
	assert.True(t, math.IsInf(sigmoid.Inverse(100), 1))

	_, err = NewTransform("sigmoid", 0)
	assert.True(t, errors.Is(err, errors.NotValid))
	_, err = NewTransform("log", 1)
	assert.True(t, errors.Is(err, errors.NotSupported))
}
