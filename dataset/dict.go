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
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"modernc.org/sortutil"
)

// Encyclopedia maps tank ids to dense matrix columns. An open encyclopedia assigns columns
// in order of first sight; a frozen one only knows the tanks it was created with and
// remembers the unknown ids it was asked about.
type Encyclopedia struct {
	columns map[uint64]int
	ids     []uint64
	freq    []int
	frozen  bool
	unknown mapset.Set[uint64]
}

// NewEncyclopedia creates an open encyclopedia.
func NewEncyclopedia() *Encyclopedia {
	return &Encyclopedia{
		columns: make(map[uint64]int),
		unknown: mapset.NewThreadUnsafeSet[uint64](),
	}
}

// NewFrozenEncyclopedia creates an encyclopedia that only knows the given tanks. Columns
// follow the order of ids; duplicates are ignored.
func NewFrozenEncyclopedia(ids ...uint64) *Encyclopedia {
	e := NewEncyclopedia()
	for _, id := range ids {
		e.add(id)
	}
	e.frozen = true
	return e
}

func (e *Encyclopedia) add(id uint64) int {
	if column, ok := e.columns[id]; ok {
		return column
	}
	column := len(e.ids)
	e.columns[id] = column
	e.ids = append(e.ids, id)
	e.freq = append(e.freq, 0)
	return column
}

// Len returns the number of known tanks.
func (e *Encyclopedia) Len() int {
	return len(e.ids)
}

// Frozen returns true if no new tanks can be added.
func (e *Encyclopedia) Frozen() bool {
	return e.frozen
}

// Column returns the column of a tank and counts the lookup. In open mode unknown tanks
// get the next column.
func (e *Encyclopedia) Column(id uint64) (int, bool) {
	column, ok := e.columns[id]
	if !ok {
		if e.frozen {
			e.unknown.Add(id)
			return 0, false
		}
		column = e.add(id)
	}
	e.freq[column]++
	return column, true
}

// Lookup returns the column of a tank without counting or adding it.
func (e *Encyclopedia) Lookup(id uint64) (int, bool) {
	column, ok := e.columns[id]
	return column, ok
}

// ID returns the tank id of a column.
func (e *Encyclopedia) ID(column int) (uint64, bool) {
	if column < 0 || column >= len(e.ids) {
		return 0, false
	}
	return e.ids[column], true
}

// Freq returns the number of times a column was looked up.
func (e *Encyclopedia) Freq(column int) int {
	if column < 0 || column >= len(e.freq) {
		return 0
	}
	return e.freq[column]
}

// Unknown returns tank ids missing from a frozen encyclopedia in ascending order.
func (e *Encyclopedia) Unknown() []uint64 {
	ids := e.unknown.ToSlice()
	sort.Sort(sortutil.Uint64Slice(ids))
	return ids
}
