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
	"sort"

	"github.com/juju/errors"
)

// Entry is a (column, value) pair stored in a SparseMatrix.
type Entry struct {
	Column int
	Value  float64
}

// SparseMatrix is a row-oriented sparse matrix in compressed sparse row layout. All entries
// live in one flat arena in row-major order and offsets[i]..offsets[i+1] bounds the entries
// of row i.
//
// A matrix is built by calling OpenRow before each row, Append for each entry of that row
// in strictly increasing column order, and OpenRow one final time to seal the last row.
// The sealing offset never forms a row: RowCount only counts rows that are closed by a
// following offset, so consumers iterate 0..RowCount() directly.
type SparseMatrix struct {
	entries []Entry
	offsets []int
}

// NewSparseMatrix creates an empty SparseMatrix.
func NewSparseMatrix() *SparseMatrix {
	return &SparseMatrix{}
}

// NewSparseMatrixWithCapacity creates an empty SparseMatrix with preallocated storage.
func NewSparseMatrixWithCapacity(rows, entries int) *SparseMatrix {
	return &SparseMatrix{
		entries: make([]Entry, 0, entries),
		offsets: make([]int, 0, rows+1),
	}
}

// OpenRow closes the current row (if any) and begins a new one. Calling OpenRow twice in a
// row produces a legal empty row.
func (m *SparseMatrix) OpenRow() {
	m.offsets = append(m.offsets, len(m.entries))
}

// Append adds an entry to the currently open row. Columns within a row must be strictly
// increasing; the caller is responsible for the ordering.
func (m *SparseMatrix) Append(column int, value float64) error {
	if len(m.offsets) == 0 {
		return errors.Annotatef(ErrIllFormedMatrix, "append (%d, %v) before any row is opened", column, value)
	}
	m.entries = append(m.entries, Entry{Column: column, Value: value})
	return nil
}

// RowCount returns the number of closed rows.
func (m *SparseMatrix) RowCount() int {
	if len(m.offsets) == 0 {
		return 0
	}
	return len(m.offsets) - 1
}

// EntryCount returns the number of entries appended so far.
func (m *SparseMatrix) EntryCount() int {
	return len(m.entries)
}

// ColumnCount returns the largest column index plus one.
func (m *SparseMatrix) ColumnCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Column+1 > n {
			n = e.Column + 1
		}
	}
	return n
}

// Sealed returns true if every appended entry belongs to a closed row. A matrix without
// entries is sealed.
func (m *SparseMatrix) Sealed() bool {
	if len(m.offsets) == 0 {
		return len(m.entries) == 0
	}
	return m.offsets[len(m.offsets)-1] == len(m.entries)
}

func (m *SparseMatrix) bounds(i int) (int, int, error) {
	if i < 0 || i >= m.RowCount() {
		return 0, 0, errors.Annotatef(ErrInvalidIndex, "row %d out of range [0, %d)", i, m.RowCount())
	}
	return m.offsets[i], m.offsets[i+1], nil
}

// Row returns a read-only view of the i-th row.
func (m *SparseMatrix) Row(i int) (Row, error) {
	begin, end, err := m.bounds(i)
	if err != nil {
		return Row{}, err
	}
	return Row{entries: m.entries[begin:end:end]}, nil
}

// MutableRow returns a view of the i-th row whose values can be overwritten in place.
func (m *SparseMatrix) MutableRow(i int) (MutableRow, error) {
	row, err := m.Row(i)
	if err != nil {
		return MutableRow{}, err
	}
	return MutableRow{Row: row}, nil
}

// RowLen returns the number of entries in the i-th row, or 0 if i is out of range.
func (m *SparseMatrix) RowLen(i int) int {
	begin, end, err := m.bounds(i)
	if err != nil {
		return 0
	}
	return end - begin
}

// ForEach iterates over every entry of every closed row in row-major order.
func (m *SparseMatrix) ForEach(f func(row, column int, value float64)) {
	for i := 0; i < m.RowCount(); i++ {
		for _, e := range m.entries[m.offsets[i]:m.offsets[i+1]] {
			f(i, e.Column, e.Value)
		}
	}
}

// Clone returns a deep copy of the matrix.
func (m *SparseMatrix) Clone() *SparseMatrix {
	return &SparseMatrix{
		entries: append([]Entry(nil), m.entries...),
		offsets: append([]int(nil), m.offsets...),
	}
}

type triple struct {
	row    int
	column int
	value  float64
}

// Transpose returns a new sealed matrix with rows and columns swapped. Row j of the result
// holds column j of the receiver; columns without entries become empty rows so that indices
// are preserved. The receiver must be sealed.
func (m *SparseMatrix) Transpose() (*SparseMatrix, error) {
	if !m.Sealed() {
		return nil, errors.Annotatef(ErrIllFormedMatrix, "transpose with %d entries in an open row", m.EntryCount()-m.offsets[len(m.offsets)-1])
	}
	triples := make([]triple, 0, m.EntryCount())
	m.ForEach(func(row, column int, value float64) {
		triples = append(triples, triple{row: row, column: column, value: value})
	})
	sort.SliceStable(triples, func(i, j int) bool {
		if triples[i].column != triples[j].column {
			return triples[i].column < triples[j].column
		}
		return triples[i].row < triples[j].row
	})
	t := NewSparseMatrixWithCapacity(m.ColumnCount(), len(triples))
	current := -1
	for _, tr := range triples {
		for current < tr.column {
			t.OpenRow()
			current++
		}
		t.entries = append(t.entries, Entry{Column: tr.row, Value: tr.value})
	}
	t.OpenRow()
	return t, nil
}

// Row is a read-only view of a matrix row.
type Row struct {
	entries []Entry
}

// NewRow creates a standalone row view over entries sorted by column.
func NewRow(entries []Entry) Row {
	return Row{entries: entries}
}

// Len returns the number of entries.
func (r Row) Len() int {
	return len(r.entries)
}

// At returns the i-th entry. It panics if i is out of range.
func (r Row) At(i int) Entry {
	return r.entries[i]
}

// Entries returns the entries of the row. The slice must not be modified.
func (r Row) Entries() []Entry {
	return r.entries
}

// Get finds the value of a column by binary search.
func (r Row) Get(column int) (float64, bool) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Column >= column
	})
	if i < len(r.entries) && r.entries[i].Column == column {
		return r.entries[i].Value, true
	}
	return 0, false
}

// MutableRow is a row view that allows overwriting values. Columns are fixed.
type MutableRow struct {
	Row
}

// SetValue overwrites the value of the i-th entry.
func (r MutableRow) SetValue(i int, value float64) error {
	if i < 0 || i >= len(r.entries) {
		return errors.Annotatef(ErrInvalidIndex, "entry %d out of range [0, %d)", i, len(r.entries))
	}
	r.entries[i].Value = value
	return nil
}

// AddValue adds delta to the value of the i-th entry.
func (r MutableRow) AddValue(i int, delta float64) error {
	if i < 0 || i >= len(r.entries) {
		return errors.Annotatef(ErrInvalidIndex, "entry %d out of range [0, %d)", i, len(r.entries))
	}
	r.entries[i].Value += delta
	return nil
}
