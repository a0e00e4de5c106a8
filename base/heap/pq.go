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

package heap

import (
	"container/heap"
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/constraints"
)

type Elem[E any, W constraints.Ordered] struct {
	Value  E
	Weight W
}

type _heap[T any, W constraints.Ordered] struct {
	elems []Elem[T, W]
	desc  bool
}

func (e *_heap[T, W]) Len() int {
	return len(e.elems)
}

func (e *_heap[T, W]) Less(i, j int) bool {
	if e.desc {
		return e.elems[i].Weight > e.elems[j].Weight
	}
	return e.elems[i].Weight < e.elems[j].Weight
}

func (e *_heap[T, W]) Swap(i, j int) {
	e.elems[i], e.elems[j] = e.elems[j], e.elems[i]
}

func (e *_heap[T, W]) Push(x interface{}) {
	e.elems = append(e.elems, x.(Elem[T, W]))
}

func (e *_heap[T, W]) Pop() interface{} {
	old := e.elems
	item := old[len(old)-1]
	e.elems = old[:len(old)-1]
	return item
}

// PriorityQueue is a queue of columns ordered by weight. The lowest weight comes first
// unless the queue is descending.
type PriorityQueue struct {
	_heap[int, float64]
	lookup mapset.Set[int]
}

func NewPriorityQueue(desc bool) *PriorityQueue {
	return &PriorityQueue{
		_heap:  _heap[int, float64]{desc: desc},
		lookup: mapset.NewThreadUnsafeSet[int](),
	}
}

// Push inserts a column. NaN weights and duplicate columns are ignored.
func (p *PriorityQueue) Push(v int, weight float64) {
	if math.IsNaN(weight) || p.lookup.Contains(v) {
		return
	}
	heap.Push(&p._heap, Elem[int, float64]{Value: v, Weight: weight})
	p.lookup.Add(v)
}

// Pop removes the first element and returns it.
func (p *PriorityQueue) Pop() (int, float64) {
	item := heap.Pop(&p._heap).(Elem[int, float64])
	p.lookup.Remove(item.Value)
	return item.Value, item.Weight
}

func (p *PriorityQueue) Peek() (int, float64) {
	return p.elems[0].Value, p.elems[0].Weight
}

// Elems returns the elements in heap order.
func (p *PriorityQueue) Elems() []Elem[int, float64] {
	return p.elems
}

// TopK keeps the k heaviest columns pushed into it.
type TopK struct {
	pq *PriorityQueue
	k  int
}

func NewTopK(k int) *TopK {
	return &TopK{pq: NewPriorityQueue(false), k: k}
}

func (t *TopK) Push(v int, weight float64) {
	if t.k <= 0 {
		return
	}
	if t.pq.Len() == t.k {
		if _, lowest := t.pq.Peek(); weight <= lowest {
			return
		}
		t.pq.Pop()
	}
	t.pq.Push(v, weight)
}

func (t *TopK) Len() int {
	return t.pq.Len()
}

// Elems returns the kept columns in no particular order.
func (t *TopK) Elems() []Elem[int, float64] {
	return t.pq.Elems()
}
