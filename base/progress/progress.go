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

package progress

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type spanKeyType string

var spanKeyName = spanKeyType(uuid.New().String())

type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
	StatusRunning  Status = "Running"
	StatusFailed   Status = "Failed"
)

// Tracer keeps track of root spans, e.g. one per training run.
type Tracer struct {
	name  string
	spans sync.Map
}

func NewTracer(name string) *Tracer {
	return &Tracer{name: name}
}

// Start creates a root span.
func (t *Tracer) Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	span := newSpan(name, total, nil)
	t.spans.Store(name, span)
	return context.WithValue(ctx, spanKeyName, span), span
}

// List returns the progress of every root span ordered by start time.
func (t *Tracer) List() []Progress {
	var progress []Progress
	t.spans.Range(func(key, value interface{}) bool {
		span := value.(*Span)
		p := span.Progress()
		p.Tracer = t.name
		progress = append(progress, p)
		return true
	})
	sort.Slice(progress, func(i, j int) bool {
		return progress[i].StartTime.Before(progress[j].StartTime)
	})
	return progress
}

type Span struct {
	mu       sync.Mutex
	name     string
	status   Status
	total    int
	count    int
	err      string
	start    time.Time
	finish   time.Time
	parent   *Span
	children map[string]*Span
}

func newSpan(name string, total int, parent *Span) *Span {
	return &Span{
		name:     name,
		status:   StatusRunning,
		total:    total,
		start:    time.Now(),
		parent:   parent,
		children: make(map[string]*Span),
	}
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count += n
}

func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusRunning {
		s.status = StatusComplete
		s.count = s.total
		s.finish = time.Now()
	}
}

// Fail marks the span and all of its ancestors as failed.
func (s *Span) Fail(err error) {
	for span := s; span != nil; span = span.parent {
		span.mu.Lock()
		span.status = StatusFailed
		span.err = err.Error()
		span.finish = time.Now()
		span.mu.Unlock()
	}
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Progress reports the span state. The running child, if any, refines the count so that
// a root span of 100 steps with a child at 2/8 reports 82/800.
func (s *Span) Progress() Progress {
	s.mu.Lock()
	p := Progress{
		Name:       s.name,
		Status:     s.status,
		Error:      s.err,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
	var running *Span
	for _, child := range s.children {
		child.mu.Lock()
		if child.status == StatusRunning {
			running = child
		}
		child.mu.Unlock()
	}
	s.mu.Unlock()
	if running != nil && p.Status == StatusRunning {
		c := running.Progress()
		if c.Total > 0 {
			p.Count = p.Count*c.Total + c.Count
			p.Total = p.Total * c.Total
		}
	}
	return p
}

// Start creates a child span of the span carried by ctx. Without a parent span the
// returned span is detached and the returned context is ctx itself.
func Start(ctx context.Context, name string, total int) (context.Context, *Span) {
	if ctx == nil {
		return nil, newSpan(name, total, nil)
	}
	parent, ok := ctx.Value(spanKeyName).(*Span)
	if !ok {
		return ctx, newSpan(name, total, nil)
	}
	child := newSpan(name, total, parent)
	parent.mu.Lock()
	parent.children[name] = child
	parent.mu.Unlock()
	return context.WithValue(ctx, spanKeyName, child), child
}

// Fail marks the span carried by ctx as failed.
func Fail(ctx context.Context, err error) {
	if ctx == nil {
		return
	}
	if span, ok := ctx.Value(spanKeyName).(*Span); ok {
		span.Fail(err)
	}
}

type Progress struct {
	Tracer     string
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}
