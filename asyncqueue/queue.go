// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package asyncqueue provides an unbounded blocking FIFO queue used to pass
// values between producer and consumer goroutines.
package asyncqueue

import (
	"context"
	"sync"
	"time"
)

type Queue[T any] struct {
	mu    sync.Mutex
	items []T

	// wakeup is closed and replaced on every Put, waking all waiters.
	wakeup chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		wakeup: make(chan struct{}),
	}
}

func (q *Queue[T]) Put(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	close(q.wakeup)
	q.wakeup = make(chan struct{})
	q.mu.Unlock()
}

// Get removes and returns the oldest value, blocking until one is available.
func (q *Queue[T]) Get() T {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.pop()
			q.mu.Unlock()
			return v
		}
		wakeup := q.wakeup
		q.mu.Unlock()
		<-wakeup
	}
}

// GetTimeout is like Get, but gives up after the given timeout, reporting
// false in that case.
func (q *Queue[T]) GetTimeout(timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.pop()
			q.mu.Unlock()
			return v, true
		}
		wakeup := q.wakeup
		q.mu.Unlock()

		select {
		case <-wakeup:
		case <-timer.C:
			var zero T
			return zero, false
		}
	}
}

// GetContext is like Get, but gives up when the context is done, reporting
// the context error in that case.
func (q *Queue[T]) GetContext(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.pop()
			q.mu.Unlock()
			return v, nil
		}
		wakeup := q.wakeup
		q.mu.Unlock()

		select {
		case <-wakeup:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// GetNoWait removes and returns the oldest value without blocking, reporting
// false if the queue is empty.
func (q *Queue[T]) GetNoWait() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.pop(), true
}

func (q *Queue[T]) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// pop must be called with the lock held and a non-empty queue.
func (q *Queue[T]) pop() T {
	v := q.items[0]
	copy(q.items, q.items[1:])
	clear(q.items[len(q.items)-1:]) // helps GC
	q.items = q.items[:len(q.items)-1]
	return v
}
