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

package asyncqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueue(t *testing.T) {
	q := New[int]()

	assert.True(t, q.IsEmpty())
	assert.Equal(t, 0, q.Len())

	q.Put(1)
	assert.False(t, q.IsEmpty())

	q.Put(2)
	q.Put(3)
	assert.Equal(t, 3, q.Len())

	assert.Equal(t, 1, q.Get())
	assert.Equal(t, 2, q.Get())
	assert.Equal(t, 3, q.Get())
	assert.True(t, q.IsEmpty())

	q.Put(4)
	q.Put(5)

	v, ok := q.GetNoWait()
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	v, ok = q.GetNoWait()
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	_, ok = q.GetNoWait()
	assert.False(t, ok)
}

func TestQueue_GetTimeout(t *testing.T) {
	q := New[string]()

	_, ok := q.GetTimeout(10 * time.Millisecond)
	assert.False(t, ok)

	q.Put("a")
	v, ok := q.GetTimeout(10 * time.Millisecond)
	assert.True(t, ok)
	assert.Equal(t, "a", v)
}

func TestQueue_GetContext(t *testing.T) {
	q := New[string]()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	_, err := q.GetContext(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	q.Put("a")
	v, err := q.GetContext(t.Context())
	assert.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestQueue_GetBlocksUntilPut(t *testing.T) {
	q := New[int]()

	done := make(chan int)
	go func() {
		done <- q.Get()
	}()

	q.Put(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Get did not return after Put")
	}
}
