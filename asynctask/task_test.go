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

package asynctask

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	task := CreateTask(t.Context(), func(context.Context) (int, error) {
		return 42, nil
	})

	result := task.Await()
	require.NoError(t, result.Error)
	assert.Equal(t, 42, result.Value)
	assert.True(t, task.IsDone())
	assert.False(t, task.IsCanceled())
}

func TestTask_Cancel(t *testing.T) {
	started := make(chan struct{})
	task := CreateTaskNoValue(t.Context(), func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})

	<-started
	task.Cancel()

	result := task.Await()
	assert.True(t, task.IsCanceled())
	assert.ErrorIs(t, result.Error, TaskCanceledErr())
}

func TestTask_PanicIsReported(t *testing.T) {
	task := CreateTaskNoValue(t.Context(), func(context.Context) error {
		panic("boom")
	})

	result := task.Await()
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "boom")
}

func TestTask_ErrorIsReported(t *testing.T) {
	wantErr := errors.New("failed")
	task := CreateTaskNoValue(t.Context(), func(context.Context) error {
		return wantErr
	})

	assert.ErrorIs(t, task.Await().Error, wantErr)
}
