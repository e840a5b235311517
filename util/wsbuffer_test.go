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

package util

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSeekerBuffer(t *testing.T) {
	t.Run("seek back and patch", func(t *testing.T) {
		var b WriteSeekerBuffer
		_, err := b.Write([]byte("size:????"))
		require.NoError(t, err)

		pos, err := b.Seek(5, io.SeekStart)
		require.NoError(t, err)
		assert.Equal(t, int64(5), pos)

		_, err = b.Write([]byte("1234"))
		require.NoError(t, err)
		assert.Equal(t, []byte("size:1234"), b.Bytes())
	})

	t.Run("write past end grows the buffer", func(t *testing.T) {
		var b WriteSeekerBuffer
		_, err := b.Seek(3, io.SeekStart)
		require.NoError(t, err)
		_, err = b.Write([]byte("x"))
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 'x'}, b.Bytes())
	})

	t.Run("seek errors", func(t *testing.T) {
		var b WriteSeekerBuffer
		_, err := b.Seek(-1, io.SeekStart)
		assert.Error(t, err)
		_, err = b.Seek(0, 42)
		assert.Error(t, err)
	})
}
