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
	"fmt"
	"io"
)

// WriteSeekerBuffer is an in-memory io.WriteSeeker. WAV encoders need to seek
// back and patch header sizes after writing the samples, which bytes.Buffer
// cannot do.
type WriteSeekerBuffer struct {
	data []byte
	pos  int64
}

// Bytes returns the written bytes. The slice is valid until the next Write.
func (b *WriteSeekerBuffer) Bytes() []byte { return b.data }

func (b *WriteSeekerBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return len(p), nil
}

func (b *WriteSeekerBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = b.pos + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, fmt.Errorf("WriteSeekerBuffer.Seek: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("WriteSeekerBuffer.Seek: negative position %d", pos)
	}
	b.pos = pos
	return pos, nil
}
