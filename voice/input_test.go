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

package voice

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioInput_ToAudioFile(t *testing.T) {
	input := AudioInput{Buffer: AudioDataPCM16{0, 1, -1, 100, -100}}

	file, err := input.ToAudioFile()
	require.NoError(t, err)
	assert.Equal(t, "audio.wav", file.Filename)
	assert.Equal(t, "audio/wav", file.ContentType)

	decoder := wav.NewDecoder(bytes.NewReader(file.Content))
	decoded, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, -1, 100, -100}, decoded.Data)
	assert.Equal(t, DefaultAudioSampleRate, decoded.Format.SampleRate)
	assert.Equal(t, DefaultAudioChannels, decoded.Format.NumChannels)
}

func TestAudioInput_ToAudioFileCustomFormat(t *testing.T) {
	input := AudioInput{
		Buffer:     AudioDataPCM16{1, 2, 3, 4},
		SampleRate: 16000,
		Channels:   2,
	}

	file, err := input.ToAudioFile()
	require.NoError(t, err)

	decoder := wav.NewDecoder(bytes.NewReader(file.Content))
	decoded, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, 16000, decoded.Format.SampleRate)
	assert.Equal(t, 2, decoded.Format.NumChannels)
}

func TestAudioInput_ToBase64(t *testing.T) {
	input := AudioInput{Buffer: AudioDataPCM16{1, 2}}
	decoded, err := base64.StdEncoding.DecodeString(input.ToBase64())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, decoded)
}

func TestStreamedAudioInput(t *testing.T) {
	input := NewStreamedAudioInput()
	input.AddAudio(AudioDataPCM16{1, 2})
	input.AddAudio(AudioDataPCM16{3})

	assert.Equal(t, 2, input.Queue.Len())
	first := input.Queue.Get()
	assert.Equal(t, AudioDataPCM16{1, 2}, first)
}
