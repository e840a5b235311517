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

// Package voice turns microphone audio into transcribed conversation turns,
// feeding the medical-intake session.
package voice

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// AudioData is a buffer of audio samples ready to be sent to a
// speech-to-text model.
type AudioData interface {
	Len() int

	// Bytes returns the raw sample bytes, little-endian.
	Bytes() []byte

	// PCM16 returns the samples as 16-bit signed PCM.
	PCM16() AudioDataPCM16

	// Int returns the samples widened to int, for WAV encoding.
	Int() []int
}

// AudioDataPCM16 is 16-bit signed PCM audio.
type AudioDataPCM16 []int16

func (d AudioDataPCM16) Len() int { return len(d) }

func (d AudioDataPCM16) Bytes() []byte {
	b := make([]byte, len(d)*2)
	for i, v := range d {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return b
}

func (d AudioDataPCM16) PCM16() AudioDataPCM16 { return d }

func (d AudioDataPCM16) Int() []int {
	result := make([]int, len(d))
	for i, v := range d {
		result[i] = int(v)
	}
	return result
}

// AudioDataFloat32 is float32 audio with samples in [-1, 1].
type AudioDataFloat32 []float32

func (d AudioDataFloat32) Len() int { return len(d) }

func (d AudioDataFloat32) Bytes() []byte {
	b := make([]byte, 4*len(d))
	for i, v := range d {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

func (d AudioDataFloat32) PCM16() AudioDataPCM16 {
	result := make(AudioDataPCM16, len(d))
	for i, v := range d {
		result[i] = int16(min(1, max(-1, v)) * 32767)
	}
	return result
}

func (d AudioDataFloat32) Int() []int {
	result := make([]int, len(d))
	for i, v := range d {
		result[i] = int(min(1, max(-1, v)) * 32767)
	}
	return result
}

// audioToBase64 concatenates the buffers as 16-bit PCM and base64-encodes
// the result.
func audioToBase64(audioData []AudioData) string {
	totalLen := 0
	for _, v := range audioData {
		totalLen += v.Len()
	}

	concatenated := make(AudioDataPCM16, 0, totalLen)
	for _, data := range audioData {
		concatenated = append(concatenated, data.PCM16()...)
	}

	return base64.StdEncoding.EncodeToString(concatenated.Bytes())
}
