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
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/param"
)

// DefaultSTTModel is the transcription model used when none is configured.
const DefaultSTTModel = "gpt-4o-transcribe"

// STTModelSettings provides settings for a speech-to-text model.
type STTModelSettings struct {
	// Optional instructions for the model to follow.
	Prompt param.Opt[string]

	// Optional language of the audio input.
	Language param.Opt[string]

	// The temperature of the model.
	Temperature param.Opt[float64]

	// Optional turn detection settings for the model when using streamed
	// audio input.
	TurnDetection map[string]any
}

// STTModel is implemented by a speech-to-text model that can convert audio
// input into text.
type STTModel interface {
	// ModelName returns the name of the STT model.
	ModelName() string

	// Transcribe accepts an audio input and produces a text transcription.
	Transcribe(ctx context.Context, params STTModelTranscribeParams) (string, error)

	// CreateSession creates a new transcription session, which you can push
	// audio to, and receive a stream of text transcriptions.
	CreateSession(ctx context.Context, params STTModelCreateSessionParams) (StreamedTranscriptionSession, error)
}

type STTModelTranscribeParams struct {
	// The audio input to transcribe.
	Input AudioInput
	// The settings to use for the transcription.
	Settings STTModelSettings
}

type STTModelCreateSessionParams struct {
	// The audio input to transcribe.
	Input StreamedAudioInput
	// The settings to use for the transcription.
	Settings STTModelSettings
}

// StreamedTranscriptionSession is a streamed transcription of audio input.
type StreamedTranscriptionSession interface {
	// TranscribeTurns yields a stream of text transcriptions.
	// Each transcription is a turn in the conversation.
	TranscribeTurns(ctx context.Context) StreamedTranscriptionSessionTranscribeTurns

	// Close the session.
	Close(ctx context.Context) error
}

type StreamedTranscriptionSessionTranscribeTurns interface {
	Seq() iter.Seq[string]
	Error() error
}

// OpenAISTTModel is a speech-to-text model backed by OpenAI.
type OpenAISTTModel struct {
	model  string
	client openai.Client
	apiKey string
}

type OpenAISTTModelParams struct {
	Client openai.Client

	// APIKey authenticates the realtime transcription websocket. The HTTP
	// client above carries its own key; websocket dialing needs it
	// explicitly.
	APIKey string

	// Optional model name. Defaults to DefaultSTTModel.
	Model string
}

// NewOpenAISTTModel creates a new OpenAI speech-to-text model.
func NewOpenAISTTModel(params OpenAISTTModelParams) *OpenAISTTModel {
	model := params.Model
	if model == "" {
		model = DefaultSTTModel
	}
	return &OpenAISTTModel{
		model:  model,
		client: params.Client,
		apiKey: params.APIKey,
	}
}

func (m *OpenAISTTModel) ModelName() string { return m.model }

// Transcribe uploads the audio as a WAV file and returns its transcription.
func (m *OpenAISTTModel) Transcribe(ctx context.Context, params STTModelTranscribeParams) (string, error) {
	audioFile, err := params.Input.ToAudioFile()
	if err != nil {
		return "", err
	}

	response, err := m.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model:       m.model,
		File:        openai.File(bytes.NewReader(audioFile.Content), audioFile.Filename, audioFile.ContentType),
		Prompt:      params.Settings.Prompt,
		Language:    params.Settings.Language,
		Temperature: params.Settings.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("audio transcription error: %w", err)
	}
	return response.Text, nil
}

func (m *OpenAISTTModel) CreateSession(ctx context.Context, params STTModelCreateSessionParams) (StreamedTranscriptionSession, error) {
	return NewTranscriptionSession(TranscriptionSessionParams{
		Input:    params.Input,
		APIKey:   m.apiKey,
		Model:    m.model,
		Settings: params.Settings,
	}), nil
}
