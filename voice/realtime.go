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
	"cmp"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/Mygentic-AI/booking-optimizer-backend/asyncqueue"
	"github.com/Mygentic-AI/booking-optimizer-backend/asynctask"
	"github.com/Mygentic-AI/booking-optimizer-backend/util"
	"github.com/gorilla/websocket"
)

const (
	// EventInactivityTimeout is the timeout for inactivity in event processing.
	EventInactivityTimeout = 1000 * time.Second

	// SessionCreationTimeout is the timeout waiting for the session.created event.
	SessionCreationTimeout = 10 * time.Second

	// SessionUpdateTimeout is the timeout waiting for the session.updated event.
	SessionUpdateTimeout = 10 * time.Second
)

var defaultTurnDetection = map[string]any{"type": "semantic_vad"}

type errorSentinel struct{ err error }
type sessionCompleteSentinel struct{}
type websocketDoneSentinel struct{}

type timeoutError struct{ error }

// waitForEvent waits for an event from eventQueue whose type is in
// expectedTypes, within the specified timeout.
func waitForEvent(
	eventQueue *asyncqueue.Queue[map[string]any],
	expectedTypes []string,
	timeout time.Duration,
) (map[string]any, error) {
	startTime := time.Now()
	for {
		remaining := timeout - time.Since(startTime)
		if remaining <= 0 {
			return nil, timeoutError{error: fmt.Errorf("timeout waiting for event(s): %v", expectedTypes)}
		}
		event, ok := eventQueue.GetTimeout(remaining)
		if !ok {
			continue
		}
		eventType, _ := event["type"].(string)
		if slices.Contains(expectedTypes, eventType) {
			return event, nil
		}
		if eventType == "error" {
			return nil, fmt.Errorf("error event: %v", event["error"])
		}
	}
}

// TranscriptionSession is a realtime transcription session over a websocket.
// Audio pushed to the input stream is forwarded to the transcription service;
// completed conversation turns come back as text.
type TranscriptionSession struct {
	websocketURL  string
	connected     bool
	apiKey        string
	model         string
	settings      STTModelSettings
	turnDetection map[string]any

	inputQueue  *asyncqueue.Queue[AudioData]
	outputQueue *asyncqueue.Queue[transcriptionSessionOutputQueueValue]
	websocket   *websocket.Conn
	eventQueue  *asyncqueue.Queue[transcriptionSessionEventQueueValue]
	stateQueue  *asyncqueue.Queue[map[string]any]

	listenerTask      *asynctask.TaskNoValue
	processEventsTask *asynctask.TaskNoValue
	streamAudioTask   *asynctask.TaskNoValue
	connectionTask    *asynctask.TaskNoValue
	storedError       error
}

type transcriptionSessionOutputQueueValue interface {
	isTranscriptionSessionOutputQueueValue()
}

type transcriptionSessionOutputQueueValueString string

func (transcriptionSessionOutputQueueValueString) isTranscriptionSessionOutputQueueValue() {}
func (errorSentinel) isTranscriptionSessionOutputQueueValue()                              {}
func (sessionCompleteSentinel) isTranscriptionSessionOutputQueueValue()                    {}

type transcriptionSessionEventQueueValue interface {
	isTranscriptionSessionEventQueueValue()
}

type transcriptionSessionEventQueueValueMap map[string]any

func (transcriptionSessionEventQueueValueMap) isTranscriptionSessionEventQueueValue() {}
func (websocketDoneSentinel) isTranscriptionSessionEventQueueValue()                  {}

type TranscriptionSessionParams struct {
	Input    StreamedAudioInput
	APIKey   string
	Model    string
	Settings STTModelSettings

	// Optional, defaults to DefaultTranscriptionSessionWebsocketURL
	WebsocketURL string
}

const DefaultTranscriptionSessionWebsocketURL = "wss://api.openai.com/v1/realtime?intent=transcription"

func NewTranscriptionSession(params TranscriptionSessionParams) *TranscriptionSession {
	turnDetection := params.Settings.TurnDetection
	if len(turnDetection) == 0 {
		turnDetection = defaultTurnDetection
	}

	return &TranscriptionSession{
		websocketURL:  cmp.Or(params.WebsocketURL, DefaultTranscriptionSessionWebsocketURL),
		connected:     false,
		apiKey:        params.APIKey,
		model:         params.Model,
		settings:      params.Settings,
		turnDetection: turnDetection,

		inputQueue:  params.Input.Queue,
		outputQueue: asyncqueue.New[transcriptionSessionOutputQueueValue](),
		eventQueue:  asyncqueue.New[transcriptionSessionEventQueueValue](),
		stateQueue:  asyncqueue.New[map[string]any](),
	}
}

func (s *TranscriptionSession) eventListener(context.Context) (err error) {
	if s.websocket == nil {
		return fmt.Errorf("websocket not initialized")
	}

	defer func() {
		if err != nil {
			s.outputQueue.Put(errorSentinel{err: err})
			err = WebsocketConnectionErrorf("error parsing events: %w", err)
		}
	}()

	for {
		_, message, err := s.websocket.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			return fmt.Errorf("error reading websocket message: %w", err)
		}

		var event map[string]any
		err = json.Unmarshal(message, &event)
		if err != nil {
			return fmt.Errorf("error JSON-unmarshaling websocket message: %w", err)
		}

		eventType, _ := event["type"].(string)
		if eventType == "error" {
			return WebsocketConnectionErrorf("error event: %v", event["error"])
		}
		if slices.Contains([]string{
			"session.updated",
			"transcription_session.updated",
			"session.created",
			"transcription_session.created",
		}, eventType) {
			s.stateQueue.Put(event)
		}

		s.eventQueue.Put(transcriptionSessionEventQueueValueMap(event))
	}

	s.eventQueue.Put(websocketDoneSentinel{})
	return nil
}

func (s *TranscriptionSession) configureSession() error {
	if s.websocket == nil {
		return fmt.Errorf("websocket not initialized")
	}
	return s.websocket.WriteJSON(map[string]any{
		"type": "transcription_session.update",
		"session": map[string]any{
			"input_audio_format":        "pcm16",
			"input_audio_transcription": map[string]any{"model": s.model},
			"turn_detection":            s.turnDetection,
		},
	})
}

func (s *TranscriptionSession) setupConnection(ctx context.Context, c *websocket.Conn) (err error) {
	s.websocket = c
	s.listenerTask = asynctask.CreateTaskNoValue(ctx, s.eventListener)

	defer func() {
		if err != nil {
			s.outputQueue.Put(errorSentinel{err: err})
		}
	}()

	_, err = waitForEvent(
		s.stateQueue,
		[]string{"session.created", "transcription_session.created"},
		SessionCreationTimeout,
	)
	if err != nil {
		if errors.As(err, &timeoutError{}) {
			err = WebsocketConnectionErrorf("timeout waiting for transcription_session.created event: %w", err)
		}
		return err
	}

	if err = s.configureSession(); err != nil {
		return err
	}

	_, err = waitForEvent(
		s.stateQueue,
		[]string{"session.updated", "transcription_session.updated"},
		SessionUpdateTimeout,
	)
	if err != nil {
		if errors.As(err, &timeoutError{}) {
			err = WebsocketConnectionErrorf("timeout waiting for transcription_session.updated event: %w", err)
		}
		return err
	}

	Logger().Debug("Transcription session configured")
	return nil
}

func (s *TranscriptionSession) handleEvents(context.Context) (err error) {
	defer func() {
		if err != nil {
			s.outputQueue.Put(errorSentinel{err: err})
		}
	}()

loop:
	for {
		event, ok := s.eventQueue.GetTimeout(EventInactivityTimeout)
		if !ok {
			// No new events for a while. Assume the session is done.
			break
		}

		switch event := event.(type) {
		case websocketDoneSentinel:
			// processed all events and websocket is done
			break loop
		case transcriptionSessionEventQueueValueMap:
			eventType, _ := event["type"].(string)
			if eventType == "conversation.item.input_audio_transcription.completed" {
				transcript, _ := event["transcript"].(string)
				if transcript != "" {
					s.outputQueue.Put(transcriptionSessionOutputQueueValueString(transcript))
				}
			}
		default:
			// This would be an unrecoverable implementation bug, so a panic is appropriate.
			panic(fmt.Errorf("unexpected transcriptionSessionEventQueueValue type %T", event))
		}
	}

	s.outputQueue.Put(sessionCompleteSentinel{})
	return nil
}

func (s *TranscriptionSession) streamAudio(_ context.Context, audioQueue *asyncqueue.Queue[AudioData]) error {
	if s.websocket == nil {
		return fmt.Errorf("websocket not initialized")
	}

	for {
		buffer := audioQueue.Get()
		if buffer == nil || buffer.Len() == 0 {
			break
		}

		err := s.websocket.WriteJSON(map[string]any{
			"type":  "input_audio_buffer.append",
			"audio": base64.StdEncoding.EncodeToString(buffer.Bytes()),
		})
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			err = fmt.Errorf("websocket writing error: %w", err)
			s.outputQueue.Put(errorSentinel{err: err})
			return err
		}
	}

	return nil
}

func (s *TranscriptionSession) processWebsocketConnection(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.outputQueue.Put(errorSentinel{err: err})
		}
	}()

	header := make(http.Header)
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}
	header.Set("OpenAI-Beta", "realtime=v1")
	c, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, header)
	if err != nil {
		return fmt.Errorf("websocket connection error: %w", err)
	}
	defer func() {
		if err != nil {
			if e := c.Close(); e != nil {
				err = errors.Join(err, fmt.Errorf("error closing websocket connection: %w", e))
			}
		}
	}()

	if err = s.setupConnection(ctx, c); err != nil {
		return err
	}

	s.processEventsTask = asynctask.CreateTaskNoValue(ctx, s.handleEvents)
	s.streamAudioTask = asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
		return s.streamAudio(ctx, s.inputQueue)
	})
	s.connected = true

	s.listenerTask.Await()
	return nil
}

func (s *TranscriptionSession) checkErrors() {
	tasks := []*asynctask.TaskNoValue{
		s.connectionTask,
		s.processEventsTask,
		s.streamAudioTask,
		s.listenerTask,
	}
	for _, t := range tasks {
		if t != nil && t.IsDone() {
			if err := t.Await().Error; err != nil {
				s.storedError = err
			}
		}
	}
}

func (s *TranscriptionSession) cleanupTasks() {
	tasks := []*asynctask.TaskNoValue{
		s.connectionTask,
		s.processEventsTask,
		s.streamAudioTask,
		s.listenerTask,
	}
	for _, t := range tasks {
		if t != nil && !t.IsDone() {
			t.Cancel()
		}
	}
}

// TranscribeTurns connects to the transcription service and yields completed
// conversation turns until the audio stream ends or the session is closed.
func (s *TranscriptionSession) TranscribeTurns(ctx context.Context) StreamedTranscriptionSessionTranscribeTurns {
	return util.SeqErrFunc(func(yield func(string) bool) (err error) {
		canYield := true // once yield returns false, stop yielding, but finish consuming the queue

		s.connectionTask = asynctask.CreateTaskNoValue(ctx, s.processWebsocketConnection)

	loop:
		for {
			turn := s.outputQueue.Get()

			switch t := turn.(type) {
			case transcriptionSessionOutputQueueValueString:
				if canYield {
					canYield = yield(string(t))
				}

			case errorSentinel, sessionCompleteSentinel:
				break loop
			default:
				// This would be an unrecoverable implementation bug, so a panic is appropriate.
				panic(fmt.Errorf("unexpected transcriptionSessionOutputQueueValue type %T", t))
			}
		}

		if s.websocket != nil {
			if e := s.websocket.Close(); e != nil {
				err = errors.Join(err, fmt.Errorf("error closing websocket connection: %w", e))
			}
		}

		s.checkErrors()
		return errors.Join(err, s.storedError)
	})
}

func (s *TranscriptionSession) Close(context.Context) (err error) {
	if s.websocket != nil {
		if err = s.websocket.Close(); err != nil {
			err = fmt.Errorf("error closing websocket connection: %w", err)
		}
	}

	s.cleanupTasks()
	return err
}
