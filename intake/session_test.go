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

package intake

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendingUpdater is a NarrativeUpdater that appends each transcript to the
// narrative, so every turn produces a distinct snapshot.
type appendingUpdater struct{}

func (appendingUpdater) UpdateNarrative(_ context.Context, narrative, transcript string) (string, error) {
	if narrative == "" {
		return transcript, nil
	}
	return narrative + " " + transcript, nil
}

// staticUpdater always returns the same narrative.
type staticUpdater struct {
	narrative string
}

func (u staticUpdater) UpdateNarrative(context.Context, string, string) (string, error) {
	return u.narrative, nil
}

type failingUpdater struct {
	err error
}

func (u failingUpdater) UpdateNarrative(context.Context, string, string) (string, error) {
	return "", u.err
}

// recordingClassifier records the narratives it was asked to classify.
type recordingClassifier struct {
	mu         sync.Mutex
	narratives []string
	result     DiagnosisResult
	err        error
}

func (c *recordingClassifier) Classify(_ context.Context, narrative string) (DiagnosisResult, error) {
	c.mu.Lock()
	c.narratives = append(c.narratives, narrative)
	c.mu.Unlock()
	return c.result, c.err
}

func (c *recordingClassifier) classified() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.narratives...)
}

func newTestSession(t *testing.T, updater NarrativeUpdater, classifier DiagnosisClassifier, config ThrottleConfig) *Session {
	t.Helper()
	session, err := NewSession(SessionParams{
		SessionID:      "test-session",
		Updater:        updater,
		Classifier:     classifier,
		ThrottleConfig: &config,
	})
	require.NoError(t, err)
	return session
}

func TestNewSession_Validation(t *testing.T) {
	_, err := NewSession(SessionParams{Classifier: &recordingClassifier{}})
	assert.Error(t, err)

	_, err = NewSession(SessionParams{Updater: appendingUpdater{}})
	assert.Error(t, err)

	session, err := NewSession(SessionParams{
		Updater:    appendingUpdater{},
		Classifier: &recordingClassifier{},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, session.SessionID())
}

func TestSession_ProcessTranscript(t *testing.T) {
	ctx := t.Context()

	t.Run("first narrative is classified immediately", func(t *testing.T) {
		classifier := &recordingClassifier{
			result: DiagnosisResult{Conditions: []string{"migraine"}},
		}
		session := newTestSession(t, appendingUpdater{}, classifier, DefaultThrottleConfig())

		require.NoError(t, session.ProcessTranscript(ctx, "patient", "I have a headache."))
		session.awaitTasks()

		assert.Equal(t, "I have a headache.", session.Narrative())
		assert.Equal(t, []string{"I have a headache."}, classifier.classified())
		require.NotNil(t, session.LastDiagnosis())
		assert.Equal(t, []string{"migraine"}, session.LastDiagnosis().Conditions)
	})

	t.Run("blank turns are ignored", func(t *testing.T) {
		classifier := &recordingClassifier{}
		session := newTestSession(t, appendingUpdater{}, classifier, DefaultThrottleConfig())

		require.NoError(t, session.ProcessTranscript(ctx, "patient", "   "))
		session.awaitTasks()

		assert.Empty(t, session.Narrative())
		assert.Empty(t, classifier.classified())
	})

	t.Run("unchanged narrative is not re-evaluated", func(t *testing.T) {
		classifier := &recordingClassifier{}
		session := newTestSession(t, staticUpdater{narrative: "Patient reports headache."}, classifier, ThrottleConfig{})

		require.NoError(t, session.ProcessTranscript(ctx, "patient", "I have a headache."))
		session.awaitTasks()
		require.NoError(t, session.ProcessTranscript(ctx, "patient", "I have a headache, really."))
		session.awaitTasks()

		// The second turn produced the same narrative, so only one
		// classification ran.
		assert.Equal(t, []string{"Patient reports headache."}, classifier.classified())
	})

	t.Run("updater errors are surfaced", func(t *testing.T) {
		wantErr := errors.New("model unavailable")
		classifier := &recordingClassifier{}
		session := newTestSession(t, failingUpdater{err: wantErr}, classifier, DefaultThrottleConfig())

		err := session.ProcessTranscript(ctx, "patient", "I have a headache.")
		assert.ErrorIs(t, err, wantErr)
		assert.Empty(t, classifier.classified())
	})

	t.Run("throttler state advances only on classifier success", func(t *testing.T) {
		classifier := &recordingClassifier{err: errors.New("service down")}
		// Zero config: every distinct narrative is eligible.
		session := newTestSession(t, appendingUpdater{}, classifier, ThrottleConfig{})

		require.NoError(t, session.ProcessTranscript(ctx, "patient", "First."))
		session.awaitTasks()
		assert.Nil(t, session.LastDiagnosis())

		// The failed send left the baseline untouched, so the next snapshot
		// is evaluated and approved again.
		classifier.mu.Lock()
		classifier.err = nil
		classifier.mu.Unlock()

		require.NoError(t, session.ProcessTranscript(ctx, "patient", "Second."))
		session.awaitTasks()

		assert.Equal(t, []string{"First.", "First. Second."}, classifier.classified())
		assert.NotNil(t, session.LastDiagnosis())
	})
}

func TestSession_Run(t *testing.T) {
	classifier := &recordingClassifier{
		result: DiagnosisResult{Conditions: []string{"migraine"}},
	}
	session := newTestSession(t, appendingUpdater{}, classifier, ThrottleConfig{})

	input := NewStreamedTranscriptInput()
	result := session.Run(t.Context(), input)

	input.AddTurn(TranscriptTurn{Participant: "patient", Text: "I have a headache."})
	input.AddTurn(TranscriptTurn{Participant: "patient", Text: "It started yesterday."})
	input.Close()

	var narratives []string
	var diagnoses []IntakeStreamEventDiagnosis
	var lifecycle []IntakeStreamEventLifecycleEvent

	stream := result.Stream(t.Context())
	for event := range stream.Seq() {
		switch e := event.(type) {
		case IntakeStreamEventNarrative:
			narratives = append(narratives, e.Narrative)
		case IntakeStreamEventDiagnosis:
			diagnoses = append(diagnoses, e)
		case IntakeStreamEventLifecycle:
			lifecycle = append(lifecycle, e.Event)
		}
	}
	require.NoError(t, stream.Error())

	assert.Equal(t, []string{
		"I have a headache.",
		"I have a headache. It started yesterday.",
	}, narratives)

	require.NotEmpty(t, diagnoses)
	assert.Equal(t, []string{"migraine"}, diagnoses[0].Result.Conditions)

	assert.Equal(t, []IntakeStreamEventLifecycleEvent{
		IntakeStreamEventLifecycleEventSessionStarted,
		IntakeStreamEventLifecycleEventSessionEnded,
	}, lifecycle)
}

func TestSession_RunCanceledContext(t *testing.T) {
	classifier := &recordingClassifier{}
	session := newTestSession(t, appendingUpdater{}, classifier, DefaultThrottleConfig())

	ctx, cancel := context.WithCancel(t.Context())
	input := NewStreamedTranscriptInput()
	result := session.Run(ctx, input)
	cancel()

	stream := result.Stream(t.Context())
	for range stream.Seq() {
	}
	assert.ErrorIs(t, stream.Error(), context.Canceled)
}

func TestSession_ThrottlingAcrossTurns(t *testing.T) {
	clock := newFakeClock()
	classifier := &recordingClassifier{}
	config := ThrottleConfig{
		MinimumInterval:    15 * time.Second,
		MaximumInterval:    60 * time.Second,
		WordCountThreshold: 20,
	}
	session, err := NewSession(SessionParams{
		Updater:        appendingUpdater{},
		Classifier:     classifier,
		ThrottleConfig: &config,
		Now:            clock.Now,
	})
	require.NoError(t, err)

	ctx := t.Context()

	// First snapshot goes through.
	require.NoError(t, session.ProcessTranscript(ctx, "patient", "I have a headache."))
	session.awaitTasks()
	require.Len(t, classifier.classified(), 1)

	// A small change within the floor is throttled.
	clock.Advance(5 * time.Second)
	require.NoError(t, session.ProcessTranscript(ctx, "patient", "And nausea."))
	session.awaitTasks()
	assert.Len(t, classifier.classified(), 1)

	// A large change after the floor goes through.
	clock.Advance(15 * time.Second)
	require.NoError(t, session.ProcessTranscript(ctx, "patient", strings.Repeat("detail ", 25)))
	session.awaitTasks()
	assert.Len(t, classifier.classified(), 2)
}
