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
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Mygentic-AI/booking-optimizer-backend/asyncqueue"
	"github.com/Mygentic-AI/booking-optimizer-backend/asynctask"
	"github.com/Mygentic-AI/booking-optimizer-backend/calllog"
	"github.com/Mygentic-AI/booking-optimizer-backend/transcripts"
	"github.com/google/uuid"
)

// TranscriptTurn is one finalized utterance delivered to a Session.
type TranscriptTurn struct {
	// Participant names the speaker, e.g. "patient".
	Participant string

	// Text is the transcribed utterance. An empty Text marks the end of
	// the conversation.
	Text string
}

// StreamedTranscriptInput is a stream of transcript turns that you can
// append to while a Session is running.
type StreamedTranscriptInput struct {
	Queue *asyncqueue.Queue[TranscriptTurn]
}

func NewStreamedTranscriptInput() StreamedTranscriptInput {
	return StreamedTranscriptInput{
		Queue: asyncqueue.New[TranscriptTurn](),
	}
}

// AddTurn adds one more transcript turn to the stream.
func (i StreamedTranscriptInput) AddTurn(turn TranscriptTurn) {
	i.Queue.Put(turn)
}

// Close signals that no more turns will be added.
func (i StreamedTranscriptInput) Close() {
	i.Queue.Put(TranscriptTurn{})
}

// Session is a medical-intake listener session.
//
// Each transcribed patient turn is folded into a cumulative medical
// narrative. Whenever the narrative changes, the session asks its
// UpdateThrottler whether the new snapshot is worth a diagnosis pass;
// approved snapshots are classified in the background, and the throttler
// state advances only when the classifier succeeds.
type Session struct {
	id              string
	updater         NarrativeUpdater
	classifier      DiagnosisClassifier
	callLogger      *calllog.Logger
	transcriptStore transcripts.Store
	queue           *asyncqueue.Queue[IntakeStreamEvent]

	// mu serializes narrative updates and the throttler's
	// evaluate-then-mark sequence.
	mu                sync.Mutex
	narrative         string
	throttler         *UpdateThrottler
	diagnosisInFlight bool
	lastDiagnosis     *DiagnosisResult

	tasksMu sync.Mutex
	tasks   []*asynctask.TaskNoValue
}

type SessionParams struct {
	// Optional session identifier. Defaults to a random UUID.
	SessionID string

	// The narrative updater to fold transcripts into the narrative. Required.
	Updater NarrativeUpdater

	// The diagnosis classifier to run on approved snapshots. Required.
	Classifier DiagnosisClassifier

	// Optional throttling configuration. Defaults to DefaultThrottleConfig().
	ThrottleConfig *ThrottleConfig

	// Optional clock override for the throttler, used in tests.
	Now func() time.Time

	// Optional call logger for on-disk persistence of the conversation.
	CallLogger *calllog.Logger

	// Optional durable transcript store.
	TranscriptStore transcripts.Store
}

// NewSession creates a new intake session.
func NewSession(params SessionParams) (*Session, error) {
	if params.Updater == nil {
		return nil, NewUserError("narrative updater is required")
	}
	if params.Classifier == nil {
		return nil, NewUserError("diagnosis classifier is required")
	}

	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	config := DefaultThrottleConfig()
	if params.ThrottleConfig != nil {
		config = *params.ThrottleConfig
	}

	return &Session{
		id:              sessionID,
		updater:         params.Updater,
		classifier:      params.Classifier,
		callLogger:      params.CallLogger,
		transcriptStore: params.TranscriptStore,
		queue:           asyncqueue.New[IntakeStreamEvent](),
		throttler: NewUpdateThrottler(UpdateThrottlerParams{
			Config: config,
			Now:    params.Now,
		}),
	}, nil
}

func (s *Session) SessionID() string { return s.id }

// Narrative returns the current cumulative medical narrative.
func (s *Session) Narrative() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.narrative
}

// LastDiagnosis returns the most recent diagnosis, or nil if none was
// produced yet.
func (s *Session) LastDiagnosis() *DiagnosisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDiagnosis
}

// ProcessTranscript folds one transcribed turn into the narrative and, if
// the throttler approves the new snapshot, kicks off a diagnosis pass in
// the background. Blank turns are ignored.
func (s *Session) ProcessTranscript(ctx context.Context, participant, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	s.recordTurn(ctx, participant, text)

	s.mu.Lock()
	currentNarrative := s.narrative
	s.mu.Unlock()

	updatedNarrative, err := s.updater.UpdateNarrative(ctx, currentNarrative, text)
	if err != nil {
		return fmt.Errorf("error updating narrative: %w", err)
	}

	updatedNarrative = strings.TrimSpace(updatedNarrative)
	if updatedNarrative == "" || updatedNarrative == currentNarrative {
		return nil
	}

	s.mu.Lock()
	s.narrative = updatedNarrative
	s.mu.Unlock()

	s.recordNarrative(ctx, updatedNarrative)
	s.queue.Put(IntakeStreamEventNarrative{Narrative: updatedNarrative})

	s.maybeClassify(ctx, updatedNarrative)
	return nil
}

// maybeClassify consults the throttler and, if the snapshot is approved,
// starts a background classification task. At most one diagnosis pass runs
// at a time; while one is in flight, new snapshots are not evaluated, so
// the next narrative change after it completes gets a fresh decision.
func (s *Session) maybeClassify(ctx context.Context, narrative string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.diagnosisInFlight || !s.throttler.ShouldSendUpdate(narrative) {
		return
	}
	s.diagnosisInFlight = true

	task := asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
		s.classify(ctx, narrative)
		return nil
	})

	s.tasksMu.Lock()
	s.tasks = append(s.tasks, task)
	s.tasksMu.Unlock()
}

func (s *Session) classify(ctx context.Context, narrative string) {
	result, err := s.classifier.Classify(ctx, narrative)

	s.mu.Lock()
	s.diagnosisInFlight = false
	if err == nil {
		s.throttler.MarkSent(narrative)
		s.lastDiagnosis = &result
	}
	s.mu.Unlock()

	if err != nil {
		// The throttler state is left untouched, so the next narrative
		// change is evaluated against the same baseline.
		Logger().Error("Diagnosis classification failed",
			slog.String("session_id", s.id),
			slog.String("error", err.Error()))
		return
	}

	s.recordDiagnosis(ctx, result)
	s.queue.Put(IntakeStreamEventDiagnosis{Narrative: narrative, Result: result})
}

// Run consumes transcript turns from the input stream until it is closed,
// returning a StreamedIntakeResult to observe narrative and diagnosis
// events as they are produced.
func (s *Session) Run(ctx context.Context, input StreamedTranscriptInput) *StreamedIntakeResult {
	result := &StreamedIntakeResult{session: s}

	s.queue.Put(IntakeStreamEventLifecycle{Event: IntakeStreamEventLifecycleEventSessionStarted})

	result.processingTask = asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
		defer func() {
			s.awaitTasks()
			s.queue.Put(IntakeStreamEventLifecycle{Event: IntakeStreamEventLifecycleEventSessionEnded})
		}()

		for {
			turn, err := input.Queue.GetContext(ctx)
			if err != nil {
				return err
			}
			if turn.Text == "" {
				return nil
			}
			if err := s.ProcessTranscript(ctx, turn.Participant, turn.Text); err != nil {
				Logger().Error("Error processing transcript turn",
					slog.String("session_id", s.id),
					slog.String("error", err.Error()))
			}
		}
	})

	return result
}

func (s *Session) awaitTasks() {
	s.tasksMu.Lock()
	tasks := make([]*asynctask.TaskNoValue, len(s.tasks))
	copy(tasks, s.tasks)
	s.tasksMu.Unlock()

	for _, task := range tasks {
		task.Await()
	}
}

func (s *Session) recordTurn(ctx context.Context, participant, text string) {
	if s.callLogger != nil {
		if err := s.callLogger.Record("INPUT", participant, text); err != nil {
			Logger().Warn("Failed to record transcript turn", slog.String("error", err.Error()))
		}
	}
	if s.transcriptStore != nil {
		err := s.transcriptStore.AddEntries(ctx, []transcripts.Entry{
			{Kind: "transcript", Participant: participant, Text: text},
		})
		if err != nil {
			Logger().Warn("Failed to store transcript turn", slog.String("error", err.Error()))
		}
	}
}

func (s *Session) recordNarrative(ctx context.Context, narrative string) {
	if s.callLogger != nil {
		if err := s.callLogger.Record("NARRATIVE UPDATED", "", narrative); err != nil {
			Logger().Warn("Failed to record narrative update", slog.String("error", err.Error()))
		}
		if err := s.callLogger.SaveNarrativeExtract(narrative); err != nil {
			Logger().Warn("Failed to save narrative extract", slog.String("error", err.Error()))
		}
	}
	if s.transcriptStore != nil {
		err := s.transcriptStore.AddEntries(ctx, []transcripts.Entry{
			{Kind: "narrative", Text: narrative},
		})
		if err != nil {
			Logger().Warn("Failed to store narrative update", slog.String("error", err.Error()))
		}
	}
}

func (s *Session) recordDiagnosis(ctx context.Context, result DiagnosisResult) {
	summary := strings.Join(result.Conditions, "; ")
	if s.callLogger != nil {
		if err := s.callLogger.Record("DIAGNOSIS", "", summary); err != nil {
			Logger().Warn("Failed to record diagnosis", slog.String("error", err.Error()))
		}
	}
	if s.transcriptStore != nil {
		err := s.transcriptStore.AddEntries(ctx, []transcripts.Entry{
			{Kind: "diagnosis", Text: summary},
		})
		if err != nil {
			Logger().Warn("Failed to store diagnosis", slog.String("error", err.Error()))
		}
	}
}

// StreamedIntakeResult is the output of a running Session. Streams
// narrative and diagnosis events as they are produced.
type StreamedIntakeResult struct {
	session        *Session
	processingTask *asynctask.TaskNoValue

	errMu       sync.Mutex
	storedError error
}

func (r *StreamedIntakeResult) setStoredError(err error) {
	r.errMu.Lock()
	r.storedError = err
	r.errMu.Unlock()
}

// Stream the session events as they are generated.
func (r *StreamedIntakeResult) Stream(ctx context.Context) *StreamedIntakeResultStream {
	return &StreamedIntakeResultStream{
		ctx: ctx,
		r:   r,
	}
}

type StreamedIntakeResultStream struct {
	ctx context.Context
	r   *StreamedIntakeResult
}

// Seq yields session events until the session ends or an error event is
// observed. Iterate it with a for-range loop, then check Error.
func (s *StreamedIntakeResultStream) Seq() iter.Seq[IntakeStreamEvent] {
	ctx := s.ctx
	r := s.r
	return func(yield func(IntakeStreamEvent) bool) {
		canYield := true // once yield returns false, stop yielding, but finish consuming the events queue
		for {
			event, err := r.session.queue.GetContext(ctx)
			if err != nil {
				r.setStoredError(err)
				break
			}
			if e, ok := event.(IntakeStreamEventError); ok {
				r.setStoredError(e.Error)
				Logger().Error("Error processing session events", slog.String("error", e.Error.Error()))
				break
			}
			if canYield {
				canYield = yield(event)
			}
			if e, ok := event.(IntakeStreamEventLifecycle); ok && e.Event == IntakeStreamEventLifecycleEventSessionEnded {
				break
			}
		}

		if t := r.processingTask; t != nil {
			if result := t.Await(); result.Error != nil {
				r.setStoredError(result.Error)
			}
		}
	}
}

func (s *StreamedIntakeResultStream) Error() error {
	s.r.errMu.Lock()
	defer s.r.errMu.Unlock()
	return s.r.storedError
}
