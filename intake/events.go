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

// IntakeStreamEvent is an event from a Session, streamed via StreamedIntakeResult.Stream.
type IntakeStreamEvent interface {
	isIntakeStreamEvent()
}

// IntakeStreamEventNarrative reports that the medical narrative was rewritten
// after a transcript was processed.
type IntakeStreamEventNarrative struct {
	// The full updated narrative.
	Narrative string
}

func (IntakeStreamEventNarrative) isIntakeStreamEvent() {}

// IntakeStreamEventDiagnosis reports a fresh diagnosis produced after the
// narrative passed the throttling gate.
type IntakeStreamEventDiagnosis struct {
	// The narrative snapshot the diagnosis was computed from.
	Narrative string

	// The diagnosis produced from the narrative.
	Result DiagnosisResult
}

func (IntakeStreamEventDiagnosis) isIntakeStreamEvent() {}

type IntakeStreamEventLifecycleEvent string

const (
	IntakeStreamEventLifecycleEventSessionStarted IntakeStreamEventLifecycleEvent = "session_started"
	IntakeStreamEventLifecycleEventSessionEnded   IntakeStreamEventLifecycleEvent = "session_ended"
)

// IntakeStreamEventLifecycle is a streaming event from a Session.
type IntakeStreamEventLifecycle struct {
	// The event that occurred.
	Event IntakeStreamEventLifecycleEvent
}

func (IntakeStreamEventLifecycle) isIntakeStreamEvent() {}

// IntakeStreamEventError is a streaming event from a Session.
type IntakeStreamEventError struct {
	// The error that occurred.
	Error error
}

func (IntakeStreamEventError) isIntakeStreamEvent() {}
