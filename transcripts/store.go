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

// Package transcripts stores the conversation record of an intake session,
// so a narrative can be rebuilt or audited after the call ends.
package transcripts

import "context"

// Entry is one persisted call event: a transcribed utterance, a narrative
// update, or any other record the hosting session chooses to keep.
type Entry struct {
	// Kind tags the event, e.g. "transcript" or "narrative".
	Kind string `json:"kind"`

	// Participant names the source of the event, e.g. "patient".
	// May be empty for system events.
	Participant string `json:"participant,omitempty"`

	// Text is the event payload.
	Text string `json:"text"`
}

// A Store persists transcript entries for a specific session, allowing the
// intake pipeline to keep a durable conversation record without managing
// files or database handles itself.
type Store interface {
	SessionID(context.Context) string

	// GetEntries retrieves the transcript for this session.
	//
	// limit is the maximum number of entries to retrieve. If <= 0, retrieves
	// all entries. When specified, returns the latest N entries in
	// chronological order.
	GetEntries(ctx context.Context, limit int) ([]Entry, error)

	// AddEntries appends new entries to the transcript.
	AddEntries(ctx context.Context, entries []Entry) error

	// PopEntry removes and returns the most recent entry.
	// It returns nil if the transcript is empty.
	PopEntry(context.Context) (*Entry, error)

	// ClearSession deletes all entries for this session.
	ClearSession(context.Context) error
}
