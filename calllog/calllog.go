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

// Package calllog persists per-session call transcripts and narrative
// extracts to disk: a plain-text log with one timestamped line per event,
// and a JSON file holding the latest medical narrative.
package calllog

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLogDir     = "logs"
	DefaultExtractDir = "medical_extracts"
)

// Logger writes call events for one session. It is safe for concurrent use.
type Logger struct {
	sessionID   string
	logPath     string
	extractPath string
	now         func() time.Time

	mu      sync.Mutex
	logFile *os.File
}

type LoggerParams struct {
	// Optional session identifier. Defaults to a random UUID.
	SessionID string

	// Optional directory for the plain-text session log.
	// Defaults to DefaultLogDir.
	LogDir string

	// Optional directory for the JSON narrative extract.
	// Defaults to DefaultExtractDir.
	ExtractDir string

	// Optional clock override, used in tests. Defaults to time.Now.
	Now func() time.Time
}

// NewLogger creates the log directories if needed and opens the session log
// file for appending.
func NewLogger(params LoggerParams) (*Logger, error) {
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logDir := cmp.Or(params.LogDir, DefaultLogDir)
	extractDir := cmp.Or(params.ExtractDir, DefaultExtractDir)
	nowFn := params.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	for _, dir := range []string{logDir, extractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("error creating log directory %q: %w", dir, err)
		}
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("medical_intake_%s.log", sessionID))
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("error opening session log file: %w", err)
	}

	l := &Logger{
		sessionID:   sessionID,
		logPath:     logPath,
		extractPath: filepath.Join(extractDir, fmt.Sprintf("facts_%s.json", sessionID)),
		now:         nowFn,
		logFile:     logFile,
	}

	if err = l.writeLine(fmt.Sprintf("Session started: %s", sessionID)); err != nil {
		_ = logFile.Close()
		return nil, err
	}
	return l, nil
}

func (l *Logger) SessionID() string { return l.sessionID }

// LogPath returns the path of the plain-text session log.
func (l *Logger) LogPath() string { return l.logPath }

// ExtractPath returns the path of the JSON narrative extract.
func (l *Logger) ExtractPath() string { return l.extractPath }

// Record appends one call event to the session log. kind tags the event
// (e.g. "INPUT", "NARRATIVE UPDATED"), participant names its source (may be
// empty for system events).
func (l *Logger) Record(kind, participant, text string) error {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(kind)
	sb.WriteString("]")
	if participant != "" {
		sb.WriteString(" ")
		sb.WriteString(participant)
		sb.WriteString(":")
	}
	if text != "" {
		sb.WriteString(" ")
		sb.WriteString(text)
	}
	return l.writeLine(sb.String())
}

type narrativeExtract struct {
	SessionID      string `json:"session_id"`
	Timestamp      string `json:"timestamp"`
	MedicalSummary string `json:"medical_summary"`
	WordCount      int    `json:"word_count"`
}

// SaveNarrativeExtract overwrites the JSON extract file with the latest
// narrative snapshot.
func (l *Logger) SaveNarrativeExtract(narrative string) error {
	extract := narrativeExtract{
		SessionID:      l.sessionID,
		Timestamp:      l.now().Format(time.RFC3339),
		MedicalSummary: narrative,
		WordCount:      len(strings.Fields(narrative)),
	}
	data, err := json.MarshalIndent(extract, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling narrative extract: %w", err)
	}
	if err = os.WriteFile(l.extractPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing narrative extract: %w", err)
	}
	return nil
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	if err != nil {
		return fmt.Errorf("error closing session log file: %w", err)
	}
	return nil
}

func (l *Logger) writeLine(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.logFile == nil {
		return fmt.Errorf("session log file is closed")
	}
	timestamp := l.now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(l.logFile, "%s - %s\n", timestamp, line); err != nil {
		return fmt.Errorf("error writing session log line: %w", err)
	}
	return nil
}
