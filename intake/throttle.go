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
	"log/slog"
	"strings"
	"time"
)

// ThrottleConfig holds the rules governing when a medical narrative may be
// forwarded to the diagnosis classifier. It is immutable once constructed
// and is passed by value into NewUpdateThrottler.
type ThrottleConfig struct {
	// MinimumInterval is the hard floor between two sends. No narrative is
	// forwarded faster than this, regardless of content change.
	MinimumInterval time.Duration

	// MaximumInterval is the soft ceiling. Once it has elapsed since the
	// last send, the next distinct narrative is forced through even if no
	// other threshold is met.
	MaximumInterval time.Duration

	// WordCountThreshold is the minimum number of words added since the
	// last send that justifies an early send.
	WordCountThreshold int

	// TriggerSections are marker substrings (e.g. "ALLERGIES:") whose first
	// appearance in a narrative forces an early send.
	TriggerSections []string
}

// Default throttling values, applied for every config key missing from the
// configuration file.
const (
	DefaultMinimumInterval    = 15 * time.Second
	DefaultMaximumInterval    = 60 * time.Second
	DefaultWordCountThreshold = 20
)

// DefaultThrottleConfig returns the configuration used when no config file
// is available.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MinimumInterval:    DefaultMinimumInterval,
		MaximumInterval:    DefaultMaximumInterval,
		WordCountThreshold: DefaultWordCountThreshold,
		TriggerSections:    nil,
	}
}

// UpdateThrottler decides when an accumulating medical narrative should be
// forwarded to the diagnosis classifier, trading off freshness against load
// on the downstream service.
//
// It is intended for single-writer use within one conversation session:
// evaluate with ShouldSendUpdate, then, if the downstream call succeeds,
// record it with MarkSent. Callers feeding one throttler from multiple
// goroutines must serialize the evaluate-then-mark sequence themselves.
type UpdateThrottler struct {
	config ThrottleConfig
	now    func() time.Time

	lastSentAt        time.Time
	lastSentText      string
	lastSentWordCount int
}

type UpdateThrottlerParams struct {
	// Throttling rules. The zero value is valid (everything is sent as soon
	// as the narrative changes), but normally comes from LoadConfig or
	// DefaultThrottleConfig.
	Config ThrottleConfig

	// Optional clock override, used in tests. Defaults to time.Now.
	Now func() time.Time
}

// NewUpdateThrottler creates a new throttler in the never-sent state.
func NewUpdateThrottler(params UpdateThrottlerParams) *UpdateThrottler {
	nowFn := params.Now
	if nowFn == nil {
		nowFn = time.Now
	}

	Logger().Info(
		"UpdateThrottler initialized",
		slog.Duration("min", params.Config.MinimumInterval),
		slog.Duration("max", params.Config.MaximumInterval),
		slog.Int("word_threshold", params.Config.WordCountThreshold),
	)

	return &UpdateThrottler{
		config: params.Config,
		now:    nowFn,
	}
}

// ShouldSendUpdate reports whether the candidate narrative should be
// forwarded to the diagnosis classifier now.
//
// The rules are checked in strict order: minimum-interval floor, unchanged
// content, maximum-interval ceiling, word-count delta, trigger sections.
// The order determines which reason is logged when several conditions hold
// at once.
//
// It performs no mutation: calling it repeatedly with the same candidate and
// no intervening MarkSent yields the same answer, aside from the passage of
// time. In the initial never-sent state lastSentAt is the zero time, so the
// elapsed time is effectively infinite and the first non-empty narrative is
// sent on first evaluation.
func (t *UpdateThrottler) ShouldSendUpdate(narrative string) bool {
	elapsed := t.now().Sub(t.lastSentAt)

	if elapsed < t.config.MinimumInterval {
		Logger().Debug(
			"Throttled: too soon since last send",
			slog.Duration("elapsed", elapsed),
			slog.Duration("min", t.config.MinimumInterval),
		)
		return false
	}

	if narrative == t.lastSentText {
		Logger().Debug("Throttled: narrative unchanged")
		return false
	}

	if elapsed >= t.config.MaximumInterval {
		Logger().Info("Maximum interval reached", slog.Duration("elapsed", elapsed))
		return true
	}

	wordsAdded := wordCount(narrative) - t.lastSentWordCount
	if wordsAdded >= t.config.WordCountThreshold {
		Logger().Info("Word threshold met", slog.Int("words_added", wordsAdded))
		return true
	}

	for _, section := range t.config.TriggerSections {
		if strings.Contains(narrative, section) && !strings.Contains(t.lastSentText, section) {
			Logger().Info("Trigger section detected", slog.String("section", section))
			return true
		}
	}

	Logger().Debug(
		"No triggers met",
		slog.Duration("elapsed", elapsed),
		slog.Int("words_added", wordsAdded),
	)
	return false
}

// MarkSent records that the given narrative was forwarded. The caller must
// pass the exact text that was evaluated and sent, not a transformed one.
func (t *UpdateThrottler) MarkSent(narrative string) {
	t.lastSentAt = t.now()
	t.lastSentText = narrative
	t.lastSentWordCount = wordCount(narrative)
	Logger().Debug(
		"Marked sent",
		slog.Int("word_count", t.lastSentWordCount),
		slog.Time("at", t.lastSentAt),
	)
}

// wordCount counts whitespace-delimited tokens. It must be the only word
// counting used by the throttler, else the words-added delta drifts between
// the threshold check and the stored count.
func wordCount(s string) int {
	return len(strings.Fields(s))
}
