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
	"cmp"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default model names, used when the config file does not override them.
const (
	DefaultNarrativeModel = "gpt-4o-mini"
	DefaultDiagnosisModel = "gpt-4o-mini"
)

// Config is the top-level configuration for an intake session.
type Config struct {
	// Throttling rules for forwarding narratives to the diagnosis classifier.
	Throttling ThrottleConfig

	// Model used to maintain the medical narrative.
	NarrativeModel string

	// Model used to produce structured diagnoses.
	DiagnosisModel string

	// Optional SQLite path (or DSN) for the transcript store. Empty means
	// the store's own default.
	TranscriptDBPath string
}

// DefaultConfig returns the configuration used when no config file is
// available.
func DefaultConfig() Config {
	return Config{
		Throttling:     DefaultThrottleConfig(),
		NarrativeModel: DefaultNarrativeModel,
		DiagnosisModel: DefaultDiagnosisModel,
	}
}

// configFile mirrors the on-disk YAML layout. Every field is optional;
// pointers distinguish "absent" from zero values so each missing key falls
// back to its default independently.
type configFile struct {
	Throttling       *throttleConfigFile `yaml:"diagnosis_throttling"`
	NarrativeModel   string              `yaml:"narrative_model"`
	DiagnosisModel   string              `yaml:"diagnosis_model"`
	TranscriptDBPath string              `yaml:"transcript_db_path"`
}

type throttleConfigFile struct {
	MinimumIntervalSeconds *float64 `yaml:"minimum_interval_seconds"`
	MaximumIntervalSeconds *float64 `yaml:"maximum_interval_seconds"`
	WordCountThreshold     *int     `yaml:"word_count_threshold"`
	TriggerSections        []string `yaml:"trigger_sections"`
}

// LoadConfig reads the YAML configuration at path. It never fails: a missing
// or malformed file yields DefaultConfig, and each missing key falls back to
// its default value. The degraded path is logged but not surfaced as an
// error, so a session can always be constructed.
func LoadConfig(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		Logger().Warn(
			"Could not load config, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return DefaultConfig()
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data, substituting defaults for any
// missing or unparsable content. It is pure: same input, same output.
func ParseConfig(data []byte) Config {
	var file configFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		Logger().Warn("Could not parse config, using defaults", slog.String("error", err.Error()))
		return DefaultConfig()
	}

	config := DefaultConfig()
	config.NarrativeModel = cmp.Or(file.NarrativeModel, config.NarrativeModel)
	config.DiagnosisModel = cmp.Or(file.DiagnosisModel, config.DiagnosisModel)
	config.TranscriptDBPath = file.TranscriptDBPath

	if t := file.Throttling; t != nil {
		if t.MinimumIntervalSeconds != nil {
			config.Throttling.MinimumInterval = secondsToDuration(*t.MinimumIntervalSeconds)
		}
		if t.MaximumIntervalSeconds != nil {
			config.Throttling.MaximumInterval = secondsToDuration(*t.MaximumIntervalSeconds)
		}
		if t.WordCountThreshold != nil {
			config.Throttling.WordCountThreshold = *t.WordCountThreshold
		}
		if t.TriggerSections != nil {
			config.Throttling.TriggerSections = t.TriggerSections
		}
	}
	return config
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
