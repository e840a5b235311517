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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildNarrativePrompt(t *testing.T) {
	t.Run("empty narrative gets a placeholder", func(t *testing.T) {
		prompt := buildNarrativePrompt("", "I have a headache.")
		assert.Contains(t, prompt, "No medical information yet.")
		assert.Contains(t, prompt, "I have a headache.")
	})

	t.Run("existing narrative is included verbatim", func(t *testing.T) {
		prompt := buildNarrativePrompt("Patient reports headache.", "It started yesterday.")
		assert.Contains(t, prompt, "Patient reports headache.")
		assert.Contains(t, prompt, "It started yesterday.")
		assert.NotContains(t, prompt, "No medical information yet.")
	})
}

func TestNewOpenAINarrativeUpdater_DefaultModel(t *testing.T) {
	updater := NewOpenAINarrativeUpdater(OpenAINarrativeUpdaterParams{})
	assert.Equal(t, DefaultNarrativeModel, string(updater.model))
}

func TestNewOpenAIDiagnosisClassifier_DefaultModel(t *testing.T) {
	classifier := NewOpenAIDiagnosisClassifier(OpenAIDiagnosisClassifierParams{})
	assert.Equal(t, DefaultDiagnosisModel, string(classifier.model))
}
