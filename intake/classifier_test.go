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
	"github.com/stretchr/testify/require"
)

func TestDecodeDiagnosisResult(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		result, err := decodeDiagnosisResult(`{
			"diagnosis": ["migraine", "tension headache"],
			"follow_up_questions": ["When did the pain start?"],
			"further_tests": ["CT scan"]
		}`)
		require.NoError(t, err)
		assert.Equal(t, []string{"migraine", "tension headache"}, result.Conditions)
		assert.Equal(t, []string{"When did the pain start?"}, result.FollowUpQuestions)
		assert.Equal(t, []string{"CT scan"}, result.FurtherTests)
	})

	t.Run("markdown fences are stripped", func(t *testing.T) {
		result, err := decodeDiagnosisResult("```json\n" + `{
			"diagnosis": ["celiac disease"],
			"follow_up_questions": [],
			"further_tests": []
		}` + "\n```")
		require.NoError(t, err)
		assert.Equal(t, []string{"celiac disease"}, result.Conditions)
	})

	t.Run("missing keys become empty lists", func(t *testing.T) {
		result, err := decodeDiagnosisResult(`{}`)
		require.NoError(t, err)
		assert.NotNil(t, result.Conditions)
		assert.Empty(t, result.Conditions)
		assert.NotNil(t, result.FollowUpQuestions)
		assert.Empty(t, result.FollowUpQuestions)
		assert.NotNil(t, result.FurtherTests)
		assert.Empty(t, result.FurtherTests)
	})

	t.Run("invalid JSON is rejected", func(t *testing.T) {
		_, err := decodeDiagnosisResult("I am not JSON")
		assert.Error(t, err)
	})

	t.Run("schema violations are rejected", func(t *testing.T) {
		_, err := decodeDiagnosisResult(`{"diagnosis": "not an array"}`)
		assert.Error(t, err)
	})
}

func TestStripMarkdownFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripMarkdownFences(`{"a":1}`))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownFences("  {\"a\":1}  "))
}
