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
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v2"
)

// DiagnosisResult is the structured output of the diagnosis classifier.
type DiagnosisResult struct {
	// Possible diagnoses based on the current symptoms.
	Conditions []string `json:"diagnosis"`

	// Clarifying questions to ask the patient.
	FollowUpQuestions []string `json:"follow_up_questions"`

	// Recommended tests to confirm the suspected diagnoses.
	FurtherTests []string `json:"further_tests"`
}

// DiagnosisClassifier turns a medical narrative into a structured diagnosis.
// It is invoked only when the UpdateThrottler approves a send.
type DiagnosisClassifier interface {
	Classify(ctx context.Context, narrative string) (DiagnosisResult, error)
}

const diagnosisSystemPrompt = `You are a medical diagnosis assistant. You will receive a patient narrative containing symptoms and history.

DIAGNOSIS GUIDELINES:
- If you have ANY symptoms with duration and characteristics, provide possible diagnoses
- Be proactive - suggest likely conditions based on available information
- Include both common and serious conditions that fit the symptoms
- Example: chronic diarrhea + gluten triggers = suggest celiac disease, IBS, gluten sensitivity

ONLY if there's literally NO medical information (just greetings/age):
- Provide empty diagnosis array
- Focus on gathering initial symptoms

For ALL other cases, provide:
1. Differential diagnoses - List conditions that match the symptoms (even with partial info)
2. Follow-up questions - 1-2 questions to refine or confirm diagnosis
3. Diagnostic tests - Tests that would confirm your suspected diagnoses

Format your response as a JSON object with exactly these keys:
- "diagnosis": array of possible diagnoses based on current symptoms
- "follow_up_questions": array of 1-2 clarifying questions
- "further_tests": array of tests to confirm suspected diagnoses

Be helpful and provide diagnoses when symptoms are described. Respond ONLY with the JSON object.`

var diagnosisOutputSchema = NewOutputSchema[DiagnosisResult]()

// OpenAIDiagnosisClassifier is a DiagnosisClassifier backed by an OpenAI chat
// completions model with JSON output.
type OpenAIDiagnosisClassifier struct {
	model  openai.ChatModel
	client openai.Client
}

type OpenAIDiagnosisClassifierParams struct {
	Client openai.Client

	// Optional model name. Defaults to DefaultDiagnosisModel.
	Model string
}

// NewOpenAIDiagnosisClassifier creates a new diagnosis classifier.
func NewOpenAIDiagnosisClassifier(params OpenAIDiagnosisClassifierParams) *OpenAIDiagnosisClassifier {
	model := params.Model
	if model == "" {
		model = DefaultDiagnosisModel
	}
	return &OpenAIDiagnosisClassifier{
		model:  openai.ChatModel(model),
		client: params.Client,
	}
}

func (c *OpenAIDiagnosisClassifier) Classify(ctx context.Context, narrative string) (DiagnosisResult, error) {
	response, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(diagnosisSystemPrompt),
			openai.UserMessage(narrative),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(1024),
	})
	if err != nil {
		return DiagnosisResult{}, fmt.Errorf("diagnosis model error: %w", err)
	}
	if len(response.Choices) == 0 {
		return DiagnosisResult{}, NewModelBehaviorError("diagnosis model returned no choices")
	}

	raw := response.Choices[0].Message.Content
	result, err := decodeDiagnosisResult(raw)
	if err != nil {
		Logger().Error(
			"Failed to parse diagnosis output",
			slog.String("error", err.Error()),
			slog.String("raw", raw),
		)
		return DiagnosisResult{}, err
	}
	return result, nil
}

// decodeDiagnosisResult parses a raw model response into a DiagnosisResult.
// Models occasionally wrap the JSON object in markdown code fences; those are
// stripped before validation.
func decodeDiagnosisResult(raw string) (DiagnosisResult, error) {
	result, err := diagnosisOutputSchema.ValidateJSON(stripMarkdownFences(raw))
	if err != nil {
		return DiagnosisResult{}, err
	}
	// The result lists must never be nil, so downstream consumers can range
	// and serialize them without nil checks.
	if result.Conditions == nil {
		result.Conditions = []string{}
	}
	if result.FollowUpQuestions == nil {
		result.FollowUpQuestions = []string{}
	}
	if result.FurtherTests == nil {
		result.FurtherTests = []string{}
	}
	return result, nil
}

func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
