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
	"strings"

	"github.com/openai/openai-go/v2"
)

// NarrativeUpdater maintains the cumulative medical narrative of a
// conversation. Given the current narrative and a newly transcribed
// conversation chunk, it returns the updated full narrative. It may return
// the narrative unchanged when the chunk carries no new medical information.
type NarrativeUpdater interface {
	UpdateNarrative(ctx context.Context, narrative, transcript string) (string, error)
}

const narrativeSystemPrompt = `You are a medical listening AI assistant.
Your role is to maintain a medical summary of the patient's condition based on doctor-patient conversations.
Update the summary with new relevant medical information while maintaining a coherent narrative.
Keep the summary concise but comprehensive, focusing on symptoms, duration, triggers, and relevant medical history.
Use clear, short sentences.`

// OpenAINarrativeUpdater is a NarrativeUpdater backed by an OpenAI chat
// completions model.
type OpenAINarrativeUpdater struct {
	model  openai.ChatModel
	client openai.Client
}

type OpenAINarrativeUpdaterParams struct {
	Client openai.Client

	// Optional model name. Defaults to DefaultNarrativeModel.
	Model string
}

// NewOpenAINarrativeUpdater creates a new narrative updater.
func NewOpenAINarrativeUpdater(params OpenAINarrativeUpdaterParams) *OpenAINarrativeUpdater {
	model := params.Model
	if model == "" {
		model = DefaultNarrativeModel
	}
	return &OpenAINarrativeUpdater{
		model:  openai.ChatModel(model),
		client: params.Client,
	}
}

func (u *OpenAINarrativeUpdater) UpdateNarrative(ctx context.Context, narrative, transcript string) (string, error) {
	response, err := u.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: u.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(narrativeSystemPrompt),
			openai.UserMessage(buildNarrativePrompt(narrative, transcript)),
		},
		// Low temperature for consistency across incremental updates.
		Temperature: openai.Float(0.3),
		MaxTokens:   openai.Int(300),
	})
	if err != nil {
		return "", fmt.Errorf("narrative update error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", NewModelBehaviorError("narrative model returned no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func buildNarrativePrompt(narrative, transcript string) string {
	current := narrative
	if current == "" {
		current = "No medical information yet."
	}
	return fmt.Sprintf(`Current medical summary:
%s

New conversation:
%s

Update the medical summary to include any new relevant medical information from this conversation.
Keep sentences short and clear. Avoid repetition.
If no new medical information is present, return the current summary unchanged.
Focus on: patient demographics, symptoms, duration, triggers, medical history, medications, and relevant context.`,
		current, transcript)
}
