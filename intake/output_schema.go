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
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// OutputSchema captures the JSON schema of a structured model output type T,
// and validates/parses JSON produced by the LLM into T.
type OutputSchema[T any] struct {
	schema   map[string]any
	compiled *gojsonschema.Schema
}

// NewOutputSchema reflects the JSON schema for T and compiles it for
// validation. It panics in case of errors; for a safer variant, see
// SafeNewOutputSchema.
func NewOutputSchema[T any]() *OutputSchema[T] {
	result, err := SafeNewOutputSchema[T]()
	if err != nil {
		panic(err)
	}
	return result
}

// SafeNewOutputSchema reflects the JSON schema for T and compiles it for
// validation.
func SafeNewOutputSchema[T any]() (*OutputSchema[T], error) {
	var zero T
	// Keys are not marked required: a model omitting a key is tolerated,
	// a key with the wrong type is not.
	reflector := jsonschema.Reflector{
		Anonymous:                  true,
		AllowAdditionalProperties:  true,
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(zero)

	b, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to JSON-marshal JSON schema: %w", err)
	}
	var schemaMap map[string]any
	if err = json.Unmarshal(b, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to JSON-unmarshal JSON schema: %w", err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("failed to compile output JSON schema: %w", err)
	}

	return &OutputSchema[T]{
		schema:   schemaMap,
		compiled: compiled,
	}, nil
}

// JSONSchema returns the reflected JSON schema of T.
func (s *OutputSchema[T]) JSONSchema() map[string]any {
	return s.schema
}

// ValidateJSON validates jsonStr against the schema and unmarshals it into T.
// Invalid JSON is reported as a ModelBehaviorError.
func (s *OutputSchema[T]) ValidateJSON(jsonStr string) (T, error) {
	var output T

	result, err := s.compiled.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return output, ModelBehaviorErrorf("failed to validate output JSON: %w", err)
	}
	if !result.Valid() {
		return output, ModelBehaviorErrorf("output JSON does not match schema: %v", result.Errors())
	}

	if err = json.Unmarshal([]byte(jsonStr), &output); err != nil {
		return output, ModelBehaviorErrorf("failed to unmarshal output JSON: %w", err)
	}
	return output, nil
}
