// Package plan loads and validates action plans, the JSON payload produced by
// an upstream analysis step.
package plan

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kubegenie/kubegenie/pkg/models"
)

const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "ActionPlan",
  "type": "object",
  "required": ["name", "actions"],
  "properties": {
    "name": {"type": "string", "minLength": 3},
    "description": {"type": "string"},
    "actions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "agent_id", "action_type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "agent_id": {"type": "string", "minLength": 1},
          "action_type": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "parameters": {"type": "object"},
          "timeout_seconds": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

// Parse validates raw JSON against the plan schema and decodes it.
func Parse(data []byte) (*models.ActionPlan, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(planSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate action plan: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, fmt.Errorf("invalid action plan: %s", strings.Join(details, "; "))
	}

	var actionPlan models.ActionPlan
	if err := json.Unmarshal(data, &actionPlan); err != nil {
		return nil, fmt.Errorf("failed to decode action plan: %w", err)
	}

	return &actionPlan, nil
}

// Load reads and parses an action plan file.
func Load(path string) (*models.ActionPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read action plan %s: %w", path, err)
	}

	return Parse(data)
}
