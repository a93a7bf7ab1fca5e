package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"google.golang.org/genai"
)

// convertToGenaiSchema converts a JSON Schema map into a genai.Schema
// for Gemini's native structured output. Supports the subset used here:
// object, array, string, number, integer, boolean, enum, required.
func convertToGenaiSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	out := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		switch t {
		case "object":
			out.Type = genai.TypeObject
		case "array":
			out.Type = genai.TypeArray
		case "string":
			out.Type = genai.TypeString
		case "number":
			out.Type = genai.TypeNumber
		case "integer":
			out.Type = genai.TypeInteger
		case "boolean":
			out.Type = genai.TypeBoolean
		}
	}

	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}

	if enum, ok := schema["enum"].([]interface{}); ok {
		for _, v := range enum {
			if s, ok := v.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	}

	if props, ok := schema["properties"].(map[string]interface{}); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]interface{}); ok {
				out.Properties[name] = convertToGenaiSchema(sub)
			}
		}
	}

	if items, ok := schema["items"].(map[string]interface{}); ok {
		out.Items = convertToGenaiSchema(items)
	}

	if required, ok := schema["required"].([]interface{}); ok {
		for _, v := range required {
			if s, ok := v.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}

	return out
}

// schemaPromptSuffix renders an instruction block for providers without
// native structured output support.
func schemaPromptSuffix(schema map[string]interface{}) string {
	if schema == nil {
		return ""
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("\n\nRespond with a single JSON object matching this JSON Schema, with no prose before or after it:\n%s", string(encoded))
}

// DecodeJSON parses a model response into v. Models wrap JSON in code
// fences or emit slightly malformed output; this strips fences and
// falls back to jsonrepair before giving up.
func DecodeJSON(text string, v interface{}) error {
	cleaned := stripCodeFences(text)

	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}

	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("repaired response is not valid JSON: %w", err)
	}

	return nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
