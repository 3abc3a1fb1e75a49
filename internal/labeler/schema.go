package labeler

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/abhisek/readlevel/internal/llm"
)

// buildSchema returns the structured-output schema for a label set. The
// schema name includes a hash of the labels because compiled schemas are
// cached by name.
func buildSchema(labels []string) *llm.Schema {
	enum := make([]any, len(labels))
	for i, l := range labels {
		enum[i] = l
	}

	sum := sha256.Sum256([]byte(strings.Join(labels, "\x00")))

	return &llm.Schema{
		Name:        "difficulty-label-" + hex.EncodeToString(sum[:4]),
		Description: "The reading difficulty of one passage for a young reader",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"difficulty": map[string]any{
					"type":        "string",
					"enum":        enum,
					"description": "The difficulty label, exactly as listed",
				},
				"confidence": map[string]any{
					"type":        "number",
					"minimum":     0,
					"maximum":     1,
					"description": "How sure you are, from 0.0 to 1.0",
				},
				"rationale": map[string]any{
					"type":        "string",
					"description": "One sentence naming the features that decided the label",
				},
			},
			"required":             []any{"difficulty", "confidence", "rationale"},
			"additionalProperties": false,
		},
	}
}
