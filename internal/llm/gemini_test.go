package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(testLabelSchema().Definition)

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %v", s.Type)
	}
	if len(s.Required) != 3 {
		t.Errorf("required = %v", s.Required)
	}
	d := s.Properties["difficulty"]
	if d == nil || d.Type != genai.TypeString || len(d.Enum) != 3 || d.Enum[2] != "medium" {
		t.Fatalf("difficulty = %+v", d)
	}
	c := s.Properties["confidence"]
	if c.Type != genai.TypeNumber || c.Minimum == nil || *c.Minimum != 0 || c.Maximum == nil || *c.Maximum != 1 {
		t.Errorf("confidence = %+v", c)
	}
}

func TestGeminiSchema_ArraysAndUnknownTypes(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "integer"},
	})
	if s.Type != genai.TypeArray || s.Items == nil || s.Items.Type != genai.TypeInteger {
		t.Errorf("array schema = %+v", s)
	}
	if got := geminiSchema(map[string]any{"type": "null"}).Type; got != genai.TypeString {
		t.Errorf("unknown type mapped to %v", got)
	}
}

func TestGeminiResponse(t *testing.T) {
	res := &genai.GenerateContentResponse{
		ModelVersion: "gemini-2.5-flash-001",
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(gradedEasy, genai.RoleModel),
			FinishReason: genai.FinishReasonMaxTokens,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     90,
			CandidatesTokenCount: 12,
		},
	}

	out := geminiResponse(res, "gemini-2.5-flash")
	if string(out.Content) != gradedEasy {
		t.Errorf("content = %s", out.Content)
	}
	if !out.Truncated || out.Model != "gemini-2.5-flash-001" || out.Usage.Total() != 102 {
		t.Errorf("response = %+v", out)
	}

	res.Candidates[0].FinishReason = genai.FinishReasonStop
	res.ModelVersion = ""
	out = geminiResponse(res, "gemini-2.5-flash")
	if out.Truncated || out.Model != "gemini-2.5-flash" {
		t.Errorf("response = %+v", out)
	}
}
