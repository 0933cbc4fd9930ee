package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips markdown code fences that models sometimes
// wrap around JSON responses.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```json")
			content = strings.TrimPrefix(content, "```")
		}
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")

	return strings.TrimSpace(content)
}

// parseResolution extracts the chosen politician and confidence from the
// LLM response.
func parseResolution(content string) (ResolveResponse, error) {
	var jsonResp struct {
		PoliticianID *int64  `json:"politician_id"`
		Confidence   float64 `json:"confidence"`
	}

	content = cleanMarkdownWrapper(content)

	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return ResolveResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	if jsonResp.Confidence < 0 || jsonResp.Confidence > 1 {
		return ResolveResponse{}, fmt.Errorf("confidence %f out of range", jsonResp.Confidence)
	}

	return ResolveResponse{
		PoliticianID: jsonResp.PoliticianID,
		Confidence:   jsonResp.Confidence,
	}, nil
}
