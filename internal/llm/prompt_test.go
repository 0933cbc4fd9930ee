package llm

import (
	"strings"
	"testing"

	"github.com/polimatch/polimatch/internal/match"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	candidate := model.ExtractedCandidate{
		ID:       "c-1",
		Name:     "山田太郎議員",
		Role:     "委員長",
		PartyRaw: "自民",
		RawText:  "委員長 山田太郎議員（自民）",
	}
	shortlist := []match.ScoredPolitician{
		{Politician: model.Politician{ID: 3, Name: "山田太郎", Party: "自由民主党", District: "東京都"}, Score: 0.6},
		{Politician: model.Politician{ID: 9, Name: "山田太郎", Party: "自由民主党"}, Score: 0.6},
	}

	prompt := buildPrompt(candidate, shortlist)

	assert.Contains(t, prompt, "name: 山田太郎議員")
	assert.Contains(t, prompt, "role: 委員長")
	assert.Contains(t, prompt, "party (as extracted): 自民")
	assert.Contains(t, prompt, "surrounding text: 委員長 山田太郎議員（自民）")
	assert.Contains(t, prompt, "id 3: 山田太郎, party 自由民主党, district 東京都")
	assert.Contains(t, prompt, "id 9: 山田太郎, party 自由民主党")
	assert.Contains(t, prompt, `{"politician_id": <id or null>, "confidence": <0.0-1.0>}`)
}

func TestBuildPrompt_OmitsEmptyFields(t *testing.T) {
	candidate := model.ExtractedCandidate{ID: "c-1", Name: "佐藤花子"}
	shortlist := []match.ScoredPolitician{
		{Politician: model.Politician{ID: 1, Name: "佐藤花子"}, Score: 0.3},
	}

	prompt := buildPrompt(candidate, shortlist)

	assert.NotContains(t, prompt, "role:")
	assert.NotContains(t, prompt, "party (as extracted):")
	assert.NotContains(t, prompt, "surrounding text:")
	assert.Contains(t, prompt, "id 1: 佐藤花子\n")
}

func TestBuildPrompt_TruncatesLongRawText(t *testing.T) {
	candidate := model.ExtractedCandidate{
		ID:      "c-1",
		Name:    "佐藤花子",
		RawText: strings.Repeat("発言", 600),
	}
	shortlist := []match.ScoredPolitician{
		{Politician: model.Politician{ID: 1, Name: "佐藤花子"}, Score: 0.3},
	}

	prompt := buildPrompt(candidate, shortlist)
	assert.Contains(t, prompt, "...")
	assert.Less(t, len(prompt), 3000)
}
