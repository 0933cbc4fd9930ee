package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantID   *int64
		wantConf float64
		wantErr  bool
	}{
		{
			name:     "plain json",
			content:  `{"politician_id": 42, "confidence": 0.85}`,
			wantID:   int64Ptr(42),
			wantConf: 0.85,
		},
		{
			name:     "null politician id",
			content:  `{"politician_id": null, "confidence": 0.3}`,
			wantID:   nil,
			wantConf: 0.3,
		},
		{
			name:     "json fenced with language tag",
			content:  "```json\n{\"politician_id\": 7, \"confidence\": 0.9}\n```",
			wantID:   int64Ptr(7),
			wantConf: 0.9,
		},
		{
			name:     "json fenced without language tag",
			content:  "```\n{\"politician_id\": 7, \"confidence\": 0.9}\n```",
			wantID:   int64Ptr(7),
			wantConf: 0.9,
		},
		{
			name:     "surrounding whitespace",
			content:  "  \n{\"politician_id\": 1, \"confidence\": 1.0}\n  ",
			wantID:   int64Ptr(1),
			wantConf: 1.0,
		},
		{
			name:    "not json",
			content: "I think it is politician 42.",
			wantErr: true,
		},
		{
			name:    "confidence above one",
			content: `{"politician_id": 1, "confidence": 1.5}`,
			wantErr: true,
		},
		{
			name:    "negative confidence",
			content: `{"politician_id": 1, "confidence": -0.1}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResolution(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.wantConf, got.Confidence, 0.0001)
			if tt.wantID == nil {
				assert.Nil(t, got.PoliticianID)
			} else {
				require.NotNil(t, got.PoliticianID)
				assert.Equal(t, *tt.wantID, *got.PoliticianID)
			}
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "no fences", content: `{"a": 1}`, want: `{"a": 1}`},
		{name: "json fence", content: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "bare fence", content: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "single line fence", content: "```{\"a\": 1}```", want: `{"a": 1}`},
		{name: "whitespace only", content: "  \n  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanMarkdownWrapper(tt.content))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcde...", truncate("abcdefgh", 5))

	// Multibyte text truncates on rune boundaries, not bytes.
	long := strings.Repeat("あ", 600)
	got := truncate(long, 500)
	assert.Equal(t, strings.Repeat("あ", 500)+"...", got)
}

func int64Ptr(v int64) *int64 { return &v }
