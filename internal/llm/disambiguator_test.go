package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/polimatch/polimatch/internal/common"
	"github.com/polimatch/polimatch/internal/match"
	"github.com/polimatch/polimatch/internal/model"
	"github.com/polimatch/polimatch/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is a canned-response Client for tests.
type stubClient struct {
	response ResolveResponse
	err      error
	prompts  []string
}

func (s *stubClient) Resolve(_ context.Context, prompt string) (ResolveResponse, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return ResolveResponse{}, s.err
	}
	return s.response, nil
}

func newTestDisambiguator(client Client) *Disambiguator {
	return &Disambiguator{
		client:  client,
		limiter: newRateLimiter(600),
		retryOpts: service.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			Multiplier:   2.0,
		},
	}
}

func testShortlist() []match.ScoredPolitician {
	return []match.ScoredPolitician{
		{Politician: model.Politician{ID: 3, Name: "山田太郎", Party: "自由民主党"}, Score: 0.6},
		{Politician: model.Politician{ID: 9, Name: "山田太郎", Party: "自由民主党"}, Score: 0.6},
	}
}

func TestDisambiguator_Resolve(t *testing.T) {
	chosen := int64(9)
	client := &stubClient{response: ResolveResponse{PoliticianID: &chosen, Confidence: 0.85}}
	d := newTestDisambiguator(client)
	defer d.Close()

	resolution, err := d.Resolve(context.Background(),
		model.ExtractedCandidate{ID: "c-1", Name: "山田太郎"}, testShortlist())
	require.NoError(t, err)
	require.NotNil(t, resolution.PoliticianID)
	assert.Equal(t, chosen, *resolution.PoliticianID)
	assert.InDelta(t, 0.85, resolution.Confidence, 0.0001)
	assert.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "id 9: 山田太郎")
}

func TestDisambiguator_Resolve_DiscardsIDOutsideShortlist(t *testing.T) {
	hallucinated := int64(777)
	client := &stubClient{response: ResolveResponse{PoliticianID: &hallucinated, Confidence: 0.95}}
	d := newTestDisambiguator(client)
	defer d.Close()

	resolution, err := d.Resolve(context.Background(),
		model.ExtractedCandidate{ID: "c-1", Name: "山田太郎"}, testShortlist())
	require.NoError(t, err)
	assert.Nil(t, resolution.PoliticianID, "an id not in the shortlist is no opinion")
	assert.Zero(t, resolution.Confidence)
}

func TestDisambiguator_Resolve_NoOpinion(t *testing.T) {
	client := &stubClient{response: ResolveResponse{Confidence: 0.4}}
	d := newTestDisambiguator(client)
	defer d.Close()

	resolution, err := d.Resolve(context.Background(),
		model.ExtractedCandidate{ID: "c-1", Name: "山田太郎"}, testShortlist())
	require.NoError(t, err)
	assert.Nil(t, resolution.PoliticianID)
	assert.InDelta(t, 0.4, resolution.Confidence, 0.0001)
}

func TestDisambiguator_Resolve_EmptyShortlistSkipsCall(t *testing.T) {
	client := &stubClient{}
	d := newTestDisambiguator(client)
	defer d.Close()

	resolution, err := d.Resolve(context.Background(),
		model.ExtractedCandidate{ID: "c-1", Name: "山田太郎"}, nil)
	require.NoError(t, err)
	assert.Nil(t, resolution.PoliticianID)
	assert.Empty(t, client.prompts)
}

func TestDisambiguator_Resolve_RetriesThenFails(t *testing.T) {
	client := &stubClient{err: errors.New("upstream 500")}
	d := newTestDisambiguator(client)
	defer d.Close()

	_, err := d.Resolve(context.Background(),
		model.ExtractedCandidate{ID: "c-1", Name: "山田太郎"}, testShortlist())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDisambiguation)
	assert.Len(t, client.prompts, 2, "the call is retried before giving up")
}
