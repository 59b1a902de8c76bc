package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankOrdering(t *testing.T) {
	assert.Greater(t, Rank(SourceUser), Rank(SourceSpeech))
	assert.Greater(t, Rank(SourceSpeech), Rank(SourceVision))
	assert.Greater(t, Rank(SourceVision), Rank(Source("bogus")))
}

func TestMergeVision(t *testing.T) {
	tests := []struct {
		name       string
		ev         VisionEvidence
		wantValues map[string]interface{}
	}{
		{
			name:       "no labels contributes nothing",
			ev:         VisionEvidence{Description: "blurry"},
			wantValues: map[string]interface{}{},
		},
		{
			name: "roof labels fill job type",
			ev: VisionEvidence{
				Labels:           []string{"roof", "shingles", "sky"},
				DamageAssessment: "moderate shingle damage",
			},
			wantValues: map[string]interface{}{
				"job_type":          "roof repair",
				"damage_assessment": "moderate shingle damage",
			},
		},
		{
			name: "lawn labels map to lawn care",
			ev:   VisionEvidence{Labels: []string{"Grass", "tree"}},
			wantValues: map[string]interface{}{
				"job_type": "lawn care",
			},
		},
		{
			name:       "unknown labels only",
			ev:         VisionEvidence{Labels: []string{"car", "sky"}},
			wantValues: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MergeVision(tt.ev)
			assert.Equal(t, SourceVision, p.Source)
			assert.Equal(t, tt.wantValues, p.Values)
		})
	}
}

func TestAcceptSpeech(t *testing.T) {
	const cutoff = -1.0

	_, ok := AcceptSpeech(SpeechEvidence{Transcript: "mumbled noise", AvgLogProb: -1.5}, cutoff)
	assert.False(t, ok, "transcript below cutoff should be rejected")

	_, ok = AcceptSpeech(SpeechEvidence{Transcript: "   ", AvgLogProb: -0.2}, cutoff)
	assert.False(t, ok, "blank transcript should be rejected")

	te, ok := AcceptSpeech(SpeechEvidence{Transcript: "fix my roof", AvgLogProb: -0.4}, cutoff)
	require.True(t, ok)
	assert.Equal(t, "fix my roof", te.Text)
	assert.Equal(t, SourceSpeech, te.Source)

	_, ok = AcceptSpeech(SpeechEvidence{Transcript: "edge case", AvgLogProb: -1.0}, cutoff)
	assert.True(t, ok, "transcript exactly at cutoff should be accepted")
}

func TestMergeTextBudget(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Need roof fix ~$8000", "$8000"},
		{"somewhere between 500 to 800", "500 to 800"},
		{"my budget is $5,000-$15,000", "$5,000-$15,000"},
	}
	for _, tt := range tests {
		p := MergeText(TextEvidence{Text: tt.text, Source: SourceUser}, "")
		assert.Equal(t, tt.want, p.Values["budget_range"], tt.text)
	}

	p := MergeText(TextEvidence{Text: "no numbers here", Source: SourceUser}, "")
	_, ok := p.Values["budget_range"]
	assert.False(t, ok)
}

func TestMergeTextTimeline(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"need it done ASAP", "immediately"},
		{"sometime next month works", "within 1 month"},
		{"maybe in a couple months", "1-3 months"},
		{"eventually, no rush", "more than a year"},
	}
	for _, tt := range tests {
		p := MergeText(TextEvidence{Text: tt.text, Source: SourceUser}, "")
		assert.Equal(t, tt.want, p.Values["timeline"], tt.text)
	}
}

func TestMergeTextLocation(t *testing.T) {
	p := MergeText(TextEvidence{Text: "the house is in Austin, TX", Source: SourceUser}, "")
	assert.Equal(t, "Austin, TX", p.Values["location"])

	p = MergeText(TextEvidence{Text: "we live in the Portland area", Source: SourceUser}, "")
	assert.Equal(t, "Portland", p.Values["location"])

	// Lowercase phrases after "in" are not mistaken for places.
	p = MergeText(TextEvidence{Text: "a leak in the kitchen", Source: SourceUser}, "")
	_, ok := p.Values["location"]
	assert.False(t, ok)
}

func TestMergeTextJobTypeAndGroupBidding(t *testing.T) {
	p := MergeText(TextEvidence{Text: "Need lawn mowing this week", Source: SourceUser}, "")
	assert.Equal(t, "lawn mowing", p.Values["job_type"])

	p = MergeText(TextEvidence{Text: "Need roof fix", Source: SourceUser}, "")
	_, ok := p.Values["job_type"]
	assert.False(t, ok, "vague wording should not guess a job type")

	p = MergeText(TextEvidence{Text: "happy to do group bidding", Source: SourceUser}, "")
	assert.Equal(t, "yes", p.Values["group_bidding"])

	p = MergeText(TextEvidence{Text: "not interested in group bidding", Source: SourceUser}, "")
	assert.Equal(t, "no", p.Values["group_bidding"])
}

func TestMergeTextPendingSlot(t *testing.T) {
	// A plain reply answers the slot that was just asked about.
	p := MergeText(TextEvidence{Text: "Austin, TX", Source: SourceUser}, "location")
	assert.Equal(t, "Austin, TX", p.Values["location"])

	// An extractor hit takes priority over the raw capture.
	p = MergeText(TextEvidence{Text: "500 to 800", Source: SourceUser}, "budget_range")
	assert.Equal(t, "500 to 800", p.Values["budget_range"])

	p = MergeText(TextEvidence{Text: "yeah sure", Source: SourceUser}, "group_bidding")
	assert.Equal(t, "yes", p.Values["group_bidding"])

	p = MergeText(TextEvidence{Text: "nope", Source: SourceUser}, "group_bidding")
	assert.Equal(t, "no", p.Values["group_bidding"])

	p = MergeText(TextEvidence{Text: "", Source: SourceUser}, "location")
	assert.Empty(t, p.Values)
}
