package bidcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidflow/internal/classifier"
)

func fullCard() map[string]interface{} {
	return map[string]interface{}{
		"category":      "repair",
		"job_type":      "roof repair",
		"budget_range":  "5000-8000",
		"timeline":      "immediately",
		"location":      "Austin, TX",
		"group_bidding": "no",
	}
}

func TestAssembleConfidenceBlend(t *testing.T) {
	a := NewAssembler(0.6, 0.4, 0.70)

	// With photos: 0.6*0.57 + 0.4*0.9 = 0.702, rounded to 0.70.
	card := a.Assemble(Input{
		UserID:     "user-1",
		ProjectID:  "proj-1",
		Card:       fullCard(),
		Category:   classifier.Result{Category: "repair", Confidence: 0.57, Signal: "text"},
		VisionSeen: true,
	})
	assert.Equal(t, 0.70, card.AIConfidence)
	assert.Equal(t, StatusFinal, card.Status)

	// Slightly weaker text signal lands under the threshold.
	card = a.Assemble(Input{
		UserID:     "user-1",
		ProjectID:  "proj-1",
		Card:       fullCard(),
		Category:   classifier.Result{Category: "repair", Confidence: 0.55, Signal: "text"},
		VisionSeen: true,
	})
	assert.Equal(t, 0.69, card.AIConfidence)
	assert.Equal(t, StatusDraft, card.Status)
}

func TestAssembleVisionPresence(t *testing.T) {
	a := NewAssembler(0.6, 0.4, 0.70)
	in := Input{
		UserID:    "user-1",
		ProjectID: "proj-1",
		Card:      fullCard(),
		Category:  classifier.Result{Category: "repair", Confidence: 1.0, Signal: "text"},
	}

	withoutVision := a.Assemble(in)
	assert.Equal(t, 0.80, withoutVision.AIConfidence)

	in.VisionSeen = true
	withVision := a.Assemble(in)
	assert.Equal(t, 0.96, withVision.AIConfidence)
	assert.Greater(t, withVision.AIConfidence, withoutVision.AIConfidence)
}

func TestAssembleFields(t *testing.T) {
	a := NewAssembler(0.6, 0.4, 0.70)
	values := fullCard()
	values["group_bidding"] = "yes"
	values["damage_assessment"] = "moderate shingle damage"

	card := a.Assemble(Input{
		UserID:     "user-9",
		ProjectID:  "proj-9",
		Card:       values,
		Category:   classifier.Result{Category: "repair", Confidence: 0.25, Signal: "text"},
		VisionSeen: true,
	})

	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "user-9", card.UserID)
	assert.Equal(t, "proj-9", card.ProjectID)
	assert.Equal(t, "repair", card.Category)
	assert.Equal(t, "roof repair", card.JobType)
	require.NotNil(t, card.BudgetMin)
	assert.Equal(t, 5000.0, *card.BudgetMin)
	assert.Equal(t, 8000.0, *card.BudgetMax)
	assert.True(t, card.GroupBidding)
	assert.Equal(t, "moderate shingle damage", card.DamageAssessment)
	assert.False(t, card.CreatedAt.IsZero())
}

func TestAssembleCategoryFallsBackToJobType(t *testing.T) {
	a := NewAssembler(0.6, 0.4, 0.70)
	values := fullCard()
	delete(values, "category")
	values["job_type"] = "lawn mowing"

	card := a.Assemble(Input{
		UserID:    "user-1",
		ProjectID: "proj-1",
		Card:      values,
		Category:  classifier.Result{Category: "other", Confidence: 0, Signal: "none"},
	})
	assert.Equal(t, "maintenance", card.Category)
}
