// internal/classifier/classifier_test.go
package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_Renovation(t *testing.T) {
	res := Classify("I want to remodel my kitchen with new cabinets", nil)

	assert.Equal(t, CategoryRenovation, res.Category)
	assert.Greater(t, res.Confidence, 0.3)
	assert.Equal(t, "text", res.Signal)
}

func TestClassify_Deterministic(t *testing.T) {
	first := Classify("I want to remodel my kitchen with new cabinets", nil)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Classify("I want to remodel my kitchen with new cabinets", nil))
	}
}

func TestClassify_Garbage(t *testing.T) {
	res := Classify("blorb flarble", nil)

	assert.Equal(t, CategoryOther, res.Category)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestClassify_EmptyText(t *testing.T) {
	res := Classify("", nil)

	assert.Equal(t, CategoryOther, res.Category)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestClassify_VisionBoost(t *testing.T) {
	res := Classify("I need help with my yard", []string{"grass", "lawnmower"})

	assert.Equal(t, CategoryMaintenance, res.Category)
	assert.GreaterOrEqual(t, res.Confidence, 0.4)
	assert.Equal(t, "vision:grass", res.Signal)
}

func TestClassify_VisionIgnoredWhenTextStrong(t *testing.T) {
	res := Classify("remodel the kitchen and bathroom, gut renovation", []string{"grass"})

	assert.Equal(t, CategoryRenovation, res.Category)
	assert.Equal(t, "text", res.Signal)
}

func TestClassify_UnknownTagsContributeNothing(t *testing.T) {
	res := Classify("hello there", []string{"sky", "cloud"})

	assert.Equal(t, CategoryOther, res.Category)
	assert.Equal(t, 0.0, res.Confidence)
}

func TestClassify_Categories(t *testing.T) {
	tests := []struct {
		text     string
		category string
	}{
		{"Need roof fix ~$8000", CategoryRepair},
		{"the pipe is broken and there is a leak", CategoryRepair},
		{"install a new unit for the ac", CategoryInstallation},
		{"Need lawn mowing", CategoryMaintenance},
		{"build a deck on a concrete foundation", CategoryConstruction},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := Classify(tt.text, nil)
			assert.Equal(t, tt.category, res.Category)
			assert.Greater(t, res.Confidence, 0.0)
		})
	}
}

func TestClassify_WholeWordMatching(t *testing.T) {
	// "mower" must not hit the "mow" trigger as a substring.
	res := Classify("mower", nil)
	assert.Equal(t, CategoryOther, res.Category)
}

func TestClassify_ConfidenceRounded(t *testing.T) {
	res := Classify("fix the leak", nil) // 2 of 8 repair triggers
	assert.Equal(t, 0.25, res.Confidence)
}

func TestCategories_ClosedVocabulary(t *testing.T) {
	assert.Equal(t, []string{
		"repair", "renovation", "installation", "maintenance", "construction", "other",
	}, Categories())
}
