// internal/slots/schema_test.go
package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinitions_PriorityOrder(t *testing.T) {
	defs := Definitions()

	keys := make([]string, 0, len(defs))
	for _, d := range defs {
		keys = append(keys, d.Key)
	}

	assert.Equal(t, []string{
		"category", "job_type", "budget_range", "timeline", "location", "group_bidding",
	}, keys)

	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Priority, defs[i].Priority)
	}
}

func TestDefinitions_ExcludesVisionOnly(t *testing.T) {
	for _, d := range Definitions() {
		assert.False(t, d.VisionOnly, "vision-only slot %q must not be asked", d.Key)
	}

	def, ok := Get("damage_assessment")
	assert.True(t, ok)
	assert.True(t, def.VisionOnly)
}

func TestMissing_EmptyCard(t *testing.T) {
	missing := Missing(map[string]interface{}{})

	assert.Equal(t, "category", missing[0])
	assert.Len(t, missing, 6)
}

func TestMissing_PartialCard(t *testing.T) {
	card := map[string]interface{}{
		"category": "repair",
		"job_type": "roof repair",
	}

	missing := Missing(card)

	assert.Equal(t, []string{"budget_range", "timeline", "location", "group_bidding"}, missing)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		valid bool
	}{
		{"enum match", "category", "repair", true},
		{"enum match case-insensitive", "category", "Renovation", true},
		{"enum mismatch", "category", "landscaping", false},
		{"enum non-string", "category", 7, false},
		{"free text", "job_type", "roof repair", true},
		{"empty string", "job_type", "   ", false},
		{"nil", "timeline", nil, false},
		{"yes/no accepted", "group_bidding", "no", true},
		{"yes/no rejected", "group_bidding", "maybe", false},
		{"bool counts as supplied", "group_bidding", true, false}, // enum slots expect strings
		{"unknown slot", "favorite_color", "blue", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Validate(tt.key, tt.value))
		})
	}
}

func TestFilled_RejectsInvalidEnumValue(t *testing.T) {
	card := map[string]interface{}{"category": "gardening"}

	assert.False(t, Filled(card, "category"))
	assert.Equal(t, "category", Missing(card)[0])
}
