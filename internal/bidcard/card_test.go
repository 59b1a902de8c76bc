package bidcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapCategory(t *testing.T) {
	tests := []struct {
		jobType string
		want    string
	}{
		{"roof repair", "repair"},
		{"Roof Repair", "repair"},
		{"emergency roof repair needed", "repair"},
		{"kitchen renovation", "renovation"},
		{"lawn mowing", "maintenance"},
		{"deck construction", "construction"},
		{"window installation", "installation"},
		{"underwater basket weaving", "other"},
		{"", "other"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MapCategory(tt.jobType), tt.jobType)
	}
}

func TestParseBudgetRange(t *testing.T) {
	min, max := ParseBudget("5000-8000")
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.Equal(t, 5000.0, *min)
	assert.Equal(t, 8000.0, *max)

	min, max = ParseBudget("$5,000 to $15,000")
	require.NotNil(t, min)
	assert.Equal(t, 5000.0, *min)
	assert.Equal(t, 15000.0, *max)

	min, max = ParseBudget("5k-10k")
	require.NotNil(t, min)
	assert.Equal(t, 5000.0, *min)
	assert.Equal(t, 10000.0, *max)
}

func TestParseBudgetSingleValue(t *testing.T) {
	min, max := ParseBudget("~$8000")
	require.NotNil(t, min)
	require.NotNil(t, max)
	assert.InDelta(t, 6400.0, *min, 0.001)
	assert.InDelta(t, 9600.0, *max, 0.001)
}

func TestParseBudgetUnparseable(t *testing.T) {
	for _, s := range []string{"", "whatever fits", "cheap-ish"} {
		min, max := ParseBudget(s)
		assert.Nil(t, min, s)
		assert.Nil(t, max, s)
	}
}
