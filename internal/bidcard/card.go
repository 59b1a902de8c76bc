// Package bidcard assembles the final bid card from a completed
// conversation and persists it.
package bidcard

import (
	"strconv"
	"strings"
	"time"
)

const (
	StatusDraft = "draft"
	StatusFinal = "final"
)

// Card is the finished bid card handed to downstream consumers.
type Card struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	ProjectID        string    `json:"project_id"`
	Category         string    `json:"category"`
	JobType          string    `json:"job_type"`
	BudgetMin        *float64  `json:"budget_min,omitempty"`
	BudgetMax        *float64  `json:"budget_max,omitempty"`
	Timeline         string    `json:"timeline"`
	Location         string    `json:"location"`
	GroupBidding     bool      `json:"group_bidding"`
	DamageAssessment string    `json:"damage_assessment,omitempty"`
	AIConfidence     float64   `json:"ai_confidence"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// categoryMapping standardizes specific job types into the closed
// category vocabulary. Matched case-insensitively, by exact key first
// and substring second.
var categoryMapping = map[string]string{
	"roof repair":         "repair",
	"plumbing repair":     "repair",
	"electrical repair":   "repair",
	"hvac repair":         "repair",
	"appliance repair":    "repair",
	"structural repair":   "repair",
	"foundation repair":   "repair",
	"water damage repair": "repair",
	"siding repair":       "repair",
	"window repair":       "repair",
	"door repair":         "repair",
	"mold remediation":    "repair",

	"kitchen renovation":  "renovation",
	"bathroom renovation": "renovation",
	"basement renovation": "renovation",
	"attic renovation":    "renovation",
	"home renovation":     "renovation",
	"room addition":       "renovation",
	"interior renovation": "renovation",

	"window installation":        "installation",
	"door installation":          "installation",
	"flooring installation":      "installation",
	"appliance installation":     "installation",
	"hvac installation":          "installation",
	"solar panel installation":   "installation",
	"security system installation": "installation",
	"smart home installation":    "installation",

	"lawn maintenance":     "maintenance",
	"lawn mowing":          "maintenance",
	"lawn care":            "maintenance",
	"pool maintenance":     "maintenance",
	"hvac maintenance":     "maintenance",
	"gutter cleaning":      "maintenance",
	"chimney cleaning":     "maintenance",
	"pest control":         "maintenance",
	"seasonal maintenance": "maintenance",

	"new construction":    "construction",
	"home building":       "construction",
	"deck construction":   "construction",
	"fence construction":  "construction",
	"garage construction": "construction",
	"shed construction":   "construction",
	"pool construction":   "construction",

	"other": "other",
}

// MapCategory maps a free-form job type to a standard category,
// falling back to "other" when nothing matches.
func MapCategory(jobType string) string {
	jt := strings.ToLower(strings.TrimSpace(jobType))
	if jt == "" {
		return "other"
	}
	if cat, ok := categoryMapping[jt]; ok {
		return cat
	}
	for key, cat := range categoryMapping {
		if strings.Contains(jt, key) {
			return cat
		}
	}
	return "other"
}

// ParseBudget parses a budget string into a numeric range. Supported
// forms are "a-b", "a to b", and a single value which becomes the range
// 0.8v to 1.2v. Unparseable strings yield a nil range.
func ParseBudget(s string) (min, max *float64) {
	clean := strings.NewReplacer("$", "", ",", "", "~", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	if clean == "" {
		return nil, nil
	}

	var parts []string
	switch {
	case strings.Contains(clean, "-"):
		parts = strings.SplitN(clean, "-", 2)
	case strings.Contains(clean, " to "):
		parts = strings.SplitN(clean, " to ", 2)
	}

	if len(parts) == 2 {
		lo, ok1 := parseAmount(parts[0])
		hi, ok2 := parseAmount(parts[1])
		if !ok1 || !ok2 {
			return nil, nil
		}
		return &lo, &hi
	}

	v, ok := parseAmount(clean)
	if !ok {
		return nil, nil
	}
	lo, hi := v*0.8, v*1.2
	return &lo, &hi
}

// parseAmount reads a single dollar amount, honoring a "k" or
// "thousand" suffix.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "thousand"):
		mult = 1000
		s = strings.TrimSpace(strings.TrimSuffix(s, "thousand"))
	case strings.HasSuffix(s, "k"):
		mult = 1000
		s = strings.TrimSpace(strings.TrimSuffix(s, "k"))
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v * mult, true
}
