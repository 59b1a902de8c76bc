package bidcard

import (
	"math"
	"time"

	"github.com/google/uuid"

	"bidflow/internal/classifier"
)

// visionPresenceHigh is used when at least one photo contributed to the
// conversation; visionPresenceLow when none did.
const (
	visionPresenceHigh = 0.9
	visionPresenceLow  = 0.5
)

// Input carries everything the assembler needs from a completed
// conversation.
type Input struct {
	UserID     string
	ProjectID  string
	Card       map[string]interface{}
	Category   classifier.Result
	VisionSeen bool
}

// Assembler builds final bid cards. The weights and threshold are
// product parameters injected from configuration.
type Assembler struct {
	TextWeight     float64
	VisionWeight   float64
	FinalThreshold float64
}

func NewAssembler(textWeight, visionWeight, finalThreshold float64) *Assembler {
	return &Assembler{
		TextWeight:     textWeight,
		VisionWeight:   visionWeight,
		FinalThreshold: finalThreshold,
	}
}

// Assemble produces the bid card for a conversation whose slots are all
// filled. The confidence score blends the text classification with a
// vision presence factor, and decides whether the card ships as final
// or needs human review as a draft.
func (a *Assembler) Assemble(in Input) *Card {
	presence := visionPresenceLow
	if in.VisionSeen {
		presence = visionPresenceHigh
	}
	confidence := round2(a.TextWeight*in.Category.Confidence + a.VisionWeight*presence)

	status := StatusDraft
	if confidence+1e-9 >= a.FinalThreshold {
		status = StatusFinal
	}

	jobType := stringSlot(in.Card, "job_type")
	category := stringSlot(in.Card, "category")
	if category == "" {
		category = MapCategory(jobType)
	}

	min, max := ParseBudget(stringSlot(in.Card, "budget_range"))

	return &Card{
		ID:               uuid.New().String(),
		UserID:           in.UserID,
		ProjectID:        in.ProjectID,
		Category:         category,
		JobType:          jobType,
		BudgetMin:        min,
		BudgetMax:        max,
		Timeline:         stringSlot(in.Card, "timeline"),
		Location:         stringSlot(in.Card, "location"),
		GroupBidding:     boolSlot(in.Card, "group_bidding"),
		DamageAssessment: stringSlot(in.Card, "damage_assessment"),
		AIConfidence:     confidence,
		Status:           status,
		CreatedAt:        time.Now().UTC(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func stringSlot(card map[string]interface{}, key string) string {
	if s, ok := card[key].(string); ok {
		return s
	}
	return ""
}

func boolSlot(card map[string]interface{}, key string) bool {
	switch v := card[key].(type) {
	case bool:
		return v
	case string:
		switch v {
		case "yes", "true", "y":
			return true
		}
	}
	return false
}
