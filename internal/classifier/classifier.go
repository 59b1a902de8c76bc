// internal/classifier/classifier.go
package classifier

import (
	"math"
	"regexp"
	"strings"
)

// Result is one classification outcome. Signal names the evidence that
// drove the decision ("text", "vision:<label>", or "none") so matching
// decisions can be audited later.
type Result struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Signal     string  `json:"signal"`
}

const (
	CategoryRepair       = "repair"
	CategoryRenovation   = "renovation"
	CategoryInstallation = "installation"
	CategoryMaintenance  = "maintenance"
	CategoryConstruction = "construction"
	CategoryOther        = "other"
)

// hintThreshold is the text score below which vision labels are consulted;
// hintFloor is the minimum confidence granted to a vision-matched category.
const (
	hintThreshold = 0.25
	hintFloor     = 0.45
)

// categories fixes the scoring order. Ties resolve to the earliest entry.
var categories = []string{
	CategoryRepair,
	CategoryRenovation,
	CategoryInstallation,
	CategoryMaintenance,
	CategoryConstruction,
}

// triggers holds the keyword set per category. Score for a category is the
// fraction of its triggers found as whole words in the lower-cased text.
var triggers = map[string][]string{
	CategoryRepair:       {"repair", "fix", "leak", "broken", "damage", "roof", "hole", "crack"},
	CategoryRenovation:   {"remodel", "renovation", "renovate", "kitchen", "bathroom", "basement", "cabinets", "countertop"},
	CategoryInstallation: {"install", "installation", "mount", "set up", "new unit", "replace faucet", "hook up"},
	CategoryMaintenance:  {"mow", "mowing", "lawn", "clean", "cleaning", "service", "upkeep", "maintenance"},
	CategoryConstruction: {"build", "construction", "addition", "extension", "deck", "foundation", "concrete", "framing"},
}

// visionHints maps analysis labels to the category they suggest when the
// text alone is inconclusive.
var visionHints = map[string]string{
	"grass":        CategoryMaintenance,
	"lawn":         CategoryMaintenance,
	"lawnmower":    CategoryMaintenance,
	"tree":         CategoryMaintenance,
	"leaves":       CategoryMaintenance,
	"gutter":       CategoryMaintenance,
	"rubble":       CategoryRepair,
	"mold":         CategoryRepair,
	"water damage": CategoryRepair,
	"broken glass": CategoryRepair,
	"crack":        CategoryRepair,
	"blueprint":    CategoryConstruction,
	"scaffolding":  CategoryConstruction,
	"lumber":       CategoryConstruction,
	"cabinets":     CategoryRenovation,
	"tiles":        CategoryRenovation,
}

// triggerPatterns holds the compiled whole-word matcher per trigger.
var triggerPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, words := range triggers {
		for _, w := range words {
			if _, ok := triggerPatterns[w]; !ok {
				triggerPatterns[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
			}
		}
	}
}

// Classify scores the text against every category's trigger set and returns
// the best match. When the text score is weak and vision labels are
// supplied, the first label with a known hint decides the category at a
// confidence floor. Identical inputs always yield identical outputs; no
// input ever raises an error.
func Classify(text string, visionTags []string) Result {
	lower := strings.ToLower(text)

	best := CategoryOther
	bestScore := 0.0
	for _, cat := range categories {
		words := triggers[cat]
		hits := 0
		for _, w := range words {
			if triggerPatterns[w].MatchString(lower) {
				hits++
			}
		}
		score := float64(hits) / float64(len(words))
		if score > bestScore {
			best = cat
			bestScore = score
		}
	}

	signal := "text"
	if bestScore < hintThreshold {
		for _, tag := range visionTags {
			cat, ok := visionHints[strings.ToLower(strings.TrimSpace(tag))]
			if !ok {
				continue
			}
			best = cat
			if bestScore < hintFloor {
				bestScore = hintFloor
			}
			signal = "vision:" + strings.ToLower(strings.TrimSpace(tag))
			break
		}
	}

	if bestScore == 0 {
		return Result{Category: CategoryOther, Confidence: 0.0, Signal: "none"}
	}

	return Result{
		Category:   best,
		Confidence: round3(bestScore),
		Signal:     signal,
	}
}

// Categories returns the closed category vocabulary, fallback included.
func Categories() []string {
	out := make([]string, 0, len(categories)+1)
	out = append(out, categories...)
	out = append(out, CategoryOther)
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
