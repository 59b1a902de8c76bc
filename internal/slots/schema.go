// internal/slots/schema.go
package slots

import "strings"

// Definition describes one bid card slot: the question asked to fill it,
// an optional closed set of allowed values, and its priority rank
// (lower rank is asked first).
type Definition struct {
	Key        string
	Prompt     string
	Options    []string
	Priority   int
	VisionOnly bool
}

// definitions is the static slot schema, loaded once and immutable for the
// process lifetime. Ordered by priority.
var definitions = []Definition{
	{
		Key:      "category",
		Prompt:   "What category best fits this project (repair, renovation, installation, maintenance, construction, other)?",
		Options:  []string{"repair", "renovation", "installation", "maintenance", "construction", "other"},
		Priority: 1,
	},
	{
		Key:      "job_type",
		Prompt:   "Which specific job is it? (e.g. roof repair, lawn mowing)",
		Priority: 2,
	},
	{
		Key:      "budget_range",
		Prompt:   "What budget range do you have in mind (rough estimate is fine)?",
		Priority: 3,
	},
	{
		Key:      "timeline",
		Prompt:   "When would you like the work to start and finish?",
		Priority: 4,
	},
	{
		Key:      "location",
		Prompt:   "Where is the project located?",
		Priority: 5,
	},
	{
		Key:      "group_bidding",
		Prompt:   "Are you open to group bidding to lower cost? (yes/no)",
		Options:  []string{"yes", "no"},
		Priority: 6,
	},
	// Filled from photo analysis only, never asked and never required.
	{
		Key:        "damage_assessment",
		Prompt:     "",
		Priority:   7,
		VisionOnly: true,
	},
}

// Definitions returns the required slot definitions in priority order.
// Vision-only slots are excluded; they are opportunistic, not asked.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		if d.VisionOnly {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Get returns the definition for key, including vision-only slots.
func Get(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

// Validate reports whether value is acceptable for the named slot.
// Slots with enumerated options match case-insensitively; all other slots
// accept any non-empty value.
func Validate(key string, value interface{}) bool {
	def, ok := Get(key)
	if !ok {
		return false
	}
	if !present(value) {
		return false
	}
	if len(def.Options) == 0 {
		return true
	}
	s, ok := value.(string)
	if !ok {
		return false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, opt := range def.Options {
		if s == strings.ToLower(opt) {
			return true
		}
	}
	return false
}

// Filled reports whether the card has a valid value for key.
func Filled(card map[string]interface{}, key string) bool {
	v, ok := card[key]
	if !ok {
		return false
	}
	return Validate(key, v)
}

// Missing returns the required slots still unfilled, in priority order.
func Missing(card map[string]interface{}) []string {
	var out []string
	for _, d := range Definitions() {
		if !Filled(card, d.Key) {
			out = append(out, d.Key)
		}
	}
	return out
}

// present reports whether a raw value counts as supplied. Booleans always
// count: group_bidding=false is an answer, not an absence.
func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return true
	case []string:
		return len(t) > 0
	case []interface{}:
		return len(t) > 0
	default:
		return true
	}
}
