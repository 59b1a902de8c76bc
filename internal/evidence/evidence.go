package evidence

import (
	"regexp"
	"strings"
)

// Source identifies the origin of an extracted slot value. Values from a
// higher ranked source overwrite values from a lower ranked one.
type Source string

const (
	SourceUser   Source = "user"
	SourceSpeech Source = "speech"
	SourceVision Source = "vision"
)

// Rank orders sources by trust. Typed user text outranks transcribed
// speech, which outranks values inferred from images.
func Rank(s Source) int {
	switch s {
	case SourceUser:
		return 3
	case SourceSpeech:
		return 2
	case SourceVision:
		return 1
	default:
		return 0
	}
}

// TextEvidence is a unit of free text attributed to a source.
type TextEvidence struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

// VisionEvidence is the structured result of analyzing one photo.
type VisionEvidence struct {
	Labels           []string `json:"labels"`
	Description      string   `json:"description"`
	DamageAssessment string   `json:"damage_assessment,omitempty"`
	Confidence       float64  `json:"confidence"`
}

// SpeechEvidence is the raw transcription result for one audio clip.
type SpeechEvidence struct {
	Transcript string  `json:"transcript"`
	AvgLogProb float64 `json:"avg_logprob"`
}

// Partial holds slot values extracted from a single evidence unit.
type Partial struct {
	Values map[string]interface{}
	Source Source
}

func (p Partial) Empty() bool {
	return len(p.Values) == 0
}

// labelJobTypes maps recognized photo labels to a standard job type.
var labelJobTypes = map[string]string{
	"roof":     "roof repair",
	"shingles": "roof repair",
	"grass":    "lawn care",
	"lawn":     "lawn care",
	"gutter":   "gutter cleaning",
	"kitchen":  "kitchen renovation",
	"cabinets": "kitchen renovation",
	"bathroom": "bathroom renovation",
	"deck":     "deck construction",
	"fence":    "fence construction",
	"mold":     "mold remediation",
}

// MergeVision turns a photo analysis into slot values. Photos with no
// recognized labels contribute nothing.
func MergeVision(ev VisionEvidence) Partial {
	p := Partial{Values: map[string]interface{}{}, Source: SourceVision}
	if len(ev.Labels) == 0 {
		return p
	}
	for _, label := range ev.Labels {
		if jt, ok := labelJobTypes[strings.ToLower(strings.TrimSpace(label))]; ok {
			p.Values["job_type"] = jt
			break
		}
	}
	if ev.DamageAssessment != "" {
		p.Values["damage_assessment"] = ev.DamageAssessment
	}
	return p
}

// AcceptSpeech gates a transcription on its average log probability.
// Low-confidence transcripts are discarded rather than merged.
func AcceptSpeech(ev SpeechEvidence, cutoff float64) (TextEvidence, bool) {
	if ev.AvgLogProb < cutoff {
		return TextEvidence{}, false
	}
	text := strings.TrimSpace(ev.Transcript)
	if text == "" {
		return TextEvidence{}, false
	}
	return TextEvidence{Text: text, Source: SourceSpeech}, true
}

var (
	budgetRangeRe  = regexp.MustCompile(`(?i)\$?\s*\d[\d,]*(?:\.\d+)?\s*(?:k|thousand)?\s*(?:-|to)\s*\$?\s*\d[\d,]*(?:\.\d+)?\s*(?:k|thousand)?`)
	budgetSingleRe = regexp.MustCompile(`\$\s*\d[\d,]*(?:\.\d+)?\s*(?:k|K)?`)

	locationRes = []*regexp.Regexp{
		regexp.MustCompile(`(?:\bin|\bnear|\bat|\bfrom)\s+([A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*)*(?:,\s*[A-Z]{2})?)`),
		regexp.MustCompile(`([A-Z][A-Za-z]*(?:\s+[A-Z][A-Za-z]*)*)\s+area\b`),
	}
)

// timelinePhrases maps trigger phrases to a normalized timeline value.
// Checked in order so the more specific phrasing wins.
var timelinePhrases = []struct {
	terms []string
	value string
}{
	{[]string{"asap", "right away", "immediately", "urgent"}, "immediately"},
	{[]string{"next month", "within a month", "within 1 month", "soon"}, "within 1 month"},
	{[]string{"a few months", "couple months", "couple of months", "2-3 months", "1-3 months"}, "1-3 months"},
	{[]string{"later this year", "this fall", "this winter", "3-6 months"}, "3-6 months"},
	{[]string{"next year", "in a year", "12 months", "6-12 months"}, "6-12 months"},
	{[]string{"long term", "someday", "eventually"}, "more than a year"},
}

// jobTypePhrases are explicit job descriptions recognized in free text.
var jobTypePhrases = []string{
	"roof repair", "plumbing repair", "electrical repair", "hvac repair",
	"appliance repair", "foundation repair", "water damage repair",
	"window repair", "door repair",
	"kitchen renovation", "bathroom renovation", "basement renovation",
	"window installation", "door installation", "flooring installation",
	"appliance installation", "hvac installation",
	"lawn mowing", "lawn care", "lawn maintenance", "gutter cleaning",
	"pool maintenance", "pest control",
	"deck construction", "fence construction", "new construction",
}

// MergeText extracts slot values from one unit of text. When the engine
// is waiting on an answer for pendingSlot and no extractor claims the
// text, the raw text itself is taken as that slot's answer.
func MergeText(ev TextEvidence, pendingSlot string) Partial {
	p := Partial{Values: map[string]interface{}{}, Source: ev.Source}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return p
	}
	lower := strings.ToLower(text)

	if m := budgetRangeRe.FindString(text); m != "" {
		p.Values["budget_range"] = strings.TrimSpace(m)
	} else if m := budgetSingleRe.FindString(text); m != "" {
		p.Values["budget_range"] = strings.TrimSpace(m)
	}

	for _, tp := range timelinePhrases {
		for _, term := range tp.terms {
			if strings.Contains(lower, term) {
				p.Values["timeline"] = tp.value
				break
			}
		}
		if _, ok := p.Values["timeline"]; ok {
			break
		}
	}

	for _, re := range locationRes {
		if m := re.FindStringSubmatch(text); m != nil {
			p.Values["location"] = strings.TrimSpace(m[1])
			break
		}
	}

	for _, phrase := range jobTypePhrases {
		if strings.Contains(lower, phrase) {
			p.Values["job_type"] = phrase
			break
		}
	}

	if strings.Contains(lower, "group bid") {
		if strings.Contains(lower, "not ") || strings.Contains(lower, "no ") || strings.HasPrefix(lower, "no") {
			p.Values["group_bidding"] = "no"
		} else {
			p.Values["group_bidding"] = "yes"
		}
	}

	if pendingSlot != "" {
		if _, ok := p.Values[pendingSlot]; !ok {
			p.Values[pendingSlot] = pendingAnswer(pendingSlot, text, lower)
		}
	}
	return p
}

// pendingAnswer shapes a raw reply into a value for the slot the engine
// just asked about.
func pendingAnswer(slot, text, lower string) interface{} {
	switch slot {
	case "group_bidding":
		for _, yes := range []string{"yes", "yeah", "yep", "sure", "ok"} {
			if strings.HasPrefix(lower, yes) {
				return "yes"
			}
		}
		if strings.HasPrefix(lower, "no") {
			return "no"
		}
		return text
	default:
		return text
	}
}
