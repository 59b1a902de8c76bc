package conversation

import (
	"time"

	"bidflow/internal/bidcard"
	"bidflow/internal/classifier"
	"bidflow/internal/evidence"
	"bidflow/internal/slots"
)

const (
	StatusCollecting = "collecting"
	StatusComplete   = "complete"
)

// Message is one turn of dialogue history.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the accumulated view of one conversation between a homeowner
// and the engine, keyed by user and project.
type State struct {
	UserID      string                     `json:"user_id"`
	ProjectID   string                     `json:"project_id"`
	Card        map[string]interface{}     `json:"card"`
	Sources     map[string]evidence.Source `json:"sources"`
	History     []Message                  `json:"history"`
	VisionSeen  bool                       `json:"vision_seen"`
	Category    classifier.Result          `json:"category"`
	Status      string                     `json:"status"`
	PendingSlot string                     `json:"pending_slot,omitempty"`
	Final       *bidcard.Card              `json:"final,omitempty"`
	CreatedAt   time.Time                  `json:"created_at"`
	UpdatedAt   time.Time                  `json:"updated_at"`
}

func NewState(userID, projectID string) *State {
	now := time.Now().UTC()
	return &State{
		UserID:    userID,
		ProjectID: projectID,
		Card:      map[string]interface{}{},
		Sources:   map[string]evidence.Source{},
		Status:    StatusCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *State) AddUserTurn(content string) {
	s.History = append(s.History, Message{Role: "user", Content: content, Timestamp: time.Now().UTC()})
}

func (s *State) AddAgentTurn(content string) {
	s.History = append(s.History, Message{Role: "agent", Content: content, Timestamp: time.Now().UTC()})
}

// MergeSlots folds one extracted partial into the card and returns the
// keys that went from empty to filled. Existing values are replaced only
// when the new value comes from a higher ranked source. Values that fail
// slot validation are dropped. Vision-only slots never accept text or
// speech values.
func (s *State) MergeSlots(p evidence.Partial) []string {
	var filled []string
	for key, value := range p.Values {
		def, known := slots.Get(key)
		if !known {
			continue
		}
		if def.VisionOnly && p.Source != evidence.SourceVision {
			continue
		}
		if !slots.Validate(key, value) {
			continue
		}
		if slots.Filled(s.Card, key) {
			if evidence.Rank(p.Source) > evidence.Rank(s.Sources[key]) {
				s.Card[key] = value
				s.Sources[key] = p.Source
			}
			continue
		}
		s.Card[key] = value
		s.Sources[key] = p.Source
		filled = append(filled, key)
	}
	if len(filled) > 0 {
		s.UpdatedAt = time.Now().UTC()
	}
	return filled
}

// ApplyCategory folds a classification into the state. An existing
// category is replaced only by a strictly more confident one.
func (s *State) ApplyCategory(r classifier.Result) bool {
	if r.Confidence <= s.Category.Confidence && s.Category.Category != "" {
		return false
	}
	s.Category = r
	if r.Category != classifier.CategoryOther && !slots.Filled(s.Card, "category") {
		s.Card["category"] = r.Category
		s.Sources["category"] = evidence.SourceUser
		return true
	}
	if r.Category != classifier.CategoryOther {
		s.Card["category"] = r.Category
	}
	return false
}

// Missing returns the unfilled slots in priority order.
func (s *State) Missing() []string {
	return slots.Missing(s.Card)
}
