// internal/workers/process-turn/models.go
package processturn

import "bidflow/internal/bidcard"

// Input is the job variable payload for one conversation turn. Images
// and audio arrive base64 encoded.
type Input struct {
	UserID    string   `json:"userId"`
	ProjectID string   `json:"projectId"`
	Text      string   `json:"text"`
	Images    []string `json:"images"`
	Audio     string   `json:"audio"`
}

type Output struct {
	NeedMore  bool                   `json:"needMore"`
	Question  string                 `json:"question,omitempty"`
	Collected map[string]interface{} `json:"collected"`
	Missing   []string               `json:"missing,omitempty"`
	BidCard   *bidcard.Card          `json:"bidCard,omitempty"`
}
