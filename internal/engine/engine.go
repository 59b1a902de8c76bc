// Package engine drives the slot-filling dialogue: it folds each turn's
// text, photos, and audio into the conversation state, asks for the
// next missing slot, and assembles the bid card once everything is
// collected.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"bidflow/internal/bidcard"
	"bidflow/internal/classifier"
	"bidflow/internal/common/logger"
	"bidflow/internal/common/metrics"
	"bidflow/internal/conversation"
	"bidflow/internal/events"
	"bidflow/internal/evidence"
	"bidflow/internal/slots"
)

// VisionService analyzes one photo.
type VisionService interface {
	Analyze(ctx context.Context, image []byte) (evidence.VisionEvidence, error)
}

// SpeechService transcribes one audio clip.
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte) (evidence.SpeechEvidence, error)
}

// StateStore loads and saves conversation state under a per-conversation
// lock.
type StateStore interface {
	Acquire(ctx context.Context, userID, projectID string) (func(), error)
	Get(ctx context.Context, userID, projectID string) (*conversation.State, error)
	Save(ctx context.Context, st *conversation.State) error
}

// CardRepo persists assembled bid cards.
type CardRepo interface {
	Save(ctx context.Context, card *bidcard.Card) error
}

// Publisher emits engine events.
type Publisher interface {
	Publish(ctx context.Context, topic, sender, recipient string, payload map[string]interface{}) (events.Envelope, error)
}

const senderName = "dialogue-engine"

// Config holds the engine tunables.
type Config struct {
	EvidenceTimeout time.Duration
	SpeechCutoff    float64
}

// TurnInput is one user turn. Any combination of text, images, and
// audio may be present.
type TurnInput struct {
	UserID    string
	ProjectID string
	Text      string
	Images    [][]byte
	Audio     []byte
}

func (in TurnInput) empty() bool {
	return strings.TrimSpace(in.Text) == "" && len(in.Images) == 0 && len(in.Audio) == 0
}

// TurnResult is the engine's answer to one turn. Either NeedMore is set
// with the next question, or BidCard carries the finished card.
type TurnResult struct {
	NeedMore  bool                   `json:"need_more"`
	Question  string                 `json:"question,omitempty"`
	Collected map[string]interface{} `json:"collected"`
	Missing   []string               `json:"missing,omitempty"`
	BidCard   *bidcard.Card          `json:"bid_card,omitempty"`
}

// Engine wires the evidence pipeline, conversation store, assembler,
// and event bus together.
type Engine struct {
	config    Config
	store     StateStore
	vision    VisionService
	speech    SpeechService
	assembler *bidcard.Assembler
	repo      CardRepo
	publisher Publisher
	logger    logger.Logger
}

func New(config Config, store StateStore, vision VisionService, speech SpeechService, assembler *bidcard.Assembler, repo CardRepo, publisher Publisher, log logger.Logger) *Engine {
	return &Engine{
		config:    config,
		store:     store,
		vision:    vision,
		speech:    speech,
		assembler: assembler,
		repo:      repo,
		publisher: publisher,
		logger:    log,
	}
}

// ProcessTurn runs one turn under the conversation lock. Turns for a
// completed conversation return the stored card again without side
// effects.
func (e *Engine) ProcessTurn(ctx context.Context, in TurnInput) (*TurnResult, error) {
	if in.UserID == "" || in.ProjectID == "" {
		return nil, fmt.Errorf("user_id and project_id are required")
	}

	release, err := e.store.Acquire(ctx, in.UserID, in.ProjectID)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := e.store.Get(ctx, in.UserID, in.ProjectID)
	if err != nil {
		if !conversation.IsNotFound(err) || in.empty() {
			return nil, err
		}
		st = conversation.NewState(in.UserID, in.ProjectID)
	}

	log := e.logger.WithFields(map[string]interface{}{
		"user_id":    in.UserID,
		"project_id": in.ProjectID,
	})

	if st.Status == conversation.StatusComplete {
		log.Info("turn for completed conversation, returning stored card", nil)
		metrics.TurnsProcessed.WithLabelValues("already_complete").Inc()
		return &TurnResult{
			NeedMore:  false,
			Collected: st.Card,
			BidCard:   st.Final,
		}, nil
	}

	var newlyFilled []string
	turnText := strings.TrimSpace(in.Text)

	// Evidence folds in a fixed order: text, then photos in submission
	// order, then audio.
	if turnText != "" {
		st.AddUserTurn(turnText)
		partial := evidence.MergeText(evidence.TextEvidence{Text: turnText, Source: evidence.SourceUser}, e.pending(st))
		newlyFilled = append(newlyFilled, st.MergeSlots(partial)...)
		metrics.EvidenceProcessed.WithLabelValues("text", "merged").Inc()
	}

	visionTags := e.foldImages(ctx, st, in.Images, &newlyFilled, log)

	if len(in.Audio) > 0 {
		if transcript, ok := e.foldAudio(ctx, st, in.Audio, &newlyFilled, log); ok {
			if turnText == "" {
				turnText = transcript
			} else {
				turnText = turnText + " " + transcript
			}
		}
	}

	if turnText != "" || len(visionTags) > 0 {
		result := classifier.Classify(turnText, visionTags)
		if st.ApplyCategory(result) {
			newlyFilled = append(newlyFilled, "category")
		}
	}

	missing := st.Missing()
	if len(missing) == 0 {
		return e.finalize(ctx, st, log)
	}

	question := e.ask(st, missing[0])
	if err := e.store.Save(ctx, st); err != nil {
		return nil, err
	}

	if len(newlyFilled) > 0 {
		e.publish(ctx, events.TopicBidCardUpdated, map[string]interface{}{
			"project_id":    st.ProjectID,
			"user_id":       st.UserID,
			"filled_slots":  newlyFilled,
			"missing_slots": missing,
			"updated_at":    time.Now().UTC().Format(time.RFC3339),
		}, log)
	}

	metrics.TurnsProcessed.WithLabelValues("need_more").Inc()
	return &TurnResult{
		NeedMore:  true,
		Question:  question,
		Collected: st.Card,
		Missing:   missing,
	}, nil
}

// pending returns the slot the engine is waiting on, or "" if that slot
// got filled through another channel in the meantime.
func (e *Engine) pending(st *conversation.State) string {
	if st.PendingSlot == "" || slots.Filled(st.Card, st.PendingSlot) {
		return ""
	}
	return st.PendingSlot
}

// foldImages analyzes the turn's photos concurrently and merges the
// results in submission order. A failed analysis drops that photo only.
func (e *Engine) foldImages(ctx context.Context, st *conversation.State, images [][]byte, newlyFilled *[]string, log logger.Logger) []string {
	if len(images) == 0 {
		return nil
	}

	results := make([]*evidence.VisionEvidence, len(images))
	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img []byte) {
			defer wg.Done()
			unitCtx, cancel := context.WithTimeout(ctx, e.config.EvidenceTimeout)
			defer cancel()
			ev, err := e.vision.Analyze(unitCtx, img)
			if err != nil {
				log.WithError(err).Warn("image analysis failed, dropping photo", map[string]interface{}{
					"image_index": i,
				})
				metrics.EvidenceProcessed.WithLabelValues("image", "failed").Inc()
				return
			}
			results[i] = &ev
		}(i, img)
	}
	wg.Wait()

	var tags []string
	for _, ev := range results {
		if ev == nil {
			continue
		}
		st.VisionSeen = true
		partial := evidence.MergeVision(*ev)
		*newlyFilled = append(*newlyFilled, st.MergeSlots(partial)...)
		tags = append(tags, ev.Labels...)
		metrics.EvidenceProcessed.WithLabelValues("image", "merged").Inc()
	}
	return tags
}

// foldAudio transcribes the clip and merges the transcript when it
// clears the confidence cutoff.
func (e *Engine) foldAudio(ctx context.Context, st *conversation.State, audio []byte, newlyFilled *[]string, log logger.Logger) (string, bool) {
	unitCtx, cancel := context.WithTimeout(ctx, e.config.EvidenceTimeout)
	defer cancel()

	ev, err := e.speech.Transcribe(unitCtx, audio)
	if err != nil {
		log.WithError(err).Warn("transcription failed, dropping audio", nil)
		metrics.EvidenceProcessed.WithLabelValues("audio", "failed").Inc()
		return "", false
	}

	te, ok := evidence.AcceptSpeech(ev, e.config.SpeechCutoff)
	if !ok {
		log.Info("transcript below confidence cutoff, discarded", map[string]interface{}{
			"avg_logprob": ev.AvgLogProb,
		})
		metrics.EvidenceProcessed.WithLabelValues("audio", "rejected").Inc()
		return "", false
	}

	st.AddUserTurn(te.Text)
	partial := evidence.MergeText(te, e.pending(st))
	*newlyFilled = append(*newlyFilled, st.MergeSlots(partial)...)
	metrics.EvidenceProcessed.WithLabelValues("audio", "merged").Inc()
	return te.Text, true
}

// ask records the next question and marks the slot it waits on.
func (e *Engine) ask(st *conversation.State, slot string) string {
	def, _ := slots.Get(slot)
	st.PendingSlot = slot
	st.AddAgentTurn(def.Prompt)
	return def.Prompt
}

// finalize assembles the card, persists it, marks the conversation
// complete, and announces the new project. The completion flag is saved
// before publishing so a crashed publish never repeats the card, and
// later turns never publish again.
func (e *Engine) finalize(ctx context.Context, st *conversation.State, log logger.Logger) (*TurnResult, error) {
	card := e.assembler.Assemble(bidcard.Input{
		UserID:     st.UserID,
		ProjectID:  st.ProjectID,
		Card:       st.Card,
		Category:   st.Category,
		VisionSeen: st.VisionSeen,
	})

	if err := e.repo.Save(ctx, card); err != nil {
		return nil, err
	}

	st.Status = conversation.StatusComplete
	st.PendingSlot = ""
	st.Final = card
	if err := e.store.Save(ctx, st); err != nil {
		return nil, err
	}

	e.publish(ctx, events.TopicProjectCreated, map[string]interface{}{
		"project_id":    card.ProjectID,
		"user_id":       card.UserID,
		"description":   describeCard(card),
		"category":      card.Category,
		"job_type":      card.JobType,
		"ai_confidence": card.AIConfidence,
		"status":        card.Status,
		"created_at":    card.CreatedAt.Format(time.RFC3339),
	}, log)

	log.Info("bid card assembled", map[string]interface{}{
		"card_id":       card.ID,
		"status":        card.Status,
		"ai_confidence": card.AIConfidence,
	})
	metrics.TurnsProcessed.WithLabelValues("completed").Inc()
	metrics.CardsAssembled.WithLabelValues(card.Status).Inc()

	return &TurnResult{
		NeedMore:  false,
		Collected: st.Card,
		BidCard:   card,
	}, nil
}

func (e *Engine) publish(ctx context.Context, topic string, payload map[string]interface{}, log logger.Logger) {
	if _, err := e.publisher.Publish(ctx, topic, senderName, "", payload); err != nil {
		log.WithError(err).Error("failed to publish event", map[string]interface{}{
			"topic": topic,
		})
		return
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()
}

func describeCard(card *bidcard.Card) string {
	parts := []string{}
	if card.JobType != "" {
		parts = append(parts, card.JobType)
	} else if card.Category != "" {
		parts = append(parts, card.Category)
	}
	if card.Location != "" {
		parts = append(parts, "in "+card.Location)
	}
	if len(parts) == 0 {
		return "home improvement project"
	}
	return strings.Join(parts, " ")
}
