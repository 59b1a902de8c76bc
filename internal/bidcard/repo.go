package bidcard

import (
	"context"
	"database/sql"
	"fmt"

	"bidflow/internal/common/errors"
	"bidflow/internal/common/logger"
)

// Repo persists bid cards in Postgres. One card per project; saving
// again for the same project replaces the earlier card.
type Repo struct {
	db  *sql.DB
	log logger.Logger
}

func NewRepo(db *sql.DB, log logger.Logger) *Repo {
	return &Repo{db: db, log: log}
}

const saveQuery = `
INSERT INTO bid_cards (
	id, user_id, project_id, category, job_type,
	budget_min, budget_max, timeline, location, group_bidding,
	damage_assessment, ai_confidence, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (project_id) DO UPDATE SET
	category = EXCLUDED.category,
	job_type = EXCLUDED.job_type,
	budget_min = EXCLUDED.budget_min,
	budget_max = EXCLUDED.budget_max,
	timeline = EXCLUDED.timeline,
	location = EXCLUDED.location,
	group_bidding = EXCLUDED.group_bidding,
	damage_assessment = EXCLUDED.damage_assessment,
	ai_confidence = EXCLUDED.ai_confidence,
	status = EXCLUDED.status`

const fetchQuery = `
SELECT id, user_id, project_id, category, job_type,
	budget_min, budget_max, timeline, location, group_bidding,
	damage_assessment, ai_confidence, status, created_at
FROM bid_cards
WHERE project_id = $1`

func (r *Repo) Save(ctx context.Context, card *Card) error {
	_, err := r.db.ExecContext(ctx, saveQuery,
		card.ID, card.UserID, card.ProjectID, card.Category, card.JobType,
		card.BudgetMin, card.BudgetMax, card.Timeline, card.Location, card.GroupBidding,
		card.DamageAssessment, card.AIConfidence, card.Status, card.CreatedAt,
	)
	if err != nil {
		r.log.WithError(err).Error("failed to save bid card", map[string]interface{}{
			"project_id": card.ProjectID,
		})
		return errors.NewCardSaveFailedError(err)
	}
	return nil
}

func (r *Repo) Fetch(ctx context.Context, projectID string) (*Card, error) {
	var card Card
	err := r.db.QueryRowContext(ctx, fetchQuery, projectID).Scan(
		&card.ID, &card.UserID, &card.ProjectID, &card.Category, &card.JobType,
		&card.BudgetMin, &card.BudgetMax, &card.Timeline, &card.Location, &card.GroupBidding,
		&card.DamageAssessment, &card.AIConfidence, &card.Status, &card.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewCardNotFoundError(projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bid card for project %s: %w", projectID, err)
	}
	return &card, nil
}
