package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/store"
)

func scanCampaign(row interface{ Scan(...any) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var settings []byte
	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.Name, &c.ListID, pq.Array(&c.InboxIDs),
		&c.Status, &settings, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &c.Settings); err != nil {
			return nil, fmt.Errorf("decode campaign settings: %w", err)
		}
	}
	return c, nil
}

const campaignColumns = `
	c.id, c.organization_id, c.name, c.list_id,
	ARRAY(SELECT ci.inbox_id FROM campaign_inboxes ci
	      WHERE ci.campaign_id = c.id ORDER BY ci.inbox_id),
	c.status, c.settings, c.started_at, c.completed_at, c.created_at, c.updated_at`

func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(s.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM campaigns c WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *Store) DueCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		WHERE c.status = 'active'
		ORDER BY c.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("due campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (s *Store) Steps(ctx context.Context, campaignID string) ([]domain.SequenceStep, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, step_order, delay_hours,
		       COALESCE(subject,''), COALESCE(body,'')
		FROM sequence_steps
		WHERE campaign_id = $1
		ORDER BY step_order ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.SequenceStep
	byID := make(map[string]int)
	for rows.Next() {
		var st domain.SequenceStep
		if err := rows.Scan(&st.ID, &st.CampaignID, &st.StepOrder, &st.DelayHours, &st.Subject, &st.Body); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		byID[st.ID] = len(steps)
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return steps, nil
	}

	vrows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.step_id, COALESCE(v.subject,''), COALESCE(v.body,''), v.weight
		FROM step_variants v
		JOIN sequence_steps st ON st.id = v.step_id
		WHERE st.campaign_id = $1
		ORDER BY v.id ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("step variants: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		var v domain.StepVariant
		if err := vrows.Scan(&v.ID, &v.StepID, &v.Subject, &v.Body, &v.Weight); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		if idx, ok := byID[v.StepID]; ok {
			steps[idx].Variants = append(steps[idx].Variants, v)
		}
	}
	return steps, vrows.Err()
}

// ExhaustedCampaigns finds active campaigns the engine is done with: every
// lead has either finished the sequence or reached a blocking status, and
// nothing for the campaign remains in the job queue.
func (s *Store) ExhaustedCampaigns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id
		FROM campaigns c
		WHERE c.status = 'active'
		  AND NOT EXISTS (
		      SELECT 1 FROM leads l
		      WHERE l.list_id = c.list_id
		        AND l.status IN ('pending', 'in_sequence', 'contacted', 'soft_bounced')
		  )
		  AND NOT EXISTS (
		      SELECT 1 FROM delivery_jobs j
		      WHERE j.campaign_id = c.id
		        AND j.status IN ('queued', 'claimed')
		  )
		ORDER BY c.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("exhausted campaigns: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ActiveCampaignsForList(ctx context.Context, listID string) ([]domain.Campaign, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns c
		WHERE c.list_id = $1 AND c.status = 'active'
		ORDER BY c.created_at ASC
	`, listID)
	if err != nil {
		return nil, fmt.Errorf("campaigns for list: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// MarkCampaignStarted stamps started_at once. Returns true only for the
// tick that actually set it, so the caller can emit the start notification
// exactly once.
func (s *Store) MarkCampaignStarted(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND started_at IS NULL
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark campaign started: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) StopCampaign(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'stopped', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return false, fmt.Errorf("stop campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) CompleteCampaign(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`, id)
	if err != nil {
		return false, fmt.Errorf("complete campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
