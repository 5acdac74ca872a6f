package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
)

// claimTimeout is how long a claimed job may sit before another worker may
// reclaim it (crashed-worker recovery).
const claimTimeout = 5 * time.Minute

func (s *Store) Enqueue(ctx context.Context, job *domain.DeliveryJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_jobs (
			id, campaign_id, lead_id, inbox_id, step_id, variant_id,
			subject, body, status, attempts, scheduled_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'queued', 0, $9, NOW())
		ON CONFLICT (campaign_id, lead_id, step_id) DO NOTHING
	`, job.ID, job.CampaignID, job.LeadID, job.InboxID, job.StepID,
		job.VariantID, job.Subject, job.Body, job.ScheduledAt)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Claim atomically marks a batch of due jobs as claimed by this worker and
// bumps each job's attempt count. SKIP LOCKED keeps concurrent workers from
// blocking on each other's claims.
func (s *Store) Claim(ctx context.Context, workerID string, limit int) ([]domain.DeliveryJob, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		UPDATE delivery_jobs
		SET status = 'claimed', claimed_at = NOW(), worker_id = $1,
		    attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM delivery_jobs
			WHERE (status = 'queued'
			       OR (status = 'claimed' AND claimed_at < NOW() - ($3 * INTERVAL '1 second')))
			  AND scheduled_at <= NOW()
			ORDER BY scheduled_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, campaign_id, lead_id, inbox_id, step_id, COALESCE(variant_id,''),
		          COALESCE(subject,''), COALESCE(body,''), status, attempts,
		          COALESCE(last_error,''), scheduled_at, claimed_at, sent_at, created_at
	`, workerID, limit, int(claimTimeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.DeliveryJob
	for rows.Next() {
		var j domain.DeliveryJob
		if err := rows.Scan(
			&j.ID, &j.CampaignID, &j.LeadID, &j.InboxID, &j.StepID, &j.VariantID,
			&j.Subject, &j.Body, &j.Status, &j.Attempts,
			&j.LastError, &j.ScheduledAt, &j.ClaimedAt, &j.SentAt, &j.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *Store) MarkSent(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE delivery_jobs
		SET status = 'sent', sent_at = NOW()
		WHERE id = $1
	`, jobID)
	if err != nil {
		return fmt.Errorf("mark job sent: %w", err)
	}
	return nil
}

func (s *Store) Reschedule(ctx context.Context, jobID string, at time.Time, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE delivery_jobs
		SET status = 'queued', scheduled_at = $2, last_error = $3,
		    claimed_at = NULL, worker_id = NULL
		WHERE id = $1
	`, jobID, at, lastError)
	if err != nil {
		return fmt.Errorf("reschedule job: %w", err)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, jobID, lastError string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE delivery_jobs
		SET status = 'failed', last_error = $2
		WHERE id = $1
	`, jobID, lastError)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}
