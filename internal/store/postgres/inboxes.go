package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/store"
)

const inboxColumns = `
	id, organization_id, email, COALESCE(from_name,''), COALESCE(provider,''),
	status, daily_send_limit, sent_today, throttle_percentage,
	warmup_enabled, warmup_day, ramp_speed,
	total_sent, total_replied, total_bounced, total_spam,
	created_at, updated_at`

func scanInbox(row interface{ Scan(...any) error }) (*domain.Inbox, error) {
	i := &domain.Inbox{}
	err := row.Scan(
		&i.ID, &i.OrganizationID, &i.Email, &i.FromName, &i.Provider,
		&i.Status, &i.DailySendLimit, &i.SentToday, &i.ThrottlePercentage,
		&i.WarmupEnabled, &i.WarmupDay, &i.RampSpeed,
		&i.TotalSent, &i.TotalReplied, &i.TotalBounced, &i.TotalSpam,
		&i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return i, nil
}

func (s *Store) GetInbox(ctx context.Context, id string) (*domain.Inbox, error) {
	inbox, err := scanInbox(s.db.QueryRowContext(ctx,
		`SELECT `+inboxColumns+` FROM inboxes WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inbox: %w", err)
	}
	return inbox, nil
}

// CampaignInboxes returns the campaign's inbox set ordered by creation so
// round-robin rotation sees a stable list between availability changes.
func (s *Store) CampaignInboxes(ctx context.Context, campaignID string) ([]domain.Inbox, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+inboxColumns+`
		FROM inboxes i
		JOIN campaign_inboxes ci ON ci.inbox_id = i.id
		WHERE ci.campaign_id = $1
		ORDER BY i.created_at ASC, i.id ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("campaign inboxes: %w", err)
	}
	defer rows.Close()

	var inboxes []domain.Inbox
	for rows.Next() {
		inbox, err := scanInbox(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inbox: %w", err)
		}
		inboxes = append(inboxes, *inbox)
	}
	return inboxes, rows.Err()
}

func (s *Store) IncrementSentToday(ctx context.Context, inboxID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inboxes
		SET sent_today = sent_today + 1,
		    total_sent = total_sent + 1,
		    updated_at = NOW()
		WHERE id = $1
	`, inboxID)
	if err != nil {
		return fmt.Errorf("increment sent today: %w", err)
	}
	return nil
}

func (s *Store) ResetDailyCounters(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inboxes SET sent_today = 0, updated_at = NOW()
		WHERE sent_today > 0
	`)
	if err != nil {
		return 0, fmt.Errorf("reset daily counters: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) AdvanceWarmupDays(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE inboxes SET warmup_day = warmup_day + 1, updated_at = NOW()
		WHERE warmup_enabled = true AND status IN ('active', 'warming')
	`)
	if err != nil {
		return 0, fmt.Errorf("advance warmup days: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) PauseInbox(ctx context.Context, inboxID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE inboxes SET status = 'paused', pause_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status != 'paused'
	`, inboxID, reason)
	if err != nil {
		return fmt.Errorf("pause inbox: %w", err)
	}
	return nil
}
