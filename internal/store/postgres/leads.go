package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/store"
)

// leadColumns builds the lead SELECT list. Queries joining other tables must
// pass the "l." alias; leads and campaigns share several column names and an
// unqualified list would be ambiguous to Postgres.
func leadColumns(alias string) string {
	return strings.ReplaceAll(`
	@id, @organization_id, @list_id, @email,
	COALESCE(@first_name,''), COALESCE(@last_name,''), COALESCE(@company,''),
	COALESCE(@title,''), COALESCE(@city,''), COALESCE(@state,''),
	COALESCE(@country,''), COALESCE(@timezone,''),
	@status, @reply_intent, @manual_override, @custom_fields,
	@current_step, @soft_bounce_count,
	@last_contacted_at, @last_open_at, @last_reply_at, @created_at, @updated_at`,
		"@", alias)
}

func scanLead(row interface{ Scan(...any) error }) (*domain.Lead, error) {
	l := &domain.Lead{}
	var intent sql.NullString
	var custom []byte
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.ListID, &l.Email,
		&l.FirstName, &l.LastName, &l.Company,
		&l.Title, &l.City, &l.State,
		&l.Country, &l.Timezone,
		&l.Status, &intent, &l.ManualOverride, &custom,
		&l.CurrentStep, &l.SoftBounceCount,
		&l.LastContactedAt, &l.LastOpenAt, &l.LastReplyAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if intent.Valid {
		ri := domain.ReplyIntent(intent.String)
		l.ReplyIntent = &ri
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &l.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom fields: %w", err)
		}
	}
	return l, nil
}

func (s *Store) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns("")+` FROM leads WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// EligibleLeads joins each lead to its next sequence step so the step delay
// can be checked in SQL. Sequence-blocking statuses are excluded outright.
func (s *Store) EligibleLeads(ctx context.Context, campaignID string, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+leadColumns("l.")+`
		FROM leads l
		JOIN campaigns c ON c.id = $1 AND l.list_id = c.list_id
		JOIN sequence_steps st ON st.campaign_id = c.id AND st.step_order = l.current_step + 1
		WHERE l.status NOT IN (
			'bounced', 'unsubscribed', 'spam_reported',
			'replied', 'interested', 'not_interested', 'meeting_booked'
		)
		  AND (l.last_contacted_at IS NULL
		       OR l.last_contacted_at + (st.delay_hours * INTERVAL '1 hour') <= NOW())
		ORDER BY l.created_at ASC
		LIMIT $2
	`, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("eligible leads: %w", err)
	}
	defer rows.Close()

	var leads []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

func (s *Store) UpdateLeadStatus(ctx context.Context, leadID string, from, to domain.LeadStatus, override bool) (bool, error) {
	var res sql.Result
	var err error
	if override {
		res, err = s.db.ExecContext(ctx, `
			UPDATE leads SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3
		`, leadID, to, from)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE leads SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3 AND manual_override = false
		`, leadID, to, from)
	}
	if err != nil {
		return false, fmt.Errorf("update lead status: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) SetReplyIntent(ctx context.Context, leadID string, intent domain.ReplyIntent) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET reply_intent = $2, last_reply_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND manual_override = false
	`, leadID, intent)
	if err != nil {
		return false, fmt.Errorf("set reply intent: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) SetManualOverride(ctx context.Context, leadID string, frozen bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE leads SET manual_override = $2, updated_at = NOW()
		WHERE id = $1
	`, leadID, frozen)
	if err != nil {
		return fmt.Errorf("set manual override: %w", err)
	}
	return nil
}

func (s *Store) RecordChange(ctx context.Context, change domain.LeadChange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lead_events (lead_id, from_status, to_status, event, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, change.LeadID, change.From, change.To, change.Event, change.OccurredAt)
	if err != nil {
		return fmt.Errorf("record lead change: %w", err)
	}
	return nil
}

func (s *Store) MarkContacted(ctx context.Context, leadID, stepID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE leads
		SET current_step = (SELECT step_order FROM sequence_steps WHERE id = $2),
		    last_contacted_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, leadID, stepID)
	if err != nil {
		return fmt.Errorf("mark contacted: %w", err)
	}
	return nil
}

func (s *Store) IncrementSoftBounce(ctx context.Context, leadID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE leads
		SET soft_bounce_count = soft_bounce_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING soft_bounce_count
	`, leadID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment soft bounce: %w", err)
	}
	return count, nil
}

func (s *Store) OpenTimes(ctx context.Context, leadID string, limit int) ([]time.Time, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT opened_at FROM open_events
		WHERE lead_id = $1
		ORDER BY opened_at DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, fmt.Errorf("open times: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}
