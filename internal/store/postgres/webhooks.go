package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/store"
)

// ActiveSubscriptions filters in SQL: a subscription matches when its event
// array is empty (subscribed to everything) or contains the event.
func (s *Store) ActiveSubscriptions(ctx context.Context, event domain.WebhookEvent) ([]domain.WebhookSubscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, events, secret, active, created_at
		FROM webhook_subscriptions
		WHERE active = true
		  AND (events IS NULL OR cardinality(events) = 0 OR $1 = ANY(events))
		ORDER BY created_at ASC
	`, string(event))
	if err != nil {
		return nil, fmt.Errorf("active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.WebhookSubscription
	for rows.Next() {
		var sub domain.WebhookSubscription
		var events []string
		if err := rows.Scan(&sub.ID, &sub.URL, pq.Array(&events), &sub.Secret, &sub.Active, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		for _, e := range events {
			sub.Events = append(sub.Events, domain.WebhookEvent(e))
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *Store) GetSubscription(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	var sub domain.WebhookSubscription
	var events []string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, url, events, secret, active, created_at
		FROM webhook_subscriptions
		WHERE id = $1
	`, id).Scan(&sub.ID, &sub.URL, pq.Array(&events), &sub.Secret, &sub.Active, &sub.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	for _, e := range events {
		sub.Events = append(sub.Events, domain.WebhookEvent(e))
	}
	return &sub, nil
}

func (s *Store) EnqueueDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.NextAttemptAt.IsZero() {
		d.NextAttemptAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_deliveries (
			id, subscription_id, event, payload, status, attempts,
			next_attempt_at, created_at
		) VALUES ($1, $2, $3, $4, 'pending', 0, $5, NOW())
	`, d.ID, d.SubscriptionID, d.Event, d.Payload, d.NextAttemptAt)
	if err != nil {
		return fmt.Errorf("enqueue webhook delivery: %w", err)
	}
	return nil
}

func (s *Store) DueDeliveries(ctx context.Context, limit int) ([]domain.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 20
	}
	// Claiming pushes next_attempt_at forward as a lease so a crashed
	// worker's batch becomes due again on its own.
	rows, err := s.db.QueryContext(ctx, `
		UPDATE webhook_deliveries
		SET next_attempt_at = NOW() + INTERVAL '60 seconds'
		WHERE id IN (
			SELECT id FROM webhook_deliveries
			WHERE status = 'pending' AND next_attempt_at <= NOW()
			ORDER BY next_attempt_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, subscription_id, event, payload, status, attempts,
		          COALESCE(last_error,''), next_attempt_at, created_at
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("due deliveries: %w", err)
	}
	defer rows.Close()

	var deliveries []domain.WebhookDelivery
	for rows.Next() {
		var d domain.WebhookDelivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.Event, &d.Payload, &d.Status,
			&d.Attempts, &d.LastError, &d.NextAttemptAt, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET status = 'delivered', delivered_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	return nil
}

func (s *Store) RecordFailure(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string, terminal bool) error {
	status := "pending"
	if terminal {
		status = "failed"
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhook_deliveries
		SET status = $2, attempts = $3, next_attempt_at = $4, last_error = $5
		WHERE id = $1
	`, id, status, attempts, nextAt, lastError)
	if err != nil {
		return fmt.Errorf("record delivery failure: %w", err)
	}
	return nil
}
