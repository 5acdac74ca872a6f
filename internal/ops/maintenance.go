package ops

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ignite/outreach-engine/internal/domain"
)

// MaintenanceStore is the slice of persistence the periodic jobs touch.
type MaintenanceStore interface {
	ResetDailyCounters(ctx context.Context) (int64, error)
	AdvanceWarmupDays(ctx context.Context) (int64, error)
	ExhaustedCampaigns(ctx context.Context) ([]string, error)
	CompleteCampaign(ctx context.Context, id string) (bool, error)
}

// Emitter queues a webhook notification for delivery. Optional; a nil
// emitter disables notifications.
type Emitter interface {
	Emit(ctx context.Context, event domain.WebhookEvent, data map[string]any)
}

// Maintenance runs the engine's periodic jobs on a UTC cron: the
// midnight rollover (daily counters, warm-up day) and the campaign
// completion sweep.
type Maintenance struct {
	store   MaintenanceStore
	emitter Emitter
	cron    *cron.Cron
}

func NewMaintenance(st MaintenanceStore) *Maintenance {
	return &Maintenance{
		store: st,
		cron:  cron.New(cron.WithLocation(time.UTC)),
	}
}

// SetEmitter enables webhook notifications for completed campaigns.
func (m *Maintenance) SetEmitter(e Emitter) {
	m.emitter = e
}

// Start registers the schedules and begins running them.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("0 0 * * *", func() {
		m.RunMidnightRollover(context.Background())
	}); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc("*/15 * * * *", func() {
		m.RunCampaignSweep(context.Background())
	}); err != nil {
		return err
	}
	m.cron.Start()
	log.Printf("[Maintenance] cron started (midnight rollover, 15m campaign sweep, UTC)")
	return nil
}

// Stop halts the cron and waits for running jobs to finish.
func (m *Maintenance) Stop() {
	<-m.cron.Stop().Done()
	log.Printf("[Maintenance] stopped")
}

// RunMidnightRollover zeroes per-day send counters and advances the
// warm-up day for every warming inbox. Daily limits are computed from
// these two fields, so the rollover is what refills capacity each day.
func (m *Maintenance) RunMidnightRollover(ctx context.Context) {
	reset, err := m.store.ResetDailyCounters(ctx)
	if err != nil {
		log.Printf("[Maintenance] resetting daily counters: %v", err)
	} else {
		log.Printf("[Maintenance] reset sent_today on %d inboxes", reset)
	}

	advanced, err := m.store.AdvanceWarmupDays(ctx)
	if err != nil {
		log.Printf("[Maintenance] advancing warmup days: %v", err)
	} else {
		log.Printf("[Maintenance] advanced warmup on %d inboxes", advanced)
	}
}

// RunCampaignSweep completes active campaigns that have no work left.
// Returns how many campaigns were completed.
func (m *Maintenance) RunCampaignSweep(ctx context.Context) int {
	ids, err := m.store.ExhaustedCampaigns(ctx)
	if err != nil {
		log.Printf("[Maintenance] listing exhausted campaigns: %v", err)
		return 0
	}

	completed := 0
	for _, id := range ids {
		ok, err := m.store.CompleteCampaign(ctx, id)
		if err != nil {
			log.Printf("[Maintenance] completing campaign %s: %v", id, err)
			continue
		}
		if ok {
			completed++
			log.Printf("[Maintenance] campaign %s completed", id)
			if m.emitter != nil {
				m.emitter.Emit(ctx, domain.WebhookCampaignCompleted, map[string]any{
					"campaign_id": id,
				})
			}
		}
	}
	return completed
}
