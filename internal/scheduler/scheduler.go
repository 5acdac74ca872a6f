// Package scheduler turns active campaigns into delivery jobs. Each tick it
// loads due campaigns, checks the campaign's send window, recomputes inbox
// availability from scratch, and enqueues at most MaxJobsPerTick jobs per
// campaign. It never sends mail itself; the send worker pool drains the queue.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/capacity"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/distlock"
	"github.com/ignite/outreach-engine/internal/schedule"
	"github.com/ignite/outreach-engine/internal/sendtime"
	"github.com/ignite/outreach-engine/internal/textgen"
)

const (
	// DefaultPollInterval is how often the scheduler looks for due campaigns.
	DefaultPollInterval = 30 * time.Second

	// MaxJobsPerTick caps enqueues per campaign per tick so one large
	// campaign cannot starve the rest.
	MaxJobsPerTick = 100

	// campaignLockTTL bounds how long one process may hold a campaign.
	campaignLockTTL = 5 * time.Minute
)

// Store is the persistence surface the scheduler reads and enqueues through.
type Store interface {
	DueCampaigns(ctx context.Context) ([]domain.Campaign, error)
	Steps(ctx context.Context, campaignID string) ([]domain.SequenceStep, error)
	EligibleLeads(ctx context.Context, campaignID string, limit int) ([]domain.Lead, error)
	CampaignInboxes(ctx context.Context, campaignID string) ([]domain.Inbox, error)
	OpenTimes(ctx context.Context, leadID string, limit int) ([]time.Time, error)
	MarkCampaignStarted(ctx context.Context, id string) (bool, error)
	Enqueue(ctx context.Context, job *domain.DeliveryJob) error
}

// Emitter queues a webhook notification for delivery. Optional; a nil
// emitter disables notifications.
type Emitter interface {
	Emit(ctx context.Context, event domain.WebhookEvent, data map[string]any)
}

// Scheduler polls for active campaigns and enqueues delivery jobs.
type Scheduler struct {
	store        Store
	redisClient  *redis.Client // optional; nil falls back to PG advisory locks
	db           *sql.DB       // advisory-lock fallback; nil disables locking
	personalizer textgen.Service
	emitter      Emitter
	rotation     *Rotation
	rng          *rand.Rand
	workerID     string
	pollInterval time.Duration

	// Stats
	campaignsProcessed int64
	jobsEnqueued       int64
	errors             int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// New creates a scheduler. The rotation arena is injected so multiple
// schedulers in one process can share counters and tests can seed them.
func New(store Store, rotation *Rotation) *Scheduler {
	hostname, _ := os.Hostname()
	if rotation == nil {
		rotation = NewRotation()
	}
	return &Scheduler{
		store:        store,
		personalizer: textgen.NewRuleBased(),
		rotation:     rotation,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		workerID:     fmt.Sprintf("scheduler-%s-%d", hostname, time.Now().UnixNano()%10000),
		pollInterval: DefaultPollInterval,
	}
}

// SetRedisClient enables Redis-backed campaign locks.
func (s *Scheduler) SetRedisClient(client *redis.Client) {
	s.redisClient = client
}

// SetDB enables the Postgres advisory-lock fallback.
func (s *Scheduler) SetDB(db *sql.DB) {
	s.db = db
}

// SetPersonalizer swaps the template renderer (an LLM-backed one in
// production, the rule-based fallback otherwise).
func (s *Scheduler) SetPersonalizer(svc textgen.Service) {
	s.personalizer = svc
}

// SetEmitter enables webhook notifications for campaign lifecycle events.
func (s *Scheduler) SetEmitter(e Emitter) {
	s.emitter = e
}

// SetPollInterval overrides the tick interval.
func (s *Scheduler) SetPollInterval(d time.Duration) {
	s.pollInterval = d
}

// Start begins the polling loop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	log.Printf("[Scheduler] Starting with poll interval: %v", s.pollInterval)

	s.wg.Add(1)
	go s.tickLoop()

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	log.Printf("[Scheduler] Stopping...")
	s.cancel()
	s.wg.Wait()
	log.Printf("[Scheduler] Stopped. Campaigns: %d, Jobs enqueued: %d, Errors: %d",
		atomic.LoadInt64(&s.campaignsProcessed),
		atomic.LoadInt64(&s.jobsEnqueued),
		atomic.LoadInt64(&s.errors))
}

// Stats reports cumulative counters for the ops endpoint.
func (s *Scheduler) Stats() map[string]int64 {
	return map[string]int64{
		"campaigns_processed": atomic.LoadInt64(&s.campaignsProcessed),
		"jobs_enqueued":       atomic.LoadInt64(&s.jobsEnqueued),
		"errors":              atomic.LoadInt64(&s.errors),
	}
}

func (s *Scheduler) tickLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.ctx)
		}
	}
}

// Tick runs one scheduling pass over every due campaign.
func (s *Scheduler) Tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	campaigns, err := s.store.DueCampaigns(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error fetching due campaigns: %v", err)
		atomic.AddInt64(&s.errors, 1)
		return
	}

	for i := range campaigns {
		s.processCampaign(ctx, &campaigns[i])
	}
}

func (s *Scheduler) processCampaign(ctx context.Context, campaign *domain.Campaign) {
	// Serialize per campaign across scheduler processes. With neither Redis
	// nor a DB handle configured (single-process mode) locking is skipped.
	if s.redisClient != nil || s.db != nil {
		lock := distlock.New(s.redisClient, s.db, "campaign:"+campaign.ID, campaignLockTTL)
		acquired, err := lock.TryAcquire(ctx)
		if err != nil {
			log.Printf("[Scheduler] Error acquiring lock for campaign %s: %v", campaign.ID, err)
			atomic.AddInt64(&s.errors, 1)
			return
		}
		if !acquired {
			return
		}
		defer lock.Release(ctx)
	}

	enqueued, err := s.scheduleCampaign(ctx, campaign)
	if err != nil {
		log.Printf("[Scheduler] Error scheduling campaign %s: %v", campaign.ID, err)
		atomic.AddInt64(&s.errors, 1)
		return
	}

	atomic.AddInt64(&s.campaignsProcessed, 1)
	if enqueued > 0 {
		atomic.AddInt64(&s.jobsEnqueued, int64(enqueued))
		log.Printf("[Scheduler] Campaign %s: enqueued %d jobs", campaign.ID, enqueued)
		s.markStarted(ctx, campaign)
	}
}

// markStarted stamps started_at on the campaign's first enqueue and emits
// the start notification exactly once across scheduler processes.
func (s *Scheduler) markStarted(ctx context.Context, campaign *domain.Campaign) {
	if campaign.StartedAt != nil {
		return
	}
	started, err := s.store.MarkCampaignStarted(ctx, campaign.ID)
	if err != nil {
		log.Printf("[Scheduler] Error marking campaign %s started: %v", campaign.ID, err)
		return
	}
	if started && s.emitter != nil {
		s.emitter.Emit(ctx, domain.WebhookCampaignStarted, map[string]any{
			"campaign_id": campaign.ID, "name": campaign.Name,
		})
	}
}

// scheduleCampaign is the per-campaign pass: window check, availability
// recompute, then lead-by-lead inbox rotation and enqueue.
func (s *Scheduler) scheduleCampaign(ctx context.Context, campaign *domain.Campaign) (int, error) {
	if !s.withinSchedule(time.Now(), campaign.Settings) {
		return 0, nil
	}

	steps, err := s.store.Steps(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("load steps: %w", err)
	}
	if len(steps) == 0 {
		return 0, nil
	}
	stepByOrder := make(map[int]*domain.SequenceStep, len(steps))
	for i := range steps {
		stepByOrder[steps[i].StepOrder] = &steps[i]
	}

	// Availability is recomputed from current counters every tick; an inbox
	// whose throttle dropped or limit filled since the last tick is excluded
	// immediately. Remaining capacity is decremented in-tick so one pass
	// cannot over-commit an inbox.
	inboxes, err := s.store.CampaignInboxes(ctx, campaign.ID)
	if err != nil {
		return 0, fmt.Errorf("load inboxes: %w", err)
	}
	type slot struct {
		inbox     *domain.Inbox
		remaining int
	}
	var available []*slot
	for i := range inboxes {
		in := &inboxes[i]
		if !capacity.EligibleWithFloor(in, campaign.Settings.HealthFloor) {
			continue
		}
		remaining := capacity.DailySendBudget(in) - in.SentToday
		if remaining <= 0 {
			continue
		}
		available = append(available, &slot{inbox: in, remaining: remaining})
	}
	if len(available) == 0 {
		return 0, nil
	}

	leads, err := s.store.EligibleLeads(ctx, campaign.ID, MaxJobsPerTick)
	if err != nil {
		return 0, fmt.Errorf("load eligible leads: %w", err)
	}

	enqueued := 0
	for i := range leads {
		if enqueued >= MaxJobsPerTick {
			break
		}
		lead := &leads[i]

		step := stepByOrder[lead.CurrentStep+1]
		if step == nil {
			continue
		}

		// Round-robin over the inboxes that still have capacity this tick.
		var open []*slot
		for _, sl := range available {
			if sl.remaining > 0 {
				open = append(open, sl)
			}
		}
		if len(open) == 0 {
			break
		}
		sl := open[s.rotation.Pick("campaign:"+campaign.ID, len(open))]
		sl.remaining--

		job, err := s.buildJob(ctx, campaign, lead, step, sl.inbox)
		if err != nil {
			log.Printf("[Scheduler] Error building job for lead %s: %v", lead.ID, err)
			atomic.AddInt64(&s.errors, 1)
			continue
		}
		if err := s.store.Enqueue(ctx, job); err != nil {
			log.Printf("[Scheduler] Error enqueuing job for lead %s: %v", lead.ID, err)
			atomic.AddInt64(&s.errors, 1)
			continue
		}
		enqueued++
	}

	return enqueued, nil
}

// withinSchedule applies the campaign's send-window rules. A per-day schedule
// takes precedence over the single window when configured.
func (s *Scheduler) withinSchedule(now time.Time, settings domain.CampaignSettings) bool {
	if len(settings.PerDaySchedule) > 0 {
		return schedule.WithinPerDaySchedule(now, settings.Timezone, settings.PerDaySchedule)
	}
	return schedule.WithinSendWindow(now, settings.Timezone,
		settings.AllowedDays, settings.WindowStart, settings.WindowEnd)
}

// buildJob renders the message and picks the delivery time. Leads with enough
// open history get their personally optimal hour; everyone else goes out now.
func (s *Scheduler) buildJob(ctx context.Context, campaign *domain.Campaign,
	lead *domain.Lead, step *domain.SequenceStep, inbox *domain.Inbox) (*domain.DeliveryJob, error) {

	subject, body := step.Subject, step.Body
	variantID := ""
	if v := PickVariant(step.Variants, s.rng); v != nil {
		variantID = v.ID
		if v.Subject != "" {
			subject = v.Subject
		}
		if v.Body != "" {
			body = v.Body
		}
	}

	// Custom fields first so the built-in names always win.
	fields := make(map[string]string, len(lead.CustomFields)+7)
	for k, v := range lead.CustomFields {
		fields[k] = fmt.Sprint(v)
	}
	for k, v := range map[string]string{
		"first_name": lead.FirstName,
		"last_name":  lead.LastName,
		"full_name":  lead.FullName(),
		"company":    lead.Company,
		"title":      lead.Title,
		"city":       lead.City,
		"email":      lead.Email,
	} {
		fields[k] = v
	}
	subject, err := s.personalizer.Personalize(ctx, subject, fields)
	if err != nil {
		return nil, fmt.Errorf("personalize subject: %w", err)
	}
	body, err = s.personalizer.Personalize(ctx, body, fields)
	if err != nil {
		return nil, fmt.Errorf("personalize body: %w", err)
	}

	job := &domain.DeliveryJob{
		CampaignID:  campaign.ID,
		LeadID:      lead.ID,
		InboxID:     inbox.ID,
		StepID:      step.ID,
		VariantID:   variantID,
		Subject:     subject,
		Body:        body,
		ScheduledAt: time.Now().UTC(),
	}

	zone, _ := sendtime.ResolveZone(lead, campaign.Settings.Timezone)
	opens, err := s.store.OpenTimes(ctx, lead.ID, 50)
	if err != nil {
		// Open history is an optimization, not a requirement.
		log.Printf("[Scheduler] Error loading open history for lead %s: %v", lead.ID, err)
		return job, nil
	}
	if hour, conf := sendtime.OptimalHour(opens, zone, s.rng); conf == sendtime.ConfidenceHigh {
		days := make([]time.Weekday, len(campaign.Settings.AllowedDays))
		for i, d := range campaign.Settings.AllowedDays {
			days[i] = time.Weekday(d)
		}
		job.ScheduledAt = sendtime.NextSendTime(time.Now(), zone, days, hour)
	}

	return job, nil
}
