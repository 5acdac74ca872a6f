package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ignite/outreach-engine/internal/capacity"
	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/lifecycle"
	"github.com/ignite/outreach-engine/internal/retry"
	"github.com/ignite/outreach-engine/internal/store"
)

const (
	// MaxSendAttempts caps transient-failure redelivery of one job.
	MaxSendAttempts = 5

	defaultSendsPerSecond = 5
	defaultBatchSize      = 20
	defaultPollInterval   = 2 * time.Second
)

// SendWorkerPool drains the delivery-job queue through the mail transport.
// Concurrency is bounded; a shared token-bucket limiter additionally caps
// sends per second across the pool to respect provider throughput.
type SendWorkerPool struct {
	store        store.Store
	mailer       Mailer
	limiter      *rate.Limiter
	counter      *DailyCounter       // optional Redis daily counter
	notifier     *lifecycle.Notifier // optional observer fan-out
	emitter      *WebhookEmitter
	workerID     string
	numWorkers   int
	batchSize    int
	pollInterval time.Duration

	// Stats
	totalSent        int64
	totalFailed      int64
	totalRescheduled int64
	totalSkipped     int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewSendWorkerPool creates a pool. Worker count is clamped to [2, 10].
func NewSendWorkerPool(st store.Store, mailer Mailer, numWorkers int) *SendWorkerPool {
	if numWorkers < 2 {
		numWorkers = 2
	}
	if numWorkers > 10 {
		numWorkers = 10
	}
	return &SendWorkerPool{
		store:        st,
		mailer:       mailer,
		emitter:      NewWebhookEmitter(st, "[SendWorker]"),
		limiter:      rate.NewLimiter(rate.Limit(defaultSendsPerSecond), 1),
		workerID:     fmt.Sprintf("sender-%d", time.Now().UnixNano()%100000),
		numWorkers:   numWorkers,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
}

// SetSendsPerSecond adjusts the pool-wide rate limit.
func (p *SendWorkerPool) SetSendsPerSecond(n float64) {
	p.limiter.SetLimit(rate.Limit(n))
}

// SetDailyCounter enables the Redis daily-limit check before each send.
func (p *SendWorkerPool) SetDailyCounter(c *DailyCounter) {
	p.counter = c
}

// SetNotifier fans committed lead transitions out to the given observers.
func (p *SendWorkerPool) SetNotifier(n *lifecycle.Notifier) {
	p.notifier = n
}

// Start launches the worker goroutines.
func (p *SendWorkerPool) Start() error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("send worker pool already running")
	}
	p.running = true
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.mu.Unlock()

	log.Printf("[SendWorker] Starting %d workers, batch size %d", p.numWorkers, p.batchSize)

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	return nil
}

// Stop cancels the pool and waits for in-flight jobs to finish.
func (p *SendWorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	log.Printf("[SendWorker] Stopping...")
	p.cancel()
	p.wg.Wait()
	log.Printf("[SendWorker] Stopped. Sent: %d, Failed: %d, Rescheduled: %d, Skipped: %d",
		atomic.LoadInt64(&p.totalSent), atomic.LoadInt64(&p.totalFailed),
		atomic.LoadInt64(&p.totalRescheduled), atomic.LoadInt64(&p.totalSkipped))
}

// Stats reports cumulative counters for the ops endpoint.
func (p *SendWorkerPool) Stats() map[string]int64 {
	return map[string]int64{
		"sent":        atomic.LoadInt64(&p.totalSent),
		"failed":      atomic.LoadInt64(&p.totalFailed),
		"rescheduled": atomic.LoadInt64(&p.totalRescheduled),
		"skipped":     atomic.LoadInt64(&p.totalSkipped),
	}
}

func (p *SendWorkerPool) workerLoop(n int) {
	defer p.wg.Done()

	workerID := fmt.Sprintf("%s-%d", p.workerID, n)
	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		jobs, err := p.store.Claim(p.ctx, workerID, p.batchSize)
		if err != nil {
			// Transient store trouble must never kill the worker.
			if p.ctx.Err() == nil {
				log.Printf("[SendWorker] Error claiming jobs: %v", err)
			}
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}
		if len(jobs) == 0 {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.pollInterval):
			}
			continue
		}

		for i := range jobs {
			if p.ctx.Err() != nil {
				return
			}
			p.ProcessJob(p.ctx, &jobs[i])
		}
	}
}

// ProcessJob runs the full handling of one claimed job: pre-send checks,
// the rate-limited send, and job/lead/webhook bookkeeping for the outcome.
func (p *SendWorkerPool) ProcessJob(ctx context.Context, job *domain.DeliveryJob) {
	lead, err := p.store.GetLead(ctx, job.LeadID)
	if err != nil {
		log.Printf("[SendWorker] Error loading lead %s: %v", job.LeadID, err)
		p.reschedule(ctx, job, err.Error())
		return
	}

	// The lead may have replied, unsubscribed, or bounced since this job
	// was enqueued. Terminal or replied leads never receive the step.
	if lifecycle.BlocksSequence(lead.Status) {
		atomic.AddInt64(&p.totalSkipped, 1)
		p.store.MarkFailed(ctx, job.ID, fmt.Sprintf("lead status %s blocks sending", lead.Status))
		return
	}

	inbox, err := p.store.GetInbox(ctx, job.InboxID)
	if err != nil {
		log.Printf("[SendWorker] Error loading inbox %s: %v", job.InboxID, err)
		p.reschedule(ctx, job, err.Error())
		return
	}

	if p.counter != nil {
		limit := capacity.DailySendBudget(inbox)
		allowed, _, err := p.counter.Allow(ctx, inbox.ID, limit)
		if err != nil {
			log.Printf("[SendWorker] Daily counter error for inbox %s: %v", inbox.ID, err)
		} else if !allowed {
			// Out of budget for today; park the job until tomorrow.
			p.store.Reschedule(ctx, job.ID, nextUTCMidnight(), "inbox daily limit reached")
			atomic.AddInt64(&p.totalRescheduled, 1)
			return
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	receipt, err := p.mailer.Send(ctx, &OutboundMessage{
		JobID:     job.ID,
		To:        lead.Email,
		FromName:  inbox.FromName,
		FromEmail: inbox.Email,
		Subject:   job.Subject,
		Body:      job.Body,
	})
	if err != nil {
		p.handleSendFailure(ctx, job, lead, inbox, err)
		return
	}

	p.handleSendSuccess(ctx, job, lead, inbox, receipt)
}

func (p *SendWorkerPool) handleSendSuccess(ctx context.Context, job *domain.DeliveryJob,
	lead *domain.Lead, inbox *domain.Inbox, receipt *SendReceipt) {

	if err := p.store.MarkSent(ctx, job.ID); err != nil {
		log.Printf("[SendWorker] Error finalizing job %s: %v", job.ID, err)
	}
	if err := p.store.MarkContacted(ctx, lead.ID, job.StepID); err != nil {
		log.Printf("[SendWorker] Error advancing lead %s: %v", lead.ID, err)
	}
	if err := p.store.IncrementSentToday(ctx, inbox.ID); err != nil {
		log.Printf("[SendWorker] Error bumping counters for inbox %s: %v", inbox.ID, err)
	}

	p.applyLifecycle(ctx, lead, domain.EventEmailSent)
	p.emit(ctx, domain.WebhookEmailSent, map[string]any{
		"lead_id": lead.ID, "campaign_id": job.CampaignID,
		"inbox_id": inbox.ID, "step_id": job.StepID,
		"message_id": receipt.MessageID,
	})
	atomic.AddInt64(&p.totalSent, 1)

	p.checkSequenceComplete(ctx, job, lead)
}

// checkSequenceComplete finishes the lead's sequence when the delivered step
// was the last one.
func (p *SendWorkerPool) checkSequenceComplete(ctx context.Context, job *domain.DeliveryJob, lead *domain.Lead) {
	steps, err := p.store.Steps(ctx, job.CampaignID)
	if err != nil {
		log.Printf("[SendWorker] Error loading steps for campaign %s: %v", job.CampaignID, err)
		return
	}
	deliveredOrder, maxOrder := 0, 0
	for _, st := range steps {
		if st.ID == job.StepID {
			deliveredOrder = st.StepOrder
		}
		if st.StepOrder > maxOrder {
			maxOrder = st.StepOrder
		}
	}
	if deliveredOrder > 0 && deliveredOrder >= maxOrder {
		p.applyLifecycle(ctx, lead, domain.EventSequenceComplete)
	}
}

func (p *SendWorkerPool) handleSendFailure(ctx context.Context, job *domain.DeliveryJob,
	lead *domain.Lead, inbox *domain.Inbox, sendErr error) {

	switch ClassifyError(sendErr) {
	case ErrClassAuth:
		// Credential failures poison the whole inbox; no amount of
		// backoff helps until an operator reconnects it.
		log.Printf("[SendWorker] Auth failure on inbox %s, pausing: %v", inbox.ID, sendErr)
		p.store.PauseInbox(ctx, inbox.ID, "authentication failure")
		p.store.MarkFailed(ctx, job.ID, sendErr.Error())
		p.emit(ctx, domain.WebhookInboxPaused, map[string]any{
			"inbox_id": inbox.ID, "reason": "authentication failure",
		})
		atomic.AddInt64(&p.totalFailed, 1)

	case ErrClassHardBounce:
		p.store.MarkFailed(ctx, job.ID, sendErr.Error())
		p.applyLifecycle(ctx, lead, domain.EventHardBounce)
		p.emit(ctx, domain.WebhookEmailBounced, map[string]any{
			"lead_id": lead.ID, "campaign_id": job.CampaignID, "permanent": true,
		})
		p.emit(ctx, domain.WebhookLeadBounced, map[string]any{"lead_id": lead.ID})
		p.stopCampaignOnBounce(ctx, job.CampaignID)
		atomic.AddInt64(&p.totalFailed, 1)

	case ErrClassSoftBounce:
		count, err := p.store.IncrementSoftBounce(ctx, lead.ID)
		if err != nil {
			log.Printf("[SendWorker] Error counting soft bounce for lead %s: %v", lead.ID, err)
			count = retry.BounceMaxRetries + 1
		}
		if delay, ok := retry.BounceBackoff(count); ok {
			p.applyLifecycle(ctx, lead, domain.EventSoftBounce)
			p.store.Reschedule(ctx, job.ID, time.Now().Add(delay), sendErr.Error())
			p.emit(ctx, domain.WebhookEmailBounced, map[string]any{
				"lead_id": lead.ID, "campaign_id": job.CampaignID, "permanent": false,
			})
			atomic.AddInt64(&p.totalRescheduled, 1)
			return
		}
		// Schedule exhausted: the bounce is effectively permanent.
		p.store.MarkFailed(ctx, job.ID, sendErr.Error())
		p.applyLifecycle(ctx, lead, domain.EventHardBounce)
		p.emit(ctx, domain.WebhookLeadBounced, map[string]any{"lead_id": lead.ID})
		p.stopCampaignOnBounce(ctx, job.CampaignID)
		atomic.AddInt64(&p.totalFailed, 1)

	default: // transient
		if job.Attempts < MaxSendAttempts {
			p.store.Reschedule(ctx, job.ID, time.Now().Add(retry.Backoff(job.Attempts)), sendErr.Error())
			atomic.AddInt64(&p.totalRescheduled, 1)
			return
		}
		p.store.MarkFailed(ctx, job.ID, sendErr.Error())
		atomic.AddInt64(&p.totalFailed, 1)
	}
}

// applyLifecycle runs the state machine and persists an accepted transition.
// The guarded update loses gracefully when a concurrent event or a manual
// override got there first.
func (p *SendWorkerPool) applyLifecycle(ctx context.Context, lead *domain.Lead, event domain.LeadEvent) {
	change, ok := lifecycle.Apply(lead.ID, lead.Status, event)
	if !ok {
		return
	}
	applied, err := p.store.UpdateLeadStatus(ctx, lead.ID, change.From, change.To, false)
	if err != nil {
		log.Printf("[SendWorker] Error updating lead %s status: %v", lead.ID, err)
		return
	}
	if !applied {
		return
	}
	if err := p.store.RecordChange(ctx, *change); err != nil {
		log.Printf("[SendWorker] Error recording change for lead %s: %v", lead.ID, err)
	}
	lead.Status = change.To
	if p.notifier != nil {
		p.notifier.Notify(ctx, *change)
	}
}

// stopCampaignOnBounce stops the whole campaign after a permanent bounce
// when the campaign is configured that way. The bounced lead itself always
// exits the sequence regardless.
func (p *SendWorkerPool) stopCampaignOnBounce(ctx context.Context, campaignID string) {
	c, err := p.store.GetCampaign(ctx, campaignID)
	if err != nil {
		log.Printf("[SendWorker] Error loading campaign %s: %v", campaignID, err)
		return
	}
	if !c.Settings.StopOnBounce {
		return
	}
	stopped, err := p.store.StopCampaign(ctx, campaignID)
	if err != nil {
		log.Printf("[SendWorker] Error stopping campaign %s: %v", campaignID, err)
		return
	}
	if stopped {
		log.Printf("[SendWorker] Campaign %s stopped after hard bounce", campaignID)
	}
}

// emit fans an event out to every matching subscription as a queued delivery.
func (p *SendWorkerPool) emit(ctx context.Context, event domain.WebhookEvent, data map[string]any) {
	p.emitter.Emit(ctx, event, data)
}

func (p *SendWorkerPool) reschedule(ctx context.Context, job *domain.DeliveryJob, reason string) {
	if job.Attempts >= MaxSendAttempts {
		p.store.MarkFailed(ctx, job.ID, reason)
		atomic.AddInt64(&p.totalFailed, 1)
		return
	}
	p.store.Reschedule(ctx, job.ID, time.Now().Add(retry.Backoff(job.Attempts)), reason)
	atomic.AddInt64(&p.totalRescheduled, 1)
}

func nextUTCMidnight() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
