package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/store"
)

// memStore is an in-memory store.Store for worker tests.
type memStore struct {
	mu           sync.Mutex
	leads        map[string]*domain.Lead
	inboxes      map[string]*domain.Inbox
	campaigns    map[string]*domain.Campaign
	steps        map[string][]domain.SequenceStep
	opens        map[string][]time.Time
	jobs         map[string]*domain.DeliveryJob
	subs         map[string]*domain.WebhookSubscription
	deliveries   map[string]*domain.WebhookDelivery
	changes      []domain.LeadChange
	pauseReasons map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		leads:        make(map[string]*domain.Lead),
		inboxes:      make(map[string]*domain.Inbox),
		campaigns:    make(map[string]*domain.Campaign),
		steps:        make(map[string][]domain.SequenceStep),
		opens:        make(map[string][]time.Time),
		jobs:         make(map[string]*domain.DeliveryJob),
		subs:         make(map[string]*domain.WebhookSubscription),
		deliveries:   make(map[string]*domain.WebhookDelivery),
		pauseReasons: make(map[string]string),
	}
}

var _ store.Store = (*memStore)(nil)

func (m *memStore) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) EligibleLeads(ctx context.Context, campaignID string, limit int) ([]domain.Lead, error) {
	return nil, nil
}

func (m *memStore) UpdateLeadStatus(ctx context.Context, leadID string, from, to domain.LeadStatus, override bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[leadID]
	if !ok || l.Status != from {
		return false, nil
	}
	if !override && l.ManualOverride {
		return false, nil
	}
	l.Status = to
	return true, nil
}

func (m *memStore) SetReplyIntent(ctx context.Context, leadID string, intent domain.ReplyIntent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[leadID]
	if !ok || l.ManualOverride {
		return false, nil
	}
	l.ReplyIntent = &intent
	return true, nil
}

func (m *memStore) SetManualOverride(ctx context.Context, leadID string, frozen bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leads[leadID]; ok {
		l.ManualOverride = frozen
	}
	return nil
}

func (m *memStore) RecordChange(ctx context.Context, change domain.LeadChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, change)
	return nil
}

func (m *memStore) MarkContacted(ctx context.Context, leadID, stepID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[leadID]
	if !ok {
		return store.ErrNotFound
	}
	for _, steps := range m.steps {
		for _, st := range steps {
			if st.ID == stepID {
				l.CurrentStep = st.StepOrder
				now := time.Now()
				l.LastContactedAt = &now
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (m *memStore) IncrementSoftBounce(ctx context.Context, leadID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[leadID]
	if !ok {
		return 0, store.ErrNotFound
	}
	l.SoftBounceCount++
	return l.SoftBounceCount, nil
}

func (m *memStore) OpenTimes(ctx context.Context, leadID string, limit int) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[leadID], nil
}

func (m *memStore) GetInbox(ctx context.Context, id string) (*domain.Inbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inboxes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *memStore) CampaignInboxes(ctx context.Context, campaignID string) ([]domain.Inbox, error) {
	return nil, nil
}

func (m *memStore) IncrementSentToday(ctx context.Context, inboxID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.inboxes[inboxID]; ok {
		in.SentToday++
		in.TotalSent++
	}
	return nil
}

func (m *memStore) ResetDailyCounters(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, in := range m.inboxes {
		if in.SentToday != 0 {
			in.SentToday = 0
			n++
		}
	}
	return n, nil
}

func (m *memStore) AdvanceWarmupDays(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, in := range m.inboxes {
		if in.WarmupEnabled {
			in.WarmupDay++
			n++
		}
	}
	return n, nil
}

func (m *memStore) PauseInbox(ctx context.Context, inboxID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.inboxes[inboxID]; ok {
		in.Status = domain.InboxPaused
	}
	m.pauseReasons[inboxID] = reason
	return nil
}

func (m *memStore) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) DueCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return nil, nil
}

func (m *memStore) Steps(ctx context.Context, campaignID string) ([]domain.SequenceStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.steps[campaignID], nil
}

func (m *memStore) ActiveCampaignsForList(ctx context.Context, listID string) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.ListID == listID && c.Status == domain.CampaignActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memStore) MarkCampaignStarted(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.StartedAt != nil {
		return false, nil
	}
	now := time.Now()
	c.StartedAt = &now
	return true, nil
}

func (m *memStore) StopCampaign(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.Status != domain.CampaignActive {
		return false, nil
	}
	c.Status = domain.CampaignStopped
	return true, nil
}

func (m *memStore) CompleteCampaign(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.Status != domain.CampaignActive {
		return false, nil
	}
	c.Status = domain.CampaignCompleted
	return true, nil
}

func (m *memStore) ExhaustedCampaigns(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (m *memStore) Enqueue(ctx context.Context, job *domain.DeliveryJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) Claim(ctx context.Context, workerID string, limit int) ([]domain.DeliveryJob, error) {
	return nil, nil
}

func (m *memStore) MarkSent(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Status = domain.JobSent
	}
	return nil
}

func (m *memStore) Reschedule(ctx context.Context, jobID string, at time.Time, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Status = domain.JobQueued
		j.ScheduledAt = at
		j.LastError = lastError
	}
	return nil
}

func (m *memStore) MarkFailed(ctx context.Context, jobID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[jobID]; ok {
		j.Status = domain.JobFailed
		j.LastError = lastError
	}
	return nil
}

func (m *memStore) ActiveSubscriptions(ctx context.Context, event domain.WebhookEvent) ([]domain.WebhookSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WebhookSubscription
	for _, sub := range m.subs {
		if sub.Active && sub.WantsEvent(event) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (m *memStore) GetSubscription(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *memStore) EnqueueDelivery(ctx context.Context, d *domain.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.Status == "" {
		d.Status = domain.DeliveryPending
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *memStore) DueDeliveries(ctx context.Context, limit int) ([]domain.WebhookDelivery, error) {
	return nil, nil
}

func (m *memStore) MarkDelivered(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[id]; ok {
		d.Status = domain.DeliveryDelivered
	}
	return nil
}

func (m *memStore) RecordFailure(ctx context.Context, id string, attempts int, nextAt time.Time, lastError string, terminal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		d = &domain.WebhookDelivery{ID: id}
		m.deliveries[id] = d
	}
	d.Attempts = attempts
	d.NextAttemptAt = nextAt
	d.LastError = lastError
	if terminal {
		d.Status = domain.DeliveryFailed
	} else {
		d.Status = domain.DeliveryPending
	}
	return nil
}

// deliveriesFor returns recorded deliveries for one event type.
func (m *memStore) deliveriesFor(event domain.WebhookEvent) []domain.WebhookDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.WebhookDelivery
	for _, d := range m.deliveries {
		if d.Event == event {
			out = append(out, *d)
		}
	}
	return out
}
