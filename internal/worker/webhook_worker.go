package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/retry"
	"github.com/ignite/outreach-engine/internal/store"
	"github.com/ignite/outreach-engine/internal/webhook"
)

const (
	webhookBatchSize    = 20
	webhookPollInterval = 5 * time.Second
)

// WebhookWorker drains pending webhook deliveries: it claims due rows, POSTs
// each payload once, and either finalizes the delivery or schedules the next
// attempt on the exponential backoff curve. At-least-once; receivers must
// dedupe on the payload.
type WebhookWorker struct {
	store      store.WebhookStore
	dispatcher *webhook.Dispatcher
	numWorkers int

	// Stats
	totalDelivered int64
	totalRetried   int64
	totalFailed    int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex

	// Subscriptions change rarely; cached per delivery batch.
	subCache map[string]*domain.WebhookSubscription
	subMu    sync.Mutex
}

// NewWebhookWorker creates a dispatch worker. Worker count is clamped to
// [2, 10]. A nil dispatcher gets the default HTTP client.
func NewWebhookWorker(st store.WebhookStore, dispatcher *webhook.Dispatcher, numWorkers int) *WebhookWorker {
	if dispatcher == nil {
		dispatcher = webhook.NewDispatcher(nil)
	}
	if numWorkers < 2 {
		numWorkers = 2
	}
	if numWorkers > 10 {
		numWorkers = 10
	}
	return &WebhookWorker{
		store:      st,
		dispatcher: dispatcher,
		numWorkers: numWorkers,
		subCache:   make(map[string]*domain.WebhookSubscription),
	}
}

// Start launches the dispatch loops.
func (w *WebhookWorker) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("webhook worker already running")
	}
	w.running = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	log.Printf("[WebhookWorker] Starting %d workers", w.numWorkers)
	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.loop()
	}
	return nil
}

// Stop cancels the worker and waits for in-flight deliveries.
func (w *WebhookWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	log.Printf("[WebhookWorker] Stopping...")
	w.cancel()
	w.wg.Wait()
	log.Printf("[WebhookWorker] Stopped. Delivered: %d, Retried: %d, Failed: %d",
		atomic.LoadInt64(&w.totalDelivered),
		atomic.LoadInt64(&w.totalRetried),
		atomic.LoadInt64(&w.totalFailed))
}

// Stats reports cumulative counters for the ops endpoint.
func (w *WebhookWorker) Stats() map[string]int64 {
	return map[string]int64{
		"delivered": atomic.LoadInt64(&w.totalDelivered),
		"retried":   atomic.LoadInt64(&w.totalRetried),
		"failed":    atomic.LoadInt64(&w.totalFailed),
	}
}

func (w *WebhookWorker) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		deliveries, err := w.store.DueDeliveries(w.ctx, webhookBatchSize)
		if err != nil {
			if w.ctx.Err() == nil {
				log.Printf("[WebhookWorker] Error claiming deliveries: %v", err)
			}
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(webhookPollInterval):
			}
			continue
		}
		if len(deliveries) == 0 {
			select {
			case <-w.ctx.Done():
				return
			case <-time.After(webhookPollInterval):
			}
			continue
		}

		for i := range deliveries {
			if w.ctx.Err() != nil {
				return
			}
			w.ProcessDelivery(w.ctx, &deliveries[i])
		}
	}
}

// ProcessDelivery attempts one delivery and records the outcome.
func (w *WebhookWorker) ProcessDelivery(ctx context.Context, d *domain.WebhookDelivery) {
	sub, err := w.subscription(ctx, d.SubscriptionID)
	if err != nil {
		// Subscription deleted out from under the delivery; terminal.
		w.store.RecordFailure(ctx, d.ID, d.Attempts+1, time.Now(), "subscription not found", true)
		atomic.AddInt64(&w.totalFailed, 1)
		return
	}

	attempts := d.Attempts + 1
	delivered, err := w.dispatcher.Deliver(ctx, sub, d.Event, d.Payload)
	if err == nil {
		if !delivered {
			// Filtered by the subscription's event set; nothing to send
			// and nothing to retry.
			w.store.MarkDelivered(ctx, d.ID)
			return
		}
		w.store.MarkDelivered(ctx, d.ID)
		atomic.AddInt64(&w.totalDelivered, 1)
		return
	}

	if retry.Retryable(attempts) {
		nextAt := time.Now().Add(retry.Backoff(attempts))
		w.store.RecordFailure(ctx, d.ID, attempts, nextAt, err.Error(), false)
		atomic.AddInt64(&w.totalRetried, 1)
		return
	}

	log.Printf("[WebhookWorker] Delivery %s to %s failed permanently after %d attempts: %v",
		d.ID, sub.URL, attempts, err)
	w.store.RecordFailure(ctx, d.ID, attempts, time.Now(), err.Error(), true)
	atomic.AddInt64(&w.totalFailed, 1)
}

func (w *WebhookWorker) subscription(ctx context.Context, id string) (*domain.WebhookSubscription, error) {
	w.subMu.Lock()
	if sub, ok := w.subCache[id]; ok {
		w.subMu.Unlock()
		return sub, nil
	}
	w.subMu.Unlock()

	sub, err := w.store.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	w.subMu.Lock()
	w.subCache[id] = sub
	w.subMu.Unlock()
	return sub, nil
}
