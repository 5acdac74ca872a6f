package lifecycle

import (
	"context"
	"fmt"
	"sync"

	"github.com/ignite/outreach-engine/internal/domain"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// Observer reacts to a committed lead status change. Observers must tolerate
// concurrent invocation.
type Observer interface {
	Name() string
	OnChange(ctx context.Context, change domain.LeadChange) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc struct {
	ObserverName string
	Fn           func(ctx context.Context, change domain.LeadChange) error
}

func (o ObserverFunc) Name() string { return o.ObserverName }

func (o ObserverFunc) OnChange(ctx context.Context, change domain.LeadChange) error {
	return o.Fn(ctx, change)
}

// ObserverResult is the per-observer outcome of a notification fan-out.
type ObserverResult struct {
	Observer string
	Err      error
}

// Notifier fans a change record out to a caller-owned observer set. The
// observer list is fixed at construction so concurrent callers never share
// a hidden mutable handler list.
type Notifier struct {
	observers []Observer
}

// NewNotifier builds a Notifier over the given observers.
func NewNotifier(observers ...Observer) *Notifier {
	return &Notifier{observers: observers}
}

// Notify invokes all observers concurrently and collects their results.
// Observer failures (errors or panics) are logged and returned but never
// propagate: one failing observer cannot block its siblings or the
// transition that triggered the notification.
func (n *Notifier) Notify(ctx context.Context, change domain.LeadChange) []ObserverResult {
	if len(n.observers) == 0 {
		return nil
	}

	results := make([]ObserverResult, len(n.observers))
	var wg sync.WaitGroup

	for i, obs := range n.observers {
		wg.Add(1)
		go func(i int, obs Observer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = ObserverResult{Observer: obs.Name(), Err: fmt.Errorf("observer panic: %v", r)}
					logger.Error("lead change observer panicked",
						"observer", obs.Name(), "lead_id", change.LeadID, "panic", fmt.Sprintf("%v", r))
				}
			}()
			err := obs.OnChange(ctx, change)
			results[i] = ObserverResult{Observer: obs.Name(), Err: err}
			if err != nil {
				logger.Warn("lead change observer failed",
					"observer", obs.Name(), "lead_id", change.LeadID, "error", err.Error())
			}
		}(i, obs)
	}

	wg.Wait()
	return results
}
