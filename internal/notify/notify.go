// internal/notify/notify.go
package notify

import (
	"context"
	"sync"
	"time"

	"pawcare-back/internal/models"

	"github.com/rs/zerolog/log"
)

// Event reports a health log's analysis status change
type Event struct {
	HealthLogID uint                  `json:"healthLogId"`
	OwnerID     uint                  `json:"owner"`
	Status      models.AnalysisStatus `json:"status"`
	Error       string                `json:"error,omitempty"`
	At          time.Time             `json:"at"`
}

// Notifier publishes status changes. Publishing is best-effort: callers log
// the error and carry on.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber streams published events until ctx is cancelled
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Bus is a Notifier that can also be subscribed to
type Bus interface {
	Notifier
	Subscriber
}

const subscriberBuffer = 100

// MemoryBus fans events out to in-process subscribers
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[chan Event]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			log.Warn().Uint("health_log_id", event.HealthLogID).Msg("subscriber channel full, skipping event")
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subscribers, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch, nil
}
