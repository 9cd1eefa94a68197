package alerts

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vivekchamoli/legion2go/internal/ui"
)

type Handler func(alert Alert)

// Bus delivers published alerts to all handlers on a single worker goroutine.
// Alerts published while the queue is full are dropped.
type Bus struct {
	queue chan Alert

	mu       sync.RWMutex
	handlers []Handler

	published atomic.Int64
	dropped   atomic.Int64

	countsMu sync.Mutex
	counts   map[Kind]int64
}

func NewBus(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Bus{
		queue:  make(chan Alert, queueSize),
		counts: map[Kind]int64{},
	}
}

func (b *Bus) AddHandler(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *Bus) Publish(alert Alert) {
	select {
	case b.queue <- alert:
		b.published.Add(1)
		b.countsMu.Lock()
		b.counts[alert.Kind]++
		b.countsMu.Unlock()
	default:
		b.dropped.Add(1)
	}
}

// Run dispatches queued alerts until ctx is done
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case alert := <-b.queue:
			b.dispatch(alert)
		}
	}
}

func (b *Bus) dispatch(alert Alert) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					ui.Warning("Alert handler panicked: %v", r)
				}
			}()
			handler(alert)
		}()
	}
}

func (b *Bus) Published() int64 {
	return b.published.Load()
}

func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// CountsByKind returns a copy of the number of published alerts per kind
func (b *Bus) CountsByKind() map[Kind]int64 {
	b.countsMu.Lock()
	defer b.countsMu.Unlock()
	result := make(map[Kind]int64, len(b.counts))
	for k, v := range b.counts {
		result[k] = v
	}
	return result
}
