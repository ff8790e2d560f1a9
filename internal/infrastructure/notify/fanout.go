package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/domain/port"
)

// DefaultPublishTimeout общий бюджет рассылки одного события
const DefaultPublishTimeout = 10 * time.Second

// Fanout публикует событие во все каналы уведомлений
type Fanout struct {
	mu      sync.RWMutex
	sinks   []sink
	timeout time.Duration
}

type sink struct {
	name     string
	notifier port.Notifier
}

type delivery struct {
	name string
	err  error
}

// NewFanout создаёт пустую рассылку. timeout <= 0 означает DefaultPublishTimeout.
func NewFanout(timeout time.Duration) *Fanout {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	return &Fanout{timeout: timeout}
}

// Add подключает канал уведомлений
func (f *Fanout) Add(name string, n port.Notifier) {
	f.mu.Lock()
	f.sinks = append(f.sinks, sink{name: name, notifier: n})
	f.mu.Unlock()
}

// Publish вызывает каналы параллельно и ждёт не дольше timeout.
// Отмена ctx вызывающего на рассылку не влияет. Канал, не уложившийся
// в бюджет, дорабатывает в фоне и попадает в ошибку как просроченный.
func (f *Fanout) Publish(ctx context.Context, event entity.ReportEvent) error {
	f.mu.RLock()
	sinks := append([]sink(nil), f.sinks...)
	f.mu.RUnlock()

	if len(sinks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	results := make(chan delivery, len(sinks))
	for _, s := range sinks {
		go func(s sink) {
			results <- delivery{name: s.name, err: s.notifier.Publish(ctx, event)}
		}(s)
	}

	pending := make(map[string]int, len(sinks))
	for _, s := range sinks {
		pending[s.name]++
	}

	var errs []error
	for range sinks {
		select {
		case d := <-results:
			pending[d.name]--
			if d.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", d.name, d.err))
			}
		case <-ctx.Done():
			for name, n := range pending {
				if n > 0 {
					errs = append(errs, fmt.Errorf("%s: %w", name, ctx.Err()))
				}
			}
			return errors.Join(errs...)
		}
	}
	return errors.Join(errs...)
}

var _ port.Notifier = (*Fanout)(nil)
