package queue

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
)

// ErrBufferFull is returned when the async buffer cannot take another event.
var ErrBufferFull = errors.New("event buffer full")

// AsyncPublisher decouples request handling from broker latency: Publish
// only enqueues, and Run forwards events to the wrapped publisher.
type AsyncPublisher struct {
	inner   Publisher
	ch      chan Event
	timeout time.Duration
	log     *zap.Logger
}

var _ Publisher = (*AsyncPublisher)(nil)

func NewAsyncPublisher(inner Publisher, buffer int, log *zap.Logger) *AsyncPublisher {
	if buffer < 1 {
		buffer = 1
	}
	return &AsyncPublisher{inner: inner, ch: make(chan Event, buffer), timeout: 5 * time.Second, log: logger.OrNop(log)}
}

// Publish enqueues ev without blocking. A full buffer drops ev and returns
// ErrBufferFull; logging the drop is left to the caller.
func (p *AsyncPublisher) Publish(_ context.Context, ev Event) error {
	select {
	case p.ch <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Run forwards queued events until ctx is cancelled.
func (p *AsyncPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.ch:
			pubCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
			if err := p.inner.Publish(pubCtx, ev); err != nil {
				p.log.Warn("event publish failed", zap.String("type", ev.Type), zap.Error(err))
			}
			cancel()
		}
	}
}
