// Package events streams catalogue lifecycle events to Kafka without
// blocking the load path.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/kafka"
)

// Sink is where events end up; *kafka.Producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher buffers events and writes them to the sink from one goroutine.
// Events are dropped, not queued without bound, when the sink falls behind.
type Publisher struct {
	sink    Sink
	eventCh chan CatalogueEvent
	logger  *slog.Logger
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewPublisher(sink Sink, bufferSize int) *Publisher {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Publisher{
		sink:    sink,
		eventCh: make(chan CatalogueEvent, bufferSize),
		logger:  slog.Default().With("component", "catalogue-events"),
		done:    make(chan struct{}),
	}
}

func (p *Publisher) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for {
			select {
			case event, ok := <-p.eventCh:
				if !ok {
					return
				}
				p.publish(ctx, event)
			case <-ctx.Done():
				p.drainRemaining()
				return
			}
		}
	}()
	p.logger.Info("catalogue event publisher started", "buffer_size", cap(p.eventCh))
}

// Track queues an event for publishing. Events tracked after Close are
// dropped.
func (p *Publisher) Track(event CatalogueEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Debug("catalogue event dropped (publisher closed)", "type", event.Type)
		return
	}
	select {
	case p.eventCh <- event:
	default:
		p.logger.Warn("catalogue event dropped (buffer full)", "type", event.Type)
	}
}

// Close stops accepting events and waits for the queue to be written.
// Calling it again is a no-op.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	close(p.eventCh)
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) publish(ctx context.Context, event CatalogueEvent) {
	if err := p.sink.Publish(ctx, kafka.Event{
		Key:   event.Source,
		Type:  string(event.Type),
		Value: event,
	}); err != nil {
		p.logger.Error("failed to publish catalogue event", "type", event.Type, "error", err)
	}
}

func (p *Publisher) drainRemaining() {
	for {
		select {
		case event, ok := <-p.eventCh:
			if !ok {
				return
			}
			p.publish(context.Background(), event)
		default:
			return
		}
	}
}
