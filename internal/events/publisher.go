package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Skotchmaster/auth_gateway/internal/metrics"
)

type Options struct {
	Buffer  int
	Workers int
	Timeout time.Duration
	Logger  *slog.Logger
}

// AsyncPublisher queues events in a bounded channel and delivers them from
// background workers. A full queue drops the event; a failed send is logged.
// Neither reaches the caller.
type AsyncPublisher struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	ch     chan AuthEvent
	done   chan struct{}
	wg     sync.WaitGroup

	sendCtx    context.Context
	cancelSend context.CancelFunc
	closeOnce  sync.Once
	closeErr   error
}

func NewAsyncPublisher(sink Sink, opts Options) *AsyncPublisher {
	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sendCtx, cancel := context.WithCancel(context.Background())
	p := &AsyncPublisher{
		sink:       sink,
		timeout:    opts.Timeout,
		logger:     opts.Logger.With("component", "event_publisher"),
		ch:         make(chan AuthEvent, opts.Buffer),
		done:       make(chan struct{}),
		sendCtx:    sendCtx,
		cancelSend: cancel,
	}

	p.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go p.run()
	}
	return p
}

func (p *AsyncPublisher) Publish(_ context.Context, e AuthEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop(e, "closed")
		return
	}
	select {
	case p.ch <- e:
		metrics.EventQueueDepth.Inc()
	default:
		p.drop(e, "queue_full")
	}
}

func (p *AsyncPublisher) drop(e AuthEvent, reason string) {
	metrics.Events.WithLabelValues(string(e.Type), "dropped").Inc()
	p.logger.Warn("event_dropped", "reason", reason, "user_id", e.UserID, "event_type", e.Type)
}

func (p *AsyncPublisher) run() {
	defer p.wg.Done()

	for {
		select {
		case e := <-p.ch:
			p.deliver(e)
		case <-p.done:
			for {
				select {
				case e := <-p.ch:
					p.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (p *AsyncPublisher) deliver(e AuthEvent) {
	metrics.EventQueueDepth.Dec()
	if p.sendCtx.Err() != nil {
		p.drop(e, "shutdown")
		return
	}

	ctx, cancel := context.WithTimeout(p.sendCtx, p.timeout)
	defer cancel()

	if err := p.sink.Send(ctx, e); err != nil {
		metrics.Events.WithLabelValues(string(e.Type), "failed").Inc()
		p.logger.Error("event_publish_failed", "user_id", e.UserID, "event_type", e.Type, "error", err)
		return
	}
	metrics.Events.WithLabelValues(string(e.Type), "sent").Inc()
	p.logger.Debug("event_published", "user_id", e.UserID, "event_type", e.Type)
}

// Close stops accepting events and drains the queue. When ctx expires first,
// in-flight sends are cancelled and the rest of the queue is dropped. The sink
// is closed last.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.done)

		drained := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(drained)
		}()

		select {
		case <-drained:
		case <-ctx.Done():
			p.cancelSend()
			<-drained
			p.closeErr = ctx.Err()
		}
		p.cancelSend()

		if err := p.sink.Close(); err != nil && p.closeErr == nil {
			p.closeErr = err
		}
	})
	return p.closeErr
}
