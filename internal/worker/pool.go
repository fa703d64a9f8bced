package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/get-it-done-api/internal/notify"
)

// Broadcaster доставляет событие подключенным клиентам
type Broadcaster interface {
	Broadcast(ev notify.Event) error
}

// Pool takes events off the request path and fans them out with a fixed
// number of workers. With one worker events go out in publish order.
type Pool struct {
	sink   Broadcaster
	logger *zap.Logger
	count  int
	queue  chan notify.Event
	wg     sync.WaitGroup
	stop   chan struct{}
	once   sync.Once
}

func NewPool(sink Broadcaster, logger *zap.Logger, count, buffer int) *Pool {
	if count <= 0 {
		count = 1
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &Pool{
		sink:   sink,
		logger: logger,
		count:  count,
		queue:  make(chan notify.Event, buffer),
		stop:   make(chan struct{}),
	}
}

// Publish enqueues the event without blocking. When the queue is full the
// event is dropped.
func (p *Pool) Publish(_ context.Context, event string, payload any) {
	select {
	case p.queue <- notify.Event{Name: event, Payload: payload}:
	default:
		p.logger.Warn("broadcast queue full, event dropped", zap.String("event", event))
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting broadcast pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop waits for workers to deliver what is already queued and exit.
func (p *Pool) Stop() {
	p.once.Do(func() {
		p.logger.Info("Stopping broadcast pool...")
		close(p.stop)
		p.wg.Wait()
		p.logger.Info("Broadcast pool stopped")
	})
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case ev := <-p.queue:
			p.deliver(id, ev)
		case <-p.stop:
			p.drain(id)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pool) drain(id int) {
	for {
		select {
		case ev := <-p.queue:
			p.deliver(id, ev)
		default:
			return
		}
	}
}

func (p *Pool) deliver(workerID int, ev notify.Event) {
	if err := p.sink.Broadcast(ev); err != nil {
		p.logger.Error("broadcast failed",
			zap.Int("worker", workerID),
			zap.String("event", ev.Name),
			zap.Error(err),
		)
	}
}
