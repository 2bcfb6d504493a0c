package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Dispatcher sends messages from a fixed worker pool. Enqueue never blocks.
type Dispatcher struct {
	sender  Sender
	queue   chan Message
	log     *slog.Logger
	timeout time.Duration
	onDrop  func()

	wg   sync.WaitGroup
	mu   sync.RWMutex
	once sync.Once
	done bool
}

type DispatcherOption func(*Dispatcher)

func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) { x.timeout = d }
}

func WithDropHook(fn func()) DispatcherOption {
	return func(x *Dispatcher) { x.onDrop = fn }
}

func NewDispatcher(sender Sender, size int, log *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		sender:  sender,
		queue:   make(chan Message, size),
		log:     log.With("svc", "notify"),
		timeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for m := range d.queue {
				d.send(m)
			}
		}()
	}
}

func (d *Dispatcher) send(m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.sender.Send(ctx, m); err != nil {
		d.log.Error("notification_failed", "to", m.To, "subject", m.Subject, "error", err)
		return
	}
	d.log.Debug("notification_sent", "to", m.To, "subject", m.Subject)
}

// Enqueue reports false when the message was dropped.
func (d *Dispatcher) Enqueue(_ context.Context, m Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.done {
		return false
	}
	select {
	case d.queue <- m:
		return true
	default:
		d.log.Warn("notification_dropped", "to", m.To, "reason", "queue full")
		if d.onDrop != nil {
			d.onDrop()
		}
		return false
	}
}

func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.done = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()
	})
}
