package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	TypeUserRegistered  = "user_registered"
	TypeLoginSucceeded  = "login_succeeded"
	TypeLoginFailed     = "login_failed"
	TypeTokenRotated    = "refresh_token_rotated"
	TypeTokenRevoked    = "refresh_token_revoked"
	TypeSessionsRevoked = "sessions_revoked"
	TypeTokenReuse      = "refresh_token_reuse"
	TypeResetRequested  = "password_reset_requested"
	TypePasswordReset   = "password_reset"
)

type Event struct {
	Type   string            `json:"type"`
	UserID string            `json:"user_id,omitempty"`
	IP     string            `json:"ip,omitempty"`
	At     time.Time         `json:"at"`
	Fields map[string]string `json:"fields,omitempty"`
}

type Sink interface {
	Write(ctx context.Context, e Event) error
	Name() string
}

// Emitter is what the services publish to.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

type Discard struct{}

func (Discard) Emit(context.Context, Event) {}

// Publisher delivers events to every sink from a background worker so the
// caller never waits on a broker. A full buffer drops the event.
type Publisher struct {
	queue chan Event
	sinks []Sink
	log   *slog.Logger
	wg    sync.WaitGroup
	once  sync.Once
	mu    sync.RWMutex
	done  bool
}

func NewPublisher(size int, log *slog.Logger, sinks ...Sink) *Publisher {
	if size <= 0 {
		size = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{
		queue: make(chan Event, size),
		sinks: sinks,
		log:   log.With("svc", "events"),
	}
}

func (p *Publisher) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for e := range p.queue {
			p.deliver(e)
		}
	}()
}

func (p *Publisher) deliver(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range p.sinks {
		if err := s.Write(ctx, e); err != nil {
			p.log.Warn("event_delivery_failed", "sink", s.Name(), "type", e.Type, "error", err)
		}
	}
}

func (p *Publisher) Emit(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.done {
		return
	}
	select {
	case p.queue <- e:
	default:
		p.log.Warn("event_dropped", "type", e.Type, "reason", "queue full")
	}
}

// Close stops accepting events and waits for the queue to drain.
func (p *Publisher) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.done = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}
