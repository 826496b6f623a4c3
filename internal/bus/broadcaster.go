// internal/bus/broadcaster.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/tamzrod/mcstatus-relay/internal/notify"
)

// ErrStopped is returned by Publish and Subscribe once the broadcaster has stopped.
var ErrStopped = errors.New("bus: broadcaster stopped")

// Subscription is one receiver of broadcast traffic.
// Every subscription sees every envelope; filtering by identifier is the
// receiver's job.
type Subscription struct {
	name string
	ch   chan []byte
}

// C delivers marshalled envelopes. Closed when the subscription is dropped.
func (s *Subscription) C() <-chan []byte {
	return s.ch
}

// Name identifies the subscriber in logs.
func (s *Subscription) Name() string {
	return s.name
}

// Broadcaster is the outbound side: one publisher, many subscribers.
// All subscriber bookkeeping happens on the Run goroutine.
type Broadcaster struct {
	subs        map[*Subscription]bool
	register    chan *Subscription
	unregister  chan *Subscription
	broadcast   chan []byte
	stopping    chan struct{}
	done        chan struct{}
	subscribers func(int)

	// publishers hold the read side while handing data to broadcast;
	// Run takes the write side before the final drain.
	mu     sync.RWMutex
	closed bool
}

// NewBroadcaster creates a broadcaster. Call Run before use.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs:       make(map[*Subscription]bool),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		broadcast:  make(chan []byte, 256),
		stopping:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// OnSubscriberCount registers a callback invoked from Run whenever the
// number of subscribers changes. Must be set before Run.
func (b *Broadcaster) OnSubscriberCount(fn func(int)) {
	b.subscribers = fn
}

// Run is the broadcaster main loop. It returns when ctx is done. Every
// envelope accepted by Publish is fanned out before the remaining
// subscriptions are closed.
func (b *Broadcaster) Run(ctx context.Context) {
	defer func() {
		close(b.done)
		for s := range b.subs {
			close(s.ch)
			delete(b.subs, s)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			b.stop()
			return

		case s := <-b.register:
			b.subs[s] = true
			b.countChanged()
			slog.Debug("Subscriber added", "subscriber", s.name, "total", len(b.subs))

		case s := <-b.unregister:
			b.drop(s)

		case data := <-b.broadcast:
			b.fanOut(data)
		}
	}
}

// stop refuses further publishes and flushes what was already accepted.
func (b *Broadcaster) stop() {
	close(b.stopping)
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	for {
		select {
		case data := <-b.broadcast:
			b.fanOut(data)
		default:
			return
		}
	}
}

func (b *Broadcaster) fanOut(data []byte) {
	for s := range b.subs {
		select {
		case s.ch <- data:
		default:
			// Subscriber buffer full, drop it.
			slog.Warn("Dropping slow subscriber", "subscriber", s.name)
			b.drop(s)
		}
	}
}

func (b *Broadcaster) drop(s *Subscription) {
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
	b.countChanged()
	slog.Debug("Subscriber removed", "subscriber", s.name, "total", len(b.subs))
}

func (b *Broadcaster) countChanged() {
	if b.subscribers != nil {
		b.subscribers(len(b.subs))
	}
}

// Subscribe adds a subscriber with the given buffer size.
func (b *Broadcaster) Subscribe(ctx context.Context, name string, buffer int) (*Subscription, error) {
	if buffer < 1 {
		buffer = 1
	}
	s := &Subscription{name: name, ch: make(chan []byte, buffer)}
	select {
	case b.register <- s:
		return s, nil
	case <-b.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Unsubscribe removes a subscriber. Safe to call more than once.
func (b *Broadcaster) Unsubscribe(s *Subscription) {
	select {
	case b.unregister <- s:
	case <-b.done:
	}
}

// Publish hands a marshalled envelope to every subscriber.
func (b *Broadcaster) Publish(ctx context.Context, env notify.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrStopped
	}
	select {
	case b.broadcast <- data:
		return nil
	case <-b.stopping:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Emit builds an envelope and publishes it.
func (b *Broadcaster) Emit(ctx context.Context, name notify.Name, payload any) error {
	env, err := notify.NewEnvelope(name, payload)
	if err != nil {
		return err
	}
	return b.Publish(ctx, env)
}
