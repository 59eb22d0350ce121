// Package bus provides observable state cells and multicast request streams
// shared by views that must not hold references to each other.
//
// Delivery is synchronous and cooperative. Every Bus owns one delivery queue:
// a publish enqueues one delivery per current subscriber and, unless a delivery
// is already running, drains the queue before returning. Publishes made from
// inside a subscriber are queued behind the deliveries already pending, so all
// subscribers observe events in publish order. There is no replay: a subscriber
// only sees values published after it subscribed.
package bus

import (
	"sync"

	"github.com/sirupsen/logrus"

	"dshbd-cli/internal/logging"
)

type Bus struct {
	log *logrus.Entry

	mu       sync.Mutex
	queue    []func()
	draining bool
}

func New(log *logrus.Entry) *Bus {
	if log == nil {
		log = logging.For("bus")
	}
	return &Bus{log: log}
}

func (b *Bus) enqueue(fns []func()) {
	b.mu.Lock()
	b.queue = append(b.queue, fns...)
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if len(b.queue) == 0 {
			b.draining = false
			b.mu.Unlock()
			return
		}
		fn := b.queue[0]
		b.queue[0] = nil
		b.queue = b.queue[1:]
		b.mu.Unlock()
		b.deliver(fn)
	}
}

func (b *Bus) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("subscriber panicked")
		}
	}()
	fn()
}

// Subscription detaches one subscriber. Unsubscribe is idempotent; deliveries
// already queued for a detached subscriber are skipped.
type Subscription struct {
	once   sync.Once
	mu     sync.Mutex
	active bool
	detach func()
}

func newSubscription(detach func()) *Subscription {
	return &Subscription{active: true, detach: detach}
}

func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
		if s.detach != nil {
			s.detach()
		}
	})
}

// Group collects subscriptions owned by one view so they can be torn down together.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

func (g *Group) Add(subs ...*Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, subs...)
}

func (g *Group) Close() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()
	for _, s := range subs {
		s.Unsubscribe()
	}
}

type subscriber[T any] struct {
	id  uint64
	fn  func(T)
	sub *Subscription
}

type observers[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   []subscriber[T]
}

func (o *observers[T]) add(fn func(T)) *Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	id := o.nextID
	s := newSubscription(func() { o.remove(id) })
	o.subs = append(o.subs, subscriber[T]{id: id, fn: fn, sub: s})
	return s
}

func (o *observers[T]) remove(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, s := range o.subs {
		if s.id == id {
			o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
			return
		}
	}
}

// deliveries snapshots the current subscribers as queued calls carrying v.
func (o *observers[T]) deliveries(v T) []func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]func(), 0, len(o.subs))
	for _, s := range o.subs {
		s := s
		out = append(out, func() {
			if s.sub.Active() {
				s.fn(v)
			}
		})
	}
	return out
}

func (o *observers[T]) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.subs)
}

// Cell holds a current value and notifies subscribers on every Set.
type Cell[T any] struct {
	bus  *Bus
	name string

	mu  sync.RWMutex
	val T

	obs observers[T]
}

func NewCell[T any](b *Bus, name string, initial T) *Cell[T] {
	return &Cell[T]{bus: b, name: name, val: initial}
}

func (c *Cell[T]) Name() string { return c.name }

func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val
}

// Set replaces the value and notifies subscribers with it.
func (c *Cell[T]) Set(v T) {
	c.mu.Lock()
	c.val = v
	c.mu.Unlock()
	c.bus.enqueue(c.obs.deliveries(v))
}

// Update applies fn to the current value and Sets the result.
func (c *Cell[T]) Update(fn func(T) T) {
	c.Set(fn(c.Get()))
}

// Subscribe registers fn for future Sets. The current value is not replayed.
func (c *Cell[T]) Subscribe(fn func(T)) *Subscription {
	return c.obs.add(fn)
}

// Stream multicasts published values to the subscribers present at publish time.
type Stream[T any] struct {
	bus  *Bus
	name string
	obs  observers[T]
}

func NewStream[T any](b *Bus, name string) *Stream[T] {
	return &Stream[T]{bus: b, name: name}
}

func (s *Stream[T]) Name() string { return s.name }

func (s *Stream[T]) Subscribers() int { return s.obs.count() }

// Publish delivers v to every current subscriber. When called outside a
// delivery it returns only after the queue is drained.
func (s *Stream[T]) Publish(v T) {
	d := s.obs.deliveries(v)
	if len(d) == 0 {
		s.bus.log.WithField("stream", s.name).Warn("published with no subscribers")
		return
	}
	s.bus.enqueue(d)
}

func (s *Stream[T]) Subscribe(fn func(T)) *Subscription {
	return s.obs.add(fn)
}
