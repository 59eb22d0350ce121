package tui

import (
	"sync"

	"dshbd-cli/internal/loop"
)

// Poster runs session callbacks inside the program's Update, so they never
// race with key handling. Work is queued until the program drains it; after
// the program exits, Handoff forwards everything to another loop.
type Poster struct {
	mu    sync.Mutex
	queue []func()
	wake  func()
	next  loop.Poster
}

// wakeMsg tells Update to drain the poster.
type wakeMsg struct{}

func NewPoster() *Poster { return &Poster{} }

func (p *Poster) Post(fn func()) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	if next := p.next; next != nil {
		p.mu.Unlock()
		next.Post(fn)
		return
	}
	p.queue = append(p.queue, fn)
	wake := p.wake
	p.mu.Unlock()
	if wake != nil {
		wake()
	}
}

// Attach sets the function used to wake the program. It must not block.
func (p *Poster) Attach(wake func()) {
	p.mu.Lock()
	p.wake = wake
	n := len(p.queue)
	p.mu.Unlock()
	if wake != nil && n > 0 {
		wake()
	}
}

// Drain runs queued work, including work queued while draining.
func (p *Poster) Drain() {
	for {
		p.mu.Lock()
		batch := p.queue
		p.queue = nil
		p.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, fn := range batch {
			fn()
		}
	}
}

// Len is the number of queued callbacks.
func (p *Poster) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Handoff moves queued and future work to next.
func (p *Poster) Handoff(next loop.Poster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, fn := range p.queue {
		next.Post(fn)
	}
	p.queue = nil
	p.next = next
	p.wake = nil
}
