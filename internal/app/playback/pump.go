package playback

import (
	"context"
	"sync"
	"time"
)

// DefaultProgressInterval is the progress pump cadence.
const DefaultProgressInterval = 100 * time.Millisecond

// Pump periodically invokes a callback while running.
// Each run carries a token; a callback holding a stale token must be ignored
// by the receiver, which lets Stop take effect without waiting for the ticker goroutine.
type Pump struct {
	mu       sync.Mutex
	interval time.Duration
	onTick   func(token uint64)
	cancel   context.CancelFunc
	token    uint64
}

// NewPump creates a stopped pump.
func NewPump(interval time.Duration, onTick func(token uint64)) *Pump {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Pump{
		interval: interval,
		onTick:   onTick,
	}
}

// Start starts the pump. Starting a running pump is a no-op.
func (p *Pump) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	p.token++
	token := p.token
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.onTick(token)
			}
		}
	}()
}

// Stop stops the pump and invalidates the current token.
func (p *Pump) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.token++
}

// running reports whether the pump is running.
func (p *Pump) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Current reports whether token belongs to the active run.
func (p *Pump) Current(token uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil && p.token == token
}
