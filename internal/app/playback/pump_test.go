package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type tickCounter struct {
	mu     sync.Mutex
	tokens []uint64
}

func (c *tickCounter) onTick(token uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
}

func (c *tickCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

func (c *tickCounter) last() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tokens) == 0 {
		return 0
	}
	return c.tokens[len(c.tokens)-1]
}

func TestNewPump_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultProgressInterval, NewPump(0, func(uint64) {}).interval)
	assert.Equal(t, DefaultProgressInterval, NewPump(-time.Second, func(uint64) {}).interval)
	assert.Equal(t, 20*time.Millisecond, NewPump(20*time.Millisecond, func(uint64) {}).interval)
}

func TestPump_StartStop(t *testing.T) {
	counter := &tickCounter{}
	p := NewPump(2*time.Millisecond, counter.onTick)
	assert.False(t, p.running())

	p.Start()
	assert.True(t, p.running())

	assert.Eventually(t, func() bool { return counter.count() >= 3 }, time.Second, time.Millisecond)
	token := counter.last()
	assert.True(t, p.Current(token))

	p.Stop()
	assert.False(t, p.running())
	assert.False(t, p.Current(token), "stop invalidates the token")

	// Allow a tick that was already in flight to land, then expect silence.
	time.Sleep(10 * time.Millisecond)
	n := counter.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, counter.count())
}

func TestPump_StartIsIdempotent(t *testing.T) {
	p := NewPump(time.Hour, func(uint64) {})

	p.Start()
	p.mu.Lock()
	first := p.token
	p.mu.Unlock()

	p.Start()
	assert.True(t, p.Current(first))

	p.Stop()
	p.Stop()
	assert.False(t, p.running())
}

func TestPump_RestartIssuesNewToken(t *testing.T) {
	counter := &tickCounter{}
	p := NewPump(2*time.Millisecond, counter.onTick)

	p.Start()
	assert.Eventually(t, func() bool { return counter.count() >= 1 }, time.Second, time.Millisecond)
	old := counter.last()
	p.Stop()

	p.Start()
	defer p.Stop()
	assert.Eventually(t, func() bool { return counter.last() != old && counter.last() != 0 }, time.Second, time.Millisecond)

	assert.False(t, p.Current(old))
	assert.True(t, p.Current(counter.last()))
}
