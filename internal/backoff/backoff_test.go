package backoff_test

import (
	"testing"
	"time"

	"github.com/rezkam/queuectl/internal/backoff"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay_WorkedExample(t *testing.T) {
	p := backoff.NewPolicy(2)

	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))
	assert.Equal(t, 8*time.Second, p.Delay(3))
}

func TestPolicy_Delay_Monotonic(t *testing.T) {
	p := backoff.NewPolicy(3)

	prev := p.Delay(1)
	for n := 2; n <= 6; n++ {
		d := p.Delay(n)
		assert.Greater(t, d, prev, "backoff(%d) should exceed backoff(%d)", n, n-1)
		prev = d
	}
}

func TestPolicy_Delay_BaseFloor(t *testing.T) {
	// base < 2 is treated as 2, per spec's stated minimum.
	p := backoff.Policy{Base: 1}
	assert.Equal(t, backoff.NewPolicy(2).Delay(3), p.Delay(3))
}

func TestPolicy_Delay_Jitter(t *testing.T) {
	p := backoff.Policy{Base: 2, Jitter: 0.10}

	base := backoff.NewPolicy(2).Delay(4)
	for i := 0; i < 50; i++ {
		d := p.Delay(4)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+time.Duration(float64(base)*0.10)+time.Millisecond)
	}
}

func TestPolicy_NextRetryAt(t *testing.T) {
	p := backoff.NewPolicy(2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got := p.NextRetryAt(now, 1)
	assert.Equal(t, now.Add(2*time.Second), got)
}
