package expiry

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	fired []Ticket
}

func (r *recorder) onFire(t Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, t)
}

func (r *recorder) snapshot() []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Ticket(nil), r.fired...)
}

func newCoordinator(t *testing.T) (*Coordinator, *clock.Mock, *recorder) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	rec := &recorder{}
	return New(mock, rec.onFire), mock, rec
}

func TestArm_FiresAtDeadline(t *testing.T) {
	c, mock, rec := newCoordinator(t)

	ticket := c.Arm("poll-1", mock.Now().Add(10*time.Second))

	mock.Add(9 * time.Second)
	assert.Empty(t, rec.snapshot())

	mock.Add(time.Second)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ticket, rec.snapshot()[0])

	assert.True(t, c.Claim(ticket))
	assert.False(t, c.Claim(ticket), "a ticket is claimable once")
}

func TestDisarm_PreventsFiring(t *testing.T) {
	c, mock, rec := newCoordinator(t)

	ticket := c.Arm("poll-1", mock.Now().Add(10*time.Second))
	c.Disarm()
	c.Disarm()

	mock.Add(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.False(t, c.Claim(ticket))

	_, armed := c.Armed()
	assert.False(t, armed)
}

func TestArm_ReplacesPreviousTimer(t *testing.T) {
	c, mock, rec := newCoordinator(t)

	first := c.Arm("poll-1", mock.Now().Add(10*time.Second))
	second := c.Arm("poll-2", mock.Now().Add(20*time.Second))
	assert.NotEqual(t, first.Generation, second.Generation)

	mock.Add(15 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.snapshot())

	mock.Add(5 * time.Second)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "poll-2", rec.snapshot()[0].PollID)
	assert.False(t, c.Claim(first))
	assert.True(t, c.Claim(second))
}

func TestClaim_LosesToDisarmAfterFiring(t *testing.T) {
	c, mock, rec := newCoordinator(t)

	ticket := c.Arm("poll-1", mock.Now().Add(10*time.Second))
	mock.Add(10 * time.Second)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	// manual end got serialized before the queued firing
	c.Disarm()
	assert.False(t, c.Claim(ticket))
}

func TestClaim_ConcurrentExactlyOnce(t *testing.T) {
	c, mock, _ := newCoordinator(t)
	ticket := c.Arm("poll-1", mock.Now().Add(10*time.Second))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		claims int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Claim(ticket) {
				mu.Lock()
				claims++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, claims)
}
