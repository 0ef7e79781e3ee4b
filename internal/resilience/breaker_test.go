package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

// run pushes a scripted sequence of outcomes through the breaker.
func run(b *Breaker, outcomes ...bool) {
	for _, ok := range outcomes {
		_, _ = b.Execute(func() (any, error) {
			if ok {
				return "payload", nil
			}
			return nil, errUpstream
		})
	}
}

func TestBreakerStateAfterOutcomes(t *testing.T) {
	tripAfterTwo := func(counts Counts) bool {
		return counts.ConsecutiveFailures >= 2
	}

	tests := []struct {
		name     string
		settings Settings
		outcomes []bool
		want     State
	}{
		{
			name:     "healthy proxy keeps the breaker closed",
			settings: Settings{},
			outcomes: []bool{true, true, true},
			want:     StateClosed,
		},
		{
			name:     "a success resets the consecutive failure streak",
			settings: Settings{ReadyToTrip: tripAfterTwo},
			outcomes: []bool{false, true, false},
			want:     StateClosed,
		},
		{
			name:     "sustained failure opens the breaker",
			settings: Settings{ReadyToTrip: tripAfterTwo},
			outcomes: []bool{false, false},
			want:     StateOpen,
		},
		{
			name: "default trip threshold is five consecutive failures",
			outcomes: []bool{
				false, false, false, false, false,
			},
			want: StateOpen,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("data-proxy", tt.settings)
			run(b, tt.outcomes...)
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreakerCountsWindow(t *testing.T) {
	b := New("data-proxy", Settings{})

	run(b, true)
	counts := b.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)
	assert.Equal(t, uint32(0), counts.TotalFailures)

	run(b, false)
	counts = b.Counts()
	assert.Equal(t, uint32(2), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveFailures)
	assert.Equal(t, uint32(0), counts.ConsecutiveSuccesses)
}

func TestBreakerOpenRejectsImmediately(t *testing.T) {
	b := New("data-proxy", Settings{
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	run(b, false, false)
	require.Equal(t, StateOpen, b.State())

	called := false
	_, err := b.Execute(func() (any, error) {
		called = true
		return "payload", nil
	})
	assert.Equal(t, ErrCircuitOpen, err)
	assert.False(t, called, "an open breaker must not invoke the call")
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := New("data-proxy", Settings{
		MaxRequests: 2,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	run(b, false, false)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	// MaxRequests clean trial calls close it again.
	for i := 0; i < 2; i++ {
		_, err := b.Execute(func() (any, error) {
			return "payload", nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("data-proxy", Settings{
		Timeout: 20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	run(b, false, false)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	run(b, false)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenTrialQuota(t *testing.T) {
	b := New("data-proxy", Settings{
		MaxRequests: 1,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	run(b, false, false)
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	// Hold a trial slot open, then try a second call.
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = b.Execute(func() (any, error) {
			close(started)
			<-release
			return "payload", nil
		})
	}()
	<-started

	_, err := b.Execute(func() (any, error) {
		return "payload", nil
	})
	assert.Equal(t, ErrTooManyRequests, err)
	close(release)
}

func TestBreakerPanicCountsAsFailure(t *testing.T) {
	b := New("data-proxy", Settings{
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	assert.Panics(t, func() {
		_, _ = b.Execute(func() (any, error) {
			panic("upstream handler blew up")
		})
	})
	assert.Equal(t, StateOpen, b.State())
}
