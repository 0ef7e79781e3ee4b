package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrCircuitOpen rejects a call while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests rejects a call when the half-open trial quota is spent.
	ErrTooManyRequests = errors.New("too many requests")
)

// State is the breaker's position.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings tunes a breaker. Zero values fall back to defaults sized for
// the data proxy.
type Settings struct {
	// MaxRequests caps concurrent trial calls in the half-open state.
	MaxRequests uint32
	// Interval is how long closed-state counts accumulate before clearing.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// ReadyToTrip decides, after each closed-state failure, whether to open.
	ReadyToTrip func(counts Counts) bool
}

// Counts is a snapshot of call outcomes in the current window.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker wraps an unreliable call with open/half-open/closed gating.
type Breaker struct {
	name        string
	maxRequests uint32
	interval    time.Duration
	timeout     time.Duration
	readyToTrip func(Counts) bool

	mu     sync.Mutex
	state  State
	counts Counts
	window time.Time
}

// New builds a breaker. Missing settings get data-proxy defaults:
// one trial request, one-minute count windows, a 30 second open
// period, and tripping on five consecutive failures.
func New(name string, settings Settings) *Breaker {
	b := &Breaker{
		name:        name,
		maxRequests: settings.MaxRequests,
		interval:    settings.Interval,
		timeout:     settings.Timeout,
		readyToTrip: settings.ReadyToTrip,
	}
	if b.maxRequests == 0 {
		b.maxRequests = 1
	}
	if b.interval == 0 {
		b.interval = time.Minute
	}
	if b.timeout == 0 {
		b.timeout = 30 * time.Second
	}
	if b.readyToTrip == nil {
		b.readyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 5
		}
	}
	b.window = time.Now().Add(b.interval)
	return b
}

// Name returns the label given at construction.
func (b *Breaker) Name() string {
	return b.name
}

// State reports the breaker's position, rolling an expired open period
// over to half-open first.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, _ := b.observe(time.Now())
	return state
}

// Counts returns a snapshot of the current window's tallies.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Execute runs call if the breaker admits it and feeds the outcome back
// into the state machine. A panic counts as a failure and re-panics.
func (b *Breaker) Execute(call func() (any, error)) (any, error) {
	generation, err := b.admit()
	if err != nil {
		return nil, err
	}

	defer func() {
		if e := recover(); e != nil {
			b.settle(generation, false)
			panic(e)
		}
	}()

	result, err := call()
	b.settle(generation, err == nil)
	return result, err
}

// admit gates a call on the current state and reserves a slot for it.
func (b *Breaker) admit() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, generation := b.observe(time.Now())

	if state == StateOpen {
		return generation, ErrCircuitOpen
	}
	if state == StateHalfOpen && b.counts.Requests >= b.maxRequests {
		return generation, ErrTooManyRequests
	}

	b.counts.Requests++
	return generation, nil
}

// settle records a call's outcome. Outcomes from a previous generation
// are stale and dropped, so a slow call cannot corrupt a window it did
// not run in.
func (b *Breaker) settle(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	state, generation := b.observe(now)
	if generation != before {
		return
	}

	if !success {
		switch state {
		case StateClosed:
			b.counts.TotalFailures++
			b.counts.ConsecutiveFailures++
			b.counts.ConsecutiveSuccesses = 0
			if b.readyToTrip(b.counts) {
				b.shift(StateOpen, now)
			}
		case StateHalfOpen:
			b.shift(StateOpen, now)
		}
		return
	}

	b.counts.TotalSuccesses++
	b.counts.ConsecutiveSuccesses++
	b.counts.ConsecutiveFailures = 0
	if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.maxRequests {
		b.shift(StateClosed, now)
	}
}

// observe resolves the effective state at now. Callers hold b.mu. The
// returned generation changes on every state shift and window roll.
func (b *Breaker) observe(now time.Time) (State, uint64) {
	switch b.state {
	case StateClosed:
		if !b.window.IsZero() && b.window.Before(now) {
			b.counts = Counts{}
			b.window = now.Add(b.interval)
		}
	case StateOpen:
		if b.window.Before(now) {
			b.shift(StateHalfOpen, now)
		}
	}
	return b.state, uint64(b.window.UnixNano())
}

// shift moves the breaker to a new state and starts its window.
func (b *Breaker) shift(state State, now time.Time) {
	if b.state == state {
		return
	}
	b.state = state
	b.counts = Counts{}

	switch state {
	case StateClosed:
		b.window = now.Add(b.interval)
	case StateOpen:
		b.window = now.Add(b.timeout)
	case StateHalfOpen:
		b.window = time.Time{}
	}
}
