// Package ratelimit keeps lesson requests under per-provider request
// budgets and backs off after a provider answers 429.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

// DefaultBackoff applies after a 429 that carried no retry hint.
const DefaultBackoff = 30 * time.Second

// State captures per-provider rate limiting state.
type State struct {
	RequestCount int
	WindowStart  time.Time
	BackoffUntil *time.Time
	Last429At    *time.Time
}

// Limit is a request budget per window. A zero RequestsPerWindow means
// no budget; 429 backoff still applies.
type Limit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// StateStore stores rate limit state. *store.Store persists it across
// processes; MemoryStore keeps it for one process.
type StateStore interface {
	GetRateLimit(ctx context.Context, provider string) (*State, error)
	UpdateRateLimit(ctx context.Context, provider string, state *State) error
}

// LimitedError is returned when a provider's budget is spent or it is
// backing off.
type LimitedError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("provider %s is rate limited; retry in %s", e.Provider, e.RetryAfter.Round(time.Second))
}

// Limiter enforces per-provider limits. The zero value allows everything.
type Limiter struct {
	Store  StateStore
	Limits map[string]Limit
	Clock  func() time.Time
	Margin float64

	mu sync.Mutex
}

// NewLimiter builds a limiter from per-minute overrides keyed by provider
// id and a safety margin in (0, 1].
func NewLimiter(st StateStore, perMinute map[string]int, margin float64) *Limiter {
	if st == nil {
		st = NewMemoryStore()
	}
	l := &Limiter{Store: st}
	l.ApplyOverrides(perMinute)
	l.ApplySafetyMargin(margin)
	return l
}

// Take admits one request for provider, or returns a *LimitedError with
// the time until the next slot.
func (l *Limiter) Take(ctx context.Context, provider string) error {
	if l == nil || l.Store == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	ok, wait, err := l.allow(ctx, provider)
	if err != nil {
		return err
	}
	if !ok {
		return &LimitedError{Provider: provider, RetryAfter: wait}
	}
	return l.record(ctx, provider)
}

// Allow reports whether a request is allowed and how long to wait if not.
func (l *Limiter) Allow(ctx context.Context, provider string) (bool, time.Duration, error) {
	if l == nil || l.Store == nil {
		return true, 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.allow(ctx, provider)
}

func (l *Limiter) allow(ctx context.Context, provider string) (bool, time.Duration, error) {
	state, err := l.Store.GetRateLimit(ctx, provider)
	if err != nil {
		return true, 0, err
	}
	if state == nil {
		state = &State{WindowStart: l.now()}
	}

	if state.BackoffUntil != nil && l.now().Before(*state.BackoffUntil) {
		return false, state.BackoffUntil.Sub(l.now()), nil
	}

	limit := l.limitFor(provider)
	if limit.RequestsPerWindow <= 0 {
		return true, 0, nil
	}
	windowEnd := state.WindowStart.Add(limit.WindowDuration)
	if !l.now().Before(windowEnd) {
		return true, 0, nil
	}
	if state.RequestCount >= limit.RequestsPerWindow {
		return false, windowEnd.Sub(l.now()), nil
	}
	return true, 0, nil
}

func (l *Limiter) record(ctx context.Context, provider string) error {
	state, err := l.Store.GetRateLimit(ctx, provider)
	if err != nil {
		return err
	}
	if state == nil {
		state = &State{}
	}

	limit := l.limitFor(provider)
	if state.WindowStart.IsZero() || (limit.WindowDuration > 0 && !l.now().Before(state.WindowStart.Add(limit.WindowDuration))) {
		state.RequestCount = 0
		state.WindowStart = l.now()
	}
	state.RequestCount++
	return l.Store.UpdateRateLimit(ctx, provider, state)
}

// Record429 starts a backoff window after the provider answered 429.
func (l *Limiter) Record429(ctx context.Context, provider string, retryAfter time.Duration) error {
	if l == nil || l.Store == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.Store.GetRateLimit(ctx, provider)
	if err != nil {
		return err
	}
	if state == nil {
		state = &State{WindowStart: l.now()}
	}
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	now := l.now()
	until := now.Add(retryAfter)
	state.Last429At = &now
	state.BackoffUntil = &until
	return l.Store.UpdateRateLimit(ctx, provider, state)
}

// ApplyOverrides sets per-minute budgets keyed by provider id.
func (l *Limiter) ApplyOverrides(overrides map[string]int) {
	if l == nil || len(overrides) == 0 {
		return
	}
	if l.Limits == nil {
		l.Limits = make(map[string]Limit, len(overrides))
	}
	for provider, value := range overrides {
		provider = strings.TrimSpace(provider)
		if provider == "" || value <= 0 {
			continue
		}
		l.Limits[provider] = Limit{RequestsPerWindow: value, WindowDuration: time.Minute}
	}
}

// ApplySafetyMargin scales every budget by margin in (0, 1]. Other values
// are ignored.
func (l *Limiter) ApplySafetyMargin(margin float64) {
	if l == nil || margin <= 0 || margin > 1 {
		return
	}
	l.Margin = margin
}

func (l *Limiter) limitFor(provider string) Limit {
	limit, ok := l.Limits[provider]
	if !ok {
		return Limit{}
	}
	if l.Margin <= 0 || l.Margin > 1 {
		return limit
	}
	adjusted := int(math.Floor(float64(limit.RequestsPerWindow) * l.Margin))
	if adjusted < 1 {
		adjusted = 1
	}
	limit.RequestsPerWindow = adjusted
	return limit
}

func (l *Limiter) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

// MemoryStore keeps rate limit state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state map[string]State
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]State)}
}

func (m *MemoryStore) GetRateLimit(_ context.Context, provider string) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[provider]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *MemoryStore) UpdateRateLimit(_ context.Context, provider string, state *State) error {
	if state == nil {
		return fmt.Errorf("rate limit state is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		m.state = make(map[string]State)
	}
	m.state[provider] = *state
	return nil
}
