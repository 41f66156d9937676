// Package sessionsync keeps a client-side view of the current session in
// step with the server. A Monitor polls the session-status endpoint and
// exposes a single snapshot with three guarantees: refreshes issued close
// together coalesce, the snapshot always reflects the most recently issued
// request (never a stale response that arrived late), and observers are
// notified only when the identity actually changes.
package sessionsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const minPollInterval = 5 * time.Second

// Identity mirrors the server-side session identity.
type Identity struct {
	UserID string
	Role   string
}

// Snapshot is the monitor's current view of the session. Loading is true
// until the first refresh completes; loading-to-loading transitions never
// count as a change.
type Snapshot struct {
	Loading       bool
	Authenticated bool
	Identity      Identity
	ExpiresAt     time.Time
}

// equivalent reports whether two snapshots are the same from an observer's
// point of view: subject id and expiry, nothing else.
func (s Snapshot) equivalent(other Snapshot) bool {
	if s.Loading && other.Loading {
		return true
	}
	return s.Loading == other.Loading &&
		s.Authenticated == other.Authenticated &&
		s.Identity.UserID == other.Identity.UserID &&
		s.ExpiresAt.Equal(other.ExpiresAt)
}

type Options struct {
	// Endpoint is the session-status URL.
	Endpoint string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// PollInterval is floored at 5s to rule out request storms.
	PollInterval time.Duration
	// DebounceWindow coalesces refreshes issued close together.
	DebounceWindow time.Duration
	// RedirectCooldown bounds how often OnSignedOut may fire.
	RedirectCooldown time.Duration
	// OnChange is called with the new snapshot when the identity changes.
	OnChange func(Snapshot)
	// OnSignedOut is called at most once per cooldown window after the
	// server reports the session invalid.
	OnSignedOut func()
	Logger      zerolog.Logger
}

type Monitor struct {
	opts Options

	mu          sync.Mutex
	snap        Snapshot
	issued      uint64    // sequence of the most recently issued refresh
	applied     uint64    // sequence of the most recently applied response
	lastIssued  time.Time // when the last refresh left
	lastSignOut time.Time

	dispatchMu sync.Mutex
	dispatched uint64 // sequence of the most recently delivered callback
}

func NewMonitor(opts Options) *Monitor {
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.PollInterval < minPollInterval {
		opts.PollInterval = minPollInterval
	}
	return &Monitor{
		opts: opts,
		snap: Snapshot{Loading: true},
	}
}

// Current returns the latest snapshot.
func (m *Monitor) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// Run polls until ctx is done. An immediate refresh precedes the ticker so
// the first snapshot does not wait a full interval.
func (m *Monitor) Run(ctx context.Context) {
	m.Refresh(ctx)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

// Refresh fetches the session status once. A refresh issued within
// DebounceWindow of the previous one is dropped; the in-flight result
// stands for both. Responses apply only while theirs is still the newest
// issued request: last request wins, not last response.
func (m *Monitor) Refresh(ctx context.Context) {
	m.mu.Lock()
	now := time.Now()
	if m.opts.DebounceWindow > 0 && !m.lastIssued.IsZero() && now.Sub(m.lastIssued) < m.opts.DebounceWindow {
		m.mu.Unlock()
		return
	}
	m.issued++
	seq := m.issued
	m.lastIssued = now
	m.mu.Unlock()

	snap, unauthenticated, err := m.fetch(ctx)
	if err != nil {
		// Optimistic: a transport failure keeps the last-known snapshot.
		// Only an explicit unauthenticated response invalidates the session.
		m.opts.Logger.Debug().Err(err).Msg("session refresh failed, keeping snapshot")
		return
	}

	m.apply(seq, snap, unauthenticated)
}

// Invalidate records that a protected request came back unauthenticated.
func (m *Monitor) Invalidate() {
	m.mu.Lock()
	m.issued++
	seq := m.issued
	m.lastIssued = time.Now()
	m.mu.Unlock()

	m.apply(seq, Snapshot{}, true)
}

type statusResponse struct {
	Authenticated bool `json:"authenticated"`
	User          *struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
	ExpiresAt string `json:"expiresAt"`
}

func (m *Monitor) fetch(ctx context.Context) (Snapshot, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.opts.Endpoint, nil)
	if err != nil {
		return Snapshot{}, false, err
	}

	resp, err := m.opts.HTTPClient.Do(req)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer resp.Body.Close()

	// A 401 from the status endpoint is an explicit "no session"; other
	// non-200s are treated as transient.
	if resp.StatusCode == http.StatusUnauthorized {
		return Snapshot{}, true, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Snapshot{}, false, errors.New("unexpected status " + resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Snapshot{}, false, err
	}

	var status statusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return Snapshot{}, false, err
	}

	if !status.Authenticated || status.User == nil {
		return Snapshot{}, true, nil
	}

	snap := Snapshot{
		Authenticated: true,
		Identity: Identity{
			UserID: status.User.ID,
			Role:   status.User.Role,
		},
	}
	if status.ExpiresAt != "" {
		if expiry, err := time.Parse(time.RFC3339, status.ExpiresAt); err == nil {
			snap.ExpiresAt = expiry
		}
	}
	return snap, false, nil
}

func (m *Monitor) apply(seq uint64, snap Snapshot, unauthenticated bool) {
	m.mu.Lock()

	// A newer refresh was issued while this one was in flight; its result
	// supersedes ours even if it has not arrived yet.
	if seq < m.issued || seq <= m.applied {
		m.mu.Unlock()
		return
	}
	m.applied = seq

	if unauthenticated {
		snap = Snapshot{}
	}

	prev := m.snap
	m.snap = snap
	changed := !prev.equivalent(snap)

	fireSignOut := false
	if unauthenticated && prev.Authenticated {
		now := time.Now()
		if m.lastSignOut.IsZero() || now.Sub(m.lastSignOut) >= m.opts.RedirectCooldown {
			m.lastSignOut = now
			fireSignOut = true
		}
	}
	m.mu.Unlock()

	m.dispatch(seq, snap, changed, fireSignOut)
}

// dispatch delivers observer callbacks in apply order. Applies are ordered
// by seq under mu, but the goroutines carrying them can reach this point out
// of order; a delivery that lost the race to a newer one is dropped so
// observers never see a snapshot older than the one already delivered.
func (m *Monitor) dispatch(seq uint64, snap Snapshot, changed bool, signedOut bool) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	if seq < m.dispatched {
		return
	}
	m.dispatched = seq

	if changed && m.opts.OnChange != nil {
		m.opts.OnChange(snap)
	}
	if signedOut && m.opts.OnSignedOut != nil {
		m.opts.OnSignedOut()
	}
}
