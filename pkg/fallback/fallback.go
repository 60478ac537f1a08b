// Package fallback decides, per capability call, whether the primary or
// fallback provider should serve, tracks provider health process-wide, and
// recovers disabled providers with a cool-down probe.
//
// The Manager is shared by all sessions; a generic Gateway wraps each
// capability's primary/fallback pair and consults the Manager around every
// dispatch.
package fallback

import (
	"log/slog"
	"sync"
	"time"
)

// Capability identifies a pipeline capability with a provider pair.
type Capability string

const (
	Transcription Capability = "transcription"
	Completion    Capability = "completion"
	Synthesis     Capability = "synthesis"
)

// Role identifies which provider of a pair served a call.
type Role string

const (
	Primary  Role = "primary"
	Fallback Role = "fallback"
)

// other returns the alternate role.
func (r Role) other() Role {
	if r == Primary {
		return Fallback
	}
	return Primary
}

// Health is the tracked state of one (capability, role) pair.
type Health struct {
	// ConsecutiveFailures only grows within a failure streak; any
	// success resets it to zero.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastFailure is when the most recent failure was reported.
	LastFailure time.Time `json:"last_failure,omitzero"`

	// Disabled reports whether the provider is currently skipped.
	Disabled bool `json:"disabled"`
}

// healthState is the internal per-pair record.
type healthState struct {
	failures      int
	lastFailure   time.Time
	disabledUntil time.Time
	probing       bool
	coolDown      time.Duration
}

// ManagerConfig tunes the disable/recover policy.
type ManagerConfig struct {
	// FailureThreshold is the consecutive failure count that disables a
	// provider.
	FailureThreshold int

	// CoolDown is how long a provider stays disabled before a probe.
	CoolDown time.Duration

	// CoolDownFactor multiplies the cool-down after each failed probe.
	CoolDownFactor float64

	// MaxCoolDown caps the backed-off cool-down.
	MaxCoolDown time.Duration

	// Logger for selection and health transitions.
	Logger *slog.Logger
}

// DefaultManagerConfig returns the default policy.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		FailureThreshold: 3,
		CoolDown:         30 * time.Second,
		CoolDownFactor:   2.0,
		MaxCoolDown:      5 * time.Minute,
	}
}

type pairKey struct {
	capability Capability
	role       Role
}

// Manager tracks provider health and selects which provider serves each
// call. It is safe for concurrent use across sessions; each (capability,
// role) pair is updated under a single lock so streak counts never lose
// updates.
type Manager struct {
	mu     sync.Mutex
	health map[pairKey]*healthState
	cfg    ManagerConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a Manager with the given policy. Zero config fields
// fall back to the defaults.
func NewManager(cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = def.CoolDown
	}
	if cfg.CoolDownFactor < 1 {
		cfg.CoolDownFactor = def.CoolDownFactor
	}
	if cfg.MaxCoolDown <= 0 {
		cfg.MaxCoolDown = def.MaxCoolDown
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		health: make(map[pairKey]*healthState),
		cfg:    cfg,
		logger: logger.With("component", "fallback.manager"),
		now:    time.Now,
	}
}

// Select returns which provider should serve the next call for a
// capability. A disabled primary yields the fallback until its cool-down
// elapses, after which exactly one probe call gets the primary again. If
// both providers are disabled the primary is returned as a last resort so
// the turn still gets an attempt.
func (m *Manager) Select(capability Capability) Role {
	m.mu.Lock()
	defer m.mu.Unlock()

	primary := m.state(capability, Primary)
	if !m.disabled(primary) {
		return Primary
	}

	if !primary.probing && !m.now().Before(primary.disabledUntil) {
		primary.probing = true
		m.logger.Info("probing primary after cool-down", "capability", capability)
		return Primary
	}

	if m.disabled(m.state(capability, Fallback)) {
		m.logger.Warn("both providers disabled, using primary as last resort",
			"capability", capability,
		)
		return Primary
	}
	return Fallback
}

// Report records the outcome of a dispatch. Success resets the pair's
// streak and cool-down; failure grows the streak and disables the provider
// once it reaches the threshold. A failed probe restarts the cool-down with
// backoff.
func (m *Manager) Report(capability Capability, role Role, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := m.state(capability, role)

	if err == nil {
		if h.failures >= m.cfg.FailureThreshold {
			m.logger.Info("provider recovered",
				"capability", capability,
				"role", role,
			)
		}
		h.failures = 0
		h.disabledUntil = time.Time{}
		h.probing = false
		h.coolDown = m.cfg.CoolDown
		return
	}

	h.failures++
	h.lastFailure = m.now()

	if h.probing {
		// Failed probe: restart the cool-down, backed off.
		h.probing = false
		h.coolDown = time.Duration(float64(h.coolDown) * m.cfg.CoolDownFactor)
		if h.coolDown > m.cfg.MaxCoolDown {
			h.coolDown = m.cfg.MaxCoolDown
		}
		h.disabledUntil = m.now().Add(h.coolDown)
		m.logger.Warn("probe failed, provider stays disabled",
			"capability", capability,
			"role", role,
			"cool_down", h.coolDown,
		)
		return
	}

	if h.failures == m.cfg.FailureThreshold {
		h.disabledUntil = m.now().Add(h.coolDown)
		m.logger.Warn("provider disabled after consecutive failures",
			"capability", capability,
			"role", role,
			"failures", h.failures,
			"cool_down", h.coolDown,
		)
	}
}

// Release returns a granted probe slot without an outcome. Used when a call
// ends for reasons that say nothing about the provider (caller cancellation),
// so the next Select past the cool-down can grant a fresh probe instead of
// stranding the capability on the fallback.
func (m *Manager) Release(capability Capability, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state(capability, role).probing = false
}

// Status returns a snapshot of provider health for every tracked pair,
// keyed by capability then role.
func (m *Manager) Status() map[Capability]map[Role]Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[Capability]map[Role]Health)
	for key, h := range m.health {
		roles, ok := out[key.capability]
		if !ok {
			roles = make(map[Role]Health, 2)
			out[key.capability] = roles
		}
		roles[key.role] = Health{
			ConsecutiveFailures: h.failures,
			LastFailure:         h.lastFailure,
			Disabled:            m.disabled(h),
		}
	}
	return out
}

// Reset clears all health state. Intended for explicit admin action only.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = make(map[pairKey]*healthState)
}

// state returns (creating if needed) the record for a pair.
// Callers must hold the lock.
func (m *Manager) state(capability Capability, role Role) *healthState {
	key := pairKey{capability: capability, role: role}
	h, ok := m.health[key]
	if !ok {
		h = &healthState{coolDown: m.cfg.CoolDown}
		m.health[key] = h
	}
	return h
}

// disabled reports whether a provider is currently skipped.
// A provider past its cool-down is still formally disabled until a probe
// succeeds; Select handles granting the single probe.
// Callers must hold the lock.
func (m *Manager) disabled(h *healthState) bool {
	return h.failures >= m.cfg.FailureThreshold
}
