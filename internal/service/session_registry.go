package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/MattB543/textpress-matt-test/internal/domain"
	"github.com/MattB543/textpress-matt-test/internal/orchestrator"

	"github.com/google/uuid"
)

// MaxSessionSlots bounds the slot count a caller may request.
const MaxSessionSlots = 10

// SessionOptions are the defaults applied to every new session.
type SessionOptions struct {
	DefaultSlots          int
	ConvertTimeout        time.Duration
	CombineTimeout        time.Duration
	MaxConcurrentConverts int
	// IdleTTL evicts sessions nobody has touched for this long. Zero disables eviction.
	IdleTTL time.Duration
	// MaxSessions caps live sessions. Zero means unlimited.
	MaxSessions int
}

type sessionEntry struct {
	orch     *orchestrator.Orchestrator
	lastSeen time.Time
}

// SessionRegistry owns the live orchestration sessions of the server.
type SessionRegistry struct {
	mu        sync.RWMutex
	sessions  map[string]*sessionEntry
	transport domain.Transport
	opts      SessionOptions
	logger    domain.Logger
	now       func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSessionRegistry(transport domain.Transport, opts SessionOptions, logger domain.Logger) *SessionRegistry {
	if opts.DefaultSlots <= 0 {
		opts.DefaultSlots = 3
	}
	r := &SessionRegistry{
		sessions:  make(map[string]*sessionEntry),
		transport: transport,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	if opts.IdleTTL > 0 {
		r.wg.Add(1)
		go r.janitor(sweepInterval(opts.IdleTTL))
	}
	return r
}

func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}

func (r *SessionRegistry) janitor(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

// sweep closes sessions idle past the TTL. Sessions with a call in flight are
// left for a later pass; their transport timeouts bound how long that takes.
func (r *SessionRegistry) sweep() int {
	cutoff := r.now().Add(-r.opts.IdleTTL)

	var expired []*orchestrator.Orchestrator
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastSeen.After(cutoff) || inFlight(e.orch.Snapshot()) {
			continue
		}
		delete(r.sessions, id)
		expired = append(expired, e.orch)
		r.logger.Info("Session expired", "session_id", id, "idle", r.now().Sub(e.lastSeen).String())
	}
	r.mu.Unlock()

	for _, o := range expired {
		o.Close()
	}
	return len(expired)
}

func inFlight(s orchestrator.Session) bool {
	if s.Busy {
		return true
	}
	for _, slot := range s.Slots {
		if slot.Status == orchestrator.StatusInFlight {
			return true
		}
	}
	return false
}

// Create starts a session. slots <= 0 uses the configured default; one slot
// gives a single-convert session that never combines.
func (r *SessionRegistry) Create(slots int, combinedTitle string) (string, *orchestrator.Orchestrator, error) {
	if slots <= 0 {
		slots = r.opts.DefaultSlots
	}
	if slots > MaxSessionSlots {
		return "", nil, fmt.Errorf("%w: at most %d slots, got %d", domain.ErrInvalidSlotCount, MaxSessionSlots, slots)
	}
	mode := orchestrator.ModeCombine
	if slots == 1 {
		mode = orchestrator.ModeSingle
	}

	id := uuid.New().String()
	o, err := orchestrator.New(r.transport, orchestrator.Options{
		Mode:                  mode,
		Slots:                 slots,
		CombinedTitle:         combinedTitle,
		ConvertTimeout:        r.opts.ConvertTimeout,
		CombineTimeout:        r.opts.CombineTimeout,
		MaxConcurrentConverts: r.opts.MaxConcurrentConverts,
		Logger:                r.logger,
		OnCombined: func(res domain.CombinedResult) {
			r.logger.Info("Session combined", "session_id", id, "id", res.ID, "public_url", res.PublicURL)
		},
	})
	if err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	if r.opts.MaxSessions > 0 && len(r.sessions) >= r.opts.MaxSessions {
		r.mu.Unlock()
		o.Close()
		return "", nil, domain.ErrTooManySessions
	}
	r.sessions[id] = &sessionEntry{orch: o, lastSeen: r.now()}
	r.mu.Unlock()

	r.logger.Info("Session created", "session_id", id, "slots", slots, "mode", string(mode))
	return id, o, nil
}

// Get returns a live session and marks it as recently used.
func (r *SessionRegistry) Get(id string) (*orchestrator.Orchestrator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.orch, nil
}

// Remove closes and forgets a session.
func (r *SessionRegistry) Remove(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	e.orch.Close()
	r.logger.Info("Session closed", "session_id", id)
	return nil
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll stops eviction, closes every session and waits for their
// background calls to return.
func (r *SessionRegistry) CloseAll() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*sessionEntry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.orch.Close()
	}
	for _, e := range sessions {
		e.orch.Wait()
	}
}
