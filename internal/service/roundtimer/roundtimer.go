package service_roundtimer

import (
	"log/slog"
	"sync"
	"time"
)

// Scheduler owns one countdown per room code. Every Arm stamps the
// handle with a fresh generation; expiry hands that generation to the
// callback, which claims it with Consume once it is inside the room's
// serialization domain. A claim against a superseded or cancelled
// generation fails, so an expiry that lost the race to a manual
// transition is dropped there instead of advancing the turn twice. The
// map lock guards only register/claim/cancel/lookup, never the expiry
// callback itself.

type handle struct {
	gen      uint64
	start    time.Time
	duration time.Duration
	timer    *time.Timer
}

type Scheduler struct {
	mu      sync.Mutex
	lastGen uint64
	current map[string]*handle

	onExpire func(roomCode string, gen uint64)
	logger   *slog.Logger
}

type SchedulerOption func(*Scheduler)

func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

func New(opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		current: make(map[string]*handle),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bind sets the expiry callback. Called once at wiring time, before any
// timer is armed.
func (s *Scheduler) Bind(onExpire func(roomCode string, gen uint64)) {
	s.onExpire = onExpire
}

func (s *Scheduler) Arm(roomCode string, d time.Duration) {
	s.mu.Lock()
	if prev, ok := s.current[roomCode]; ok {
		prev.timer.Stop()
	}
	s.lastGen++
	h := &handle{gen: s.lastGen, start: time.Now(), duration: d}
	h.timer = time.AfterFunc(d, func() {
		s.fire(roomCode, h)
	})
	s.current[roomCode] = h
	s.mu.Unlock()

	s.logger.Debug("round timer armed", "room", roomCode, "duration", d)
}

// fire forwards the expiry to the callback. The handle stays registered
// until the callback claims it: deregistering here would let a
// concurrent Arm miss the in-flight expiry entirely.
func (s *Scheduler) fire(roomCode string, h *handle) {
	s.mu.Lock()
	stale := s.current[roomCode] != h
	s.mu.Unlock()

	if stale {
		s.logger.Debug("stale round timer dropped", "room", roomCode)
		return
	}

	s.logger.Debug("round timer fired", "room", roomCode)
	if s.onExpire != nil {
		s.onExpire(roomCode, h.gen)
	}
}

// Consume claims a fired timer generation, disarming it. It reports
// false when the generation was superseded or cancelled between expiry
// and the claim.
func (s *Scheduler) Consume(roomCode string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.current[roomCode]
	if !ok || h.gen != gen {
		return false
	}
	h.timer.Stop()
	delete(s.current, roomCode)
	return true
}

// Cancel invalidates the current handle without scheduling a replacement.
func (s *Scheduler) Cancel(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.current[roomCode]; ok {
		h.timer.Stop()
		delete(s.current, roomCode)
	}
}

// Remaining reports the time left on the room's timer. The second
// return is false when no timer is armed.
func (s *Scheduler) Remaining(roomCode string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.current[roomCode]
	if !ok {
		return 0, false
	}
	left := h.duration - time.Since(h.start)
	if left < 0 {
		left = 0
	}
	return left, true
}
