package service

import (
	"fmt"
	"sync"
	"time"

	"snapintake/internal/config"
)

// IdleTracker tracks wall-clock time since the last transcript event per
// session and produces the escalating idle warnings. The warnings are
// presentational; the actual idle completion decision belongs to the
// completion policy, and both read thresholds from the same config so they
// cannot drift apart.
type IdleTracker struct {
	cfg config.InterviewConfig

	mu           sync.Mutex
	lastActivity map[string]time.Time
}

func NewIdleTracker(cfg config.InterviewConfig) *IdleTracker {
	return &IdleTracker{
		cfg:          cfg,
		lastActivity: make(map[string]time.Time),
	}
}

// Touch records activity for the session, resetting its idle clock.
func (t *IdleTracker) Touch(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity[sessionID] = time.Now()
}

// Forget drops tracking for a finished session.
func (t *IdleTracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastActivity, sessionID)
}

// IdleFor returns how long the session has been without activity. Unknown
// sessions report zero.
func (t *IdleTracker) IdleFor(sessionID string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, ok := t.lastActivity[sessionID]
	if !ok {
		return 0
	}
	return time.Since(last)
}

// Sessions returns the ids of all tracked sessions.
func (t *IdleTracker) Sessions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.lastActivity))
	for id := range t.lastActivity {
		ids = append(ids, id)
	}
	return ids
}

// Warning returns the idle warning for the given idle duration: empty below
// the warn threshold, a "still there?" nudge past it, and an auto-complete
// notice once the urgent threshold is crossed.
func (t *IdleTracker) Warning(idle time.Duration) string {
	if idle >= t.cfg.IdleUrgentAfter() {
		remaining := t.cfg.IdleCompleteAfter - t.cfg.IdleUrgentAfter()
		return fmt.Sprintf("No response detected. The interview will be completed automatically in %d minute.", int(remaining.Minutes()))
	}
	if idle >= t.cfg.IdleWarnAfter() {
		return "Are you still there? The interview will time out soon without activity."
	}
	return ""
}

// WarningFor is Warning applied to the session's current idle time.
func (t *IdleTracker) WarningFor(sessionID string) string {
	return t.Warning(t.IdleFor(sessionID))
}
