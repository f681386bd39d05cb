package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"snapintake/internal/cache"
	"snapintake/internal/config"
	"snapintake/internal/model"
	"snapintake/internal/repository"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

// sessionState is the in-memory state of one active interview session.
type sessionState struct {
	mu          sync.Mutex
	entries     []model.TranscriptEntry
	debouncer   *CoverageDebouncer
	eventCount  int
	lastWarning string
}

func (s *sessionState) snapshot() []model.TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TranscriptEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// SessionManager owns active sessions: it feeds transcript events into the
// debouncer and idle tracker, runs the periodic checkpoint cadence, and
// hands completion triggers to the policy. One debouncer per session.
type SessionManager struct {
	cfg        config.InterviewConfig
	evaluator  CoverageEvaluator
	guard      *LifecycleGuard
	writer     *CheckpointWriter
	policy     *CompletionPolicy
	idle       *IdleTracker
	interviews repository.InterviewRepo
	coverage   cache.CoverageCache // optional
	resume     cache.ResumeCache   // optional

	broadcaster Broadcaster

	mu       sync.Mutex
	sessions map[string]*sessionState

	stop chan struct{}
	once sync.Once
}

func NewSessionManager(
	cfg config.InterviewConfig,
	evaluator CoverageEvaluator,
	guard *LifecycleGuard,
	writer *CheckpointWriter,
	policy *CompletionPolicy,
	idle *IdleTracker,
	interviews repository.InterviewRepo,
	coverageCache cache.CoverageCache,
	resumeCache cache.ResumeCache,
) *SessionManager {
	m := &SessionManager{
		cfg:        cfg,
		evaluator:  evaluator,
		guard:      guard,
		writer:     writer,
		policy:     policy,
		idle:       idle,
		interviews: interviews,
		coverage:   coverageCache,
		resume:     resumeCache,
		sessions:   make(map[string]*sessionState),
		stop:       make(chan struct{}),
	}
	writer.SetCoverageSource(m)
	go m.runIdleLoop()
	return m
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (m *SessionManager) SetBroadcaster(b Broadcaster) {
	m.broadcaster = b
}

// Stop shuts down the idle loop and all session debouncers.
func (m *SessionManager) Stop() {
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.sessions {
		st.debouncer.Close()
	}
}

// StartSession creates a new session and its backing record.
func (m *SessionManager) StartSession(ctx context.Context, audioEnabled bool, demoScenario string) (string, error) {
	sessionID := uuid.New().String()

	if _, err := m.guard.EnsureExists(ctx, sessionID); err != nil {
		return "", err
	}

	fields := map[string]interface{}{"audioEnabled": audioEnabled}
	if demoScenario != "" {
		fields["demoScenario"] = demoScenario
	}
	if err := m.interviews.UpdateFields(ctx, sessionID, fields); err != nil {
		return "", fmt.Errorf("%w: session setup failed: %v", ErrRecordUnavailable, err)
	}

	m.getOrCreateState(sessionID)
	m.idle.Touch(sessionID)
	log.Printf("session %s started (audio=%t)", sessionID, audioEnabled)
	return sessionID, nil
}

func (m *SessionManager) getOrCreateState(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.sessions[sessionID]
	if !ok {
		st = &sessionState{}
		st.debouncer = NewCoverageDebouncer(m.evaluator, m.cfg.DebounceQuiet, func(cov model.SectionCoverage, err error) {
			m.onCoverageResult(sessionID, cov, err)
		})
		m.sessions[sessionID] = st
	}
	return st
}

func (m *SessionManager) state(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

// onCoverageResult runs after every completed oracle evaluation.
func (m *SessionManager) onCoverageResult(sessionID string, cov model.SectionCoverage, err error) {
	if err != nil {
		log.Printf("session %s coverage evaluation degraded: %v", sessionID, err)
		if m.broadcaster != nil {
			m.broadcaster.BroadcastToSession(sessionID, "evaluation_degraded", map[string]string{
				"message": "Coverage evaluation temporarily unavailable",
			})
		}
		return
	}

	if m.coverage != nil {
		if cacheErr := m.coverage.Set(context.Background(), sessionID, &cov); cacheErr != nil {
			log.Printf("coverage cache update failed for session %s: %v", sessionID, cacheErr)
		}
	}

	if m.broadcaster != nil {
		payload := map[string]interface{}{
			"coverage":   cov,
			"percentage": cov.Percentage(),
			"complete":   cov.Complete(),
			"message":    StatusMessage(&cov),
		}
		m.broadcaster.BroadcastToSession(sessionID, "coverage_update", payload)
		m.broadcaster.BroadcastToReviewers(sessionID, "coverage_update", payload)
	}
}

// HandleTranscriptEvent ingests one (role, content) event: appends it to the
// in-memory transcript, resets the idle clock, kicks the debouncer, saves a
// periodic checkpoint, and evaluates completion triggers.
func (m *SessionManager) HandleTranscriptEvent(ctx context.Context, sessionID string, role model.Role, content string) error {
	st := m.state(sessionID)
	if st == nil {
		return ErrSessionNotFound
	}

	entry := model.TranscriptEntry{Role: role, Content: content, OccurredAt: time.Now()}

	st.mu.Lock()
	st.entries = append(st.entries, entry)
	st.eventCount++
	st.lastWarning = ""
	transcript := make([]model.TranscriptEntry, len(st.entries))
	copy(transcript, st.entries)
	eventCount := st.eventCount
	st.mu.Unlock()

	m.idle.Touch(sessionID)
	st.debouncer.NoteChange(TranscriptText(transcript))

	if m.cfg.CheckpointEvery > 0 && eventCount%m.cfg.CheckpointEvery == 0 {
		if _, err := m.writer.Save(ctx, sessionID, transcript); err != nil {
			// Periodic saves are best effort; the next one retries.
			log.Printf("periodic checkpoint failed for session %s: %v", sessionID, err)
		}
	}

	trigger := TriggerState{
		TotalMessages: len(transcript),
		UserMessages:  UserTurnCount(transcript),
	}
	if role == model.RoleAssistant {
		trigger.AgentUtterance = content
	}

	if reason, fire := m.policy.EvaluateTriggers(trigger); fire {
		if err := m.completeSession(ctx, sessionID, reason, transcript); err != nil {
			return err
		}
	}

	return nil
}

// ManualComplete finalizes the session at the user's request. The external
// confirmation collaborator's answer arrives as a boolean.
func (m *SessionManager) ManualComplete(ctx context.Context, sessionID string, confirmed bool) (*model.CompletionSummary, error) {
	if !confirmed {
		return nil, nil
	}

	st := m.state(sessionID)
	var transcript []model.TranscriptEntry
	if st != nil {
		transcript = st.snapshot()
	}

	summary, err := m.policy.Complete(ctx, sessionID, ReasonManualEnd, transcript)
	if err != nil {
		return nil, err
	}
	m.finishSession(sessionID, ReasonManualEnd, summary)
	return summary, nil
}

func (m *SessionManager) completeSession(ctx context.Context, sessionID, reason string, transcript []model.TranscriptEntry) error {
	summary, err := m.policy.Complete(ctx, sessionID, reason, transcript)
	if err != nil {
		if errors.Is(err, ErrCompletionInProgress) {
			// Another trigger is already finalizing; nothing to do.
			return nil
		}
		return err
	}
	m.finishSession(sessionID, reason, summary)
	return nil
}

func (m *SessionManager) finishSession(sessionID, reason string, summary *model.CompletionSummary) {
	if m.broadcaster != nil {
		payload := map[string]interface{}{"reason": reason}
		if summary != nil {
			payload["summary"] = summary
		}
		m.broadcaster.BroadcastToSession(sessionID, "interview_completed", payload)
		m.broadcaster.BroadcastToReviewers(sessionID, "interview_completed", payload)
	}

	m.mu.Lock()
	st := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if st != nil {
		st.debouncer.Close()
	}
	m.idle.Forget(sessionID)
}

// RefreshCoverage bypasses the quiet period and re-evaluates now.
func (m *SessionManager) RefreshCoverage(sessionID string) error {
	st := m.state(sessionID)
	if st == nil {
		return ErrSessionNotFound
	}
	st.debouncer.RefreshNow()
	return nil
}

// LatestCoverage implements CoverageSource for the checkpoint writer: the
// oracle's judgement, but only when the most recent evaluation succeeded.
// A degraded evaluation must not overwrite the heuristic with all-false.
func (m *SessionManager) LatestCoverage(sessionID string) *model.SectionCoverage {
	st := m.state(sessionID)
	if st == nil {
		return nil
	}
	latest, _, lastErr := st.debouncer.Snapshot()
	if lastErr != nil {
		return nil
	}
	return latest
}

// SessionStatus is the live view of a session for the status endpoint.
type SessionStatus struct {
	SessionID     string                 `json:"sessionId"`
	Status        model.InterviewStatus  `json:"status"`
	Message       string                 `json:"message"`
	Coverage      *model.SectionCoverage `json:"coverage,omitempty"`
	Percentage    int                    `json:"percentage"`
	Evaluating    bool                   `json:"evaluating"`
	Degraded      bool                   `json:"degraded"`
	TotalMessages int                    `json:"totalMessages"`
	UserMessages  int                    `json:"userMessages"`
	IdleWarning   string                 `json:"idleWarning,omitempty"`
}

// Status reports the banded human-readable progress plus raw counters.
func (m *SessionManager) Status(ctx context.Context, sessionID string) (*SessionStatus, error) {
	record, err := m.interviews.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup failed: %v", ErrRecordUnavailable, err)
	}
	if record == nil {
		return nil, ErrSessionNotFound
	}

	status := &SessionStatus{
		SessionID: sessionID,
		Status:    record.Status,
	}

	st := m.state(sessionID)
	if st != nil {
		transcript := st.snapshot()
		status.TotalMessages = len(transcript)
		status.UserMessages = UserTurnCount(transcript)

		latest, inFlight, lastErr := st.debouncer.Snapshot()
		status.Coverage = latest
		status.Evaluating = inFlight
		status.Degraded = lastErr != nil
		status.IdleWarning = m.idle.WarningFor(sessionID)
	} else if m.coverage != nil {
		// Session not live on this process; fall back to cached coverage.
		cached, cacheErr := m.coverage.Get(ctx, sessionID)
		if cacheErr == nil {
			status.Coverage = cached
		}
		status.TotalMessages = len(record.SaveState)
		status.UserMessages = record.ExchangeCount
	}

	if status.Coverage != nil {
		status.Percentage = status.Coverage.Percentage()
	}
	status.Message = StatusMessage(status.Coverage)
	return status, nil
}

// Resume restores a session from its latest checkpoint: resume cache first,
// then the checkpoint log. The in-memory transcript is rebuilt so the
// debouncer and triggers pick up where the session left off.
func (m *SessionManager) Resume(ctx context.Context, sessionID string) (*model.Checkpoint, error) {
	var checkpoint *model.Checkpoint

	if m.resume != nil {
		cached, err := m.resume.Get(ctx, sessionID)
		if err != nil {
			log.Printf("resume cache read failed for session %s: %v", sessionID, err)
		} else {
			checkpoint = cached
		}
	}

	if checkpoint == nil {
		record, err := m.interviews.GetBySessionID(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("%w: lookup failed: %v", ErrRecordUnavailable, err)
		}
		if record == nil {
			return nil, ErrSessionNotFound
		}
		latest, err := m.checkpointFor(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		checkpoint = latest
	}

	if checkpoint == nil {
		return nil, nil // Session exists but never checkpointed
	}

	st := m.getOrCreateState(sessionID)
	st.mu.Lock()
	st.entries = make([]model.TranscriptEntry, len(checkpoint.Transcript))
	copy(st.entries, checkpoint.Transcript)
	st.eventCount = len(st.entries)
	st.mu.Unlock()

	m.idle.Touch(sessionID)
	st.debouncer.NoteChange(TranscriptText(checkpoint.Transcript))
	return checkpoint, nil
}

// checkpointFor is split out so Resume stays readable.
func (m *SessionManager) checkpointFor(ctx context.Context, recordID string) (*model.Checkpoint, error) {
	latest, err := m.writer.checkpoints.LatestByRecordID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: checkpoint lookup failed: %v", ErrRecordUnavailable, err)
	}
	return latest, nil
}

// runIdleLoop watches tracked sessions, pushing idle warnings and firing
// the idle completion trigger. Warning text and the completion threshold
// both come from the shared config.
func (m *SessionManager) runIdleLoop() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweepIdleSessions()
		}
	}
}

func (m *SessionManager) sweepIdleSessions() {
	for _, sessionID := range m.idle.Sessions() {
		st := m.state(sessionID)
		if st == nil {
			continue
		}

		idle := m.idle.IdleFor(sessionID)
		transcript := st.snapshot()

		trigger := TriggerState{
			Idle:          idle,
			UserMessages:  UserTurnCount(transcript),
			TotalMessages: len(transcript),
		}
		if reason, fire := m.policy.EvaluateTriggers(trigger); fire {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := m.completeSession(ctx, sessionID, reason, transcript); err != nil {
				log.Printf("idle completion failed for session %s: %v", sessionID, err)
			}
			cancel()
			continue
		}

		// Each escalation level broadcasts once; activity resets it.
		if warning := m.idle.Warning(idle); warning != "" && m.broadcaster != nil {
			st.mu.Lock()
			changed := st.lastWarning != warning
			st.lastWarning = warning
			st.mu.Unlock()
			if changed {
				m.broadcaster.BroadcastToSession(sessionID, "idle_warning", map[string]string{
					"message": warning,
				})
			}
		}
	}
}
