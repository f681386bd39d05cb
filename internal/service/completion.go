package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"snapintake/internal/config"
	"snapintake/internal/model"
	"snapintake/internal/repository"
)

// ErrCompletionInProgress is returned when a second trigger tries to
// finalize a session whose finalization is already running.
var ErrCompletionInProgress = errors.New("completion already in progress")

// Completion reasons. Exactly one is recorded per completed interview.
const (
	ReasonManualEnd   = "User manually ended interview"
	ReasonAgentSignal = "Agent signaled interview completion"
	ReasonIdleTimeout = "Idle timeout with sufficient conversation"
	ReasonMaxMessages = "Maximum message count reached"
)

// completionPhrases are the agent utterance fragments that signal the
// interview wrapped up, matched case-insensitively.
var completionPhrases = []string{
	"interview is complete",
	"that completes our interview",
	"we're all done",
	"interview has been completed",
}

// AgentSignaled reports whether an assistant utterance contains one of the
// fixed completion phrases.
func AgentSignaled(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// TriggerState is the snapshot of session state a trigger evaluation sees.
type TriggerState struct {
	// ManualEnd is true once the user confirmed termination.
	ManualEnd bool
	// AgentUtterance is the most recent assistant message, if any.
	AgentUtterance string
	// Idle is the time since the last transcript event.
	Idle time.Duration
	// UserMessages counts the applicant's turns.
	UserMessages int
	// TotalMessages counts all transcript entries.
	TotalMessages int
}

// CompletionPolicy owns the IN_PROGRESS -> COMPLETING -> COMPLETED
// transition. Triggers are evaluated in strict priority order and exactly
// one reason is recorded; finalization runs under a per-session latch so
// overlapping triggers cannot double-complete a record.
type CompletionPolicy struct {
	guard      *LifecycleGuard
	writer     *CheckpointWriter
	interviews repository.InterviewRepo
	cfg        config.InterviewConfig

	mu         sync.Mutex
	completing map[string]bool
}

func NewCompletionPolicy(
	guard *LifecycleGuard,
	writer *CheckpointWriter,
	interviews repository.InterviewRepo,
	cfg config.InterviewConfig,
) *CompletionPolicy {
	return &CompletionPolicy{
		guard:      guard,
		writer:     writer,
		interviews: interviews,
		cfg:        cfg,
		completing: make(map[string]bool),
	}
}

// EvaluateTriggers checks the ordered completion triggers against the
// session state. First match wins; triggers are never combined.
func (p *CompletionPolicy) EvaluateTriggers(st TriggerState) (string, bool) {
	if st.ManualEnd {
		return ReasonManualEnd, true
	}
	if st.AgentUtterance != "" && AgentSignaled(st.AgentUtterance) {
		return ReasonAgentSignal, true
	}
	if st.Idle > p.cfg.IdleCompleteAfter && st.UserMessages >= p.cfg.IdleMinUserTurns {
		return ReasonIdleTimeout, true
	}
	if st.TotalMessages >= p.cfg.MaxMessages {
		return ReasonMaxMessages, true
	}
	return "", false
}

// Complete finalizes the interview: ensure the record exists, save a final
// checkpoint when there is a transcript, attach the completion summary, and
// mark the record completed. Any failure aborts the whole finalization and
// leaves the record IN_PROGRESS so the caller can retry. Completing an
// already-terminal record is an idempotent no-op.
func (p *CompletionPolicy) Complete(ctx context.Context, sessionID, reason string, transcript []model.TranscriptEntry) (*model.CompletionSummary, error) {
	p.mu.Lock()
	if p.completing[sessionID] {
		p.mu.Unlock()
		return nil, ErrCompletionInProgress
	}
	p.completing[sessionID] = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.completing, sessionID)
		p.mu.Unlock()
	}()

	record, err := p.guard.EnsureExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if record.Status.Terminal() {
		log.Printf("session %s already %s, skipping completion", sessionID, record.Status)
		return record.Summary, nil
	}

	var checkpoint *model.Checkpoint
	if len(transcript) > 0 {
		checkpoint, err = p.writer.Save(ctx, sessionID, transcript)
		if err != nil {
			return nil, fmt.Errorf("final checkpoint: %w", err)
		}
	}

	completedAt := time.Now()
	summary := &model.CompletionSummary{
		Reason:        reason,
		TotalMessages: len(transcript),
		UserMessages:  UserTurnCount(transcript),
		CompletedAt:   completedAt,
	}
	if checkpoint != nil {
		summary.CompletedSections = nonSpecial(checkpoint.CompletedSections)
	} else {
		summary.CompletedSections = nonSpecial(record.CompletedSections)
	}

	details := ExtractDetails(TranscriptText(transcript))
	if details.HouseholdSize > 0 {
		summary.EstimatedBenefit = EstimateBenefit(details.HouseholdSize, details.MonthlyIncome)
	}

	if err := p.interviews.MarkCompleted(ctx, sessionID, summary, completedAt); err != nil {
		return nil, fmt.Errorf("%w: mark completed failed: %v", ErrRecordUnavailable, err)
	}

	log.Printf("session %s completed: %s", sessionID, reason)
	return summary, nil
}

// nonSpecial filters the informational special-circumstances section out of
// a completed-sections list; it never counts toward the summary.
func nonSpecial(sections []string) []string {
	out := []string{}
	for _, s := range sections {
		if s != string(model.SectionSpecial) {
			out = append(out, s)
		}
	}
	return out
}

// StatusMessage derives the human-readable progress banner from coverage.
// Advisory only; no control decision reads it. A nil coverage means no
// evaluation has happened yet.
func StatusMessage(coverage *model.SectionCoverage) string {
	if coverage == nil {
		return "Starting the interview. We'll go through a few topics together."
	}

	missing := strings.Join(coverage.MissingSections(), ", ")
	switch pct := coverage.Percentage(); {
	case pct >= 100:
		return "All sections covered. Wrapping up the interview."
	case pct >= 80:
		return "Almost done. Still to cover: " + missing
	case pct >= 60:
		return "Good progress. Still to cover: " + missing
	case pct >= 40:
		return "About halfway there. Still to cover: " + missing
	case pct >= 20:
		return "Getting started. Still to cover: " + missing
	default:
		return "Just beginning. Still to cover: " + missing
	}
}
