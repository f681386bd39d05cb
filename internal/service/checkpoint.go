package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"snapintake/internal/cache"
	"snapintake/internal/model"
	"snapintake/internal/repository"

	"github.com/google/uuid"
)

// CoverageSource supplies the latest oracle coverage for a session, if an
// evaluation has completed and did not degrade. May return nil.
type CoverageSource interface {
	LatestCoverage(sessionID string) *model.SectionCoverage
}

// CheckpointWriter persists full-state checkpoints and keeps the interview
// record's rollup fields current. Section flags written here come from the
// keyword heuristic unless a fresher oracle judgement is available; the
// oracle wins when present because the heuristic is only a cheap synchronous
// stand-in.
type CheckpointWriter struct {
	guard       *LifecycleGuard
	interviews  repository.InterviewRepo
	checkpoints repository.CheckpointRepo
	resume      cache.ResumeCache // optional
	oracle      CoverageSource    // optional
}

func NewCheckpointWriter(
	guard *LifecycleGuard,
	interviews repository.InterviewRepo,
	checkpoints repository.CheckpointRepo,
	resume cache.ResumeCache,
) *CheckpointWriter {
	return &CheckpointWriter{
		guard:       guard,
		interviews:  interviews,
		checkpoints: checkpoints,
		resume:      resume,
	}
}

// SetCoverageSource wires the debouncer registry in after construction.
func (w *CheckpointWriter) SetCoverageSource(src CoverageSource) {
	w.oracle = src
}

// Save ensures the record exists, refreshes its rollup fields, and appends
// an immutable checkpoint. An empty transcript is a defined no-op returning
// (nil, nil): no lookups, no record creation, no writes.
func (w *CheckpointWriter) Save(ctx context.Context, sessionID string, transcript []model.TranscriptEntry) (*model.Checkpoint, error) {
	if len(transcript) == 0 {
		return nil, nil
	}

	record, err := w.guard.EnsureExists(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	text := TranscriptText(transcript)
	coverage := KeywordCoverage(text)
	if w.oracle != nil {
		if oracleCov := w.oracle.LatestCoverage(sessionID); oracleCov != nil {
			coverage = *oracleCov
		}
	}

	completed := coverage.CoveredSections()
	current := NextSection(coverage)
	details := ExtractDetails(text)

	fields := map[string]interface{}{
		"currentSection":    current,
		"completedSections": completed,
		"exchangeCount":     UserTurnCount(transcript),
		"transcriptText":    text,
		"saveState":         transcript,
	}
	if details.Name != "" {
		fields["applicantName"] = details.Name
	}
	if details.HouseholdSize > 0 {
		fields["householdSize"] = details.HouseholdSize
	}
	if details.MonthlyIncome > 0 {
		fields["monthlyIncome"] = details.MonthlyIncome
	}

	if err := w.interviews.UpdateFields(ctx, sessionID, fields); err != nil {
		return nil, fmt.Errorf("%w: rollup update failed: %v", ErrRecordUnavailable, err)
	}

	checkpoint := &model.Checkpoint{
		ID:                uuid.New().String(),
		RecordID:          record.ID,
		CreatedAt:         time.Now(),
		Transcript:        transcript,
		CurrentSection:    current,
		CompletedSections: completed,
		Metadata: map[string]string{
			"sessionId": sessionID,
		},
	}
	if err := w.checkpoints.Append(ctx, checkpoint); err != nil {
		return nil, fmt.Errorf("%w: checkpoint append failed: %v", ErrRecordUnavailable, err)
	}

	if w.resume != nil {
		if err := w.resume.Set(ctx, sessionID, checkpoint); err != nil {
			// Cache miss on resume falls back to the store; not fatal.
			log.Printf("resume cache update failed for session %s: %v", sessionID, err)
		}
	}

	return checkpoint, nil
}
