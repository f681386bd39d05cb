package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"snapintake/internal/model"
	"snapintake/internal/repository"

	"github.com/google/uuid"
)

// ErrRecordUnavailable means the interview record could not be found or
// created because the store is down. This is the one storage failure that
// surfaces to the user: silently dropping a checkpoint is unacceptable.
var ErrRecordUnavailable = errors.New("interview record unavailable")

// LifecycleGuard guarantees a backing interview record exists exactly once
// per session before any checkpoint or completion write. Every write path
// goes through EnsureExists; it is the single choke point that prevents the
// save-before-create race between concurrent triggers.
type LifecycleGuard struct {
	interviews repository.InterviewRepo

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLifecycleGuard(interviews repository.InterviewRepo) *LifecycleGuard {
	return &LifecycleGuard{
		interviews: interviews,
		locks:      make(map[string]*sync.Mutex),
	}
}

func (g *LifecycleGuard) sessionLock(sessionID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[sessionID] = lock
	}
	return lock
}

// EnsureExists returns the interview record for the session, creating it if
// none exists yet. Concurrent callers racing on an uncreated session id
// converge on a single winner; losers receive the winner's record. Creation
// is double-guarded: a per-session mutex serializes in-process attempts, and
// the store's unique sessionId index catches anything that slips past it
// (another process, a stale lock map), turning the conflict into a re-fetch.
func (g *LifecycleGuard) EnsureExists(ctx context.Context, sessionID string) (*model.InterviewRecord, error) {
	lock := g.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	record, err := g.interviews.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup failed: %v", ErrRecordUnavailable, err)
	}
	if record != nil {
		return record, nil
	}

	now := time.Now()
	record = &model.InterviewRecord{
		ID:                uuid.New().String(),
		SessionID:         sessionID,
		Status:            model.StatusInProgress,
		StartedAt:         now,
		LastUpdated:       now,
		CurrentSection:    string(model.SectionHousehold),
		CompletedSections: []string{},
	}

	err = g.interviews.Insert(ctx, record)
	if errors.Is(err, repository.ErrDuplicateSession) {
		// Another creator won the race; theirs is the record.
		existing, fetchErr := g.interviews.GetBySessionID(ctx, sessionID)
		if fetchErr != nil || existing == nil {
			return nil, fmt.Errorf("%w: conflict re-fetch failed: %v", ErrRecordUnavailable, fetchErr)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create failed: %v", ErrRecordUnavailable, err)
	}

	return record, nil
}
