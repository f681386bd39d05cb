package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"snapintake/internal/model"
	"snapintake/internal/repository"
)

var errStoreDown = errors.New("store down")

// fakeInterviewRepo is an in-memory InterviewRepo with failure injection.
type fakeInterviewRepo struct {
	mu          sync.Mutex
	records     map[string]*model.InterviewRecord
	failLookups bool
	failInserts bool
	failUpdates bool
	inserts     int
	lookups     int
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{records: make(map[string]*model.InterviewRecord)}
}

func (f *fakeInterviewRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.InterviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.failLookups {
		return nil, errStoreDown
	}
	rec, ok := f.records[sessionID]
	if !ok {
		return nil, nil
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeInterviewRepo) Insert(ctx context.Context, record *model.InterviewRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInserts {
		return errStoreDown
	}
	if _, ok := f.records[record.SessionID]; ok {
		return repository.ErrDuplicateSession
	}
	f.inserts++
	clone := *record
	f.records[record.SessionID] = &clone
	return nil
}

func (f *fakeInterviewRepo) UpdateFields(ctx context.Context, sessionID string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates {
		return errStoreDown
	}
	rec, ok := f.records[sessionID]
	if !ok {
		return nil
	}
	rec.LastUpdated = time.Now()
	for k, v := range fields {
		switch k {
		case "currentSection":
			rec.CurrentSection = v.(string)
		case "completedSections":
			rec.CompletedSections = v.([]string)
		case "exchangeCount":
			rec.ExchangeCount = v.(int)
		case "transcriptText":
			rec.TranscriptText = v.(string)
		case "saveState":
			rec.SaveState = v.([]model.TranscriptEntry)
		case "applicantName":
			rec.ApplicantName = v.(string)
		case "householdSize":
			rec.HouseholdSize = v.(int)
		case "monthlyIncome":
			rec.MonthlyIncome = v.(float64)
		case "audioEnabled":
			rec.AudioEnabled = v.(bool)
		case "demoScenario":
			rec.DemoScenario = v.(string)
		}
	}
	return nil
}

func (f *fakeInterviewRepo) MarkCompleted(ctx context.Context, sessionID string, summary *model.CompletionSummary, completedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdates {
		return errStoreDown
	}
	rec, ok := f.records[sessionID]
	if !ok {
		return nil
	}
	rec.Status = model.StatusCompleted
	rec.CompletedAt = &completedAt
	rec.Summary = summary
	rec.LastUpdated = completedAt
	return nil
}

func (f *fakeInterviewRepo) List(ctx context.Context) ([]*model.InterviewRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.InterviewRecord, 0, len(f.records))
	for _, rec := range f.records {
		clone := *rec
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeInterviewRepo) get(sessionID string) *model.InterviewRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[sessionID]
}

// fakeCheckpointRepo is an in-memory append-only checkpoint log.
type fakeCheckpointRepo struct {
	mu          sync.Mutex
	checkpoints []*model.Checkpoint
	failAppends bool
}

func newFakeCheckpointRepo() *fakeCheckpointRepo {
	return &fakeCheckpointRepo{}
}

func (f *fakeCheckpointRepo) Append(ctx context.Context, checkpoint *model.Checkpoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAppends {
		return errStoreDown
	}
	clone := *checkpoint
	f.checkpoints = append(f.checkpoints, &clone)
	return nil
}

func (f *fakeCheckpointRepo) ListByRecordID(ctx context.Context, recordID string) ([]*model.Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Checkpoint
	for i := len(f.checkpoints) - 1; i >= 0; i-- {
		if f.checkpoints[i].RecordID == recordID {
			clone := *f.checkpoints[i]
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (f *fakeCheckpointRepo) LatestByRecordID(ctx context.Context, recordID string) (*model.Checkpoint, error) {
	list, _ := f.ListByRecordID(ctx, recordID)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (f *fakeCheckpointRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.checkpoints)
}

// fakeEvaluator counts calls and returns a canned coverage.
type fakeEvaluator struct {
	mu       sync.Mutex
	calls    int
	coverage model.SectionCoverage
	err      error
	delay    time.Duration
	lastText string
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, transcriptText string) (model.SectionCoverage, error) {
	f.mu.Lock()
	f.calls++
	f.lastText = transcriptText
	cov, err, delay := f.coverage, f.err, f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return cov, err
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
