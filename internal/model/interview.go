package model

import "time"

type InterviewStatus string

const (
	StatusInProgress InterviewStatus = "in_progress"
	StatusCompleted  InterviewStatus = "completed"
	StatusAbandoned  InterviewStatus = "abandoned"
	StatusError      InterviewStatus = "error"
)

// Terminal reports whether the interview can no longer be completed.
func (s InterviewStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned || s == StatusError
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptEntry is a single turn of the interview conversation.
// Entries are immutable once created and ordered by occurrence.
type TranscriptEntry struct {
	Role       Role      `json:"role" bson:"role"`
	Content    string    `json:"content" bson:"content"`
	OccurredAt time.Time `json:"occurredAt" bson:"occurredAt"`
}

// InterviewRecord is the durable aggregate root for one interview session.
// Exactly one record exists per session id.
type InterviewRecord struct {
	ID                string             `json:"id" bson:"_id,omitempty"`
	SessionID         string             `json:"sessionId" bson:"sessionId"`
	Status            InterviewStatus    `json:"status" bson:"status"`
	StartedAt         time.Time          `json:"startedAt" bson:"startedAt"`
	LastUpdated       time.Time          `json:"lastUpdated" bson:"lastUpdated"`
	CompletedAt       *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	AudioEnabled      bool               `json:"audioEnabled" bson:"audioEnabled"`
	DemoScenario      string             `json:"demoScenario,omitempty" bson:"demoScenario,omitempty"`
	CurrentSection    string             `json:"currentSection" bson:"currentSection"`
	CompletedSections []string           `json:"completedSections" bson:"completedSections"`
	Flags             []string           `json:"flags,omitempty" bson:"flags,omitempty"`
	ExchangeCount     int                `json:"exchangeCount" bson:"exchangeCount"`
	TranscriptText    string             `json:"transcriptText,omitempty" bson:"transcriptText,omitempty"`
	SaveState         []TranscriptEntry  `json:"saveState,omitempty" bson:"saveState,omitempty"`
	ApplicantName     string             `json:"applicantName,omitempty" bson:"applicantName,omitempty"`
	HouseholdSize     int                `json:"householdSize,omitempty" bson:"householdSize,omitempty"`
	MonthlyIncome     float64            `json:"monthlyIncome,omitempty" bson:"monthlyIncome,omitempty"`
	Summary           *CompletionSummary `json:"summary,omitempty" bson:"summary,omitempty"`
}

// CompletionSummary is attached to the record when the interview finalizes.
type CompletionSummary struct {
	Reason            string    `json:"reason" bson:"reason"`
	TotalMessages     int       `json:"totalMessages" bson:"totalMessages"`
	UserMessages      int       `json:"userMessages" bson:"userMessages"`
	CompletedSections []string  `json:"completedSections" bson:"completedSections"`
	EstimatedBenefit  float64   `json:"estimatedBenefit,omitempty" bson:"estimatedBenefit,omitempty"`
	CompletedAt       time.Time `json:"completedAt" bson:"completedAt"`
}

// Checkpoint is an immutable full-state snapshot written for resume/audit.
// Checkpoints belong to exactly one InterviewRecord and are never updated.
type Checkpoint struct {
	ID                string            `json:"id" bson:"_id,omitempty"`
	RecordID          string            `json:"recordId" bson:"recordId"`
	CreatedAt         time.Time         `json:"createdAt" bson:"createdAt"`
	Transcript        []TranscriptEntry `json:"transcript" bson:"transcript"`
	CurrentSection    string            `json:"currentSection" bson:"currentSection"`
	CompletedSections []string          `json:"completedSections" bson:"completedSections"`
	Metadata          map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}
