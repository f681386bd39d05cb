package service

import (
	"strings"
	"testing"
	"time"
)

func TestIdleWarningEscalation(t *testing.T) {
	t.Parallel()

	tracker := NewIdleTracker(testInterviewConfig())

	if got := tracker.Warning(time.Minute); got != "" {
		t.Fatalf("expected no warning at 1 minute, got %q", got)
	}
	if got := tracker.Warning(3 * time.Minute); !strings.Contains(got, "still there") {
		t.Fatalf("expected still-there nudge at 3 minutes, got %q", got)
	}
	if got := tracker.Warning(4 * time.Minute); !strings.Contains(got, "1 minute") {
		t.Fatalf("expected auto-complete notice at 4 minutes, got %q", got)
	}
}

func TestIdleWarningThresholdsFollowConfig(t *testing.T) {
	t.Parallel()

	cfg := testInterviewConfig()
	cfg.IdleCompleteAfter = 10 * time.Minute
	tracker := NewIdleTracker(cfg)

	if got := tracker.Warning(7 * time.Minute); got != "" {
		t.Fatalf("warn threshold must move with the complete threshold, got %q", got)
	}
	if got := tracker.Warning(8*time.Minute + time.Second); !strings.Contains(got, "still there") {
		t.Fatalf("expected nudge past complete-2m, got %q", got)
	}
	if got := tracker.Warning(9*time.Minute + time.Second); !strings.Contains(got, "1 minute") {
		t.Fatalf("expected urgent notice past complete-1m, got %q", got)
	}
}

func TestIdleTrackerTouchAndForget(t *testing.T) {
	t.Parallel()

	tracker := NewIdleTracker(testInterviewConfig())

	if idle := tracker.IdleFor("unknown"); idle != 0 {
		t.Fatalf("unknown session should report zero idle, got %v", idle)
	}

	tracker.Touch("sess-1")
	if idle := tracker.IdleFor("sess-1"); idle > time.Second {
		t.Fatalf("freshly touched session should be near zero, got %v", idle)
	}
	if got := tracker.WarningFor("sess-1"); got != "" {
		t.Fatalf("expected no warning right after activity, got %q", got)
	}

	tracker.Forget("sess-1")
	if idle := tracker.IdleFor("sess-1"); idle != 0 {
		t.Fatalf("forgotten session should report zero idle, got %v", idle)
	}

	sessions := tracker.Sessions()
	if len(sessions) != 0 {
		t.Fatalf("expected no tracked sessions, got %v", sessions)
	}
}
