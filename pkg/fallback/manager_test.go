package fallback

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

// newTestManager returns a manager with an adjustable clock.
func newTestManager(cfg ManagerConfig) (*Manager, *time.Time) {
	m := NewManager(cfg)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestSelectHealthy(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{})

	if got := m.Select(Completion); got != Primary {
		t.Errorf("Select on a fresh manager = %s, want primary", got)
	}
}

func TestDisableAfterThreshold(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{FailureThreshold: 3, CoolDown: 30 * time.Second})

	t.Run("below threshold keeps primary", func(t *testing.T) {
		m.Report(Completion, Primary, errBoom)
		m.Report(Completion, Primary, errBoom)
		if got := m.Select(Completion); got != Primary {
			t.Errorf("Select after 2 of 3 failures = %s, want primary", got)
		}
	})

	t.Run("at threshold switches to fallback", func(t *testing.T) {
		m.Report(Completion, Primary, errBoom)
		for i := 0; i < 5; i++ {
			if got := m.Select(Completion); got != Fallback {
				t.Fatalf("Select after threshold = %s, want fallback", got)
			}
		}
	})

	t.Run("other capabilities are unaffected", func(t *testing.T) {
		if got := m.Select(Synthesis); got != Primary {
			t.Errorf("Select(synthesis) = %s, want primary", got)
		}
	})

	t.Run("success resets the streak", func(t *testing.T) {
		m.Report(Completion, Primary, nil)
		if got := m.Select(Completion); got != Primary {
			t.Errorf("Select after recovery = %s, want primary", got)
		}
	})
}

func TestStreakIsConsecutive(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{FailureThreshold: 3})

	m.Report(Transcription, Primary, errBoom)
	m.Report(Transcription, Primary, errBoom)
	m.Report(Transcription, Primary, nil) // streak broken
	m.Report(Transcription, Primary, errBoom)
	m.Report(Transcription, Primary, errBoom)

	if got := m.Select(Transcription); got != Primary {
		t.Errorf("Select = %s, want primary: interleaved success must reset the streak", got)
	}
}

func TestCoolDownProbe(t *testing.T) {
	m, clock := newTestManager(ManagerConfig{FailureThreshold: 2, CoolDown: 30 * time.Second})

	m.Report(Completion, Primary, errBoom)
	m.Report(Completion, Primary, errBoom)

	t.Run("disabled during cool-down", func(t *testing.T) {
		if got := m.Select(Completion); got != Fallback {
			t.Fatalf("Select during cool-down = %s, want fallback", got)
		}
	})

	t.Run("exactly one probe after cool-down", func(t *testing.T) {
		*clock = clock.Add(31 * time.Second)

		if got := m.Select(Completion); got != Primary {
			t.Fatalf("first Select after cool-down = %s, want primary probe", got)
		}
		for i := 0; i < 3; i++ {
			if got := m.Select(Completion); got != Fallback {
				t.Fatalf("Select while probe in flight = %s, want fallback", got)
			}
		}
	})

	t.Run("successful probe re-enables primary", func(t *testing.T) {
		m.Report(Completion, Primary, nil)
		if got := m.Select(Completion); got != Primary {
			t.Errorf("Select after successful probe = %s, want primary", got)
		}
	})
}

func TestFailedProbeBacksOff(t *testing.T) {
	m, clock := newTestManager(ManagerConfig{
		FailureThreshold: 2,
		CoolDown:         30 * time.Second,
		CoolDownFactor:   2.0,
		MaxCoolDown:      90 * time.Second,
	})

	m.Report(Completion, Primary, errBoom)
	m.Report(Completion, Primary, errBoom)

	// First probe fails: cool-down doubles to 60s.
	*clock = clock.Add(31 * time.Second)
	if got := m.Select(Completion); got != Primary {
		t.Fatalf("expected probe, got %s", got)
	}
	m.Report(Completion, Primary, errBoom)

	t.Run("still disabled before the backed-off cool-down elapses", func(t *testing.T) {
		*clock = clock.Add(45 * time.Second)
		if got := m.Select(Completion); got != Fallback {
			t.Errorf("Select before backed-off cool-down = %s, want fallback", got)
		}
	})

	t.Run("new probe after the backed-off cool-down", func(t *testing.T) {
		*clock = clock.Add(20 * time.Second) // 65s past the failed probe
		if got := m.Select(Completion); got != Primary {
			t.Errorf("Select after backed-off cool-down = %s, want primary probe", got)
		}
	})

	t.Run("backoff is capped", func(t *testing.T) {
		m.Report(Completion, Primary, errBoom) // second failed probe: 2*60 capped to 90s
		*clock = clock.Add(91 * time.Second)
		if got := m.Select(Completion); got != Primary {
			t.Errorf("Select after capped cool-down = %s, want primary probe", got)
		}
	})
}

func TestBothDisabledUsesPrimary(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{FailureThreshold: 2, CoolDown: time.Hour})

	m.Report(Synthesis, Primary, errBoom)
	m.Report(Synthesis, Primary, errBoom)
	m.Report(Synthesis, Fallback, errBoom)
	m.Report(Synthesis, Fallback, errBoom)

	if got := m.Select(Synthesis); got != Primary {
		t.Errorf("Select with both disabled = %s, want primary as last resort", got)
	}
}

func TestStatus(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{FailureThreshold: 2})

	m.Report(Completion, Primary, errBoom)
	m.Report(Completion, Primary, errBoom)
	m.Report(Completion, Fallback, nil)

	status := m.Status()

	primary := status[Completion][Primary]
	if primary.ConsecutiveFailures != 2 {
		t.Errorf("primary failures = %d, want 2", primary.ConsecutiveFailures)
	}
	if !primary.Disabled {
		t.Error("primary should be disabled")
	}
	if primary.LastFailure.IsZero() {
		t.Error("last failure time should be set")
	}

	fb := status[Completion][Fallback]
	if fb.ConsecutiveFailures != 0 || fb.Disabled {
		t.Errorf("fallback health = %+v, want healthy", fb)
	}
}

func TestReset(t *testing.T) {
	m, _ := newTestManager(ManagerConfig{FailureThreshold: 1})

	m.Report(Completion, Primary, errBoom)
	if got := m.Select(Completion); got != Fallback {
		t.Fatalf("Select = %s, want fallback before reset", got)
	}

	m.Reset()

	if got := m.Select(Completion); got != Primary {
		t.Errorf("Select after reset = %s, want primary", got)
	}
	if len(m.Status()) != 1 {
		// Select recreated just the one pair it touched.
		t.Errorf("status has %d capabilities, want 1", len(m.Status()))
	}
}

func TestCancelledProbeDoesNotStrandPrimary(t *testing.T) {
	m, clock := newTestManager(ManagerConfig{FailureThreshold: 1, CoolDown: 30 * time.Second})

	m.Report(Completion, Primary, errBoom)
	if got := m.Select(Completion); got != Fallback {
		t.Fatalf("Select after disable = %s, want fallback", got)
	}

	*clock = clock.Add(31 * time.Second)

	gw := NewGateway(
		Completion, m,
		func(ctx context.Context, req string) (string, error) { return "", ctx.Err() },
		func(ctx context.Context, req string) (string, error) { return "ok", nil },
		0, nil,
	)

	// The caller disconnects during the granted probe.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gw.Call(ctx, "hi"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	// The interrupted probe must not consume the slot: once the cool-down
	// has elapsed the primary is offered again, not stuck on fallback.
	if got := m.Select(Completion); got != Primary {
		t.Fatalf("Select after cancelled probe = %s, want primary", got)
	}

	m.Report(Completion, Primary, nil)
	if got := m.Select(Completion); got != Primary {
		t.Errorf("Select after successful probe = %s, want primary", got)
	}
}
