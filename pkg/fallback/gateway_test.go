package fallback_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/voxpipe/voxpipe/pkg/fallback"
)

var errDown = errors.New("provider down")

func succeed(text string) fallback.CallFunc[string, string] {
	return func(ctx context.Context, req string) (string, error) {
		return text, nil
	}
}

func fail(err error) fallback.CallFunc[string, string] {
	return func(ctx context.Context, req string) (string, error) {
		return "", err
	}
}

func counting(fn fallback.CallFunc[string, string], n *atomic.Int32) fallback.CallFunc[string, string] {
	return func(ctx context.Context, req string) (string, error) {
		n.Add(1)
		return fn(ctx, req)
	}
}

func TestGatewayPrimarySuccess(t *testing.T) {
	m := fallback.NewManager(fallback.DefaultManagerConfig())
	var primaryCalls, fallbackCalls atomic.Int32
	gw := fallback.NewGateway(
		fallback.Completion, m,
		counting(succeed("from primary"), &primaryCalls),
		counting(succeed("from fallback"), &fallbackCalls),
		time.Second, nil,
	)

	out, err := gw.Call(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Resp != "from primary" || out.Role != fallback.Primary {
		t.Errorf("outcome = %q via %s, want primary", out.Resp, out.Role)
	}
	if primaryCalls.Load() != 1 || fallbackCalls.Load() != 0 {
		t.Errorf("calls = %d primary, %d fallback", primaryCalls.Load(), fallbackCalls.Load())
	}
}

func TestGatewaySwitchesOnce(t *testing.T) {
	m := fallback.NewManager(fallback.DefaultManagerConfig())
	var primaryCalls atomic.Int32
	gw := fallback.NewGateway(
		fallback.Completion, m,
		counting(fail(errDown), &primaryCalls),
		succeed("from fallback"),
		time.Second, nil,
	)

	out, err := gw.Call(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Resp != "from fallback" || out.Role != fallback.Fallback {
		t.Errorf("outcome = %q via %s, want fallback", out.Resp, out.Role)
	}
	if primaryCalls.Load() != 1 {
		t.Errorf("primary called %d times, want exactly 1", primaryCalls.Load())
	}
}

func TestGatewayBothFail(t *testing.T) {
	m := fallback.NewManager(fallback.DefaultManagerConfig())
	errPrimary := errors.New("primary down")
	errFallback := errors.New("fallback down")
	gw := fallback.NewGateway(
		fallback.Synthesis, m,
		fail(errPrimary),
		fail(errFallback),
		time.Second, nil,
	)

	_, err := gw.Call(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected error")
	}

	var both *fallback.BothFailedError
	if !errors.As(err, &both) {
		t.Fatalf("error type = %T, want BothFailedError", err)
	}
	if both.Capability != fallback.Synthesis {
		t.Errorf("capability = %s, want synthesis", both.Capability)
	}
	if !errors.Is(both.PrimaryErr, errPrimary) || !errors.Is(both.FallbackErr, errFallback) {
		t.Errorf("errors mapped wrong: primary=%v fallback=%v", both.PrimaryErr, both.FallbackErr)
	}
	if !errors.Is(err, errPrimary) {
		t.Error("BothFailedError should unwrap to the primary error")
	}
}

func TestGatewayErrorMappingWhenFallbackFirst(t *testing.T) {
	// Disable the primary so the manager selects fallback first, then make
	// both fail; the error must still name each role's own failure.
	m := fallback.NewManager(fallback.ManagerConfig{FailureThreshold: 1, CoolDown: time.Hour})
	m.Report(fallback.Completion, fallback.Primary, errDown)

	errPrimary := errors.New("primary down")
	errFallback := errors.New("fallback down")
	gw := fallback.NewGateway(
		fallback.Completion, m,
		fail(errPrimary),
		fail(errFallback),
		time.Second, nil,
	)

	_, err := gw.Call(context.Background(), "hi")
	var both *fallback.BothFailedError
	if !errors.As(err, &both) {
		t.Fatalf("error type = %T, want BothFailedError", err)
	}
	if !errors.Is(both.PrimaryErr, errPrimary) || !errors.Is(both.FallbackErr, errFallback) {
		t.Errorf("errors mapped wrong: primary=%v fallback=%v", both.PrimaryErr, both.FallbackErr)
	}
}

func TestGatewayFollowsManagerSelection(t *testing.T) {
	m := fallback.NewManager(fallback.ManagerConfig{FailureThreshold: 2, CoolDown: time.Hour})
	var primaryCalls, fallbackCalls atomic.Int32
	gw := fallback.NewGateway(
		fallback.Transcription, m,
		counting(fail(errDown), &primaryCalls),
		counting(succeed("ok"), &fallbackCalls),
		time.Second, nil,
	)

	// Two failing calls disable the primary.
	for i := 0; i < 2; i++ {
		if _, err := gw.Call(context.Background(), "hi"); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
	if primaryCalls.Load() != 2 {
		t.Fatalf("primary called %d times, want 2", primaryCalls.Load())
	}

	// Further calls go straight to the fallback.
	if _, err := gw.Call(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if primaryCalls.Load() != 2 {
		t.Errorf("disabled primary was still called (%d times)", primaryCalls.Load())
	}
	if fallbackCalls.Load() != 3 {
		t.Errorf("fallback called %d times, want 3", fallbackCalls.Load())
	}
}

func TestGatewayCancelledContext(t *testing.T) {
	m := fallback.NewManager(fallback.DefaultManagerConfig())
	var fallbackCalls atomic.Int32
	gw := fallback.NewGateway(
		fallback.Completion, m,
		func(ctx context.Context, req string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
		counting(succeed("ok"), &fallbackCalls),
		time.Second, nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := gw.Call(ctx, "hi")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if fallbackCalls.Load() != 0 {
		t.Error("cancelled call must not try the alternate provider")
	}

	// A caller cancellation is not the provider's fault.
	status := m.Status()
	if h, ok := status[fallback.Completion][fallback.Primary]; ok && h.ConsecutiveFailures != 0 {
		t.Errorf("cancellation was counted as a provider failure: %+v", h)
	}
}

func TestGatewayTimeoutCountsAsFailure(t *testing.T) {
	m := fallback.NewManager(fallback.DefaultManagerConfig())
	gw := fallback.NewGateway(
		fallback.Completion, m,
		func(ctx context.Context, req string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
		succeed("from fallback"),
		20*time.Millisecond, nil,
	)

	out, err := gw.Call(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Role != fallback.Fallback {
		t.Errorf("role = %s, want fallback after primary timeout", out.Role)
	}

	status := m.Status()
	if h := status[fallback.Completion][fallback.Primary]; h.ConsecutiveFailures != 1 {
		t.Errorf("primary failures = %d, want timeout counted as 1", h.ConsecutiveFailures)
	}
}
