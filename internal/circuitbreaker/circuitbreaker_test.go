package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream 500")

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	var transitions []string
	cb := New(Config{
		FailureThreshold: 3,
		Timeout:          time.Minute,
		Now:              clk.Now,
		OnStateChange:    func(from, to State) { transitions = append(transitions, from.String()+"->"+to.String()) },
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Call(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d error = %v, want upstream error", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want open", cb.State())
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Call() while open error = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn should not run while circuit is open")
	}
	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("transitions = %v, want [closed->open]", transitions)
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Minute, Now: clk.Now})
	ctx := context.Background()

	_ = cb.Call(ctx, fail)
	clk.t = clk.t.Add(time.Minute)

	if err := cb.Call(ctx, succeed); err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want half_open after one probe", cb.State())
	}
	_ = cb.Call(ctx, succeed)
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	cb := New(Config{FailureThreshold: 1, Timeout: time.Second, Now: clk.Now})
	ctx := context.Background()

	_ = cb.Call(ctx, fail)
	clk.t = clk.t.Add(time.Second)
	_ = cb.Call(ctx, fail)

	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want open", cb.State())
	}
	if err := cb.Call(ctx, succeed); !errors.Is(err, ErrOpen) {
		t.Errorf("Call() error = %v, want ErrOpen right after reopening", err)
	}
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	notFound := errors.New("city not found")
	cb := New(Config{
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, notFound) },
	})

	err := cb.Call(context.Background(), func(context.Context) error { return notFound })
	if !errors.Is(err, notFound) {
		t.Fatalf("Call() error = %v, want notFound", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want closed; filtered errors must not trip the circuit", cb.State())
	}
}
