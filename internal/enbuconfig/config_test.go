package enbuconfig

import "testing"

func TestResolve_AppliesDefaults(t *testing.T) {
	opts := &RunOptions{}
	if err := Resolve(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.CommandTimeoutMs != 30000 {
		t.Fatalf("got CommandTimeoutMs=%d", opts.CommandTimeoutMs)
	}
	if opts.AutoWaitTimeoutMs != 30000 {
		t.Fatalf("got AutoWaitTimeoutMs=%d", opts.AutoWaitTimeoutMs)
	}
	if opts.AutoWaitIntervalMs != 100 {
		t.Fatalf("got AutoWaitIntervalMs=%d", opts.AutoWaitIntervalMs)
	}
	if opts.Parallel != 1 {
		t.Fatalf("got Parallel=%d", opts.Parallel)
	}
	if !opts.Bail {
		t.Fatal("expected Bail to default true")
	}
	if !opts.Screenshot {
		t.Fatal("expected Screenshot to default true")
	}
}

func TestResolve_PreservesExplicitValues(t *testing.T) {
	opts := &RunOptions{
		CommandTimeoutMs: 5000,
		Parallel:         4,
		Bail:             false,
		Screenshot:       false,
	}
	if err := Resolve(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.CommandTimeoutMs != 5000 {
		t.Fatalf("got CommandTimeoutMs=%d, want explicit value preserved", opts.CommandTimeoutMs)
	}
	if opts.Parallel != 4 {
		t.Fatalf("got Parallel=%d", opts.Parallel)
	}
	// A false bool is indistinguishable from an unset one to
	// creasty/defaults, so Resolve fills Bail and Screenshot with their
	// `true` defaults (see ApplyDefaults/Resolve doc comments).
	if !opts.Bail {
		t.Fatal("expected Resolve to fill Bail's default true over a false bool")
	}
	if !opts.Screenshot {
		t.Fatal("expected Resolve to fill Screenshot's default true over a false bool")
	}
}

func TestResolve_RejectsNonPositiveTimeout(t *testing.T) {
	opts := &RunOptions{CommandTimeoutMs: -1}
	if err := Resolve(opts); err == nil {
		t.Fatal("expected validation error for negative timeout")
	}
}

func TestResolve_ZeroParallelGetsDefaulted(t *testing.T) {
	opts := &RunOptions{Parallel: 0}
	if err := Resolve(opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Parallel: 0 is the zero value, so creasty/defaults fills it in before
	// validation runs — it never reaches the validator as 0.
	if opts.Parallel != 1 {
		t.Fatalf("got Parallel=%d, want default applied", opts.Parallel)
	}
}

func TestResolve_NilOptionsIsError(t *testing.T) {
	if err := Resolve(nil); err == nil {
		t.Fatal("expected error for nil RunOptions")
	}
}
