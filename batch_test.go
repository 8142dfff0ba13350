package stride

import (
	"testing"
	"time"
)

func TestBatch_Defaults(t *testing.T) {
	opts := Batch().Options()

	if opts.Concurrency != 5 {
		t.Fatalf("expected default concurrency 5, got %d", opts.Concurrency)
	}
	if opts.Retry != nil {
		t.Fatalf("expected no retry policy by default, got %+v", opts.Retry)
	}
	if opts.FailFast {
		t.Fatalf("expected FailFast off by default")
	}
}

func TestBatch_WithConcurrency(t *testing.T) {
	opts := Batch().WithConcurrency(12).Options()
	if opts.Concurrency != 12 {
		t.Fatalf("expected concurrency 12, got %d", opts.Concurrency)
	}

	// Invalid values are stored as-is and rejected by DoBatch, not here.
	opts = Batch().WithConcurrency(0).Options()
	if opts.Concurrency != 0 {
		t.Fatalf("builder must not second-guess the limit, got %d", opts.Concurrency)
	}
}

func TestBatch_WithRetry(t *testing.T) {
	policy := Retry(3).WithConstantBackoff(10 * time.Millisecond).Policy()
	opts := Batch().WithRetry(policy).Options()

	if opts.Retry == nil {
		t.Fatalf("expected a retry policy")
	}
	if opts.Retry.MaxAttempts != 3 || opts.Retry.InitialBackoff != 10*time.Millisecond {
		t.Fatalf("unexpected policy: %+v", opts.Retry)
	}

	// The builder copies the policy; mutating the original must not leak in.
	policy.MaxAttempts = 99
	if opts.Retry.MaxAttempts != 3 {
		t.Fatalf("builder shared the caller's policy value")
	}
}

func TestBatch_FailFast(t *testing.T) {
	opts := Batch().FailFast().Options()
	if !opts.FailFast {
		t.Fatalf("expected FailFast on")
	}
}
