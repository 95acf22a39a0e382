package traffic

import (
	"context"
	"testing"
	"time"
)

func TestAwaitAdmissionGrantsWithinBudget(t *testing.T) {
	d := New(Config{RequestsPerMinute: 600, BurstAllowance: 5, Pattern: PatternSteady})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.AwaitAdmission(ctx, PriorityNormal); err != nil {
		t.Fatalf("AwaitAdmission: %v", err)
	}
}

func TestAwaitAdmissionRespectsCancellation(t *testing.T) {
	d := New(Config{RequestsPerMinute: 0.001, BurstAllowance: 1, Pattern: PatternSteady})
	// Drain the single burst token.
	ctx := context.Background()
	if err := d.AwaitAdmission(ctx, PriorityNormal); err != nil {
		t.Fatalf("first AwaitAdmission: %v", err)
	}

	cancelCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.AwaitAdmission(cancelCtx, PriorityNormal); err == nil {
		t.Fatalf("expected cancellation error, got nil")
	}
}

func TestAdaptivePatternBacksOffOnBlocks(t *testing.T) {
	d := New(Config{RequestsPerMinute: 60, BurstAllowance: 5, Pattern: PatternAdaptive})
	before := d.CurrentRate()
	d.ObserveBlocked()
	after := d.CurrentRate()
	if after >= before {
		t.Fatalf("expected rate to decrease after block observation: before=%v after=%v", before, after)
	}
}
