package metrics

import "testing"

func TestRecordUnitAccumulatesPerStepAndAggregate(t *testing.T) {
	r := NewRegistry()
	r.RecordUnit("summarise", false, false, 10, 0)
	r.RecordUnit("summarise", true, true, 5, 2)

	perStep, aggregate := r.Snapshot()
	got := perStep["summarise"]
	if got.Units != 2 {
		t.Fatalf("expected 2 units, got %d", got.Units)
	}
	if got.Errors != 1 {
		t.Fatalf("expected 1 error, got %d", got.Errors)
	}
	if got.JSONParseFailures != 1 {
		t.Fatalf("expected 1 json parse failure, got %d", got.JSONParseFailures)
	}
	if got.TokensOut != 15 {
		t.Fatalf("expected 15 tokens, got %d", got.TokensOut)
	}
	if got.Retries != 2 {
		t.Fatalf("expected 2 retries, got %d", got.Retries)
	}
	if aggregate.Units != 2 {
		t.Fatalf("expected aggregate units 2, got %d", aggregate.Units)
	}
}

func TestSnapshotCoversMultipleSteps(t *testing.T) {
	r := NewRegistry()
	r.RecordUnit("a", false, false, 1, 0)
	r.RecordUnit("b", false, false, 1, 0)

	perStep, aggregate := r.Snapshot()
	if len(perStep) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(perStep))
	}
	if aggregate.Units != 2 {
		t.Fatalf("expected aggregate units 2, got %d", aggregate.Units)
	}
}
