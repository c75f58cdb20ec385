package chain

import "testing"

func TestEvalDottedPath(t *testing.T) {
	ctx := Context{Chunk: map[string]interface{}{"text": "hello world", "source_uri": "file:///a.txt"}}
	got, err := Eval("${chunk.text}", ctx, DefaultJoinLimits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello world" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestEvalBareLiteralPassesThrough(t *testing.T) {
	got, err := Eval("a literal value", Context{}, DefaultJoinLimits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a literal value" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestEvalAllStepOutput(t *testing.T) {
	ctx := Context{All: map[string][]interface{}{"summary": {"a", "b"}}}
	got, err := Eval("${all.summary}", ctx, DefaultJoinLimits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a\nb" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestEvalJoinFunction(t *testing.T) {
	ctx := Context{All: map[string][]interface{}{"summary": {"a", "b", "c"}}}
	got, err := Eval(`${join(all.summary, ", ")}`, ctx, DefaultJoinLimits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a, b, c" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestEvalTruncatesCharsWithMarker(t *testing.T) {
	ctx := Context{Chunk: map[string]interface{}{"text": "0123456789"}}
	got, err := Eval("${chunk.text}", ctx, JoinLimits{MaxChars: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0123… [truncated]" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestEvalTruncatesItemsWithMoreMarker(t *testing.T) {
	ctx := Context{All: map[string][]interface{}{"x": {"a", "b", "c", "d"}}}
	got, err := Eval("${all.x}", ctx, JoinLimits{MaxChars: 0, MaxItems: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a\nb\n… [+2 more]"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEvalUnknownRootErrors(t *testing.T) {
	_, err := Eval("${nope.text}", Context{}, DefaultJoinLimits)
	if err == nil {
		t.Fatalf("expected an error for an unknown expression root")
	}
}

func TestEvalGroupSize(t *testing.T) {
	ctx := Context{Group: map[string]interface{}{"size": 4}}
	got, err := Eval("${group.size}", ctx, DefaultJoinLimits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "4" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestRenderSubstitutesPlaceholders(t *testing.T) {
	got := Render("Summarise: {{ text }}\nContext: {{ rag_text }}", map[string]string{
		"text":     "hello",
		"rag_text": "retrieved context",
	})
	want := "Summarise: hello\nContext: retrieved context"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
