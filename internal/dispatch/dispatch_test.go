package dispatch

import "testing"

func TestDeriveContext_ShortTextReturnedWhole(t *testing.T) {
	text := "short text."
	if got := deriveContext(text); got != text {
		t.Fatalf("expected short text unchanged, got %q", got)
	}
}

func TestDeriveContext_CutsOnSentenceBoundary(t *testing.T) {
	text := "Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris. " +
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit. " +
		"Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. " +
		"This is the final sentence that should survive entirely."
	got := deriveContext(text)
	if len(got) == 0 {
		t.Fatal("expected non-empty context")
	}
	if len(got) > maxContextChars {
		t.Fatalf("context longer than window: %d chars", len(got))
	}
	if want := "This is the final sentence that should survive entirely."; got != want {
		t.Fatalf("expected context cut on the last whole sentence %q, got %q", want, got)
	}
}

func TestDeriveContext_NoBoundaryFallsBackToLiteralTail(t *testing.T) {
	text := ""
	for i := 0; i < 300; i++ {
		text += "a"
	}
	got := deriveContext(text)
	if len(got) != maxContextChars {
		t.Fatalf("expected literal %d-char tail, got %d chars", maxContextChars, len(got))
	}
}
