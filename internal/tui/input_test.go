package tui

import (
	"strings"
	"testing"
)

func TestEditRuneAppendsPrintable(t *testing.T) {
	if got := editRune("12", "3"); got != "123" {
		t.Errorf("editRune append = %q, want %q", got, "123")
	}
}

func TestEditRuneBackspace(t *testing.T) {
	if got := editRune("12é", "backspace"); got != "12" {
		t.Errorf("editRune backspace = %q, want %q", got, "12")
	}
	if got := editRune("", "backspace"); got != "" {
		t.Errorf("editRune backspace on empty = %q, want empty", got)
	}
}

func TestEditRuneIgnoresControlKeys(t *testing.T) {
	for _, key := range []string{"enter", "esc", "left", "ctrl+a"} {
		if got := editRune("abc", key); got != "abc" {
			t.Errorf("editRune(%q) = %q, want unchanged", key, got)
		}
	}
}

func TestEditRuneClampsLength(t *testing.T) {
	long := strings.Repeat("9", maxInputLen)
	if got := editRune(long, "1"); got != long {
		t.Error("expected input clamped at maxInputLen")
	}
}

func TestTruncateToHeight(t *testing.T) {
	s := "a\nb\nc\nd\n"
	if got := truncateToHeight(s, 2); got != "a\nb\n" {
		t.Errorf("truncateToHeight = %q, want %q", got, "a\nb\n")
	}
	if got := truncateToHeight(s, 10); got != s {
		t.Errorf("expected string unchanged when it fits, got %q", got)
	}
	if got := truncateToHeight(s, 0); got != s {
		t.Errorf("expected string unchanged for non-positive height, got %q", got)
	}
}

func TestRenderFieldMasksValue(t *testing.T) {
	out := renderField("password", "hunter2", true, true)
	if strings.Contains(out, "hunter2") {
		t.Errorf("expected masked value, got %q", out)
	}
	if !strings.Contains(out, "*******") {
		t.Errorf("expected seven mask runes, got %q", out)
	}
}
