package main

import "testing"

func TestTitleCase(t *testing.T) {
	cases := map[string]string{
		"pending":    "Pending",
		"synced":     "Synced",
		"":           "",
		"two words":  "Two Words",
		"processing": "Processing",
	}
	for input, want := range cases {
		if got := titleCase(input); got != want {
			t.Errorf("titleCase(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate should leave short values alone, got %q", got)
	}
	got := truncate("a very long description that keeps going", 16)
	if len(got) != 16 {
		t.Fatalf("expected 16 characters, got %d (%q)", len(got), got)
	}
	if got[len(got)-3:] != "..." {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		512:     "512 B",
		2048:    "2.0 KiB",
		1048576: "1.0 MiB",
	}
	for input, want := range cases {
		if got := formatSize(input); got != want {
			t.Errorf("formatSize(%d) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	if got := formatElapsed(42); got != "42s" {
		t.Fatalf("formatElapsed(42) = %q", got)
	}
	if got := formatElapsed(125); got != "2m05s" {
		t.Fatalf("formatElapsed(125) = %q", got)
	}
}
