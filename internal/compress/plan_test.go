package compress

import "testing"

func TestTargetBitrateFitsBudget(t *testing.T) {
	// 5 MiB over 60 seconds is just under 700 kbps.
	got := targetBitrate(5*1024*1024, 60, 2_000_000, minVideoBitrate)
	seconds := float64(60)
	want := int64(float64(5*1024*1024*8) / seconds)
	if got != want {
		t.Fatalf("targetBitrate = %d, want %d", got, want)
	}
}

func TestTargetBitrateCapsAtCeiling(t *testing.T) {
	got := targetBitrate(100*1024*1024, 10, 2_000_000, minVideoBitrate)
	if got != 2_000_000 {
		t.Fatalf("expected ceiling 2000000, got %d", got)
	}
}

func TestTargetBitrateRespectsFloor(t *testing.T) {
	got := targetBitrate(1024, 3600, 2_000_000, minVideoBitrate)
	if got != minVideoBitrate {
		t.Fatalf("expected floor %d, got %d", minVideoBitrate, got)
	}
}

func TestTargetBitrateZeroDuration(t *testing.T) {
	if got := targetBitrate(1024, 0, 2_000_000, minVideoBitrate); got != 0 {
		t.Fatalf("expected 0 for zero duration, got %d", got)
	}
}

func TestRetryBitrateReducesByThirtyPercent(t *testing.T) {
	if got := retryBitrate(1_000_000, minVideoBitrate); got != 700_000 {
		t.Fatalf("expected 700000, got %d", got)
	}
	if got := retryBitrate(minVideoBitrate, minVideoBitrate); got != minVideoBitrate {
		t.Fatalf("expected floor hold, got %d", got)
	}
}
