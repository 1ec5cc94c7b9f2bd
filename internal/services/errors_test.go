package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesMarker(t *testing.T) {
	base := fmt.Errorf("permission denied")
	err := Wrap(ErrDeviceAccess, "capture", "open microphone", "request rejected", base)

	if !errors.Is(err, ErrDeviceAccess) {
		t.Fatalf("expected ErrDeviceAccess marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause to survive, got %v", err)
	}
}

func TestWrapNilMarkerFallsBackToTransient(t *testing.T) {
	err := Wrap(nil, "syncer", "submit", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
}

func TestWrapDetailOmitsEmptyParts(t *testing.T) {
	err := Wrap(ErrSync, "", "", "", nil)
	expected := "sync error: service failure"
	if err.Error() != expected {
		t.Fatalf("expected %q, got %q", expected, err.Error())
	}
}

func TestClassifiers(t *testing.T) {
	if !UserRecoverable(Wrap(ErrDeviceAccess, "capture", "start", "", nil)) {
		t.Fatal("device access errors must be user recoverable")
	}
	if UserRecoverable(Wrap(ErrUnsupportedFormat, "capture", "start", "", nil)) {
		t.Fatal("unsupported format is not user recoverable")
	}
	if !Fatal(Wrap(ErrStorage, "store", "save", "quota exceeded", nil)) {
		t.Fatal("storage errors must be fatal")
	}
	if Fatal(Wrap(ErrSync, "syncer", "submit", "", nil)) {
		t.Fatal("sync errors are per-record, not fatal")
	}
}
