package main

import (
	"path/filepath"
	"testing"

	"fieldkit/internal/testsupport"
)

func TestReportSubmitAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"report", "submit",
		"--type", "harassment",
		"--date", "2026-08-12",
		"--location", "district office",
		"--description", "incident recorded in the field",
		"--service", "legal",
		"--service", "medical",
	}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("report submit: %v", err)
	}
	requireContains(t, out, "Complaint recorded")

	out, _, err = runCLI(t, []string{"report", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("report list: %v", err)
	}
	requireContains(t, out, "harassment")
	requireContains(t, out, "Pending")
}

func TestReportSubmitRequiresDescription(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"report", "submit", "--type", "theft"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected submit without --description to fail")
	}
}

func TestMediaAttachAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	complaint := testsupport.NewComplaint(t, env.store, "attachment target")
	source := filepath.Join(t.TempDir(), "note.txt")
	testsupport.WriteFile(t, source, 256)

	out, _, err := runCLI(t, []string{"media", "attach", complaint.LocalID, source}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media attach: %v", err)
	}
	requireContains(t, out, "Attached note.txt")

	out, _, err = runCLI(t, []string{"media", "list", complaint.LocalID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("media list: %v", err)
	}
	requireContains(t, out, "note.txt")
}

func TestQueueListShowsPendingEntries(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewComplaint(t, env.store, "queued complaint")

	out, _, err := runCLI(t, []string{"queue", "list", "--status", "pending"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Complaint")
	requireContains(t, out, "Pending")
}

func TestReportShowUnknownComplaint(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"report", "show", "no-such-id"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected show of unknown complaint to fail")
	}
}
