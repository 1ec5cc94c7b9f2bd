package testsupport

import (
	"context"
	"testing"

	"fieldkit/internal/config"
	"fieldkit/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewComplaint saves a minimal complaint for tests using the provided store.
func NewComplaint(t testing.TB, st *store.Store, description string) *store.Complaint {
	t.Helper()

	complaint := &store.Complaint{
		Investigator: "test investigator",
		Description:  description,
	}
	if err := st.SaveComplaint(context.Background(), complaint); err != nil {
		t.Fatalf("store.SaveComplaint: %v", err)
	}
	return complaint
}

// NewMedia saves a media record under the given complaint for tests.
func NewMedia(t testing.TB, st *store.Store, complaintLocalID, path string) *store.Media {
	t.Helper()

	media := &store.Media{
		ComplaintLocalID: complaintLocalID,
		FileName:         "evidence.jpg",
		MIMEType:         "image/jpeg",
		Kind:             "image",
		Path:             path,
	}
	if err := st.SaveMedia(context.Background(), media); err != nil {
		t.Fatalf("store.SaveMedia: %v", err)
	}
	return media
}
