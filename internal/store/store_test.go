package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"exhibitforms/pkg/domain"
)

func TestNewSubmissionPacksPayload(t *testing.T) {
	rw := domain.RoomWaiting{
		ExhibitionTitle: "Spring Show",
		Email:           "ada@example.com",
		CreateType:      "Form",
	}
	sub, err := NewSubmission("flow-1", "ts_rand", "Standard", "TSKF2JTI0YL4DJFY", rw)
	if err != nil {
		t.Fatalf("new submission: %v", err)
	}
	if sub.Email != "ada@example.com" || sub.FolderName != "ts_rand" {
		t.Fatalf("fields wrong: %+v", sub)
	}
	var decoded domain.RoomWaiting
	if err := json.Unmarshal(sub.Payload, &decoded); err != nil {
		t.Fatalf("payload not json: %v", err)
	}
	if decoded.ExhibitionTitle != "Spring Show" {
		t.Fatalf("payload round trip lost data: %+v", decoded)
	}
}

func TestMemoryStoreSaveAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, err := s.GetByFlowID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}

	sub := &Submission{FlowID: "flow-1", FolderName: "f1", Email: "a@b.c"}
	if err := s.Save(ctx, sub); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.GetByFlowID(ctx, "flow-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FolderName != "f1" || got.ID == 0 {
		t.Fatalf("loaded submission wrong: %+v", got)
	}
}

func TestMemoryStoreRetryOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first := &Submission{FlowID: "flow-1", FolderName: "old"}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	second := &Submission{FlowID: "flow-1", FolderName: "new"}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("save retry: %v", err)
	}
	got, err := s.GetByFlowID(ctx, "flow-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FolderName != "new" || got.ID != first.ID {
		t.Fatalf("retry must overwrite in place: %+v", got)
	}
}
