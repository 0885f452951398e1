package handoff

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"exhibitforms/pkg/domain"
)

func sampleHandoff() FlowHandoff {
	return FlowHandoff{
		Draft: domain.ExhibitionDraft{
			ExhibitionTitle: "Spring Show",
			Artworks:        []domain.Artwork{{ID: "a1", ArtistName: "Ada"}},
		},
		RoomWaiting: domain.RoomWaiting{
			ExhibitionTitle: "Spring Show",
			CreateType:      "Form",
			AIInfoArtists:   []domain.ArtistInfo{},
		},
		FolderName: "2026-03-14T09-32-57-767_abcdefgh12345678",
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), "", time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "flow-1"); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	want := sampleHandoff()
	if err := store.Put(ctx, "flow-1", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(ctx, "flow-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.FolderName != want.FolderName || got.Draft.ExhibitionTitle != want.Draft.ExhibitionTitle {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.Draft.Artworks) != 1 || got.Draft.Artworks[0].ID != "a1" {
		t.Fatalf("artworks lost: %+v", got.Draft.Artworks)
	}

	if err := store.Delete(ctx, "flow-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "flow-1"); ok {
		t.Fatal("handoff survived delete")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStore(mr.Addr(), "", time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "flow-1", sampleHandoff()); err != nil {
		t.Fatalf("put: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok, err := store.Get(ctx, "flow-1"); err != nil || ok {
		t.Fatalf("expired handoff must read as absent: ok=%v err=%v", ok, err)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	want := sampleHandoff()
	if err := store.Put(ctx, "flow-1", want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := store.Get(ctx, "flow-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	// Mutating the read copy must not leak back into the store.
	got.Draft.Artworks[0].ArtistName = "mutated"
	again, _, _ := store.Get(ctx, "flow-1")
	if again.Draft.Artworks[0].ArtistName != "Ada" {
		t.Fatal("store handed out shared state")
	}
}
