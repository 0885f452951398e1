package training

import (
	"context"
	"errors"
	"strings"
	"testing"

	"exhibitforms/internal/handoff"
	"exhibitforms/internal/roomclient"
	"exhibitforms/internal/store"
	"exhibitforms/pkg/domain"
	"exhibitforms/pkg/validate"
)

type fakeRooms struct {
	requests []roomclient.Request
	err      error
}

func (f *fakeRooms) SetRoomWaiting(_ context.Context, r roomclient.Request) error {
	if f.err != nil {
		return f.err
	}
	f.requests = append(f.requests, r)
	return nil
}

func narrative(seed string) string {
	return strings.Repeat(seed, (validate.MinNarrativeLen/len(seed))+1)
}

func testHandoff() handoff.FlowHandoff {
	return handoff.FlowHandoff{
		Draft: domain.ExhibitionDraft{
			ExhibitionTitle: "Spring Show",
			Artworks: []domain.Artwork{
				{ID: "a1", ArtistName: "Ada"},
				{ID: "a2", ArtistName: "Grace"},
				{ID: "a3", ArtistName: "Ada"},
			},
		},
		RoomWaiting: domain.RoomWaiting{
			ExhibitionTitle: "Spring Show",
			CreateType:      "Form",
			Artworks: []domain.RoomArtwork{
				{Artist: "Ada", ImageStoragePath: "RoomGenerator/x/1.jpg"},
				{Artist: "Grace", ImageStoragePath: "RoomGenerator/x/2.jpg"},
				{Artist: "Ada", ImageStoragePath: "RoomGenerator/x/3.png"},
			},
		},
		FolderName: "2026-03-14T09-32-57-767_abcdefgh12345678",
	}
}

func loadController(t *testing.T, rooms RoomSubmitter, handoffs handoff.Store) *Controller {
	t.Helper()
	if handoffs == nil {
		handoffs = handoff.NewMemoryStore()
		if err := handoffs.Put(context.Background(), "flow-1", testHandoff()); err != nil {
			t.Fatalf("seed handoff: %v", err)
		}
	}
	c, err := Load(context.Background(), Config{
		Handoffs:        handoffs,
		Rooms:           rooms,
		Submissions:     store.NewMemoryStore(),
		GeneratorType:   "Standard",
		RoomGeneratorID: "TSKF2JTI0YL4DJFY",
	}, "flow-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func fillValid(t *testing.T, c *Controller) {
	t.Helper()
	must := func(field string) {
		if err := c.SetField(field, narrative("x ")); err != nil {
			t.Fatalf("set %s: %v", field, err)
		}
	}
	must("exhibitionInfo")
	must("artistsInfo-Ada")
	must("artistsInfo-Grace")
	must("artworksInfo-a1")
	must("artworksInfo-a2")
	must("artworksInfo-a3")
}

func TestLoadMissingHandoffIsSessionExpired(t *testing.T) {
	_, err := Load(context.Background(), Config{
		Handoffs: handoff.NewMemoryStore(),
		Rooms:    &fakeRooms{},
	}, "flow-unknown")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
}

func TestScaffoldDedupesArtistsInDraftOrder(t *testing.T) {
	c := loadController(t, &fakeRooms{}, nil)

	artists := c.Artists()
	if len(artists) != 2 || artists[0] != "Ada" || artists[1] != "Grace" {
		t.Fatalf("artists = %v", artists)
	}
	data := c.Data()
	if len(data.ArtworksInfo) != 3 {
		t.Fatalf("artwork keys = %v", data.ArtworksInfo)
	}
	for _, id := range []string{"a1", "a2", "a3"} {
		if _, ok := data.ArtworksInfo[id]; !ok {
			t.Fatalf("missing artwork key %q", id)
		}
	}
}

func TestSetFieldRejectsUnknownKeys(t *testing.T) {
	c := loadController(t, &fakeRooms{}, nil)
	if err := c.SetField("artistsInfo-Nobody", "text"); err == nil {
		t.Fatal("unknown artist accepted")
	}
	if err := c.SetField("artworksInfo-zz", "text"); err == nil {
		t.Fatal("unknown artwork accepted")
	}
	if err := c.SetField("somethingElse", "text"); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestAppendTranscriptJoinsWithSingleSpace(t *testing.T) {
	c := loadController(t, &fakeRooms{}, nil)
	c.AppendTranscript("exhibitionInfo", "first segment")
	c.AppendTranscript("exhibitionInfo", "second segment")
	if got := c.Data().ExhibitionInfo; got != "first segment second segment" {
		t.Fatalf("exhibitionInfo = %q", got)
	}
}

func TestSubmitRejectsShortNarratives(t *testing.T) {
	rooms := &fakeRooms{}
	c := loadController(t, rooms, nil)
	_ = c.SetField("exhibitionInfo", "too short")

	_, errs, err := c.Submit(context.Background())
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("err = %v, want ErrValidationFailed", err)
	}
	for _, key := range []string{"exhibitionInfo", "artistsInfo-Ada", "artworksInfo-a2"} {
		if !errs.Has(key) {
			t.Fatalf("missing error for %q: %v", key, errs)
		}
	}
	if len(rooms.requests) != 0 {
		t.Fatal("remote procedure must not be called on validation failure")
	}
	if !c.FieldErrors().Has("exhibitionInfo") {
		t.Fatal("inline errors must be populated")
	}
}

func TestGalleryInfoOptional(t *testing.T) {
	c := loadController(t, &fakeRooms{}, nil)
	fillValid(t, c)
	if errs := c.Validate(); len(errs) != 0 {
		t.Fatalf("empty gallery blurb must pass: %v", errs)
	}
}

func TestSubmitComposesAndCompletes(t *testing.T) {
	rooms := &fakeRooms{}
	handoffs := handoff.NewMemoryStore()
	if err := handoffs.Put(context.Background(), "flow-1", testHandoff()); err != nil {
		t.Fatalf("seed handoff: %v", err)
	}
	c := loadController(t, rooms, handoffs)
	fillValid(t, c)
	_ = c.SetField("galleryInfo", "a small blurb")

	rw, errs, err := c.Submit(context.Background())
	if err != nil || len(errs) != 0 {
		t.Fatalf("submit: errs=%v err=%v", errs, err)
	}

	if len(rooms.requests) != 1 {
		t.Fatalf("requests = %d, want 1", len(rooms.requests))
	}
	req := rooms.requests[0]
	if req.FormID != "2026-03-14T09-32-57-767_abcdefgh12345678" {
		t.Fatalf("formId = %q", req.FormID)
	}
	if req.GeneratorType != "Standard" || req.RoomGeneratorID != "TSKF2JTI0YL4DJFY" {
		t.Fatalf("generator fields wrong: %+v", req)
	}
	if rw.AIInfoExhibition == "" || rw.GalleryInfo != "a small blurb" {
		t.Fatalf("narratives missing: %+v", rw)
	}
	if len(rw.AIInfoArtists) != 2 || rw.AIInfoArtists[0].Artist != "Ada" || rw.AIInfoArtists[1].Artist != "Grace" {
		t.Fatalf("aiInfoArtists wrong: %v", rw.AIInfoArtists)
	}
	for i, a := range rw.Artworks {
		if a.AIInfo == "" {
			t.Fatalf("artwork %d missing aiInfo", i)
		}
	}

	// Completing the flow consumes the handoff.
	if _, ok, _ := handoffs.Get(context.Background(), "flow-1"); ok {
		t.Fatal("handoff must be deleted after success")
	}
	if !c.Submitted() {
		t.Fatal("controller must report completion")
	}
}

func TestSubmitRemoteFailureRetainsState(t *testing.T) {
	rooms := &fakeRooms{err: &roomclient.APIError{Status: 503, Message: "unavailable"}}
	handoffs := handoff.NewMemoryStore()
	if err := handoffs.Put(context.Background(), "flow-1", testHandoff()); err != nil {
		t.Fatalf("seed handoff: %v", err)
	}
	c := loadController(t, rooms, handoffs)
	fillValid(t, c)

	_, _, err := c.Submit(context.Background())
	if err == nil {
		t.Fatal("expected remote failure")
	}
	var apiErr *roomclient.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if c.Submitted() {
		t.Fatal("flow must not complete on remote failure")
	}
	if _, ok, _ := handoffs.Get(context.Background(), "flow-1"); !ok {
		t.Fatal("handoff must survive a failed submit")
	}
	if c.Data().ExhibitionInfo == "" {
		t.Fatal("form state must survive a failed submit")
	}

	// A retry after recovery succeeds against the same state.
	rooms.err = nil
	if _, _, err := c.Submit(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestComposeFallbackMatchesByFileName(t *testing.T) {
	h := testHandoff()
	// Draft order lost; only storage paths identify the artworks.
	h.Draft.Artworks = nil
	handoffs := handoff.NewMemoryStore()
	if err := handoffs.Put(context.Background(), "flow-1", h); err != nil {
		t.Fatalf("seed handoff: %v", err)
	}
	c, err := Load(context.Background(), Config{
		Handoffs:        handoffs,
		Rooms:           &fakeRooms{},
		GeneratorType:   "Standard",
		RoomGeneratorID: "TSKF2JTI0YL4DJFY",
	}, "flow-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c.data.ArtworksInfo["1"] = "narrative one"
	c.data.ArtworksInfo["3"] = "narrative three"

	rw := c.compose()
	if rw.Artworks[0].AIInfo != "narrative one" {
		t.Fatalf("artwork 0 aiInfo = %q", rw.Artworks[0].AIInfo)
	}
	if rw.Artworks[1].AIInfo != "" {
		t.Fatalf("artwork 1 aiInfo = %q, want empty", rw.Artworks[1].AIInfo)
	}
	if rw.Artworks[2].AIInfo != "narrative three" {
		t.Fatalf("artwork 2 aiInfo = %q", rw.Artworks[2].AIInfo)
	}
}
