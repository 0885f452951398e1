package validate

import (
	"strings"
	"testing"

	"exhibitforms/pkg/domain"
)

var longText = strings.Repeat("a", MinNarrativeLen)

func TestTrainingPasses(t *testing.T) {
	data := domain.TrainingData{
		ExhibitionInfo: longText,
		ArtistsInfo:    map[string]string{"Hilma af Klint": longText},
		ArtworksInfo:   map[string]string{"a1": longText},
	}
	if errs := Training(data); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestTrainingGalleryBlurbIsOptional(t *testing.T) {
	data := domain.TrainingData{
		ExhibitionInfo: longText,
		GalleryInfo:    "",
		ArtistsInfo:    map[string]string{},
		ArtworksInfo:   map[string]string{},
	}
	if errs := Training(data); len(errs) != 0 {
		t.Fatalf("gallery blurb must be unconstrained, got %v", errs)
	}
}

func TestTrainingShortFieldsAreKeyed(t *testing.T) {
	data := domain.TrainingData{
		ExhibitionInfo: strings.Repeat("a", MinNarrativeLen-1),
		ArtistsInfo:    map[string]string{"Ada": "short"},
		ArtworksInfo:   map[string]string{"a1": longText, "a2": ""},
	}
	errs := Training(data)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	for _, key := range []string{"exhibitionInfo", "artistsInfo-Ada", "artworksInfo-a2"} {
		if !errs.Has(key) {
			t.Fatalf("missing error key %q in %v", key, errs)
		}
	}
	if errs.Has("artworksInfo-a1") {
		t.Fatalf("a1 is long enough, should not be flagged")
	}
}

func TestTrainingCountsRunesNotBytes(t *testing.T) {
	data := domain.TrainingData{
		ExhibitionInfo: strings.Repeat("ä", MinNarrativeLen),
	}
	if errs := Training(data); errs.Has("exhibitionInfo") {
		t.Fatalf("300 multi-byte runes must pass: %v", errs)
	}
}
