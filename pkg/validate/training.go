package validate

import (
	"fmt"
	"unicode/utf8"

	"exhibitforms/pkg/domain"
)

// MinNarrativeLen is the minimum length, in runes, of every required
// training narrative. The gallery blurb is exempt.
const MinNarrativeLen = 300

// Training runs the training-step pass. Violations come back keyed by field
// path (`exhibitionInfo`, `artistsInfo-<artist>`, `artworksInfo-<id>`), one
// message per field. An empty map means the data passed.
func Training(data domain.TrainingData) KeyedErrors {
	errs := KeyedErrors{}
	if utf8.RuneCountInString(data.ExhibitionInfo) < MinNarrativeLen {
		errs["exhibitionInfo"] = fmt.Sprintf("Exhibition information must be at least %d characters", MinNarrativeLen)
	}
	for artist, info := range data.ArtistsInfo {
		if utf8.RuneCountInString(info) < MinNarrativeLen {
			errs["artistsInfo-"+artist] = fmt.Sprintf("Artist information must be at least %d characters", MinNarrativeLen)
		}
	}
	for id, info := range data.ArtworksInfo {
		if utf8.RuneCountInString(info) < MinNarrativeLen {
			errs["artworksInfo-"+id] = fmt.Sprintf("Artwork information must be at least %d characters", MinNarrativeLen)
		}
	}
	return errs
}
