package exhibition

import (
	"net/url"
	"strconv"
	"strings"

	"exhibitforms/pkg/domain"
	"exhibitforms/pkg/frames"
)

// composeRoomWaiting builds the backend-bound payload from a validated
// draft. The aiInfo slots stay empty here; step 2 fills them in.
func composeRoomWaiting(d domain.ExhibitionDraft, bucket string) domain.RoomWaiting {
	rw := domain.RoomWaiting{
		IsModify:         false,
		ExhibitionTitle:  d.ExhibitionTitle,
		GalleryName:      d.GalleryName,
		Name:             d.UserName,
		Email:            d.UserEmail,
		CreateType:       "Form",
		IsUserRegMode:    true,
		IsGenerateAIInfo: true,
		AIInfoArtists:    []domain.ArtistInfo{},
		Artworks:         make([]domain.RoomArtwork, 0, len(d.Artworks)),
	}
	if d.GalleryLogoURL != "" {
		rw.GalleryLogoStoragePath = storagePathFromURL(d.GalleryLogoURL, bucket)
	}
	for _, a := range d.Artworks {
		geo := frames.Derive(a.Unit, a.FrameType)
		rw.Artworks = append(rw.Artworks, domain.RoomArtwork{
			Artist:           a.ArtistName,
			Depth:            geo.Depth,
			FrameColor:       frames.ColorID(a.FrameColor),
			FrameType:        geo.FrameType,
			FrameWidth:       geo.FrameWidth,
			Height:           formatDimension(a.Height),
			ImageStoragePath: storagePathFromURL(a.ImageURL, bucket),
			SizeUnit:         string(a.Unit),
			Technique:        a.Technique,
			Width:            formatDimension(a.Width),
			YearFrom:         strconv.Itoa(a.Year),
		})
	}
	return rw
}

func formatDimension(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// storagePathFromURL turns a retrievable URL back into the raw storage path
// the backend expects: percent-decode the URL path, locate the bucket marker
// segment, return everything after it. A missing marker degrades to an empty
// path by design; the backend treats that as a data-quality defect, not a
// failure.
func storagePathFromURL(raw, bucket string) string {
	if raw == "" || bucket == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	marker := "/" + bucket + "/"
	idx := strings.Index(u.Path, marker)
	if idx == -1 {
		return ""
	}
	return u.Path[idx+len(marker):]
}
