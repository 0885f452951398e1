package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"exhibitforms/pkg/domain"
)

// Order constants: the title comes first, artwork i occupies the 200+10i
// block with a fixed sub-order, user info closes the list.
const (
	orderTitle       = 100
	orderArtworkBase = 200
	orderArtworkStep = 10
	orderUserName    = 900
	orderUserEmail   = 910
)

const minYear = 1800

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Exhibition runs the full exhibition-step pass. It never short-circuits:
// every violation is collected, then the list is sorted ascending by Order.
// An artwork contributes between zero and six errors.
func Exhibition(draft domain.ExhibitionDraft, now time.Time) []FieldError {
	var list []FieldError

	if strings.TrimSpace(draft.ExhibitionTitle) == "" {
		list = append(list, FieldError{
			Field:   "exhibitionTitle",
			Message: "Exhibition title is required",
			Order:   orderTitle,
			Section: "Exhibition Information",
		})
	}

	currentYear := now.Year()
	for i, a := range draft.Artworks {
		base := orderArtworkBase + i*orderArtworkStep
		section := fmt.Sprintf("Artwork %d", i+1)
		push := func(prop, message string, sub int) {
			list = append(list, FieldError{
				Field:   fmt.Sprintf("artwork-%s-%s", a.ID, prop),
				Message: fmt.Sprintf("Artwork %d: %s", i+1, message),
				Order:   base + sub,
				Section: section,
			})
		}
		if a.ImageURL == "" {
			push("image", "You need to upload an image of the artwork", 1)
		}
		if strings.TrimSpace(a.ArtistName) == "" {
			push("artistName", "Artist name is required", 2)
		}
		if strings.TrimSpace(a.Technique) == "" {
			push("technique", "Technique is required", 3)
		}
		if a.Width <= 0 {
			push("width", "Width must be greater than 0", 4)
		}
		if a.Height <= 0 {
			push("height", "Height must be greater than 0", 5)
		}
		if a.Year < minYear || a.Year > currentYear {
			push("year", "Valid year is required", 6)
		}
	}

	if strings.TrimSpace(draft.UserName) == "" {
		list = append(list, FieldError{
			Field:   "userName",
			Message: "Your name is required",
			Order:   orderUserName,
			Section: "Your Information",
		})
	}
	if strings.TrimSpace(draft.UserEmail) == "" || !emailPattern.MatchString(draft.UserEmail) {
		list = append(list, FieldError{
			Field:   "userEmail",
			Message: "Your email address is required",
			Order:   orderUserEmail,
			Section: "Your Information",
		})
	}

	sort.SliceStable(list, func(i, j int) bool { return list[i].Order < list[j].Order })
	return list
}
