package frames

import "exhibitforms/pkg/domain"

// Geometry is the backend-facing frame description derived from the
// user-facing frame choice. Depth and frame width are fixed constants per
// unit, not converted from each other.
type Geometry struct {
	FrameType  string
	Depth      float64
	FrameWidth float64
}

// Derive maps a form frame choice to backend geometry. Anything other than
// the two framed variants is treated as stretched canvas (a box).
func Derive(unit domain.Unit, choice domain.FrameChoice) Geometry {
	cm := unit == domain.UnitCM
	switch choice {
	case domain.FrameFramed:
		if cm {
			return Geometry{FrameType: "framed", Depth: 5, FrameWidth: 5}
		}
		return Geometry{FrameType: "framed", Depth: 2, FrameWidth: 2}
	case domain.FrameFramedThin:
		if cm {
			return Geometry{FrameType: "framed", Depth: 2.5, FrameWidth: 2.5}
		}
		return Geometry{FrameType: "framed", Depth: 1, FrameWidth: 1}
	default:
		if cm {
			return Geometry{FrameType: "box", Depth: 5, FrameWidth: 0}
		}
		return Geometry{FrameType: "box", Depth: 2, FrameWidth: 0}
	}
}

var colorIDs = map[string]string{
	"wood":        "wood08",
	"black-metal": "black",
	"white-wood":  "white",
	"gold":        "wood05",
	"transparent": "grey",
}

// ColorID maps a palette key from the form to the backend color identifier.
// Unrecognized keys fall back to the transparent mapping.
func ColorID(key string) string {
	if id, ok := colorIDs[key]; ok {
		return id
	}
	return "grey"
}
