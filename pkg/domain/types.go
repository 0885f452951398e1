package domain

// Unit is the measurement unit an artwork's dimensions are entered in.
type Unit string

const (
	UnitCM   Unit = "cm"
	UnitInch Unit = "inch"
)

// FrameChoice is the user-facing framing option on the form.
type FrameChoice string

const (
	FrameFramed     FrameChoice = "framed"
	FrameFramedThin FrameChoice = "framed-thin"
	FrameStretched  FrameChoice = "stretched"
)

// Artwork is one artwork card on the exhibition form. Insertion order is
// significant: it determines the display index and the pairing with training
// narratives. ID is assigned at creation and never changes; it is the join key
// between exhibition data and training data. ImagePreview stays local and is
// never sent downstream.
type Artwork struct {
	ID           string      `json:"id"`
	ImageURL     string      `json:"imageUrl,omitempty"`
	ImagePreview []byte      `json:"-"`
	ArtistName   string      `json:"artistName"`
	Width        float64     `json:"width"`
	Height       float64     `json:"height"`
	Unit         Unit        `json:"unit"`
	Technique    string      `json:"technique"`
	Year         int         `json:"year"`
	FrameType    FrameChoice `json:"frameType"`
	FrameColor   string      `json:"frameColor"`
}

// ExhibitionDraft is the in-progress step-1 form state. Artworks always holds
// at least one element; removal below that floor is a no-op.
type ExhibitionDraft struct {
	ExhibitionTitle string    `json:"exhibitionTitle"`
	GalleryName     string    `json:"galleryName"`
	GalleryLogoURL  string    `json:"galleryLogoUrl,omitempty"`
	Artworks        []Artwork `json:"artworks"`
	UserName        string    `json:"userName"`
	UserEmail       string    `json:"userEmail"`
}

// RoomArtwork is the backend-shaped artwork record inside a RoomWaiting
// payload. Width, height and year travel as strings.
type RoomArtwork struct {
	AIInfo           string  `json:"aiInfo"`
	Artist           string  `json:"artist"`
	Depth            float64 `json:"depth"`
	FrameColor       string  `json:"frameColor"`
	FrameType        string  `json:"frameType"`
	FrameWidth       float64 `json:"frameWidth"`
	Height           string  `json:"height"`
	ImageStoragePath string  `json:"imageStoragePath"`
	SizeUnit         string  `json:"sizeUnit"`
	Technique        string  `json:"technique"`
	Title            string  `json:"title"`
	Width            string  `json:"width"`
	YearFrom         string  `json:"yearFrom"`
}

// ArtistInfo pairs an artist display name with their training narrative.
type ArtistInfo struct {
	Artist string `json:"artist"`
	AIInfo string `json:"aiInfo"`
}

// RoomWaiting is the payload the room-creation procedure expects. Step 1
// builds it with empty aiInfo slots; step 2 completes and submits it.
type RoomWaiting struct {
	IsModify               bool          `json:"isModify"`
	ExhibitionTitle        string        `json:"exhibitionTitle"`
	GalleryName            string        `json:"galleryName"`
	GalleryInfo            string        `json:"galleryInfo"`
	Name                   string        `json:"name"`
	Email                  string        `json:"email"`
	GalleryLogoStoragePath string        `json:"galleryLogoStoragePath"`
	CreateType             string        `json:"createType"`
	IsUserRegMode          bool          `json:"isUserRegMode"`
	IsGenerateAIInfo       bool          `json:"isGenerateAiInfo"`
	AIInfoArtists          []ArtistInfo  `json:"aiInfoArtists"`
	AIInfoExhibition       string        `json:"aiInfoExhibition"`
	Artworks               []RoomArtwork `json:"artworks"`
}

// TrainingData is the step-2 local state. ArtistsInfo keys are the distinct
// artist names across the draft's artworks, ArtworksInfo keys are artwork IDs.
// The key sets are fixed at scaffold time.
type TrainingData struct {
	ExhibitionInfo string            `json:"exhibitionInfo"`
	GalleryInfo    string            `json:"galleryInfo"`
	ArtistsInfo    map[string]string `json:"artistsInfo"`
	ArtworksInfo   map[string]string `json:"artworksInfo"`
}

// User is the authenticated identity reported by the auth provider. The
// wizard only ever checks presence, never identity fields.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
