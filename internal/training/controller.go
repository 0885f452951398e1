// Package training owns the step-2 form: the narrative fields scaffolded
// from the step-1 draft, their minimum-length validation, and the final
// submission to the room-creation procedure.
package training

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"

	"exhibitforms/internal/handoff"
	"exhibitforms/internal/roomclient"
	"exhibitforms/internal/store"
	"exhibitforms/internal/util"
	"exhibitforms/pkg/domain"
	"exhibitforms/pkg/validate"
)

// ErrSessionExpired means the step-1 handoff is gone. The attempt is dead;
// the user starts the wizard over.
var ErrSessionExpired = errors.New("wizard session expired")

// ErrValidationFailed marks a submit rejected by the training pass.
var ErrValidationFailed = errors.New("training validation failed")

// RoomSubmitter is the slice of the room client the controller needs.
type RoomSubmitter interface {
	SetRoomWaiting(ctx context.Context, r roomclient.Request) error
}

// Config wires the controller's collaborators.
type Config struct {
	Handoffs        handoff.Store
	Rooms           RoomSubmitter
	Submissions     store.Store
	GeneratorType   string
	RoomGeneratorID string
}

// Controller is the step-2 state machine for one flow. Narrative keys are
// fixed at load time: one artist entry per distinct artist name in draft
// order, one artwork entry per artwork id.
type Controller struct {
	mu          sync.Mutex
	flowID      string
	handoff     handoff.FlowHandoff
	data        domain.TrainingData
	fieldErrors validate.KeyedErrors
	artistOrder []string
	submitted   bool

	handoffs        handoff.Store
	rooms           RoomSubmitter
	submissions     store.Store
	generatorType   string
	roomGeneratorID string
}

// Load reads the flow's handoff and scaffolds the training fields from it.
// A missing handoff is ErrSessionExpired, not a transport failure.
func Load(ctx context.Context, cfg Config, flowID string) (*Controller, error) {
	h, ok, err := cfg.Handoffs.Get(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("load handoff: %w", err)
	}
	if !ok {
		return nil, ErrSessionExpired
	}

	c := &Controller{
		flowID:          flowID,
		handoff:         h,
		fieldErrors:     validate.KeyedErrors{},
		handoffs:        cfg.Handoffs,
		rooms:           cfg.Rooms,
		submissions:     cfg.Submissions,
		generatorType:   cfg.GeneratorType,
		roomGeneratorID: cfg.RoomGeneratorID,
	}
	c.data = domain.TrainingData{
		ArtistsInfo:  map[string]string{},
		ArtworksInfo: map[string]string{},
	}
	seen := map[string]bool{}
	for _, a := range h.Draft.Artworks {
		if !seen[a.ArtistName] {
			seen[a.ArtistName] = true
			c.artistOrder = append(c.artistOrder, a.ArtistName)
			c.data.ArtistsInfo[a.ArtistName] = ""
		}
		c.data.ArtworksInfo[a.ID] = ""
	}
	return c, nil
}

// FlowID returns the flow this controller serves.
func (c *Controller) FlowID() string { return c.flowID }

// Artists returns the artist names in first-appearance order.
func (c *Controller) Artists() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.artistOrder))
	copy(out, c.artistOrder)
	return out
}

// Draft returns the step-1 draft for rendering artwork cards alongside
// their narrative fields.
func (c *Controller) Draft() domain.ExhibitionDraft {
	return c.handoff.Draft
}

// Data returns a copy of the training state.
func (c *Controller) Data() domain.TrainingData {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyData(c.data)
}

// FieldErrors returns the inline errors currently set.
func (c *Controller) FieldErrors() validate.KeyedErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := validate.KeyedErrors{}
	for k, v := range c.fieldErrors {
		out[k] = v
	}
	return out
}

// SetField replaces a narrative field's text and clears its inline error.
// Field paths follow the validation keys: exhibitionInfo, galleryInfo,
// artistsInfo-<artist>, artworksInfo-<id>. Writes to keys outside the
// scaffolded sets are rejected.
func (c *Controller) SetField(field, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.setLocked(field, value); err != nil {
		return err
	}
	delete(c.fieldErrors, field)
	return nil
}

// AppendTranscript joins a dictated segment onto the field's current text
// with a single space. It is the sink the dictation recorder feeds.
func (c *Controller) AppendTranscript(field, segment string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, err := c.getLocked(field)
	if err != nil {
		return
	}
	if current == "" {
		_ = c.setLocked(field, segment)
	} else {
		_ = c.setLocked(field, current+" "+segment)
	}
	delete(c.fieldErrors, field)
}

func (c *Controller) setLocked(field, value string) error {
	switch {
	case field == "exhibitionInfo":
		c.data.ExhibitionInfo = value
	case field == "galleryInfo":
		c.data.GalleryInfo = value
	case strings.HasPrefix(field, "artistsInfo-"):
		artist := strings.TrimPrefix(field, "artistsInfo-")
		if _, ok := c.data.ArtistsInfo[artist]; !ok {
			return fmt.Errorf("unknown artist %q", artist)
		}
		c.data.ArtistsInfo[artist] = value
	case strings.HasPrefix(field, "artworksInfo-"):
		id := strings.TrimPrefix(field, "artworksInfo-")
		if _, ok := c.data.ArtworksInfo[id]; !ok {
			return fmt.Errorf("unknown artwork %q", id)
		}
		c.data.ArtworksInfo[id] = value
	default:
		return fmt.Errorf("unknown training field %q", field)
	}
	return nil
}

func (c *Controller) getLocked(field string) (string, error) {
	switch {
	case field == "exhibitionInfo":
		return c.data.ExhibitionInfo, nil
	case field == "galleryInfo":
		return c.data.GalleryInfo, nil
	case strings.HasPrefix(field, "artistsInfo-"):
		artist := strings.TrimPrefix(field, "artistsInfo-")
		if v, ok := c.data.ArtistsInfo[artist]; ok {
			return v, nil
		}
	case strings.HasPrefix(field, "artworksInfo-"):
		id := strings.TrimPrefix(field, "artworksInfo-")
		if v, ok := c.data.ArtworksInfo[id]; ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown training field %q", field)
}

// Validate runs the training pass against the live data.
func (c *Controller) Validate() validate.KeyedErrors {
	c.mu.Lock()
	data := copyData(c.data)
	c.mu.Unlock()
	return validate.Training(data)
}

// Submitted reports whether the flow already completed.
func (c *Controller) Submitted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitted
}

// Submit validates, merges the narratives into the step-1 payload and calls
// the room-creation procedure. On validation failure the keyed errors come
// back with ErrValidationFailed. On a remote failure the composed payload
// and all form state survive untouched so the user can retry. On success
// the submission is recorded, the handoff is deleted and the flow is done.
func (c *Controller) Submit(ctx context.Context) (domain.RoomWaiting, validate.KeyedErrors, error) {
	errs := c.Validate()
	if len(errs) > 0 {
		c.mu.Lock()
		for k, v := range errs {
			c.fieldErrors[k] = v
		}
		c.mu.Unlock()
		return domain.RoomWaiting{}, errs, ErrValidationFailed
	}

	c.mu.Lock()
	rw := c.compose()
	c.mu.Unlock()

	req := roomclient.Request{
		FormID:          c.handoff.FolderName,
		GeneratorType:   c.generatorType,
		RoomGeneratorID: c.roomGeneratorID,
		RoomWaiting:     rw,
	}
	if err := c.rooms.SetRoomWaiting(ctx, req); err != nil {
		return rw, nil, fmt.Errorf("submit room: %w", err)
	}

	log := util.LoggerFromContext(ctx)
	if c.submissions != nil {
		sub, err := store.NewSubmission(c.flowID, c.handoff.FolderName, c.generatorType, c.roomGeneratorID, rw)
		if err == nil {
			err = c.submissions.Save(ctx, sub)
		}
		if err != nil {
			// The room was already accepted; a lost audit row must not
			// fail the user's submit.
			log.Warn("record submission failed", "flow_id", c.flowID, "error", err)
		}
	}
	if err := c.handoffs.Delete(ctx, c.flowID); err != nil {
		log.Warn("delete handoff failed", "flow_id", c.flowID, "error", err)
	}

	c.mu.Lock()
	c.submitted = true
	c.fieldErrors = validate.KeyedErrors{}
	c.mu.Unlock()
	return rw, nil, nil
}

// compose deep-copies the step-1 payload and fills in the aiInfo slots.
// Artwork narratives match primarily by artwork id at the same position;
// when the positions have drifted the trailing file name of the storage
// path, extension stripped, serves as the fallback key.
func (c *Controller) compose() domain.RoomWaiting {
	rw := c.handoff.RoomWaiting
	rw.Artworks = make([]domain.RoomArtwork, len(c.handoff.RoomWaiting.Artworks))
	copy(rw.Artworks, c.handoff.RoomWaiting.Artworks)

	rw.AIInfoExhibition = c.data.ExhibitionInfo
	rw.GalleryInfo = c.data.GalleryInfo
	rw.AIInfoArtists = make([]domain.ArtistInfo, 0, len(c.artistOrder))
	for _, artist := range c.artistOrder {
		rw.AIInfoArtists = append(rw.AIInfoArtists, domain.ArtistInfo{
			Artist: artist,
			AIInfo: c.data.ArtistsInfo[artist],
		})
	}
	for i := range rw.Artworks {
		var info string
		var ok bool
		if i < len(c.handoff.Draft.Artworks) {
			info, ok = c.data.ArtworksInfo[c.handoff.Draft.Artworks[i].ID]
		}
		if !ok {
			info = c.data.ArtworksInfo[fileKey(rw.Artworks[i].ImageStoragePath)]
		}
		rw.Artworks[i].AIInfo = info
	}
	return rw
}

func fileKey(storagePath string) string {
	name := path.Base(storagePath)
	return strings.TrimSuffix(name, path.Ext(name))
}

func copyData(d domain.TrainingData) domain.TrainingData {
	out := domain.TrainingData{
		ExhibitionInfo: d.ExhibitionInfo,
		GalleryInfo:    d.GalleryInfo,
		ArtistsInfo:    make(map[string]string, len(d.ArtistsInfo)),
		ArtworksInfo:   make(map[string]string, len(d.ArtworksInfo)),
	}
	for k, v := range d.ArtistsInfo {
		out.ArtistsInfo[k] = v
	}
	for k, v := range d.ArtworksInfo {
		out.ArtworksInfo[k] = v
	}
	return out
}
