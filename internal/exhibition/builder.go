// Package exhibition owns the step-1 form state: field merges, artwork
// management, uploads through the path allocator, the ordered validation
// pass, and the handoff that carries the composed draft into step 2.
package exhibition

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"exhibitforms/internal/handoff"
	"exhibitforms/internal/imagemeta"
	"exhibitforms/internal/pathalloc"
	"exhibitforms/internal/review"
	"exhibitforms/internal/util"
	"exhibitforms/pkg/domain"
	"exhibitforms/pkg/storage"
	"exhibitforms/pkg/validate"
)

// ErrValidationFailed marks a submit rejected by the exhibition pass. The
// ordered error list travels alongside it.
var ErrValidationFailed = errors.New("exhibition validation failed")

// UploadState tracks one item's upload lifecycle. The states are explicit so
// an item cannot be both uploading and failed by accident.
type UploadState string

const (
	UploadIdle       UploadState = "idle"
	UploadInProgress UploadState = "uploading"
	UploadFailed     UploadState = "failed"
)

// LogoUploadKey identifies the gallery logo in the upload-state map.
const LogoUploadKey = "gallery-logo"

const defaultWidth = 30

// Config wires the builder's collaborators.
type Config struct {
	Allocator *pathalloc.Allocator
	Objects   storage.ObjectStore
	// Bucket is the object-path marker segment inside retrievable URLs;
	// everything after it is the storage path the backend expects.
	Bucket   string
	Handoffs handoff.Store
	Surface  review.Surface
	Now      func() time.Time
}

// Builder is the step-1 controller. All operations serialize on its lock,
// the analog of the browser's single-threaded event loop.
type Builder struct {
	mu          sync.Mutex
	draft       domain.ExhibitionDraft
	fieldErrors map[string]string
	uploads     map[string]UploadState

	alloc    *pathalloc.Allocator
	objects  storage.ObjectStore
	bucket   string
	handoffs handoff.Store
	reviewer *review.Controller
	scroller review.Surface
	now      func() time.Time
	schedule func(time.Duration, func())
}

// New builds a fresh draft with one empty artwork card; the UI never allows
// removing the last one.
func New(cfg Config) *Builder {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	b := &Builder{
		fieldErrors: map[string]string{},
		uploads:     map[string]UploadState{},
		alloc:       cfg.Allocator,
		objects:     cfg.Objects,
		bucket:      cfg.Bucket,
		handoffs:    cfg.Handoffs,
		scroller:    cfg.Surface,
		now:         now,
		schedule:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	b.draft = domain.ExhibitionDraft{
		Artworks: []domain.Artwork{b.newArtwork()},
	}
	b.reviewer = review.New(cfg.Surface, b.Validate)
	return b
}

func (b *Builder) newArtwork() domain.Artwork {
	return domain.Artwork{
		ID:         util.NewID(),
		Unit:       domain.UnitCM,
		Year:       b.now().Year(),
		FrameType:  domain.FrameFramed,
		FrameColor: "transparent",
	}
}

// Reviewer exposes the error-review controller for "show next error".
func (b *Builder) Reviewer() *review.Controller {
	return b.reviewer
}

// SetScheduler replaces the timer hook used for deferred scrolls.
func (b *Builder) SetScheduler(schedule func(time.Duration, func())) {
	b.schedule = schedule
	b.reviewer.SetScheduler(schedule)
}

// Draft returns a copy of the current form state.
func (b *Builder) Draft() domain.ExhibitionDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyDraft(b.draft)
}

// UploadStates returns a copy of the per-item upload states.
func (b *Builder) UploadStates() map[string]UploadState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]UploadState, len(b.uploads))
	for k, v := range b.uploads {
		out[k] = v
	}
	return out
}

// FieldErrors returns the inline error messages currently set.
func (b *Builder) FieldErrors() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.fieldErrors))
	for k, v := range b.fieldErrors {
		out[k] = v
	}
	return out
}

// UpdateField merges a top-level text field and clears its inline error.
func (b *Builder) UpdateField(name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch name {
	case "exhibitionTitle":
		b.draft.ExhibitionTitle = value
	case "galleryName":
		b.draft.GalleryName = value
	case "userName":
		b.draft.UserName = value
	case "userEmail":
		b.draft.UserEmail = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	delete(b.fieldErrors, name)
	return nil
}

// UpdateArtwork merges one artwork field and clears its inline error.
// Editing width while a preview is loaded recomputes height from the image's
// intrinsic aspect ratio; the derivation never runs the other way.
func (b *Builder) UpdateArtwork(index int, field string, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.draft.Artworks) {
		return fmt.Errorf("artwork index %d out of range", index)
	}
	a := &b.draft.Artworks[index]
	switch field {
	case "artistName":
		s, err := asString(value)
		if err != nil {
			return err
		}
		a.ArtistName = s
	case "technique":
		s, err := asString(value)
		if err != nil {
			return err
		}
		a.Technique = s
	case "frameColor":
		s, err := asString(value)
		if err != nil {
			return err
		}
		a.FrameColor = s
	case "unit":
		s, err := asString(value)
		if err != nil {
			return err
		}
		switch domain.Unit(s) {
		case domain.UnitCM, domain.UnitInch:
			a.Unit = domain.Unit(s)
		default:
			return fmt.Errorf("unknown unit %q", s)
		}
	case "frameType":
		s, err := asString(value)
		if err != nil {
			return err
		}
		switch domain.FrameChoice(s) {
		case domain.FrameFramed, domain.FrameFramedThin, domain.FrameStretched:
			a.FrameType = domain.FrameChoice(s)
		default:
			return fmt.Errorf("unknown frame type %q", s)
		}
	case "width":
		f, err := asFloat(value)
		if err != nil {
			return err
		}
		a.Width = f
		if len(a.ImagePreview) > 0 {
			if ar, err := imagemeta.AspectRatio(a.ImagePreview); err == nil {
				a.Height = imagemeta.DerivedHeight(f, ar)
			}
		}
	case "height":
		f, err := asFloat(value)
		if err != nil {
			return err
		}
		a.Height = f
	case "year":
		f, err := asFloat(value)
		if err != nil {
			return err
		}
		a.Year = int(f)
	default:
		return fmt.Errorf("unknown artwork field %q", field)
	}
	delete(b.fieldErrors, fmt.Sprintf("artwork-%s-%s", a.ID, field))
	return nil
}

// AddArtwork appends a new card with defaults and scrolls it into view
// shortly after insertion.
func (b *Builder) AddArtwork() domain.Artwork {
	b.mu.Lock()
	art := b.newArtwork()
	b.draft.Artworks = append(b.draft.Artworks, art)
	b.mu.Unlock()

	// The review surface doubles as the scroll target for new cards.
	if b.scroller != nil {
		b.schedule(100*time.Millisecond, func() {
			b.scroller.ScrollTo("artwork-" + art.ID)
		})
	}
	return art
}

// RemoveArtwork drops the card at index. A floor of one artwork is
// enforced: removing the last remaining card is a no-op.
func (b *Builder) RemoveArtwork(index int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.draft.Artworks) <= 1 {
		return
	}
	if index < 0 || index >= len(b.draft.Artworks) {
		return
	}
	b.draft.Artworks = append(b.draft.Artworks[:index], b.draft.Artworks[index+1:]...)
}

// UploadLogo stores the gallery logo under the fixed logo path and records
// the retrievable URL. On failure the draft is untouched and the state moves
// to failed; the user retries by re-selecting a file.
func (b *Builder) UploadLogo(ctx context.Context, filename string, data []byte) error {
	b.setUpload(LogoUploadKey, UploadInProgress)
	path, err := b.alloc.LogoPath(ctx)
	if err != nil {
		b.setUpload(LogoUploadKey, UploadFailed)
		return fmt.Errorf("allocate logo path: %w", err)
	}
	url, err := b.put(ctx, path, filename, data)
	if err != nil {
		b.setUpload(LogoUploadKey, UploadFailed)
		return fmt.Errorf("upload logo: %w", err)
	}
	b.mu.Lock()
	b.draft.GalleryLogoURL = url
	b.mu.Unlock()
	b.setUpload(LogoUploadKey, UploadIdle)
	return nil
}

// UploadArtworkImage stores the image under the next sequential path,
// records the retrievable URL plus a local preview, and fills in an
// aspect-ratio-derived default size when none was entered.
func (b *Builder) UploadArtworkImage(ctx context.Context, index int, filename string, data []byte) error {
	b.mu.Lock()
	if index < 0 || index >= len(b.draft.Artworks) {
		b.mu.Unlock()
		return fmt.Errorf("artwork index %d out of range", index)
	}
	artID := b.draft.Artworks[index].ID
	b.mu.Unlock()

	b.setUpload(artID, UploadInProgress)
	path, err := b.alloc.NextArtworkPath(ctx, filename)
	if err != nil {
		b.setUpload(artID, UploadFailed)
		return fmt.Errorf("allocate artwork path: %w", err)
	}
	url, err := b.put(ctx, path, filename, data)
	if err != nil {
		b.setUpload(artID, UploadFailed)
		return fmt.Errorf("upload artwork image: %w", err)
	}

	preview, previewErr := imagemeta.Preview(data)
	ar, arErr := imagemeta.AspectRatio(data)

	b.mu.Lock()
	// The card may have been removed while the upload was in flight; a
	// late result against discarded state is ignored.
	pos := b.indexOfLocked(artID)
	if pos == -1 {
		b.mu.Unlock()
		b.setUpload(artID, UploadIdle)
		return nil
	}
	a := &b.draft.Artworks[pos]
	a.ImageURL = url
	if previewErr == nil {
		a.ImagePreview = preview
	}
	if arErr == nil {
		if a.Width == 0 {
			a.Width = defaultWidth
		}
		if a.Height == 0 {
			a.Height = imagemeta.DerivedHeight(defaultWidth, ar)
		}
	}
	delete(b.fieldErrors, fmt.Sprintf("artwork-%s-image", artID))
	b.mu.Unlock()

	b.setUpload(artID, UploadIdle)
	return nil
}

func (b *Builder) indexOfLocked(artID string) int {
	for i := range b.draft.Artworks {
		if b.draft.Artworks[i].ID == artID {
			return i
		}
	}
	return -1
}

func (b *Builder) setUpload(key string, state UploadState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if state == UploadIdle {
		delete(b.uploads, key)
		return
	}
	b.uploads[key] = state
}

func (b *Builder) put(ctx context.Context, path, filename string, data []byte) (string, error) {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := b.objects.Put(ctx, path, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", err
	}
	return b.objects.RetrievableURL(ctx, path)
}

// HasUnsavedData reports whether leaving the page should ask for
// confirmation.
func (b *Builder) HasUnsavedData() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.draft
	if strings.TrimSpace(d.ExhibitionTitle) != "" ||
		strings.TrimSpace(d.GalleryName) != "" ||
		d.GalleryLogoURL != "" ||
		strings.TrimSpace(d.UserName) != "" ||
		strings.TrimSpace(d.UserEmail) != "" {
		return true
	}
	currentYear := b.now().Year()
	for _, a := range d.Artworks {
		if a.ImageURL != "" ||
			strings.TrimSpace(a.ArtistName) != "" ||
			a.Width > 0 || a.Height > 0 ||
			strings.TrimSpace(a.Technique) != "" ||
			a.Year != currentYear {
			return true
		}
	}
	return false
}

// Validate runs the exhibition pass against the live draft.
func (b *Builder) Validate() []validate.FieldError {
	b.mu.Lock()
	draft := copyDraft(b.draft)
	now := b.now()
	b.mu.Unlock()
	return validate.Exhibition(draft, now)
}

// Submit validates and, when clean, composes the RoomWaiting payload and
// writes the complete handoff for step 2. On validation failure the ordered
// error list is returned with ErrValidationFailed and the reviewer starts
// cycling through it.
func (b *Builder) Submit(ctx context.Context, flowID string) (handoff.FlowHandoff, []validate.FieldError, error) {
	errs := b.Validate()
	if len(errs) > 0 {
		b.mu.Lock()
		for _, e := range errs {
			b.fieldErrors[e.Field] = e.Message
		}
		b.mu.Unlock()
		b.reviewer.Begin(errs)
		return handoff.FlowHandoff{}, errs, ErrValidationFailed
	}

	b.mu.Lock()
	draft := copyDraft(b.draft)
	b.mu.Unlock()

	folderName, err := b.alloc.FolderName(ctx)
	if err != nil {
		return handoff.FlowHandoff{}, nil, fmt.Errorf("resolve folder name: %w", err)
	}
	h := handoff.FlowHandoff{
		Draft:       draft,
		RoomWaiting: composeRoomWaiting(draft, b.bucket),
		FolderName:  folderName,
	}
	if err := b.handoffs.Put(ctx, flowID, h); err != nil {
		return handoff.FlowHandoff{}, nil, fmt.Errorf("persist handoff: %w", err)
	}
	return h, nil, nil
}

func copyDraft(d domain.ExhibitionDraft) domain.ExhibitionDraft {
	out := d
	out.Artworks = make([]domain.Artwork, len(d.Artworks))
	copy(out.Artworks, d.Artworks)
	return out
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected string, got %T", v)
	}
	return s, nil
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
