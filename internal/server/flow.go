package server

import (
	"sync"

	"exhibitforms/internal/dictation"
	"exhibitforms/internal/exhibition"
	"exhibitforms/internal/training"
	"exhibitforms/pkg/validate"
)

// flowState is one user's in-process wizard state. The builder exists from
// creation; the training controller appears once step 2 loads the handoff.
type flowState struct {
	id      string
	builder *exhibition.Builder
	review  *reviewSurface

	mu       sync.Mutex
	training *training.Controller
	recorder *dictation.Recorder
}

func newFlowState(id string, cfg exhibition.Config) *flowState {
	review := &reviewSurface{}
	cfg.Surface = review
	return &flowState{
		id:      id,
		builder: exhibition.New(cfg),
		review:  review,
	}
}

type flowRegistry struct {
	mu    sync.Mutex
	flows map[string]*flowState
}

func newFlowRegistry() *flowRegistry {
	return &flowRegistry{flows: map[string]*flowState{}}
}

func (r *flowRegistry) put(id string, fs *flowState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[id] = fs
}

func (r *flowRegistry) get(id string) (*flowState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fs, ok := r.flows[id]
	return fs, ok
}

// reviewSurface adapts the review protocol to a pollable snapshot. The
// browser reads the snapshot and performs the scroll, highlight and focus
// itself; every scaffolded field is treated as focusable.
type reviewSurface struct {
	mu          sync.Mutex
	current     *validate.FieldError
	index       int
	total       int
	highlighted string
	allClear    bool
}

// ReviewSnapshot is the wire form of the review state.
type ReviewSnapshot struct {
	Active      bool                 `json:"active"`
	Error       *validate.FieldError `json:"error,omitempty"`
	Index       int                  `json:"index"`
	Total       int                  `json:"total"`
	Highlighted string               `json:"highlighted,omitempty"`
	AllClear    bool                 `json:"allClear"`
}

func (s *reviewSurface) snapshot() ReviewSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := ReviewSnapshot{
		Index:       s.index,
		Total:       s.total,
		Highlighted: s.highlighted,
		AllClear:    s.allClear,
	}
	if s.current != nil {
		err := *s.current
		snap.Error = &err
		snap.Active = true
	}
	return snap
}

func (s *reviewSurface) ScrollTo(string) {}

func (s *reviewSurface) Highlight(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlighted = field
}

func (s *reviewSurface) ClearHighlight(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.highlighted == field {
		s.highlighted = ""
	}
}

func (s *reviewSurface) Focusable(string) bool { return true }

func (s *reviewSurface) Focus(string) {}

func (s *reviewSurface) ShowError(err validate.FieldError, index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &err
	s.index = index
	s.total = total
	s.allClear = false
}

func (s *reviewSurface) HideError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.index = 0
	s.total = 0
}

func (s *reviewSurface) ShowAllClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allClear = true
}

func (s *reviewSurface) HideAllClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allClear = false
}
