package review

import (
	"sync"
	"testing"
	"time"

	"exhibitforms/pkg/validate"
)

type recordingSurface struct {
	mu         sync.Mutex
	scrolled   []string
	highlights []string
	cleared    []string
	focused    []string
	shown      []string
	allClear   int
	hidden     int
	focusable  bool
}

func (s *recordingSurface) ScrollTo(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scrolled = append(s.scrolled, field)
}

func (s *recordingSurface) Highlight(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highlights = append(s.highlights, field)
}

func (s *recordingSurface) ClearHighlight(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared = append(s.cleared, field)
}

func (s *recordingSurface) Focusable(string) bool { return s.focusable }

func (s *recordingSurface) Focus(field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = append(s.focused, field)
}

func (s *recordingSurface) ShowError(err validate.FieldError, _, _ int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, err.Field)
}

func (s *recordingSurface) HideError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden++
}

func (s *recordingSurface) ShowAllClear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allClear++
}

func (s *recordingSurface) HideAllClear() {}

func errList(fields ...string) []validate.FieldError {
	out := make([]validate.FieldError, 0, len(fields))
	for i, f := range fields {
		out = append(out, validate.FieldError{Field: f, Order: 100 + i})
	}
	return out
}

func syncScheduler(_ time.Duration, f func()) { f() }

func TestBeginPresentsFirstError(t *testing.T) {
	surface := &recordingSurface{focusable: true}
	ctl := New(surface, func() []validate.FieldError { return nil })
	ctl.SetScheduler(syncScheduler)

	ctl.Begin(errList("exhibitionTitle", "userName"))

	if ctl.State() != StateReviewing {
		t.Fatalf("state = %v, want reviewing", ctl.State())
	}
	if ctl.Index() != 0 {
		t.Fatalf("index = %d, want 0", ctl.Index())
	}
	if len(surface.scrolled) != 1 || surface.scrolled[0] != "exhibitionTitle" {
		t.Fatalf("scrolled = %v", surface.scrolled)
	}
	if len(surface.focused) != 1 || surface.focused[0] != "exhibitionTitle" {
		t.Fatalf("focused = %v", surface.focused)
	}
	if len(surface.cleared) != 1 || surface.cleared[0] != "exhibitionTitle" {
		t.Fatalf("highlight clear = %v", surface.cleared)
	}
}

func TestBeginIgnoresEmptyList(t *testing.T) {
	surface := &recordingSurface{}
	ctl := New(surface, func() []validate.FieldError { return nil })
	ctl.Begin(nil)
	if ctl.State() != StateIdle {
		t.Fatal("empty Begin must stay idle")
	}
}

func TestAdvanceCyclesAndWraps(t *testing.T) {
	surface := &recordingSurface{}
	errs := errList("a", "b", "c")
	ctl := New(surface, func() []validate.FieldError { return errs })
	ctl.SetScheduler(syncScheduler)

	ctl.Begin(errs)
	ctl.Advance()
	if ctl.Index() != 1 {
		t.Fatalf("index = %d, want 1", ctl.Index())
	}
	ctl.Advance()
	if ctl.Index() != 2 {
		t.Fatalf("index = %d, want 2", ctl.Index())
	}
	ctl.Advance()
	if ctl.Index() != 0 {
		t.Fatalf("index after wrap = %d, want 0", ctl.Index())
	}
	if ctl.State() != StateReviewing {
		t.Fatal("cycling must never leave reviewing")
	}
}

func TestAdvanceDropsFixedFields(t *testing.T) {
	surface := &recordingSurface{}
	fresh := errList("a", "b", "c")
	ctl := New(surface, func() []validate.FieldError { return fresh })
	ctl.SetScheduler(syncScheduler)

	ctl.Begin(fresh)
	// User fixes field b between toasts.
	fresh = errList("a", "c")
	ctl.Advance()
	got := ctl.Errors()
	if len(got) != 2 || got[0].Field != "a" || got[1].Field != "c" {
		t.Fatalf("stale errors kept: %v", got)
	}
}

func TestAdvanceAllClearFromAnyIndex(t *testing.T) {
	surface := &recordingSurface{}
	fresh := errList("a", "b", "c")
	ctl := New(surface, func() []validate.FieldError { return fresh })
	ctl.SetScheduler(syncScheduler)

	ctl.Begin(fresh)
	ctl.Advance() // index 1
	fresh = nil   // everything fixed
	ctl.Advance()

	if ctl.State() != StateIdle {
		t.Fatalf("state = %v, want idle", ctl.State())
	}
	if len(ctl.Errors()) != 0 {
		t.Fatalf("errors = %v, want empty", ctl.Errors())
	}
	if surface.allClear != 1 {
		t.Fatalf("all-clear shown %d times, want 1", surface.allClear)
	}
	if surface.hidden != 1 {
		t.Fatalf("error toast hidden %d times, want 1", surface.hidden)
	}
}

func TestNonFocusableFieldIsNotFocused(t *testing.T) {
	surface := &recordingSurface{focusable: false}
	ctl := New(surface, func() []validate.FieldError { return nil })
	ctl.SetScheduler(syncScheduler)

	ctl.Begin(errList("artwork-a1-image"))
	if len(surface.focused) != 0 {
		t.Fatalf("focused = %v, want none", surface.focused)
	}
	if len(surface.highlights) != 1 {
		t.Fatalf("highlights = %v", surface.highlights)
	}
}
