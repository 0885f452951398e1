// Package review drives the cyclic error-review protocol: scroll to the
// offending field, highlight it briefly, focus it when focusable, and step
// through the ordered error list without ever stopping at the end.
package review

import (
	"sync"
	"time"

	"exhibitforms/pkg/validate"
)

// State of the controller.
type State int

const (
	StateIdle State = iota
	StateReviewing
)

// Surface is the presentation side the controller drives. The browser front
// end implements it over the DOM; tests record the calls.
type Surface interface {
	ScrollTo(field string)
	Highlight(field string)
	ClearHighlight(field string)
	Focusable(field string) bool
	Focus(field string)
	ShowError(err validate.FieldError, index, total int)
	HideError()
	ShowAllClear()
	HideAllClear()
}

// Timing defaults. Focus and highlight-clear run on independent timers, not
// chained.
const (
	DefaultFocusDelay   = 500 * time.Millisecond
	DefaultHighlightFor = 3 * time.Second
	DefaultAllClearFor  = 5 * time.Second
)

// Controller is the error-review state machine. Advance re-runs the
// validation pass fresh every time, so fields the user fixed between toasts
// fall out of the queue without a full re-submit.
type Controller struct {
	FocusDelay   time.Duration
	HighlightFor time.Duration
	AllClearFor  time.Duration

	surface    Surface
	revalidate func() []validate.FieldError
	schedule   func(time.Duration, func())

	mu     sync.Mutex
	state  State
	errors []validate.FieldError
	index  int
}

// New builds an idle controller. revalidate must run the full
// exhibition-step pass against live form state.
func New(surface Surface, revalidate func() []validate.FieldError) *Controller {
	return &Controller{
		FocusDelay:   DefaultFocusDelay,
		HighlightFor: DefaultHighlightFor,
		AllClearFor:  DefaultAllClearFor,
		surface:      surface,
		revalidate:   revalidate,
		schedule:     func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

// SetScheduler replaces the timer hook. Tests install a synchronous one.
func (c *Controller) SetScheduler(schedule func(time.Duration, func())) {
	c.schedule = schedule
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Errors returns the error list currently under review.
func (c *Controller) Errors() []validate.FieldError {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]validate.FieldError, len(c.errors))
	copy(out, c.errors)
	return out
}

// Index returns the position currently presented.
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Begin enters reviewing over the given non-empty list, presenting the first
// error.
func (c *Controller) Begin(errs []validate.FieldError) {
	if len(errs) == 0 {
		return
	}
	c.mu.Lock()
	c.state = StateReviewing
	c.errors = errs
	c.index = 0
	c.mu.Unlock()
	c.showCurrent()
}

// Advance re-validates and either moves to the next error (wrapping after
// the last) or, when everything has been fixed, shows the one-shot all-clear
// notification and resets to idle.
func (c *Controller) Advance() {
	fresh := c.revalidate()

	c.mu.Lock()
	if len(fresh) == 0 {
		c.state = StateIdle
		c.errors = nil
		c.index = 0
		c.mu.Unlock()
		c.surface.HideError()
		c.surface.ShowAllClear()
		c.schedule(c.AllClearFor, c.surface.HideAllClear)
		return
	}
	next := 0
	if c.index < len(fresh)-1 {
		next = c.index + 1
	}
	c.state = StateReviewing
	c.errors = fresh
	c.index = next
	c.mu.Unlock()
	c.showCurrent()
}

func (c *Controller) showCurrent() {
	c.mu.Lock()
	if len(c.errors) == 0 {
		c.mu.Unlock()
		return
	}
	err := c.errors[c.index]
	index, total := c.index, len(c.errors)
	c.mu.Unlock()

	c.surface.ShowError(err, index, total)
	c.surface.ScrollTo(err.Field)
	c.surface.Highlight(err.Field)
	if c.surface.Focusable(err.Field) {
		c.schedule(c.FocusDelay, func() { c.surface.Focus(err.Field) })
	}
	c.schedule(c.HighlightFor, func() { c.surface.ClearHighlight(err.Field) })
}
