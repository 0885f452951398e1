// Package dictation manages speech-to-text capture for the training form.
// One recognition engine exists per flow, so recording is mutually
// exclusive across fields: starting dictation on one field stops whatever
// field was recording before.
package dictation

import (
	"errors"
	"sync"
)

// ErrUnavailable is returned when no recognition engine is configured.
// Callers hide the microphone affordance instead of failing the form.
var ErrUnavailable = errors.New("speech recognition unavailable")

// Engine is a speech recognition backend. Start begins a capture session in
// the given language and delivers finalized transcript segments to emit; the
// returned stop function ends the session. Engines are single-session.
type Engine interface {
	Start(lang string, emit func(segment string)) (stop func(), err error)
}

// Recorder tracks which field, if any, is currently capturing. Finalized
// segments are forwarded to the sink keyed by field.
type Recorder struct {
	engine Engine
	sink   func(field, segment string)

	mu     sync.Mutex
	active string
	stop   func()
}

// New builds a recorder over engine. engine may be nil when the runtime has
// no speech support; Start then reports ErrUnavailable.
func New(engine Engine, sink func(field, segment string)) *Recorder {
	return &Recorder{engine: engine, sink: sink}
}

// Available reports whether dictation can be offered at all.
func (r *Recorder) Available() bool {
	return r.engine != nil
}

// Active returns the field currently recording, or "".
func (r *Recorder) Active() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins capturing into field. If another field is recording, it is
// stopped first. Starting the field that is already recording is a no-op.
func (r *Recorder) Start(field, lang string) error {
	if r.engine == nil {
		return ErrUnavailable
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == field {
		return nil
	}
	if r.stop != nil {
		r.stop()
		r.stop = nil
		r.active = ""
	}
	stop, err := r.engine.Start(lang, func(segment string) {
		if segment == "" {
			return
		}
		r.sink(field, segment)
	})
	if err != nil {
		return err
	}
	r.active = field
	r.stop = stop
	return nil
}

// Stop ends the current capture session, if any.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
	r.active = ""
}

// Toggle starts dictation on field when idle or recording elsewhere, and
// stops it when the field is already recording.
func (r *Recorder) Toggle(field, lang string) error {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active == field {
		r.Stop()
		return nil
	}
	return r.Start(field, lang)
}
