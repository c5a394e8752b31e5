package diff

import "sync"

// Session tracks one entity opened for editing: the baseline (values as of
// the last successful load or save) and the live form values.
//
// The baseline only moves forward through Commit; a failed save leaves it
// untouched so the form stays dirty and a retry resubmits the same diff.
type Session struct {
	mu       sync.Mutex
	id       string
	opts     Options
	baseline Record
	current  Record
}

// NewSession opens a session whose baseline and current values both start
// at baseline.
func NewSession(id string, baseline Record, opts Options) *Session {
	return &Session{
		id:       id,
		opts:     opts,
		baseline: Clone(baseline),
		current:  Clone(baseline),
	}
}

// ID returns the entity id being edited.
func (s *Session) ID() string { return s.id }

// Baseline returns a copy of the baseline.
func (s *Session) Baseline() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.baseline)
}

// Current returns a copy of the live form values.
func (s *Session) Current() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.current)
}

// Set replaces the live form values.
func (s *Session) Set(current Record) {
	s.mu.Lock()
	s.current = Clone(current)
	s.mu.Unlock()
}

// Update overlays individual field values onto the live form.
func (s *Session) Update(fields Record) {
	s.mu.Lock()
	for k, v := range fields {
		s.current[k] = v
	}
	s.mu.Unlock()
}

// Diff returns the minimal patch from baseline to the live form.
func (s *Session) Diff() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Diff(s.baseline, s.current, s.opts)
}

// Dirty reports whether the live form differs from the baseline.
func (s *Session) Dirty() bool { return len(s.Diff()) > 0 }

// Commit re-baselines to saved, the values that were successfully
// persisted. Edits made after saved was captured remain dirty.
func (s *Session) Commit(saved Record) {
	s.mu.Lock()
	s.baseline = Clone(saved)
	s.mu.Unlock()
}

// Reset discards live edits and returns the form to its baseline.
func (s *Session) Reset() {
	s.mu.Lock()
	s.current = Clone(s.baseline)
	s.mu.Unlock()
}
