package station

// Selector implements the repeated-selection trigger: selecting the same
// vehicle twice in a row fires, any other selection resets the baseline.
// It is not safe for concurrent use.
type Selector struct {
	last string
	has  bool
}

// Select dispatches to SelectSame or SelectDifferent and reports whether
// the selection triggered an anomaly.
func (s *Selector) Select(id string) bool {
	if s.has && s.last == id {
		return s.SelectSame(id)
	}
	s.SelectDifferent(id)
	return false
}

// SelectSame handles a selection equal to the previous one. It triggers
// every time, so a third consecutive selection fires again.
func (s *Selector) SelectSame(id string) bool {
	triggered := s.has && s.last == id
	s.last, s.has = id, true
	return triggered
}

// SelectDifferent records id as the new baseline.
func (s *Selector) SelectDifferent(id string) {
	s.last, s.has = id, true
}

// Last returns the previous selection.
func (s *Selector) Last() (string, bool) { return s.last, s.has }

// Reset forgets the previous selection.
func (s *Selector) Reset() { s.last, s.has = "", false }
