package shuffle

// Session tracks a position inside a shuffled play order. Next returns
// the track at the current position and then advances; once the cycle
// completes the order is reshuffled, so every track plays exactly once
// per cycle before any repeat.
type Session struct {
	original []string
	shuffled []string
	index    int
}

// NewSession builds a session over ids with a freshly shuffled order.
func NewSession(ids []string) *Session {
	return &Session{
		original: append([]string(nil), ids...),
		shuffled: TwoInterlaced(ids),
	}
}

// Len returns the total number of tracks in the cycle.
func (s *Session) Len() int {
	return len(s.shuffled)
}

// Order returns a copy of the current shuffled order.
func (s *Session) Order() []string {
	return append([]string(nil), s.shuffled...)
}

// Index returns the current position in the shuffled order.
func (s *Session) Index() int {
	return s.index
}

// Next returns the track at the current position and advances. When the
// advance would pass the end of the order, the order is reshuffled and
// the position resets to the start. Returns false for an empty session.
func (s *Session) Next() (string, bool) {
	if len(s.shuffled) == 0 {
		return "", false
	}
	id := s.shuffled[s.index]
	s.index++
	if s.index >= len(s.shuffled) {
		s.shuffled = TwoInterlaced(s.original)
		s.index = 0
	}
	return id, true
}

// Previous steps the position back one and returns the track there,
// wrapping from the first position to the last. Returns false for an
// empty session.
func (s *Session) Previous() (string, bool) {
	if len(s.shuffled) == 0 {
		return "", false
	}
	s.index--
	if s.index < 0 {
		s.index = len(s.shuffled) - 1
	}
	return s.shuffled[s.index], true
}

// JumpTo repositions the session at id's location in the current
// shuffled order. Unknown ids leave the session unchanged.
func (s *Session) JumpTo(id string) bool {
	for i, t := range s.shuffled {
		if t == id {
			s.index = i
			return true
		}
	}
	return false
}

// Reshuffle rebuilds the shuffled order from the original list and
// resets the position.
func (s *Session) Reshuffle() {
	s.shuffled = TwoInterlaced(s.original)
	s.index = 0
}
