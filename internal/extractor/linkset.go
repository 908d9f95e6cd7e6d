package extractor

// LinkSet is an insertion-ordered set of canonical detail references capped
// at a fixed size. It only grows.
type LinkSet struct {
	limit int
	order []string
	seen  map[string]struct{}
}

// NewLinkSet returns an empty set holding at most limit references.
func NewLinkSet(limit int) *LinkSet {
	return &LinkSet{
		limit: limit,
		order: make([]string, 0, max(0, min(limit, 256))),
		seen:  make(map[string]struct{}),
	}
}

// Add inserts ref and reports whether it was new. Adds to a full set are ignored.
func (s *LinkSet) Add(ref string) bool {
	if ref == "" || s.Full() {
		return false
	}
	if _, ok := s.seen[ref]; ok {
		return false
	}
	s.seen[ref] = struct{}{}
	s.order = append(s.order, ref)
	return true
}

// Contains reports whether ref is in the set.
func (s *LinkSet) Contains(ref string) bool {
	_, ok := s.seen[ref]
	return ok
}

func (s *LinkSet) Len() int { return len(s.order) }

// Full reports whether the cap has been reached.
func (s *LinkSet) Full() bool { return len(s.order) >= s.limit }

// Items returns the references in first-discovery order.
func (s *LinkSet) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
