package crawl

import "sync"

// SeenSet is the set of listing ids observed so far. TestAndInsert is the
// only mutation path the workers use; it is atomic so two workers that spot
// the same new id at the same instant produce exactly one emission.
type SeenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// TestAndInsert reports whether id was newly inserted. Re-inserting an
// existing id is a no-op and returns false.
func (s *SeenSet) TestAndInsert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// AddAll pre-populates the set, used to warm-start from the listing archive
// so a restart does not re-announce the whole first page.
func (s *SeenSet) AddAll(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Reset clears the set. Every previously seen listing becomes eligible to be
// reported again; this is an explicit administrative action.
func (s *SeenSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[string]struct{})
}
