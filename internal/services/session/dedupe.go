package session

// seenSet tracks raw payloads already processed in the current session.
// Membership is exact string equality, no normalization: repeat reads of the
// same physical badge are byte-identical, and near-duplicate content is the
// persistence gate's job. Callers serialize access via the controller lock.
type seenSet struct {
	m map[string]struct{}
}

func newSeenSet() *seenSet { return &seenSet{m: make(map[string]struct{})} }

func (s *seenSet) seen(raw string) bool {
	_, ok := s.m[raw]
	return ok
}

func (s *seenSet) mark(raw string) { s.m[raw] = struct{}{} }

func (s *seenSet) size() int { return len(s.m) }

func (s *seenSet) reset() { s.m = make(map[string]struct{}) }
