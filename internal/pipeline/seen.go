package pipeline

// SeenSet records offer URLs already handled. Mark reports whether url
// had been marked before.
type SeenSet interface {
	Mark(url string) bool
}

type memorySeenSet map[string]struct{}

// NewMemorySeenSet returns a SeenSet living for a single run
func NewMemorySeenSet() SeenSet {
	return memorySeenSet{}
}

func (s memorySeenSet) Mark(url string) bool {
	if _, ok := s[url]; ok {
		return true
	}
	s[url] = struct{}{}
	return false
}
