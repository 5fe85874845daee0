package session

import "lanyard/internal/domain"

// feedCapacity bounds the result feed shown to the hosting UI.
const feedCapacity = 50

// feed is a bounded newest-first list of scan results. Entries are immutable
// once pushed; the oldest is evicted past capacity. Callers serialize access
// via the controller lock.
type feed struct {
	items []domain.ScanResult
}

func newFeed() *feed { return &feed{} }

func (f *feed) push(r domain.ScanResult) {
	f.items = append([]domain.ScanResult{r}, f.items...)
	if len(f.items) > feedCapacity {
		f.items = f.items[:feedCapacity]
	}
}

// snapshot copies the current entries so callers can render without holding
// the controller lock.
func (f *feed) snapshot() []domain.ScanResult {
	out := make([]domain.ScanResult, len(f.items))
	copy(out, f.items)
	return out
}

func (f *feed) reset() { f.items = nil }
