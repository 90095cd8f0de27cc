package analytics

import (
	"strconv"
	"sync"
)

// Event is one tracked event: the caller's JSON fields plus the fields
// the service stamps on it.
type Event map[string]any

// NewEvent builds an event from a decoded JSON payload. Object members
// are copied, array elements are keyed by index, and scalars or null
// contribute no fields.
func NewEvent(payload any) Event {
	switch v := payload.(type) {
	case map[string]any:
		ev := make(Event, len(v)+3)
		for k, val := range v {
			ev[k] = val
		}
		return ev
	case []any:
		ev := make(Event, len(v)+3)
		for i, val := range v {
			ev[strconv.Itoa(i)] = val
		}
		return ev
	default:
		return make(Event, 3)
	}
}

// Snapshot is a consistent read of the counters.
type Snapshot struct {
	PageViews      int64
	APICalls       int64
	UniqueVisitors int
	EventsTracked  int64
	RecentEvents   []Event
}

// Stats holds the in-memory analytics counters. All methods are safe for
// concurrent use. The event log keeps at most maxEvents entries; older
// events are dropped while EventsTracked keeps counting.
type Stats struct {
	mu        sync.Mutex
	pageViews int64
	apiCalls  int64
	visitors  map[string]struct{}
	tracked   int64

	// ring buffer of retained events
	events []Event
	head   int
	count  int
}

// NewStats creates empty counters retaining up to maxEvents events.
func NewStats(maxEvents int) *Stats {
	if maxEvents <= 0 {
		maxEvents = 1
	}
	return &Stats{
		visitors: make(map[string]struct{}),
		events:   make([]Event, maxEvents),
	}
}

// Track records an event and returns the total number of events tracked.
func (s *Stats) Track(ev Event) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := (s.head + s.count) % len(s.events)
	s.events[idx] = ev
	if s.count < len(s.events) {
		s.count++
	} else {
		s.head = (s.head + 1) % len(s.events)
	}

	s.apiCalls++
	s.tracked++
	return s.tracked
}

// PageView records a page view from visitor and returns the total page
// views and distinct visitors.
func (s *Stats) PageView(visitor string) (pageViews int64, uniqueVisitors int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pageViews++
	s.visitors[visitor] = struct{}{}
	return s.pageViews, len(s.visitors)
}

// Hit records a page view without a visitor, as the tracking pixel does.
func (s *Stats) Hit() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pageViews++
	return s.pageViews
}

// Snapshot returns the counters and up to recent of the newest events,
// oldest first.
func (s *Stats) Snapshot(recent int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := recent
	if n > s.count {
		n = s.count
	}
	if n < 0 {
		n = 0
	}

	events := make([]Event, 0, n)
	for i := s.count - n; i < s.count; i++ {
		events = append(events, s.events[(s.head+i)%len(s.events)])
	}

	return Snapshot{
		PageViews:      s.pageViews,
		APICalls:       s.apiCalls,
		UniqueVisitors: len(s.visitors),
		EventsTracked:  s.tracked,
		RecentEvents:   events,
	}
}

// retained returns how many events are currently held.
func (s *Stats) retained() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
