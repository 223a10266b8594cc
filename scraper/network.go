package scraper

import (
	"strings"
	"sync"
	"time"
)

// subscriberBuffer is the per-subscription channel capacity. A slow
// subscriber loses responses beyond it rather than stalling the observer.
const subscriberBuffer = 16

// InterceptedResponse is one captured network response.
type InterceptedResponse struct {
	// Seq orders responses by the moment their request was first observed.
	// A response belongs to an interaction only if its Seq is greater than
	// the mark taken just before that interaction's trigger.
	Seq uint64

	URL        string
	Status     int
	MIMEType   string
	Body       []byte
	CapturedAt time.Time

	// Err is set when the request failed to load. Body is empty then.
	Err error
}

// Predicate decides whether a response URL is of interest.
type Predicate func(url string) bool

// URLContains matches URLs containing substr.
func URLContains(substr string) Predicate {
	return func(url string) bool {
		return strings.Contains(url, substr)
	}
}

// ResponseFeed is the read side of a response stream.
type ResponseFeed interface {
	// Mark returns the sequence number of the latest observed request.
	Mark() uint64

	// Subscribe registers interest in responses whose URL matches.
	// Responses published before Subscribe returns are not delivered.
	Subscribe(match Predicate) *Subscription
}

// ResponseHub fans captured responses out to subscribers and hands out
// monotonically increasing sequence numbers. It is safe for concurrent use.
type ResponseHub struct {
	mu      sync.Mutex
	seq     uint64
	subs    map[*Subscription]struct{}
	dropped int
}

// NewResponseHub creates an empty hub.
func NewResponseHub() *ResponseHub {
	return &ResponseHub{subs: make(map[*Subscription]struct{})}
}

// Stamp allocates the next sequence number.
func (h *ResponseHub) Stamp() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	return h.seq
}

// Mark returns the latest allocated sequence number.
func (h *ResponseHub) Mark() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Publish delivers r to every subscriber whose predicate matches r.URL.
func (h *ResponseHub) Publish(r *InterceptedResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.match != nil && !sub.match(r.URL) {
			continue
		}
		select {
		case sub.ch <- r:
		default:
			h.dropped++
		}
	}
}

// Dropped reports how many deliveries were lost to full subscriber buffers.
func (h *ResponseHub) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Subscribe implements ResponseFeed.
func (h *ResponseHub) Subscribe(match Predicate) *Subscription {
	sub := &Subscription{
		hub:   h,
		match: match,
		ch:    make(chan *InterceptedResponse, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscription receives matching responses until closed.
type Subscription struct {
	hub   *ResponseHub
	match Predicate
	ch    chan *InterceptedResponse
	once  sync.Once
}

// C returns the delivery channel. It is never closed; stop reading after
// Close.
func (s *Subscription) C() <-chan *InterceptedResponse {
	return s.ch
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}
