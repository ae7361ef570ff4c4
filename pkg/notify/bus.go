// Package notify is the engine's in-process notification bus. Components
// publish lifecycle notifications (zone changes, consolidation runs,
// supersessions) and observers subscribe by subject pattern instead of
// registering callbacks on each component.
package notify

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Canonical subjects.
const (
	SubjectZoneChanged       = "workingmem.zone"
	SubjectItemArchived      = "workingmem.archived"
	SubjectConsolidationRun  = "consolidation.run"
	SubjectRecordSuperseded  = "record.superseded"
	SubjectPatternDeprecated = "pattern.deprecated"
	SubjectBoundaryDetected  = "segment.boundary"
)

// Message is a delivered notification. Payload is the JSON encoding of
// the published value.
type Message struct {
	Subject   string
	Payload   []byte
	Timestamp time.Time
}

// Decode unmarshals the payload into out.
func (m Message) Decode(out any) error {
	return json.Unmarshal(m.Payload, out)
}

// Subscription is one live subject subscription.
type Subscription struct {
	pattern string
	ch      chan Message
	bus     *Bus
	once    sync.Once
}

// C returns the read-only message channel.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Close removes the subscription and closes its channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.bus.unsubscribe(s.pattern, s.ch)
		close(s.ch)
	})
	return nil
}

// Bus is an in-process pub/sub fanout. Delivery is non-blocking: a slow
// subscriber drops messages rather than stalling the publisher, so the
// request path never waits on observers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Message
	clock       func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Message),
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// Publish encodes payload as JSON and fans it out to matching
// subscriptions. Unencodable payloads and empty subjects are dropped.
func (b *Bus) Publish(subject string, payload any) {
	if subject == "" {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	msg := Message{
		Subject:   subject,
		Payload:   data,
		Timestamp: b.clock(),
	}

	// Fan out under the read lock: sends are non-blocking, and Close
	// removes the channel under the write lock before closing it, so a
	// send can never race a close.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for pattern, channels := range b.subscribers {
		if !subjectMatches(pattern, subject) {
			continue
		}
		for _, ch := range channels {
			select {
			case ch <- msg:
			default:
			}
		}
	}
}

// Subscribe registers a subscription for a subject pattern. Patterns
// support "*" for one segment and a trailing ">" for any suffix.
func (b *Bus) Subscribe(pattern string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 32
	}
	ch := make(chan Message, buffer)

	b.mu.Lock()
	b.subscribers[pattern] = append(b.subscribers[pattern], ch)
	b.mu.Unlock()

	return &Subscription{
		pattern: pattern,
		ch:      ch,
		bus:     b,
	}
}

func (b *Bus) unsubscribe(pattern string, target chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	channels := b.subscribers[pattern]
	filtered := channels[:0]
	for _, ch := range channels {
		if ch == target {
			continue
		}
		filtered = append(filtered, ch)
	}
	if len(filtered) == 0 {
		delete(b.subscribers, pattern)
		return
	}
	b.subscribers[pattern] = filtered
}

// subjectMatches supports exact, "*" segment, and ">" suffix wildcards.
func subjectMatches(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	if strings.HasSuffix(pattern, ">") {
		prefix := strings.TrimSuffix(pattern, ">")
		prefix = strings.TrimSuffix(prefix, ".")
		if prefix == "" {
			return true
		}
		return subject == prefix || strings.HasPrefix(subject, prefix+".")
	}

	patternParts := strings.Split(pattern, ".")
	subjectParts := strings.Split(subject, ".")
	if len(patternParts) != len(subjectParts) {
		return false
	}
	for i, part := range patternParts {
		if part == "*" {
			continue
		}
		if part != subjectParts[i] {
			return false
		}
	}
	return true
}
