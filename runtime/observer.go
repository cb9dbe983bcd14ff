package runtime

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tacmesh/meshnode/model"
)

// Delivery is the envelope pushed to a subscribed observer: every
// authenticated inbound message.
type Delivery struct {
	Type string                `json:"type"`
	Data model.TacticalMessage `json:"data"`
}

// ObserverToken identifies a subscription returned by Subscribe, for use
// with Unsubscribe.
type ObserverToken uint64

type observer struct {
	token ObserverToken
	ch    chan Delivery
}

// observerSet is a bounded-deadline fan-out: a
// channel per observer, with a slow observer removed rather than allowed to
// stall the receive loop.
type observerSet struct {
	mu       sync.Mutex
	next     ObserverToken
	members  []observer
	deadline time.Duration
	logger   *logrus.Entry
}

func newObserverSet(deadline time.Duration) *observerSet {
	return &observerSet{
		deadline: deadline,
		logger:   logrus.WithField("component", "observer_set"),
	}
}

// Subscribe registers a new observer channel and returns its token.
func (s *observerSet) Subscribe(buffer int) (ObserverToken, <-chan Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	tok := s.next
	ch := make(chan Delivery, buffer)
	s.members = append(s.members, observer{token: tok, ch: ch})
	return tok, ch
}

// Unsubscribe removes and closes the observer identified by tok.
func (s *observerSet) Unsubscribe(tok ObserverToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(tok)
}

func (s *observerSet) removeLocked(tok ObserverToken) {
	for i, m := range s.members {
		if m.token == tok {
			close(m.ch)
			s.members = append(s.members[:i], s.members[i+1:]...)
			return
		}
	}
}

// Deliver fans msg out to every current observer, bounded by s.deadline
// per observer. Observers that miss their deadline are removed.
func (s *observerSet) Deliver(msg model.TacticalMessage) {
	s.mu.Lock()
	targets := make([]observer, len(s.members))
	copy(targets, s.members)
	s.mu.Unlock()

	delivery := Delivery{Type: "message", Data: msg}
	var expired []ObserverToken

	for _, m := range targets {
		select {
		case m.ch <- delivery:
		case <-time.After(s.deadline):
			s.logger.WithField("token", m.token).Warn("observer missed delivery deadline, removing")
			expired = append(expired, m.token)
		}
	}

	if len(expired) == 0 {
		return
	}
	s.mu.Lock()
	for _, tok := range expired {
		s.removeLocked(tok)
	}
	s.mu.Unlock()
}
