// Package inmem provides an in-memory message broker with fan-out
// delivery semantics. Slow subscribers miss messages
// (matching NATS core behavior).
//
// Reports published to it never leave the process. It serves
// `routelint watch` when no NATS server is configured and tests.
package inmem

import (
	"bytes"
	"context"
	"sync"

	"github.com/romshark/routelint/modules/msgbroker"
)

var _ msgbroker.MessageBroker = (*MessageBroker)(nil)

// MessageBroker is an in-memory message broker.
type MessageBroker struct {
	chanBuffer int
	lock       sync.RWMutex
	subs       map[string]map[*memSub]struct{}
	wildcard   map[*memSub]struct{}
}

type memSub struct {
	ch      chan msgbroker.Message
	topics  []string
	broker  *MessageBroker
	closed  bool
	closeMu sync.Mutex
}

// New creates a broker. chanBuffer <= 0 selects
// msgbroker.DefaultBrokerChanBuffer.
func New(chanBuffer int) *MessageBroker {
	if chanBuffer <= 0 {
		chanBuffer = msgbroker.DefaultBrokerChanBuffer
	}
	return &MessageBroker{
		chanBuffer: chanBuffer,
		subs:       make(map[string]map[*memSub]struct{}),
		wildcard:   make(map[*memSub]struct{}),
	}
}

func (b *MessageBroker) Close() error {
	return nil
}

func (b *MessageBroker) Publish(
	ctx context.Context,
	metrics msgbroker.Metrics,
	subject string,
	data []byte,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.lock.RLock()
	defer b.lock.RUnlock()
	subs := b.subs[subject]

	if len(subs) == 0 && len(b.wildcard) == 0 {
		return nil
	}

	msg := msgbroker.Message{
		Subject: subject,
		Data:    bytes.Clone(data),
	}
	metrics.OnPublish(subject)

	deliver := func(sub *memSub) {
		select {
		case sub.ch <- msg:
		default: // Drop if subscriber is slow (matches NATS core semantics).
			metrics.OnDeliveryDropped()
		}
	}
	for sub := range subs {
		deliver(sub)
	}
	for sub := range b.wildcard {
		if _, exact := subs[sub]; !exact && sub.matches(subject) {
			deliver(sub)
		}
	}

	return nil
}

// Subscribe subscribes to exact subjects or to subjects ending with
// the ">" wildcard, like "routelint.reports.>".
func (b *MessageBroker) Subscribe(
	ctx context.Context, metrics msgbroker.Metrics, subjects ...string,
) (msgbroker.MessageBrokerSubscription, error) {
	sub := &memSub{
		ch:     make(chan msgbroker.Message, b.chanBuffer),
		topics: subjects,
		broker: b,
	}

	b.lock.Lock()
	for _, subject := range subjects {
		if isWildcard(subject) {
			b.wildcard[sub] = struct{}{}
			continue
		}
		m, ok := b.subs[subject]
		if !ok {
			m = make(map[*memSub]struct{})
			b.subs[subject] = m
		}
		m[sub] = struct{}{}
	}
	b.lock.Unlock()

	return sub, nil
}

func isWildcard(subject string) bool {
	return subject == ">" || (len(subject) > 2 && subject[len(subject)-2:] == ".>")
}

// matches reports whether subject matches one of the wildcard topics.
func (s *memSub) matches(subject string) bool {
	for _, t := range s.topics {
		if !isWildcard(t) {
			continue
		}
		prefix := t[:len(t)-1] // keep the trailing dot
		if t == ">" || (len(subject) > len(prefix) && subject[:len(prefix)] == prefix) {
			return true
		}
	}
	return false
}

func (s *memSub) C() <-chan msgbroker.Message {
	return s.ch
}

func (s *memSub) Close() {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	b := s.broker
	b.lock.Lock()
	delete(b.wildcard, s)
	for _, subject := range s.topics {
		if m, ok := b.subs[subject]; ok {
			delete(m, s)
			if len(m) == 0 {
				delete(b.subs, subject)
			}
		}
	}
	b.lock.Unlock()

	close(s.ch)
}
