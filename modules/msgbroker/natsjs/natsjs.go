// Package natsjs provides a NATS JetStream backed message broker
// with fan-out delivery semantics.
package natsjs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/romshark/routelint/modules/msgbroker"
)

var (
	_ msgbroker.MessageBroker     = (*MessageBroker)(nil)
	_ msgbroker.StreamInitializer = (*MessageBroker)(nil)
)

// DefaultStreamName is the stream created by InitStreams
// unless Config.StreamConfig names one.
const DefaultStreamName = "ROUTELINT_REPORTS"

type MessageBroker struct {
	nc   *nats.Conn
	js   nats.JetStreamContext
	conf Config
}

type Config struct {
	StreamConfig *nats.StreamConfig
	ChanBuffer   int
}

// natsSub fans core NATS deliveries of several subjects into one channel.
type natsSub struct {
	ch      chan msgbroker.Message
	metrics msgbroker.Metrics
	subs    []*nats.Subscription

	lock    sync.Mutex
	closed  bool
	pending sync.WaitGroup
	once    sync.Once
}

func New(nc *nats.Conn, conf Config) (*MessageBroker, error) {
	if conf.ChanBuffer <= 0 {
		conf.ChanBuffer = msgbroker.DefaultBrokerChanBuffer
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("initializing jetstream: %w", err)
	}

	return &MessageBroker{nc: nc, js: js, conf: conf}, nil
}

// InitStreams implements msgbroker.StreamInitializer.
// Reports are kept per subject, only the latest one is retained.
func (b *MessageBroker) InitStreams(subjects []string) error {
	var conf nats.StreamConfig
	if b.conf.StreamConfig != nil {
		conf = *b.conf.StreamConfig
	}
	if conf.Name == "" {
		conf.Name = DefaultStreamName
	}
	if conf.Description == "" {
		conf.Description = "route pattern analysis reports published by routelint"
	}
	if conf.MaxMsgsPerSubject == 0 {
		conf.MaxMsgsPerSubject = 1
	}
	conf.Subjects = subjects

	_, err := b.js.AddStream(&conf)
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("adding stream: %w", err)
	}
	return nil
}

func (b *MessageBroker) Publish(
	ctx context.Context,
	metrics msgbroker.Metrics,
	subject string,
	data []byte,
) error {
	_, err := b.js.Publish(subject, data, nats.Context(ctx))
	if err == nil {
		metrics.OnPublish(subject)
	}
	return err
}

func (b *MessageBroker) Subscribe(
	_ context.Context, metrics msgbroker.Metrics, subjects ...string,
) (msgbroker.MessageBrokerSubscription, error) {
	s := &natsSub{
		ch:      make(chan msgbroker.Message, b.conf.ChanBuffer),
		metrics: metrics,
		subs:    make([]*nats.Subscription, 0, len(subjects)),
	}
	for _, subject := range subjects {
		ns, err := b.nc.Subscribe(subject, s.receive)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("subscribing to %q: %w", subject, err)
		}
		s.subs = append(s.subs, ns)
	}
	return s, nil
}

// receive runs on the NATS delivery goroutine.
func (s *natsSub) receive(m *nats.Msg) {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.pending.Add(1)
	s.lock.Unlock()
	defer s.pending.Done()

	select {
	case s.ch <- msgbroker.Message{Subject: m.Subject, Data: bytes.Clone(m.Data)}:
	default:
		s.metrics.OnDeliveryDropped()
	}
}

func (s *natsSub) C() <-chan msgbroker.Message { return s.ch }

// Close unsubscribes, waits for running deliveries and closes C.
// It is safe to call more than once.
func (s *natsSub) Close() {
	s.once.Do(func() {
		s.lock.Lock()
		s.closed = true
		s.lock.Unlock()
		for _, ns := range s.subs {
			_ = ns.Unsubscribe()
		}
		s.pending.Wait()
		close(s.ch)
	})
}
