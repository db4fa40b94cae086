// Package msgbroker defines the broker that analysis reports are
// published through.
package msgbroker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/romshark/routelint/analysis"
)

// DefaultBrokerChanBuffer decouples the publisher from the consumer.
// Slow consumers drop messages instead of backpressuring producers.
var DefaultBrokerChanBuffer = 16

// DefaultSubjectPrefix is the subject prefix reports are published under.
const DefaultSubjectPrefix = "routelint.reports"

var (
	ErrEmptySubjectPrefix = errors.New("subject prefix must not be empty")
	ErrNilReport          = errors.New("report is nil")
)

// MessageBroker is a common interface for message brokers.
type MessageBroker interface {
	// Subscribe creates a new subscription to a subject/stream.
	Subscribe(
		ctx context.Context, metrics Metrics, subjects ...string,
	) (MessageBrokerSubscription, error)

	// Publish sends a message to a subject (non-blocking)
	Publish(ctx context.Context, metrics Metrics, subject string, data []byte) error
}

// StreamInitializer is implemented by brokers that must create
// their streams before publishing.
type StreamInitializer interface {
	InitStreams(subjects []string) error
}

// Metrics receives broker instrumentation callbacks.
type Metrics interface {
	OnPublish(subject string)
	OnDeliveryDropped()
}

// MessageBrokerSubscription represents an active message broker subscription.
type MessageBrokerSubscription interface {
	// C returns the channel to receive messages.
	C() <-chan Message

	// Close closes and removes the subscription.
	Close()
}

// Message represents a received message
type Message struct {
	Subject string
	Data    []byte
}

// LogMetrics reports broker callbacks to a logger.
type LogMetrics struct{ Log *slog.Logger }

func (m LogMetrics) OnPublish(subject string) {
	if m.Log != nil {
		m.Log.Debug("report published", slog.String("subject", subject))
	}
}

func (m LogMetrics) OnDeliveryDropped() {
	if m.Log != nil {
		m.Log.Warn("report delivery dropped, subscriber too slow")
	}
}

// ReportSubject returns the subject of a package's reports:
// prefix.token where token is the package path with
// subject separators and wildcards replaced.
func ReportSubject(prefix, pkg string) string {
	return prefix + "." + SubjectToken(pkg)
}

// SubjectToken makes s usable as a single NATS subject token.
func SubjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// PublishReport encodes r in msgpack and publishes it to
// ReportSubject(prefix, r.Package).
func PublishReport(
	ctx context.Context, b MessageBroker, metrics Metrics,
	prefix string, r *analysis.Report,
) error {
	if prefix == "" {
		return ErrEmptySubjectPrefix
	}
	if r == nil {
		return ErrNilReport
	}
	data, err := analysis.MarshalReport(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	subject := ReportSubject(prefix, r.Package)
	if err := b.Publish(ctx, metrics, subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

// DecodeReport decodes the report carried by m.
func DecodeReport(m Message) (*analysis.Report, error) {
	return analysis.UnmarshalReport(m.Data)
}
