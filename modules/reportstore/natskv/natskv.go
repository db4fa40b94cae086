// Package natskv stores msgpack encoded reports in a NATS Key-Value bucket.
// Keys are the content digests of the analyzed packages.
package natskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/modules/reportstore"
)

// DefaultBucket is the default bucket name.
const DefaultBucket = "ROUTELINT_REPORTS"

var _ reportstore.Store = (*Store)(nil)

// Config configures the store.
type Config struct {
	KVConfig nats.KeyValueConfig
}

// Store is backed by NATS KV.
type Store struct {
	kv nats.KeyValue
}

// New opens the bucket, creating it if it doesn't exist.
func New(conn *nats.Conn, conf Config) (*Store, error) {
	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	kvConfig := conf.KVConfig
	if kvConfig.Bucket == "" {
		kvConfig.Bucket = DefaultBucket
	}
	if kvConfig.Description == "" {
		kvConfig.Description = "routelint reports by package digest"
	}

	// Get the existing bucket first, create if not found.
	kv, err := js.KeyValue(kvConfig.Bucket)
	switch {
	case errors.Is(err, nats.ErrBucketNotFound):
		kv, err = js.CreateKeyValue(&kvConfig)
		if err != nil {
			return nil, fmt.Errorf("creating new KV bucket: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("opening KV bucket: %w", err)
	}
	return &Store{kv: kv}, nil
}

func (s *Store) Put(_ context.Context, digest string, r *analysis.Report) error {
	if err := reportstore.ValidateDigest(digest); err != nil {
		return err
	}
	if r == nil {
		return reportstore.ErrNilReport
	}
	payload, err := analysis.MarshalReport(r)
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	if _, err := s.kv.Put(digest, payload); err != nil {
		return fmt.Errorf("storing report in KV: %w", err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, digest string) (*analysis.Report, bool, error) {
	if err := reportstore.ValidateDigest(digest); err != nil {
		return nil, false, err
	}
	entry, err := s.kv.Get(digest)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading report from KV: %w", err)
	}
	r, err := analysis.UnmarshalReport(entry.Value())
	if errors.Is(err, analysis.ErrReportSchema) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("decoding report: %w", err)
	}
	return r, true, nil
}

// Delete removes a report. No error if it doesn't exist.
func (s *Store) Delete(_ context.Context, digest string) error {
	if err := reportstore.ValidateDigest(digest); err != nil {
		return err
	}
	if err := s.kv.Delete(digest); err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("deleting report: %w", err)
	}
	return nil
}

// Digests returns the digests of all stored reports.
func (s *Store) Digests(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(nats.Context(ctx))
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil, nil
	}
	return keys, err
}
