// Package disk stores msgpack encoded reports in a directory.
// Files are replaced atomically.
package disk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/romshark/routelint/analysis"
	"github.com/romshark/routelint/modules/reportstore"
)

var _ reportstore.Store = (*Store)(nil)

// Store is safe for concurrent use.
type Store struct {
	log *slog.Logger
	mu  sync.RWMutex
	dir string
}

// DefaultDir returns the report directory under the user cache
// directory, honoring XDG_CACHE_HOME.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "routelint", "reports"), nil
}

// Open creates dir if needed. log may be nil.
func Open(dir string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	return &Store{log: log, dir: dir}, nil
}

func (s *Store) pathFor(digest string) string {
	// Two-char fan-out keeps directories small.
	return filepath.Join(s.dir, digest[:2], digest+".mp")
}

func (s *Store) Put(ctx context.Context, digest string, r *analysis.Report) (err error) {
	if err := reportstore.ValidateDigest(digest); err != nil {
		return err
	}
	if r == nil {
		return reportstore.ErrNilReport
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.pathFor(digest)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.log.Warn("removing temp report file",
				slog.String("path", f.Name()), slog.Any("err", rmErr))
		}
	}()

	if err = analysis.EncodeReport(f, r); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding report: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

func (s *Store) Get(
	ctx context.Context, digest string,
) (*analysis.Report, bool, error) {
	if err := reportstore.ValidateDigest(digest); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.pathFor(digest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()

	r, err := analysis.DecodeReport(f)
	if errors.Is(err, analysis.ErrReportSchema) {
		// Reports of older tool versions are misses.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("decoding report: %w", err)
	}
	return r, true, nil
}

// DropAll removes every stored report.
func (s *Store) DropAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
