// Package reportstore defines stores of analysis reports keyed by
// the content digest of the analyzed package.
package reportstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/romshark/routelint/analysis"
)

var (
	ErrInvalidDigest = errors.New("digest must be 64 lower case hex characters")
	ErrNilReport     = errors.New("report is nil")
)

// Store keeps the latest report per digest.
type Store interface {
	// Get returns ok=false if no report is stored for digest.
	Get(ctx context.Context, digest string) (r *analysis.Report, ok bool, err error)

	// Put stores r under digest, replacing any previous report.
	Put(ctx context.Context, digest string, r *analysis.Report) error
}

// Digest returns the SHA-256 of the package files, the tool configuration
// and the tool version. The order of files doesn't matter.
func Digest(files []string, config []byte, version string) (string, error) {
	files = slices.Clone(files)
	slices.Sort(files)

	h := sha256.New()
	writeField(h, []byte(version))
	writeField(h, config)
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return "", err
		}
		st, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return "", err
		}
		writeField(h, []byte(name))
		_ = binary.Write(h, binary.LittleEndian, st.Size())
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", name, err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeField writes b with a length prefix.
func writeField(w io.Writer, b []byte) {
	_ = binary.Write(w, binary.LittleEndian, uint64(len(b)))
	_, _ = w.Write(b)
}

// ValidateDigest returns ErrInvalidDigest unless d is a hex encoded SHA-256.
func ValidateDigest(d string) error {
	if len(d) != sha256.Size*2 {
		return ErrInvalidDigest
	}
	for i := range len(d) {
		c := d[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ErrInvalidDigest
		}
	}
	return nil
}
