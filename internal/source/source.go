// Package source enumerates match documents from files, directories, zip
// archives and S3 buckets.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// ErrStop can be returned from a WalkFunc to end a walk early without error.
var ErrStop = errors.New("stop walk")

// Document is one match document as raw bytes.
type Document struct {
	Name string // where it came from: a path, archive member or object URL
	Data []byte
}

// WalkFunc is called once per document, in a stable order.
type WalkFunc func(Document) error

// Source yields match documents.
type Source interface {
	Walk(ctx context.Context, fn WalkFunc) error
	String() string
}

// IsDocument reports whether a file or object name looks like a match document.
func IsDocument(name string) bool {
	base := path.Base(strings.ToLower(name))
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		return false
	}
	return strings.HasSuffix(base, ".json") || strings.HasSuffix(base, ".json.gz")
}

// readDocument reads r fully, gunzipping when name ends in .gz.
func readDocument(name string, r io.Reader) ([]byte, error) {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gunzip %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// S3Options configures S3 locations.
type S3Options struct {
	Region   string
	Endpoint string // custom endpoint, e.g. MinIO
}

// Open picks a Source for a location: an s3://bucket/prefix URL, a .zip
// archive, a single document, or a directory tree.
func Open(ctx context.Context, loc string, s3opts S3Options) (Source, error) {
	if strings.HasPrefix(loc, "s3://") {
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(loc, "s3://"), "/")
		if bucket == "" {
			return nil, fmt.Errorf("s3 location %q has no bucket", loc)
		}
		return NewS3(ctx, bucket, prefix, s3opts)
	}
	fi, err := os.Stat(loc)
	if err != nil {
		return nil, err
	}
	switch {
	case fi.IsDir():
		return Dir(loc), nil
	case strings.HasSuffix(strings.ToLower(loc), ".zip"):
		return Zip(loc), nil
	default:
		return File(loc), nil
	}
}

// Multi walks several sources in order.
type Multi []Source

func (m Multi) Walk(ctx context.Context, fn WalkFunc) error {
	for _, s := range m {
		if err := s.Walk(ctx, fn); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) String() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

// stopped maps ErrStop to a clean return.
func stopped(err error) error {
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
