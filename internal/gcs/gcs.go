// Package gcs exposes Google Cloud Storage objects as core.ByteSource, so the
// gwascheck CLI can preview a file in a bucket by fetching only its first
// few kilobytes.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

const scheme = "gs://"

// IsURL reports whether path names a Cloud Storage object.
func IsURL(path string) bool {
	return strings.HasPrefix(path, scheme)
}

// ParseURL splits gs://bucket/object into its parts.
func ParseURL(path string) (bucket, object string, err error) {
	if !IsURL(path) {
		return "", "", fmt.Errorf("%s: not a %s URL", path, scheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(path, scheme), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%s: want %sbucket/object", path, scheme)
	}
	return parts[0], parts[1], nil
}

type rangeFunc func(ctx context.Context, offset, length int64) (io.ReadCloser, error)

// ObjectSource reads byte ranges of one object. Each ReadAt is a separate
// ranged GET.
type ObjectSource struct {
	ctx      context.Context
	name     string
	size     int64
	newRange rangeFunc
}

// Open looks up the object's size and returns a source for it. Objects
// stored with gzip content encoding are read as stored, not transcoded, so
// the preview decoder sees the same bytes a browser upload would carry.
func Open(ctx context.Context, client *storage.Client, path string) (*ObjectSource, error) {
	bucket, object, err := ParseURL(path)
	if err != nil {
		return nil, err
	}
	handle := client.Bucket(bucket).Object(object).ReadCompressed(true)

	attrs, err := handle.Attrs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ObjectSource{
		ctx:  ctx,
		name: path,
		size: attrs.Size,
		newRange: func(ctx context.Context, offset, length int64) (io.ReadCloser, error) {
			return handle.NewRangeReader(ctx, offset, length)
		},
	}, nil
}

// Name returns the gs:// URL of the object.
func (o *ObjectSource) Name() string { return o.name }

// Size returns the object size recorded at Open.
func (o *ObjectSource) Size() int64 { return o.size }

// ReadAt satisfies io.ReaderAt. Reads past the end of the object return the
// available bytes and io.EOF.
func (o *ObjectSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= o.size {
		return 0, io.EOF
	}
	want := int64(len(p))
	if rest := o.size - off; want > rest {
		want = rest
	}

	rdr, err := o.newRange(o.ctx, off, want)
	if err != nil {
		return 0, fmt.Errorf("%s: range %d+%d: %w", o.name, off, want, err)
	}
	defer rdr.Close()

	n, err := io.ReadFull(rdr, p[:want])
	if err != nil {
		return n, fmt.Errorf("%s: %w", o.name, err)
	}
	if int64(n) < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}
