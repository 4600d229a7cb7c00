package core

// source.go defines ByteSource, the handle the pipeline reads file bytes from.
//
// A ByteSource never has to hold the whole file. The preview only ever reads
// offset 0 up to the preview budget, so a source built from the first few
// kilobytes of a multipart stream (PrefixSource) is as good as the file itself
// as long as it reports the real total size.

import (
	"fmt"
	"io"
	"os"
)

// ByteSource is file-like binary data with a known total size and random
// access reads. Implementations must be safe for concurrent ReadAt calls.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// BytesSource is a ByteSource over an in-memory byte slice.
type BytesSource []byte

// Size returns the length of the slice.
func (b BytesSource) Size() int64 { return int64(len(b)) }

// ReadAt implements io.ReaderAt.
func (b BytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// PrefixSource holds only the leading bytes of a larger file. Size reports
// the full file size; reads past the held prefix end with io.EOF.
type PrefixSource struct {
	prefix []byte
	total  int64
}

// NewPrefixSource creates a source whose first len(prefix) bytes are known
// and whose total size is total. A total smaller than the prefix is raised
// to the prefix length.
func NewPrefixSource(prefix []byte, total int64) *PrefixSource {
	if total < int64(len(prefix)) {
		total = int64(len(prefix))
	}
	return &PrefixSource{prefix: prefix, total: total}
}

// Size returns the declared size of the whole file.
func (s *PrefixSource) Size() int64 { return s.total }

// ReadAt implements io.ReaderAt over the held prefix.
func (s *PrefixSource) ReadAt(p []byte, off int64) (int, error) {
	return BytesSource(s.prefix).ReadAt(p, off)
}

// FileSource is a ByteSource backed by an open file.
type FileSource struct {
	f    *os.File
	size int64
}

// OpenFile opens path as a ByteSource. The caller must Close it.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &FileSource{f: f, size: info.Size()}, nil
}

// Size returns the file size at open time.
func (s *FileSource) Size() int64 { return s.size }

// ReadAt implements io.ReaderAt.
func (s *FileSource) ReadAt(p []byte, off int64) (int, error) { return s.f.ReadAt(p, off) }

// Close closes the underlying file.
func (s *FileSource) Close() error { return s.f.Close() }

// readPrefix reads up to n bytes from the start of src. Running into the end
// of the source is not an error.
func readPrefix(src ByteSource, n int) ([]byte, error) {
	if size := src.Size(); size < int64(n) {
		n = int(size)
	}
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := src.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}
