package gcs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/JonMunkholm/gwasupload/internal/core"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://gwas-uploads/study/1.tsv.gz", "gwas-uploads", "study/1.tsv.gz", false},
		{"gs://bucket/x", "bucket", "x", false},
		{"gs://bucket", "", "", true},
		{"gs://bucket/", "", "", true},
		{"gs:///object", "", "", true},
		{"/local/file.tsv", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, object, err := ParseURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || object != tt.object {
				t.Errorf("ParseURL = (%q, %q)", bucket, object)
			}
		})
	}
}

func fakeObject(data []byte) *ObjectSource {
	return &ObjectSource{
		ctx:  context.Background(),
		name: "gs://b/o",
		size: int64(len(data)),
		newRange: func(_ context.Context, off, length int64) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data[off : off+length])), nil
		},
	}
}

func TestObjectSource_ReadAt(t *testing.T) {
	src := fakeObject([]byte("#chrom\tpos\n1\t100\n"))

	buf := make([]byte, 6)
	n, err := src.ReadAt(buf, 0)
	if err != nil || string(buf[:n]) != "#chrom" {
		t.Errorf("ReadAt(0) = %q, %v", buf[:n], err)
	}

	buf = make([]byte, 100)
	n, err = src.ReadAt(buf, 11)
	if !errors.Is(err, io.EOF) || string(buf[:n]) != "1\t100\n" {
		t.Errorf("ReadAt past end = %q, %v", buf[:n], err)
	}

	if n, err := src.ReadAt(buf, 500); n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt beyond size = %d, %v", n, err)
	}
}

func TestObjectSource_FeedsReader(t *testing.T) {
	var src core.ByteSource = fakeObject([]byte("#chrom\tpos\n1\t100\n1\t200\n"))
	r := core.NewReader("gs://b/o.tsv", src, core.ReaderOptions{})
	lines, err := r.Lines(context.Background())
	if err != nil {
		t.Fatalf("Lines: %v", err)
	}
	if len(lines) != 3 {
		t.Errorf("lines = %q", lines)
	}
}

func TestObjectSource_RangeError(t *testing.T) {
	src := &ObjectSource{
		ctx:  context.Background(),
		name: "gs://b/o",
		size: 10,
		newRange: func(context.Context, int64, int64) (io.ReadCloser, error) {
			return nil, errors.New("permission denied")
		},
	}
	if _, err := src.ReadAt(make([]byte, 4), 0); err == nil {
		t.Error("expected error")
	}
}
