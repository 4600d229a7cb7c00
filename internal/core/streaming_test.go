package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append([]byte{0xEF, 0xBB, 0xBF}, []byte("#chrom\tpos")...),
			expected: "#chrom\tpos",
		},
		{
			name:     "file without BOM",
			input:    []byte("#chrom\tpos"),
			expected: "#chrom\tpos",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    []byte{0xEF, 0xBB, 0xBF},
			expected: "",
		},
		{
			name:     "partial BOM at start",
			input:    []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			expected: string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:     "shorter than a BOM",
			input:    []byte("ab"),
			expected: "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestBOMSkippingReader_SmallBuffer(t *testing.T) {
	reader := NewBOMSkippingReader(strings.NewReader("abcdef"))
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
	if string(out) != "abcdef" {
		t.Errorf("got %q, want %q", out, "abcdef")
	}
}

func TestCountingReader(t *testing.T) {
	data := strings.Repeat("1\t100\tA\tG\t0.5\n", 100)
	reader := NewCountingReader(strings.NewReader(data))

	n, err := io.Copy(io.Discard, reader)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if reader.BytesRead != n || n != int64(len(data)) {
		t.Errorf("BytesRead = %d, copied %d, want %d", reader.BytesRead, n, len(data))
	}
}
