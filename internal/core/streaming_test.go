package core

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestNewTextReader(t *testing.T) {
	bom := []byte{0xEF, 0xBB, 0xBF}

	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "file with BOM",
			input:    append(append([]byte{}, bom...), []byte("id,status")...),
			expected: "id,status",
		},
		{
			name:     "file without BOM",
			input:    []byte("id,status"),
			expected: "id,status",
		},
		{
			name:     "empty file",
			input:    []byte{},
			expected: "",
		},
		{
			name:     "only BOM",
			input:    bom,
			expected: "",
		},
		{
			name:     "cyrillic kept",
			input:    []byte("status\nПланируется\n"),
			expected: "status\nПланируется\n",
		},
		{
			name:     "invalid byte replaced",
			input:    []byte{'a', 0x80, 'b'},
			expected: "a\uFFFDb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewTextReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestWrapForStreaming_CountsRawBytes(t *testing.T) {
	input := "\xEF\xBB\xBFid,ip\n1,10.0.0.1\n"

	r, counter := WrapForStreaming(strings.NewReader(input), int64(len(input)))
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(got) != "id,ip\n1,10.0.0.1\n" {
		t.Errorf("got %q", got)
	}
	if counter.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", counter.BytesRead, len(input))
	}
	if counter.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", counter.Progress())
	}
}

func TestCountingReader_UnknownTotal(t *testing.T) {
	c := &CountingReader{reader: strings.NewReader("abc")}
	if _, err := io.ReadAll(c); err != nil {
		t.Fatal(err)
	}
	if c.Progress() != 0 {
		t.Errorf("Progress() = %d, want 0 with unknown total", c.Progress())
	}
}
