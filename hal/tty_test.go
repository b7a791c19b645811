package hal

import (
	"bytes"
	"testing"
)

func TestCRLFWriter(t *testing.T) {
	tcs := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"line\n", "line\r\n"},
		{"\n\n", "\r\n\r\n"},
		{"a\nb\nc", "a\r\nb\r\nc"},
	}
	for _, tc := range tcs {
		var out bytes.Buffer
		n, err := CRLFWriter{W: &out}.Write([]byte(tc.in))
		if err != nil {
			t.Fatalf("Write(%q) error = %v", tc.in, err)
		}
		if n != len(tc.in) {
			t.Fatalf("Write(%q) n = %d, want %d", tc.in, n, len(tc.in))
		}
		if got := out.String(); got != tc.want {
			t.Fatalf("Write(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
