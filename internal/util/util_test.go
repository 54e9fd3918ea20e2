package util

import (
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bytes    int64
		expected string
	}{
		{name: "zero bytes", bytes: 0, expected: "0 B"},
		{name: "bytes under kilobyte", bytes: 512, expected: "512 B"},
		{name: "exact kilobyte", bytes: 1024, expected: "1.0 KB"},
		{name: "fractional kilobyte", bytes: 1536, expected: "1.5 KB"},
		{name: "megabyte", bytes: 1024 * 1024, expected: "1.0 MB"},
		{name: "gigabyte", bytes: 5 * 1024 * 1024 * 1024, expected: "5.0 GB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := FormatBytes(tt.bytes); got != tt.expected {
				t.Fatalf("FormatBytes(%d) = %s, want %s", tt.bytes, got, tt.expected)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	t.Parallel()

	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

	sum, err := Checksum(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, empty, sum)
	assert.Equal(t, empty, ChecksumBytes(nil))

	assert.Equal(t, ChecksumBytes([]byte("[]")), ChecksumBytes([]byte("[]")))
	assert.NotEqual(t, ChecksumBytes([]byte("[]")), ChecksumBytes([]byte("[ ]")))

	_, err = Checksum(iotest.ErrReader(assert.AnError))
	assert.ErrorIs(t, err, assert.AnError)
}
