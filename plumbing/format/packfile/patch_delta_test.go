package packfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pack/packcheck/internal/packtest"
)

func TestPatchDeltaInsert(t *testing.T) {
	t.Parallel()

	base := []byte("the quick brown fox")
	target := []byte("an entirely unrelated text")

	got, err := PatchDelta(base, packtest.InsertDelta(base, target))
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestPatchDeltaCopy(t *testing.T) {
	t.Parallel()

	base := []byte("hello\n")
	suffix := []byte("world\n")

	got, err := PatchDelta(base, packtest.AppendDelta(base, suffix))
	require.NoError(t, err)
	assert.Equal(t, []byte("hello\nworld\n"), got)
}

func TestPatchDeltaLargeInsert(t *testing.T) {
	t.Parallel()

	// Larger than the 127-byte insert instruction limit, so the delta
	// splits it across several instructions.
	target := bytes.Repeat([]byte("0123456789"), 40)

	got, err := PatchDelta(nil, packtest.InsertDelta(nil, target))
	require.NoError(t, err)
	assert.Equal(t, target, got)
}

func TestPatchDeltaErrors(t *testing.T) {
	t.Parallel()

	base := []byte("abcdef")

	tests := []struct {
		name  string
		delta []byte
		want  error
	}{
		{
			name:  "too short",
			delta: []byte{0},
			want:  ErrInvalidDelta,
		},
		{
			name:  "source size mismatch",
			delta: packtest.InsertDelta([]byte("wrong size"), []byte("abc")),
			want:  ErrInvalidDelta,
		},
		{
			name: "truncated instructions",
			// Sizes decode fine but no instruction bytes follow.
			delta: []byte{6, 3, 0x91, 0x00},
			want:  ErrInvalidDelta,
		},
		{
			name:  "reserved command",
			delta: []byte{6, 3, 0x00, 0x00},
			want:  ErrDeltaCmd,
		},
		{
			name: "copy beyond source",
			// Copy 4 bytes from offset 4 of a 6 byte source.
			delta: []byte{6, 4, 0x91, 0x04, 0x04},
			want:  ErrInvalidDelta,
		},
		{
			name:  "insert beyond declared target",
			delta: []byte{6, 2, 0x05, 'a', 'b', 'c', 'd', 'e'},
			want:  ErrInvalidDelta,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := PatchDelta(base, tc.delta)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
