package packfile

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"testing"

	fixtures "github.com/go-git/go-git-fixtures/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pack/packcheck/internal/packtest"
	"github.com/go-pack/packcheck/plumbing"
)

func TestVerifyReportSingleBlob(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(1)
	offset := b.Object(plumbing.BlobObject, []byte("hello"))
	require.Equal(t, int64(12), offset, "first entry follows the 12 byte header")

	v := NewVerifier(bytes.NewReader(b.Build()))
	require.NoError(t, v.Verify())

	var out bytes.Buffer
	require.NoError(t, v.WriteReport(&out))

	h := plumbing.ComputeHash(plumbing.BlobObject, []byte("hello"))
	assert.Equal(t, fmt.Sprintf("%s blob   5 5 12\n", h), out.String())
}

func TestVerifyOFSDeltaChain(t *testing.T) {
	t.Parallel()

	base := []byte("hello\n")
	target1 := append(append([]byte{}, base...), []byte("world\n")...)
	target2 := append(append([]byte{}, target1...), []byte("!\n")...)

	delta1 := packtest.AppendDelta(base, []byte("world\n"))
	delta2 := packtest.AppendDelta(target1, []byte("!\n"))

	b := packtest.NewBuilder(3)
	baseOffset := b.Object(plumbing.BlobObject, base)
	off1 := b.OFSDelta(baseOffset, delta1)
	off2 := b.OFSDelta(off1, delta2)

	v := NewVerifier(bytes.NewReader(b.Build()))
	require.NoError(t, v.Verify())

	var out bytes.Buffer
	require.NoError(t, v.WriteReport(&out))

	baseHash := plumbing.ComputeHash(plumbing.BlobObject, base)
	hash1 := plumbing.ComputeHash(plumbing.BlobObject, target1)
	hash2 := plumbing.ComputeHash(plumbing.BlobObject, target2)

	want := []string{
		fmt.Sprintf("%s blob   %d %d %d", baseHash, len(base), len(base), baseOffset),
		fmt.Sprintf("%s blob   %d %d %d 1 %s", hash1, len(target1), len(delta1), off1, baseHash),
		fmt.Sprintf("%s blob   %d %d %d 2 %s", hash2, len(target2), len(delta2), off2, hash1),
	}
	// Lines start with the fixed-width hex hash, so sorting them sorts
	// by hash.
	sort.Strings(want)

	assert.Equal(t, strings.Join(want, "\n")+"\n", out.String())
}

func TestVerifyREFDelta(t *testing.T) {
	t.Parallel()

	base := []byte("some content\n")
	target := []byte("rewritten from scratch\n")
	baseHash := plumbing.ComputeHash(plumbing.BlobObject, base)
	delta := packtest.InsertDelta(base, target)

	b := packtest.NewBuilder(2)
	b.Object(plumbing.BlobObject, base)
	off := b.REFDelta(baseHash, delta)

	v := NewVerifier(bytes.NewReader(b.Build()))
	require.NoError(t, v.Verify())

	var out bytes.Buffer
	require.NoError(t, v.WriteReport(&out))

	targetHash := plumbing.ComputeHash(plumbing.BlobObject, target)
	deltaLine := fmt.Sprintf("%s blob   %d %d %d 1 %s\n",
		targetHash, len(target), len(delta), off, baseHash)
	assert.Contains(t, out.String(), deltaLine)
}

func TestVerifyREFDeltaUnknownBase(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(2)
	b.Object(plumbing.BlobObject, []byte("unrelated"))
	b.REFDelta(plumbing.NewHash("0102030405060708090a0b0c0d0e0f1011121314"),
		packtest.InsertDelta(nil, []byte("x")))

	v := NewVerifier(bytes.NewReader(b.Build()))
	err := v.Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBaseNotFound)
}

func TestVerifyOFSDeltaBaseMidEntry(t *testing.T) {
	t.Parallel()

	base := []byte("hello\n")

	b := packtest.NewBuilder(2)
	baseOffset := b.Object(plumbing.BlobObject, base)
	// The displacement lands inside the base entry, where no entry
	// starts. The scan-time range check cannot catch this; it must fail
	// during resolution, never as a silently skipped line.
	b.OFSDelta(baseOffset+3, packtest.AppendDelta(base, []byte("world\n")))

	v := NewVerifier(bytes.NewReader(b.Build()))
	err := v.Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBaseNotFound)

	var out bytes.Buffer
	assert.ErrorIs(t, v.WriteReport(&out), ErrVerifyNotRun)
	assert.Empty(t, out.String())
}

func TestVerifyDeltaFromPlainStream(t *testing.T) {
	t.Parallel()

	base := []byte("hello\n")
	b := packtest.NewBuilder(2)
	baseOffset := b.Object(plumbing.BlobObject, base)
	b.OFSDelta(baseOffset, packtest.AppendDelta(base, []byte("world\n")))

	// io.MultiReader hides the seeker; delta resolution needs to seek
	// back to the base entry and must fail instead of reporting.
	v := NewVerifier(io.MultiReader(bytes.NewReader(b.Build())))
	err := v.Verify()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPackfile)
	assert.ErrorContains(t, err, "seek")
}

func TestVerifyDuplicateContent(t *testing.T) {
	t.Parallel()

	content := []byte("same bytes at two offsets")

	b := packtest.NewBuilder(2)
	first := b.Object(plumbing.BlobObject, content)
	b.Object(plumbing.BlobObject, content)

	v := NewVerifier(bytes.NewReader(b.Build()))
	require.NoError(t, v.Verify())

	var out bytes.Buffer
	require.NoError(t, v.WriteReport(&out))

	h := plumbing.ComputeHash(plumbing.BlobObject, content)
	want := fmt.Sprintf("%s blob   %d %d %d\n", h, len(content), len(content), first)
	assert.Equal(t, want, out.String(), "identical content collapses into one line")
}

func TestVerifyDeterministicReport(t *testing.T) {
	t.Parallel()

	base := []byte("base content\n")
	b := packtest.NewBuilder(3)
	baseOffset := b.Object(plumbing.BlobObject, base)
	b.OFSDelta(baseOffset, packtest.AppendDelta(base, []byte("one\n")))
	b.Object(plumbing.TreeObject, nil)
	pack := b.Build()

	report := func() string {
		v := NewVerifier(bytes.NewReader(pack))
		require.NoError(t, v.Verify())

		var out bytes.Buffer
		require.NoError(t, v.WriteReport(&out))
		return out.String()
	}

	assert.Equal(t, report(), report())
}

func TestVerifyEmptyPack(t *testing.T) {
	t.Parallel()

	v := NewVerifier(bytes.NewReader(packtest.NewBuilder(0).Build()))
	assert.ErrorIs(t, v.Verify(), ErrEmptyPackfile)
}

func TestVerifyCorruptPack(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(1)
	b.Object(plumbing.BlobObject, []byte("hello"))

	v := NewVerifier(bytes.NewReader(b.BuildBroken()))
	require.ErrorIs(t, v.Verify(), ErrMalformedPackfile)

	// A failed verification reports nothing.
	var out bytes.Buffer
	assert.ErrorIs(t, v.WriteReport(&out), ErrVerifyNotRun)
	assert.ErrorIs(t, v.WriteStats(&out), ErrVerifyNotRun)
	assert.Empty(t, out.String())
}

func TestVerifyProgress(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(2)
	b.Object(plumbing.BlobObject, []byte("a"))
	b.Object(plumbing.BlobObject, []byte("b"))

	var progress bytes.Buffer
	v := NewVerifier(bytes.NewReader(b.Build()), WithProgress(&progress))
	require.NoError(t, v.Verify())

	assert.Contains(t, progress.String(), "Verifying objects: 0 remaining\n")
}

func TestVerifyChecksum(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(1)
	b.Object(plumbing.BlobObject, []byte("hello"))
	pack := b.Build()

	v := NewVerifier(bytes.NewReader(pack))
	require.NoError(t, v.Verify())

	checksum := v.Checksum()
	assert.Equal(t, pack[len(pack)-20:], checksum[:])
}

func TestVerifyStats(t *testing.T) {
	t.Parallel()

	base := []byte("the base object content\n")
	target1 := append(append([]byte{}, base...), 'a', '\n')

	b := packtest.NewBuilder(4)
	baseOffset := b.Object(plumbing.BlobObject, base)
	off1 := b.OFSDelta(baseOffset, packtest.AppendDelta(base, []byte("a\n")))
	b.OFSDelta(baseOffset, packtest.AppendDelta(base, []byte("b\n")))
	b.OFSDelta(off1, packtest.AppendDelta(target1, []byte("c\n")))

	v := NewVerifier(bytes.NewReader(b.Build()))
	require.NoError(t, v.Verify())

	var out bytes.Buffer
	require.NoError(t, v.WriteStats(&out))

	want := "non delta: 1 objects\n" +
		"chain length = 1: 2 objects\n" +
		"chain length = 2: 1 objects\n"
	assert.Equal(t, want, out.String())
}

func TestVerifyReportBeforeVerify(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(1)
	b.Object(plumbing.BlobObject, []byte("hello"))

	v := NewVerifier(bytes.NewReader(b.Build()))
	assert.ErrorIs(t, v.WriteReport(&bytes.Buffer{}), ErrVerifyNotRun)
}

func TestVerifyMissingIndexEntry(t *testing.T) {
	t.Parallel()

	b := packtest.NewBuilder(1)
	b.Object(plumbing.BlobObject, []byte("hello"))

	v := NewVerifier(bytes.NewReader(b.Build()))
	require.NoError(t, v.Verify())

	// A pending hash with no record is an internal invariant violation
	// and must fail the report instead of skipping the line.
	v.pending.Add(plumbing.NewHash("ffffffffffffffffffffffffffffffffffffffff"))
	assert.ErrorIs(t, v.WriteReport(&bytes.Buffer{}), ErrMissingIndexEntry)
}

func TestVerifyFixture(t *testing.T) {
	t.Parallel()

	v := NewVerifier(fixtures.Basic().One().Packfile())
	require.NoError(t, v.Verify())
	assert.Equal(t, "a3fed42da1e8189a077c0e6846c040dcf73fc9dd", v.Checksum().String())

	var out bytes.Buffer
	require.NoError(t, v.WriteReport(&out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(t, lines, 31)
	assert.True(t, sort.SliceIsSorted(lines, func(i, j int) bool {
		return lines[i][:40] < lines[j][:40]
	}), "report must be sorted by hash")

	var stats bytes.Buffer
	require.NoError(t, v.WriteStats(&stats))
	assert.Contains(t, stats.String(), "non delta: ")
}
