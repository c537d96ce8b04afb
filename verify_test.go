package packcheck

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pack/packcheck/internal/packtest"
	"github.com/go-pack/packcheck/plumbing"
)

func buildPack(t *testing.T) (pack []byte, checksum plumbing.Hash) {
	t.Helper()

	b := packtest.NewBuilder(2)
	baseOffset := b.Object(plumbing.BlobObject, []byte("hello\n"))
	b.OFSDelta(baseOffset, packtest.AppendDelta([]byte("hello\n"), []byte("world\n")))

	pack = b.Build()
	copy(checksum[:], pack[len(pack)-20:])
	return pack, checksum
}

func TestOpenPack(t *testing.T) {
	pack, checksum := buildPack(t)

	fs := memfs.New()
	path := fs.Join("pack", fmt.Sprintf("pack-%s.pack", checksum))
	require.NoError(t, util.WriteFile(fs, path, pack, 0o644))

	for _, name := range []string{
		path,
		fmt.Sprintf("pack-%s", checksum),
		checksum.String(),
	} {
		f, err := OpenPack(fs, name)
		require.NoError(t, err, "name %q", name)
		require.NoError(t, f.Close())
	}
}

func TestOpenPackNotFound(t *testing.T) {
	fs := memfs.New()

	_, err := OpenPack(fs, "0102030405060708090a0b0c0d0e0f1011121314")
	assert.ErrorIs(t, err, ErrPackNotFound)

	_, err = OpenPack(fs, "not-a-pack-name")
	assert.ErrorIs(t, err, ErrPackNotFound)
}

func TestVerifyPack(t *testing.T) {
	pack, checksum := buildPack(t)

	fs := memfs.New()
	path := fs.Join("pack", fmt.Sprintf("pack-%s.pack", checksum))
	require.NoError(t, util.WriteFile(fs, path, pack, 0o644))

	f, err := OpenPack(fs, checksum.String())
	require.NoError(t, err)
	defer f.Close()

	var out, progress bytes.Buffer
	require.NoError(t, VerifyPack(f, &out, &VerifyOptions{Progress: &progress}))

	baseHash := plumbing.ComputeHash(plumbing.BlobObject, []byte("hello\n"))
	targetHash := plumbing.ComputeHash(plumbing.BlobObject, []byte("hello\nworld\n"))

	assert.Contains(t, out.String(), baseHash.String()+" blob   6 6 12\n")
	assert.Contains(t, out.String(), targetHash.String()+" blob   12 ")
	assert.Contains(t, progress.String(), "remaining")
}

func TestVerifyPackStatOnly(t *testing.T) {
	pack, checksum := buildPack(t)

	fs := memfs.New()
	path := fs.Join("pack", fmt.Sprintf("pack-%s.pack", checksum))
	require.NoError(t, util.WriteFile(fs, path, pack, 0o644))

	f, err := OpenPack(fs, checksum.String())
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	require.NoError(t, VerifyPack(f, &out, &VerifyOptions{StatOnly: true}))

	assert.Equal(t, "non delta: 1 objects\nchain length = 1: 1 objects\n", out.String())
}

func TestVerifyPackCorrupt(t *testing.T) {
	pack, _ := buildPack(t)
	pack[len(pack)-1] ^= 0xff

	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "broken.pack", pack, 0o644))

	f, err := OpenPack(fs, "broken.pack")
	require.NoError(t, err)
	defer f.Close()

	var out bytes.Buffer
	require.Error(t, VerifyPack(f, &out, nil))
	assert.Empty(t, out.String(), "no report lines on a failed verification")
}
