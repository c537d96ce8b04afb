// Package packcheck verifies content-addressable object packs: it scans
// every entry of a packfile, resolves delta entries against their bases,
// computes canonical content hashes over the fully expanded objects and
// emits a deterministic, hash-sorted integrity report.
package packcheck

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	billy "github.com/go-git/go-billy/v5"

	"github.com/go-pack/packcheck/plumbing/format/packfile"
	"github.com/go-pack/packcheck/plumbing/hash"
)

// ErrPackNotFound is returned when a pack cannot be located by name.
var ErrPackNotFound = errors.New("pack not found")

// VerifyOptions describes how a pack verification run behaves.
type VerifyOptions struct {
	// Progress is where remaining-entry updates are written during the
	// scan. When nil, no progress is reported.
	Progress io.Writer
	// StatOnly emits a delta-chain histogram instead of the per-object
	// listing.
	StatOnly bool
}

// VerifyPack runs one verification over the pack read from file, writing
// the integrity report to out.
//
// The report is written only after the whole pack has been scanned and
// every delta resolved; when an error occurs no lines are emitted. Any
// error is fatal for the run: a pack with structural corruption cannot be
// partially trusted.
func VerifyPack(file billy.File, out io.Writer, o *VerifyOptions) error {
	if o == nil {
		o = &VerifyOptions{}
	}

	var opts []packfile.VerifierOption
	if o.Progress != nil {
		opts = append(opts, packfile.WithProgress(o.Progress))
	}

	v := packfile.NewVerifier(file, opts...)
	if err := v.Verify(); err != nil {
		return err
	}

	if o.StatOnly {
		return v.WriteStats(out)
	}

	return v.WriteReport(out)
}

// OpenPack locates a pack within fs by name. The name may be a path to a
// ".pack" file, a "pack-<hash>" name, or a bare pack hash; named packs are
// resolved under the conventional "pack" directory of fs.
func OpenPack(fs billy.Filesystem, name string) (billy.File, error) {
	path, err := resolvePackPath(fs, name)
	if err != nil {
		return nil, err
	}

	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrPackNotFound, name)
		}
		return nil, err
	}

	return f, nil
}

func resolvePackPath(fs billy.Filesystem, name string) (string, error) {
	if strings.HasSuffix(name, ".pack") {
		return name, nil
	}

	h := strings.TrimPrefix(name, "pack-")
	if len(h) != hash.HexSize {
		return "", fmt.Errorf("%w: %q is not a pack path, name or hash", ErrPackNotFound, name)
	}

	return fs.Join("pack", fmt.Sprintf("pack-%s.pack", h)), nil
}
