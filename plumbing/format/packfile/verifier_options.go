package packfile

import (
	"io"

	"github.com/go-pack/packcheck/plumbing/cache"
)

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithProgress sets a writer that receives a remaining-entry counter at a
// fixed cadence during the scan. It is operator feedback only and carries
// no correctness semantics.
func WithProgress(w io.Writer) VerifierOption {
	return func(v *Verifier) {
		v.progress = w
	}
}

// WithObjectCache sets the cache used for expanded objects during delta
// resolution. Defaults to an LRU cache with the default size.
func WithObjectCache(c cache.Object) VerifierOption {
	return func(v *Verifier) {
		v.cache = c
	}
}
