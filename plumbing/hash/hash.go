// Package hash provides a way for managing the
// underlying hash implementation used across packcheck.
package hash

import (
	"crypto"
	"fmt"
	"hash"

	"github.com/pjbgf/sha1cd"
)

const (
	// CryptoType defines what hash algorithm is being used.
	CryptoType = crypto.SHA1
	// Size defines the amount of bytes the hash yields.
	Size = 20
	// HexSize defines the strings size of the hash when represented in hexadecimal.
	HexSize = 40
)

// algos is a map of hash algorithms.
var algos = map[crypto.Hash]func() hash.Hash{}

func init() {
	// sha1cd is used instead of crypto/sha1 so that object hashing is
	// resistant to SHAttered-style collision attacks.
	if err := RegisterHash(crypto.SHA1, sha1cd.New); err != nil {
		panic(err)
	}
}

// RegisterHash allows for the hash algorithm used to be overridden.
// This ensures the hash selection for packcheck must be explicit, when
// overriding the default value.
func RegisterHash(h crypto.Hash, f func() hash.Hash) error {
	if f == nil {
		return fmt.Errorf("cannot register hash: f is nil")
	}

	switch h {
	case crypto.SHA1:
		algos[h] = f
	default:
		return fmt.Errorf("unsupported hash function: %v", h)
	}

	return nil
}

// Hash is the same as hash.Hash. This allows consumers
// to not having to import this package alongside "hash".
type Hash interface {
	hash.Hash
}

// New returns a new Hash for the given hash function.
// It panics if the hash function is not registered.
func New(h crypto.Hash) Hash {
	hh, ok := algos[h]
	if !ok {
		panic(fmt.Sprintf("hash algorithm not registered: %v", h))
	}
	return hh()
}
