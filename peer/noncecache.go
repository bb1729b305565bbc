// Copyright (c) 2015 The btcsuite developers
// Copyright (c) 2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"github.com/decred/dcrd/lru"
)

const (
	// DefaultNonceCacheSize is the number of recently sent nonces a
	// NonceCache created with a zero size remembers.
	DefaultNonceCacheSize = 50
)

// NonceCache remembers the nonces of recently sent version messages so a
// handshake can recognize a nonce sent by another handshake of the same
// process.  This is how an outbound connection which loops back to one of our
// own listeners is detected.
//
// A NonceCache is only consulted by handshakes whose Config references it.
// It is safe for concurrent access.
type NonceCache struct {
	cache lru.Cache
}

// NewNonceCache returns a new NonceCache which evicts the least recently added
// nonce once more than size nonces are held.
func NewNonceCache(size uint) *NonceCache {
	if size == 0 {
		size = DefaultNonceCacheSize
	}
	return &NonceCache{
		cache: lru.NewCache(size),
	}
}

// Add records a nonce sent in a version message.
//
// This function is safe for concurrent access.
func (c *NonceCache) Add(nonce uint64) {
	c.cache.Add(nonce)
}

// Exists returns whether or not the nonce was recently sent.
//
// This function is safe for concurrent access.
func (c *NonceCache) Exists(nonce uint64) bool {
	return c.cache.Contains(nonce)
}

// Delete forgets a nonce.
//
// This function is safe for concurrent access.
func (c *NonceCache) Delete(nonce uint64) {
	c.cache.Delete(nonce)
}
