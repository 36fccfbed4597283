// Package keys provides the application signer for each ledger owner.
package keys

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
)

// Signer signs transactions on behalf of one owner.
type Signer struct {
	owner model.Owner
	priv  ed25519.PrivateKey
}

// NewSigner wraps an ed25519 seed.
func NewSigner(owner model.Owner, seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signer seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Signer{owner: owner, priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *Signer) Owner() model.Owner { return s.owner }

func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.priv.Public().(ed25519.PublicKey)
}

// Sign returns an ed25519 signature over sha3-256(msg).
func (s *Signer) Sign(msg []byte) []byte {
	digest := sha3.Sum256(msg)
	return ed25519.Sign(s.priv, digest[:])
}

// Verify checks a signature produced by Signer.Sign.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	digest := sha3.Sum256(msg)
	return ed25519.Verify(pub, digest[:], sig)
}

// Source loads owner signers from the store, provisioning a key the first
// time an owner is seen.
type Source struct {
	keys store.Keys
}

func NewSource(keys store.Keys) *Source { return &Source{keys: keys} }

// Get returns the owner's signer.
func (s *Source) Get(ctx context.Context, owner model.Owner) (*Signer, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	seed, err := s.keys.Get(ctx, owner)
	if errors.Is(err, model.ErrNotFound) {
		fresh := make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(fresh); err != nil {
			return nil, fmt.Errorf("generate signer key: %w", err)
		}
		seed, err = s.keys.PutIfAbsent(ctx, owner, fresh)
	}
	if err != nil {
		return nil, fmt.Errorf("load signer for %s: %w", owner, err)
	}
	return NewSigner(owner, seed)
}

// Lookup returns the owner's public key without provisioning one.
func (s *Source) Lookup(ctx context.Context, owner model.Owner) (ed25519.PublicKey, error) {
	seed, err := s.keys.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	signer, err := NewSigner(owner, seed)
	if err != nil {
		return nil, err
	}
	return signer.PublicKey(), nil
}
