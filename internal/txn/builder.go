// Package txn builds and checks signed ledger transactions.
package txn

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/compactsize"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

// NoAssetRef is the asset reference stored when a transaction references
// nothing.
const NoAssetRef = "AA=="

var (
	ErrBadSignature = errors.New("transaction signature does not verify")
	ErrBadID        = errors.New("transaction id does not match contents")
)

// Builder produces signed transactions. Now is overridable for tests.
type Builder struct {
	Now func() time.Time
}

func NewBuilder() *Builder { return &Builder{Now: time.Now} }

// Build signs contents for owner. assetRef nil means no reference.
func (b *Builder) Build(owner model.Owner, assetRef *string, contents []byte, userSignature string, signer *keys.Signer) (*model.Transaction, error) {
	if signer == nil {
		return nil, errors.New("txn: nil signer")
	}
	if signer.Owner() != owner {
		return nil, fmt.Errorf("txn: signer for %s cannot sign for %s", signer.Owner(), owner)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	t := &model.Transaction{
		Timestamp:     now().UTC().Truncate(time.Second),
		AssetRef:      NoAssetRef,
		Contents:      base64.StdEncoding.EncodeToString(contents),
		UserSignature: userSignature,
	}
	if assetRef != nil {
		t.AssetRef = *assetRef
	}
	msg := signingBytes(owner, t, contents)
	sig := signer.Sign(msg)
	t.AppSignature = base64.StdEncoding.EncodeToString(sig)
	t.ID = transactionID(msg, sig)
	return t, nil
}

// Verify recomputes the signed bytes of t and checks both the app signature
// and the id.
func Verify(pub ed25519.PublicKey, owner model.Owner, t *model.Transaction) error {
	contents, err := base64.StdEncoding.DecodeString(t.Contents)
	if err != nil {
		return fmt.Errorf("txn %s: contents: %w", t.ID, err)
	}
	sig, err := base64.StdEncoding.DecodeString(t.AppSignature)
	if err != nil {
		return fmt.Errorf("txn %s: signature: %w", t.ID, err)
	}
	msg := signingBytes(owner, t, contents)
	if !keys.Verify(pub, msg, sig) {
		return fmt.Errorf("txn %s: %w", t.ID, ErrBadSignature)
	}
	if transactionID(msg, sig) != t.ID {
		return fmt.Errorf("txn %s: %w", t.ID, ErrBadID)
	}
	return nil
}

// Contents decodes the framed bytes carried by t.
func Contents(t *model.Transaction) ([]byte, error) {
	return base64.StdEncoding.DecodeString(t.Contents)
}

func signingBytes(owner model.Owner, t *model.Transaction, contents []byte) []byte {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(t.Timestamp.Unix()))
	return compactsize.EncodeAll(
		[]byte(owner.Address),
		ts[:],
		[]byte(t.AssetRef),
		contents,
		[]byte(t.UserSignature),
	)
}

func transactionID(msg, sig []byte) string {
	h := sha3.New256()
	h.Write(msg)
	h.Write(sig)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
