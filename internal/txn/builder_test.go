package txn

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

var owner = model.Owner{Provider: "prov", Address: "addr"}

func newSigner(t *testing.T, o model.Owner) *keys.Signer {
	t.Helper()
	s, err := keys.NewSigner(o, bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func fixedBuilder() *Builder {
	return &Builder{Now: func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 900, time.UTC) }}
}

func TestBuildAndVerify(t *testing.T) {
	s := newSigner(t, owner)
	ref := "title-id"
	tx, err := fixedBuilder().Build(owner, &ref, []byte{0x03, 0x00}, "user-sig", s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tx.AssetRef != "title-id" || tx.UserSignature != "user-sig" || tx.ID == "" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if tx.Timestamp.Nanosecond() != 0 {
		t.Fatalf("timestamp not truncated: %v", tx.Timestamp)
	}
	if err := Verify(s.PublicKey(), owner, tx); err != nil {
		t.Fatalf("verify: %v", err)
	}
	got, err := Contents(tx)
	if err != nil || !bytes.Equal(got, []byte{0x03, 0x00}) {
		t.Fatalf("contents %x err=%v", got, err)
	}
}

func TestBuildDefaultsAssetRef(t *testing.T) {
	tx, err := fixedBuilder().Build(owner, nil, []byte("x"), "sig", newSigner(t, owner))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if tx.AssetRef != NoAssetRef {
		t.Fatalf("asset ref = %q", tx.AssetRef)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	s := newSigner(t, owner)
	tx, err := fixedBuilder().Build(owner, nil, []byte("x"), "sig", s)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	tampered := *tx
	tampered.UserSignature = "other"
	if err := Verify(s.PublicKey(), owner, &tampered); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
	renamed := *tx
	renamed.ID = "forged"
	if err := Verify(s.PublicKey(), owner, &renamed); !errors.Is(err, ErrBadID) {
		t.Fatalf("expected ErrBadID, got %v", err)
	}
}

func TestBuildRejectsForeignSigner(t *testing.T) {
	other := newSigner(t, model.Owner{Provider: "prov", Address: "someone-else"})
	if _, err := fixedBuilder().Build(owner, nil, []byte("x"), "sig", other); err == nil {
		t.Fatalf("expected error for mismatched signer")
	}
}
