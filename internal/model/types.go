package model

import (
	"fmt"
	"strings"
	"time"
)

// Owner identifies one partition of the ledger.
type Owner struct {
	Provider string `json:"provider"`
	Address  string `json:"address"`
}

// Validate reports ErrBadRequest when either half of the owner is missing.
func (o Owner) Validate() error {
	if o.Provider == "" || o.Address == "" {
		return fmt.Errorf("%w: owner requires provider and address", ErrBadRequest)
	}
	return nil
}

func (o Owner) String() string { return o.Provider + ":" + o.Address }

// ParseOwner splits an authorizer id of the form "provider:address".
// The address may itself contain ':'.
func ParseOwner(id string) (Owner, error) {
	provider, address, ok := strings.Cut(id, ":")
	if !ok {
		return Owner{}, fmt.Errorf("%w: owner id %q is not provider:address", ErrBadRequest, id)
	}
	o := Owner{Provider: provider, Address: address}
	if err := o.Validate(); err != nil {
		return Owner{}, err
	}
	return o, nil
}

// Transaction is a signed, framed record as stored in the ledger.
type Transaction struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	AssetRef      string    `json:"assetRef"`
	Contents      string    `json:"contents"`
	UserSignature string    `json:"userSignature"`
	AppSignature  string    `json:"appSignature"`
}

// Metadata lists an owner's block ids, oldest first.
type Metadata struct {
	Owner  Owner    `json:"owner"`
	Blocks []string `json:"blocks"`
}

// Block is an ordered batch of transactions.
type Block struct {
	ID           string        `json:"id"`
	Previous     string        `json:"previous,omitempty"`
	Seq          int64         `json:"seq"`
	CreationTime time.Time     `json:"creationTime"`
	Transactions []Transaction `json:"transactions"`
}

// CreateResult is returned by title and license creation.
type CreateResult struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Signature string    `json:"signature"`
}

// VerifyResult reports whether an owner's most recent license is permissive.
type VerifyResult struct {
	Verified bool    `json:"verified"`
	Reason   *string `json:"reason"`
}
