package store

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/compactsize"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

// BlockID returns the CIDv1 (raw, sha2-256) of the previous block id
// followed by the transaction ids, each length-prefixed.
func BlockID(previous string, txns []model.Transaction) (string, error) {
	fields := make([][]byte, 0, len(txns)+1)
	fields = append(fields, []byte(previous))
	for _, t := range txns {
		fields = append(fields, []byte(t.ID))
	}
	sum, err := multihash.Sum(compactsize.EncodeAll(fields...), multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}
