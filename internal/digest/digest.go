// Package digest computes the content digests stored in the ingestion ledger.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

const prefix = "sha256:"

// Bytes returns "sha256:<hex>" for content. Identical content always yields
// the same digest, which is how repeated ingests show up in the ledger.
func Bytes(content []byte) string {
	sum := sha256.Sum256(content)
	return prefix + hex.EncodeToString(sum[:])
}

// Reader digests everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return prefix + hex.EncodeToString(h.Sum(nil)), nil
}
