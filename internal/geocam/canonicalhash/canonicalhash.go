// Package canonicalhash computes the hash that both the signer and the verifier agree
// to sign, over a canonically re-encoded PNG with its last-row alpha cleared.
package canonicalhash

import (
	"crypto/sha512"
	"encoding/hex"

	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/stego"
)

// CanonicalHash computes SHA-512(Encode(ClearLastRow(R))) and returns it as 128
// lower-case hex characters. R itself is never mutated: the clearing happens on a
// clone, so a caller holding R can still embed the last-row frame afterwards and
// reach the same hash (ORIGINAL §4.C invariant).
func CanonicalHash(r *codec.Raster) (string, error) {
	clone := r.Clone()
	stego.ClearLastRow(clone)

	encoded, err := codec.Encode(clone)
	if err != nil {
		return "", err
	}

	sum := sha512.Sum512(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// CanonicalHashBytes is CanonicalHash's raw 64-byte digest form, the exact bytes
// passed as the ECDSA message to both the device signer and the verifier.
func CanonicalHashBytes(r *codec.Raster) ([]byte, error) {
	clone := r.Clone()
	stego.ClearLastRow(clone)

	encoded, err := codec.Encode(clone)
	if err != nil {
		return nil, err
	}

	sum := sha512.Sum512(encoded)
	return sum[:], nil
}
