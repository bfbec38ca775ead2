package apiv1

import "encoding/hex"

// hexDecodeDigest decodes the 128-character lower-case hex canonical hash into its
// raw 64-byte form, the exact message both the signer and the verifier operate on.
func hexDecodeDigest(hexDigest string) ([]byte, error) {
	return hex.DecodeString(hexDigest)
}
