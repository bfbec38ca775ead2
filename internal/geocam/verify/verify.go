// Package verify performs secp256k1 ECDSA verification over pre-hashed digests, the
// sole cryptographic primitive the GeoCam core relies on (ORIGINAL §4.D, §9 "collapse
// to one" re-architecture note).
package verify

import (
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// Result is the outcome of a signature verification attempt.
type Result string

const (
	Valid               Result = "valid"
	InvalidSignature     Result = "invalid_signature"
	MalformedSignature   Result = "malformed_signature"
	MalformedPublicKey   Result = "malformed_public_key"
	PointNotOnCurve      Result = "point_not_on_curve"
)

const (
	signatureLen = 64
	pubKeyLen    = 33
	digestLen    = 64
)

// Verify checks a compact 64-byte r‖s signature against a 33-byte compressed public
// key and a 64-byte pre-hashed digest. It never re-hashes: callers must pass exactly
// the bytes that were signed. High-s signatures are accepted (ORIGINAL §4.D tie-break);
// r == 0 or s == 0 is rejected as malformed.
func Verify(sigBytes, pubKeyBytes, digest []byte) (Result, error) {
	if len(digest) != digestLen {
		return MalformedSignature, nil
	}

	if len(sigBytes) != signatureLen {
		return MalformedSignature, nil
	}

	var r, s secp256k1.ModNScalar
	rOverflow := r.SetByteSlice(sigBytes[0:32])
	sOverflow := s.SetByteSlice(sigBytes[32:64])
	if rOverflow || sOverflow {
		return MalformedSignature, nil
	}
	if r.IsZero() || s.IsZero() {
		return MalformedSignature, nil
	}

	if len(pubKeyBytes) != pubKeyLen {
		return MalformedPublicKey, nil
	}
	if pubKeyBytes[0] != 0x02 && pubKeyBytes[0] != 0x03 {
		return MalformedPublicKey, nil
	}

	pubKey, err := secp256k1.ParsePubKey(pubKeyBytes)
	if err != nil {
		if isNotOnCurve(err) {
			return PointNotOnCurve, nil
		}
		return MalformedPublicKey, nil
	}

	sig := ecdsa.NewSignature(&r, &s)
	if !sig.Verify(digest, pubKey) {
		return InvalidSignature, nil
	}

	return Valid, nil
}

// isNotOnCurve distinguishes the "point at infinity" / "not on the curve" class of
// ParsePubKey failure from a plain malformed-encoding failure, since the library
// reports both via a single error return.
func isNotOnCurve(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not on the curve") || strings.Contains(msg, "infinity")
}
