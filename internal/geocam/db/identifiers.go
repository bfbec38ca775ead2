package db

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
)

// PublicKeyID derives the stable, keyed identifier for a device's public key
// (ORIGINAL §4.G "Identifier derivations").
func PublicKeyID(publicKeyB64 string) string {
	sum := sha256.Sum256([]byte(publicKeyB64))
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(sum[:])
	if len(encoded) > 24 {
		encoded = encoded[:24]
	}
	return "gc_" + encoded
}

// PublicKeyFingerprint derives the short, human-displayable fingerprint of a device's
// public key. Not a security boundary (ORIGINAL GLOSSARY "Fingerprint").
func PublicKeyFingerprint(publicKeyB64 string) string {
	sum := sha256.Sum256([]byte(publicKeyB64))
	return hex.EncodeToString(sum[:])[:16]
}
