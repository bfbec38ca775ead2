// Package signing simulates the on-device secp256k1 signer whose contract ORIGINAL
// §6 fixes but whose implementation is explicitly out of scope: "signs a
// server-provided hash, returns compact 64-byte secp256k1 signature, Base64". The
// teacher's own signing package abstracted RSA/ECDSA JWT backends (software keys and
// a PKCS#11 HSM) behind a single Signer interface; neither backend has a counterpart
// here, since GeoCam signs one fixed message shape (a 64-byte pre-hashed digest) with
// one fixed algorithm, so this package is narrowed to that single contract instead of
// carrying an unused multi-algorithm abstraction.
package signing

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// DeviceSigner simulates the capture device's private-key custody: it holds a
// secp256k1 keypair in memory and signs exactly the pre-hashed digest bytes the
// server sends as hashToSign, never re-hashing (ORIGINAL §6 device-side contract).
type DeviceSigner struct {
	privateKey *secp256k1.PrivateKey
}

// NewDeviceSigner generates a fresh secp256k1 keypair.
func NewDeviceSigner() (*DeviceSigner, error) {
	privateKey, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("signing: generate device key: %w", err)
	}
	return &DeviceSigner{privateKey: privateKey}, nil
}

// PublicKeyBase64 returns the 33-byte compressed public key, Base64-encoded, the
// form the device reports at registration and the form GeoCam stores in the
// registry (ORIGINAL §3 "Device record").
func (d *DeviceSigner) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(d.privateKey.PubKey().SerializeCompressed())
}

// Sign signs a 64-byte digest (the canonical hash bytes, never re-hashed) and
// returns the compact 64-byte r‖s signature, Base64-encoded, exactly as the capture
// device returns it over the wire (ORIGINAL §6).
func (d *DeviceSigner) Sign(digest []byte) (string, error) {
	if len(digest) != 64 {
		return "", fmt.Errorf("signing: digest must be 64 bytes, got %d", len(digest))
	}

	sig := ecdsa.SignCompact(d.privateKey, digest, false)

	// ecdsa.SignCompact returns [recovery_id || r || s] (65 bytes); GeoCam's wire
	// format carries only the compact r‖s signature (ORIGINAL §3, §6).
	if len(sig) != 65 {
		return "", fmt.Errorf("signing: unexpected compact signature length %d", len(sig))
	}

	return base64.StdEncoding.EncodeToString(sig[1:]), nil
}

// RandomInstallationID returns an opaque, random, client-chosen installation
// identifier of the kind a real app install would generate once and persist
// (ORIGINAL §3 "installation_id"). Exposed here for test fixtures that need a
// device identity without pulling in a full mobile-client simulation.
func RandomInstallationID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
