package signing_test

import (
	"crypto/sha512"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocam/internal/geocam/verify"
	"geocam/pkg/signing"
)

func TestDeviceSignerPublicKeyIsCompressed33Bytes(t *testing.T) {
	signer, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	pubKeyBytes, err := base64.StdEncoding.DecodeString(signer.PublicKeyBase64())
	require.NoError(t, err)

	assert.Len(t, pubKeyBytes, 33)
	assert.Contains(t, []byte{0x02, 0x03}, pubKeyBytes[0])
}

func TestDeviceSignerSignRejectsWrongDigestLength(t *testing.T) {
	signer, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	_, err = signer.Sign([]byte("too short"))
	assert.Error(t, err)
}

func TestDeviceSignerSignProducesVerifiableSignature(t *testing.T) {
	signer, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	digest := sha512.Sum512([]byte("a canonical hash's worth of bytes"))

	sigB64, err := signer.Sign(digest[:])
	require.NoError(t, err)

	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	require.NoError(t, err)
	assert.Len(t, sigBytes, 64)

	pubKeyBytes, err := base64.StdEncoding.DecodeString(signer.PublicKeyBase64())
	require.NoError(t, err)

	result, err := verify.Verify(sigBytes, pubKeyBytes, digest[:])
	require.NoError(t, err)
	assert.Equal(t, verify.Valid, result)
}

func TestTwoDeviceSignersProduceDifferentKeys(t *testing.T) {
	a, err := signing.NewDeviceSigner()
	require.NoError(t, err)
	b, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	assert.NotEqual(t, a.PublicKeyBase64(), b.PublicKeyBase64())
}

func TestRandomInstallationIDIsUniqueAndURLSafe(t *testing.T) {
	id1, err := signing.RandomInstallationID()
	require.NoError(t, err)
	id2, err := signing.RandomInstallationID()
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
	assert.NotContains(t, id1, "+")
	assert.NotContains(t, id1, "/")
}
