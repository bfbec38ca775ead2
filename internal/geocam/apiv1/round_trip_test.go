package apiv1_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocam/internal/geocam/apiv1"
	"geocam/internal/geocam/canonicalhash"
	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/session"
	"geocam/pkg/logger"
	"geocam/pkg/model"
	"geocam/pkg/signing"
)

func testClient(t *testing.T) *apiv1.Client {
	t.Helper()
	cfg := &model.Cfg{
		Geocam: model.Geocam{
			Codec: model.Codec{
				MaxEncodedImageBytes: 10 * 1024 * 1024,
				MaxPixels:            1 << 20,
				MaxBasicInfoBytes:    1 << 16,
			},
			Sessions: model.Sessions{
				TTLSeconds:  600,
				MaxSessions: 64,
				ShardCount:  4,
			},
		},
	}

	store := session.New(cfg, logger.NewSimple("test"))
	t.Cleanup(store.Stop)

	client, err := apiv1.New(context.Background(), cfg, nil, store, nil, logger.NewSimple("test"))
	require.NoError(t, err)
	return client
}

func sampleJPEGBase64(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: byte(x * 7), G: byte(y * 31), B: byte(x + y), A: 0xFF})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// TestProcessCompleteRoundTrip exercises scenario S1: honest device round trip
// (ORIGINAL §8 scenario S1, invariant 3).
func TestProcessCompleteRoundTrip(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	deviceSigner, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	processReply, err := client.Process(ctx, &apiv1.ProcessRequest{
		JPEGBase64: scenarioJPEGBase64(t),
		BasicInfo:  `{"lat":52.5,"lng":13.4}`,
		PublicKey:  deviceSigner.PublicKeyBase64(),
	})
	require.NoError(t, err)
	assert.True(t, processReply.Success)
	assert.Len(t, processReply.HashToSign, 128)

	digest, err := decodeHexDigest(processReply.HashToSign)
	require.NoError(t, err)

	sigB64, err := deviceSigner.Sign(digest)
	require.NoError(t, err)

	completeReply, err := client.Complete(ctx, &apiv1.CompleteRequest{
		SessionID: processReply.SessionID,
		Signature: sigB64,
	})
	require.NoError(t, err)
	assert.True(t, completeReply.Success)
	assert.NotEmpty(t, completeReply.PNGBase64)

	pngBytes, err := base64.StdEncoding.DecodeString(completeReply.PNGBase64)
	require.NoError(t, err)

	raster, err := codec.DecodePNG(pngBytes)
	require.NoError(t, err)
	assert.Equal(t, processReply.ImageInfo.Width, raster.Width)
	assert.Equal(t, processReply.ImageInfo.Height, raster.Height)

	// Invariant 3 (ORIGINAL §8): the canonical hash is unchanged by embedding the
	// signature into the last row.
	hashAfter, err := canonicalhash.CanonicalHash(raster)
	require.NoError(t, err)
	assert.Equal(t, processReply.HashToSign, hashAfter)
}

// TestCompleteRejectsForgedSignature checks that a signature produced by
// a different key than the one bound to the session must be rejected.
func TestCompleteRejectsForgedSignature(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	legitSigner, err := signing.NewDeviceSigner()
	require.NoError(t, err)
	forger, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	processReply, err := client.Process(ctx, &apiv1.ProcessRequest{
		JPEGBase64: sampleJPEGBase64(t),
		BasicInfo:  `{"lat":1,"lng":1}`,
		PublicKey:  legitSigner.PublicKeyBase64(),
	})
	require.NoError(t, err)

	digest, err := decodeHexDigest(processReply.HashToSign)
	require.NoError(t, err)

	forgedSig, err := forger.Sign(digest)
	require.NoError(t, err)

	_, err = client.Complete(ctx, &apiv1.CompleteRequest{
		SessionID: processReply.SessionID,
		Signature: forgedSig,
	})
	assert.Error(t, err)
}

// TestCompleteUnknownSessionFails exercises the unknown-session 404 path.
func TestCompleteUnknownSessionFails(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	signer, err := signing.NewDeviceSigner()
	require.NoError(t, err)
	digest := make([]byte, 64)
	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	_, err = client.Complete(ctx, &apiv1.CompleteRequest{
		SessionID: "never-issued",
		Signature: sig,
	})
	assert.Error(t, err)
}

// TestAbandonPreventsCompletion ensures an abandoned session cannot later be
// completed.
func TestAbandonPreventsCompletion(t *testing.T) {
	client := testClient(t)
	ctx := context.Background()

	signer, err := signing.NewDeviceSigner()
	require.NoError(t, err)

	processReply, err := client.Process(ctx, &apiv1.ProcessRequest{
		JPEGBase64: sampleJPEGBase64(t),
		BasicInfo:  `{"lat":1,"lng":1}`,
		PublicKey:  signer.PublicKeyBase64(),
	})
	require.NoError(t, err)

	client.Abandon(ctx, processReply.SessionID)

	digest, err := decodeHexDigest(processReply.HashToSign)
	require.NoError(t, err)
	sig, err := signer.Sign(digest)
	require.NoError(t, err)

	_, err = client.Complete(ctx, &apiv1.CompleteRequest{
		SessionID: processReply.SessionID,
		Signature: sig,
	})
	assert.Error(t, err)
}

func decodeHexDigest(hexDigest string) ([]byte, error) {
	return hex.DecodeString(hexDigest)
}
