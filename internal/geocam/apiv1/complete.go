package apiv1

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/stego"
	"geocam/internal/geocam/verify"
	"geocam/pkg/helpers"
)

// CompleteRequest is the request body for /complete-geocam-image (ORIGINAL §6).
type CompleteRequest struct {
	SessionID string `json:"sessionId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// Dimensions reports the finished image's pixel dimensions.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CompleteStats is the stats block returned by Complete.
type CompleteStats struct {
	OriginalSize      int        `json:"originalSize"`
	PNGSize           int        `json:"pngSize"`
	Dimensions        Dimensions `json:"dimensions"`
	CompressionRatio  float64    `json:"compressionRatio"`
}

// CompleteReply is the reply for /complete-geocam-image.
type CompleteReply struct {
	Success   bool          `json:"success"`
	PNGBase64 string        `json:"pngBase64"`
	Stats     CompleteStats `json:"stats"`
}

const signatureLen = 64

// lastRowFrame is the JSON body embedded in the last-row alpha region (ORIGINAL §3).
type lastRowFrame struct {
	Sig string `json:"sig"`
	PK  string `json:"pk"`
	TS  string `json:"ts"`
	V   int    `json:"v"`
}

// Complete consumes a buffered signing session, embeds the device's signature and
// public key into the last-row alpha region, and returns the finished PNG
// (ORIGINAL §4.E Complete).
func (c *Client) Complete(ctx context.Context, req *CompleteRequest) (*CompleteReply, error) {
	if err := helpers.Check(req); err != nil {
		return nil, err
	}

	sess, ok := c.sessions.Take(req.SessionID)
	if !ok {
		return nil, helpers.ErrUnknownSession
	}

	if time.Since(sess.CreatedAt) > c.sessions.TTL {
		return nil, helpers.ErrSessionExpired
	}

	sigBytes, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil || len(sigBytes) != signatureLen {
		return nil, helpers.NewErrorStatus("malformed_signature", 400)
	}

	pubKeyBytes, err := base64.StdEncoding.DecodeString(sess.PublicKeyB64)
	if err != nil {
		return nil, helpers.ErrInternalServerError
	}

	digest, err := hexDecodeDigest(sess.CanonicalHash)
	if err != nil {
		return nil, helpers.ErrInternalServerError
	}

	if result, err := verify.Verify(sigBytes, pubKeyBytes, digest); err != nil || result != verify.Valid {
		return nil, helpers.ErrSignatureVerificationFailed
	}

	raster := &codec.Raster{Width: sess.Width, Height: sess.Height, Pix: sess.RasterBytes}

	frame := lastRowFrame{
		Sig: req.Signature,
		PK:  sess.PublicKeyB64,
		TS:  time.Now().UTC().Format(time.RFC3339),
		V:   1,
	}
	frameBytes, err := json.Marshal(frame)
	if err != nil {
		return nil, helpers.ErrInternalServerError
	}

	if err := c.codecPool.Submit(ctx, func() error {
		return stego.EmbedLastRow(raster, frameBytes)
	}); err != nil {
		return nil, classifyStegoErrorOrPool(err)
	}

	var pngBytes []byte
	if err := c.codecPool.Submit(ctx, func() error {
		var encodeErr error
		pngBytes, encodeErr = codec.Encode(raster)
		return encodeErr
	}); err != nil {
		return nil, classifyCodecError(err)
	}

	originalSize := len(sess.RasterBytes)
	ratio := 0.0
	if originalSize > 0 {
		ratio = float64(len(pngBytes)) / float64(originalSize)
	}

	return &CompleteReply{
		Success:   true,
		PNGBase64: base64.StdEncoding.EncodeToString(pngBytes),
		Stats: CompleteStats{
			OriginalSize:     originalSize,
			PNGSize:          len(pngBytes),
			Dimensions:       Dimensions{Width: raster.Width, Height: raster.Height},
			CompressionRatio: ratio,
		},
	}, nil
}

func classifyStegoErrorOrPool(err error) error {
	if err == nil {
		return nil
	}
	if e := classifyStegoError(err); e != helpers.ErrInternalServerError {
		return e
	}
	return classifyCodecError(err)
}
