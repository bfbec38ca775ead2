package apiv1

import (
	"context"
	"encoding/base64"
	"time"

	"geocam/internal/geocam/canonicalhash"
	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/session"
	"geocam/internal/geocam/stego"
	"geocam/pkg/helpers"
)

// ProcessRequest is the request body for /process-geocam-image (ORIGINAL §6).
type ProcessRequest struct {
	JPEGBase64 string `json:"jpegBase64" validate:"required"`
	BasicInfo  string `json:"basicInfo" validate:"required"`
	PublicKey  string `json:"publicKey" validate:"required"`
}

// ImageInfo describes the decoded raster dimensions returned to the caller.
type ImageInfo struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	RGBASize int `json:"rgbaSize"`
}

// ProcessReply is the reply for /process-geocam-image.
type ProcessReply struct {
	Success     bool      `json:"success"`
	SessionID   string    `json:"sessionId"`
	HashToSign  string    `json:"hashToSign"`
	ImageInfo   ImageInfo `json:"imageInfo"`
}

const publicKeyLen = 33

// Process decodes the capture JPEG, embeds basic-info into the body alpha region,
// computes the canonical hash, and buffers a signing session (ORIGINAL §4.E Process).
func (c *Client) Process(ctx context.Context, req *ProcessRequest) (*ProcessReply, error) {
	if err := helpers.Check(req); err != nil {
		return nil, err
	}

	jpegBytes, err := base64.StdEncoding.DecodeString(req.JPEGBase64)
	if err != nil {
		return nil, helpers.NewErrorFromError(err)
	}

	if int64(len(jpegBytes)) > c.cfg.Geocam.Codec.MaxEncodedImageBytes {
		return nil, helpers.ErrDimensionsTooLarge
	}

	publicKeyBytes, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil || len(publicKeyBytes) != publicKeyLen {
		return nil, helpers.NewErrorFromError(err)
	}
	if publicKeyBytes[0] != 0x02 && publicKeyBytes[0] != 0x03 {
		return nil, helpers.NewError("malformed_public_key")
	}

	var raster *codec.Raster
	if err := c.codecPool.Submit(ctx, func() error {
		var decodeErr error
		raster, decodeErr = codec.DecodeJPEG(jpegBytes)
		return decodeErr
	}); err != nil {
		return nil, classifyCodecError(err)
	}

	if raster.Height < 2 || raster.Width < 9 {
		return nil, helpers.ErrDimensionsTooSmall
	}
	if int64(raster.Width)*int64(raster.Height) > c.cfg.Geocam.Codec.MaxPixels {
		return nil, helpers.ErrDimensionsTooLarge
	}
	if len(req.BasicInfo) > c.cfg.Geocam.Codec.MaxBasicInfoBytes {
		return nil, helpers.ErrPayloadTooLarge
	}

	if err := stego.EmbedBody(raster, req.BasicInfo); err != nil {
		return nil, classifyStegoError(err)
	}

	var hashHex string
	if err := c.codecPool.Submit(ctx, func() error {
		var hashErr error
		hashHex, hashErr = canonicalhash.CanonicalHash(raster)
		return hashErr
	}); err != nil {
		return nil, classifyCodecError(err)
	}

	sess := &session.Session{
		SessionID:     session.NewSessionID(),
		RasterBytes:   raster.Pix,
		Width:         raster.Width,
		Height:        raster.Height,
		PublicKeyB64:  req.PublicKey,
		CanonicalHash: hashHex,
		CreatedAt:     time.Now(),
	}
	c.sessions.Put(sess)

	return &ProcessReply{
		Success:    true,
		SessionID:  sess.SessionID,
		HashToSign: hashHex,
		ImageInfo: ImageInfo{
			Width:    raster.Width,
			Height:   raster.Height,
			RGBASize: len(raster.Pix),
		},
	}, nil
}
