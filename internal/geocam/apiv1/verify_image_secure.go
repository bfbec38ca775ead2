package apiv1

import (
	"context"
	"encoding/base64"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"geocam/internal/geocam/canonicalhash"
	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/stego"
	"geocam/internal/geocam/verify"
	"geocam/pkg/helpers"
)

// VerifyImageSecureRequest is the request body for /api/verify-image-secure. Unlike
// /pure-png-verify, the caller supplies the signature and the registry's
// public_key_id directly rather than relying on the image's own embedded frame — the
// path the secure mobile/registry pairing uses when it already knows which device it
// expects the image to be from.
type VerifyImageSecureRequest struct {
	ImageData   string `json:"image_data" validate:"required"`
	Signature   string `json:"signature" validate:"required"`
	PublicKeyID string `json:"public_key_id" validate:"required"`
	Timestamp   string `json:"timestamp"`
}

// VerifyImageSecureReply is the reply for /api/verify-image-secure.
type VerifyImageSecureReply struct {
	Success            bool                 `json:"success"`
	VerificationResult *VerificationOutcome `json:"verification_result"`
}

// VerifyImageSecure verifies a PNG against a caller-supplied signature and a device
// looked up by public_key_id, rather than the signature frame embedded in the image.
func (c *Client) VerifyImageSecure(ctx context.Context, req *VerifyImageSecureRequest, peerIP string) (*VerifyImageSecureReply, error) {
	if err := helpers.Check(req); err != nil {
		return nil, err
	}

	device, err := c.db.Devices.FindByPublicKeyID(ctx, req.PublicKeyID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, helpers.ErrDeviceNotFound
		}
		return nil, helpers.ErrInternalServerError
	}

	imageBytes, err := base64.StdEncoding.DecodeString(req.ImageData)
	if err != nil {
		return nil, helpers.NewErrorFromError(err)
	}

	outcome := &VerificationOutcome{
		DeviceKnown:   true,
		DeviceRevoked: device.Revoked,
		DeviceInfo: &DeviceInfo{
			DeviceID:    device.DeviceID,
			GeocamName:  device.GeocamName(),
			DeviceModel: device.DeviceModel,
			Revoked:     device.Revoked,
		},
	}

	var raster *codec.Raster
	if err := c.codecPool.Submit(ctx, func() error {
		var decodeErr error
		raster, decodeErr = codec.DecodePNG(imageBytes)
		return decodeErr
	}); err != nil {
		outcome.Reason = reasonNotValidPNG
		c.recordVerification(ctx, outcome, req.PublicKeyID, peerIP)
		return &VerifyImageSecureReply{Success: true, VerificationResult: outcome}, nil
	}

	if basicInfo, err := stego.ReadBody(raster); err == nil {
		outcome.BasicInfo = basicInfo
	} else {
		outcome.Reason = reasonNoBasicInfo
	}

	hashHex, err := canonicalhash.CanonicalHash(raster)
	if err != nil {
		outcome.Reason = reasonNotValidPNG
		c.recordVerification(ctx, outcome, req.PublicKeyID, peerIP)
		return &VerifyImageSecureReply{Success: true, VerificationResult: outcome}, nil
	}

	sigBytes, sigErr := base64.StdEncoding.DecodeString(req.Signature)
	pkBytes, pkErr := base64.StdEncoding.DecodeString(device.PublicKeyBase64)
	digest, digestErr := hexDecodeDigest(hashHex)

	if sigErr != nil || pkErr != nil || digestErr != nil {
		outcome.Reason = reasonMalformedFrame
		c.recordVerification(ctx, outcome, req.PublicKeyID, peerIP)
		return &VerifyImageSecureReply{Success: true, VerificationResult: outcome}, nil
	}

	result, _ := verify.Verify(sigBytes, pkBytes, digest)
	outcome.SignatureValid = result == verify.Valid
	outcome.Authentic = outcome.SignatureValid && outcome.DeviceKnown && !outcome.DeviceRevoked

	switch {
	case !outcome.SignatureValid:
		outcome.Reason = reasonInvalidSignature
	case outcome.DeviceRevoked:
		outcome.Reason = reasonRevokedDevice
	case outcome.Reason == "":
		outcome.Reason = reasonOK
	}

	c.recordVerification(ctx, outcome, req.PublicKeyID, peerIP)

	return &VerifyImageSecureReply{Success: true, VerificationResult: outcome}, nil
}
