package apiv1

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"geocam/internal/geocam/canonicalhash"
	"geocam/internal/geocam/codec"
	"geocam/internal/geocam/db"
	"geocam/internal/geocam/stego"
	"geocam/internal/geocam/verify"
)

// VerificationOutcome is the structured cryptographic+registry verdict produced by
// Verify (ORIGINAL §4.F, §7 "cryptographic verdicts are always a successful response").
type VerificationOutcome struct {
	Authentic       bool           `json:"authentic"`
	SignatureValid  bool           `json:"signature_valid"`
	DeviceKnown     bool           `json:"device_known"`
	DeviceRevoked   bool           `json:"device_revoked"`
	DeviceInfo      *DeviceInfo    `json:"device_info,omitempty"`
	BasicInfo       string         `json:"basic_info,omitempty"`
	Reason          string         `json:"reason"`
}

// DeviceInfo is the public-facing projection of a registry device record.
type DeviceInfo struct {
	DeviceID    string `json:"device_id"`
	GeocamName  string `json:"geocam_name"`
	DeviceModel string `json:"device_model"`
	Revoked     bool   `json:"revoked"`
}

// Reason strings (ORIGINAL §7 "User-visible failure behavior").
const (
	reasonOK               = "ok"
	reasonNotValidPNG      = "not_a_valid_png"
	reasonNoSignatureFrame = "no_signature_frame"
	reasonMalformedFrame   = "malformed_frame"
	reasonInvalidSignature = "invalid_signature"
	reasonUnknownDevice    = "unknown_device"
	reasonRevokedDevice    = "revoked_device"
	reasonNoBasicInfo      = "no_basic_info"
)

// Verify is the single entry point for "is this PNG authentic?" (ORIGINAL §4.F).
func (c *Client) Verify(ctx context.Context, pngBytes []byte, peerIP string) (*VerificationOutcome, error) {
	outcome := &VerificationOutcome{}

	var raster *codec.Raster
	if err := c.codecPool.Submit(ctx, func() error {
		var decodeErr error
		raster, decodeErr = codec.DecodePNG(pngBytes)
		return decodeErr
	}); err != nil {
		outcome.Reason = reasonNotValidPNG
		c.recordVerification(ctx, outcome, "", peerIP)
		return outcome, nil
	}

	frameBody, err := stego.ReadLastRow(raster)
	if err != nil {
		outcome.Reason = reasonNoSignatureFrame
		c.recordVerification(ctx, outcome, "", peerIP)
		return outcome, nil
	}

	var frame lastRowFrame
	if err := json.Unmarshal(frameBody, &frame); err != nil || frame.Sig == "" || frame.PK == "" {
		outcome.Reason = reasonMalformedFrame
		c.recordVerification(ctx, outcome, "", peerIP)
		return outcome, nil
	}

	if basicInfo, err := stego.ReadBody(raster); err == nil {
		outcome.BasicInfo = basicInfo
	} else {
		outcome.Reason = reasonNoBasicInfo
	}

	hashHex, err := canonicalhash.CanonicalHash(raster)
	if err != nil {
		outcome.Reason = reasonNotValidPNG
		c.recordVerification(ctx, outcome, "", peerIP)
		return outcome, nil
	}

	sigBytes, sigErr := base64.StdEncoding.DecodeString(frame.Sig)
	pkBytes, pkErr := base64.StdEncoding.DecodeString(frame.PK)
	digest, digestErr := hexDecodeDigest(hashHex)

	publicKeyID := db.PublicKeyID(frame.PK)

	if sigErr != nil || pkErr != nil || digestErr != nil {
		outcome.Reason = reasonMalformedFrame
		c.recordVerification(ctx, outcome, publicKeyID, peerIP)
		return outcome, nil
	}

	result, _ := verify.Verify(sigBytes, pkBytes, digest)
	outcome.SignatureValid = result == verify.Valid

	device, err := c.db.Devices.FindByPublicKeyID(ctx, publicKeyID)
	switch {
	case err == nil:
		outcome.DeviceKnown = true
		outcome.DeviceRevoked = device.Revoked
		outcome.DeviceInfo = &DeviceInfo{
			DeviceID:    device.DeviceID,
			GeocamName:  device.GeocamName(),
			DeviceModel: device.DeviceModel,
			Revoked:     device.Revoked,
		}
	case errors.Is(err, mongo.ErrNoDocuments):
		outcome.DeviceKnown = false
	default:
		outcome.Reason = reasonNotValidPNG
		c.recordVerification(ctx, outcome, publicKeyID, peerIP)
		return outcome, nil
	}

	outcome.Authentic = outcome.SignatureValid && outcome.DeviceKnown && !outcome.DeviceRevoked

	switch {
	case !outcome.SignatureValid:
		outcome.Reason = reasonInvalidSignature
	case outcome.DeviceRevoked:
		outcome.Reason = reasonRevokedDevice
	case !outcome.DeviceKnown:
		outcome.Reason = reasonUnknownDevice
	case outcome.Reason == "":
		outcome.Reason = reasonOK
	}

	c.recordVerification(ctx, outcome, publicKeyID, peerIP)

	return outcome, nil
}

func (c *Client) recordVerification(ctx context.Context, outcome *VerificationOutcome, publicKeyID, peerIP string) {
	doc := &db.VerificationDoc{
		When:        time.Now(),
		PublicKeyID: publicKeyID,
		Valid:       outcome.Authentic,
		Reason:      outcome.Reason,
		PeerIP:      peerIP,
	}
	if err := c.db.Verifications.Append(ctx, doc); err != nil {
		c.log.Info("failed to append verification audit record", "error", err)
	}
}
