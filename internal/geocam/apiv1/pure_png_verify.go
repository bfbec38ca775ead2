package apiv1

import (
	"context"
	"encoding/base64"

	"geocam/pkg/helpers"
)

// PurePNGVerifyRequest is the request body for /pure-png-verify.
type PurePNGVerifyRequest struct {
	PNGBase64 string `json:"pngBase64" validate:"required"`
}

// PurePNGVerifyReply is the reply for /pure-png-verify.
type PurePNGVerifyReply struct {
	Success             bool                 `json:"success"`
	VerificationResult  *VerificationOutcome `json:"verification_result"`
}

// PurePNGVerify decodes a standalone PNG carrying its own embedded signature frame
// and verifies it end to end (ORIGINAL §6 "/pure-png-verify").
func (c *Client) PurePNGVerify(ctx context.Context, req *PurePNGVerifyRequest, peerIP string) (*PurePNGVerifyReply, error) {
	if err := helpers.Check(req); err != nil {
		return nil, err
	}

	pngBytes, err := base64.StdEncoding.DecodeString(req.PNGBase64)
	if err != nil {
		return nil, helpers.NewErrorFromError(err)
	}

	outcome, err := c.Verify(ctx, pngBytes, peerIP)
	if err != nil {
		return nil, err
	}

	return &PurePNGVerifyReply{Success: true, VerificationResult: outcome}, nil
}
