package apiv1

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"

	"geocam/internal/geocam/db"
	"geocam/pkg/helpers"
)

// PublicKeyData carries the device-reported key metadata alongside the key material
// itself (ORIGINAL §6 "register-device-secure" request body).
type PublicKeyData struct {
	KeyBase64   string `json:"keyBase64" validate:"required"`
	KeyID       string `json:"keyId"`
	Algorithm   string `json:"algorithm" validate:"required"`
	KeySize     int    `json:"keySize"`
	GeneratedAt string `json:"generatedAt"`
	Hash        string `json:"hash"`
}

// RegisterDeviceRequest is the request body for /api/register-device-secure.
type RegisterDeviceRequest struct {
	InstallationID       string         `json:"installation_id" validate:"required"`
	DeviceModel          string         `json:"device_model"`
	OSName               string         `json:"os_name"`
	OSVersion            string         `json:"os_version"`
	PublicKeyData        PublicKeyData  `json:"public_key_data" validate:"required"`
	RegistrationTimestamp string        `json:"registration_timestamp"`
}

// RegisterDeviceReply is the reply for /api/register-device-secure.
type RegisterDeviceReply struct {
	Success       bool   `json:"success"`
	DeviceID      string `json:"device_id"`
	PublicKeyID   string `json:"public_key_id"`
	GeocamSequence int64 `json:"geocam_sequence"`
	GeocamName    string `json:"geocam_name"`
}

const secp256k1CompressedKeyLen = 33

// RegisterDevice registers a device's public key, or returns the existing record if
// the key is already registered (ORIGINAL §4.G Register).
func (c *Client) RegisterDevice(ctx context.Context, req *RegisterDeviceRequest) (*RegisterDeviceReply, error) {
	if err := helpers.Check(req); err != nil {
		return nil, err
	}

	if req.PublicKeyData.Algorithm != "secp256k1" {
		return nil, helpers.NewErrorStatus("unsupported_algorithm", 400)
	}

	keyBytes, err := base64.StdEncoding.DecodeString(req.PublicKeyData.KeyBase64)
	if err != nil || len(keyBytes) != secp256k1CompressedKeyLen {
		return nil, helpers.NewErrorStatus("malformed_public_key", 400)
	}

	registeredAt := time.Now()

	doc := &db.DeviceDoc{
		InstallationID:       req.InstallationID,
		PublicKeyBase64:      req.PublicKeyData.KeyBase64,
		PublicKeyID:          db.PublicKeyID(req.PublicKeyData.KeyBase64),
		PublicKeyFingerprint: db.PublicKeyFingerprint(req.PublicKeyData.KeyBase64),
		Algorithm:            "secp256k1",
		DeviceModel:          req.DeviceModel,
		OSName:               req.OSName,
		OSVersion:            req.OSVersion,
		RegisteredAt:         registeredAt,
	}

	saved, err := c.db.Devices.Register(ctx, uuid.NewString(), doc)
	if err != nil {
		if errors.Is(err, db.ErrKeyAlreadyBound) {
			return nil, helpers.ErrInstallationKeyConflict
		}
		return nil, helpers.ErrInternalServerError
	}

	return &RegisterDeviceReply{
		Success:        true,
		DeviceID:       saved.DeviceID,
		PublicKeyID:    saved.PublicKeyID,
		GeocamSequence: saved.Sequence,
		GeocamName:     saved.GeocamName(),
	}, nil
}

// ListDevicesReply is the reply for /api/devices-secure.
type ListDevicesReply struct {
	Success    bool              `json:"success"`
	Devices    []*DeviceListItem `json:"devices"`
	TotalCount int               `json:"total_count"`
}

// DeviceListItem is the public-facing projection of a registry device record used in
// listings; no private-key material is ever present here or anywhere in the registry.
type DeviceListItem struct {
	DeviceID             string    `json:"device_id"`
	InstallationID       string    `json:"installation_id"`
	PublicKeyID          string    `json:"public_key_id"`
	PublicKeyFingerprint string    `json:"public_key_fingerprint"`
	DeviceModel          string    `json:"device_model"`
	OSName               string    `json:"os_name"`
	OSVersion            string    `json:"os_version"`
	RegisteredAt         time.Time `json:"registered_at"`
	GeocamName           string    `json:"geocam_name"`
	Revoked              bool      `json:"revoked"`
}

// ListDevices returns every registered device (ORIGINAL §4.G ListDevices).
func (c *Client) ListDevices(ctx context.Context) (*ListDevicesReply, error) {
	docs, err := c.db.Devices.List(ctx)
	if err != nil {
		return nil, helpers.ErrInternalServerError
	}

	items := make([]*DeviceListItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, &DeviceListItem{
			DeviceID:             d.DeviceID,
			InstallationID:       d.InstallationID,
			PublicKeyID:          d.PublicKeyID,
			PublicKeyFingerprint: d.PublicKeyFingerprint,
			DeviceModel:          d.DeviceModel,
			OSName:               d.OSName,
			OSVersion:            d.OSVersion,
			RegisteredAt:         d.RegisteredAt,
			GeocamName:           d.GeocamName(),
			Revoked:              d.Revoked,
		})
	}

	return &ListDevicesReply{Success: true, Devices: items, TotalCount: len(items)}, nil
}

// DeleteDeviceRequest is the request body for DELETE /api/delete-device.
type DeleteDeviceRequest struct {
	InstallationID string `json:"installation_id" validate:"required"`
	KeyFingerprint string `json:"key_fingerprint" validate:"required"`
}

// DeleteDeviceReply is the reply for DELETE /api/delete-device.
type DeleteDeviceReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DeleteDevice removes a device only when both fields of the request match the stored
// record, to avoid an accidental wipe (ORIGINAL §4.G DeleteByInstallation).
func (c *Client) DeleteDevice(ctx context.Context, req *DeleteDeviceRequest) (*DeleteDeviceReply, error) {
	if err := helpers.Check(req); err != nil {
		return nil, err
	}

	deleted, err := c.db.Devices.DeleteByInstallation(ctx, req.InstallationID, req.KeyFingerprint)
	if err != nil {
		return nil, helpers.ErrInternalServerError
	}
	if !deleted {
		return nil, helpers.ErrDeviceNotFound
	}

	return &DeleteDeviceReply{Success: true, Message: "device deleted"}, nil
}

// RevokeDevice marks a device revoked (ORIGINAL §4.G Revoke). Not exposed as its own
// HTTP endpoint in the external interface table; reachable via the registry's
// administrative path and exercised directly in tests.
func (c *Client) RevokeDevice(ctx context.Context, deviceID string) error {
	return c.db.Devices.Revoke(ctx, deviceID)
}
