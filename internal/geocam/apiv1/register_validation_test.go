package apiv1_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geocam/internal/geocam/apiv1"
)

func fakeDeviceRegistration() *apiv1.RegisterDeviceRequest {
	return &apiv1.RegisterDeviceRequest{
		InstallationID: gofakeit.UUID(),
		DeviceModel:    gofakeit.Word(),
		OSName:         gofakeit.RandomString([]string{"iOS", "Android"}),
		OSVersion:      gofakeit.AppVersion(),
		PublicKeyData: apiv1.PublicKeyData{
			KeyBase64: base64.StdEncoding.EncodeToString(append([]byte{0x02}, []byte(gofakeit.LetterN(32))...)),
			Algorithm: "secp256k1",
		},
	}
}

// TestRegisterDeviceRejectsUnsupportedAlgorithm covers the request-validation path,
// which runs before any registry lookup (ORIGINAL §4.G Register).
func TestRegisterDeviceRejectsUnsupportedAlgorithm(t *testing.T) {
	client := testClient(t)

	req := fakeDeviceRegistration()
	req.PublicKeyData.Algorithm = "rsa"

	_, err := client.RegisterDevice(context.Background(), req)
	assert.Error(t, err)
}

func TestRegisterDeviceRejectsMalformedKeyLength(t *testing.T) {
	client := testClient(t)

	req := fakeDeviceRegistration()
	req.PublicKeyData.KeyBase64 = base64.StdEncoding.EncodeToString([]byte(gofakeit.LetterN(10)))

	_, err := client.RegisterDevice(context.Background(), req)
	assert.Error(t, err)
}

func TestRegisterDeviceRejectsMissingInstallationID(t *testing.T) {
	client := testClient(t)

	req := fakeDeviceRegistration()
	req.InstallationID = ""

	_, err := client.RegisterDevice(context.Background(), req)
	require.Error(t, err)
}
