package db_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"geocam/internal/geocam/db"
	"geocam/pkg/logger"
	"geocam/pkg/model"
	"geocam/pkg/trace"
)

// setupTestMongoDB creates a MongoDB testcontainer and returns the database service,
// following the teacher's own testcontainer fixture pattern.
func setupTestMongoDB(ctx context.Context, t *testing.T) (*db.Service, func()) {
	t.Helper()

	mongoContainer, err := mongodb.Run(ctx, "mongo:6")
	require.NoError(t, err)

	connStr, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &model.Cfg{
		Common: model.Common{
			Mongo: model.Mongo{URI: connStr},
		},
	}

	log := logger.NewSimple("test")
	tracer, err := trace.NewForTesting(ctx, "test", log)
	require.NoError(t, err)

	dbService, err := db.New(ctx, cfg, tracer, log)
	require.NoError(t, err)

	cleanup := func() {
		_ = dbService.Close(ctx)
		_ = tracer.Shutdown(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return dbService, cleanup
}

func sampleDeviceDoc(installationID, publicKeyB64 string) *db.DeviceDoc {
	return &db.DeviceDoc{
		InstallationID:       installationID,
		PublicKeyBase64:      publicKeyB64,
		PublicKeyID:          db.PublicKeyID(publicKeyB64),
		PublicKeyFingerprint: db.PublicKeyFingerprint(publicKeyB64),
		Algorithm:            "secp256k1",
		DeviceModel:          "Pixel 9",
		OSName:               "Android",
		OSVersion:            "15",
		RegisteredAt:         time.Now(),
	}
}

// TestRegisterIsIdempotentOnSameInstallation exercises scenario S7 (ORIGINAL §8
// "registry idempotence"): registering the same installation_id/public key twice
// returns the same device record rather than creating a second one.
func TestRegisterIsIdempotentOnSameInstallation(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	doc := sampleDeviceDoc("install-1", "pubkey-1")

	first, err := dbService.Devices.Register(ctx, "device-1", doc)
	require.NoError(t, err)

	second, err := dbService.Devices.Register(ctx, "device-1-attempt-2", sampleDeviceDoc("install-1", "pubkey-1"))
	require.NoError(t, err)

	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, first.Sequence, second.Sequence)

	docs, err := dbService.Devices.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

// TestRegisterRejectsInstallationReboundToDifferentKey covers the conflict path:
// the same installation_id re-registering with a different public key is rejected.
func TestRegisterRejectsInstallationReboundToDifferentKey(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	_, err := dbService.Devices.Register(ctx, "device-1", sampleDeviceDoc("install-1", "pubkey-1"))
	require.NoError(t, err)

	_, err = dbService.Devices.Register(ctx, "device-2", sampleDeviceDoc("install-1", "pubkey-2"))
	assert.ErrorIs(t, err, db.ErrKeyAlreadyBound)
}

// TestConcurrentRegisterForSameInstallationIsSerialized races two Register calls for
// a brand-new (installation_id, public_key) against each other; both must succeed
// idempotently against a single stored record rather than one failing with a
// duplicate-key error (ORIGINAL §5 "registry writes ... serialized via a per-key
// mutex", §8 invariant "registry monotonicity").
func TestConcurrentRegisterForSameInstallationIsSerialized(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	const attempts = 8
	results := make([]*db.DeviceDoc, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = dbService.Devices.Register(ctx, "device-race", sampleDeviceDoc("install-race", "pubkey-race"))
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "attempt %d", i)
	}

	firstDeviceID := results[0].DeviceID
	firstSequence := results[0].Sequence
	for i, r := range results {
		assert.Equal(t, firstDeviceID, r.DeviceID, "attempt %d returned a different device_id", i)
		assert.Equal(t, firstSequence, r.Sequence, "attempt %d returned a different sequence", i)
	}

	docs, err := dbService.Devices.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestFindByInstallationIDAndPublicKeyID(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	doc := sampleDeviceDoc("install-2", "pubkey-2")
	saved, err := dbService.Devices.Register(ctx, "device-2", doc)
	require.NoError(t, err)

	byInstall, err := dbService.Devices.FindByInstallationID(ctx, "install-2")
	require.NoError(t, err)
	assert.Equal(t, saved.DeviceID, byInstall.DeviceID)

	byKey, err := dbService.Devices.FindByPublicKeyID(ctx, saved.PublicKeyID)
	require.NoError(t, err)
	assert.Equal(t, saved.DeviceID, byKey.DeviceID)

	byRawKey, err := dbService.Devices.FindByPublicKey(ctx, "pubkey-2")
	require.NoError(t, err)
	assert.Equal(t, saved.DeviceID, byRawKey.DeviceID)
}

func TestRevokeMarksDeviceRevokedWithoutDeleting(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	saved, err := dbService.Devices.Register(ctx, "device-3", sampleDeviceDoc("install-3", "pubkey-3"))
	require.NoError(t, err)

	require.NoError(t, dbService.Devices.Revoke(ctx, saved.DeviceID))

	found, err := dbService.Devices.FindByPublicKeyID(ctx, saved.PublicKeyID)
	require.NoError(t, err)
	assert.True(t, found.Revoked)
}

func TestDeleteByInstallationRequiresMatchingFingerprint(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	saved, err := dbService.Devices.Register(ctx, "device-4", sampleDeviceDoc("install-4", "pubkey-4"))
	require.NoError(t, err)

	deleted, err := dbService.Devices.DeleteByInstallation(ctx, "install-4", "wrong-fingerprint")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = dbService.Devices.DeleteByInstallation(ctx, "install-4", saved.PublicKeyFingerprint)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = dbService.Devices.FindByPublicKeyID(ctx, saved.PublicKeyID)
	assert.Error(t, err)
}

// TestSequenceIsMonotonicAcrossRegistrations covers ORIGINAL §8 invariant "registry
// monotonicity": sequence numbers never repeat or go backwards across registrations.
func TestSequenceIsMonotonicAcrossRegistrations(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	var last int64
	for i := 0; i < 5; i++ {
		suffix := string(rune('0' + i))
		doc := sampleDeviceDoc("install-seq-"+suffix, "pubkey-seq-"+suffix)
		saved, err := dbService.Devices.Register(ctx, "device-seq-"+suffix, doc)
		require.NoError(t, err)
		assert.Greater(t, saved.Sequence, last)
		last = saved.Sequence
	}
}

func TestVerificationAppend(t *testing.T) {
	ctx := context.Background()
	dbService, cleanup := setupTestMongoDB(ctx, t)
	defer cleanup()

	err := dbService.Verifications.Append(ctx, &db.VerificationDoc{
		When:        time.Now(),
		PublicKeyID: "gc_testkey",
		Valid:       true,
		Reason:      "ok",
		PeerIP:      "127.0.0.1",
	})
	require.NoError(t, err)
}
