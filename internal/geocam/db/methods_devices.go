package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.opentelemetry.io/otel/codes"

	"geocam/pkg/logger"
)

// DeviceDoc is a registered device/key record (ORIGINAL §3 "Device record").
type DeviceDoc struct {
	DeviceID              string    `bson:"device_id"`
	InstallationID        string    `bson:"installation_id"`
	PublicKeyBase64       string    `bson:"public_key_base64"`
	PublicKeyID           string    `bson:"public_key_id"`
	PublicKeyFingerprint  string    `bson:"public_key_fingerprint"`
	Algorithm             string    `bson:"algorithm"`
	DeviceModel           string    `bson:"device_model"`
	OSName                string    `bson:"os_name"`
	OSVersion             string    `bson:"os_version"`
	RegisteredAt          time.Time `bson:"registered_at"`
	Sequence              int64     `bson:"sequence"`
	Revoked               bool      `bson:"revoked"`
}

// GeocamName is the human-readable "GeoCam<sequence>" label (ORIGINAL §4.G).
func (d *DeviceDoc) GeocamName() string {
	return geocamName(d.Sequence)
}

func geocamName(sequence int64) string {
	return "GeoCam" + formatInt(sequence)
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// counterDoc backs the monotonic sequence allocator.
type counterDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// ErrKeyAlreadyBound is returned when installation_id is already bound to a different public key.
var ErrKeyAlreadyBound = errors.New("db: installation_id bound to a different public key")

// DevicesColl is the collection of registered devices.
type DevicesColl struct {
	Service  *Service
	Coll     *mongo.Collection
	counters *mongo.Collection
	log      *logger.Log

	registerLocks *keyedMutex
}

func newDevicesColl(ctx context.Context, collName string, service *Service, log *logger.Log) (*DevicesColl, error) {
	c := &DevicesColl{
		log:           log,
		Service:       service,
		Coll:          service.mongoClient.Database(databaseName).Collection(collName),
		counters:      service.mongoClient.Database(databaseName).Collection("counters"),
		registerLocks: newKeyedMutex(),
	}

	if err := c.createIndexes(ctx); err != nil {
		return nil, err
	}

	c.log.Info("Started")

	return c, nil
}

// keyedMutex is a per-key lock, so concurrent writers only serialize against each
// other when they touch the same key (ORIGINAL §5 "registry writes for the same
// installation_id are serialized via a per-key mutex or equivalent transaction
// isolation").
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the lock for key is acquired and returns the function that
// releases it. The per-key mutex is never removed, so it also serves as a stable
// serialization point across the lifetime of the process for that key.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (c *DevicesColl) createIndexes(ctx context.Context) error {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:createIndexes")
	defer span.End()

	publicKeyIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "public_key_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	installationIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "installation_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	sequenceIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "sequence", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := c.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{publicKeyIDIndex, installationIDIndex, sequenceIndex})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

func (c *DevicesColl) nextSequence(ctx context.Context) (int64, error) {
	after := options.After
	upsert := true

	result := c.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "devices"},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after, Upsert: &upsert},
	)

	var doc counterDoc
	if err := result.Decode(&doc); err != nil {
		return 0, err
	}

	return doc.Value, nil
}

// Register inserts a new device record, or returns the existing one if the public key
// is already registered (idempotent), per ORIGINAL §4.G. Writes for a given
// installation_id are serialized by a per-key mutex so two concurrent registrations
// for a brand-new device can't both pass the check-then-insert sequence (ORIGINAL §5,
// §8 invariant "registry monotonicity").
func (c *DevicesColl) Register(ctx context.Context, deviceID string, doc *DeviceDoc) (*DeviceDoc, error) {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:register")
	defer span.End()

	unlock := c.registerLocks.Lock(doc.InstallationID)
	defer unlock()

	if existing, err := c.FindByPublicKeyID(ctx, doc.PublicKeyID); err == nil {
		return existing, nil
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if existingByInstall, err := c.FindByInstallationID(ctx, doc.InstallationID); err == nil {
		if existingByInstall.PublicKeyID != doc.PublicKeyID {
			return nil, ErrKeyAlreadyBound
		}
		return existingByInstall, nil
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	sequence, err := c.nextSequence(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc.DeviceID = deviceID
	doc.Sequence = sequence
	doc.Revoked = false

	if _, err := c.Coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost a race with a registration for the same key or installation_id
			// that committed between our pre-checks and this insert (can still
			// happen across separate server processes sharing one installation_id
			// lock space per process, or during a brief window before the unique
			// index is built). Re-fetch and return the winner's record instead of
			// surfacing a 500 for what is, from the caller's view, a successful
			// idempotent registration.
			if existing, findErr := c.FindByPublicKeyID(ctx, doc.PublicKeyID); findErr == nil {
				return existing, nil
			}
			if existing, findErr := c.FindByInstallationID(ctx, doc.InstallationID); findErr == nil {
				return existing, nil
			}
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.log.Debug("registered device", "device_id", doc.DeviceID, "sequence", doc.Sequence)
	return doc, nil
}

// FindByPublicKeyID looks up a device by its derived public_key_id.
func (c *DevicesColl) FindByPublicKeyID(ctx context.Context, publicKeyID string) (*DeviceDoc, error) {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:findByPublicKeyID")
	defer span.End()

	var doc DeviceDoc
	if err := c.Coll.FindOne(ctx, bson.M{"public_key_id": publicKeyID}).Decode(&doc); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	return &doc, nil
}

// FindByPublicKey looks up a device by its raw Base64 public key.
func (c *DevicesColl) FindByPublicKey(ctx context.Context, publicKeyB64 string) (*DeviceDoc, error) {
	return c.FindByPublicKeyID(ctx, PublicKeyID(publicKeyB64))
}

// FindByInstallationID looks up a device by its client-chosen installation id.
func (c *DevicesColl) FindByInstallationID(ctx context.Context, installationID string) (*DeviceDoc, error) {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:findByInstallationID")
	defer span.End()

	var doc DeviceDoc
	if err := c.Coll.FindOne(ctx, bson.M{"installation_id": installationID}).Decode(&doc); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	return &doc, nil
}

// List returns every registered device, newest registration first.
func (c *DevicesColl) List(ctx context.Context) ([]*DeviceDoc, error) {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:list")
	defer span.End()

	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: -1}})
	cursor, err := c.Coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []*DeviceDoc
	if err := cursor.All(ctx, &docs); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return docs, nil
}

// DeleteByInstallation deletes a device only when both installation_id and
// key_fingerprint match, to avoid accidental deletion (ORIGINAL §4.G, §9 open question 4).
func (c *DevicesColl) DeleteByInstallation(ctx context.Context, installationID, keyFingerprint string) (bool, error) {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:deleteByInstallation")
	defer span.End()

	result, err := c.Coll.DeleteOne(ctx, bson.M{
		"installation_id":        installationID,
		"public_key_fingerprint": keyFingerprint,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	return result.DeletedCount > 0, nil
}

// Revoke marks a device revoked; devices are never destroyed by this path.
func (c *DevicesColl) Revoke(ctx context.Context, deviceID string) error {
	ctx, span := c.Service.tracer.Start(ctx, "db:devices:revoke")
	defer span.End()

	_, err := c.Coll.UpdateOne(ctx,
		bson.M{"device_id": deviceID},
		bson.M{"$set": bson.M{"revoked": true}},
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
