package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.opentelemetry.io/otel/codes"

	"geocam/pkg/logger"
)

// VerificationDoc is an append-only audit record of a Verify call (ORIGINAL §3
// "Verification record").
type VerificationDoc struct {
	When        time.Time `bson:"when"`
	PublicKeyID string    `bson:"public_key_id,omitempty"`
	Valid       bool      `bson:"valid"`
	Reason      string    `bson:"reason"`
	PeerIP      string    `bson:"peer_ip"`
}

// VerificationsColl is the append-only verification audit log.
type VerificationsColl struct {
	Service *Service
	Coll    *mongo.Collection
	log     *logger.Log
}

func newVerificationsColl(ctx context.Context, collName string, service *Service, log *logger.Log) (*VerificationsColl, error) {
	c := &VerificationsColl{
		log:     log,
		Service: service,
		Coll:    service.mongoClient.Database(databaseName).Collection(collName),
	}

	if err := c.createIndexes(ctx); err != nil {
		return nil, err
	}

	c.log.Info("Started")

	return c, nil
}

func (c *VerificationsColl) createIndexes(ctx context.Context) error {
	ctx, span := c.Service.tracer.Start(ctx, "db:verifications:createIndexes")
	defer span.End()

	whenIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "when", Value: -1}},
	}

	_, err := c.Coll.Indexes().CreateOne(ctx, whenIndex)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}

// Append records a verification outcome. Contention on this collection is acceptable
// (ORIGINAL §5 "Audit log: append-only; contention acceptable").
func (c *VerificationsColl) Append(ctx context.Context, doc *VerificationDoc) error {
	ctx, span := c.Service.tracer.Start(ctx, "db:verifications:append")
	defer span.End()

	_, err := c.Coll.InsertOne(ctx, doc)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return err
}
