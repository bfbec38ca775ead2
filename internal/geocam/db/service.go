// Package db persists the device/key registry and the append-only verification audit
// log (ORIGINAL §4.G, §6 "Persisted state") behind a MongoDB backing store, in the
// collection-per-concern shape the rest of this codebase uses for Mongo access.
package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"geocam/pkg/logger"
	"geocam/pkg/model"
	"geocam/pkg/trace"
)

var databaseName = "geocam"

// Service is the database service
type Service struct {
	mongoClient *mongo.Client
	tracer      *trace.Tracer
	log         *logger.Log
	cfg         *model.Cfg

	Devices       *DevicesColl
	Verifications *VerificationsColl
}

// New creates a new database service and its collections.
func New(ctx context.Context, cfg *model.Cfg, tracer *trace.Tracer, log *logger.Log) (*Service, error) {
	s := &Service{
		log:    log.New("db"),
		cfg:    cfg,
		tracer: tracer,
	}

	if err := s.connectMongo(ctx); err != nil {
		return nil, err
	}

	var err error
	s.Devices, err = newDevicesColl(ctx, "devices", s, log.New("devices"))
	if err != nil {
		return nil, err
	}

	s.Verifications, err = newVerificationsColl(ctx, "verifications", s, log.New("verifications"))
	if err != nil {
		return nil, err
	}

	s.log.Info("Started")

	return s, nil
}

func (s *Service) connectMongo(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(s.cfg.Common.Mongo.URI))
	if err != nil {
		return err
	}
	s.mongoClient = client

	if err := s.mongoClient.Ping(ctx, nil); err != nil {
		return err
	}

	s.log.Info("MongoDB connected")
	return nil
}

// Close closes the database connection.
func (s *Service) Close(ctx context.Context) error {
	s.log.Info("Stopped")

	if s.mongoClient != nil {
		if err := s.mongoClient.Disconnect(ctx); err != nil {
			s.log.Info("failed to disconnect MongoDB", "error", err)
		}
	}

	return nil
}
