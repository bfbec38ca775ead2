// Package apiv1 implements the GeoCam core operations: the two-phase signing
// orchestrator (Process/Complete/Abandon), the verification orchestrator (Verify),
// and the device/key registry surface (Register/ListDevices/DeleteByInstallation/
// Revoke), wired the way this codebase's service packages wire their db/session/
// tracer dependencies.
package apiv1

import (
	"context"
	"time"

	"geocam/internal/geocam/db"
	"geocam/internal/geocam/session"
	"geocam/internal/geocam/workerpool"
	"geocam/pkg/logger"
	"geocam/pkg/model"
	"geocam/pkg/trace"
)

// Client is the apiv1 service object.
type Client struct {
	cfg       *model.Cfg
	db        *db.Service
	sessions  *session.Store
	codecPool *workerpool.Pool
	tracer    *trace.Tracer
	log       *logger.Log
	startedAt time.Time
}

// New creates a new apiv1 Client.
func New(ctx context.Context, cfg *model.Cfg, dbService *db.Service, sessions *session.Store, tracer *trace.Tracer, log *logger.Log) (*Client, error) {
	codecCfg := cfg.Geocam.Codec

	c := &Client{
		cfg:       cfg,
		db:        dbService,
		sessions:  sessions,
		codecPool: workerpool.New(codecCfg.WorkerPoolSize, codecCfg.QueueLength),
		tracer:    tracer,
		log:       log.New("apiv1"),
		startedAt: time.Now(),
	}

	c.log.Info("Started")

	return c, nil
}

// Close stops the apiv1 Client's background dependents.
func (c *Client) Close(ctx context.Context) error {
	c.log.Info("Stopped")
	c.sessions.Stop()
	return nil
}
