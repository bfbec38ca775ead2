package apiv1

import (
	"context"
	"time"
)

// Version is the GeoCam service build version, overridden at link time in release
// builds (ORIGINAL §6 "/api/health").
var Version = "dev"

// HealthReply is the reply for /api/health.
type HealthReply struct {
	Status   string  `json:"status"`
	UptimeS  float64 `json:"uptime_s"`
	Version  string  `json:"version"`
}

// Health reports process uptime and build version, the single-store GeoCam
// specialization of the teacher's multi-probe health-check idiom (ORIGINAL §6,
// SPEC_FULL.md "SUPPLEMENTED FEATURES").
func (c *Client) Health(ctx context.Context) (*HealthReply, error) {
	return &HealthReply{
		Status:  "healthy",
		UptimeS: time.Since(c.startedAt).Seconds(),
		Version: Version,
	}, nil
}
