package apiv1

import "context"

// Abandon discards a buffered signing session without consuming it into a finished
// PNG. It has no HTTP endpoint of its own; it exists for callers (tests, future
// client-cancel wiring) that need to free a session early rather than waiting out its
// TTL (ORIGINAL §5 "Session lifecycle").
func (c *Client) Abandon(ctx context.Context, sessionID string) {
	c.sessions.Abandon(sessionID)
}
