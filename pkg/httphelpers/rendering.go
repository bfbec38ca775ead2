package httphelpers

import (
	"context"
	"time"
	"geocam/pkg/helpers"
	"geocam/pkg/logger"

	"github.com/gin-gonic/gin"
)

type renderingHandler struct {
	client *Client
	log    *logger.Log
}

// Content renders the content. Every GeoCam response body is JSON
// (ORIGINAL §6 "Content-Type application/json; charset=utf-8 on responses"), so
// content negotiation only needs to distinguish JSON/curl clients from a stray
// plain-text Accept header.
func (r *renderingHandler) Content(ctx context.Context, c *gin.Context, code int, data any) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	_, span := r.client.tracer.Start(ctx, "httphelpers:Render:Content")
	defer span.End()

	negotiated := c.NegotiateFormat(gin.MIMEJSON, gin.MIMEPlain, "*/*")

	switch negotiated {
	case gin.MIMEPlain:
		c.String(code, "%v", data)
	case gin.MIMEJSON, "*/*": // curl defaults to */*
		c.JSON(code, data)
	default:
		c.JSON(406, gin.H{"error": helpers.NewErrorDetails("not_acceptable", "Accept header is not supported. Supported types: application/json (text/plain).")})
	}
}
