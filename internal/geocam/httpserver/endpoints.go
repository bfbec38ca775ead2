package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"

	"geocam/internal/geocam/apiv1"
)

func (s *Service) endpointProcess(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.ProcessRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return s.apiv1.Process(ctx, req)
}

func (s *Service) endpointComplete(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.CompleteRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return s.apiv1.Complete(ctx, req)
}

func (s *Service) endpointPurePNGVerify(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.PurePNGVerifyRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return s.apiv1.PurePNGVerify(ctx, req, c.ClientIP())
}

func (s *Service) endpointRegisterDevice(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.RegisterDeviceRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return s.apiv1.RegisterDevice(ctx, req)
}

func (s *Service) endpointListDevices(ctx context.Context, c *gin.Context) (any, error) {
	return s.apiv1.ListDevices(ctx)
}

func (s *Service) endpointDeleteDevice(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.DeleteDeviceRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return s.apiv1.DeleteDevice(ctx, req)
}

func (s *Service) endpointVerifyImageSecure(ctx context.Context, c *gin.Context) (any, error) {
	req := &apiv1.VerifyImageSecureRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		return nil, err
	}
	return s.apiv1.VerifyImageSecure(ctx, req, c.ClientIP())
}

func (s *Service) endpointHealth(ctx context.Context, c *gin.Context) (any, error) {
	return s.apiv1.Health(ctx)
}
