package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"geocam/internal/geocam/apiv1"
	"geocam/internal/geocam/db"
	"geocam/internal/geocam/httpserver"
	"geocam/internal/geocam/session"
	"geocam/pkg/configuration"
	"geocam/pkg/logger"
	"geocam/pkg/trace"
)

type service interface {
	Close(ctx context.Context) error
}

func main() {
	var (
		wg                 = &sync.WaitGroup{}
		ctx                = context.Background()
		services           = make(map[string]service)
		serviceName string = "geocam"
	)

	cfg, err := configuration.New(ctx)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(serviceName, cfg.Common.Log.FolderPath, cfg.Common.Production)
	if err != nil {
		panic(err)
	}

	mainLog := log.New("main")

	tracer, err := trace.New(ctx, cfg, log, serviceName, serviceName)
	if err != nil {
		panic(err)
	}

	dbService, err := db.New(ctx, cfg, tracer, log)
	services["dbService"] = dbService
	if err != nil {
		panic(err)
	}

	sessionStore := session.New(cfg, log)

	apiv1Client, err := apiv1.New(ctx, cfg, dbService, sessionStore, tracer, log)
	services["apiv1Client"] = apiv1Client
	if err != nil {
		panic(err)
	}

	httpService, err := httpserver.New(ctx, cfg, apiv1Client, tracer, log)
	services["httpService"] = httpService
	if err != nil {
		panic(err)
	}

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)

	<-termChan // Blocks here until interrupted

	mainLog.Info("HALTING SIGNAL!")

	for serviceName, svc := range services {
		if err := svc.Close(ctx); err != nil {
			mainLog.Error(err, "shutdown error", "serviceName", serviceName)
		}
	}

	if err := tracer.Shutdown(ctx); err != nil {
		mainLog.Error(err, "tracer shutdown")
	}

	wg.Wait()

	mainLog.Info("Stopped")
}
