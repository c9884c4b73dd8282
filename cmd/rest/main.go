package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kb-console/internal/bootstrap"
	"kb-console/internal/config"
	"kb-console/internal/server"
	"kb-console/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg, bootstrap.Options{})
	defer container.Close()

	// 3. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg, container.Logger)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Start Background Services
	if err := container.Start(ctx); err != nil {
		log.Panicf("Unable to start transcript relay: %v", err)
	}

	// 5. Check the backend once; an unreachable backend is not fatal
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_ = container.ConsoleService.CheckBackend(checkCtx)
	cancel()

	// 6. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
