package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/rl1809/obesho/internal/adapter/handler"
	"github.com/rl1809/obesho/internal/config"
)

// Server runs the HTTP and gRPC front ends over one container.
type Server struct {
	container  *Container
	httpServer *http.Server
	grpcServer *grpc.Server
	log        *zap.Logger
}

func NewServer(c *Container) *Server {
	log := c.Logger()
	httpHandler := handler.NewHTTPHandler(c.Orders(), c.Catalog(), c.Store(), config.Version, log.Named("http"))
	grpcHandler := handler.NewGRPCHandler(c.Orders(), c.Catalog())

	return &Server{
		container: c,
		httpServer: &http.Server{
			Addr:              c.Config().HTTPAddr,
			Handler:           handler.NewRouter(httpHandler),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer: handler.NewGRPCServer(grpcHandler, log.Named("grpc")),
		log:        log,
	}
}

// Run serves until ctx is cancelled or a listener fails, then shuts both servers down.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.container.Config()

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		s.log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := s.grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		s.log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		s.log.Error("server failed", zap.Error(runErr))
	}

	s.log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("HTTP server shutdown", zap.Error(err))
	}
	s.log.Info("HTTP server stopped")

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		s.grpcServer.Stop()
	}
	s.log.Info("gRPC server stopped")

	return runErr
}
