package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/relay/internal/config"
	"github.com/alfredjeanlab/relay/internal/events"
	"github.com/alfredjeanlab/relay/internal/presence"
	"github.com/alfredjeanlab/relay/internal/relay"
	"github.com/alfredjeanlab/relay/internal/server"
	"github.com/alfredjeanlab/relay/internal/snapshot"
	"github.com/alfredjeanlab/relay/internal/store"
	"github.com/alfredjeanlab/relay/internal/store/postgres"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Start the relay server",
	GroupID:           "system",
	PersistentPreRunE: skipClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("events disabled (RELAY_NATS_URL not set)")
		}

		var audit store.Store
		if cfg.AuditDatabaseURL != "" {
			pg, err := postgres.New(cfg.AuditDatabaseURL)
			if err != nil {
				publisher.Close()
				return err
			}
			audit = pg
			logger.Info("audit log enabled")
		}

		svc := relay.New()
		relayServer := server.NewRelayServer(svc, publisher, audit)

		if cfg.SweepInterval > 0 {
			svc.StartReaper(presence.ReaperConfig{
				Timeout:  cfg.InactivityTimeout,
				Interval: cfg.SweepInterval,
			}, relayServer.AgentSwept)
			logger.Info("reaper started", "interval", cfg.SweepInterval, "timeout", cfg.InactivityTimeout)
		}

		var grpcServer *grpc.Server
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				svc.Close()
				closeSinks(logger, publisher, audit)
				return err
			}
			grpcServer = server.NewGRPCServer(relayServer)
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           relayServer.NewHTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		scheduler := startSnapshots(cfg, svc, logger)

		logger.Info("relay server started", "http_addr", cfg.HTTPAddr, "grpc_addr", cfg.GRPCAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("snapshot scheduler stopped")
		}

		if grpcServer != nil {
			grpcServer.GracefulStop()
			logger.Info("gRPC server stopped")
		}

		// SSE streams are long-lived, so bound the drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		svc.Close()
		closeSinks(logger, publisher, audit)

		logger.Info("shutdown complete")
		return nil
	},
}

// startSnapshots starts the roster export when an interval and at least
// one destination are configured.
func startSnapshots(cfg *config.Config, roster snapshot.Roster, logger *slog.Logger) *snapshot.Scheduler {
	if cfg.SnapshotInterval <= 0 {
		return nil
	}

	var dests []snapshot.Destination
	if cfg.SnapshotS3Bucket != "" {
		s3Dest, err := snapshot.NewS3Destination(context.Background(),
			cfg.SnapshotS3Bucket,
			cfg.SnapshotS3Key,
			cfg.SnapshotS3Region,
			cfg.SnapshotS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 snapshot destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("snapshot S3 destination enabled", "bucket", cfg.SnapshotS3Bucket, "key", cfg.SnapshotS3Key)
		}
	}
	if cfg.SnapshotFile != "" {
		dests = append(dests, snapshot.NewFileDestination(cfg.SnapshotFile))
		logger.Info("snapshot file destination enabled", "path", cfg.SnapshotFile)
	}
	if len(dests) == 0 {
		logger.Warn("RELAY_SNAPSHOT_INTERVAL set but no destination configured")
		return nil
	}

	scheduler := snapshot.NewScheduler(roster, dests, cfg.SnapshotInterval, logger)
	scheduler.Start()
	logger.Info("snapshot scheduler started", "interval", cfg.SnapshotInterval)
	return scheduler
}

func closeSinks(logger *slog.Logger, publisher events.Publisher, audit store.Store) {
	if err := publisher.Close(); err != nil {
		logger.Error("error closing publisher", "err", err)
	}
	if audit != nil {
		if err := audit.Close(); err != nil {
			logger.Error("error closing audit store", "err", err)
		}
	}
}
