package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/apocalipssi/docanalyzer/internal/activity"
	"github.com/apocalipssi/docanalyzer/internal/config"
	"github.com/apocalipssi/docanalyzer/internal/database"
	"github.com/apocalipssi/docanalyzer/internal/logger"
	"github.com/apocalipssi/docanalyzer/internal/queue"
	"go.uber.org/zap"
)

const defaultPrefetch = 10

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
	)

	if cfg.RabbitMQURL == "" {
		zapLogger.Fatal("rabbitmq_url_required_for_worker")
	}

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	activityRepo := database.NewActivityLogRepository(db)
	sink := activity.NewStoreSink(activityRepo, cfg.MaxLogEntries)

	// Initialize RabbitMQ queue
	logQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := logQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_rabbitmq",
		zap.Int("prefetch", defaultPrefetch),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming entries
	msgChan, errChan, err := logQueue.Consume(ctx, defaultPrefetch)
	if err != nil {
		zapLogger.Fatal("failed_to_start_consuming", zap.Error(err))
	}

	zapLogger.Info("worker_started_consuming_activity_entries")

	// Drain entries into the store
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("message_channel_closed")
					return
				}

				entry := msg.GetEntry()
				if err := sink.Write(ctx, entry); err != nil {
					zapLogger.Error("failed_to_store_activity_entry",
						zap.Error(err),
						zap.String("entry_id", entry.ID.String()),
						zap.String("activity_type", string(entry.ActivityType)),
					)
					// Requeue so the entry is retried when storage recovers
					if nackErr := msg.Nack(true); nackErr != nil {
						zapLogger.Warn("failed_to_nack_message", zap.Error(nackErr))
					}
					continue
				}

				if ackErr := msg.Ack(); ackErr != nil {
					zapLogger.Warn("failed_to_ack_message", zap.Error(ackErr))
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("queue_error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("shutdown_signal_received_stopping_worker")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("worker_stopped")
}
