package main

import (
	"context"

	"github.com/bidworks/auctiond/internal/auction/application"
	"github.com/bidworks/auctiond/internal/auction/infra/httpapi"
	auctionpg "github.com/bidworks/auctiond/internal/auction/infra/repository/postgres"
	auctionws "github.com/bidworks/auctiond/internal/auction/infra/websocket"
	"github.com/bidworks/auctiond/internal/auction/scheduler"
	"github.com/bidworks/auctiond/internal/notification"
	"github.com/bidworks/auctiond/internal/shared/config"
	"github.com/bidworks/auctiond/internal/shared/db"
	"github.com/bidworks/auctiond/internal/shared/db/migrations"
	"github.com/bidworks/auctiond/internal/shared/httpserver"
	"github.com/bidworks/auctiond/internal/shared/logger"
	sharedws "github.com/bidworks/auctiond/internal/shared/websocket"
	userpg "github.com/bidworks/auctiond/internal/user/infra/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting auctiond...")
	cfg := config.Load()

	log.Info("Running database migrations...")
	if err := migrations.RunMigrations(); err != nil {
		log.Fatal("Database migration failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.GetPostgresDBPool(ctx)
	if err != nil {
		log.Fatal("Database connection failed", zap.Error(err))
	}
	defer pool.Close()

	// repositories
	txStarter := auctionpg.NewTxStarter(pool)
	bidRepo := auctionpg.NewBidRepository(pool)
	auctionRepo := auctionpg.NewAuctionRepository(pool, bidRepo)
	userRepo := userpg.NewUserRepository(pool)

	// event fan-out
	dispatcher := notification.NewDispatcher(
		cfg.DispatcherWorkers,
		cfg.DispatcherQueueSize,
		notification.LogNotificationSink{},
		notification.LogEmailSink{},
	)
	go dispatcher.Run(ctx)

	// live watcher hub
	hub := sharedws.NewHub()
	go hub.Run(ctx)
	broadcaster := auctionws.NewBidBroadcaster(hub)

	// use cases
	placeBidUC := application.NewPlaceBidUseCase(txStarter, auctionRepo, bidRepo, userRepo, dispatcher, broadcaster)
	approveUC := application.NewApproveAuctionUseCase(txStarter, auctionRepo, dispatcher)
	cancelUC := application.NewCancelAuctionUseCase(txStarter, auctionRepo, dispatcher)
	moderationUC := application.NewModerationUseCase(txStarter, auctionRepo, bidRepo, dispatcher, cancelUC)
	getStateUC := application.NewGetAuctionStateUseCase(auctionRepo)
	auctionService := application.NewAuctionService(placeBidUC, approveUC, cancelUC, moderationUC, getStateUC)

	// background sweeps
	expirySweeper := scheduler.NewExpirySweeper(cfg.ExpirySweepInterval, txStarter, auctionRepo, userRepo, dispatcher)
	go expirySweeper.Run(ctx)
	reminderSweeper := scheduler.NewReminderSweeper(cfg.ReminderSweepInterval, txStarter, auctionRepo, userRepo, dispatcher)
	go reminderSweeper.Run(ctx)

	// transport
	server := httpserver.NewServer()
	httpapi.NewAuctionHandler(auctionService).RegisterRoutes(server.App())
	wsHandler := auctionws.NewAuctionWSHandler(auctionService, hub)
	wsHandler.RegisterRoutes(ctx, server.App())
	go wsHandler.ListenForMessages(ctx)

	if err := server.Start(cfg.HTTPAddr); err != nil {
		log.Fatal("HTTP server failed", zap.Error(err))
	}
}
