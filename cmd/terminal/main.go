package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opentill/terminal/internal/application/service"
	"github.com/opentill/terminal/internal/config"
	"github.com/opentill/terminal/internal/infrastructure/api"
	"github.com/opentill/terminal/internal/infrastructure/database"
	"github.com/opentill/terminal/internal/infrastructure/realtime"
	"github.com/opentill/terminal/internal/infrastructure/repository"
	"github.com/opentill/terminal/internal/presentation/http/handler"
	"github.com/opentill/terminal/internal/presentation/http/routes"
	"github.com/opentill/terminal/pkg/printer"
	"github.com/opentill/terminal/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.App.Debug {
		log = log.Level(zerolog.DebugLevel).Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Open the local record store
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create storage directory")
	}
	db, err := database.NewSQLiteDB(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate local store")
	}

	// Initialize repositories
	recordRepo := repository.NewRecordRepository(db)
	queueRepo := repository.NewQueueRepository(db)

	// Initialize the server API client and connectivity state machine
	client := api.NewClient(cfg.Server.URL, cfg.Server.HTTPTimeout, cfg.Server.ProbeTimeout, log)
	conn := service.NewConnectivityService(client, recordRepo, cfg.Server.ProbeInterval, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := conn.InitialProbe(ctx); err != nil {
		log.Fatal().Err(err).Msg("terminal cannot start")
	}

	// Initialize services
	session := service.NewSession()
	sessions := service.NewSessionService(client, recordRepo, conn, session, service.DeviceSetup{
		Name:       cfg.Device.Name,
		LocationID: cfg.Device.LocationID,
	}, log)
	transactions := service.NewTransactionService(session)
	syncService := service.NewSyncService(queueRepo, recordRepo, client, conn, session, log)
	orderService := service.NewOrderService(recordRepo, session, log)
	feedService := service.NewFeedService(recordRepo, session, orderService, log)

	// Initialize thermal printer
	thermalPrinter, err := printer.NewPrinterFromConfig(
		cfg.Printer.Type,
		cfg.Printer.USBPath,
		cfg.Printer.Address,
	)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize printer, printing disabled")
		thermalPrinter = printer.NewNullPrinter()
	}
	printService := service.NewPrintService(thermalPrinter, cfg.Printer.Width, log)
	orderService.AddNotifier(printService)
	orderService.SetAckSender(feedService)

	// Register the device and pull the reference snapshot
	if err := sessions.EnsureDevice(ctx); err != nil {
		log.Fatal().Err(err).Msg("device registration failed")
	}
	if err := sessions.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("reference snapshot unavailable")
	}

	// Connect the realtime feed
	feed := realtime.NewFeed(realtime.Config{
		URL:     cfg.Server.FeedURL,
		Token:   client.Token,
		LastSeq: session.LastSeq,
	}, feedService, log)
	feedService.SetFeed(feed)
	feedService.SetReauth(sessions.Renew)
	feed.SetOnDrop(func(err error) {
		conn.ForceOffline(err.Error())
	})

	// Full resync when the server demands one.
	feedService.SetOnReset(func(ctx context.Context) {
		if err := sessions.Refresh(ctx); err != nil {
			log.Error().Err(err).Msg("resync failed")
		}
	})

	// Recovery order: drain the offline queue first, then resubscribe.
	conn.OnOnline(func(ctx context.Context) {
		if err := syncService.ReplayAll(ctx); err != nil {
			log.Warn().Err(err).Msg("queue replay incomplete")
			return
		}
		feed.Kick()
	})

	if err := feedService.RestoreSeq(ctx); err != nil {
		log.Warn().Err(err).Msg("feed position not restored")
	}

	conn.Start(ctx)
	feed.Start(ctx)
	sessions.StartRenewLoop(ctx, time.Minute)

	// Initialize the loopback API for the register UI
	tokens := utils.NewTokenManager(cfg.Local.Secret, cfg.Local.TokenExpiry)
	router := routes.Setup(&routes.Handlers{
		Auth:    handler.NewAuthHandler(sessions, tokens),
		Sale:    handler.NewSaleHandler(transactions, syncService, printService, session),
		Order:   handler.NewOrderHandler(orderService, syncService),
		Catalog: handler.NewCatalogHandler(recordRepo),
		Status:  handler.NewStatusHandler(conn, syncService, session, sessions),
	}, &routes.Deps{
		Tokens: tokens,
		Cfg:    cfg,
		Log:    log,
	})

	srv := &http.Server{
		Addr:    "127.0.0.1:" + cfg.Local.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("mode", conn.Mode().String()).Msg("terminal ready")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("loopback server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("loopback server shutdown failed")
	}
	_ = thermalPrinter.Close()
}
