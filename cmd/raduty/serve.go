package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/raduty/internal/config"
	"github.com/MarcoPoloResearchLab/raduty/internal/database"
	"github.com/MarcoPoloResearchLab/raduty/internal/duties"
	"github.com/MarcoPoloResearchLab/raduty/internal/logging"
	"github.com/MarcoPoloResearchLab/raduty/internal/reports"
	"github.com/MarcoPoloResearchLab/raduty/internal/roster"
	"github.com/MarcoPoloResearchLab/raduty/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the duty REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, database.Options{Seed: appConfig.SeedDatabase}, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	rosterService, err := roster.NewService(roster.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	dutyService, err := duties.NewService(duties.ServiceConfig{Database: db, Roster: rosterService, Logger: logger})
	if err != nil {
		return err
	}
	reportService, err := reports.NewService(reports.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler, err := server.NewHTTPHandler(server.Dependencies{
		DutyService:       dutyService,
		RosterService:     rosterService,
		ReportService:     reportService,
		Realtime:          server.NewRealtimeDispatcher(),
		AllowOrigins:      appConfig.AllowOrigins,
		HeartbeatInterval: appConfig.HeartbeatInterval,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// open change streams end with the process signal instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return signalCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
