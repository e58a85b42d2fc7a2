package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rmoreas/warcycle/internal/api"
	"github.com/rmoreas/warcycle/internal/config"
	"github.com/rmoreas/warcycle/internal/constants"
	"github.com/rmoreas/warcycle/internal/logging"
	"github.com/rmoreas/warcycle/internal/service"
	"github.com/rmoreas/warcycle/internal/storage"
)

var serveNoDB bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the game server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			logging.Fatal("missing or invalid configuration", err, logging.Fields{
				"hint": "set " + constants.EnvConfigPath + " to a config file or unset it for defaults",
			})
		}

		var repo storage.Repository
		if !serveNoDB {
			db, err := storage.OpenAndMigrate(cfg.DBPath)
			if err != nil {
				logging.Fatal("failed to initialize database", err, logging.Fields{"db_path": cfg.DBPath})
			}
			repo = storage.NewRepository(db)
		}

		manager := service.NewManager(cfg, repo)
		defer manager.StopAll()

		// Stop sessions cleanly on SIGINT/SIGTERM before the process exits.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			logging.Info("shutting down", nil)
			manager.StopAll()
			os.Exit(0)
		}()

		router := gin.Default()
		api.RegisterRoutes(router, api.NewSessionHandler(manager))

		logging.Info("server started", logging.Fields{constants.LogFieldAddr: cfg.ServerAddress})
		if err := router.Run(cfg.ServerAddress); err != nil {
			logging.Fatal("failed to start server", err, nil)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveNoDB, "no-db", false, "run without the sqlite audit trail")
}
