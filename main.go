package main

import (
	"github.com/wfunc/thirteen/config"
	"github.com/wfunc/thirteen/logger"
	"github.com/wfunc/thirteen/monitor"
	"github.com/wfunc/thirteen/persistence"
	"github.com/wfunc/thirteen/server"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database. The server runs without one, settling matches
	// with a no-op settler.
	var db persistence.Database
	var archive *persistence.Archive
	pg := cfg.Database.Postgres
	if pg.Host != "" {
		gormDB, err := persistence.NewGormPostgreSQL(
			pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		db = gormDB
		logger.Log.Info("Database connection successful.")

		archive, err = persistence.NewArchive(
			pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
		if err != nil {
			logger.Log.Warnf("Match archive unavailable: %v", err)
		}
	}

	// Initialize metrics endpoint
	mon := monitor.NewMonitor("thirteen")
	mon.StartServer(cfg.Server.MetricsAddress)

	// Initialize and start the game server
	gameServer := server.NewGameServer(cfg, db, archive, mon)

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
