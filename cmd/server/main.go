package main

import (
	"path/filepath"

	"ListingSweeper/internal/database"
	"ListingSweeper/internal/logger"
	"ListingSweeper/internal/server"
	"ListingSweeper/pkg/config"
)

func main() {
	log := logger.New("server")

	// The server loads its own config
	cfg := config.LoadConfig("config.yml")

	// Findings are read from the index built by `sweeper index`.
	repo, err := database.InitDB(filepath.Join(cfg.Storage.Dir, database.IndexFile))
	if err != nil {
		log.LogFatal("Opening findings index failed", err)
	}
	defer repo.Close()

	if err := server.Start(repo, cfg, log); err != nil {
		log.LogFatal("Server stopped", err)
	}
}
