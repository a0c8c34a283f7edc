package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	appconfig "github.com/wolfman30/studyvisa-ai-platform/internal/config"
	"github.com/wolfman30/studyvisa-ai-platform/internal/database"
	"github.com/wolfman30/studyvisa-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	db, err := database.OpenSQL(cfg.DatabaseURL)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("ping db", "error", err)
		os.Exit(1)
	}

	// Check for force command: /bin/migrate force <version>
	if len(os.Args) >= 3 && os.Args[1] == "force" {
		version, err := strconv.Atoi(os.Args[2])
		if err != nil {
			logger.Error("invalid version", "error", err)
			os.Exit(1)
		}
		if err := database.Force(db, version); err != nil {
			logger.Error("force version", "error", err)
			os.Exit(1)
		}
		fmt.Printf("forced version to %d\n", version)
		return
	}

	if err := database.Migrate(db); err != nil {
		logger.Error("migrate up", "error", err)
		os.Exit(1)
	}
	fmt.Println("migrations complete")
}
