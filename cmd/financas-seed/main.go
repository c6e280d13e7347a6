package main

import (
	"context"
	"flag"
	"os"

	"financas/internal/cli"
	"financas/internal/seed"
)

func main() {
	path := flag.String("file", "seed.toml", "TOML file with reference data")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger("financas-seed")
	cfg := cli.LoadAndValidateConfig(logger.Logger)

	f, err := seed.Load(*path)
	if err != nil {
		logger.Error("Failed to load seed file", "error", err, "path", *path)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger.Logger, cfg.SQLiteDBPath)
	defer repo.Close()

	res, err := seed.Apply(context.Background(), repo, f)
	if err != nil {
		logger.Error("Seed failed", "error", err, "path", *path)
		repo.Close()
		os.Exit(1)
	}
	logger.Info("Seed applied", "path", *path, "created", res.Created, "existing", res.Existing)
}
