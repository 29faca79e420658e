// Command migrate applies or reverts the embedded schema migrations.
//
//	migrate up
//	migrate down [steps]
//	migrate version
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/db"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: migrate up | down [steps] | version")
	}

	_ = godotenv.Load()
	v := viper.New()
	v.SetEnvPrefix("WALLET")
	v.AutomaticEnv()
	url := v.GetString("DATABASE_URL")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	switch args[0] {
	case "up":
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid steps %q", args[1])
			}
		}
		if err := db.Rollback(ctx, pool, steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}

	version, dirty, err := db.SchemaVersion(ctx, pool)
	if err != nil {
		return err
	}
	logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
