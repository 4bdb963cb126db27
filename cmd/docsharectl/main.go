// Command docsharectl runs operator tasks against the docshare database and
// object store: migrations, allowlist seeding, role changes and a one-off
// reconcile pass.
package main

import (
	"context"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"docshare/internal/config"
	"docshare/internal/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.Location())

	if err := rootCommand(cfg, log).Run(context.Background(), os.Args); err != nil {
		log.WithError(err).Fatal("command failed")
	}
}
