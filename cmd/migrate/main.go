// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up          apply all pending migrations
//	migrate down        roll back every migration
//	migrate steps N     move N migrations (negative rolls back)
//	migrate version     print the current schema version
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"ms-booking/internal/config"
	"ms-booking/internal/database/migrations"
	"ms-booking/internal/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: migrate up|down|steps N|version")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	l := logger.NewLogger(cfg.Log.Dir, cfg.Log.Level)
	defer l.Close()

	if cfg.Database.DSN == "" {
		l.Fatal("CONFIG", "DB_POSTGRES_DSN not set")
	}

	runner := migrations.NewRunner(cfg.Database.DSN, l)
	defer func() {
		if err := runner.Close(); err != nil {
			l.Warn("MIGRATION", err.Error())
		}
	}()

	switch os.Args[1] {
	case "up":
		err = runner.Up()
	case "down":
		err = runner.Down()
	case "steps":
		if len(os.Args) < 3 {
			usage()
		}
		n, convErr := strconv.Atoi(os.Args[2])
		if convErr != nil {
			usage()
		}
		err = runner.Steps(n)
	case "version":
		var v uint
		var dirty bool
		v, dirty, err = runner.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
		}
	default:
		usage()
	}
	if err != nil {
		l.Fatal("MIGRATION", err.Error())
	}
	l.Info("MIGRATION", fmt.Sprintf("✅ migrate %s complete", os.Args[1]))
}
