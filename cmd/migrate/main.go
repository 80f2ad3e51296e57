// Command migrate manages the tagboard database schema.
//
//	migrate up              apply pending SQL migrations
//	migrate auto            run GORM AutoMigrate for every persistent model
//	migrate status          show the schema plan and pending migrations
//	migrate down <version>  roll back one applied migration
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"tagboard/internal/config"
	"tagboard/internal/database"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up": func(ctx context.Context, db *gorm.DB, _ *config.Config, _ []string) error {
		return database.RunMigrations(ctx, db)
	},
	"auto": func(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
		cfg.DBSchemaMode = database.SchemaModeAuto
		return database.ApplySchema(ctx, db, cfg)
	},
	"status": func(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("mode:     %s\nenv:      %s\nsql:      %t\nauto:     %t\napplied:  %v\n",
			status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate, status.AppliedVersions)
		for i := range status.PendingMigrations {
			fmt.Printf("pending:  %s\n", status.PendingMigrations[i].String())
		}
		return nil
	},
	"down": func(ctx context.Context, db *gorm.DB, _ *config.Config, args []string) error {
		if len(args) != 1 {
			return fmt.Errorf("down needs exactly one version")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		return database.RollbackMigration(ctx, db, version)
	},
}

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|auto|status|down <version>>")
	}
	flag.Parse()

	run, ok := commands[flag.Arg(0)]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := run(context.Background(), db, cfg, flag.Args()[1:]); err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
	log.Printf("migrate %s: done", flag.Arg(0))
}
