// Command example reconciles a local sqlite database against the models
// declared in example/model, the way a host application would embed the
// reconciler at startup.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"schema_reconciler/internal/config"
	"schema_reconciler/internal/logging"
	"schema_reconciler/internal/model"
	"schema_reconciler/internal/reconcile"

	appmodel "schema_reconciler/example/model"
)

func main() {
	declared, err := model.FromStructs(appmodel.User{}, appmodel.Post{})
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.Config{
		Database: config.DBConfig{
			Provider: "sqlite",
			DSN:      "file:example.db",
		},
		Revisions: config.RevisionConfig{
			Directory: "./migrations",
			Table:     "schema_revisions",
		},
		LogLevel: "info",
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	svc := reconcile.NewService(cfg, declared, logging.NewLogger(cfg.LogLevel))
	sum, err := svc.Reconcile(ctx)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case sum.Generated != nil:
		fmt.Printf("drift resolved with revision %d\n", sum.Generated.Version)
	case sum.NoOp():
		fmt.Println("schema already matches declared models")
	default:
		fmt.Println("database brought up to date")
	}
}
