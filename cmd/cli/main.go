package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/accounts/internal/cli"
	"github.com/dmitrijs2005/accounts/internal/logging"
	"github.com/dmitrijs2005/accounts/internal/server"
	"github.com/dmitrijs2005/accounts/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.New(os.Stderr, "text", cfg.LogLevel)

	srv, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app := cli.NewApp(srv.Accounts(), os.Stdin, os.Stdout)
	err = app.Run(ctx, os.Args[1:])
	_ = srv.Close()

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

}
