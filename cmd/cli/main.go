package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/healthsync/internal/buildinfo"
	"github.com/dmitrijs2005/healthsync/internal/client/app"
	"github.com/dmitrijs2005/healthsync/internal/client/cli"
	"github.com/dmitrijs2005/healthsync/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer a.Close()

	a.Start(ctx)
	go func() {
		_ = a.Probe(ctx)
	}()

	cli.NewApp(a.Service(), a.Online, os.Stdin, os.Stdout).Run(ctx)
}
