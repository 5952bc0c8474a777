package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/healthsync/internal/buildinfo"
	"github.com/dmitrijs2005/healthsync/internal/client/app"
	"github.com/dmitrijs2005/healthsync/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
