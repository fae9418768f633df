package main

import (
	"context"
	"time"

	"github.com/niksmo/parentshop/config"
	"github.com/niksmo/parentshop/internal/app"
	"github.com/niksmo/parentshop/pkg/sigctx"
)

const closeTimeout = 5 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext(context.Background())
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	archiver := app.NewArchiver(sigCtx, closeApp, cfg)

	archiver.Run()

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	archiver.Close(ctx)
}
