// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/sign_glove/internal/app"
	"github.com/relabs-tech/sign_glove/internal/config"
)

func main() {
	configPath := flag.String("config", "./"+config.DefaultPath, "path to configuration file")
	flag.Parse()

	// Records may share stdout; keep the log on stderr.
	log.SetOutput(os.Stderr)
	log.Println("starting sign glove classifier")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunGlove(ctx, config.Get()); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
