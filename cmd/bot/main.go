package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homeworkbot/internal/app"
	"homeworkbot/internal/config"
	logx "homeworkbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config (yaml or json); optional")
	flag.Parse()

	boot := logx.NewConsole("INFO").With(logx.String("comp", "main"))

	if err := config.LoadDotEnv(); err != nil {
		boot.Warn("failed to load .env", logx.Err(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			boot.Critical("tokens were not found, service stopped", logx.Err(err))
		} else {
			boot.Critical("startup failed", logx.Err(err))
		}
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		boot.Critical("start failed", logx.Err(err))
		os.Exit(1)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)

	if reason == app.StopFatalError {
		boot.Error("exited after fatal error", logx.Err(a.Err()))
		os.Exit(1)
	}
}
