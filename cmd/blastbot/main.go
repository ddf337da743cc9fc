package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blastbot/internal/app"
	"blastbot/internal/eventbus"
	"blastbot/internal/httpapi"
	logx "blastbot/pkg/logx"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.yaml", "path to config file (yaml or json)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		os.Exit(1)
	}

	cfg := a.Config()
	if cfg.HTTP != nil && cfg.HTTP.Enabled {
		srv := httpapi.New(cfg.HTTP.Addr, a.Runner(), a.Logger().With(logx.String("comp", "httpapi")))
		a.Go("httpapi", srv.Run)
	}

	// Headless one-shot: with no control API and no recurring trigger,
	// run the batch once and exit when it finishes.
	oneShot := (cfg.HTTP == nil || !cfg.HTTP.Enabled) && (cfg.Trigger == nil || !cfg.Trigger.Enabled)
	if oneShot {
		sub, unsub := a.Runner().Subscribe(16)
		go func() {
			defer unsub()
			for ev := range sub {
				if ev.Type == eventbus.TypeRunFinished {
					cancel()
					return
				}
			}
		}()
		if _, err := a.Runner().StartRun(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "fatal run:", err)
			os.Exit(1)
		}
	}

	<-ctx.Done()

	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = a.Stop(stopCtx)
}
